package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/repositories"
)

// EntitlementRow is one line of an entitlement report.
type EntitlementRow struct {
	PackID    string
	PackTitle string
	Permanent bool
	ExpiresAt *time.Time
	Valid     bool
	GrantedAt time.Time
}

// EntitlementReport lists every entitlement row held by an email, expired
// rows included, with validity evaluated at report time.
func EntitlementReport(ents *repositories.EntitlementRepository, packs *repositories.PackRepository, email string) ([]EntitlementRow, error) {
	rows, err := ents.List(map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}

	now := time.Now()
	report := make([]EntitlementRow, 0, len(rows))
	for _, ent := range rows {
		row := EntitlementRow{
			PackID:    ent.PackID(),
			Permanent: ent.Permanent(),
			ExpiresAt: ent.ExpiresAt(),
			Valid:     ent.ValidAt(now),
			GrantedAt: ent.CreatedAt(),
		}
		if pack, err := packs.Get(ent.PackID()); err == nil {
			row.PackTitle = pack.Title()
		}
		report = append(report, row)
	}

	return report, nil
}

// EntitledPacks returns the distinct packs an email currently has valid
// access to, resolved against the catalog.
func EntitledPacks(ents *repositories.EntitlementRepository, packs *repositories.PackRepository, email string) ([]*models.Pack, error) {
	rows, err := ents.List(map[string]any{"email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}

	now := time.Now()
	seen := map[string]bool{}
	var result []*models.Pack
	for _, ent := range rows {
		if !ent.ValidAt(now) || seen[ent.PackID()] {
			continue
		}
		seen[ent.PackID()] = true

		pack, err := packs.Get(ent.PackID())
		if err != nil {
			// Entitlement referencing a pack missing from the catalog:
			// keep going, the report is advisory.
			continue
		}
		result = append(result, pack)
	}

	return result, nil
}
