package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/shared"
)

// EntitlementRepository implements models.Repository[*models.Entitlement].
//
// Entitlement rows are append-only and never deleted on read; expiry is
// evaluated by callers, not enforced here.
type EntitlementRepository struct {
	db *sql.DB
}

// NewEntitlementRepository creates a new EntitlementRepository with the given database connection
func NewEntitlementRepository(db *sql.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// Create inserts a new [models.Entitlement] into the database with generated ID and sequence
func (r *EntitlementRepository) Create(ent *models.Entitlement) error {
	sequence, err := NextSequence(r.db, "entitlements")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	ent.SetID(shared.GenerateID())
	ent.SetSequence(sequence)

	if err := ent.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var expiresAt any
	if ent.ExpiresAt() != nil {
		expiresAt = *ent.ExpiresAt()
	}

	query := `
		INSERT INTO entitlements (id, sequence, email, pack_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, ent.ID(), sequence, ent.Email(), ent.PackID(), expiresAt, ent.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert entitlement: %w", err)
	}

	return nil
}

// Get retrieves an entitlement by ID
func (r *EntitlementRepository) Get(id string) (*models.Entitlement, error) {
	query := `
		SELECT id, sequence, email, pack_id, expires_at, created_at
		FROM entitlements
		WHERE id = ?
	`

	row := r.db.QueryRow(query, id)

	ent, err := scanEntitlement(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entitlement not found")
	}
	if err != nil {
		return nil, err
	}

	return ent, nil
}

// Update is not supported: entitlement rows are append-only grants.
func (r *EntitlementRepository) Update(ent *models.Entitlement) error {
	return fmt.Errorf("entitlements are append-only: %w", shared.ErrNotImplemented)
}

// Delete is not supported: entitlement rows are never deleted, expiry is
// evaluated at authorization time instead.
func (r *EntitlementRepository) Delete(id string) error {
	return fmt.Errorf("entitlements are append-only: %w", shared.ErrNotImplemented)
}

// List retrieves all entitlements matching the given criteria, oldest first
func (r *EntitlementRepository) List(criteria map[string]any) ([]*models.Entitlement, error) {
	query := `
		SELECT id, sequence, email, pack_id, expires_at, created_at
		FROM entitlements
		WHERE 1 = 1
	`

	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	if packID, ok := criteria["pack_id"].(string); ok && packID != "" {
		query += " AND pack_id = ?"
		args = append(args, packID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entitlements: %w", err)
	}
	defer rows.Close()

	var ents []*models.Entitlement
	for rows.Next() {
		ent, err := scanEntitlement(rows.Scan)
		if err != nil {
			return nil, err
		}
		ents = append(ents, ent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ents, nil
}

// ListForPair retrieves ALL entitlement rows for an (email, pack) pair,
// including expired ones. The expiry filter deliberately stays out of the
// SQL: a single row-level predicate cannot express "null OR strictly in the
// future", and filtering with a bare greater-than-now comparison at the
// database silently drops permanent rows.
func (r *EntitlementRepository) ListForPair(email, packID string) ([]*models.Entitlement, error) {
	return r.List(map[string]any{"email": email, "pack_id": packID})
}

// scanEntitlement scans a row into a [models.Entitlement] via the given scan function
func scanEntitlement(scan func(dest ...any) error) (*models.Entitlement, error) {
	var (
		id        string
		sequence  int
		email     string
		packID    string
		expiresAt sql.NullTime
		createdAt time.Time
	)

	err := scan(&id, &sequence, &email, &packID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entitlement: %w", err)
	}

	var expiry *time.Time
	if expiresAt.Valid {
		expiry = &expiresAt.Time
	}

	ent := models.NewEntitlement(sequence, email, packID, expiry)
	ent.SetID(id)
	ent.SetCreatedAt(createdAt)

	return ent, nil
}
