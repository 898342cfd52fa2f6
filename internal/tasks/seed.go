// package tasks contains operational workflows that sit above the
// repositories: catalog seeding and entitlement reporting.
package tasks

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/repositories"
)

// CatalogFile is the TOML shape of a catalog seed file.
type CatalogFile struct {
	Packs []CatalogPack `toml:"packs"`
}

// CatalogPack describes one purchasable pack and its tracks.
type CatalogPack struct {
	ID     string         `toml:"id"`
	Title  string         `toml:"title"`
	Stock  int            `toml:"stock"`
	Tracks []CatalogTrack `toml:"tracks"`
}

// CatalogTrack describes one audio file in a pack.
type CatalogTrack struct {
	Title       string `toml:"title"`
	Format      string `toml:"format"`
	BitDepth    int    `toml:"bit_depth"`
	SampleRate  int    `toml:"sample_rate"`
	Size        int64  `toml:"size"`
	Order       int    `toml:"order"`
	StoragePath string `toml:"storage_path"`
}

// SeedResult summarizes a seeding run.
type SeedResult struct {
	PacksCreated  int
	PacksSkipped  int
	TracksCreated int
}

// CatalogSeeder loads a catalog file into the pack and track tables.
type CatalogSeeder struct {
	packs  *repositories.PackRepository
	tracks *repositories.TrackRepository
	logger *log.Logger
}

// NewCatalogSeeder creates a seeder writing through the given repositories.
func NewCatalogSeeder(packs *repositories.PackRepository, tracks *repositories.TrackRepository, logger *log.Logger) *CatalogSeeder {
	return &CatalogSeeder{packs: packs, tracks: tracks, logger: logger}
}

// LoadCatalog reads and parses a TOML catalog file.
func LoadCatalog(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var catalog CatalogFile
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	return &catalog, nil
}

// Seed inserts the catalog's packs and tracks. Packs that already exist are
// skipped along with their tracks, so re-running a seed is safe.
func (s *CatalogSeeder) Seed(catalog *CatalogFile) (*SeedResult, error) {
	result := &SeedResult{}

	for _, cp := range catalog.Packs {
		if _, err := s.packs.Get(cp.ID); err == nil {
			s.logger.Info("pack already seeded, skipping", "pack", cp.ID)
			result.PacksSkipped++
			continue
		}

		pack := models.NewPack(0, cp.ID, cp.Title, cp.Stock)
		if err := s.packs.Create(pack); err != nil {
			return result, fmt.Errorf("failed to seed pack %s: %w", cp.ID, err)
		}
		result.PacksCreated++

		for _, ct := range cp.Tracks {
			track := models.NewTrack(0, cp.ID, models.TrackAttrs{
				Title:       ct.Title,
				Format:      ct.Format,
				BitDepth:    ct.BitDepth,
				SampleRate:  ct.SampleRate,
				Size:        ct.Size,
				TrackOrder:  ct.Order,
				StoragePath: ct.StoragePath,
			})
			if err := s.tracks.Create(track); err != nil {
				return result, fmt.Errorf("failed to seed track %q in pack %s: %w", ct.Title, cp.ID, err)
			}
			result.TracksCreated++
		}
	}

	return result, nil
}
