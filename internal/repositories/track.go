package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/shared"
)

// TrackRepository implements models.Repository[*models.Track] for catalog tracks.
//
// Tracks are seeded once and immutable at request time; the listing and
// fulfillment handlers only ever read.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.Track] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.Track) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if track.ID() == "" {
		track.SetID(shared.GenerateID())
	}
	track.SetSequence(sequence)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, pack_id, title, format, bit_depth, sample_rate, size, track_order, storage_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		track.ID(),
		sequence,
		track.PackID(),
		track.Title(),
		track.Format(),
		track.BitDepth(),
		track.SampleRate(),
		track.Size(),
		track.TrackOrder(),
		track.StoragePath(),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(id string) (*models.Track, error) {
	query := `
		SELECT id, sequence, pack_id, title, format, bit_depth, sample_rate, size, track_order, storage_path, created_at, updated_at
		FROM tracks
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing track in the database
func (r *TrackRepository) Update(track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET title = ?, format = ?, bit_depth = ?, sample_rate = ?, size = ?, track_order = ?, storage_path = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		track.Title(),
		track.Format(),
		track.BitDepth(),
		track.SampleRate(),
		track.Size(),
		track.TrackOrder(),
		track.StoragePath(),
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found: %s", track.ID())
	}

	return nil
}

// Delete removes a track by ID
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found: %s", id)
	}

	return nil
}

// List retrieves all tracks matching the given criteria, ordered by pack then track order
func (r *TrackRepository) List(criteria map[string]any) ([]*models.Track, error) {
	query := `
		SELECT id, sequence, pack_id, title, format, bit_depth, sample_rate, size, track_order, storage_path, created_at, updated_at
		FROM tracks
		WHERE 1 = 1
	`

	args := []any{}

	if packID, ok := criteria["pack_id"].(string); ok && packID != "" {
		query += " AND pack_id = ?"
		args = append(args, packID)
	}

	query += " ORDER BY pack_id ASC, track_order ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// ListByPacks retrieves all tracks whose pack id is in the given set, ordered
// by pack id then track order. Feeds the entitled-downloads listing.
func (r *TrackRepository) ListByPacks(packIDs []string) ([]*models.Track, error) {
	if len(packIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(packIDs)-1) + "?"
	query := fmt.Sprintf(`
		SELECT id, sequence, pack_id, title, format, bit_depth, sample_rate, size, track_order, storage_path, created_at, updated_at
		FROM tracks
		WHERE pack_id IN (%s)
		ORDER BY pack_id ASC, track_order ASC
	`, placeholders)

	args := make([]any, len(packIDs))
	for i, id := range packIDs {
		args[i] = id
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanOne scans a single [sql.Row] into a [models.Track]
func (r *TrackRepository) scanOne(row *sql.Row) (*models.Track, error) {
	var (
		id          string
		sequence    int
		packID      string
		title       string
		format      string
		bitDepth    int
		sampleRate  int
		size        int64
		trackOrder  int
		storagePath string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := row.Scan(&id, &sequence, &packID, &title, &format, &bitDepth, &sampleRate, &size, &trackOrder, &storagePath, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	attrs := models.TrackAttrs{
		Title:       title,
		Format:      format,
		BitDepth:    bitDepth,
		SampleRate:  sampleRate,
		Size:        size,
		TrackOrder:  trackOrder,
		StoragePath: storagePath,
	}

	track := models.NewTrack(sequence, packID, attrs)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)

	return track, nil
}

// scanRow scans a row from [sql.Rows] into a [models.Track]
func (r *TrackRepository) scanRow(rows *sql.Rows) (*models.Track, error) {
	var (
		id          string
		sequence    int
		packID      string
		title       string
		format      string
		bitDepth    int
		sampleRate  int
		size        int64
		trackOrder  int
		storagePath string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := rows.Scan(&id, &sequence, &packID, &title, &format, &bitDepth, &sampleRate, &size, &trackOrder, &storagePath, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	attrs := models.TrackAttrs{
		Title:       title,
		Format:      format,
		BitDepth:    bitDepth,
		SampleRate:  sampleRate,
		Size:        size,
		TrackOrder:  trackOrder,
		StoragePath: storagePath,
	}

	track := models.NewTrack(sequence, packID, attrs)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)

	return track, nil
}
