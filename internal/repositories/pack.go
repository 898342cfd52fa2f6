package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/shared"
)

// PackRepository implements models.Repository[*models.Pack] for the static catalog.
type PackRepository struct {
	db *sql.DB
}

// NewPackRepository creates a new PackRepository with the given database connection
func NewPackRepository(db *sql.DB) *PackRepository {
	return &PackRepository{db: db}
}

// Create inserts a new [models.Pack] into the catalog. Pack ids come from the
// catalog seed, not from generated UUIDs.
func (r *PackRepository) Create(pack *models.Pack) error {
	sequence, err := NextSequence(r.db, "packs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	pack.SetSequence(sequence)

	if err := pack.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO packs (id, sequence, title, stock_left, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		pack.ID(),
		sequence,
		pack.Title(),
		pack.StockLeft(),
		pack.CreatedAt(),
		pack.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert pack: %w", err)
	}

	return nil
}

// Get retrieves a pack by its catalog id
func (r *PackRepository) Get(id string) (*models.Pack, error) {
	query := `
		SELECT id, sequence, title, stock_left, created_at, updated_at
		FROM packs
		WHERE id = ?
	`

	return scanPack(r.db.QueryRow(query, id))
}

// Update modifies an existing pack in the catalog
func (r *PackRepository) Update(pack *models.Pack) error {
	if err := pack.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	pack.SetUpdatedAt(now)

	query := `
		UPDATE packs
		SET title = ?, stock_left = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, pack.Title(), pack.StockLeft(), now, pack.ID())
	if err != nil {
		return fmt.Errorf("failed to update pack: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pack not found: %s", pack.ID())
	}

	return nil
}

// Delete removes a pack from the catalog by id
func (r *PackRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM packs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete pack: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pack not found: %s", id)
	}

	return nil
}

// List retrieves all packs matching the given criteria
func (r *PackRepository) List(criteria map[string]any) ([]*models.Pack, error) {
	query := `
		SELECT id, sequence, title, stock_left, created_at, updated_at
		FROM packs
		WHERE 1 = 1
	`

	args := []any{}

	if title, ok := criteria["title"].(string); ok && title != "" {
		query += " AND title = ?"
		args = append(args, title)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query packs: %w", err)
	}
	defer rows.Close()

	var packs []*models.Pack
	for rows.Next() {
		pack, err := scanPackRow(rows)
		if err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return packs, nil
}

// AdjustStock atomically applies delta to a pack's stock counter and returns
// the new value. Returns an error when the pack does not exist.
func (r *PackRepository) AdjustStock(id string, delta int) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("UPDATE packs SET stock_left = stock_left + ?, updated_at = ? WHERE id = ?", delta, time.Now(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("%w: %s", shared.ErrPackNotFound, id)
	}

	var left int
	if err := tx.QueryRow("SELECT stock_left FROM packs WHERE id = ?", id).Scan(&left); err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}

	return left, nil
}

// scanPack scans a single [sql.Row] into a [models.Pack]
func scanPack(row *sql.Row) (*models.Pack, error) {
	var (
		id        string
		sequence  int
		title     string
		stockLeft int
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&id, &sequence, &title, &stockLeft, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrPackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pack: %w", err)
	}

	pack := models.NewPack(sequence, id, title, stockLeft)
	pack.SetTimestamps(createdAt, updatedAt)

	return pack, nil
}

// scanPackRow scans a row from [sql.Rows] into a [models.Pack]
func scanPackRow(rows *sql.Rows) (*models.Pack, error) {
	var (
		id        string
		sequence  int
		title     string
		stockLeft int
		createdAt time.Time
		updatedAt time.Time
	)

	if err := rows.Scan(&id, &sequence, &title, &stockLeft, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan pack: %w", err)
	}

	pack := models.NewPack(sequence, id, title, stockLeft)
	pack.SetTimestamps(createdAt, updatedAt)

	return pack, nil
}
