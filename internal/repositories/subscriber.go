package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SubscriberRepository records mailing-list signups.
//
// The table is a single-column set keyed by email, so this does not implement
// the generic Repository interface.
type SubscriberRepository struct {
	db *sql.DB
}

// NewSubscriberRepository creates a new SubscriberRepository with the given database connection
func NewSubscriberRepository(db *sql.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// Subscribe inserts an email into the mailing list. Duplicate signups are
// suppressed, not errors.
func (r *SubscriberRepository) Subscribe(email string) error {
	_, err := r.db.Exec("INSERT INTO subscribers (email, created_at) VALUES (?, ?)", email, time.Now())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil
		}
		return fmt.Errorf("failed to insert subscriber: %w", err)
	}
	return nil
}

// Count returns the number of mailing-list subscribers.
func (r *SubscriberRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM subscribers").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return n, nil
}
