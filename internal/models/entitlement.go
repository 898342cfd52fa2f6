package models

import (
	"fmt"
	"time"
)

// Entitlement is a grant of access for one email to one pack.
//
// A nil expiry means permanent access; an expiry in the past voids the row.
// Multiple rows may exist for the same (email, pack) pair and access is
// granted if any row is currently valid. Rows are never deleted on read.
type Entitlement struct {
	id        string
	sequence  int
	email     string
	packID    string
	expiresAt *time.Time
	createdAt time.Time
}

// NewEntitlement creates an entitlement for the given email and pack.
// Pass a nil expiry for permanent access.
func NewEntitlement(sequence int, email, packID string, expiresAt *time.Time) *Entitlement {
	return &Entitlement{
		sequence:  sequence,
		email:     email,
		packID:    packID,
		expiresAt: expiresAt,
		createdAt: time.Now(),
	}
}

func (e *Entitlement) ID() string            { return e.id }
func (e *Entitlement) Sequence() int         { return e.sequence }
func (e *Entitlement) Email() string         { return e.email }
func (e *Entitlement) PackID() string        { return e.packID }
func (e *Entitlement) ExpiresAt() *time.Time { return e.expiresAt }
func (e *Entitlement) CreatedAt() time.Time  { return e.createdAt }

// UpdatedAt returns the creation time; entitlement rows are never updated.
func (e *Entitlement) UpdatedAt() time.Time { return e.createdAt }

func (e *Entitlement) SetID(id string)           { e.id = id }
func (e *Entitlement) SetSequence(seq int)       { e.sequence = seq }
func (e *Entitlement) SetCreatedAt(ts time.Time) { e.createdAt = ts }

// Permanent reports whether the entitlement never expires.
func (e *Entitlement) Permanent() bool {
	return e.expiresAt == nil
}

// ValidAt reports whether the entitlement grants access at the given instant.
// Expiry is evaluated here, in memory, not at the database: a single SQL
// predicate cannot express "null OR strictly in the future" without dropping
// permanent rows.
func (e *Entitlement) ValidAt(now time.Time) bool {
	return e.expiresAt == nil || e.expiresAt.After(now)
}

// Validate checks that the grant names an email and a pack.
func (e *Entitlement) Validate() error {
	if e.email == "" {
		return fmt.Errorf("entitlement email is required")
	}
	if e.packID == "" {
		return fmt.Errorf("entitlement pack id is required")
	}
	return nil
}
