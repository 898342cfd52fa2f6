package models

import (
	"fmt"
	"time"
)

// Pack represents a purchasable bundle of audio tracks.
//
// Catalog data is seeded out of band and immutable at request time except
// for the stock counter.
type Pack struct {
	id        string
	sequence  int
	title     string
	stockLeft int
	createdAt time.Time
	updatedAt time.Time
}

// NewPack creates a Pack with the given catalog identifier and display title.
func NewPack(sequence int, id, title string, stockLeft int) *Pack {
	now := time.Now()
	return &Pack{
		id:        id,
		sequence:  sequence,
		title:     title,
		stockLeft: stockLeft,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *Pack) ID() string           { return p.id }
func (p *Pack) Sequence() int        { return p.sequence }
func (p *Pack) Title() string        { return p.title }
func (p *Pack) StockLeft() int       { return p.stockLeft }
func (p *Pack) CreatedAt() time.Time { return p.createdAt }
func (p *Pack) UpdatedAt() time.Time { return p.updatedAt }

func (p *Pack) SetID(id string)              { p.id = id }
func (p *Pack) SetSequence(seq int)          { p.sequence = seq }
func (p *Pack) SetStockLeft(n int)           { p.stockLeft = n }
func (p *Pack) SetUpdatedAt(t time.Time)     { p.updatedAt = t }
func (p *Pack) SetCreatedAt(t time.Time)     { p.createdAt = t }
func (p *Pack) SetTimestamps(c, u time.Time) { p.createdAt, p.updatedAt = c, u }

// Validate checks that the pack has an identifier and a title.
func (p *Pack) Validate() error {
	if p.id == "" {
		return fmt.Errorf("pack id is required")
	}
	if p.title == "" {
		return fmt.Errorf("pack title is required")
	}
	if p.stockLeft < 0 {
		return fmt.Errorf("pack stock cannot be negative")
	}
	return nil
}
