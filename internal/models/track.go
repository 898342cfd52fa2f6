package models

import (
	"fmt"
	"time"
)

// TrackAttrs carries the catalog attributes of a track as seeded.
type TrackAttrs struct {
	Title       string
	Format      string
	BitDepth    int
	SampleRate  int
	Size        int64
	TrackOrder  int
	StoragePath string
}

// Track represents an individual audio file belonging to exactly one Pack.
//
// StoragePath points into the object store bucket; Size is the declared
// byte size echoed back as Content-Length at fulfillment time.
type Track struct {
	id        string
	sequence  int
	packID    string
	attrs     TrackAttrs
	createdAt time.Time
	updatedAt time.Time
}

// NewTrack creates a Track belonging to the given pack.
func NewTrack(sequence int, packID string, attrs TrackAttrs) *Track {
	now := time.Now()
	return &Track{
		sequence:  sequence,
		packID:    packID,
		attrs:     attrs,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *Track) ID() string           { return t.id }
func (t *Track) Sequence() int        { return t.sequence }
func (t *Track) PackID() string       { return t.packID }
func (t *Track) Title() string        { return t.attrs.Title }
func (t *Track) Format() string       { return t.attrs.Format }
func (t *Track) BitDepth() int        { return t.attrs.BitDepth }
func (t *Track) SampleRate() int      { return t.attrs.SampleRate }
func (t *Track) Size() int64          { return t.attrs.Size }
func (t *Track) TrackOrder() int      { return t.attrs.TrackOrder }
func (t *Track) StoragePath() string  { return t.attrs.StoragePath }
func (t *Track) CreatedAt() time.Time { return t.createdAt }
func (t *Track) UpdatedAt() time.Time { return t.updatedAt }

func (t *Track) SetID(id string)           { t.id = id }
func (t *Track) SetSequence(seq int)       { t.sequence = seq }
func (t *Track) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }
func (t *Track) SetCreatedAt(ts time.Time) { t.createdAt = ts }

// Filename derives the attachment filename served at download time.
// The extension is fixed: the storefront only sells WAV audio.
func (t *Track) Filename() string {
	return t.attrs.Title + ".wav"
}

// Validate checks that the track references a pack and has catalog attributes.
func (t *Track) Validate() error {
	if t.packID == "" {
		return fmt.Errorf("track pack id is required")
	}
	if t.attrs.Title == "" {
		return fmt.Errorf("track title is required")
	}
	if t.attrs.StoragePath == "" {
		return fmt.Errorf("track storage path is required")
	}
	if t.attrs.Size < 0 {
		return fmt.Errorf("track size cannot be negative")
	}
	return nil
}
