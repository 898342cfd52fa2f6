package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/packstore/internal/models"
)

var (
	_ list.Item = packItem{}
	_ list.Item = trackItem{}
)

// packItem wraps [models.Pack] to implement [list.Item].
type packItem struct {
	pack *models.Pack
}

func (i packItem) FilterValue() string { return i.pack.Title() }
func (i packItem) Title() string       { return i.pack.Title() }
func (i packItem) Description() string {
	return fmt.Sprintf("%s • %d left in stock", i.pack.ID(), i.pack.StockLeft())
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track *models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title() }
func (i trackItem) Title() string       { return i.track.Title() }
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %d-bit/%d Hz • %d bytes", i.track.Format(), i.track.BitDepth(), i.track.SampleRate(), i.track.Size())
}
