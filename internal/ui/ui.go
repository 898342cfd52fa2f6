package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/packstore/internal/models"
	"github.com/desertthunder/packstore/internal/repositories"
	"github.com/desertthunder/packstore/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PackListView ViewState = iota
	TrackListView
)

// Model represents the TUI application state.
type Model struct {
	view         ViewState
	email        string
	entitlements *repositories.EntitlementRepository
	packs        *repositories.PackRepository
	tracks       *repositories.TrackRepository
	width        int
	height       int
	packList     list.Model
	trackList    list.Model
	selectedPack *models.Pack
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	enter key.Binding
	back  key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.quit},
	}
}

type packsFetchedMsg struct {
	packs []*models.Pack
	err   error
}

type tracksFetchedMsg struct {
	pack   *models.Pack
	tracks []*models.Track
	err    error
}

// NewModel creates a new TUI model browsing the given customer's entitlements.
func NewModel(email string, ents *repositories.EntitlementRepository, packs *repositories.PackRepository, tracks *repositories.TrackRepository) *Model {
	return &Model{
		view:         PackListView,
		email:        email,
		entitlements: ents,
		packs:        packs,
		tracks:       tracks,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by fetching the customer's entitled packs.
func (m *Model) Init() tea.Cmd {
	return m.fetchPacks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.packList.Width() == 0 {
			m.packList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PackListView:
			return m.handlePackListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		}

	case packsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.packs))
		for i, pack := range msg.packs {
			items[i] = packItem{pack: pack}
		}
		m.packList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.packList.Title = fmt.Sprintf("Entitled packs for %s", m.email)
		m.packList.SetSize(m.width-4, m.height-8)
		return m, nil

	case tracksFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PackListView
			return m, nil
		}
		m.selectedPack = msg.pack
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.pack.Title())
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PackListView:
		return m.renderPackList()
	case TrackListView:
		return m.renderTrackList()
	default:
		return ""
	}
}

func (m *Model) handlePackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.packList.SelectedItem()
		if selected != nil {
			if p, ok := selected.(packItem); ok {
				return m, m.fetchTracks(p.pack)
			}
		}
	}

	var cmd tea.Cmd
	m.packList, cmd = m.packList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PackListView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PackListView:
		m.packList, cmd = m.packList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPacks() tea.Cmd {
	return func() tea.Msg {
		packs, err := tasks.EntitledPacks(m.entitlements, m.packs, m.email)
		return packsFetchedMsg{packs: packs, err: err}
	}
}

func (m *Model) fetchTracks(pack *models.Pack) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.tracks.List(map[string]any{"pack_id": pack.ID()})
		return tracksFetchedMsg{pack: pack, tracks: tracks, err: err}
	}
}

func (m *Model) renderPackList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.packList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}
