package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plshuffle/internal/models"
	"github.com/desertthunder/plshuffle/internal/services"
	"github.com/desertthunder/plshuffle/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	ShuffleView
	ResultView
)

// PlaylistLister lists the user's playlists.
type PlaylistLister interface {
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
}

// Shuffler runs the backup-then-shuffle operation. [*tasks.Shuffler] satisfies it.
type Shuffler interface {
	Run(ctx context.Context, ref string, progress chan<- tasks.ProgressUpdate) (*tasks.ShuffleResult, error)
	Running() bool
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	lister       PlaylistLister
	shuffler     Shuffler
	notices      <-chan string
	notice       string
	width        int
	height       int
	playlistList list.Model
	loaded       bool
	selected     *models.Playlist
	running      bool
	progressChan chan tasks.ProgressUpdate
	doneChan     chan shuffleCompleteMsg
	progress     tasks.ProgressUpdate
	result       *tasks.ShuffleResult
	err          error
	help         help.Model
	keys         keyMap
	spinner      spinner.Model
}

// playlistItem wraps [models.Playlist] to implement list.Item.
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

type playlistsFetchedMsg struct {
	playlists []models.Playlist
	err       error
}

type progressUpdateMsg tasks.ProgressUpdate

type noticeMsg string

type shuffleCompleteMsg struct {
	result *tasks.ShuffleResult
	err    error
}

// NewModel creates a new TUI model. notices may be nil.
func NewModel(ctx context.Context, lister PlaylistLister, shuffler Shuffler, notices <-chan string) *Model {
	return &Model{
		ctx:      ctx,
		view:     PlaylistListView,
		lister:   lister,
		shuffler: shuffler,
		notices:  notices,
		width:    80,
		height:   24,
		help:     help.New(),
		keys:     newKeyMap(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
	}
}

// Init fetches playlists and starts listening for notifications.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchPlaylists(), m.waitForNotice())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.loaded {
			m.playlistList.SetSize(listSize(m.width, m.height))
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ShuffleView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		w, h := listSize(m.width, m.height)
		m.playlistList = list.New(items, list.NewDefaultDelegate(), w, h)
		m.playlistList.Title = "Spotify Playlists"
		m.playlistList.SetShowHelp(false)
		m.loaded = true
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, m.waitForNotice()

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case shuffleCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.running = false
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.view == PlaylistListView && m.loaded {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == PlaylistListView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case ConfirmView:
		body = m.renderConfirm()
	case ShuffleView:
		body = m.renderShuffle()
	case ResultView:
		body = m.renderResult()
	}

	if m.notice != "" {
		body = fmt.Sprintf("%s\n\n%s", body, styles.notice.Render(m.notice))
	}
	return body
}

// CanShuffle reports whether the "Shuffle Playlist" action is offered:
// exactly one playlist is selected and no shuffle is in flight.
func (m *Model) CanShuffle() bool {
	if m.running || (m.shuffler != nil && m.shuffler.Running()) {
		return false
	}
	return m.selectedPlaylist() != nil
}

func (m *Model) selectedPlaylist() *models.Playlist {
	if !m.loaded || m.playlistList.SettingFilter() {
		return nil
	}
	item, ok := m.playlistList.SelectedItem().(playlistItem)
	if !ok {
		return nil
	}
	return &item.playlist
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loaded && m.playlistList.SettingFilter() {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.shuffle):
		if !m.CanShuffle() {
			return m, nil
		}
		m.selected = m.selectedPlaylist()
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchPlaylists()
	}

	if !m.loaded {
		return m, nil
	}
	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		if m.running || m.shuffler.Running() {
			m.view = PlaylistListView
			return m, nil
		}
		m.view = ShuffleView
		return m, m.startShuffle()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.selected = nil
		m.view = PlaylistListView
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.refresh):
		m.view = PlaylistListView
		m.selected = nil
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, m.fetchPlaylists()
	}
	return m, nil
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.lister.GetPlaylists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	notices := m.notices
	if notices == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-notices
		if !ok {
			return nil
		}
		return noticeMsg(msg)
	}
}

func (m *Model) startShuffle() tea.Cmd {
	m.running = true
	m.notice = ""
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan shuffleCompleteMsg, 1)

	ref := services.Resource{Type: services.ResourcePlaylist, ID: m.selected.ID}.URI()
	progress, done := m.progressChan, m.doneChan
	go func() {
		result, err := m.shuffler.Run(m.ctx, ref, progress)
		done <- shuffleCompleteMsg{result: result, err: err}
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

func (m *Model) renderPlaylistList() string {
	if !m.loaded {
		return fmt.Sprintf("%s Loading playlists...", m.spinner.View())
	}

	helpKeys := []key.Binding{}
	if m.CanShuffle() {
		helpKeys = append(helpKeys, m.keys.shuffle)
	}
	helpKeys = append(helpKeys, m.keys.refresh, m.keys.quit)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Shuffle '%s'?", m.selected.Name))
	info := fmt.Sprintf("Tracks: %d\n%s",
		m.selected.TrackCount,
		styles.help.Render("A backup copy of the current order is created first."),
	)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderShuffle() string {
	title := styles.title.Render(fmt.Sprintf("Shuffling '%s'", m.selected.Name))

	var state string
	switch m.progress.State {
	case tasks.Fetching:
		state = "Fetching tracks..."
	case tasks.BackingUp:
		state = "Backing up"
	case tasks.Shuffling:
		state = "Shuffling..."
	case tasks.WritingBack:
		state = "Writing shuffled order"
	default:
		state = "Starting..."
	}
	if m.progress.Total > 0 {
		state = fmt.Sprintf("%s (%d/%d)", state, m.progress.Step, m.progress.Total)
	}

	return fmt.Sprintf("%s\n%s %s\n%s", title, m.spinner.View(), state, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		out := styles.err.Render(fmt.Sprintf("Shuffle failed: %v", m.err))
		if m.result != nil && m.result.BackupID != "" {
			out += "\n" + styles.warn.Render(fmt.Sprintf("The original order is saved in '%s'.", m.result.BackupName))
		}
		return fmt.Sprintf("%s\n\n%s", out, helpView)
	}

	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Playlist shuffled")
	info := fmt.Sprintf("\nPlaylist: %s (%d tracks)\nBackup: %s (ID: %s)",
		m.result.PlaylistName,
		m.result.TrackCount,
		m.result.BackupName,
		m.result.BackupID,
	)
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func listSize(width, height int) (int, int) {
	return max(width-4, 20), max(height-8, 5)
}
