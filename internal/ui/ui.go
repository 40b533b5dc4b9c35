package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/monitor"
)

// Controller is the monitor as seen by the dashboard.
type Controller interface {
	Toggle(ctx context.Context) bool
	RefreshBlocklist(ctx context.Context) error
	Artists() []models.Artist
	Snapshot() monitor.Snapshot
	Updates() <-chan monitor.StatusUpdate
}

// Session reports whether the user is logged in to Spotify.
type Session interface {
	LoggedIn() bool
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	ctrl       Controller
	session    Session
	width      int
	height     int
	artists    list.Model
	status     string
	track      string
	monitoring bool
	blocked    int
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates the dashboard model.
func NewModel(ctx context.Context, ctrl Controller, session Session) *Model {
	snap := ctrl.Snapshot()

	l := list.New(artistItems(ctrl.Artists()), list.NewDefaultDelegate(), 80, 20)
	l.Title = "Blocked Artists"
	l.Filter = substringFilter
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = styles.title

	status := snap.Status
	if status == "" {
		status = "Press m to start monitoring."
	}
	track := snap.Track
	if track == "" {
		track = monitor.NoTrack
	}

	return &Model{
		ctx:        ctx,
		ctrl:       ctrl,
		session:    session,
		artists:    l,
		status:     status,
		track:      track,
		monitoring: snap.Monitoring,
		blocked:    snap.Blocked,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init loads the blocklist and starts listening for monitor updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refreshBlocklist(), m.waitForUpdate())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.artists.SetSize(msg.Width-4, max(msg.Height-10, 5))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.artists, cmd = m.artists.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// While typing a search every key belongs to the list.
	if m.artists.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.toggle):
			return m, m.toggle()
		case key.Matches(msg, m.keys.refresh):
			m.status = "Refreshing blocklist..."
			return m, m.refreshBlocklist()
		}
	}

	var cmd tea.Cmd
	m.artists, cmd = m.artists.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStatusUpdate:
		update := msg.data.(monitor.StatusUpdate)
		m.status = update.Message
		m.track = update.Track
		m.monitoring = update.Monitoring
		m.blocked = m.ctrl.Snapshot().Blocked
		return m, m.waitForUpdate()

	case MsgBlocklistRefreshed:
		res := msg.data.(blocklistResult)
		if res.err != nil {
			m.err = res.err
			m.status = "Could not load the blocklist."
			return m, nil
		}
		m.err = nil
		m.blocked = m.ctrl.Snapshot().Blocked
		m.status = fmt.Sprintf("Loaded %d blocked artists.", len(models.VisibleArtists(res.artists)))
		return m, m.artists.SetItems(artistItems(res.artists))

	case MsgToggled:
		m.monitoring = msg.data.(bool)
		return m, nil
	}
	return m, nil
}

func (m *Model) toggle() tea.Cmd {
	return func() tea.Msg {
		return toggledMsg(m.ctrl.Toggle(m.ctx))
	}
}

func (m *Model) refreshBlocklist() tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.RefreshBlocklist(m.ctx)
		return blocklistRefreshedMsg(m.ctrl.Artists(), err)
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-m.ctrl.Updates():
			return statusUpdateMsg(update)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the dashboard.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.artists.View())
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderHeader() string {
	login := styles.err.Render("Not logged in")
	if m.session != nil && m.session.LoggedIn() {
		login = styles.ok.Render("Logged in to Spotify")
	}

	state := styles.warn.Render("Stopped")
	if m.monitoring {
		state = styles.ok.Render("Monitoring")
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.title.Render("Skipper"), "  ", login, "  ", state,
	)
	return styles.header.Render(line)
}

func (m *Model) renderStatus() string {
	status := m.status
	if m.err != nil {
		status = styles.err.Render(fmt.Sprintf("%s (%v)", status, m.err))
	}

	return strings.Join([]string{
		styles.label.Render("Status:  ") + status,
		styles.label.Render("Track:   ") + m.track,
		styles.label.Render("Blocked: ") + fmt.Sprintf("%d artists", m.blocked),
	}, "\n")
}
