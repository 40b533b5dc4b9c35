package monitor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/skipper/internal/models"
	"github.com/desertthunder/skipper/internal/services"
	"github.com/desertthunder/skipper/internal/shared"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultSkipRecheck     = time.Second
	DefaultRefreshInterval = 5 * time.Minute

	// NoTrack is shown as the current track while stopped.
	NoTrack = "None"
	// IdleTrack is shown as the current track when nothing is playing.
	IdleTrack = "Nothing is currently playing."
)

// Status messages.
const (
	MsgActive      = "Monitoring active..."
	MsgStopped     = "Monitoring stopped."
	MsgIdle        = "Player is idle."
	MsgAuthError   = "Authentication error. Please log in again."
	MsgSpotifyDown = "Error connecting to Spotify. Retrying..."
	msgSkipping    = "Skipping track by blocked artist: "
	msgNowPlaying  = "Now playing: "
)

// Player controls the user's Spotify playback.
type Player interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*services.Playback, error)
	Next(ctx context.Context, accessToken string) error
}

// TokenSource yields a valid access token, refreshing as needed.
type TokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

// Invalidator is implemented by token sources that can discard a session
// Spotify has rejected.
type Invalidator interface {
	Logout() error
}

// Blocklist fetches the approved artists.
type Blocklist interface {
	Artists(ctx context.Context) ([]models.Artist, error)
}

// StatusUpdate is emitted whenever the monitor's status text changes.
type StatusUpdate struct {
	Message    string
	Track      string
	Monitoring bool
	Time       time.Time
}

// Snapshot is a point in time view of the monitor.
type Snapshot struct {
	Monitoring  bool
	Status      string
	Track       string
	LastTrackID string
	Blocked     int
}

// Options tunes a [Monitor]. Zero values use the defaults and a negative
// RefreshInterval disables the periodic blocklist refresh.
type Options struct {
	PollInterval    time.Duration
	SkipRecheck     time.Duration
	RefreshInterval time.Duration
	Logger          *log.Logger
}

// Monitor polls playback and skips blocked tracks.
type Monitor struct {
	player    Player
	tokens    TokenSource
	blocklist Blocklist
	blocked   *BlockSet

	pollInterval    time.Duration
	skipRecheck     time.Duration
	refreshInterval time.Duration
	logger          *log.Logger
	updates         chan StatusUpdate

	mu          sync.Mutex
	monitoring  bool
	cancel      context.CancelFunc
	done        chan struct{}
	status      string
	track       string
	lastTrackID string
	artists     []models.Artist
}

// New creates a stopped [Monitor]. blocklist may be nil, in which case the
// [BlockSet] must be filled by the caller.
func New(player Player, tokens TokenSource, blocklist Blocklist, opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.SkipRecheck <= 0 {
		opts.SkipRecheck = DefaultSkipRecheck
	}
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Monitor{
		player:          player,
		tokens:          tokens,
		blocklist:       blocklist,
		blocked:         NewBlockSet(),
		pollInterval:    opts.PollInterval,
		skipRecheck:     opts.SkipRecheck,
		refreshInterval: opts.RefreshInterval,
		logger:          shared.WithLogger(opts.Logger, "component", "monitor"),
		updates:         make(chan StatusUpdate, 64),
		track:           NoTrack,
	}
}

// Updates returns the status channel. It is never closed.
func (m *Monitor) Updates() <-chan StatusUpdate {
	return m.updates
}

// Blocked exposes the set of blocked artist ids.
func (m *Monitor) Blocked() *BlockSet {
	return m.blocked
}

// Artists returns the artists from the last successful blocklist refresh.
func (m *Monitor) Artists() []models.Artist {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Artist(nil), m.artists...)
}

// Snapshot returns the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Monitoring:  m.monitoring,
		Status:      m.status,
		Track:       m.track,
		LastTrackID: m.lastTrackID,
		Blocked:     m.blocked.Len(),
	}
}

// Monitoring reports whether the loop is running.
func (m *Monitor) Monitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitoring
}

// RefreshBlocklist reloads the blocked artists from the API.
func (m *Monitor) RefreshBlocklist(ctx context.Context) error {
	if m.blocklist == nil {
		return nil
	}

	artists, err := m.blocklist.Artists(ctx)
	if err != nil {
		m.logger.Error("error fetching blocklist", "err", err)
		return err
	}

	m.mu.Lock()
	m.artists = artists
	m.mu.Unlock()

	if m.blocked.Replace(models.ArtistIDs(artists)) {
		m.logger.Info("updated watchlist", "artists", m.blocked.Len())
	}
	return nil
}

// Start begins monitoring. It is a no-op when already monitoring. The loop
// stops when ctx is cancelled, [Monitor.Stop] is called or authentication fails.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.monitoring {
		m.mu.Unlock()
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.monitoring = true
	m.cancel = cancel
	m.done = done
	m.lastTrackID = ""
	m.mu.Unlock()

	m.logger.Info("monitoring started", "interval", m.pollInterval)
	m.setStatus(MsgActive)

	go m.run(loopCtx, done)
}

// Stop halts monitoring and waits for the loop to exit. It is a no-op when stopped.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.monitoring = false
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.track = NoTrack
	m.mu.Unlock()

	m.logger.Info("monitoring stopped")
	m.setStatus(MsgStopped)
}

// Toggle starts a stopped monitor or stops a running one and reports whether
// it is now monitoring.
func (m *Monitor) Toggle(ctx context.Context) bool {
	if m.Monitoring() {
		m.Stop()
		return false
	}
	m.Start(ctx)
	return true
}

type outcome int

const (
	outcomeContinue outcome = iota
	outcomeSkipped
	outcomeAuthFailed
)

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if m.blocked.Len() == 0 {
		_ = m.RefreshBlocklist(ctx)
	}

	poll := time.NewTicker(m.pollInterval)
	defer poll.Stop()

	var refresh <-chan time.Time
	if m.blocklist != nil && m.refreshInterval > 0 {
		t := time.NewTicker(m.refreshInterval)
		defer t.Stop()
		refresh = t.C
	}

	var recheck <-chan time.Time
	handle := func(o outcome) bool {
		switch o {
		case outcomeAuthFailed:
			m.halt(done)
			return false
		case outcomeSkipped:
			recheck = time.After(m.skipRecheck)
		}
		return true
	}

	if !handle(m.check(ctx)) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			if !handle(m.check(ctx)) {
				return
			}
		case <-recheck:
			recheck = nil
			if !handle(m.check(ctx)) {
				return
			}
		case <-refresh:
			_ = m.RefreshBlocklist(ctx)
		}
	}
}

// halt marks the monitor stopped from inside the loop after an auth failure.
func (m *Monitor) halt(done chan struct{}) {
	m.mu.Lock()
	current := m.done == done
	if current {
		m.cancel()
		m.monitoring = false
		m.cancel = nil
		m.done = nil
		m.track = NoTrack
	}
	m.mu.Unlock()

	if !current {
		return
	}
	m.logger.Warn("monitoring stopped after authentication failure")
	m.setStatus(MsgAuthError)
}

// rejected handles a 401 from Spotify: the stored session is dropped and the
// loop stops.
func (m *Monitor) rejected(err error) outcome {
	m.logger.Error("spotify rejected the access token", "err", err)
	if inv, ok := m.tokens.(Invalidator); ok {
		if err := inv.Logout(); err != nil {
			m.logger.Error("failed to clear session", "err", err)
		}
	}
	return outcomeAuthFailed
}

// check inspects the current playback once.
func (m *Monitor) check(ctx context.Context) outcome {
	token, err := m.tokens.ValidAccessToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeContinue
		}
		m.logger.Error("no valid access token", "err", err)
		return outcomeAuthFailed
	}

	playback, err := m.player.CurrentlyPlaying(ctx, token)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return outcomeContinue
		}
		if services.StatusCode(err) == http.StatusUnauthorized {
			return m.rejected(err)
		}
		m.logger.Error("error checking playback", "err", err)
		m.setStatus(MsgSpotifyDown)
		return outcomeContinue
	}

	if playback == nil || playback.Item == nil {
		m.setTrack(IdleTrack)
		m.setStatus(MsgIdle)
		return outcomeContinue
	}

	item := playback.Item
	m.setTrack(item.Display())

	m.mu.Lock()
	if item.ID == m.lastTrackID {
		m.mu.Unlock()
		return outcomeContinue
	}
	m.lastTrackID = item.ID
	m.mu.Unlock()

	if m.blocked.AnyBlocked(item.ArtistIDs()) {
		names := blockedNames(item, m.blocked)
		m.logger.Info("skipping blocked track", "track", item.Name, "artists", names)
		m.setStatus(msgSkipping + names)
		return m.skip(ctx)
	}

	m.logger.Debug("now playing", "track", item.Display())
	m.setStatus(msgNowPlaying + item.Display())
	return outcomeContinue
}

func (m *Monitor) skip(ctx context.Context) outcome {
	token, err := m.tokens.ValidAccessToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeContinue
		}
		m.logger.Error("no valid access token for skip", "err", err)
		return outcomeAuthFailed
	}

	if err := m.player.Next(ctx, token); err != nil {
		if ctx.Err() != nil {
			return outcomeContinue
		}
		// 403 here means Premium is required, which a new login does not fix.
		if services.StatusCode(err) == http.StatusUnauthorized {
			return m.rejected(err)
		}
		m.logger.Error("error skipping track", "err", err)
		m.setStatus(MsgSpotifyDown)
		return outcomeContinue
	}
	return outcomeSkipped
}

// blockedNames joins the names of the blocked artists credited on t.
func blockedNames(t *services.SpotifyTrack, blocked *BlockSet) string {
	var names []string
	for _, a := range t.Artists {
		if blocked.Contains(a.ID) {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

func (m *Monitor) setTrack(track string) {
	m.mu.Lock()
	m.track = track
	m.mu.Unlock()
}

// setStatus records msg and publishes it without blocking.
func (m *Monitor) setStatus(msg string) {
	m.mu.Lock()
	m.status = msg
	update := StatusUpdate{Message: msg, Track: m.track, Monitoring: m.monitoring, Time: time.Now()}
	m.mu.Unlock()

	select {
	case m.updates <- update:
	default:
	}
}
