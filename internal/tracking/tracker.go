package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/webtime/internal/metrics"
	"github.com/goodtune/webtime/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultTickInterval bounds the time lost to an ungraceful shutdown.
	DefaultTickInterval = 1 * time.Second

	// DefaultMinFlush is the materiality threshold below which a flush is skipped.
	DefaultMinFlush = 1 * time.Second

	// DefaultEventBuffer is the capacity of the submitted event queue.
	DefaultEventBuffer = 64
)

// Tab is the browser's view of a single tab.
type Tab struct {
	ID       int
	WindowID int
	URL      string
}

// Browser answers the tracker's questions about browser state.
type Browser interface {
	GetTab(ctx context.Context, tabID int) (Tab, error)
	QueryActiveTab(ctx context.Context, windowID int) (tabID int, ok bool, err error)
}

// Observer sees every submitted event on the run loop just before the
// tracker handles it, in submission order.
type Observer interface {
	Observe(ev Event)
}

// Session is the interval currently being measured. StartedAt is zero
// between a flush and the re-opening of the session.
type Session struct {
	Domain    string
	URL       string
	TabID     int
	StartedAt time.Time
	Active    bool
}

// State names the tracker's state machine states.
type State string

const (
	StateIdle     State = "IDLE"
	StateTracking State = "TRACKING"
)

// Config holds tracker configuration
type Config struct {
	TickInterval time.Duration
	MinFlush     time.Duration
	Location     *time.Location
	EventBuffer  int
}

// Tracker attributes browsing time to domains. Handle is its transition
// function; it is not safe for concurrent use, so in production all input
// goes through Run, which serializes events, ticks and commands.
type Tracker struct {
	store    storage.Store
	browser  Browser
	observer Observer
	favicons FaviconResolver
	clock    Clock
	config   Config
	logger   zerolog.Logger

	session       Session
	observedTab   int
	focusedWindow int
	windowActive  bool
	userIdle      bool

	inputs chan input
	done   chan struct{}
}

// NewTracker creates a new activity tracker
func NewTracker(store storage.Store, browser Browser, favicons FaviconResolver, clock Clock, config Config, logger zerolog.Logger) *Tracker {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.MinFlush <= 0 {
		config.MinFlush = DefaultMinFlush
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	if clock == nil {
		clock = RealClock{}
	}

	return &Tracker{
		store:         store,
		browser:       browser,
		favicons:      favicons,
		clock:         clock,
		config:        config,
		logger:        logger.With().Str("component", "activity-tracker").Logger(),
		observedTab:   NoTab,
		focusedWindow: WindowCurrent,
		windowActive:  true,
		inputs:        make(chan input, config.EventBuffer),
		done:          make(chan struct{}),
	}
}

// SetObserver registers o to see submitted events before they are handled.
// It must be called before Run.
func (t *Tracker) SetObserver(o Observer) {
	t.observer = o
}

// State reports whether a session is live.
func (t *Tracker) State() State {
	if t.session.Active {
		return StateTracking
	}
	return StateIdle
}

// Session returns a copy of the current session.
func (t *Tracker) Session() Session {
	return t.session
}

// Today returns the current local calendar date in ISO format.
func (t *Tracker) Today() string {
	return t.clock.Now().In(t.config.Location).Format(storage.DateLayout)
}

// Handle applies a single event. Every transition flushes the outgoing
// session before the incoming one starts.
func (t *Tracker) Handle(ctx context.Context, ev Event) {
	metrics.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case TabActivated:
		t.observedTab = ev.TabID
		if ev.WindowID >= 0 && t.windowActive {
			t.focusedWindow = ev.WindowID
		}
		t.activateTab(ctx, ev.TabID, "")

	case TabUpdated:
		if ev.Status != StatusComplete || ev.TabID != t.observedTab {
			return
		}
		t.activateTab(ctx, ev.TabID, ev.URL)

	case WindowFocusChanged:
		if ev.WindowID == WindowNone {
			t.flush(ctx, t.clock.Now(), false)
			t.stop()
			t.windowActive = false
			t.logger.Debug().Msg("Browser lost focus")
			return
		}
		t.windowActive = true
		t.focusedWindow = ev.WindowID
		t.resolveActiveTab(ctx)

	case IdleStateChanged:
		switch ev.IdleState {
		case IdleIdle, IdleLocked:
			t.userIdle = true
			t.flush(ctx, t.clock.Now(), false)
			t.stop()
			t.logger.Debug().Str("state", string(ev.IdleState)).Msg("User went idle")
		case IdleActive:
			t.userIdle = false
			if !t.windowActive {
				return
			}
			t.resolveActiveTab(ctx)
		default:
			t.logger.Warn().Str("state", string(ev.IdleState)).Msg("Ignoring unknown idle state")
		}

	case Tick:
		if !t.session.Active || !t.windowActive {
			return
		}
		now := t.clock.Now()
		if next := t.flush(ctx, now, false); !next.IsZero() {
			t.session.StartedAt = next
		} else if t.session.StartedAt.IsZero() {
			t.session.StartedAt = now
		}

	case TabRemoved:
		// A closed active tab is always followed by an activation or a
		// focus change, which flushes the session.

	default:
		t.logger.Warn().Int("kind", int(ev.Kind)).Msg("Ignoring unknown event")
	}
}

// resolveActiveTab asks the browser for the active tab of the focused
// window and transitions to it.
func (t *Tracker) resolveActiveTab(ctx context.Context) {
	tabID, ok, err := t.browser.QueryActiveTab(ctx, t.focusedWindow)
	if err != nil {
		t.logger.Error().Err(err).Int("window_id", t.focusedWindow).Msg("Failed to query active tab")
	}
	if err != nil || !ok {
		t.flush(ctx, t.clock.Now(), false)
		t.stop()
		return
	}
	t.observedTab = tabID
	t.activateTab(ctx, tabID, "")
}

// activateTab flushes the current session and starts measuring tabID, or
// goes idle when the tab has nothing trackable. An empty url is resolved
// through the browser.
func (t *Tracker) activateTab(ctx context.Context, tabID int, url string) {
	now := t.clock.Now()
	boundary := t.flush(ctx, now, false)
	if boundary.IsZero() {
		boundary = now
	}

	if !t.windowActive {
		t.stop()
		return
	}

	if url == "" {
		tab, err := t.browser.GetTab(ctx, tabID)
		if err != nil {
			t.logger.Debug().Err(err).Int("tab_id", tabID).Msg("Failed to resolve tab")
			t.stop()
			return
		}
		url = tab.URL
	}

	domain, err := NormalizeDomain(url)
	if err != nil {
		t.logger.Debug().Int("tab_id", tabID).Msg("Tab has no trackable activity")
		t.stop()
		return
	}

	t.start(domain, url, tabID, boundary)
}

// start opens a session for domain beginning at from, the instant the
// previous session was accounted up to. A session that is still open on
// the same domain keeps its start so below-threshold time is not dropped.
func (t *Tracker) start(domain, url string, tabID int, from time.Time) {
	continuing := t.session.Active && t.session.Domain == domain && !t.session.StartedAt.IsZero()

	startedAt := from
	if continuing {
		startedAt = t.session.StartedAt
	}

	t.session = Session{
		Domain:    domain,
		URL:       url,
		TabID:     tabID,
		StartedAt: startedAt,
		Active:    true,
	}
	metrics.TrackingActive.Set(1)

	if !continuing {
		t.logger.Debug().
			Str("domain", domain).
			Int("tab_id", tabID).
			Msg("Started tracking session")
	}
}

// stop transitions to IDLE.
func (t *Tracker) stop() {
	if t.session.Active {
		t.logger.Debug().Str("domain", t.session.Domain).Msg("Stopped tracking session")
	}
	t.session = Session{TabID: NoTab}
	metrics.TrackingActive.Set(0)
}

// flush commits the time of the current session up to now to the store and
// clears its start. Below the materiality threshold it does nothing unless
// force is set. Failures drop the interval rather than retry it.
//
// It returns the instant the session has been accounted up to, which is the
// start plus the whole milliseconds consumed, or the zero time when nothing
// was consumed. A session re-opened from that instant loses neither the
// sub-millisecond remainder nor the time spent writing to the store.
func (t *Tracker) flush(ctx context.Context, now time.Time, force bool) time.Time {
	if !t.session.Active || t.session.StartedAt.IsZero() {
		return time.Time{}
	}

	elapsed := now.Sub(t.session.StartedAt)

	if elapsed < 0 {
		metrics.FlushesTotal.WithLabelValues(metrics.FlushNegative).Inc()
		t.logger.Warn().
			Str("domain", t.session.Domain).
			Dur("elapsed", elapsed).
			Msg("Negative elapsed time, discarding interval")
		t.session.StartedAt = time.Time{}
		return time.Time{}
	}

	if elapsed < t.config.MinFlush && !force {
		metrics.FlushesTotal.WithLabelValues(metrics.FlushBelowThreshold).Inc()
		return time.Time{}
	}

	delta := elapsed.Milliseconds()
	domain := t.session.Domain
	accountedTo := t.session.StartedAt.Add(time.Duration(delta) * time.Millisecond)
	t.session.StartedAt = time.Time{}

	if delta <= 0 {
		return accountedTo
	}

	if err := t.record(ctx, domain, delta, now); err != nil {
		metrics.FlushesTotal.WithLabelValues(metrics.FlushStoreError).Inc()
		t.logger.Error().
			Err(err).
			Str("domain", domain).
			Int64("delta_ms", delta).
			Msg("Failed to flush session, interval dropped")
		return accountedTo
	}

	metrics.FlushesTotal.WithLabelValues(metrics.FlushRecorded).Inc()
	metrics.TrackedMilliseconds.Add(float64(delta))

	t.logger.Debug().
		Str("domain", domain).
		Int64("delta_ms", delta).
		Msg("Flushed session")

	return accountedTo
}

// record adds delta milliseconds to domain on the date of now with a
// single read-modify-write of the whole snapshot.
func (t *Tracker) record(ctx context.Context, domain string, delta int64, now time.Time) error {
	today := now.In(t.config.Location).Format(storage.DateLayout)

	snap, err := storage.Load(ctx, t.store, today)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get").Inc()
		return err
	}

	rec, ok := snap.Domains[domain]
	if !ok {
		rec = snap.Record(domain, t.resolveFavicon(ctx, domain))
	}
	rec.Add(today, delta)

	if err := t.store.Set(ctx, snap); err != nil {
		metrics.StoreErrors.WithLabelValues("set").Inc()
		return err
	}
	return nil
}

func (t *Tracker) resolveFavicon(ctx context.Context, domain string) string {
	if t.favicons == nil {
		return ""
	}
	favicon, err := t.favicons.Resolve(ctx, domain)
	if err != nil {
		t.logger.Debug().Err(err).Str("domain", domain).Msg("Favicon resolution failed")
		return ""
	}
	return favicon
}

// Reset replaces all tracked data with an empty snapshot. A live session
// restarts now so that time from before the reset is not carried over.
func (t *Tracker) reset(ctx context.Context) error {
	if err := storage.Reset(ctx, t.store, t.Today()); err != nil {
		metrics.StoreErrors.WithLabelValues("set").Inc()
		return err
	}
	if t.session.Active {
		t.session.StartedAt = t.clock.Now()
	}
	t.logger.Info().Msg("Tracking data reset")
	return nil
}

// ErrStopped is returned when the run loop is no longer accepting input.
var ErrStopped = errors.New("tracking: tracker stopped")
