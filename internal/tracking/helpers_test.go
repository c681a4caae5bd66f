package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goodtune/webtime/internal/storage"
	"github.com/goodtune/webtime/internal/storage/memory"
	"github.com/rs/zerolog"
)

var errNoTab = errors.New("no such tab")

// fakeBrowser is a scripted Browser.
type fakeBrowser struct {
	tabs     map[int]Tab
	active   map[int]int
	focused  int
	queryErr error
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		tabs:    make(map[int]Tab),
		active:  make(map[int]int),
		focused: 1,
	}
}

func (b *fakeBrowser) open(tabID, windowID int, url string) {
	b.tabs[tabID] = Tab{ID: tabID, WindowID: windowID, URL: url}
	b.active[windowID] = tabID
}

func (b *fakeBrowser) GetTab(_ context.Context, tabID int) (Tab, error) {
	tab, ok := b.tabs[tabID]
	if !ok {
		return Tab{}, errNoTab
	}
	return tab, nil
}

func (b *fakeBrowser) QueryActiveTab(_ context.Context, windowID int) (int, bool, error) {
	if b.queryErr != nil {
		return 0, false, b.queryErr
	}
	if windowID == WindowCurrent {
		windowID = b.focused
	}
	tabID, ok := b.active[windowID]
	return tabID, ok, nil
}

// staticFavicons resolves every domain to a fixed prefix, or fails.
type staticFavicons struct {
	prefix string
	err    error
	calls  int
}

func (f *staticFavicons) Resolve(_ context.Context, domain string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.prefix + domain, nil
}

type harness struct {
	t       *testing.T
	tracker *Tracker
	store   *memory.Store
	browser *fakeBrowser
	clock   *TestClock
	icons   *staticFavicons
}

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		store:   memory.New(),
		browser: newFakeBrowser(),
		clock:   NewTestClock(testStart),
		icons:   &staticFavicons{prefix: "https://icons.test/"},
	}
	h.tracker = NewTracker(h.store, h.browser, h.icons, h.clock, Config{
		TickInterval: time.Second,
		MinFlush:     time.Second,
		Location:     time.UTC,
	}, zerolog.Nop())
	return h
}

func (h *harness) handle(ev Event) {
	h.t.Helper()
	h.tracker.Handle(context.Background(), ev)
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
}

func (h *harness) snapshot() *storage.Snapshot {
	h.t.Helper()
	snap, err := storage.Load(context.Background(), h.store, "2024-01-01")
	if err != nil {
		h.t.Fatalf("load snapshot: %v", err)
	}
	return snap
}

func (h *harness) total(domain string) int64 {
	h.t.Helper()
	rec, ok := h.snapshot().Domains[domain]
	if !ok {
		return 0
	}
	return rec.TotalTime
}

func (h *harness) assertConsistent() {
	h.t.Helper()
	for domain, rec := range h.snapshot().Domains {
		if !rec.Consistent() {
			h.t.Fatalf("%s: total %d != daily sum %d", domain, rec.TotalTime, rec.DailySum())
		}
	}
}

func (h *harness) assertState(want State) {
	h.t.Helper()
	if got := h.tracker.State(); got != want {
		h.t.Fatalf("expected state %s, got %s", want, got)
	}
}
