// Package browser keeps an in-process model of the browser built from the
// lifecycle events the extension reports. The tracker queries it for tab URLs
// and the active tab of the focused window.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goodtune/webtime/internal/tracking"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// ErrTabNotFound is returned for tabs the registry has not seen.
var ErrTabNotFound = errors.New("browser: tab not found")

// DefaultTabCacheSize bounds the number of remembered tabs.
const DefaultTabCacheSize = 1024

// Registry is safe for concurrent use.
type Registry struct {
	tabs *lru.Cache[int, tracking.Tab]

	mu      sync.RWMutex
	active  map[int]int
	focused int

	logger zerolog.Logger
}

// NewRegistry creates a registry remembering up to tabCacheSize tabs.
func NewRegistry(tabCacheSize int, logger zerolog.Logger) (*Registry, error) {
	if tabCacheSize <= 0 {
		tabCacheSize = DefaultTabCacheSize
	}
	tabs, err := lru.New[int, tracking.Tab](tabCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create tab cache: %w", err)
	}
	return &Registry{
		tabs:    tabs,
		active:  make(map[int]int),
		focused: tracking.WindowNone,
		logger:  logger.With().Str("component", "browser-registry").Logger(),
	}, nil
}

// Observe updates the model from an event. The tracker calls it on its run
// loop just before handling the event, so the model and the tracker see
// events in the same order.
func (r *Registry) Observe(ev tracking.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case tracking.TabActivated:
		tab, _ := r.tabs.Peek(ev.TabID)
		tab.ID = ev.TabID
		if ev.WindowID >= 0 {
			tab.WindowID = ev.WindowID
		}
		if ev.URL != "" {
			tab.URL = ev.URL
		}
		r.tabs.Add(ev.TabID, tab)

		if ev.WindowID >= 0 {
			r.active[ev.WindowID] = ev.TabID
			if r.focused == tracking.WindowNone {
				r.focused = ev.WindowID
			}
		}

	case tracking.TabUpdated:
		if ev.URL == "" {
			return
		}
		tab, ok := r.tabs.Peek(ev.TabID)
		if !ok {
			tab = tracking.Tab{ID: ev.TabID, WindowID: tracking.WindowNone}
		}
		tab.URL = ev.URL
		r.tabs.Add(ev.TabID, tab)

	case tracking.TabRemoved:
		r.forget(ev.TabID)

	case tracking.WindowFocusChanged:
		r.focused = ev.WindowID
	}
}

// GetTab returns what is known about tabID.
func (r *Registry) GetTab(_ context.Context, tabID int) (tracking.Tab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tab, ok := r.tabs.Get(tabID)
	if !ok || tab.URL == "" {
		return tracking.Tab{}, fmt.Errorf("tab %d: %w", tabID, ErrTabNotFound)
	}
	return tab, nil
}

// QueryActiveTab returns the active tab of windowID. WindowCurrent means the
// focused window.
func (r *Registry) QueryActiveTab(_ context.Context, windowID int) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if windowID == tracking.WindowCurrent {
		windowID = r.focused
	}
	if windowID == tracking.WindowNone {
		return 0, false, nil
	}
	tabID, ok := r.active[windowID]
	return tabID, ok, nil
}

// Focused returns the focused window, or WindowNone.
func (r *Registry) Focused() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focused
}

// Forget drops a closed tab and any window that had it active.
func (r *Registry) Forget(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forget(tabID)
}

func (r *Registry) forget(tabID int) {
	r.tabs.Remove(tabID)
	for windowID, active := range r.active {
		if active == tabID {
			delete(r.active, windowID)
		}
	}
	r.logger.Debug().Int("tab_id", tabID).Msg("Forgot tab")
}
