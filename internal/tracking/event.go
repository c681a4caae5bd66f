package tracking

import (
	"fmt"
	"strings"
)

// EventKind identifies a browser lifecycle signal or timer tick.
type EventKind int

const (
	TabActivated EventKind = iota
	TabUpdated
	WindowFocusChanged
	IdleStateChanged
	Tick
	// TabRemoved only updates the browser model; the tracker ignores it.
	TabRemoved
)

var eventKindNames = map[EventKind]string{
	TabActivated:       "tab_activated",
	TabUpdated:         "tab_updated",
	WindowFocusChanged: "window_focus_changed",
	IdleStateChanged:   "idle_state_changed",
	Tick:               "tick",
	TabRemoved:         "tab_removed",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// IdleState mirrors the browser's idle detection states.
type IdleState string

const (
	IdleActive IdleState = "active"
	IdleIdle   IdleState = "idle"
	IdleLocked IdleState = "locked"
)

// ParseIdleState validates an idle state string.
func ParseIdleState(s string) (IdleState, error) {
	switch state := IdleState(strings.ToLower(s)); state {
	case IdleActive, IdleIdle, IdleLocked:
		return state, nil
	default:
		return "", fmt.Errorf("invalid idle state: %q (must be active, idle, or locked)", s)
	}
}

const (
	// WindowNone signals that no browser window has focus.
	WindowNone = -1
	// WindowCurrent refers to whichever window currently has focus.
	WindowCurrent = -2
	// NoTab marks the absence of an observed tab.
	NoTab = -1
)

// StatusComplete is the tab status reported once a navigation has loaded.
const StatusComplete = "complete"

// Event is a single input to the tracker's transition function. Only the
// fields relevant to Kind are read.
type Event struct {
	Kind      EventKind
	TabID     int
	WindowID  int
	URL       string
	Status    string
	IdleState IdleState
}

// TabActivatedEvent reports that tabID became the active tab of windowID.
func TabActivatedEvent(tabID, windowID int) Event {
	return Event{Kind: TabActivated, TabID: tabID, WindowID: windowID}
}

// TabUpdatedEvent reports a navigation or load state change of tabID.
func TabUpdatedEvent(tabID int, url, status string) Event {
	return Event{Kind: TabUpdated, TabID: tabID, URL: url, Status: status}
}

// WindowFocusEvent reports a focus change; WindowNone means focus left the browser.
func WindowFocusEvent(windowID int) Event {
	return Event{Kind: WindowFocusChanged, WindowID: windowID}
}

// IdleEvent reports an idle state change.
func IdleEvent(state IdleState) Event {
	return Event{Kind: IdleStateChanged, IdleState: state}
}

// TabRemovedEvent reports that tabID was closed.
func TabRemovedEvent(tabID int) Event {
	return Event{Kind: TabRemoved, TabID: tabID}
}

// TickEvent is the periodic timer signal.
func TickEvent() Event {
	return Event{Kind: Tick}
}
