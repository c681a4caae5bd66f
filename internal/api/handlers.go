package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goodtune/webtime/internal/report"
	"github.com/goodtune/webtime/internal/storage"
	"github.com/goodtune/webtime/internal/tracking"
	"github.com/gorilla/mux"
)

// Event types accepted by POST /api/v1/events.
const (
	EventTabActivated       = "tabActivated"
	EventTabUpdated         = "tabUpdated"
	EventTabRemoved         = "tabRemoved"
	EventWindowFocusChanged = "windowFocusChanged"
	EventIdleStateChanged   = "idleStateChanged"
)

// EventRequest is a browser lifecycle event as reported by the extension.
type EventRequest struct {
	Type     string `json:"type"`
	TabID    *int   `json:"tabId,omitempty"`
	WindowID *int   `json:"windowId,omitempty"`
	URL      string `json:"url,omitempty"`
	Status   string `json:"status,omitempty"`
	State    string `json:"state,omitempty"`
}

// ToEvent validates the request and converts it to a tracker event.
func (req EventRequest) ToEvent() (tracking.Event, error) {
	switch req.Type {
	case EventTabActivated:
		if req.TabID == nil || req.WindowID == nil {
			return tracking.Event{}, errors.New("tabId and windowId are required")
		}
		ev := tracking.TabActivatedEvent(*req.TabID, *req.WindowID)
		ev.URL = req.URL
		return ev, nil

	case EventTabUpdated:
		if req.TabID == nil {
			return tracking.Event{}, errors.New("tabId is required")
		}
		return tracking.TabUpdatedEvent(*req.TabID, req.URL, req.Status), nil

	case EventTabRemoved:
		if req.TabID == nil {
			return tracking.Event{}, errors.New("tabId is required")
		}
		return tracking.TabRemovedEvent(*req.TabID), nil

	case EventWindowFocusChanged:
		if req.WindowID == nil {
			return tracking.Event{}, errors.New("windowId is required")
		}
		windowID := *req.WindowID
		if windowID < 0 {
			windowID = tracking.WindowNone
		}
		return tracking.WindowFocusEvent(windowID), nil

	case EventIdleStateChanged:
		state, err := tracking.ParseIdleState(req.State)
		if err != nil {
			return tracking.Event{}, err
		}
		return tracking.IdleEvent(state), nil

	case "":
		return tracking.Event{}, errors.New("type is required")
	default:
		return tracking.Event{}, fmt.Errorf("unknown event type: %q", req.Type)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// handleEvent ingests one browser event.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	ctx := r.Context()

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ev, err := req.ToEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.tracker.Submit(ctx, ev); err != nil {
		if errors.Is(err, tracking.ErrStopped) {
			writeError(w, http.StatusServiceUnavailable, "Tracker is not running")
			return
		}
		s.logger.Error().Err(err).Str("type", req.Type).Msg("Failed to submit event")
		writeError(w, http.StatusInternalServerError, "Failed to submit event")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": true})
}

// handleData returns the whole aggregate snapshot.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleStatus returns the tracker's current session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.tracker.Status(r.Context())
	if err != nil {
		if errors.Is(err, tracking.ErrStopped) {
			writeError(w, http.StatusServiceUnavailable, "Tracker is not running")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to get tracker status")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSettings returns the intervals the extension should use.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"idleDetectionInterval": int(s.config.IdleDetectionInterval.Seconds()),
		"tickInterval":          s.config.TickInterval.Milliseconds(),
	})
}

// handleExport returns the snapshot as a CSV attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ExportFilename(s.tracker.Today())))
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w, snap); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write CSV export")
	}
}

// handleReport returns one of the summary views.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	view := mux.Vars(r)["view"]
	switch view {
	case "today", "daily", "alltime":
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown report view: %s", view))
		return
	}

	days := report.DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 366 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	today := s.tracker.Today()

	switch view {
	case "today":
		writeJSON(w, http.StatusOK, report.Today(snap, today))
	case "daily":
		summary, err := report.Daily(snap, today, days)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to build daily report")
			writeError(w, http.StatusInternalServerError, "Failed to build report")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case "alltime":
		writeJSON(w, http.StatusOK, report.AllTime(snap))
	}
}

// handleReset discards all tracked data.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.tracker.Reset(r.Context()); err != nil {
		if errors.Is(err, tracking.ErrStopped) {
			writeError(w, http.StatusServiceUnavailable, "Tracker is not running")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to reset tracking data")
		writeError(w, http.StatusInternalServerError, "Failed to reset tracking data")
		return
	}

	s.logger.Warn().Msg("Tracking data reset via API")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "reset",
		"startDate": s.tracker.Today(),
	})
}

func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) (*storage.Snapshot, bool) {
	snap, err := storage.Load(r.Context(), s.store, s.tracker.Today())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load tracking data")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve tracking data")
		return nil, false
	}
	return snap, true
}
