package api

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/webtime/internal/tracking"
)

func intPtr(v int) *int { return &v }

func TestClient(t *testing.T) {
	env := setupTestServer(t)
	client := NewClient(env.server.URL + "/")
	ctx := context.Background()

	err := client.SendEvent(ctx, EventRequest{
		Type:     EventTabActivated,
		TabID:    intPtr(3),
		WindowID: intPtr(1),
		URL:      "https://news.example/",
	})
	if err != nil {
		t.Fatalf("send event: %v", err)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != tracking.StateTracking || status.Domain != "news.example" {
		t.Fatalf("unexpected status %+v", status)
	}

	env.clock.Advance(4 * time.Second)
	if err := client.SendEvent(ctx, EventRequest{Type: EventIdleStateChanged, State: "idle"}); err != nil {
		t.Fatalf("send idle: %v", err)
	}
	if _, err := client.Status(ctx); err != nil {
		t.Fatalf("status: %v", err)
	}

	snap, err := client.Data(ctx)
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if got := snap.Domains["news.example"]; got == nil || got.TotalTime != 4000 {
		t.Fatalf("expected 4000ms for news.example, got %+v", got)
	}

	if err := client.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap, err = client.Data(ctx)
	if err != nil {
		t.Fatalf("data after reset: %v", err)
	}
	if len(snap.Domains) != 0 {
		t.Fatalf("expected empty data after reset, got %+v", snap.Domains)
	}
}

func TestClientErrors(t *testing.T) {
	env := setupTestServer(t)
	client := NewClient(env.server.URL)

	err := client.SendEvent(context.Background(), EventRequest{Type: "bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown event type") {
		t.Fatalf("expected server message in error, got %v", err)
	}

	unreachable := NewClient("http://127.0.0.1:1")
	if _, err := unreachable.Data(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestEventRequestToEvent(t *testing.T) {
	ev, err := EventRequest{Type: EventWindowFocusChanged, WindowID: intPtr(-7)}.ToEvent()
	if err != nil {
		t.Fatalf("to event: %v", err)
	}
	if ev.Kind != tracking.WindowFocusChanged || ev.WindowID != tracking.WindowNone {
		t.Errorf("expected focus loss, got %+v", ev)
	}

	ev, err = EventRequest{Type: EventTabUpdated, TabID: intPtr(4), URL: "https://a.example/", Status: "complete"}.ToEvent()
	if err != nil {
		t.Fatalf("to event: %v", err)
	}
	if ev.Kind != tracking.TabUpdated || ev.TabID != 4 || ev.Status != tracking.StatusComplete {
		t.Errorf("unexpected event %+v", ev)
	}

	ev, err = EventRequest{Type: EventTabRemoved, TabID: intPtr(4)}.ToEvent()
	if err != nil {
		t.Fatalf("to event: %v", err)
	}
	if ev.Kind != tracking.TabRemoved || ev.TabID != 4 {
		t.Errorf("unexpected event %+v", ev)
	}
}
