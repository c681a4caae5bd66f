package tracking

import (
	"context"
	"errors"
	"testing"
	"time"
)

// run starts the loop with ticks far enough apart that only submitted
// events drive it. The returned function stops the loop and waits for it.
func (h *harness) run() func() {
	h.t.Helper()
	h.tracker.config.TickInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.tracker.Run(ctx)
	}()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				h.t.Errorf("run returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			h.t.Fatal("tracker did not stop")
		}
	}
	h.t.Cleanup(stop)
	return stop
}

func (h *harness) submit(ev Event) {
	h.t.Helper()
	if err := h.tracker.Submit(context.Background(), ev); err != nil {
		h.t.Fatalf("submit %s: %v", ev.Kind, err)
	}
}

func (h *harness) status() Status {
	h.t.Helper()
	status, err := h.tracker.Status(context.Background())
	if err != nil {
		h.t.Fatalf("status: %v", err)
	}
	return status
}

func TestRunInitializesStore(t *testing.T) {
	h := newHarness(t)
	h.run()

	// Status is answered by the loop, so Init has already happened
	h.status()

	if writes := h.store.Writes(); writes != 1 {
		t.Fatalf("expected initial snapshot write, got %d writes", writes)
	}
	if got := h.snapshot().StartDate; got != "2024-01-01" {
		t.Fatalf("expected start date 2024-01-01, got %s", got)
	}
}

func TestRunKeepsExistingData(t *testing.T) {
	h := newHarness(t)
	h.browser.open(10, 1, "https://example.com/")
	h.handle(TabActivatedEvent(10, 1))
	h.advance(2 * time.Second)
	h.handle(TickEvent())
	h.tracker.Close(context.Background())

	writes := h.store.Writes()
	h.run()
	h.status()

	if got := h.store.Writes(); got != writes {
		t.Fatalf("existing snapshot was rewritten: %d -> %d writes", writes, got)
	}
	if got := h.total("example.com"); got != 2000 {
		t.Fatalf("expected 2000ms preserved, got %d", got)
	}
}

func TestStatusObservesSubmittedEvents(t *testing.T) {
	h := newHarness(t)
	h.browser.open(10, 1, "https://www.example.com/")
	h.run()

	h.submit(TabActivatedEvent(10, 1))
	status := h.status()

	if status.State != StateTracking {
		t.Fatalf("expected TRACKING, got %s", status.State)
	}
	if status.Domain != "example.com" {
		t.Fatalf("expected example.com, got %s", status.Domain)
	}
	if status.ObservedTab != 10 {
		t.Fatalf("expected observed tab 10, got %d", status.ObservedTab)
	}
	if !status.WindowActive || status.UserIdle {
		t.Fatalf("unexpected flags: %+v", status)
	}

	h.submit(IdleEvent(IdleLocked))
	status = h.status()
	if status.State != StateIdle || !status.UserIdle {
		t.Fatalf("expected idle after lock, got %+v", status)
	}
}

func TestShutdownFlushesRemainder(t *testing.T) {
	h := newHarness(t)
	h.browser.open(10, 1, "https://example.com/")
	stop := h.run()

	h.submit(TabActivatedEvent(10, 1))
	h.status()
	h.advance(2*time.Second + 300*time.Millisecond)
	stop()

	if got := h.total("example.com"); got != 2300 {
		t.Fatalf("expected 2300ms flushed on shutdown, got %d", got)
	}
}

func TestShutdownDrainsQueuedEvents(t *testing.T) {
	h := newHarness(t)
	h.browser.open(10, 1, "https://a.example/")
	h.browser.open(11, 1, "https://b.example/")
	stop := h.run()

	h.submit(TabActivatedEvent(10, 1))
	h.status()
	h.advance(3 * time.Second)
	h.submit(TabActivatedEvent(11, 1))
	stop()

	if got := h.total("a.example"); got != 3000 {
		t.Fatalf("expected 3000ms for a.example, got %d", got)
	}
}

func TestResetThroughLoop(t *testing.T) {
	h := newHarness(t)
	h.browser.open(10, 1, "https://example.com/")
	h.run()

	h.submit(TabActivatedEvent(10, 1))
	h.advance(5 * time.Second)
	h.submit(TickEvent())
	h.status()
	if got := h.total("example.com"); got != 5000 {
		t.Fatalf("expected 5000ms before reset, got %d", got)
	}

	h.advance(500 * time.Millisecond)
	if err := h.tracker.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if snap := h.snapshot(); len(snap.Domains) != 0 {
		t.Fatalf("expected empty snapshot after reset, got %+v", snap.Domains)
	}

	// Only time after the reset is attributed
	h.advance(2 * time.Second)
	h.submit(TickEvent())
	h.status()
	if got := h.total("example.com"); got != 2000 {
		t.Fatalf("expected 2000ms after reset, got %d", got)
	}
}

func TestResetStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.run()
	h.status()

	h.store.FailSet = errors.New("disk full")
	if err := h.tracker.Reset(context.Background()); err == nil {
		t.Fatal("expected reset error")
	}
	h.store.FailSet = nil
}

func TestSubmitAfterStop(t *testing.T) {
	h := newHarness(t)
	stop := h.run()
	stop()

	<-h.tracker.Done()

	if err := h.tracker.Submit(context.Background(), TickEvent()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped from Submit, got %v", err)
	}
	if err := h.tracker.Reset(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped from Reset, got %v", err)
	}
	if _, err := h.tracker.Status(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped from Status, got %v", err)
	}
}

func TestSubmitHonorsContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the queue; without a running loop nothing drains it
	for i := 0; i < cap(h.tracker.inputs); i++ {
		if err := h.tracker.Submit(context.Background(), TickEvent()); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if err := h.tracker.Submit(ctx, TickEvent()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// recordingObserver notes the order in which it sees events and what the
// tracker had observed at that moment.
type recordingObserver struct {
	tracker  *Tracker
	kinds    []EventKind
	observed []int
}

func (o *recordingObserver) Observe(ev Event) {
	o.kinds = append(o.kinds, ev.Kind)
	o.observed = append(o.observed, o.tracker.observedTab)
}

func TestObserverSeesEventsBeforeHandling(t *testing.T) {
	h := newHarness(t)
	h.browser.open(10, 1, "https://example.com/")
	obs := &recordingObserver{tracker: h.tracker}
	h.tracker.SetObserver(obs)
	stop := h.run()

	h.submit(TabActivatedEvent(10, 1))
	h.submit(TabRemovedEvent(10))
	h.status()
	stop()

	want := []EventKind{TabActivated, TabRemoved}
	if len(obs.kinds) != len(want) || obs.kinds[0] != want[0] || obs.kinds[1] != want[1] {
		t.Fatalf("observed %v, want %v", obs.kinds, want)
	}
	if obs.observed[0] != NoTab || obs.observed[1] != 10 {
		t.Fatalf("observer must run before each event is handled, saw tabs %v", obs.observed)
	}
}
