package tracking

import (
	"context"
	"time"

	"github.com/goodtune/webtime/internal/storage"
)

const shutdownFlushTimeout = 5 * time.Second

// input is either an event or a command. Both share one queue so commands
// observe every event submitted before them.
type input struct {
	event Event
	cmd   *command
}

// command runs a function on the loop goroutine.
type command struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Status describes the tracker at a point in time.
type Status struct {
	State        State      `json:"state"`
	Domain       string     `json:"domain,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	WindowActive bool       `json:"windowActive"`
	UserIdle     bool       `json:"userIdle"`
	ObservedTab  int        `json:"observedTab"`
}

// Run is the tracker's single logical thread. It handles submitted events,
// periodic ticks and commands one at a time until ctx is cancelled, then
// performs a final flush and returns.
func (t *Tracker) Run(ctx context.Context) error {
	defer close(t.done)

	if created, err := storage.Init(ctx, t.store, t.Today()); err != nil {
		t.logger.Error().Err(err).Msg("Failed to initialize store")
	} else if created {
		t.logger.Info().Str("start_date", t.Today()).Msg("Initialized empty tracking data")
	}

	ticker := time.NewTicker(t.config.TickInterval)
	defer ticker.Stop()

	t.logger.Info().
		Dur("tick_interval", t.config.TickInterval).
		Dur("min_flush", t.config.MinFlush).
		Str("location", t.config.Location.String()).
		Msg("Activity tracker started")

	for {
		select {
		case <-ctx.Done():
			t.shutdown(ctx)
			return nil
		case in := <-t.inputs:
			t.dispatch(ctx, in)
		case <-ticker.C:
			t.Handle(ctx, TickEvent())
		}
	}
}

// shutdown drains queued events and flushes the live session regardless of
// the materiality threshold.
func (t *Tracker) shutdown(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), shutdownFlushTimeout)
	defer cancel()

drain:
	for {
		select {
		case in := <-t.inputs:
			t.dispatch(ctx, in)
		default:
			break drain
		}
	}

	t.Close(ctx)
	t.logger.Info().Msg("Activity tracker stopped")
}

func (t *Tracker) dispatch(ctx context.Context, in input) {
	if in.cmd != nil {
		in.cmd.fn(ctx)
		close(in.cmd.done)
		return
	}
	if t.observer != nil {
		t.observer.Observe(in.event)
	}
	t.Handle(ctx, in.event)
}

// Close flushes the live session, including a sub-second remainder, and
// leaves the tracker idle. It is called by Run on shutdown and may be
// called directly when the tracker is driven through Handle.
func (t *Tracker) Close(ctx context.Context) {
	t.flush(ctx, t.clock.Now(), true)
	t.stop()
}

// Submit queues an event for the run loop.
func (t *Tracker) Submit(ctx context.Context, ev Event) error {
	if t.stopped() {
		return ErrStopped
	}
	select {
	case t.inputs <- input{event: ev}:
		return nil
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed when Run returns.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// exec runs fn on the loop goroutine and waits for it to finish.
func (t *Tracker) exec(ctx context.Context, fn func(ctx context.Context)) error {
	if t.stopped() {
		return ErrStopped
	}
	cmd := &command{fn: fn, done: make(chan struct{})}
	select {
	case t.inputs <- input{cmd: cmd}:
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears all tracked data. It runs on the loop so that no flush can
// interleave with the replacement of the snapshot.
func (t *Tracker) Reset(ctx context.Context) error {
	var resetErr error
	if err := t.exec(ctx, func(ctx context.Context) {
		resetErr = t.reset(ctx)
	}); err != nil {
		return err
	}
	return resetErr
}

// Status reports the current state from the loop goroutine.
func (t *Tracker) Status(ctx context.Context) (Status, error) {
	var status Status
	err := t.exec(ctx, func(context.Context) {
		status = t.status()
	})
	return status, err
}

func (t *Tracker) status() Status {
	status := Status{
		State:        t.State(),
		Domain:       t.session.Domain,
		WindowActive: t.windowActive,
		UserIdle:     t.userIdle,
		ObservedTab:  t.observedTab,
	}
	if !t.session.StartedAt.IsZero() {
		startedAt := t.session.StartedAt
		status.StartedAt = &startedAt
	}
	return status
}
