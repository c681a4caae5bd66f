package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the aggregate blob has never been written.
var ErrNotFound = errors.New("storage: record not found")

// Key is the single key under which the aggregate snapshot is stored.
const Key = "websiteTimeData"

// Store is the aggregate store. It has single-key blob semantics: Get returns
// the whole snapshot and Set replaces it in one write.
type Store interface {
	Get(ctx context.Context) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Load returns the stored snapshot, or a fresh one starting on today when
// nothing has been written yet.
func Load(ctx context.Context, store Store, today string) (*Snapshot, error) {
	snap, err := store.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return NewSnapshot(today), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.Domains == nil {
		snap.Domains = make(map[string]*DomainRecord)
	}
	if snap.StartDate == "" {
		snap.StartDate = today
	}
	return snap, nil
}

// Init writes an empty snapshot if the store holds none. It returns true
// when a new snapshot was written.
func Init(ctx context.Context, store Store, today string) (bool, error) {
	_, err := store.Get(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("read snapshot: %w", err)
	}
	if err := store.Set(ctx, NewSnapshot(today)); err != nil {
		return false, fmt.Errorf("write initial snapshot: %w", err)
	}
	return true, nil
}

// Reset replaces all tracked data with an empty snapshot starting on today.
func Reset(ctx context.Context, store Store, today string) error {
	if err := store.Set(ctx, NewSnapshot(today)); err != nil {
		return fmt.Errorf("reset snapshot: %w", err)
	}
	return nil
}
