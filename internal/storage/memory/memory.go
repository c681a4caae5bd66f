// Package memory provides an in-process storage.Store. It keeps the encoded
// blob rather than the live structure so callers never share maps with it.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/goodtune/webtime/internal/storage"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memory store: closed")

// Store is a storage.Store held in memory.
type Store struct {
	mu     sync.Mutex
	data   []byte
	closed bool

	// FailGet and FailSet force errors, for exercising failure paths.
	FailGet error
	FailSet error

	sets int
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Get returns a copy of the stored snapshot.
func (s *Store) Get(ctx context.Context) (*storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.FailGet != nil {
		return nil, s.FailGet
	}
	if s.data == nil {
		return nil, storage.ErrNotFound
	}
	return storage.Decode(s.data)
}

// Set replaces the stored snapshot.
func (s *Store) Set(ctx context.Context, snap *storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := storage.Encode(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.FailSet != nil {
		return s.FailSet
	}
	s.data = data
	s.sets++
	return nil
}

// Writes returns the number of successful Set calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
