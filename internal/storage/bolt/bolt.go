package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/webtime/internal/storage"
	"go.etcd.io/bbolt"
)

const bucketData = "webtime"

// Store implements storage.Store using bbolt. The snapshot lives under a
// single key so every Set replaces it in one transaction.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketData)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketData, err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored snapshot.
func (s *Store) Get(ctx context.Context) (*storage.Snapshot, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketData))
		if b == nil {
			return storage.ErrNotFound
		}
		value := b.Get([]byte(storage.Key))
		if value == nil {
			return storage.ErrNotFound
		}
		// value is only valid for the life of the transaction
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return storage.Decode(data)
}

// Set replaces the stored snapshot.
func (s *Store) Set(ctx context.Context, snap *storage.Snapshot) error {
	data, err := storage.Encode(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketData))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketData)
		}
		return b.Put([]byte(storage.Key), data)
	})
}
