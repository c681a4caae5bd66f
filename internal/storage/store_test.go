package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goodtune/webtime/internal/storage"
	"github.com/goodtune/webtime/internal/storage/memory"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	store := memory.New()

	snap, err := storage.Load(context.Background(), store, "2024-01-05")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.StartDate != "2024-01-05" {
		t.Fatalf("expected start date 2024-01-05, got %s", snap.StartDate)
	}
	if len(snap.Domains) != 0 {
		t.Fatalf("expected empty domains, got %d", len(snap.Domains))
	}
	if store.Writes() != 0 {
		t.Fatal("load must not write")
	}
}

func TestLoadPropagatesErrors(t *testing.T) {
	store := memory.New()
	store.FailGet = errors.New("disk on fire")

	if _, err := storage.Load(context.Background(), store, "2024-01-05"); err == nil {
		t.Fatal("expected error")
	}
}

func TestResetReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	snap := storage.NewSnapshot("2023-12-01")
	snap.Record("example.com", "").Add("2023-12-01", 42000)
	if err := store.Set(ctx, snap); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := storage.Reset(ctx, store, "2024-01-05"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Domains) != 0 || got.StartDate != "2024-01-05" {
		t.Fatalf("unexpected snapshot after reset: %+v", got)
	}
}
