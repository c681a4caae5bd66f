package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/webtime/internal/api"
	"github.com/goodtune/webtime/internal/config"
	"github.com/goodtune/webtime/internal/storage"
	"github.com/spf13/cobra"
)

var serverURL string

// dataSource is where the CLI reads and resets tracked data: either the
// store directly, or a running server's API.
type dataSource interface {
	Data(ctx context.Context) (*storage.Snapshot, error)
	Reset(ctx context.Context) error
	Today() string
	Close() error
}

// addServerFlag registers --server on commands that read tracked data.
func addServerFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serverURL, "server", "", "Base URL of a running webtime server (e.g. http://127.0.0.1:8765); reads the store directly when empty")
}

func openDataSource() (dataSource, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	location, err := cfg.Tracking.Location()
	if err != nil {
		return nil, err
	}

	if serverURL != "" {
		return &remoteSource{client: api.NewClient(serverURL), location: location}, nil
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return &storeSource{store: store, location: location}, nil
}

type storeSource struct {
	store    storage.Store
	location *time.Location
}

func (s *storeSource) Today() string {
	return time.Now().In(s.location).Format(storage.DateLayout)
}

func (s *storeSource) Data(ctx context.Context) (*storage.Snapshot, error) {
	return storage.Load(ctx, s.store, s.Today())
}

func (s *storeSource) Reset(ctx context.Context) error {
	return storage.Reset(ctx, s.store, s.Today())
}

func (s *storeSource) Close() error {
	return s.store.Close()
}

type remoteSource struct {
	client   *api.Client
	location *time.Location
}

func (s *remoteSource) Today() string {
	return time.Now().In(s.location).Format(storage.DateLayout)
}

func (s *remoteSource) Data(ctx context.Context) (*storage.Snapshot, error) {
	return s.client.Data(ctx)
}

func (s *remoteSource) Reset(ctx context.Context) error {
	return s.client.Reset(ctx)
}

func (s *remoteSource) Close() error {
	return nil
}
