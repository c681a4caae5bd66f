package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Flush results
const (
	FlushRecorded       = "recorded"
	FlushBelowThreshold = "below_threshold"
	FlushNegative       = "negative"
	FlushStoreError     = "store_error"
)

var (
	// Tracker metrics
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webtime_events_total",
			Help: "Total browser events and ticks handled by the tracker",
		},
		[]string{"kind"},
	)

	FlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webtime_flushes_total",
			Help: "Total session flushes by result",
		},
		[]string{"result"},
	)

	// Unlabelled: per-domain totals live in the store.
	TrackedMilliseconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webtime_tracked_milliseconds_total",
			Help: "Milliseconds attributed to all domains",
		},
	)

	TrackingActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webtime_tracking_active",
			Help: "Whether a tracking session is currently live (1) or idle (0)",
		},
	)

	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webtime_store_errors_total",
			Help: "Aggregate store read and write failures",
		},
		[]string{"op"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webtime_api_requests_total",
			Help: "Total API requests processed",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsTotal,
		FlushesTotal,
		TrackedMilliseconds,
		TrackingActive,
		StoreErrors,
		APIRequestsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
