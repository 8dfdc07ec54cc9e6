package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/dimitrmo/cygaz/internal/cache"
	"github.com/dimitrmo/cygaz/internal/metrics"
	"github.com/dimitrmo/cygaz/internal/petrol"
	"github.com/dimitrmo/cygaz/internal/refresher"
	"github.com/dimitrmo/cygaz/internal/version"
)

const coldCacheRetryAfter = 5 * time.Second

// Options configure the HTTP listener.
type Options struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Server exposes the cached prices over HTTP. Reads are served straight
// from the snapshot store; the only way a request reaches the upstream is
// by triggering a detached refresh.
type Server struct {
	opts        Options
	store       *cache.Store
	coordinator *refresher.Coordinator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// New constructs the HTTP server.
func New(opts Options, store *cache.Store, coordinator *refresher.Coordinator, m *metrics.Metrics, logger zerolog.Logger) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		opts:        opts,
		store:       store,
		coordinator: coordinator,
		metrics:     m,
		logger:      logger.With().Str("component", "server").Logger(),
	}
}

// Handler builds the route table with access logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /prices/{petroleumType}", s.handleGetPrices)
	mux.HandleFunc("PATCH /prices/{petroleumType}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("elapsed", duration).
			Msg("request handled")
	})

	return hlog.NewHandler(s.logger)(access(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return ctx.Err()
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(version.Version))
}

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	t, ok := s.petroleumType(w, r)
	if !ok {
		return
	}

	list, ok := s.store.Get(t)
	if !ok {
		// Cold cache: kick a refresh so a retrying client converges
		// before the next scheduled tick.
		s.coordinator.RefreshAsync(t)
		w.Header().Set("Retry-After", strconv.Itoa(int(coldCacheRetryAfter.Seconds())))
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":         "warming_up",
			"petroleum_type": t.ID(),
		})
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	t, ok := s.petroleumType(w, r)
	if !ok {
		return
	}

	outcome := s.coordinator.RefreshAsync(t)
	status := http.StatusAccepted
	if outcome == refresher.AlreadyRunning {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"status":         string(outcome),
		"petroleum_type": t.ID(),
	})
}

// petroleumType parses the path segment: non-numeric is a bad request,
// numeric but unknown is not found.
func (s *Server) petroleumType(w http.ResponseWriter, r *http.Request) (petrol.Type, bool) {
	raw := r.PathValue("petroleumType")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": fmt.Sprintf("invalid petroleum type %q", raw),
		})
		return 0, false
	}

	t, ok := petrol.TypeFromID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": fmt.Sprintf("unknown petroleum type %d", id),
		})
		return 0, false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
