package lookupd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/endorses/lexfst/internal/pkg/constants"
	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/endorses/lexfst/internal/pkg/logger"
	"github.com/endorses/lexfst/internal/pkg/version"
	"github.com/google/uuid"
)

// Config configures the lookup server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server answers lookups against the active snapshot of a Store.
type Server struct {
	config  Config
	store   *Store
	metrics *Metrics
	mux     *http.ServeMux
}

// LookupResponse is returned by /v1/lookup and /v1/match. Outputs are
// rendered as strings; bytes that are not valid UTF-8 are replaced.
type LookupResponse struct {
	Key      string   `json:"key"`
	Accepted bool     `json:"accepted"`
	Outputs  []string `json:"outputs"`
}

// PrefixMatch is one key found by /v1/prefixes.
type PrefixMatch struct {
	Key     string   `json:"key"`
	Length  int      `json:"length"`
	Outputs []string `json:"outputs"`
}

// PrefixesResponse is returned by /v1/prefixes.
type PrefixesResponse struct {
	Query   string        `json:"query"`
	Matches []PrefixMatch `json:"matches"`
}

// StatsResponse is returned by /v1/stats.
type StatsResponse struct {
	fst.Stats
	Keys     uint32       `json:"keys"`
	BuildID  uuid.UUID    `json:"build_id"`
	Path     string       `json:"path"`
	LoadedAt time.Time    `json:"loaded_at"`
	Reloads  uint64       `json:"reloads"`
	Version  version.Info `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server. metrics may be nil, which disables /metrics.
func NewServer(store *Store, metrics *Metrics, config Config) *Server {
	if config.Addr == "" {
		config.Addr = constants.DefaultListenAddr
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = constants.GracefulShutdownTimeout
	}

	s := &Server{
		config:  config,
		store:   store,
		metrics: metrics,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /v1/lookup", s.handleLookup)
	s.mux.HandleFunc("GET /v1/match", s.handleMatch)
	s.mux.HandleFunc("GET /v1/prefixes", s.handlePrefixes)
	s.mux.HandleFunc("GET /v1/stats", s.handleStats)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics.Handler())
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting lookup server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("lookup server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down lookup server: %w", err)
	}
	logger.Info("Lookup server stopped")
	return nil
}

// keyParam extracts a query parameter that may legitimately be empty.
func keyParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	q := r.URL.Query()
	if !q.Has(name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q parameter", name))
		return "", false
	}
	v := q.Get(name)
	if len(v) > constants.MaxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%q exceeds %d bytes", name, constants.MaxQueryLength))
		return "", false
	}
	return v, true
}

// snapshot returns the active snapshot or answers 503.
func (s *Server) snapshot(w http.ResponseWriter) *Snapshot {
	snap := s.store.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no dictionary loaded")
	}
	return snap
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	s.serveLookup(w, r, "lookup", (*fst.FST).Lookup)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	s.serveLookup(w, r, "match", (*fst.FST).Match)
}

func (s *Server) serveLookup(w http.ResponseWriter, r *http.Request, endpoint string, walk func(*fst.FST, []byte) (fst.Result, error)) {
	key, ok := keyParam(w, r, "key")
	if !ok {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	start := time.Now()
	res, err := walk(snap.FST, []byte(key))
	if err != nil {
		s.observe(endpoint, "error", start)
		logger.Error("Lookup failed", "endpoint", endpoint, "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "dictionary is corrupt")
		return
	}
	s.observe(endpoint, hitOrMiss(res.Accepted), start)

	writeJSON(w, http.StatusOK, LookupResponse{
		Key:      key,
		Accepted: res.Accepted,
		Outputs:  res.Strings(),
	})
}

func (s *Server) handlePrefixes(w http.ResponseWriter, r *http.Request) {
	query, ok := keyParam(w, r, "q")
	if !ok {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	start := time.Now()
	matches, err := snap.FST.CommonPrefixes([]byte(query))
	if err != nil {
		s.observe("prefixes", "error", start)
		logger.Error("Prefix search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "dictionary is corrupt")
		return
	}
	s.observe("prefixes", hitOrMiss(len(matches) > 0), start)

	resp := PrefixesResponse{Query: query, Matches: make([]PrefixMatch, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, PrefixMatch{
			Key:     query[:m.Length],
			Length:  m.Length,
			Outputs: fst.Result{Outputs: m.Outputs}.Strings(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:    snap.Stats,
		Keys:     snap.Header.Keys,
		BuildID:  snap.Header.BuildID,
		Path:     snap.Path,
		LoadedAt: snap.LoadedAt,
		Reloads:  s.store.Reloads(),
		Version:  version.Get(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store.Current() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("NOT READY"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) observe(endpoint, result string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveLookup(endpoint, result, time.Since(start))
	}
}

func hitOrMiss(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
