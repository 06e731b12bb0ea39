// Package lookupd serves lookups against a compiled dictionary over HTTP.
//
// The dictionary lives in a Store which swaps in a complete new automaton
// on reload, so lookups never block and never see a partially loaded file.
package lookupd

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/endorses/lexfst/internal/pkg/fstfile"
	"github.com/endorses/lexfst/internal/pkg/logger"
)

// Snapshot is one loaded dictionary. It is immutable.
type Snapshot struct {
	FST      *fst.FST
	Header   fstfile.Header
	Stats    fst.Stats
	Path     string
	LoadedAt time.Time
}

// ReloadResult classifies a reload attempt.
type ReloadResult string

const (
	ReloadSuccess   ReloadResult = "success"
	ReloadUnchanged ReloadResult = "unchanged"
	ReloadFailure   ReloadResult = "failure"
)

// Store holds the current snapshot of the dictionary file at path.
//
// Snapshots are read into memory rather than mapped: a reader may still hold
// an old snapshot after a swap, and the garbage collector frees it once the
// last reader is done.
type Store struct {
	path    string
	metrics *Metrics

	current atomic.Pointer[Snapshot]

	// reloadMu ensures only one reload runs at a time.
	reloadMu sync.Mutex

	reloads atomic.Uint64
}

// NewStore creates a store for the dictionary at path. metrics may be nil.
// The store is empty until the first Reload.
func NewStore(path string, metrics *Metrics) *Store {
	return &Store{path: path, metrics: metrics}
}

// Path returns the dictionary path.
func (s *Store) Path() string { return s.path }

// Current returns the active snapshot, or nil before the first successful
// load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reloads returns the number of snapshots swapped in.
func (s *Store) Reloads() uint64 {
	return s.reloads.Load()
}

// Reload reads the dictionary file and swaps it in. When the file fails to
// load the previous snapshot stays active. A file with the same build id and
// checksum as the active snapshot is not swapped.
func (s *Store) Reload() (ReloadResult, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	result, err := s.reload()
	if s.metrics != nil {
		s.metrics.ObserveReload(result)
	}

	log := logger.With("component", "lookupd", "path", s.path)
	switch {
	case err != nil:
		log.Error("Dictionary reload failed", "error", err)
	case result == ReloadSuccess:
		snap := s.current.Load()
		log.Info("Dictionary loaded",
			"build_id", snap.Header.BuildID,
			"keys", snap.Header.Keys,
			"states", snap.Stats.States,
			"bytes", snap.Stats.Bytes,
			"duration", time.Since(start))
	default:
		log.Debug("Dictionary unchanged, skipping reload")
	}
	return result, err
}

func (s *Store) reload() (ReloadResult, error) {
	f, err := fstfile.ReadFile(s.path)
	if err != nil {
		return ReloadFailure, fmt.Errorf("failed to read dictionary: %w", err)
	}

	if old := s.current.Load(); old != nil &&
		old.Header.BuildID == f.Header.BuildID &&
		old.Header.Checksum == f.Header.Checksum {
		return ReloadUnchanged, nil
	}

	stats, err := f.FST.Stats()
	if err != nil {
		return ReloadFailure, fmt.Errorf("failed to scan dictionary: %w", err)
	}

	s.Set(&Snapshot{
		FST:      f.FST,
		Header:   f.Header,
		Stats:    stats,
		Path:     s.path,
		LoadedAt: time.Now(),
	})
	return ReloadSuccess, nil
}

// Set makes snap the active snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.current.Store(snap)
	s.reloads.Add(1)
	if s.metrics != nil {
		s.metrics.SetSnapshot(snap)
	}
}
