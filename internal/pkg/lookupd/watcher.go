package lookupd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/endorses/lexfst/internal/pkg/constants"
	"github.com/endorses/lexfst/internal/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the dictionary file watcher.
type WatcherConfig struct {
	// PollInterval is the fallback polling interval when fsnotify is unavailable.
	PollInterval time.Duration

	// Debounce delays a reload until file events have been quiet this long,
	// so a file written in several steps is loaded once.
	Debounce time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval: constants.ReloadPollInterval,
		Debounce:     constants.ReloadDebounce,
	}
}

// Watcher reloads a Store when its file changes or when Trigger is called.
type Watcher struct {
	config  WatcherConfig
	store   *Store
	trigger chan struct{}
}

// NewWatcher creates a watcher for store's file.
func NewWatcher(store *Store, config WatcherConfig) *Watcher {
	defaults := DefaultWatcherConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.Debounce <= 0 {
		config.Debounce = defaults.Debounce
	}
	return &Watcher{
		config:  config,
		store:   store,
		trigger: make(chan struct{}, constants.ReloadChannelBuffer),
	}
}

// Trigger requests a reload without waiting for it. Requests made while one
// is already pending collapse into it.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run watches until ctx is cancelled.
//
// The parent directory is watched rather than the file: dictionaries are
// replaced by renaming a new file over the old one, which would drop a watch
// held on the old file.
func (w *Watcher) Run(ctx context.Context) error {
	if w.config.ForcePolling {
		return w.pollLoop(ctx)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, falling back to polling", "error", err)
		return w.pollLoop(ctx)
	}
	defer func() {
		if cerr := fsWatcher.Close(); cerr != nil {
			logger.Error("failed to close fsnotify watcher", "error", cerr)
		}
	}()

	dir := filepath.Dir(w.store.Path())
	if err := fsWatcher.Add(dir); err != nil {
		logger.Warn("failed to watch directory, falling back to polling",
			"dir", dir,
			"error", err)
		return w.pollLoop(ctx)
	}

	logger.Info("Watching dictionary for changes",
		"path", w.store.Path(),
		"mode", "fsnotify")
	return w.fsWatchLoop(ctx, fsWatcher)
}

func (w *Watcher) fsWatchLoop(ctx context.Context, fsWatcher *fsnotify.Watcher) error {
	targetPath, _ := filepath.Abs(w.store.Path())

	debounce := time.NewTimer(w.config.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.trigger:
			w.reload()
		case <-debounce.C:
			w.reload()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			eventPath, _ := filepath.Abs(event.Name)
			if eventPath != targetPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce.Reset(w.config.Debounce)
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) error {
	logger.Info("Watching dictionary for changes",
		"path", w.store.Path(),
		"mode", "polling",
		"interval", w.config.PollInterval)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	var lastModTime time.Time
	var lastSize int64
	if info, err := os.Stat(w.store.Path()); err == nil {
		lastModTime, lastSize = info.ModTime(), info.Size()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.trigger:
			w.reload()
		case <-ticker.C:
			info, err := os.Stat(w.store.Path())
			if err != nil {
				if !os.IsNotExist(err) {
					logger.Warn("failed to stat dictionary",
						"path", w.store.Path(),
						"error", err)
				}
				continue
			}
			if !info.ModTime().Equal(lastModTime) || info.Size() != lastSize {
				lastModTime, lastSize = info.ModTime(), info.Size()
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	// Failures are logged and counted by the store; the old dictionary
	// keeps serving.
	_, _ = w.store.Reload()
}
