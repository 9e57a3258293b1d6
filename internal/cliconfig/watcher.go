package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logship/logship/pkg/log"
)

// Watcher monitors the daemon's config file via fsnotify and re-applies
// the reloadable subset (log level, default formatter settings) when it
// changes. Listener address and byte limits require a restart and are
// left untouched.
type Watcher struct {
	path     string
	base     Config
	changed  map[string]bool
	logger   log.Logger
	onReload func(Config)

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for the config file at path. base is the
// effective startup config and changed marks the flag-set keys; a reload
// layers the file and environment on top of base, skipping changed keys,
// so flag and environment settings keep their precedence over the file.
// onReload is invoked with the resulting config after each change
// settles.
func NewWatcher(path string, base Config, changed map[string]bool, logger log.Logger, onReload func(Config)) *Watcher {
	return &Watcher{path: path, base: base, changed: changed, logger: logger, onReload: onReload}
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file itself so editors that replace the file atomically
// still trigger events.
func (w *Watcher) Run(ctx context.Context) {
	if w.path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher disabled", log.Err(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("config watcher disabled",
			log.String("dir", filepath.Dir(w.path)), log.Err(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) debounceReload(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, w.reload)
}

func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", log.String("path", w.path), log.Err(err))
		return
	}
	cfg := w.base
	if err := ApplyFileConfig(&cfg, fc, w.changed); err != nil {
		w.logger.Warn("config reload failed", log.String("path", w.path), log.Err(err))
		return
	}
	// Environment still outranks the file; a key dropped from the file
	// keeps its last value until restart.
	if err := ApplyEnvConfig(&cfg, w.changed); err != nil {
		w.logger.Warn("config reload failed", log.String("path", w.path), log.Err(err))
		return
	}
	w.logger.Info("config reloaded", log.String("path", w.path))
	w.onReload(cfg)
}
