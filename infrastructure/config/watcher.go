package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/reactor-go/infrastructure/logging"
)

// ReloadFunc receives each successfully loaded configuration document.
type ReloadFunc func(ctx context.Context, cfg *File)

// Watcher reloads the configuration file when it changes on disk and
// hands the result to a callback. A document that fails to load or
// validate is dropped with a log line; the previous configuration stays
// in effect.
type Watcher struct {
	path     string
	loader   *Loader
	onReload ReloadFunc
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given config file.
func NewWatcher(path string, loader *Loader, onReload ReloadFunc) (*Watcher, error) {
	if loader == nil {
		loader = NewLoader()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save
	// and the watch would die with the old inode.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		path:     path,
		loader:   loader,
		onReload: onReload,
		debounce: 200 * time.Millisecond,
		fsw:      fsw,
	}, nil
}

// Run watches until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Coalesce the burst of events a single save produces.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn().
				Add(logging.Component("config-watcher")).
				Add(logging.ErrorField(err)).
				Msg("config watch error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config-watcher")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("config reload rejected")
		return
	}

	logging.Info().
		Add(logging.Component("config-watcher")).
		Add(logging.Str("path", w.path)).
		Add(logging.Int("agents", len(cfg.Agents))).
		Msg("config reloaded")

	if w.onReload != nil {
		w.onReload(ctx, cfg)
	}
}
