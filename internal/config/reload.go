// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds the current Snapshot with atomic reloading capability.
// It provides thread-safe access and supports hot reloading from the overlay
// file or a manual trigger.
type Holder struct {
	// reloadSerial orders reloads so a slower load never overwrites a newer one.
	reloadSerial sync.Mutex

	mu      sync.RWMutex
	current Snapshot
	loader  *Loader
	logger  zerolog.Logger

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	stopMu  sync.Mutex
	stopped bool

	// Reload notifications
	reloadMu        sync.RWMutex
	reloadListeners []chan<- Snapshot
	observer        func(error)
}

// NewHolder creates a new holder with an initial snapshot.
func NewHolder(initial Snapshot, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  log.WithComponent("config"),
	}
}

// Get returns the current snapshot (thread-safe read).
func (h *Holder) Get() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// SetReloadObserver registers a callback invoked after every reload attempt
// with its error (nil on success).
func (h *Holder) SetReloadObserver(fn func(error)) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.observer = fn
}

// Reload loads and validates the configuration again.
// If loading fails, the old snapshot is kept and an error is returned.
func (h *Holder) Reload(_ context.Context) error {
	h.reloadSerial.Lock()
	defer h.reloadSerial.Unlock()

	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		h.observe(err)
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	h.mu.Unlock()

	h.notifyListeners(next)
	h.logChanges(old, next)
	h.observe(nil)

	h.logger.Info().
		Str(log.FieldEvent, "config.reload_success").
		Str(log.FieldVariant, next.Variant.ID).
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher starts watching the overlay file for changes.
// If the loader has no overlay file, this is a no-op.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.ConfigPath()
	if path == "" {
		h.logger.Info().
			Str(log.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (no overlay file)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str(log.FieldEvent, "config.watcher_started").
		Str(log.FieldConfigPath, path).
		Msg("watching config file for changes")

	h.wg.Add(1)
	go h.watchLoop(ctx, watcher)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer h.wg.Done()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(log.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			_ = watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Write and Create cover in-place edits and rename-over saves.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().
				Str(log.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if !h.track() {
					return
				}
				defer h.wg.Done()
				if ctx.Err() != nil {
					return
				}
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(log.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(log.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// track registers a debounced reload with the wait group unless Stop has begun.
func (h *Holder) track() bool {
	h.stopMu.Lock()
	defer h.stopMu.Unlock()
	if h.stopped {
		return false
	}
	h.wg.Add(1)
	return true
}

// Stop stops the watcher (if running) and waits for its goroutine and any
// in-flight debounced reload to exit.
func (h *Holder) Stop() {
	h.stopMu.Lock()
	h.stopped = true
	h.stopMu.Unlock()

	if h.watcher != nil {
		_ = h.watcher.Close()
	}
	h.wg.Wait()
}

// RegisterListener registers a channel to receive reload notifications.
// The caller is responsible for closing the channel.
func (h *Holder) RegisterListener(ch chan<- Snapshot) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

// notifyListeners sends the new snapshot to all registered listeners (non-blocking).
func (h *Holder) notifyListeners(next Snapshot) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- next:
		default:
			h.logger.Warn().
				Str(log.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) observe(err error) {
	h.reloadMu.RLock()
	fn := h.observer
	h.reloadMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// logChanges logs the differences between old and new snapshot, masking secrets.
func (h *Holder) logChanges(old, next Snapshot) {
	if old.Variant.ID != next.Variant.ID {
		h.logger.Info().
			Str("old", old.Variant.ID).
			Str("new", next.Variant.ID).
			Msg("config changed: variant")
	}
	oldVals, newVals := Masked(old.Device), Masked(next.Device)
	for _, key := range Diff(old.Device, next.Device).ChangedKeys {
		h.logger.Info().
			Str(log.FieldKey, key).
			Interface("old", oldVals[key]).
			Interface("new", newVals[key]).
			Msg("config changed")
	}
}
