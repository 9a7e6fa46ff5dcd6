// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon runs the long-lived config server: reload wiring, metrics
// publication and the HTTP listener lifecycle.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/dhtnode/internal/config"
	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/ManuGH/dhtnode/internal/metrics"
	"github.com/ManuGH/dhtnode/internal/publish"
	"github.com/ManuGH/dhtnode/internal/render"
)

// Publisher distributes a resolved configuration. *publish.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, v config.Variant, cfg config.DeviceConfig) (publish.Notice, error)
}

// App owns the runtime lifecycle (watcher, reload wiring, publication)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	publisher    Publisher
	header       render.HeaderOptions
	reloadSignal os.Signal
}

// AppOption configures an App.
type AppOption func(*App)

// WithPublisher republishes every applied snapshot.
func WithPublisher(p Publisher) AppOption {
	return func(a *App) { a.publisher = p }
}

// WithHeaderOptions sets the render options used for fingerprints.
func WithHeaderOptions(opts render.HeaderOptions) AppOption {
	return func(a *App) { a.header = opts }
}

// WithReloadSignal overrides SIGHUP. A nil signal disables signal reloads.
func WithReloadSignal(sig os.Signal) AppOption {
	return func(a *App) { a.reloadSignal = sig }
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, opts ...AppOption) *App {
	a := &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		reloadSignal: syscall.SIGHUP,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.holder == nil {
		return ErrMissingHolder
	}

	a.holder.SetReloadObserver(metrics.RecordReload)
	a.apply(ctx, a.holder.Get())

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if err := a.holder.StartWatcher(ctx); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
	}

	applyCh := make(chan config.Snapshot, 1)
	a.holder.RegisterListener(applyCh)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap := <-applyCh:
				a.apply(ctx, snap)
			}
		}
	})

	if a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.holder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	err := g.Wait()
	a.holder.Stop()
	return err
}

// apply exports the snapshot fingerprint and republishes it when a publisher is set.
func (a *App) apply(ctx context.Context, snap config.Snapshot) {
	out, err := render.Snapshot(snap, a.header)
	if err != nil {
		a.logger.Error().Err(err).Str(log.FieldEvent, "render.failed").Str(log.FieldVariant, snap.Variant.ID).Msg("failed to render snapshot")
		return
	}
	metrics.SetConfigInfo(out.Variant, out.Fingerprint)

	if a.publisher == nil {
		return
	}
	_, err = a.publisher.Publish(ctx, snap.Variant, snap.Device)
	metrics.RecordPublish(snap.Variant.ID, err)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "config.publish_failed").
			Str(log.FieldVariant, snap.Variant.ID).
			Msg("failed to publish configuration")
	}
}
