package providers

import (
	"context"
	"errors"

	"github.com/samber/do/v2"

	"github.com/novelshelf/novelshelf-server/internal/config"
	"github.com/novelshelf/novelshelf-server/internal/logger"
	"github.com/novelshelf/novelshelf-server/internal/watcher"
)

// LibraryWatcherHandle wraps the watcher with its cancel for lifecycle management.
type LibraryWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
	// started is false when watching is disabled or no library is configured.
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *LibraryWatcherHandle) Shutdown() error {
	if h.started {
		h.cancel()
	}
	return nil
}

// ProvideLibraryWatcher provides the filesystem staleness watcher.
func ProvideLibraryWatcher(i do.Injector) (*LibraryWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if !cfg.Watcher.Enabled || cfg.Library.Path == "" {
		log.Info("Library watcher disabled")
		return &LibraryWatcherHandle{}, nil
	}

	w := watcher.New(cfg.Library.Path, cfg.Watcher.Debounce, storeHandle.Store, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Library watcher stopped", "error", err)
		}
	}()

	return &LibraryWatcherHandle{Watcher: w, cancel: cancel, started: true}, nil
}
