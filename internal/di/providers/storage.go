package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/novelshelf/novelshelf-server/internal/config"
	"github.com/novelshelf/novelshelf-server/internal/encoding"
	"github.com/novelshelf/novelshelf-server/internal/logger"
	"github.com/novelshelf/novelshelf-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)
	return &StoreHandle{Store: db}, nil
}

// ResolverHandle wraps the encoding resolver with shutdown capability for
// its detection cache.
type ResolverHandle struct {
	*encoding.Resolver
}

// Shutdown implements do.Shutdownable.
func (h *ResolverHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideResolver provides the encoding resolver.
func ProvideResolver(i do.Injector) (*ResolverHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	resolver, err := encoding.NewResolver(log.Logger)
	if err != nil {
		return nil, err
	}
	return &ResolverHandle{Resolver: resolver}, nil
}
