// Package di provides dependency injection configuration for the NovelShelf server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/novelshelf/novelshelf-server/internal/config"
	"github.com/novelshelf/novelshelf-server/internal/di/providers"
	"github.com/novelshelf/novelshelf-server/internal/filename"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
	"github.com/novelshelf/novelshelf-server/internal/logger"
	"github.com/novelshelf/novelshelf-server/internal/scanner"
	"github.com/novelshelf/novelshelf-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideResolver)

	// Detection pipeline
	do.Provide(injector, providers.ProvideHasher)
	do.Provide(injector, providers.ProvideParser)
	do.Provide(injector, providers.ProvideWalker)
	do.Provide(injector, providers.ProvideScanner)

	// Workers
	do.Provide(injector, providers.ProvideLibraryWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once everything is running.
// This triggers lazy initialization of every provider.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.ResolverHandle](injector)
	_ = do.MustInvoke[*hashing.Service](injector)
	_ = do.MustInvoke[*filename.Parser](injector)
	_ = do.MustInvoke[*scanner.Walker](injector)
	_ = do.MustInvoke[*scanner.Scanner](injector)
	_ = do.MustInvoke[*providers.LibraryWatcherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
