package providers

import (
	"github.com/samber/do/v2"

	"github.com/novelshelf/novelshelf-server/internal/config"
	"github.com/novelshelf/novelshelf-server/internal/filename"
	"github.com/novelshelf/novelshelf-server/internal/hashing"
	"github.com/novelshelf/novelshelf-server/internal/logger"
	"github.com/novelshelf/novelshelf-server/internal/scanner"
)

// ProvideHasher provides the content hashing service.
func ProvideHasher(i do.Injector) (*hashing.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return hashing.NewService(log.Logger, cfg.Dedup.WindowSize), nil
}

// ProvideParser provides the filename parser.
func ProvideParser(i do.Injector) (*filename.Parser, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return filename.NewParser(log.Logger), nil
}

// ProvideWalker provides the library walker.
func ProvideWalker(i do.Injector) (*scanner.Walker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return scanner.NewWalker(log.Logger, cfg.Library.Extensions), nil
}

// ProvideScanner provides the scan orchestrator.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	walker := do.MustInvoke[*scanner.Walker](i)
	resolver := do.MustInvoke[*ResolverHandle](i)
	hasher := do.MustInvoke[*hashing.Service](i)
	parser := do.MustInvoke[*filename.Parser](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return scanner.New(walker, resolver.Resolver, hasher, parser, storeHandle.Store, cfg.Dedup, log.Logger), nil
}
