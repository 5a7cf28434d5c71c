// Package di provides dependency injection configuration for the ReadAlong server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/di/providers"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/provider"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideProviderRegistry)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideSessionService)

	// Workers
	do.Provide(injector, providers.ProvideInboxWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)

	_ = do.MustInvoke[*provider.Registry](injector)
	_ = do.MustInvoke[*library.Service](injector)
	_ = do.MustInvoke[*providers.SessionServiceHandle](injector)

	_ = do.MustInvoke[*providers.InboxWatcherHandle](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
