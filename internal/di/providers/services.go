package providers

import (
	"github.com/samber/do/v2"

	"github.com/readalongapp/readalong-server/internal/config"
	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/logger"
	"github.com/readalongapp/readalong-server/internal/provider"
	"github.com/readalongapp/readalong-server/internal/session"
)

// ProvideProviderRegistry provides the TTS provider registry. The mock
// provider is always registered; the real providers join once their API key
// is configured.
func ProvideProviderRegistry(i do.Injector) (*provider.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	synths := []provider.Synthesizer{provider.NewMock()}

	if cfg.Provider.ElevenLabsAPIKey != "" {
		synths = append(synths, provider.NewElevenLabs(provider.ElevenLabsConfig{
			APIKey: cfg.Provider.ElevenLabsAPIKey,
			Voice:  cfg.Provider.ElevenLabsVoice,
			Model:  cfg.Provider.ElevenLabsModel,
		}, log))
	}
	if cfg.Provider.OpenAIAPIKey != "" {
		synths = append(synths, provider.NewOpenAI(provider.OpenAIConfig{
			APIKey: cfg.Provider.OpenAIAPIKey,
			Voice:  cfg.Provider.OpenAIVoice,
			Model:  cfg.Provider.OpenAIModel,
		}, log))
	}

	registry := provider.NewRegistry(cfg.Provider.Default, synths...)

	log.Info("TTS providers registered",
		"default", cfg.Provider.Default,
		"count", len(synths))
	return registry, nil
}

// ProvideLibraryService provides the document library service.
func ProvideLibraryService(i do.Injector) (*library.Service, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return library.NewService(storeHandle.Store, log), nil
}

// SessionServiceHandle wraps the session service with shutdown capability.
type SessionServiceHandle struct {
	*session.Service
}

// Shutdown implements do.Shutdownable.
func (h *SessionServiceHandle) Shutdown() error {
	return h.Close()
}

// ProvideSessionService provides the playback session service.
func ProvideSessionService(i do.Injector) (*SessionServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	registry := do.MustInvoke[*provider.Registry](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := session.NewService(storeHandle.Store, registry, sseHandle.Manager, cfg.Engine, log)
	return &SessionServiceHandle{Service: svc}, nil
}

// InboxWatcherHandle wraps the inbox watcher with shutdown capability.
type InboxWatcherHandle struct {
	*library.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *InboxWatcherHandle) Shutdown() error {
	return h.Stop()
}

// ProvideInboxWatcher starts watching the inbox directory for documents to
// import.
func ProvideInboxWatcher(i do.Injector) (*InboxWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	lib := do.MustInvoke[*library.Service](i)

	watcher := library.NewWatcher(lib, cfg.Data.InboxPath, 0, log)
	if err := watcher.Start(); err != nil {
		return nil, err
	}

	log.Info("Inbox watcher started", "path", cfg.Data.InboxPath)
	return &InboxWatcherHandle{Watcher: watcher}, nil
}
