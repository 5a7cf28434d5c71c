package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/readalongapp/readalong-server/internal/domain"
	"github.com/readalongapp/readalong-server/internal/errors"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get settings",
		Description: "Returns the server-wide session defaults",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Update settings",
		Description: "Replaces the server-wide session defaults",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)
}

// SettingsResponse contains session defaults in API responses. Updates may
// omit fields; the handler validates the values it cares about.
type SettingsResponse struct {
	DefaultProvider string `json:"default_provider" required:"false" doc:"Provider used when a session names none"`
	DefaultVoice    string `json:"default_voice" required:"false" doc:"Voice used when a session names none"`
	WordsPerMinute  int    `json:"words_per_minute" required:"false" doc:"Reading speed for timeline estimates"`
}

// SettingsOutput wraps the settings response for Huma.
type SettingsOutput struct {
	Body SettingsResponse
}

// UpdateSettingsInput wraps the settings update for Huma.
type UpdateSettingsInput struct {
	Body SettingsResponse
}

func (s *Server) handleGetSettings(_ context.Context, _ *struct{}) (*SettingsOutput, error) {
	settings, err := s.store.GetSettings()
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: settingsResponse(settings)}, nil
}

func (s *Server) handleUpdateSettings(_ context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	if input.Body.WordsPerMinute < 60 || input.Body.WordsPerMinute > 400 {
		return nil, errors.Validationf("words_per_minute must be between 60 and 400, got %d", input.Body.WordsPerMinute)
	}

	settings := &domain.Settings{
		DefaultProvider: input.Body.DefaultProvider,
		DefaultVoice:    input.Body.DefaultVoice,
		WordsPerMinute:  input.Body.WordsPerMinute,
	}
	if err := s.store.SaveSettings(settings); err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: settingsResponse(settings)}, nil
}

func settingsResponse(settings *domain.Settings) SettingsResponse {
	return SettingsResponse{
		DefaultProvider: settings.DefaultProvider,
		DefaultVoice:    settings.DefaultVoice,
		WordsPerMinute:  settings.WordsPerMinute,
	}
}
