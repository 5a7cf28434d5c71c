package store

import (
	"github.com/readalongapp/readalong-server/internal/domain"
	apperrors "github.com/readalongapp/readalong-server/internal/errors"
)

// defaultSettings are used until the user saves their own.
var defaultSettings = domain.Settings{
	DefaultProvider: "mock",
	WordsPerMinute:  165,
}

// GetSettings returns the server settings, falling back to defaults when
// none have been saved yet.
func (s *Store) GetSettings() (*domain.Settings, error) {
	var settings domain.Settings
	if err := s.get([]byte(keySettings), &settings); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			defaults := defaultSettings
			return &defaults, nil
		}
		return nil, err
	}
	return &settings, nil
}

// SaveSettings persists the server settings.
func (s *Store) SaveSettings(settings *domain.Settings) error {
	if settings.WordsPerMinute < 1 {
		return apperrors.Validation("words per minute must be positive")
	}
	return s.set([]byte(keySettings), settings)
}
