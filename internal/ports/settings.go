package ports

import (
	"context"
	"errors"
	"fmt"

	"scaffold/internal/domain"
)

// ErrInvalidGameMode is returned when settings name an unknown game mode.
var ErrInvalidGameMode = errors.New("invalid game mode")

// Settings are the per-user table preferences.
type Settings struct {
	GameMode     string `json:"game_mode"`
	EasyMode     bool   `json:"easy_mode"`
	SoundEnabled bool   `json:"sound_enabled"`
	VoiceEnabled bool   `json:"voice_enabled"`
}

// DefaultSettings returns the preferences a new user starts with.
func DefaultSettings() Settings {
	return Settings{
		GameMode:     string(domain.ModeStandard),
		SoundEnabled: true,
		VoiceEnabled: true,
	}
}

// Validate reports whether the settings can be applied to a session.
// An empty game mode is allowed and means the server default.
func (s Settings) Validate() error {
	switch domain.GameMode(s.GameMode) {
	case "", domain.ModeStandard, domain.ModeExperimental:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidGameMode, s.GameMode)
}

// SettingsPort loads and stores user preferences.
type SettingsPort interface {
	// Load returns the stored settings for userID, or DefaultSettings when none exist.
	Load(ctx context.Context, userID string) (Settings, error)

	// Save replaces the stored settings for userID.
	Save(ctx context.Context, userID string, settings Settings) error

	// SeedDefaults writes DefaultSettings for userID unless settings already exist.
	// Returns created=false when the user already had settings.
	SeedDefaults(ctx context.Context, userID string) (bool, error)
}
