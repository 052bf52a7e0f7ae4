package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Runtime env keys read from the Nakama server configuration.
const (
	EnvGameMode          = "scaffold_game_mode"
	EnvContentPool       = "scaffold_content_pool"
	EnvEasyModeBonusSec  = "scaffold_easy_mode_bonus_sec"
	EnvDurations         = "scaffold_durations"
	EnvCountdownCueSec   = "scaffold_countdown_cue_sec"
	EnvDefaultDurationMn = "scaffold_default_duration_min"
)

type GameConfig struct {
	// GameMode is "standard" or "experimental".
	GameMode string `json:"game_mode"`
	// ContentPool names the Standard instruction pool ("scaffold" or "classic").
	ContentPool            string `json:"content_pool"`
	DurationsMinutes       []int  `json:"durations_minutes"`
	DefaultDurationMinutes int    `json:"default_duration_minutes"`
	// EasyModeBonusSeconds is added to every turn when easy mode is on.
	EasyModeBonusSeconds int `json:"easy_mode_bonus_seconds"`
	// CountdownCueSeconds is the turn time left at which the countdown cue fires.
	CountdownCueSeconds int `json:"countdown_cue_seconds"`
}

// Default returns the built-in configuration.
func Default() GameConfig {
	return GameConfig{
		GameMode:               "standard",
		ContentPool:            "scaffold",
		DurationsMinutes:       []int{5, 10, 15},
		DefaultDurationMinutes: 10,
		EasyModeBonusSeconds:   10,
		CountdownCueSeconds:    10,
	}
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or the defaults if none was loaded.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return Default()
	}
	return *cfg
}

// Parse decodes a JSON configuration on top of the defaults.
func Parse(data []byte) (GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return GameConfig{}, err
	}
	return c, nil
}

// Validate checks that the configuration is usable.
func (c GameConfig) Validate() error {
	switch c.GameMode {
	case "standard", "experimental":
	default:
		return fmt.Errorf("invalid game_mode %q", c.GameMode)
	}
	if len(c.DurationsMinutes) == 0 {
		return fmt.Errorf("durations_minutes must not be empty")
	}
	found := false
	for _, d := range c.DurationsMinutes {
		if d <= 0 {
			return fmt.Errorf("invalid duration %d", d)
		}
		if d == c.DefaultDurationMinutes {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("default_duration_minutes %d is not one of %v", c.DefaultDurationMinutes, c.DurationsMinutes)
	}
	if c.EasyModeBonusSeconds < 0 {
		return fmt.Errorf("easy_mode_bonus_seconds must not be negative")
	}
	return nil
}

// ApplyEnv overrides fields from the Nakama runtime environment. Malformed
// values are skipped and reported in the returned slice.
func (c GameConfig) ApplyEnv(env map[string]string) (GameConfig, []error) {
	var errs []error

	if val, ok := env[EnvGameMode]; ok {
		c.GameMode = strings.ToLower(strings.TrimSpace(val))
	}
	if val, ok := env[EnvContentPool]; ok {
		c.ContentPool = strings.ToLower(strings.TrimSpace(val))
	}
	if val, ok := env[EnvEasyModeBonusSec]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			c.EasyModeBonusSeconds = i
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvEasyModeBonusSec, err))
		}
	}
	if val, ok := env[EnvCountdownCueSec]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			c.CountdownCueSeconds = i
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvCountdownCueSec, err))
		}
	}
	if val, ok := env[EnvDurations]; ok {
		var durations []int
		for _, part := range strings.Split(val, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", EnvDurations, err))
				durations = nil
				break
			}
			durations = append(durations, i)
		}
		if len(durations) > 0 {
			c.DurationsMinutes = durations
		}
	}
	if val, ok := env[EnvDefaultDurationMn]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			c.DefaultDurationMinutes = i
		} else {
			errs = append(errs, fmt.Errorf("%s: %w", EnvDefaultDurationMn, err))
		}
	}

	return c, errs
}
