package nakama

import (
	"context"
	"database/sql"

	"scaffold/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// GameConfigPath is where the module looks for its JSON configuration.
const GameConfigPath = "data/game_config.json"

// InitModule wires RPCs, hooks and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := config.LoadGameConfig(GameConfigPath); err != nil {
		logger.Warn("InitModule: Could not load game config, using defaults: %v", err)
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameScaffold, NewMatch); err != nil {
		return err
	}

	logger.Info("Scaffold Go module loaded.")
	return nil
}
