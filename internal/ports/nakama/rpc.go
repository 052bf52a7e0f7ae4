package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"scaffold/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes used by RPC errors.
const (
	codeInvalidArgument = 3
	codeInternal        = 13
	codeUnauthenticated = 16
)

// SessionResponse is returned by the session RPCs.
type SessionResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcCreateSession: rpcCreateSession,
		RpcFindSession:   rpcFindSession,
		RpcGetSettings:   rpcGetSettings,
		RpcSaveSettings:  rpcSaveSettings,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return fmt.Errorf("register rpc %s: %w", id, err)
		}
	}
	return nil
}

func callerID(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", codeUnauthenticated)
	}
	return userID, nil
}

// rpcCreateSession creates a table hosted by the caller, seeded with the caller's settings.
func rpcCreateSession(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	return createSession(ctx, logger, nk, NewNakamaSettingsAdapter(nk), userID)
}

// MatchCreator is the subset of runtime.NakamaModule used to open tables.
type MatchCreator interface {
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

func createSession(ctx context.Context, logger runtime.Logger, nk MatchCreator, store ports.SettingsPort, userID string) (string, error) {
	settings, err := store.Load(ctx, userID)
	if err != nil {
		logger.Warn("CreateSession [User:%s]: Using default settings: %v", userID, err)
		settings = ports.DefaultSettings()
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return "", runtime.NewError("failed to encode settings", codeInternal)
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameScaffold, map[string]interface{}{
		"host":     userID,
		"settings": string(raw),
	})
	if err != nil {
		logger.Error("CreateSession [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	logger.Info("CreateSession [User:%s]: Created match %s", userID, matchID)
	b, _ := json.Marshal(SessionResponse{MatchID: matchID, IsNew: true})
	return string(b), nil
}

func rpcGetSettings(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	return getSettings(ctx, logger, NewNakamaSettingsAdapter(nk), userID)
}

func getSettings(ctx context.Context, logger runtime.Logger, store ports.SettingsPort, userID string) (string, error) {
	settings, err := store.Load(ctx, userID)
	if err != nil {
		logger.Error("GetSettings [User:%s]: %v", userID, err)
		return "", runtime.NewError("failed to load settings", codeInternal)
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return "", runtime.NewError("failed to encode settings", codeInternal)
	}
	return string(b), nil
}

func rpcSaveSettings(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	return saveSettings(ctx, logger, NewNakamaSettingsAdapter(nk), userID, payload)
}

// saveSettings applies a partial update: fields missing from payload keep their stored values.
func saveSettings(ctx context.Context, logger runtime.Logger, store ports.SettingsPort, userID, payload string) (string, error) {
	settings, err := store.Load(ctx, userID)
	if err != nil {
		logger.Error("SaveSettings [User:%s]: %v", userID, err)
		return "", runtime.NewError("failed to load settings", codeInternal)
	}
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return "", runtime.NewError("invalid settings payload", codeInvalidArgument)
	}
	if err := settings.Validate(); err != nil {
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	}
	if err := store.Save(ctx, userID, settings); err != nil {
		logger.Error("SaveSettings [User:%s]: %v", userID, err)
		return "", runtime.NewError("failed to save settings", codeInternal)
	}
	b, _ := json.Marshal(settings)
	return string(b), nil
}
