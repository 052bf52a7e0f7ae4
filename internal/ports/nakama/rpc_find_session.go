package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"scaffold/internal/domain"
	"scaffold/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// findSessionQuery matches tables still in setup with room for another device.
var findSessionQuery = fmt.Sprintf("+label.game:%s +label.status:%s", MatchLabelGame, domain.StatusSetup)

// MatchFinder is the subset of runtime.NakamaModule used to join or open tables.
type MatchFinder interface {
	MatchCreator
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
}

func rpcFindSession(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	return findSession(ctx, logger, nk, NewNakamaSettingsAdapter(nk), userID)
}

func findSession(ctx context.Context, logger runtime.Logger, nk MatchFinder, store ports.SettingsPort, userID string) (string, error) {
	limit := 10
	authoritative := true
	minSize := 1
	maxSize := MaxPresences - 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, findSessionQuery)
	if err != nil {
		logger.Error("FindSession [User:%s]: Failed to list matches: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		logger.Info("FindSession [User:%s]: Found existing match %s", userID, matches[0].MatchId)
		b, _ := json.Marshal(SessionResponse{MatchID: matches[0].MatchId, IsNew: false})
		return string(b), nil
	}

	// Nothing open: host a new table with the caller's settings.
	return createSession(ctx, logger, nk, store, userID)
}
