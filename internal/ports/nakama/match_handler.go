package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"scaffold/internal/app"
	"scaffold/internal/config"
	"scaffold/internal/domain"
	"scaffold/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	// MaxPresences caps how many devices may watch or control one table.
	MaxPresences = 12

	matchTickRate = 1
)

var (
	errNotHost    = errors.New("only the host can do that")
	errBadPayload = errors.New("invalid payload")
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Tick      int64                       `json:"tick"`       // Current match tick
	HostID    string                      `json:"host_id"`    // User allowed to configure the table
	JoinOrder []string                    `json:"join_order"` // Connected users, oldest first
	Label     string                      `json:"label"`      // Last label pushed to Nakama
	Presences map[string]runtime.Presence `json:"-"`          // Map UserId -> Presence for targeted messaging
	Session   *app.Session                `json:"-"`          // Game session driven by the match loop
	Settings  ports.SettingsPort          `json:"-"`          // Host settings storage, nil when unavailable
}

func (ms *MatchState) isHost(userID string) bool {
	return userID != "" && userID == ms.HostID
}

type startGameRequest struct {
	Players         []domain.Player `json:"players"`
	DurationMinutes int             `json:"duration_minutes"`
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	cfg := config.GetGameConfig()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		var errs []error
		cfg, errs = cfg.ApplyEnv(env)
		for _, err := range errs {
			logger.Warn("MatchInit: Ignoring env override: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("MatchInit: Invalid game config, using defaults: %v", err)
		cfg = config.Default()
	}

	settings := ports.DefaultSettings()
	settings.GameMode = cfg.GameMode
	if raw, ok := params["settings"].(string); ok && raw != "" {
		var host ports.Settings
		if err := json.Unmarshal([]byte(raw), &host); err != nil {
			logger.Warn("MatchInit: Could not decode host settings: %v", err)
		} else if err := host.Validate(); err != nil {
			logger.Warn("MatchInit: Ignoring host settings: %v", err)
		} else {
			settings = host
		}
	}

	sessionLogger := logger
	if matchID, ok := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string); ok {
		sessionLogger = logger.WithField("match_id", matchID)
	}

	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		Session:   app.NewSession(cfg, settings, nil, sessionLogger),
	}
	if host, ok := params["host"].(string); ok {
		state.HostID = host
	}
	if nk != nil {
		state.Settings = NewNakamaSettingsAdapter(nk)
	}

	label, err := marshalFields(labelFields(state.Session.State()))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.Label = string(label)

	return state, matchTickRate, state.Label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if _, rejoin := matchState.Presences[presence.GetUserId()]; !rejoin && len(matchState.Presences) >= MaxPresences {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p
		if !slices.Contains(matchState.JoinOrder, userID) {
			matchState.JoinOrder = append(matchState.JoinOrder, userID)
		}
	}

	if _, ok := matchState.Presences[matchState.HostID]; !ok && len(matchState.JoinOrder) > 0 {
		matchState.HostID = matchState.JoinOrder[0]
		logger.Debug("MatchJoin: Host set to %s.", matchState.HostID)
	}

	st := matchState.Session.State()
	mh.updateLabel(matchState, st, dispatcher, logger)
	mh.broadcastSnapshot(matchState, st, dispatcher, logger, presences)

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		matchState.JoinOrder = slices.DeleteFunc(matchState.JoinOrder, func(id string) bool { return id == userID })
		logger.Debug("MatchLeave: User %s left.", userID)
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	if _, ok := matchState.Presences[matchState.HostID]; !ok {
		matchState.HostID = matchState.JoinOrder[0]
		logger.Debug("MatchLeave: Host moved to %s.", matchState.HostID)
	}

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	// Advance the clocks before applying input so a turn started this tick keeps its full budget.
	events := matchState.Session.Tick()
	changed := len(events) > 0
	mh.broadcastEvents(matchState, dispatcher, logger, events)

	for _, msg := range messages {
		events, err := mh.handleMessage(ctx, matchState, logger, msg)
		if err != nil {
			logger.Warn("MatchLoop: Op %d from %s rejected: %v", msg.GetOpCode(), msg.GetUserId(), err)
			mh.sendError(matchState, dispatcher, logger, msg.GetUserId(), errorCode(err), err.Error())
			continue
		}
		if len(events) > 0 {
			changed = true
		}
		mh.broadcastEvents(matchState, dispatcher, logger, events)
	}

	st := matchState.Session.State()
	running := st.Status == domain.StatusPlaying && !st.IsGamePaused
	if changed || running {
		mh.broadcastSnapshot(matchState, st, dispatcher, logger, nil)
	}
	mh.updateLabel(matchState, st, dispatcher, logger)

	return matchState
}

// handleMessage applies one client message to the session.
func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, logger runtime.Logger, msg runtime.MatchData) ([]app.Event, error) {
	senderID := msg.GetUserId()
	session := state.Session

	switch msg.GetOpCode() {
	case OpStartTurn:
		return session.StartTurn()
	case OpEndTurn:
		return session.EndTurn(true)
	case OpAcknowledge:
		return session.AcknowledgeTimeout()
	case OpPause:
		return session.Pause(), nil
	case OpResume:
		return session.Resume()
	}

	if !state.isHost(senderID) {
		switch msg.GetOpCode() {
		case OpStartGame, OpReset, OpDeclareWinner, OpRematch, OpAddPlayer, OpRemovePlayer, OpRenamePlayer, OpUpdateSettings:
			return nil, errNotHost
		}
	}

	switch msg.GetOpCode() {
	case OpStartGame:
		var req startGameRequest
		if err := decodePayload(msg.GetData(), &req); err != nil {
			return nil, err
		}
		if req.DurationMinutes == 0 {
			req.DurationMinutes = session.State().DurationMinutes
		}
		logger.Info("StartGame: Request from host %s (%d players, %d minutes).", senderID, len(req.Players), req.DurationMinutes)
		return session.InitializeSession(req.Players, req.DurationMinutes)
	case OpReset:
		return session.Reset(), nil
	case OpRematch:
		return session.Rematch()
	case OpDeclareWinner:
		var req playerRequest
		if err := decodePayload(msg.GetData(), &req); err != nil {
			return nil, err
		}
		return session.DeclareWinner(req.PlayerID)
	case OpAddPlayer:
		var req playerRequest
		if err := decodePayload(msg.GetData(), &req); err != nil {
			return nil, err
		}
		_, events, err := session.AddPlayer(req.Name)
		return events, err
	case OpRemovePlayer:
		var req playerRequest
		if err := decodePayload(msg.GetData(), &req); err != nil {
			return nil, err
		}
		return session.RemovePlayer(req.PlayerID)
	case OpRenamePlayer:
		var req playerRequest
		if err := decodePayload(msg.GetData(), &req); err != nil {
			return nil, err
		}
		return session.RenamePlayer(req.PlayerID, req.Name)
	case OpUpdateSettings:
		settings := session.Settings()
		if err := decodePayload(msg.GetData(), &settings); err != nil {
			return nil, err
		}
		if err := settings.Validate(); err != nil {
			return nil, err
		}
		events := session.UpdateSettings(settings)
		if state.Settings != nil {
			if err := state.Settings.Save(ctx, senderID, settings); err != nil {
				logger.Error("UpdateSettings: Failed to save settings for %s: %v", senderID, err)
			}
		}
		return events, nil
	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		return nil, nil
	}
}

func decodePayload(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

// errorCode maps a rejected operation to the code sent with OpError.
func errorCode(err error) int {
	switch {
	case errors.Is(err, errNotHost):
		return ErrCodeForbidden
	case errors.Is(err, errBadPayload),
		errors.Is(err, app.ErrInvalidDuration),
		errors.Is(err, ports.ErrInvalidGameMode),
		errors.Is(err, domain.ErrTooFewPlayers),
		errors.Is(err, domain.ErrTooManyPlayers),
		errors.Is(err, domain.ErrDuplicatePlayer),
		errors.Is(err, domain.ErrEmptyPlayerID),
		errors.Is(err, domain.ErrUnknownPlayer):
		return ErrCodeBadRequest
	default:
		return ErrCodeConflict
	}
}

// broadcastEvents forwards cues and announcements. Other events reach clients
// through the state snapshot.
func (mh *matchHandler) broadcastEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		var opCode int64
		var fields map[string]interface{}

		switch ev.Kind {
		case app.EventCue:
			p := ev.Payload.(app.CuePayload)
			opCode = OpCue
			fields = map[string]interface{}{"cue": string(p.Cue)}
		case app.EventInstructionAnnounced:
			p := ev.Payload.(app.InstructionAnnouncedPayload)
			opCode = OpAnnouncement
			fields = map[string]interface{}{"text": p.Text, "secondary_text": p.SecondaryText}
		default:
			logger.Debug("Event: %s", ev.Kind)
			continue
		}

		data, err := marshalFields(fields)
		if err != nil {
			logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
			continue
		}
		if err := dispatcher.BroadcastMessage(opCode, data, nil, nil, true); err != nil {
			logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
		}
	}
}

// broadcastSnapshot sends the session state to presences, or to everyone when presences is nil.
func (mh *matchHandler) broadcastSnapshot(state *MatchState, st app.State, dispatcher runtime.MatchDispatcher, logger runtime.Logger, presences []runtime.Presence) {
	fields := snapshotFields(st, state.Tick)
	fields["host_id"] = state.HostID
	fields["settings"] = settingsFields(state.Session.Settings())
	data, err := marshalFields(fields)
	if err != nil {
		logger.Error("Failed to marshal snapshot: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpStateSnapshot, data, presences, nil, true); err != nil {
		logger.Error("Failed to broadcast snapshot: %v", err)
	}
}

// sendError sends an error message to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := marshalFields(map[string]interface{}{
		"code":    code,
		"message": message,
	})
	if err != nil {
		logger.Error("Failed to marshal error: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, st app.State, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := marshalFields(labelFields(st))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if string(label) == state.Label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(label)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.Label = string(label)
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d seconds grace", graceSeconds)
	return state
}

// MatchSignal answers "snapshot" with the current state so RPCs can inspect a table.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != "snapshot" {
		return state, ""
	}
	payload, err := marshalFields(snapshotFields(matchState.Session.State(), matchState.Tick))
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal snapshot: %v", err)
		return state, ""
	}
	return state, string(payload)
}
