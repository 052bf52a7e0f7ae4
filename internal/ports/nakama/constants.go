package nakama

const (
	// RpcCreateSession creates a new table match and returns its id.
	RpcCreateSession = "create_session"
	// RpcFindSession joins an open table in setup or creates one.
	RpcFindSession   = "find_session"
	// RpcGetSettings returns the caller's stored table settings.
	RpcGetSettings   = "get_settings"
	// RpcSaveSettings replaces the caller's stored table settings.
	RpcSaveSettings  = "save_settings"

	// MatchNameScaffold is the authoritative match handler name registered with Nakama.
	MatchNameScaffold = "scaffold_match"

	// MatchLabelGame identifies scaffold matches in label queries.
	MatchLabelGame = "scaffold"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame      int64 = 1
	OpStartTurn      int64 = 2
	OpEndTurn        int64 = 3
	OpAcknowledge    int64 = 4
	OpPause          int64 = 5
	OpResume         int64 = 6
	OpReset          int64 = 7
	OpDeclareWinner  int64 = 8
	OpRematch        int64 = 9
	OpAddPlayer      int64 = 10
	OpRemovePlayer   int64 = 11
	OpRenamePlayer   int64 = 12
	OpUpdateSettings int64 = 13

	// Server -> Client events
	OpStateSnapshot int64 = 101
	OpCue           int64 = 102
	OpError         int64 = 103
	OpAnnouncement  int64 = 104
)

// Error codes sent with OpError.
const (
	ErrCodeBadRequest = 400
	ErrCodeForbidden  = 403
	ErrCodeConflict   = 409
)
