package domain

// GameStatus represents the lifecycle stage of a Scaffold session.
type GameStatus string

const (
	// StatusSetup is the pre-game state where the roster and duration are chosen.
	StatusSetup GameStatus = "setup"
	// StatusPlaying is the active game state where turns are taken.
	StatusPlaying GameStatus = "playing"
	// StatusFinished is the state after the game clock runs out.
	StatusFinished GameStatus = "finished"
	// StatusWinner is the state after players have picked a winner.
	StatusWinner GameStatus = "winner"
)

// GameMode selects which instruction policy drives a session.
type GameMode string

const (
	ModeStandard     GameMode = "standard"
	ModeExperimental GameMode = "experimental"
)

// Player is a participant at the table.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultDurations lists the selectable game lengths in minutes.
var DefaultDurations = []int{5, 10, 15}

// ValidDuration reports whether minutes is one of the allowed durations.
func ValidDuration(minutes int, allowed []int) bool {
	if len(allowed) == 0 {
		allowed = DefaultDurations
	}
	for _, d := range allowed {
		if d == minutes {
			return true
		}
	}
	return false
}
