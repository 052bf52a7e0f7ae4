package app

import (
	"scaffold/internal/domain"
	"scaffold/internal/ports"
)

// EventKind identifies emitted session events for dispatch.
type EventKind string

const (
	EventSessionStarted       EventKind = "session_started"
	EventSessionReset         EventKind = "session_reset"
	EventRosterChanged        EventKind = "roster_changed"
	EventActivePlayerChanged  EventKind = "active_player_changed"
	EventTurnStarted          EventKind = "turn_started"
	EventInstructionAnnounced EventKind = "instruction_announced"
	EventTurnTimedOut         EventKind = "turn_timed_out"
	EventTurnEnded            EventKind = "turn_ended"
	EventClockPaused          EventKind = "clock_paused"
	EventClockResumed         EventKind = "clock_resumed"
	EventGameOver             EventKind = "game_over"
	EventWinnerDeclared       EventKind = "winner_declared"
	EventSettingsChanged      EventKind = "settings_changed"
	EventCue                  EventKind = "cue"
)

// Cue is an opaque sound identifier for the playback layer.
type Cue string

const (
	CueTurnStart     Cue = "turn_start"
	CueCountdown     Cue = "countdown"
	CueCountdownStop Cue = "countdown_stop"
	CueTimeout       Cue = "timeout"
	CueManualEnd     Cue = "manual_end"
	CueGameOver      Cue = "game_over"
)

// Event is a session event. Payload holds one of the *Payload types below.
type Event struct {
	Kind    EventKind
	Payload any
}

type CuePayload struct {
	Cue Cue
}

type SessionStartedPayload struct {
	Players         []domain.Player
	DurationMinutes int
}

type RosterChangedPayload struct {
	Players []domain.Player
}

type ActivePlayerChangedPayload struct {
	Player domain.Player
}

type TurnStartedPayload struct {
	PlayerID    string
	Instruction domain.Instruction
	TurnSeconds int
}

// InstructionAnnouncedPayload carries the text for the voice layer to read out.
type InstructionAnnouncedPayload struct {
	Text          string
	SecondaryText string
}

type TurnTimedOutPayload struct {
	PlayerID string
}

type TurnEndedPayload struct {
	PlayerID    string
	Instruction *domain.Instruction
	Manual      bool
}

type GameOverPayload struct {
	TurnsPlayed int
}

type WinnerDeclaredPayload struct {
	Winner domain.Player
}

type SettingsChangedPayload struct {
	Settings ports.Settings
}
