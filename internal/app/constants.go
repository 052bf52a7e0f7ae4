package app

import "errors"

// SecondsPerMinute converts the selected duration into the game clock.
const SecondsPerMinute = 60

var (
	ErrNotPlaying       = errors.New("session not in playing state")
	ErrNotInSetup       = errors.New("session not in setup state")
	ErrNotFinished      = errors.New("session not finished")
	ErrNoActivePlayer   = errors.New("no active player")
	ErrTurnInProgress   = errors.New("turn already in progress")
	ErrNoTurnInProgress = errors.New("no turn in progress")
	ErrNoTimeout        = errors.New("turn has not timed out")
	ErrAwaitingAck      = errors.New("timed-out turn must be acknowledged first")
	ErrInvalidDuration  = errors.New("invalid game duration")
)
