package domain

const (
	turnBaseSeconds     = 15
	turnSecondsPerPiece = 3
	turnMinSeconds      = 10
	turnMaxSeconds      = 40
)

// CalculateTurnTime returns the number of seconds allotted to a turn.
//
// The budget is 15s plus 3s per piece, minus 1s per completed turn and minus a
// pressure penalty that grows as the game clock runs down (0s above 50%
// remaining, 3s from 20% to 50%, 5s below 20%). The result is clamped to
// [max(10, 3*pieces), 40]; when the workload floor exceeds 40 the floor wins.
func CalculateTurnTime(pieces, completedTurns int, percentRemaining float64) int {
	if pieces < 0 {
		pieces = 0
	}
	if completedTurns < 0 {
		completedTurns = 0
	}

	raw := turnBaseSeconds + turnSecondsPerPiece*pieces - completedTurns - gamePressure(percentRemaining)

	floor := max(turnMinSeconds, turnSecondsPerPiece*pieces)
	ceiling := max(turnMaxSeconds, floor)
	return min(max(raw, floor), ceiling)
}

// gamePressure is the step penalty for the share of game time left.
func gamePressure(percentRemaining float64) int {
	switch {
	case percentRemaining > 50:
		return 0
	case percentRemaining >= 20:
		return 3
	default:
		return 5
	}
}

// PercentRemaining converts the remaining game clock into a percentage of the
// full duration, clamped to [0, 100].
func PercentRemaining(remainingSeconds, durationMinutes int) float64 {
	total := durationMinutes * 60
	if total <= 0 {
		return 0
	}
	pct := float64(remainingSeconds) / float64(total) * 100
	return min(max(pct, 0), 100)
}
