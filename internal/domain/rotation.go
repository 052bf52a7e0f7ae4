package domain

import "errors"

// MaxTurnSpread is the largest allowed gap between any player's turn count and
// the lowest turn count at the table.
const MaxTurnSpread = 2

// ErrNoPlayers is returned when a selection is requested for an empty roster.
var ErrNoPlayers = errors.New("no players to select from")

// SelectNext picks the player who acts next.
//
// A player who took both of the last two turns is skipped, as is any player
// whose turn count would move more than MaxTurnSpread above the table minimum.
// If that leaves nobody, the whole roster is eligible. The choice among
// candidates is uniform. History entries for players no longer on the roster
// are ignored.
func SelectNext(players []Player, history []string, rng Rand) (Player, error) {
	if len(players) == 0 {
		return Player{}, ErrNoPlayers
	}

	counts := make(map[string]int, len(players))
	for _, p := range players {
		counts[p.ID] = 0
	}
	for _, id := range history {
		if _, ok := counts[id]; ok {
			counts[id]++
		}
	}

	minTurns := -1
	for _, c := range counts {
		if minTurns < 0 || c < minTurns {
			minTurns = c
		}
	}

	streak := ""
	if n := len(history); n >= 2 && history[n-1] == history[n-2] {
		streak = history[n-1]
	}

	candidates := make([]Player, 0, len(players))
	for _, p := range players {
		if p.ID == streak {
			continue
		}
		if counts[p.ID]+1-minTurns > MaxTurnSpread {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		candidates = players
	}

	return candidates[rng.Intn(len(candidates))], nil
}
