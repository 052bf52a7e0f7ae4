package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	MinPlayers = 2
	MaxPlayers = 6
)

var (
	ErrTooFewPlayers   = errors.New("not enough players")
	ErrTooManyPlayers  = errors.New("too many players")
	ErrDuplicatePlayer = errors.New("duplicate player id")
	ErrUnknownPlayer   = errors.New("player not found")
	ErrEmptyPlayerID   = errors.New("player id is empty")
)

// DefaultRoster returns the two placeholder players a new table starts with.
func DefaultRoster() []Player {
	return []Player{
		{ID: "1", Name: "Player 1"},
		{ID: "2", Name: "Player 2"},
	}
}

// ValidateRoster checks that players can start a session.
func ValidateRoster(players []Player) error {
	if len(players) < MinPlayers {
		return fmt.Errorf("%w: have %d, need %d", ErrTooFewPlayers, len(players), MinPlayers)
	}
	if len(players) > MaxPlayers {
		return fmt.Errorf("%w: have %d, max %d", ErrTooManyPlayers, len(players), MaxPlayers)
	}
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p.ID == "" {
			return ErrEmptyPlayerID
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// AddPlayer appends a new player with a fresh ID. A blank name becomes
// "Player N".
func AddPlayer(players []Player, name string) ([]Player, Player, error) {
	if len(players) >= MaxPlayers {
		return players, Player{}, ErrTooManyPlayers
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Player %d", len(players)+1)
	}
	p := Player{ID: uuid.NewString(), Name: name}
	return append(players, p), p, nil
}

// RemovePlayer drops the player with id, keeping order.
func RemovePlayer(players []Player, id string) ([]Player, error) {
	for i, p := range players {
		if p.ID == id {
			out := make([]Player, 0, len(players)-1)
			out = append(out, players[:i]...)
			return append(out, players[i+1:]...), nil
		}
	}
	return players, ErrUnknownPlayer
}

// RenamePlayer sets a new display name. Blank names are ignored.
func RenamePlayer(players []Player, id, name string) error {
	for i := range players {
		if players[i].ID == id {
			if name = strings.TrimSpace(name); name != "" {
				players[i].Name = name
			}
			return nil
		}
	}
	return ErrUnknownPlayer
}

// FindPlayer returns the roster entry for id.
func FindPlayer(players []Player, id string) (Player, bool) {
	for _, p := range players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}
