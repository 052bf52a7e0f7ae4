package domain

import (
	"io"

	"github.com/google/uuid"
)

// InstructionType is the category of physical action a turn demands.
type InstructionType string

const (
	InstructionNew    InstructionType = "NEW"
	InstructionAdd    InstructionType = "ADD"
	InstructionKnock  InstructionType = "KNOCK"
	InstructionRemove InstructionType = "REMOVE"
)

// Instruction is a single generated turn instruction. Instructions are not
// modified after generation.
type Instruction struct {
	ID            string          `json:"id"`
	Type          InstructionType `json:"type"`
	Pieces        int             `json:"pieces"`
	Orientation   string          `json:"orientation,omitempty"` // "" means any orientation
	Text          string          `json:"text"`
	SecondaryText string          `json:"secondary_text,omitempty"`
}

// Generator produces the next instruction from the instruction history.
type Generator interface {
	Generate(history []Instruction, stacksExist bool) Instruction
}

// Rand is the randomness source used by the generators and the selector.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// orientations allowed for ADD. Empty string represents any orientation.
var orientations = []string{"horizontally", "vertically", ""}

func pieceText(count int) string {
	if count == 1 {
		return "piece"
	}
	return "pieces"
}

// randInt returns a random integer in [lo, hi].
func randInt(rng Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return rng.Intn(hi-lo+1) + lo
}

// countInWindow counts instructions of type t among the last size entries.
func countInWindow(history []Instruction, size int, t InstructionType) int {
	if size <= 0 || len(history) == 0 {
		return 0
	}
	start := len(history) - size
	if start < 0 {
		start = 0
	}
	n := 0
	for _, instr := range history[start:] {
		if instr.Type == t {
			n++
		}
	}
	return n
}

// newID returns a UUID for a generated instruction. When rng can also act as a
// byte stream the ID is drawn from it, which keeps seeded runs reproducible.
func newID(rng Rand) string {
	if r, ok := rng.(io.Reader); ok {
		if id, err := uuid.NewRandomFromReader(r); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}
