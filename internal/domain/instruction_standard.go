package domain

import (
	"fmt"
	"strings"
)

const (
	maxRerolls = 20

	newRecencyWindow    = 4
	knockMinTurn        = 4
	knockRecencyWindow  = 5
	removeMinTurn       = 6
	removeRecencyWindow = 5
)

// TypeWeight is one entry of a weighted instruction distribution.
type TypeWeight struct {
	Type   InstructionType
	Weight int
}

// PieceRange is an inclusive range of piece counts.
type PieceRange struct {
	Min int
	Max int
}

// ContentPool configures the Standard policy: which instruction types it draws,
// how often, and how many pieces each template asks for.
type ContentPool struct {
	Name         string
	Weights      []TypeWeight
	NewPieces    PieceRange
	AddPieces    PieceRange
	RemovePieces PieceRange
	// Noun is the word used for a structure on the table.
	Noun string
}

// PoolClassic is the first rule set: KNOCK is in play and NEW builds small stacks.
var PoolClassic = ContentPool{
	Name: "classic",
	Weights: []TypeWeight{
		{Type: InstructionAdd, Weight: 50},
		{Type: InstructionNew, Weight: 30},
		{Type: InstructionKnock, Weight: 10},
		{Type: InstructionRemove, Weight: 10},
	},
	NewPieces:    PieceRange{Min: 1, Max: 3},
	AddPieces:    PieceRange{Min: 1, Max: 3},
	RemovePieces: PieceRange{Min: 2, Max: 3},
	Noun:         "Stack",
}

// PoolScaffold drops KNOCK and lets NEW build bigger scaffolds.
var PoolScaffold = ContentPool{
	Name: "scaffold",
	Weights: []TypeWeight{
		{Type: InstructionAdd, Weight: 60},
		{Type: InstructionNew, Weight: 30},
		{Type: InstructionRemove, Weight: 10},
	},
	NewPieces:    PieceRange{Min: 1, Max: 6},
	AddPieces:    PieceRange{Min: 1, Max: 3},
	RemovePieces: PieceRange{Min: 3, Max: 3},
	Noun:         "scaffold",
}

// PoolByName resolves a configured pool name. Unknown names fall back to PoolScaffold.
func PoolByName(name string) ContentPool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PoolClassic.Name:
		return PoolClassic
	default:
		return PoolScaffold
	}
}

func (p ContentPool) weight(t InstructionType) int {
	for _, w := range p.Weights {
		if w.Type == t {
			return w.Weight
		}
	}
	return 0
}

// StandardGenerator draws weighted instructions subject to recency rules.
type StandardGenerator struct {
	pool ContentPool
	rng  Rand
}

// NewStandardGenerator constructs the Standard policy over pool.
func NewStandardGenerator(pool ContentPool, rng Rand) *StandardGenerator {
	return &StandardGenerator{pool: pool, rng: rng}
}

// Generate returns the next instruction. The first turn, and any turn with no
// structure on the table, is always NEW.
func (g *StandardGenerator) Generate(history []Instruction, stacksExist bool) Instruction {
	turn := len(history) + 1
	if turn == 1 || !stacksExist {
		return g.create(InstructionNew)
	}

	for attempt := 0; attempt < maxRerolls; attempt++ {
		candidate := g.draw()
		if g.allowed(candidate, turn, history) {
			return g.create(candidate)
		}
	}
	return g.create(InstructionAdd)
}

// draw picks a type from the pool's cumulative weight distribution.
func (g *StandardGenerator) draw() InstructionType {
	total := 0
	for _, w := range g.pool.Weights {
		total += max(w.Weight, 0)
	}
	if total == 0 {
		return InstructionAdd
	}

	roll := g.rng.Float64() * float64(total)
	cumulative := 0.0
	for _, w := range g.pool.Weights {
		if w.Weight <= 0 {
			continue
		}
		cumulative += float64(w.Weight)
		if roll < cumulative {
			return w.Type
		}
	}
	return InstructionAdd
}

func (g *StandardGenerator) allowed(t InstructionType, turn int, history []Instruction) bool {
	if g.pool.weight(t) <= 0 {
		return false
	}
	switch t {
	case InstructionAdd:
		return true
	case InstructionNew:
		return countInWindow(history, newRecencyWindow, InstructionNew) == 0
	case InstructionKnock:
		if turn <= knockMinTurn {
			return false
		}
		return countInWindow(history, knockRecencyWindow, InstructionKnock) == 0
	case InstructionRemove:
		if turn <= removeMinTurn {
			return false
		}
		return countInWindow(history, removeRecencyWindow, InstructionRemove) == 0
	default:
		return false
	}
}

func (g *StandardGenerator) create(t InstructionType) Instruction {
	noun := g.pool.Noun
	instr := Instruction{ID: newID(g.rng), Type: t}

	switch t {
	case InstructionNew:
		instr.Pieces = randInt(g.rng, g.pool.NewPieces.Min, g.pool.NewPieces.Max)
		instr.Text = fmt.Sprintf("Create a new %s using %d %s", noun, instr.Pieces, pieceText(instr.Pieces))
	case InstructionAdd:
		instr.Pieces = randInt(g.rng, g.pool.AddPieces.Min, g.pool.AddPieces.Max)
		instr.Orientation = orientations[g.rng.Intn(len(orientations))]
		placement := "on top of any existing " + noun
		if instr.Orientation != "" {
			placement = instr.Orientation + " " + placement
		}
		instr.Text = fmt.Sprintf("Place %d %s %s.", instr.Pieces, pieceText(instr.Pieces), placement)
		instr.SecondaryText = fmt.Sprintf("If there are no %ss, start a new one.", noun)
	case InstructionKnock:
		instr.Text = fmt.Sprintf("Knock down any %s that is 3 pieces high or more.", noun)
		instr.SecondaryText = "If any pieces from other towers fall, keep a maximum of 2."
	case InstructionRemove:
		r := g.pool.RemovePieces
		instr.Pieces = randInt(g.rng, r.Min, r.Max)
		if r.Min == r.Max {
			instr.Text = fmt.Sprintf("Remove up to %d %s from any %s to give to other players.", instr.Pieces, pieceText(instr.Pieces), noun)
			instr.SecondaryText = fmt.Sprintf("Keep any pieces that fall. If there are no %ss, take one piece.", noun)
		} else {
			instr.Text = fmt.Sprintf("Remove %d %s from any %s and give them to any other players.", instr.Pieces, pieceText(instr.Pieces), noun)
			instr.SecondaryText = "Keep any pieces that fall."
		}
	}
	return instr
}
