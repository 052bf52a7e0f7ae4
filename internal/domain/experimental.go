package domain

const (
	destructiveChance = 0.15
	shapeChance       = 0.35 // cumulative with destructiveChance
	fillerAddPercent  = 85
)

type challenge struct {
	Type          InstructionType
	Text          string
	SecondaryText string
	Pieces        int
}

var shapeChallenges = []challenge{
	{Type: InstructionNew, Text: "Make a horse shape using 6 pieces", Pieces: 6},
	{Type: InstructionNew, Text: "Make a goal using 3 pieces", Pieces: 3},
	{Type: InstructionNew, Text: "Make a letter H using 5 pieces", Pieces: 5},
	{Type: InstructionNew, Text: "Make a letter A using 6 pieces", Pieces: 6},
}

var destructiveChallenges = []challenge{
	{Type: InstructionKnock, Text: "Demolish a tower!", SecondaryText: "No pieces from any other towers must fall"},
	{Type: InstructionNew, Text: "Blow 1 piece off!", SecondaryText: "No other pieces must fall…"},
}

// poolExperimentalFiller is the Standard content reused for filler turns.
var poolExperimentalFiller = ContentPool{
	Name:         "experimental-filler",
	Weights:      []TypeWeight{{Type: InstructionAdd, Weight: 85}, {Type: InstructionNew, Weight: 15}},
	NewPieces:    PieceRange{Min: 2, Max: 6},
	AddPieces:    PieceRange{Min: 1, Max: 3},
	RemovePieces: PieceRange{Min: 3, Max: 3},
	Noun:         "scaffold",
}

// ExperimentalGenerator mixes themed shape and destructive challenges into the
// standard ADD/NEW flow.
type ExperimentalGenerator struct {
	rng      Rand
	standard *StandardGenerator
}

// NewExperimentalGenerator constructs the Experimental policy.
func NewExperimentalGenerator(rng Rand) *ExperimentalGenerator {
	return &ExperimentalGenerator{
		rng:      rng,
		standard: NewStandardGenerator(poolExperimentalFiller, rng),
	}
}

// Generate returns the next instruction. With nothing on the table it always
// builds: half the time a plain NEW, otherwise a shape challenge.
func (g *ExperimentalGenerator) Generate(history []Instruction, stacksExist bool) Instruction {
	if len(history) == 0 || !stacksExist {
		if g.rng.Float64() > 0.5 {
			return g.standard.create(InstructionNew)
		}
		return g.pick(shapeChallenges)
	}

	roll := g.rng.Float64()
	switch {
	case roll < destructiveChance:
		return g.pick(destructiveChallenges)
	case roll < shapeChance:
		return g.pick(shapeChallenges)
	}

	if g.rng.Intn(100) < fillerAddPercent {
		return g.standard.create(InstructionAdd)
	}
	return g.standard.create(InstructionNew)
}

func (g *ExperimentalGenerator) pick(pool []challenge) Instruction {
	c := pool[g.rng.Intn(len(pool))]
	return Instruction{
		ID:            newID(g.rng),
		Type:          c.Type,
		Pieces:        c.Pieces,
		Text:          c.Text,
		SecondaryText: c.SecondaryText,
	}
}

// NewGenerator returns the policy for mode. pool only applies to ModeStandard.
func NewGenerator(mode GameMode, pool ContentPool, rng Rand) Generator {
	if mode == ModeExperimental {
		return NewExperimentalGenerator(rng)
	}
	return NewStandardGenerator(pool, rng)
}
