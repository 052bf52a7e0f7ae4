package app

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"scaffold/internal/config"
	"scaffold/internal/domain"
	"scaffold/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// State is a point-in-time copy of a session for presentation layers.
type State struct {
	Players            []domain.Player      `json:"players"`
	DurationMinutes    int                  `json:"duration_minutes"`
	Status             domain.GameStatus    `json:"status"`
	StacksExist        bool                 `json:"stacks_exist"`
	ActivePlayer       *domain.Player       `json:"active_player,omitempty"`
	CurrentInstruction *domain.Instruction  `json:"current_instruction,omitempty"`
	GameTimeRemaining  int                  `json:"game_time_remaining"`
	TurnTimeRemaining  int                  `json:"turn_time_remaining"`
	IsGamePaused       bool                 `json:"is_game_paused"`
	IsTurnActive       bool                 `json:"is_turn_active"`
	IsTurnTimedOut     bool                 `json:"is_turn_timed_out"`
	TurnHistory        []string             `json:"turn_history"`
	InstructionHistory []domain.Instruction `json:"instruction_history"`
	Winner             *domain.Player       `json:"winner,omitempty"`
}

// clone returns a deep copy so callers never share slices with the session.
func (s State) clone() State {
	out := s
	out.Players = slices.Clone(s.Players)
	out.TurnHistory = slices.Clone(s.TurnHistory)
	out.InstructionHistory = slices.Clone(s.InstructionHistory)
	if s.ActivePlayer != nil {
		p := *s.ActivePlayer
		out.ActivePlayer = &p
	}
	if s.CurrentInstruction != nil {
		instr := *s.CurrentInstruction
		out.CurrentInstruction = &instr
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	return out
}

// Session owns the state of one game table and sequences its turns. All
// methods are safe for concurrent use; each one applies its changes under a
// single lock and returns the events it produced.
type Session struct {
	mu        sync.Mutex
	rng       domain.Rand
	logger    runtime.Logger
	cfg       config.GameConfig
	settings  ports.Settings
	generator domain.Generator
	st        State
}

// NewSession constructs a Session in setup state with the default roster.
// rng may be nil to use a time-seeded default; logger may be nil.
func NewSession(cfg config.GameConfig, settings ports.Settings, rng domain.Rand, logger runtime.Logger) *Session {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Session{
		rng:      rng,
		logger:   logger,
		cfg:      cfg,
		settings: settings,
		st: State{
			Players:           domain.DefaultRoster(),
			DurationMinutes:   cfg.DefaultDurationMinutes,
			Status:            domain.StatusSetup,
			GameTimeRemaining: cfg.DefaultDurationMinutes * SecondsPerMinute,
			IsGamePaused:      true,
		},
	}
	s.generator = s.newGenerator()
	return s
}

func (s *Session) newGenerator() domain.Generator {
	mode := domain.GameMode(s.settings.GameMode)
	if mode == "" {
		mode = domain.GameMode(s.cfg.GameMode)
	}
	return domain.NewGenerator(mode, domain.PoolByName(s.cfg.ContentPool), s.rng)
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

// Settings returns the preferences currently applied to the session.
func (s *Session) Settings() ports.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies new preferences. A game mode change takes effect on
// the next generated instruction.
func (s *Session) UpdateSettings(settings ports.Settings) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.generator = s.newGenerator()
	return []Event{{Kind: EventSettingsChanged, Payload: SettingsChangedPayload{Settings: settings}}}
}

// AddPlayer appends a player to the roster during setup.
func (s *Session) AddPlayer(name string) (domain.Player, []Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != domain.StatusSetup {
		return domain.Player{}, nil, ErrNotInSetup
	}
	players, added, err := domain.AddPlayer(s.st.Players, name)
	if err != nil {
		return domain.Player{}, nil, err
	}
	s.st.Players = players
	return added, []Event{s.rosterChanged()}, nil
}

// RemovePlayer drops a player from the roster during setup.
func (s *Session) RemovePlayer(id string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != domain.StatusSetup {
		return nil, ErrNotInSetup
	}
	players, err := domain.RemovePlayer(s.st.Players, id)
	if err != nil {
		return nil, err
	}
	s.st.Players = players
	return []Event{s.rosterChanged()}, nil
}

// RenamePlayer changes a player's display name. Allowed in any state.
func (s *Session) RenamePlayer(id, name string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := domain.RenamePlayer(s.st.Players, id, name); err != nil {
		return nil, err
	}
	if s.st.ActivePlayer != nil && s.st.ActivePlayer.ID == id {
		s.st.ActivePlayer, _ = s.findPlayer(id)
	}
	if s.st.Winner != nil && s.st.Winner.ID == id {
		s.st.Winner, _ = s.findPlayer(id)
	}
	return []Event{s.rosterChanged()}, nil
}

func (s *Session) rosterChanged() Event {
	return Event{Kind: EventRosterChanged, Payload: RosterChangedPayload{Players: slices.Clone(s.st.Players)}}
}

// InitializeSession starts a new game with players and a duration in minutes.
// A nil players slice keeps the current roster.
func (s *Session) InitializeSession(players []domain.Player, durationMinutes int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if players == nil {
		players = s.st.Players
	}
	return s.initializeLocked(players, durationMinutes)
}

func (s *Session) initializeLocked(players []domain.Player, durationMinutes int) ([]Event, error) {
	if err := domain.ValidateRoster(players); err != nil {
		return nil, fmt.Errorf("initialize session: %w", err)
	}
	if !domain.ValidDuration(durationMinutes, s.cfg.DurationsMinutes) {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}

	s.st = State{
		Players:           slices.Clone(players),
		DurationMinutes:   durationMinutes,
		Status:            domain.StatusPlaying,
		GameTimeRemaining: durationMinutes * SecondsPerMinute,
		IsGamePaused:      true,
	}

	events := []Event{{
		Kind:    EventSessionStarted,
		Payload: SessionStartedPayload{Players: slices.Clone(players), DurationMinutes: durationMinutes},
	}}
	ev, err := s.selectNextLocked()
	if err != nil {
		return nil, err
	}
	events = append(events, ev)

	s.logger.Info("Session started with %d players for %d minutes.", len(players), durationMinutes)
	return events, nil
}

// selectNextLocked picks the next active player from the turn history.
func (s *Session) selectNextLocked() (Event, error) {
	next, err := domain.SelectNext(s.st.Players, s.st.TurnHistory, s.rng)
	if err != nil {
		return Event{}, fmt.Errorf("select next player: %w", err)
	}
	s.st.ActivePlayer = &next
	s.logger.Debug("Next player: %s (%s) after %d turns.", next.Name, next.ID, len(s.st.TurnHistory))
	return Event{Kind: EventActivePlayerChanged, Payload: ActivePlayerChangedPayload{Player: next}}, nil
}

// StartTurn generates an instruction for the active player, computes its time
// budget and starts both clocks.
func (s *Session) StartTurn() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.Status != domain.StatusPlaying {
		return nil, ErrNotPlaying
	}
	if s.st.ActivePlayer == nil {
		return nil, ErrNoActivePlayer
	}
	if s.st.IsTurnActive || s.st.IsTurnTimedOut {
		return nil, ErrTurnInProgress
	}

	events := s.cue(nil, CueTurnStart)
	s.st.IsGamePaused = false

	instr := s.generator.Generate(slices.Clone(s.st.InstructionHistory), s.st.StacksExist)
	pct := domain.PercentRemaining(s.st.GameTimeRemaining, s.st.DurationMinutes)
	seconds := domain.CalculateTurnTime(instr.Pieces, len(s.st.InstructionHistory), pct)
	if s.settings.EasyMode {
		seconds += s.cfg.EasyModeBonusSeconds
	}

	s.st.CurrentInstruction = &instr
	s.st.TurnTimeRemaining = seconds
	s.st.IsTurnActive = true
	s.st.IsTurnTimedOut = false

	events = append(events, Event{
		Kind: EventTurnStarted,
		Payload: TurnStartedPayload{
			PlayerID:    s.st.ActivePlayer.ID,
			Instruction: instr,
			TurnSeconds: seconds,
		},
	})
	if s.settings.VoiceEnabled {
		events = append(events, Event{
			Kind:    EventInstructionAnnounced,
			Payload: InstructionAnnouncedPayload{Text: instr.Text, SecondaryText: instr.SecondaryText},
		})
	}

	s.logger.Debug("Turn started for %s: %s %q (%ds).", s.st.ActivePlayer.ID, instr.Type, instr.Text, seconds)
	return events, nil
}

// EndTurn completes the active player's turn. isManual distinguishes a player
// finishing the task from the end of a timed-out turn. A manual end needs a
// running turn; a timed-out turn is closed with AcknowledgeTimeout.
func (s *Session) EndTurn(isManual bool) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTurnLocked(isManual)
}

func (s *Session) endTurnLocked(isManual bool) ([]Event, error) {
	if s.st.Status != domain.StatusPlaying {
		return nil, ErrNotPlaying
	}
	if s.st.ActivePlayer == nil {
		return nil, ErrNoActivePlayer
	}
	if isManual && s.st.IsTurnTimedOut {
		return nil, ErrAwaitingAck
	}
	if !s.st.IsTurnActive && !s.st.IsTurnTimedOut {
		return nil, ErrNoTurnInProgress
	}

	var events []Event
	if isManual {
		events = s.cue(events, CueManualEnd)
	}
	events = s.pauseLocked(events)

	player := *s.st.ActivePlayer
	s.st.TurnHistory = append(s.st.TurnHistory, player.ID)

	instr := s.st.CurrentInstruction
	if instr != nil {
		s.st.InstructionHistory = append(s.st.InstructionHistory, *instr)
		switch instr.Type {
		case domain.InstructionNew:
			s.st.StacksExist = true
		case domain.InstructionKnock:
			s.st.StacksExist = false
		}
	}

	s.st.CurrentInstruction = nil
	s.st.TurnTimeRemaining = 0
	s.st.IsTurnActive = false
	s.st.IsTurnTimedOut = false

	events = append(events, Event{
		Kind:    EventTurnEnded,
		Payload: TurnEndedPayload{PlayerID: player.ID, Instruction: instr, Manual: isManual},
	})

	ev, err := s.selectNextLocked()
	if err != nil {
		return events, err
	}
	return append(events, ev), nil
}

// AcknowledgeTimeout closes a timed-out turn and moves on to the next player.
func (s *Session) AcknowledgeTimeout() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != domain.StatusPlaying {
		return nil, ErrNotPlaying
	}
	if !s.st.IsTurnTimedOut {
		return nil, ErrNoTimeout
	}
	return s.endTurnLocked(false)
}

// Pause stops both clocks. Pausing an already paused session does nothing.
func (s *Session) Pause() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseLocked(nil)
}

func (s *Session) pauseLocked(events []Event) []Event {
	if s.st.IsGamePaused {
		return events
	}
	s.st.IsGamePaused = true
	events = s.cue(events, CueCountdownStop)
	return append(events, Event{Kind: EventClockPaused})
}

// Resume restarts the clocks of a playing session.
func (s *Session) Resume() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != domain.StatusPlaying {
		return nil, ErrNotPlaying
	}
	if s.st.IsTurnTimedOut {
		return nil, ErrAwaitingAck
	}
	if !s.st.IsGamePaused {
		return nil, nil
	}
	s.st.IsGamePaused = false
	return []Event{{Kind: EventClockResumed}}, nil
}

// Tick advances the clocks by one second. It is called once per second by the
// host loop and does nothing while the session is paused or not playing.
func (s *Session) Tick() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.Status != domain.StatusPlaying || s.st.IsGamePaused {
		return nil
	}

	gameTime := s.st.GameTimeRemaining
	turnTime := s.st.TurnTimeRemaining

	if gameTime <= 1 {
		s.st.GameTimeRemaining = 0
		s.st.Status = domain.StatusFinished
		s.st.IsGamePaused = true
		s.st.IsTurnActive = false

		events := s.cue(nil, CueCountdownStop)
		events = s.cue(events, CueGameOver)
		s.logger.Info("Game over after %d turns.", len(s.st.TurnHistory))
		return append(events, Event{Kind: EventGameOver, Payload: GameOverPayload{TurnsPlayed: len(s.st.TurnHistory)}})
	}
	gameTime--

	var events []Event
	if s.st.IsTurnActive {
		turnTime--
		if turnTime <= 0 {
			turnTime = 0
			s.st.IsTurnActive = false
			s.st.IsGamePaused = true
			s.st.IsTurnTimedOut = true

			events = s.cue(events, CueCountdownStop)
			events = s.cue(events, CueTimeout)
			events = append(events, Event{Kind: EventTurnTimedOut, Payload: TurnTimedOutPayload{PlayerID: s.st.ActivePlayer.ID}})
			s.logger.Debug("Turn timed out for %s.", s.st.ActivePlayer.ID)
		} else if s.cfg.CountdownCueSeconds > 0 && turnTime == s.cfg.CountdownCueSeconds {
			events = s.cue(events, CueCountdown)
		}
	}

	s.st.GameTimeRemaining = gameTime
	s.st.TurnTimeRemaining = turnTime
	return events
}

// Reset abandons the game and returns to setup, keeping the roster.
func (s *Session) Reset() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.pauseLocked(nil)
	s.st = State{
		Players:           s.st.Players,
		DurationMinutes:   s.st.DurationMinutes,
		Status:            domain.StatusSetup,
		GameTimeRemaining: s.st.DurationMinutes * SecondsPerMinute,
		IsGamePaused:      true,
	}
	return append(events, Event{Kind: EventSessionReset})
}

// DeclareWinner records the winner picked by the players after the game ends.
func (s *Session) DeclareWinner(playerID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != domain.StatusFinished && s.st.Status != domain.StatusWinner {
		return nil, ErrNotFinished
	}
	winner, ok := s.findPlayer(playerID)
	if !ok {
		return nil, fmt.Errorf("declare winner %s: %w", playerID, domain.ErrUnknownPlayer)
	}
	s.st.Status = domain.StatusWinner
	s.st.Winner = winner
	return []Event{{Kind: EventWinnerDeclared, Payload: WinnerDeclaredPayload{Winner: *winner}}}, nil
}

// Rematch starts a new game with the same roster and duration.
func (s *Session) Rematch() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Status != domain.StatusFinished && s.st.Status != domain.StatusWinner {
		return nil, ErrNotFinished
	}
	return s.initializeLocked(s.st.Players, s.st.DurationMinutes)
}

func (s *Session) findPlayer(id string) (*domain.Player, bool) {
	p, ok := domain.FindPlayer(s.st.Players, id)
	if !ok {
		return nil, false
	}
	return &p, true
}

// cue appends a sound cue unless sound is switched off.
func (s *Session) cue(events []Event, c Cue) []Event {
	if !s.settings.SoundEnabled {
		return events
	}
	return append(events, Event{Kind: EventCue, Payload: CuePayload{Cue: c}})
}
