package app

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"scaffold/internal/config"
	"scaffold/internal/domain"
	"scaffold/internal/ports"
)

func twoPlayers() []domain.Player {
	return []domain.Player{{ID: "p1", Name: "Ada"}, {ID: "p2", Name: "Bo"}}
}

func newTestSession(seed int64, settings ports.Settings) *Session {
	return NewSession(config.Default(), settings, rand.New(rand.NewSource(seed)), nil)
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func countCue(events []Event, cue Cue) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == EventCue && ev.Payload.(CuePayload).Cue == cue {
			n++
		}
	}
	return n
}

func mustInit(t *testing.T, s *Session, players []domain.Player, minutes int) {
	t.Helper()
	if _, err := s.InitializeSession(players, minutes); err != nil {
		t.Fatalf("InitializeSession error: %v", err)
	}
}

func TestInitializeAndStartTurn(t *testing.T) {
	s := newTestSession(1, ports.DefaultSettings())

	evs, err := s.InitializeSession(twoPlayers(), 5)
	if err != nil {
		t.Fatalf("InitializeSession error: %v", err)
	}
	if countKind(evs, EventSessionStarted) != 1 || countKind(evs, EventActivePlayerChanged) != 1 {
		t.Fatalf("unexpected init events: %+v", evs)
	}

	st := s.State()
	if st.Status != domain.StatusPlaying || st.GameTimeRemaining != 300 || !st.IsGamePaused {
		t.Fatalf("unexpected state after init: %+v", st)
	}
	if st.ActivePlayer == nil {
		t.Fatalf("expected an active player")
	}

	evs, err = s.StartTurn()
	if err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}
	st = s.State()
	if st.CurrentInstruction == nil || st.CurrentInstruction.Type != domain.InstructionNew {
		t.Fatalf("first instruction = %+v, want NEW", st.CurrentInstruction)
	}
	if st.TurnTimeRemaining < 10 || st.TurnTimeRemaining > 40 {
		t.Fatalf("turn time = %d, want within [10, 40]", st.TurnTimeRemaining)
	}
	if !st.IsTurnActive || st.IsGamePaused {
		t.Fatalf("turn should be active with the clock running: %+v", st)
	}
	if countCue(evs, CueTurnStart) != 1 || countKind(evs, EventTurnStarted) != 1 || countKind(evs, EventInstructionAnnounced) != 1 {
		t.Fatalf("unexpected start turn events: %+v", evs)
	}
}

func TestTickFinishesGameOnce(t *testing.T) {
	s := newTestSession(2, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 5)
	if _, err := s.Resume(); err != nil {
		t.Fatalf("Resume error: %v", err)
	}

	gameOver := 0
	for i := 0; i < 300; i++ {
		gameOver += countKind(s.Tick(), EventGameOver)
	}
	st := s.State()
	if st.GameTimeRemaining != 0 || st.Status != domain.StatusFinished {
		t.Fatalf("unexpected state after 300 ticks: remaining=%d status=%s", st.GameTimeRemaining, st.Status)
	}

	for i := 0; i < 10; i++ {
		gameOver += countKind(s.Tick(), EventGameOver)
	}
	if gameOver != 1 {
		t.Fatalf("game over events = %d, want 1", gameOver)
	}
	if !s.State().IsGamePaused {
		t.Fatalf("clock should be paused once the game is over")
	}
}

func TestTurnTimeoutRequiresAcknowledgement(t *testing.T) {
	s := newTestSession(3, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 10)
	if _, err := s.StartTurn(); err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}

	before := s.State()
	budget := before.TurnTimeRemaining

	var timedOut, countdown int
	for i := 0; i < budget; i++ {
		evs := s.Tick()
		timedOut += countKind(evs, EventTurnTimedOut)
		countdown += countCue(evs, CueCountdown)
	}
	if timedOut != 1 {
		t.Fatalf("timed out events = %d, want 1", timedOut)
	}
	if countdown != 1 {
		t.Fatalf("countdown cues = %d, want 1 for a %ds turn", countdown, budget)
	}

	st := s.State()
	if !st.IsTurnTimedOut || st.IsTurnActive || !st.IsGamePaused {
		t.Fatalf("unexpected flags after timeout: %+v", st)
	}
	if len(st.TurnHistory) != 0 || st.ActivePlayer.ID != before.ActivePlayer.ID {
		t.Fatalf("timeout must not advance the player")
	}
	if st.GameTimeRemaining != 600-budget {
		t.Fatalf("game time = %d, want %d", st.GameTimeRemaining, 600-budget)
	}

	if evs := s.Tick(); len(evs) != 0 {
		t.Fatalf("paused session should not tick, got %+v", evs)
	}
	if _, err := s.Resume(); !errors.Is(err, ErrAwaitingAck) {
		t.Fatalf("Resume err = %v, want ErrAwaitingAck", err)
	}
	if _, err := s.StartTurn(); !errors.Is(err, ErrTurnInProgress) {
		t.Fatalf("StartTurn err = %v, want ErrTurnInProgress", err)
	}
	if evs, err := s.EndTurn(true); !errors.Is(err, ErrAwaitingAck) || len(evs) != 0 {
		t.Fatalf("manual EndTurn on a timed-out turn = %+v, %v, want ErrAwaitingAck", evs, err)
	}
	if st := s.State(); !st.IsTurnTimedOut || len(st.TurnHistory) != 0 || st.CurrentInstruction == nil {
		t.Fatalf("rejected EndTurn changed state: %+v", st)
	}

	evs, err := s.AcknowledgeTimeout()
	if err != nil {
		t.Fatalf("AcknowledgeTimeout error: %v", err)
	}
	if countCue(evs, CueManualEnd) != 0 || countKind(evs, EventTurnEnded) != 1 {
		t.Fatalf("unexpected acknowledge events: %+v", evs)
	}

	st = s.State()
	if st.IsTurnTimedOut || st.CurrentInstruction != nil || st.TurnTimeRemaining != 0 {
		t.Fatalf("turn state not cleared: %+v", st)
	}
	if len(st.TurnHistory) != 1 || len(st.InstructionHistory) != 1 || !st.StacksExist {
		t.Fatalf("histories not updated: %+v", st)
	}
}

func TestAcknowledgeWithoutTimeout(t *testing.T) {
	s := newTestSession(4, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 5)
	if _, err := s.AcknowledgeTimeout(); !errors.Is(err, ErrNoTimeout) {
		t.Fatalf("err = %v, want ErrNoTimeout", err)
	}
}

func TestManualEndTurn(t *testing.T) {
	s := newTestSession(5, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 5)
	if _, err := s.StartTurn(); err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}
	player := s.State().ActivePlayer.ID

	evs, err := s.EndTurn(true)
	if err != nil {
		t.Fatalf("EndTurn error: %v", err)
	}
	if countCue(evs, CueManualEnd) != 1 || countCue(evs, CueCountdownStop) != 1 {
		t.Fatalf("unexpected cues: %+v", evs)
	}
	if countKind(evs, EventActivePlayerChanged) != 1 {
		t.Fatalf("expected the next player to be selected")
	}

	st := s.State()
	if st.TurnHistory[0] != player || !st.IsGamePaused || st.IsTurnActive {
		t.Fatalf("unexpected state after manual end: %+v", st)
	}
	for _, ev := range evs {
		if ev.Kind == EventTurnEnded {
			p := ev.Payload.(TurnEndedPayload)
			if !p.Manual || p.PlayerID != player || p.Instruction == nil {
				t.Fatalf("unexpected turn ended payload: %+v", p)
			}
		}
	}
}

func TestManualEndTurnNeedsRunningTurn(t *testing.T) {
	s := newTestSession(15, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 5)

	for i := 0; i < 3; i++ {
		if evs, err := s.EndTurn(true); !errors.Is(err, ErrNoTurnInProgress) || len(evs) != 0 {
			t.Fatalf("EndTurn before StartTurn = %+v, %v, want ErrNoTurnInProgress", evs, err)
		}
	}
	st := s.State()
	if len(st.TurnHistory) != 0 || len(st.InstructionHistory) != 0 {
		t.Fatalf("rejected EndTurn recorded history: %d turns, %d instructions", len(st.TurnHistory), len(st.InstructionHistory))
	}

	if _, err := s.StartTurn(); err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}
	if _, err := s.EndTurn(true); err != nil {
		t.Fatalf("EndTurn error: %v", err)
	}
	if _, err := s.EndTurn(true); !errors.Is(err, ErrNoTurnInProgress) {
		t.Fatalf("second EndTurn err = %v, want ErrNoTurnInProgress", err)
	}
	st = s.State()
	if len(st.TurnHistory) != 1 || len(st.InstructionHistory) != 1 {
		t.Fatalf("histories = %d/%d, want 1/1", len(st.TurnHistory), len(st.InstructionHistory))
	}
}

func TestPreconditions(t *testing.T) {
	s := newTestSession(6, ports.DefaultSettings())

	if _, err := s.StartTurn(); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("StartTurn in setup err = %v, want ErrNotPlaying", err)
	}
	if _, err := s.EndTurn(true); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("EndTurn in setup err = %v, want ErrNotPlaying", err)
	}
	if _, err := s.Resume(); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("Resume in setup err = %v, want ErrNotPlaying", err)
	}
	if _, err := s.InitializeSession([]domain.Player{{ID: "solo"}}, 5); !errors.Is(err, domain.ErrTooFewPlayers) {
		t.Fatalf("err = %v, want ErrTooFewPlayers", err)
	}
	if _, err := s.InitializeSession(twoPlayers(), 7); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("err = %v, want ErrInvalidDuration", err)
	}
	if s.State().Status != domain.StatusSetup {
		t.Fatalf("failed initialization must leave the session in setup")
	}

	mustInit(t, s, twoPlayers(), 5)
	if _, err := s.StartTurn(); err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}
	if _, err := s.StartTurn(); !errors.Is(err, ErrTurnInProgress) {
		t.Fatalf("second StartTurn err = %v, want ErrTurnInProgress", err)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	s := newTestSession(7, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 5)
	if _, err := s.StartTurn(); err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}

	evs := s.Pause()
	if countKind(evs, EventClockPaused) != 1 || countCue(evs, CueCountdownStop) != 1 {
		t.Fatalf("unexpected pause events: %+v", evs)
	}
	if evs := s.Pause(); len(evs) != 0 {
		t.Fatalf("second pause should be a no-op, got %+v", evs)
	}

	before := s.State()
	for i := 0; i < 5; i++ {
		s.Tick()
	}
	after := s.State()
	if after.GameTimeRemaining != before.GameTimeRemaining || after.TurnTimeRemaining != before.TurnTimeRemaining {
		t.Fatalf("clocks moved while paused")
	}

	if evs, err := s.Resume(); err != nil || countKind(evs, EventClockResumed) != 1 {
		t.Fatalf("Resume = %+v, %v", evs, err)
	}
	if evs, err := s.Resume(); err != nil || len(evs) != 0 {
		t.Fatalf("second Resume = %+v, %v", evs, err)
	}
	s.Tick()
	if got := s.State().TurnTimeRemaining; got != before.TurnTimeRemaining-1 {
		t.Fatalf("turn time = %d, want %d", got, before.TurnTimeRemaining-1)
	}
}

func TestEasyModeAddsBonus(t *testing.T) {
	normal := newTestSession(8, ports.DefaultSettings())
	easySettings := ports.DefaultSettings()
	easySettings.EasyMode = true
	easy := newTestSession(8, easySettings)

	for _, s := range []*Session{normal, easy} {
		mustInit(t, s, twoPlayers(), 10)
		if _, err := s.StartTurn(); err != nil {
			t.Fatalf("StartTurn error: %v", err)
		}
	}

	diff := easy.State().TurnTimeRemaining - normal.State().TurnTimeRemaining
	if diff != config.Default().EasyModeBonusSeconds {
		t.Fatalf("easy mode bonus = %d, want %d", diff, config.Default().EasyModeBonusSeconds)
	}
}

func TestMutedSessionEmitsNoCues(t *testing.T) {
	settings := ports.Settings{GameMode: "standard"}
	s := newTestSession(9, settings)
	mustInit(t, s, twoPlayers(), 5)

	var all []Event
	evs, _ := s.StartTurn()
	all = append(all, evs...)
	for i := 0; i < 50; i++ {
		all = append(all, s.Tick()...)
	}
	evs, _ = s.AcknowledgeTimeout()
	all = append(all, evs...)

	if countKind(all, EventCue) != 0 {
		t.Fatalf("muted session emitted cues: %+v", all)
	}
	if countKind(all, EventInstructionAnnounced) != 0 {
		t.Fatalf("voice disabled session announced instructions")
	}
	if countKind(all, EventTurnTimedOut) != 1 {
		t.Fatalf("expected the turn to time out")
	}
}

func TestResetAndRoster(t *testing.T) {
	s := newTestSession(10, ports.DefaultSettings())

	added, _, err := s.AddPlayer("Cleo")
	if err != nil {
		t.Fatalf("AddPlayer error: %v", err)
	}
	if _, err := s.RenamePlayer("1", "Ada"); err != nil {
		t.Fatalf("RenamePlayer error: %v", err)
	}
	mustInit(t, s, nil, 15)

	st := s.State()
	if len(st.Players) != 3 || st.Players[0].Name != "Ada" || st.Players[2].ID != added.ID {
		t.Fatalf("unexpected roster: %+v", st.Players)
	}
	if _, _, err := s.AddPlayer("late"); !errors.Is(err, ErrNotInSetup) {
		t.Fatalf("AddPlayer while playing err = %v, want ErrNotInSetup", err)
	}

	if _, err := s.StartTurn(); err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}
	evs := s.Reset()
	if countKind(evs, EventSessionReset) != 1 {
		t.Fatalf("expected reset event")
	}
	st = s.State()
	if st.Status != domain.StatusSetup || st.ActivePlayer != nil || st.IsTurnActive || !st.IsGamePaused {
		t.Fatalf("unexpected state after reset: %+v", st)
	}
	if len(st.Players) != 3 || st.GameTimeRemaining != 900 {
		t.Fatalf("reset should keep roster and duration: %+v", st)
	}

	if _, err := s.RemovePlayer(added.ID); err != nil {
		t.Fatalf("RemovePlayer error: %v", err)
	}
	if len(s.State().Players) != 2 {
		t.Fatalf("player not removed")
	}
}

func TestWinnerAndRematch(t *testing.T) {
	s := newTestSession(11, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 5)

	if _, err := s.DeclareWinner("p1"); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("err = %v, want ErrNotFinished", err)
	}

	s.Resume()
	for i := 0; i < 300; i++ {
		s.Tick()
	}
	if _, err := s.DeclareWinner("nobody"); !errors.Is(err, domain.ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
	if _, err := s.DeclareWinner("p2"); err != nil {
		t.Fatalf("DeclareWinner error: %v", err)
	}
	st := s.State()
	if st.Status != domain.StatusWinner || st.Winner == nil || st.Winner.ID != "p2" {
		t.Fatalf("unexpected state after winner: %+v", st)
	}

	if _, err := s.Rematch(); err != nil {
		t.Fatalf("Rematch error: %v", err)
	}
	st = s.State()
	if st.Status != domain.StatusPlaying || st.GameTimeRemaining != 300 || st.Winner != nil || len(st.TurnHistory) != 0 {
		t.Fatalf("rematch should start a fresh game: %+v", st)
	}
}

func TestRenameUpdatesWinner(t *testing.T) {
	s := newTestSession(16, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 5)
	s.Resume()
	for i := 0; i < 300; i++ {
		s.Tick()
	}
	if _, err := s.DeclareWinner("p2"); err != nil {
		t.Fatalf("DeclareWinner error: %v", err)
	}

	if _, err := s.RenamePlayer("p2", "Bobbie"); err != nil {
		t.Fatalf("RenamePlayer error: %v", err)
	}
	st := s.State()
	if st.Winner == nil || st.Winner.Name != "Bobbie" {
		t.Fatalf("winner = %+v, want renamed player", st.Winner)
	}
}

func TestLongGameKeepsInvariants(t *testing.T) {
	players := []domain.Player{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	s := newTestSession(12, ports.DefaultSettings())
	mustInit(t, s, players, 15)

	for turn := 0; turn < 60; turn++ {
		st := s.State()
		if _, ok := domain.FindPlayer(players, st.ActivePlayer.ID); !ok {
			t.Fatalf("active player %s not on the roster", st.ActivePlayer.ID)
		}
		if _, err := s.StartTurn(); err != nil {
			t.Fatalf("turn %d StartTurn error: %v", turn, err)
		}
		s.Tick()
		if _, err := s.EndTurn(true); err != nil {
			t.Fatalf("turn %d EndTurn error: %v", turn, err)
		}

		st = s.State()
		if len(st.TurnHistory) != turn+1 || len(st.InstructionHistory) != turn+1 {
			t.Fatalf("turn %d: history lengths %d/%d", turn, len(st.TurnHistory), len(st.InstructionHistory))
		}
		counts := map[string]int{}
		for _, id := range st.TurnHistory {
			counts[id]++
		}
		lo, hi := counts["a"], counts["a"]
		for _, p := range players {
			lo = min(lo, counts[p.ID])
			hi = max(hi, counts[p.ID])
		}
		if hi-lo > domain.MaxTurnSpread {
			t.Fatalf("turn %d: spread %d exceeds %d", turn, hi-lo, domain.MaxTurnSpread)
		}
		if !st.StacksExist {
			t.Fatalf("turn %d: stacks should exist after the opening NEW", turn)
		}
	}
	if got := s.State().GameTimeRemaining; got != 900-60 {
		t.Fatalf("game time = %d, want %d", got, 900-60)
	}
}

func TestExperimentalModeFromSettings(t *testing.T) {
	settings := ports.DefaultSettings()
	settings.GameMode = string(domain.ModeExperimental)
	s := newTestSession(13, settings)
	mustInit(t, s, twoPlayers(), 5)
	if _, err := s.StartTurn(); err != nil {
		t.Fatalf("StartTurn error: %v", err)
	}
	if got := s.State().CurrentInstruction.Type; got != domain.InstructionNew {
		t.Fatalf("opening instruction = %s, want NEW", got)
	}
	if _, ok := s.generator.(*domain.ExperimentalGenerator); !ok {
		t.Fatalf("expected experimental generator, got %T", s.generator)
	}

	evs := s.UpdateSettings(ports.DefaultSettings())
	if countKind(evs, EventSettingsChanged) != 1 || evs[0].Payload.(SettingsChangedPayload).Settings != ports.DefaultSettings() {
		t.Fatalf("unexpected settings events: %+v", evs)
	}
	if _, ok := s.generator.(*domain.StandardGenerator); !ok {
		t.Fatalf("expected standard generator after update, got %T", s.generator)
	}
}

func TestConcurrentTickAndEndTurn(t *testing.T) {
	s := newTestSession(14, ports.DefaultSettings())
	mustInit(t, s, twoPlayers(), 10)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Tick()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := s.StartTurn(); err == nil {
				s.EndTurn(true)
			} else if errors.Is(err, ErrTurnInProgress) {
				s.AcknowledgeTimeout()
			}
		}
	}()
	wg.Wait()

	st := s.State()
	if len(st.TurnHistory) != len(st.InstructionHistory) {
		t.Fatalf("histories diverged: %d turns, %d instructions", len(st.TurnHistory), len(st.InstructionHistory))
	}
	if st.GameTimeRemaining > 600 || st.GameTimeRemaining < 0 {
		t.Fatalf("game time out of range: %d", st.GameTimeRemaining)
	}
}
