package nakama

import (
	"scaffold/internal/app"
	"scaffold/internal/domain"
	"scaffold/internal/ports"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var jsonOptions = protojson.MarshalOptions{EmitUnpopulated: true}

// marshalFields encodes a JSON-compatible map as a protojson Struct.
func marshalFields(fields map[string]interface{}) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return jsonOptions.Marshal(s)
}

// labelFields builds the match label used by listing queries.
func labelFields(st app.State) map[string]interface{} {
	return map[string]interface{}{
		"game":    MatchLabelGame,
		"status":  string(st.Status),
		"players": len(st.Players),
	}
}

// snapshotFields flattens a session snapshot for OpStateSnapshot.
func snapshotFields(st app.State, tick int64) map[string]interface{} {
	players := make([]interface{}, 0, len(st.Players))
	for _, p := range st.Players {
		players = append(players, playerFields(p))
	}
	turns := make([]interface{}, 0, len(st.TurnHistory))
	for _, id := range st.TurnHistory {
		turns = append(turns, id)
	}
	instructions := make([]interface{}, 0, len(st.InstructionHistory))
	for _, instr := range st.InstructionHistory {
		instructions = append(instructions, instructionFields(instr))
	}

	fields := map[string]interface{}{
		"tick":                tick,
		"players":             players,
		"duration_minutes":    st.DurationMinutes,
		"status":              string(st.Status),
		"stacks_exist":        st.StacksExist,
		"game_time_remaining": st.GameTimeRemaining,
		"turn_time_remaining": st.TurnTimeRemaining,
		"is_game_paused":      st.IsGamePaused,
		"is_turn_active":      st.IsTurnActive,
		"is_turn_timed_out":   st.IsTurnTimedOut,
		"turn_history":        turns,
		"instruction_history": instructions,
		"active_player":       nil,
		"current_instruction": nil,
		"winner":              nil,
	}
	if st.ActivePlayer != nil {
		fields["active_player"] = playerFields(*st.ActivePlayer)
	}
	if st.CurrentInstruction != nil {
		fields["current_instruction"] = instructionFields(*st.CurrentInstruction)
	}
	if st.Winner != nil {
		fields["winner"] = playerFields(*st.Winner)
	}
	return fields
}

func playerFields(p domain.Player) map[string]interface{} {
	return map[string]interface{}{
		"id":   p.ID,
		"name": p.Name,
	}
}

func instructionFields(instr domain.Instruction) map[string]interface{} {
	return map[string]interface{}{
		"id":             instr.ID,
		"type":           string(instr.Type),
		"pieces":         instr.Pieces,
		"orientation":    instr.Orientation,
		"text":           instr.Text,
		"secondary_text": instr.SecondaryText,
	}
}

func settingsFields(settings ports.Settings) map[string]interface{} {
	return map[string]interface{}{
		"game_mode":     settings.GameMode,
		"sound_enabled": settings.SoundEnabled,
		"voice_enabled": settings.VoiceEnabled,
		"easy_mode":     settings.EasyMode,
	}
}
