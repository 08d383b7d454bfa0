package ws

import (
	"github.com/DoyleJ11/keyrace/internal/engine"
	"github.com/DoyleJ11/keyrace/internal/room"
	"github.com/DoyleJ11/keyrace/pkg/types"
)

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case types.ClientJoin:
		return engine.Command{Type: engine.CmdJoin, Name: m.Name, Identity: m.Identity, Cosmetics: m.Cosmetics}, true
	case types.ClientReady:
		return engine.Command{Type: engine.CmdSetReady, Ready: m.Ready}, true
	case types.ClientProgress:
		return engine.Command{Type: engine.CmdProgress, Progress: m.Progress, WPM: m.WPM, Accuracy: m.Accuracy}, true
	case types.ClientFinish:
		return engine.Command{Type: engine.CmdFinish, WPM: m.WPM, Accuracy: m.Accuracy}, true
	default:
		return engine.Command{}, false
	}
}

func toServerMessage(n room.Notification) types.ServerMessage {
	return types.ServerMessage{
		Type:             string(n.Kind),
		Version:          n.Version,
		Status:           string(n.Status),
		Participants:     Participants(n.Participants),
		SecondsRemaining: n.SecondsRemaining,
		Prompt:           n.Prompt,
		RaceID:           n.RaceID,
		Name:             n.Name,
		Progress:         n.Progress,
		WPM:              n.WPM,
		Accuracy:         n.Accuracy,
		Finished:         n.Finished,
		Position:         n.Position,
		Results:          Results(n.Results),
		Error:            n.Error,
	}
}

// Participants strips server-only fields for the wire.
func Participants(in []engine.Participant) []types.Participant {
	if in == nil {
		return nil
	}
	out := make([]types.Participant, 0, len(in))
	for _, p := range in {
		out = append(out, types.Participant{
			Name:      p.Name,
			Simulated: p.Simulated,
			Ready:     p.Ready,
			Progress:  p.Progress,
			WPM:       p.WPM,
			Accuracy:  p.Accuracy,
			Finished:  p.Finished,
			Position:  p.Position,
			Cosmetics: p.Cosmetics,
		})
	}
	return out
}

func Results(in []engine.Result) []types.Result {
	if in == nil {
		return nil
	}
	out := make([]types.Result, 0, len(in))
	for _, r := range in {
		out = append(out, types.Result{
			Name:           r.Name,
			Position:       r.Position,
			WPM:            r.WPM,
			Accuracy:       r.Accuracy,
			Progress:       r.Progress,
			FinishOffsetMS: r.FinishOffsetMillis,
			Finished:       r.Finished,
			Simulated:      r.Simulated,
			XP:             r.XP,
		})
	}
	return out
}

// RoomView is the HTTP shape of a room's state.
func RoomView(v room.View) types.Room {
	participants := Participants(v.Participants)
	if participants == nil {
		participants = []types.Participant{}
	}
	return types.Room{
		Code:               v.Code,
		Status:             string(v.Status),
		Version:            v.Version,
		Clients:            v.NumClients,
		Prompt:             v.Prompt,
		RaceID:             v.RaceID,
		CountdownRemaining: v.CountdownRemaining,
		Participants:       participants,
		Results:            Results(v.Results),
	}
}
