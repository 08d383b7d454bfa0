package room

import (
	"time"

	"github.com/DoyleJ11/keyrace/internal/engine"
)

type Kind string

const (
	KindParticipants  Kind = "participants"
	KindCountdown     Kind = "countdown"
	KindRaceStarted   Kind = "race_started"
	KindProgress      Kind = "progress"
	KindGrace         Kind = "grace_started"
	KindRaceCompleted Kind = "race_completed"
	KindRoomReset     Kind = "room_reset"
	KindError         Kind = "error"
)

// Notification is what a room pushes to its subscribers. Only the fields
// relevant to Kind are set.
type Notification struct {
	Kind    Kind
	Version int
	Status  engine.Status

	Participants     []engine.Participant
	SecondsRemaining int
	Prompt           string
	RaceID           string

	Name     string
	Progress float64
	WPM      float64
	Accuracy float64
	Finished bool
	Position int

	Results []engine.Result
	Error   string
}

type View struct {
	Code               string
	Version            int
	NumClients         int
	Status             engine.Status
	Epoch              int
	Prompt             string
	RaceID             string
	StartedAt          time.Time
	CountdownRemaining int
	Participants       []engine.Participant
	Results            []engine.Result
	ArmedTimers        int
}
