package types

// Client -> Server
//   join:     name, identity?, cosmetics?
//   ready:    ready
//   progress: progress (0..1), wpm, accuracy
//   finish:   wpm, accuracy
// Leaving is implicit when the socket closes.
//
// Server -> Client
//   participants:   participants[], prompt? race_id? (while a race runs)
//   countdown:      seconds_remaining
//   race_started:   prompt, race_id
//   progress:       name, progress, wpm, accuracy, finished, position
//   grace_started:  name, seconds_remaining
//   race_completed: race_id, results[]
//   room_reset
//   error:          error
// Every server message carries version and status.

const (
	ClientJoin     = "join"
	ClientReady    = "ready"
	ClientProgress = "progress"
	ClientFinish   = "finish"
)

type ClientMessage struct {
	Type      string            `json:"type"`
	Name      string            `json:"name,omitempty"`
	Identity  string            `json:"identity,omitempty"`
	Cosmetics map[string]string `json:"cosmetics,omitempty"`
	Ready     bool              `json:"ready,omitempty"`
	Progress  float64           `json:"progress,omitempty"`
	WPM       float64           `json:"wpm,omitempty"`
	Accuracy  float64           `json:"accuracy,omitempty"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Status  string `json:"status,omitempty"`

	Participants     []Participant `json:"participants,omitempty"`
	SecondsRemaining int           `json:"seconds_remaining,omitempty"`
	Prompt           string        `json:"prompt,omitempty"`
	RaceID           string        `json:"race_id,omitempty"`

	Name     string  `json:"name,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	WPM      float64 `json:"wpm,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
	Finished bool    `json:"finished,omitempty"`
	Position int     `json:"position,omitempty"`

	Results []Result `json:"results,omitempty"`
	Error   string   `json:"error,omitempty"`
}
