package types

// Participant is the public view of a racer. Sessions never leave the server.
type Participant struct {
	Name      string            `json:"name"`
	Simulated bool              `json:"is_simulated"`
	Ready     bool              `json:"ready"`
	Progress  float64           `json:"progress"`
	WPM       float64           `json:"wpm"`
	Accuracy  float64           `json:"accuracy"`
	Finished  bool              `json:"finished"`
	Position  int               `json:"position,omitempty"`
	Cosmetics map[string]string `json:"cosmetics,omitempty"`
}

type Result struct {
	Name           string  `json:"name"`
	Position       int     `json:"position"`
	WPM            float64 `json:"wpm"`
	Accuracy       float64 `json:"accuracy"`
	Progress       float64 `json:"progress"`
	FinishOffsetMS int64   `json:"finish_offset_ms"`
	Finished       bool    `json:"finished"`
	Simulated      bool    `json:"is_simulated"`
	XP             int     `json:"xp"`
}

// Room is what GET /rooms and GET /rooms/{code} return.
type Room struct {
	Code               string        `json:"code"`
	Status             string        `json:"status"`
	Version            int           `json:"version"`
	Clients            int           `json:"clients"`
	Prompt             string        `json:"prompt,omitempty"`
	RaceID             string        `json:"race_id,omitempty"`
	CountdownRemaining int           `json:"countdown_remaining,omitempty"`
	Participants       []Participant `json:"participants"`
	Results            []Result      `json:"results,omitempty"`
}
