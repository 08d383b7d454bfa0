package engine

import (
	"math"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 24

// Anything above this is a broken client, not a typist.
const maxWPM = 400

// Snapshot returns copies of the participants still connected to the room.
func (r *Race) Snapshot() []Participant {
	out := make([]Participant, 0, r.roster.Len())
	for _, p := range r.roster.All() {
		if p.Left {
			continue
		}
		out = append(out, p.clone())
	}
	return out
}

// NameForSession resolves a transport session to the display name it joined
// with.
func (r *Race) NameForSession(session string) (string, bool) {
	p := r.roster.BySession(session)
	if p == nil {
		return "", false
	}
	return p.Name, true
}

// Bots returns the simulated participants that still have to cross the line.
func (r *Race) Bots() []Participant {
	var out []Participant
	for _, p := range r.roster.All() {
		if p.Simulated && !p.Finished {
			out = append(out, p.clone())
		}
	}
	return out
}

func (r *Race) Humans() int { return r.roster.Humans() }

func validName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name {
		return false
	}
	return utf8.RuneCountInString(name) <= maxNameLength
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func typedChars(progress float64, promptLength int) int {
	return int(math.Round(clamp(progress, 0, 1) * float64(promptLength)))
}
