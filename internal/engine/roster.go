package engine

import "time"

type Participant struct {
	Name         string
	Session      string
	Identity     string
	Simulated    bool
	Ready        bool
	Progress     float64
	WPM          float64
	Accuracy     float64
	Finished     bool
	FinishOffset time.Duration
	Position     int
	XP           int
	Rewarded     bool
	Left         bool
	TargetWPM    float64
	Cosmetics    map[string]string
}

func (p *Participant) resetRaceFields() {
	p.Progress = 0
	p.WPM = 0
	p.Accuracy = 100
	p.Finished = false
	p.FinishOffset = 0
	p.Position = 0
	p.XP = 0
	p.Rewarded = false
}

func (p *Participant) clone() Participant {
	c := *p
	if p.Cosmetics != nil {
		c.Cosmetics = make(map[string]string, len(p.Cosmetics))
		for k, v := range p.Cosmetics {
			c.Cosmetics[k] = v
		}
	}
	return c
}

// Roster keeps participants in join order, keyed by display name.
type Roster struct {
	order  []*Participant
	byName map[string]*Participant
}

func NewRoster() *Roster {
	return &Roster{byName: make(map[string]*Participant)}
}

func (r *Roster) Add(p *Participant) {
	if _, ok := r.byName[p.Name]; ok {
		return
	}
	r.order = append(r.order, p)
	r.byName[p.Name] = p
}

func (r *Roster) Get(name string) *Participant { return r.byName[name] }

func (r *Roster) BySession(session string) *Participant {
	if session == "" {
		return nil
	}
	for _, p := range r.order {
		if p.Session == session {
			return p
		}
	}
	return nil
}

func (r *Roster) Remove(name string) {
	if _, ok := r.byName[name]; !ok {
		return
	}
	delete(r.byName, name)
	r.removeWhere(func(p *Participant) bool { return p.Name == name })
}

func (r *Roster) RemoveBots() {
	r.removeWhere(func(p *Participant) bool { return p.Simulated })
}

func (r *Roster) RemoveLeft() {
	r.removeWhere(func(p *Participant) bool { return p.Left })
}

func (r *Roster) removeWhere(drop func(*Participant) bool) {
	kept := r.order[:0]
	for _, p := range r.order {
		if drop(p) {
			delete(r.byName, p.Name)
			continue
		}
		kept = append(kept, p)
	}
	clear(r.order[len(kept):])
	r.order = kept
}

// LastBot returns the most recently added simulated participant.
func (r *Roster) LastBot() *Participant {
	for i := len(r.order) - 1; i >= 0; i-- {
		if r.order[i].Simulated {
			return r.order[i]
		}
	}
	return nil
}

func (r *Roster) All() []*Participant { return r.order }

func (r *Roster) Len() int { return len(r.order) }

// Humans counts connected, non-simulated participants.
func (r *Roster) Humans() int {
	n := 0
	for _, p := range r.order {
		if !p.Simulated && !p.Left {
			n++
		}
	}
	return n
}

func (r *Roster) Names() map[string]bool {
	names := make(map[string]bool, len(r.order))
	for _, p := range r.order {
		names[p.Name] = true
	}
	return names
}
