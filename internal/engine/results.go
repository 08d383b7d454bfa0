package engine

import (
	"sort"
	"time"
)

type Result struct {
	Name               string        `json:"name"`
	Position           int           `json:"position"`
	WPM                float64       `json:"wpm"`
	Accuracy           float64       `json:"accuracy"`
	Progress           float64       `json:"progress"`
	FinishOffset       time.Duration `json:"-"`
	FinishOffsetMillis int64         `json:"finish_offset_ms"`
	Finished           bool          `json:"finished"`
	Simulated          bool          `json:"is_simulated"`
	XP                 int           `json:"xp"`
}

// Rank orders finishers by offset, ties broken by the order their finish was
// processed, then stragglers by descending progress. Positions are 1-based.
func Rank(participants []*Participant) []Result {
	var finished, stragglers []*Participant
	for _, p := range participants {
		if p.Finished {
			finished = append(finished, p)
		} else {
			stragglers = append(stragglers, p)
		}
	}

	sort.SliceStable(finished, func(i, j int) bool {
		if finished[i].FinishOffset != finished[j].FinishOffset {
			return finished[i].FinishOffset < finished[j].FinishOffset
		}
		return finished[i].Position < finished[j].Position
	})
	sort.SliceStable(stragglers, func(i, j int) bool {
		return stragglers[i].Progress > stragglers[j].Progress
	})

	results := make([]Result, 0, len(participants))
	for _, p := range append(finished, stragglers...) {
		res := Result{
			Name:      p.Name,
			Position:  len(results) + 1,
			WPM:       p.WPM,
			Accuracy:  p.Accuracy,
			Progress:  p.Progress,
			Finished:  p.Finished,
			Simulated: p.Simulated,
			XP:        p.XP,
		}
		if p.Finished {
			res.FinishOffset = p.FinishOffset
			res.FinishOffsetMillis = p.FinishOffset.Milliseconds()
		}
		results = append(results, res)
	}
	return results
}
