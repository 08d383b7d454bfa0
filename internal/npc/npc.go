// Package npc simulates typists for rooms that do not have enough humans.
//
// All randomness comes from the *rand.Rand passed in, so a seeded source
// replays the same race.
package npc

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	CharsPerWord = 5

	MinPaceScale = 0.8
	MaxPaceScale = 1.2

	WPMJitter = 0.2

	MinAccuracy = 85.0
	MaxAccuracy = 100.0
)

var callSigns = []string{
	"Ghost", "Viper", "Nova", "Rook", "Echo", "Jinx", "Blitz", "Comet",
	"Quill", "Sparrow", "Tempo", "Flux", "Cipher", "Dash", "Ember", "Pixel",
}

var factions = []string{"Crimson Keys", "Azure Shift", "Iron Tab", "Neon Caps"}

type Profile struct {
	Name      string
	Faction   string
	TargetWPM float64
}

// Profiles draws n simulated typists whose names are not in taken. Target
// speeds are uniform in [minWPM, maxWPM].
func Profiles(rng *rand.Rand, n int, taken map[string]bool, minWPM, maxWPM float64) []Profile {
	if n <= 0 {
		return nil
	}
	if maxWPM < minWPM {
		minWPM, maxWPM = maxWPM, minWPM
	}

	names := make([]string, 0, n)
	for _, i := range rng.Perm(len(callSigns)) {
		if len(names) == n {
			break
		}
		if !taken[callSigns[i]] {
			names = append(names, callSigns[i])
		}
	}
	for suffix := 2; len(names) < n; suffix++ {
		name := fmt.Sprintf("Bot %d", suffix)
		if !taken[name] {
			names = append(names, name)
		}
	}

	profiles := make([]Profile, 0, n)
	for _, name := range names {
		profiles = append(profiles, Profile{
			Name:      name,
			Faction:   factions[rng.Intn(len(factions))],
			TargetWPM: minWPM + rng.Float64()*(maxWPM-minWPM),
		})
	}
	return profiles
}

// ExpectedDuration is how long a typist at targetWPM needs for promptLength
// characters.
func ExpectedDuration(targetWPM float64, promptLength int) time.Duration {
	if promptLength <= 0 {
		return 0
	}
	if targetWPM <= 0 {
		targetWPM = 1
	}
	charsPerSecond := targetWPM * CharsPerWord / 60
	seconds := float64(promptLength) / charsPerSecond
	return time.Duration(seconds * float64(time.Second))
}

// Plan is one bot's run through a prompt.
type Plan struct {
	TargetWPM float64
	Duration  time.Duration
}

func NewPlan(rng *rand.Rand, targetWPM float64, promptLength int) Plan {
	scale := MinPaceScale + rng.Float64()*(MaxPaceScale-MinPaceScale)
	expected := ExpectedDuration(targetWPM, promptLength)
	return Plan{
		TargetWPM: targetWPM,
		Duration:  time.Duration(float64(expected) * scale),
	}
}

type Sample struct {
	Progress float64
	WPM      float64
	Accuracy float64
	Done     bool
}

// Sample reports where the bot is after elapsed. Progress is linear in time;
// wpm and accuracy are redrawn on every call.
func (p Plan) Sample(rng *rand.Rand, elapsed time.Duration) Sample {
	progress := 1.0
	if p.Duration > 0 {
		progress = math.Min(1, math.Max(0, float64(elapsed)/float64(p.Duration)))
	}
	jitter := 1 - WPMJitter + rng.Float64()*2*WPMJitter
	return Sample{
		Progress: progress,
		WPM:      math.Max(0, p.TargetWPM*jitter),
		Accuracy: MinAccuracy + rng.Float64()*(MaxAccuracy-MinAccuracy),
		Done:     progress >= 1,
	}
}
