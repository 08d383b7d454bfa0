package engine

import "math"

// BaseReward is paid to everyone who takes part, finished or not.
const BaseReward = 10

// PositionMultiplier scales typed characters by placing.
func PositionMultiplier(position int) float64 {
	switch {
	case position == 1:
		return 1.0
	case position == 2:
		return 0.5
	case position == 3:
		return 0.33
	default:
		return 0.25
	}
}

// Reward maps a placing and the characters typed to an experience award.
// charactersTyped is clamped to [0, promptLength].
func Reward(position, charactersTyped, promptLength int) int {
	if promptLength < 0 {
		promptLength = 0
	}
	chars := min(max(charactersTyped, 0), promptLength)
	return BaseReward + int(math.Round(float64(chars)*PositionMultiplier(position)))
}
