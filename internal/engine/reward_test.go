package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReward_Table(t *testing.T) {
	cases := []struct {
		name     string
		position int
		chars    int
		length   int
		want     int
	}{
		{"winner full prompt", 1, 100, 100, 110},
		{"second full prompt", 2, 100, 100, 60},
		{"third full prompt", 3, 100, 100, 43},
		{"fourth full prompt", 4, 100, 100, 35},
		{"eighth full prompt", 8, 100, 100, 35},
		{"straggler half way", 5, 50, 100, 23},
		{"nothing typed", 6, 0, 100, BaseReward},
		{"typed more than prompt", 1, 150, 100, 110},
		{"negative chars", 2, -5, 100, BaseReward},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Reward(tc.position, tc.chars, tc.length))
		})
	}
}

func TestReward_StrictPositionOrdering(t *testing.T) {
	// Below 13 characters the rounded multipliers can collide.
	for l := 13; l <= 500; l++ {
		r1, r2, r3, r4 := Reward(1, l, l), Reward(2, l, l), Reward(3, l, l), Reward(4, l, l)
		if !(r1 > r2 && r2 > r3 && r3 > r4) {
			t.Fatalf("length %d: rewards not strictly ordered: %d %d %d %d", l, r1, r2, r3, r4)
		}
	}
	for l := 1; l < 13; l++ {
		r1, r2, r3, r4 := Reward(1, l, l), Reward(2, l, l), Reward(3, l, l), Reward(4, l, l)
		assert.True(t, r1 >= r2 && r2 >= r3 && r3 >= r4, "length %d: %d %d %d %d", l, r1, r2, r3, r4)
	}
}

func TestRank_EmptyAndAllStragglers(t *testing.T) {
	assert.Empty(t, Rank(nil))

	ps := []*Participant{
		{Name: "a", Progress: 0.1},
		{Name: "b", Progress: 0.9},
		{Name: "c", Progress: 0.1},
	}
	res := Rank(ps)
	names := []string{res[0].Name, res[1].Name, res[2].Name}
	assert.Equal(t, []string{"b", "a", "c"}, names, "stable on equal progress")
	assert.Equal(t, []int{1, 2, 3}, []int{res[0].Position, res[1].Position, res[2].Position})
}
