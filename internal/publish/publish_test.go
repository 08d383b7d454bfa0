package publish

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/keyrace/internal/engine"
)

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.PublishRaceCompleted(context.Background(), RaceCompleted{}))
}

func TestNATSPublisher_SubjectPerRoom(t *testing.T) {
	p := &NATSPublisher{subject: DefaultNATSConfig().Subject}
	assert.Equal(t, "keyrace.race.completed.main", p.Subject("main"))
}

func TestNATSPublisher_HonoursCancelledContext(t *testing.T) {
	p := &NATSPublisher{subject: "x"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.PublishRaceCompleted(ctx, RaceCompleted{}), context.Canceled)
}

func TestRaceCompleted_WireShape(t *testing.T) {
	ev := RaceCompleted{
		Room:        "main",
		RaceID:      "2Aabc",
		Prompt:      "type me",
		StartedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC),
		Results: []engine.Result{{
			Name: "ana", Position: 1, Finished: true,
			FinishOffset: 1500 * time.Millisecond, FinishOffsetMillis: 1500, XP: 17,
		}},
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2Aabc", raw["race_id"])
	results := raw["results"].([]any)
	first := results[0].(map[string]any)
	assert.EqualValues(t, 1500, first["finish_offset_ms"])
	assert.Equal(t, false, first["is_simulated"])
	assert.NotContains(t, first, "FinishOffset")
}
