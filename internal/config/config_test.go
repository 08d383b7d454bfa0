package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.Room.Rules.Capacity)
	assert.Equal(t, 3, cfg.Room.Rules.CountdownTicks)
	assert.Equal(t, 10*time.Second, cfg.Room.GracePeriod)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("ROOM_CAPACITY", "4")
	t.Setenv("GRACE_PERIOD", "2s")
	t.Setenv("NPC_MIN_WPM", "50")
	t.Setenv("NPC_MAX_WPM", "70.5")
	t.Setenv("ALLOWED_ORIGINS", "localhost:*, example.com ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 4, cfg.Room.Rules.Capacity)
	assert.Equal(t, 2*time.Second, cfg.Room.GracePeriod)
	assert.Equal(t, 50.0, cfg.Room.Rules.MinBotWPM)
	assert.Equal(t, 70.5, cfg.Room.Rules.MaxBotWPM)
	assert.Equal(t, []string{"localhost:*", "example.com"}, cfg.AllowedOrigins)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Setenv("ROOM_CAPACITY", "0")
	t.Setenv("NPC_MIN_WPM", "90")
	t.Setenv("NPC_MAX_WPM", "30")
	t.Setenv("RESULTS_DELAY", "-1s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROOM_CAPACITY")
	assert.Contains(t, err.Error(), "NPC_MIN_WPM")
	assert.Contains(t, err.Error(), "RESULTS_DELAY")
}

func TestLoad_ReportsUnparsableValues(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "10")
	t.Setenv("COUNTDOWN_TICKS", "not-a-number")
	t.Setenv("NPC_MAX_WPM", "fast")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `GRACE_PERIOD: invalid value "10"`)
	assert.Contains(t, err.Error(), "COUNTDOWN_TICKS")
	assert.Contains(t, err.Error(), "NPC_MAX_WPM")
}
