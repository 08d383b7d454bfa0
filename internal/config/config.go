package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DoyleJ11/keyrace/internal/engine"
	"github.com/DoyleJ11/keyrace/internal/room"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	AllowedOrigins []string

	Room room.Config

	PromptsFile string
	DatabaseURL string
	BadgerDir   string
	NATSURL     string
	NATSSubject string
}

// Load reads .env if present, then the environment. Unset values fall back to
// defaults; unparsable ones are reported alongside validation errors.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	def := room.DefaultConfig()
	var env envReader
	cfg := Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", nil),
		Room: room.Config{
			Rules: engine.Rules{
				Capacity:       env.asInt("ROOM_CAPACITY", def.Rules.Capacity),
				CountdownTicks: env.asInt("COUNTDOWN_TICKS", def.Rules.CountdownTicks),
				MinBotWPM:      env.asFloat("NPC_MIN_WPM", def.Rules.MinBotWPM),
				MaxBotWPM:      env.asFloat("NPC_MAX_WPM", def.Rules.MaxBotWPM),
			},
			CountdownInterval: env.asDuration("COUNTDOWN_INTERVAL", def.CountdownInterval),
			GracePeriod:       env.asDuration("GRACE_PERIOD", def.GracePeriod),
			ResultsDelay:      env.asDuration("RESULTS_DELAY", def.ResultsDelay),
			MaxRaceDuration:   env.asDuration("MAX_RACE_DURATION", def.MaxRaceDuration),
			BotTick:           env.asDuration("NPC_TICK", def.BotTick),
			Difficulty:        getEnv("PROMPT_DIFFICULTY", def.Difficulty),
			PromptTimeout:     def.PromptTimeout,
			PublishTimeout:    def.PublishTimeout,
		},
		PromptsFile: getEnv("PROMPTS_FILE", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		BadgerDir:   getEnv("BADGER_DIR", ""),
		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "keyrace.race.completed"),
	}

	return cfg, errors.Join(append(env.errs, cfg.Validate())...)
}

func (c Config) Validate() error {
	var errs []error
	r := c.Room
	if r.Rules.Capacity < 1 {
		errs = append(errs, fmt.Errorf("ROOM_CAPACITY must be at least 1, got %d", r.Rules.Capacity))
	}
	if r.Rules.CountdownTicks < 1 {
		errs = append(errs, fmt.Errorf("COUNTDOWN_TICKS must be at least 1, got %d", r.Rules.CountdownTicks))
	}
	if r.Rules.MinBotWPM <= 0 || r.Rules.MaxBotWPM < r.Rules.MinBotWPM {
		errs = append(errs, fmt.Errorf("NPC_MIN_WPM/NPC_MAX_WPM must satisfy 0 < min <= max, got %v/%v",
			r.Rules.MinBotWPM, r.Rules.MaxBotWPM))
	}
	for name, d := range map[string]time.Duration{
		"COUNTDOWN_INTERVAL": r.CountdownInterval,
		"GRACE_PERIOD":       r.GracePeriod,
		"RESULTS_DELAY":      r.ResultsDelay,
		"NPC_TICK":           r.BotTick,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	if r.MaxRaceDuration < 0 {
		errs = append(errs, fmt.Errorf("MAX_RACE_DURATION must not be negative, got %v", r.MaxRaceDuration))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader collects parse failures for Load to report.
type envReader struct {
	errs []error
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s: invalid value %q: %w", key, value, err))
}

func (e *envReader) asInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return intValue
}

func (e *envReader) asFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return f
}

func (e *envReader) asDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return d
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
