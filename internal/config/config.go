package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/deckpilot/internal/command"
)

// Config contains all runtime settings for the deck command service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	SessionRetention         time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	LogLevel  string
	LogFormat string

	CaptureTimeout     time.Duration
	RecentActionsLimit int

	MatcherTuningFile string
	Tuning            command.Tuning

	GeneratorMode            string
	GeneratorHTTPURL         string
	GeneratorToken           string
	GeneratorCLIPath         string
	GeneratorCLIArgs         []string
	GeneratorTimeout         time.Duration
	GeneratorMaxRetries      int
	GeneratorBreakerFailures int
	GeneratorBreakerCooldown time.Duration

	DeckDir         string
	AssetsDir       string
	DeckDefaultName string
	DeckMaxSlides   int
	DeckAutosave    bool
	DeckTitleSlide  bool

	DatabaseURL       string
	RedisURL          string
	HistoryPerSession int
	HistoryTTL        time.Duration
}

// Load reads environment variables and applies safe defaults. Matcher tuning
// comes from MATCHER_TUNING_FILE when set, then the MATCHER_* overrides.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "deckpilot"),
		AllowAnyOrigin:           false,
		LogLevel:                 strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		MatcherTuningFile:        stringsTrimSpace("MATCHER_TUNING_FILE"),
		GeneratorMode:            strings.ToLower(envOrDefault("GENERATOR_MODE", "auto")),
		GeneratorHTTPURL:         stringsTrimSpace("GENERATOR_HTTP_URL"),
		GeneratorToken:           stringsTrimSpace("GENERATOR_TOKEN"),
		GeneratorCLIPath:         stringsTrimSpace("GENERATOR_CLI_PATH"),
		GeneratorCLIArgs:         strings.Fields(os.Getenv("GENERATOR_CLI_ARGS")),
		DeckDir:                  envOrDefault("DECK_DIR", "data/decks"),
		AssetsDir:                envOrDefault("ASSETS_DIR", "."),
		DeckDefaultName:          envOrDefault("DECK_DEFAULT_NAME", "presentation"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		RedisURL:                 stringsTrimSpace("REDIS_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 10 * time.Minute,
		SessionRetention:         30 * time.Minute,
		CaptureTimeout:           10 * time.Second,
		RecentActionsLimit:       20,
		GeneratorTimeout:         20 * time.Second,
		GeneratorMaxRetries:      2,
		GeneratorBreakerFailures: 5,
		GeneratorBreakerCooldown: 30 * time.Second,
		DeckMaxSlides:            50,
		DeckAutosave:             true,
		DeckTitleSlide:           false,
		HistoryPerSession:        200,
		HistoryTTL:               7 * 24 * time.Hour,
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"APP_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"APP_SESSION_INACTIVITY_TIMEOUT", &cfg.SessionInactivityTimeout},
		{"APP_SESSION_RETENTION", &cfg.SessionRetention},
		{"CAPTURE_TIMEOUT", &cfg.CaptureTimeout},
		{"GENERATOR_TIMEOUT", &cfg.GeneratorTimeout},
		{"GENERATOR_BREAKER_COOLDOWN", &cfg.GeneratorBreakerCooldown},
		{"HISTORY_TTL", &cfg.HistoryTTL},
	}
	for _, d := range durations {
		if *d.dst, err = durationFromEnv(d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"RECENT_ACTIONS_LIMIT", &cfg.RecentActionsLimit},
		{"GENERATOR_MAX_RETRIES", &cfg.GeneratorMaxRetries},
		{"GENERATOR_BREAKER_FAILURES", &cfg.GeneratorBreakerFailures},
		{"DECK_MAX_SLIDES", &cfg.DeckMaxSlides},
		{"HISTORY_PER_SESSION", &cfg.HistoryPerSession},
	}
	for _, n := range ints {
		if *n.dst, err = intFromEnv(n.key, *n.dst); err != nil {
			return Config{}, err
		}
	}

	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.DeckAutosave, err = boolFromEnv("DECK_AUTOSAVE", cfg.DeckAutosave)
	if err != nil {
		return Config{}, err
	}
	cfg.DeckTitleSlide, err = boolFromEnv("DECK_TITLE_SLIDE", cfg.DeckTitleSlide)
	if err != nil {
		return Config{}, err
	}

	cfg.Tuning, err = command.LoadTuning(cfg.MatcherTuningFile)
	if err != nil {
		return Config{}, err
	}
	cfg.Tuning.ConfidenceThreshold, err = floatFromEnv("MATCHER_CONFIDENCE_THRESHOLD", cfg.Tuning.ConfidenceThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.Tuning.TieMargin, err = floatFromEnv("MATCHER_TIE_MARGIN", cfg.Tuning.TieMargin)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return Config{}, fmt.Errorf("matcher tuning: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if c.SessionRetention < 0 {
		return fmt.Errorf("APP_SESSION_RETENTION must be >= 0")
	}
	if c.CaptureTimeout <= 0 {
		return fmt.Errorf("CAPTURE_TIMEOUT must be positive")
	}
	if c.RecentActionsLimit <= 0 {
		return fmt.Errorf("RECENT_ACTIONS_LIMIT must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	switch c.GeneratorMode {
	case "auto", "mock", "off":
	case "http":
		if c.GeneratorHTTPURL == "" {
			return fmt.Errorf("GENERATOR_HTTP_URL is required when GENERATOR_MODE=http")
		}
	case "cli":
		if c.GeneratorCLIPath == "" {
			return fmt.Errorf("GENERATOR_CLI_PATH is required when GENERATOR_MODE=cli")
		}
	default:
		return fmt.Errorf("GENERATOR_MODE must be one of auto, http, cli, mock, off")
	}
	if c.GeneratorTimeout <= 0 {
		return fmt.Errorf("GENERATOR_TIMEOUT must be positive")
	}
	if c.GeneratorMaxRetries < 0 {
		return fmt.Errorf("GENERATOR_MAX_RETRIES must be >= 0")
	}
	if c.GeneratorBreakerFailures <= 0 {
		return fmt.Errorf("GENERATOR_BREAKER_FAILURES must be positive")
	}
	if c.DeckMaxSlides <= 0 {
		return fmt.Errorf("DECK_MAX_SLIDES must be positive")
	}
	if c.HistoryPerSession <= 0 {
		return fmt.Errorf("HISTORY_PER_SESSION must be positive")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
