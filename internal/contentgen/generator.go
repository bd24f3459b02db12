package contentgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnavailable reports that no backend could produce content.
	ErrUnavailable  = errors.New("content generator unavailable")
	ErrEmptyContent = errors.New("generator returned no content")
)

// Request carries the raw utterance that the interpreter gave up on.
type Request struct {
	SessionID   string   `json:"session_id"`
	Prompt      string   `json:"prompt"`
	SlideCount  int      `json:"slide_count"`
	SlideTitles []string `json:"slide_titles,omitempty"`
}

// Content is one generated slide.
type Content struct {
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
	Source string `json:"source"`
}

func (c Content) Empty() bool {
	return strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Body) == ""
}

// Generator turns a free-form request into slide content.
type Generator interface {
	Generate(ctx context.Context, req Request) (Content, error)
}

// Config controls generator construction.
type Config struct {
	Mode            string
	URL             string
	Token           string
	Timeout         time.Duration
	MaxRetries      int
	BreakerFailures int
	BreakerCooldown time.Duration
	// CLIPath and CLIArgs select a local command for the cli mode.
	CLIPath string
	CLIArgs []string
	Logger  *zap.Logger
}

// NewGenerator builds the generator for cfg.Mode: auto, http, cli, mock or
// off. Auto prefers the HTTP endpoint, then the CLI, and falls back to mock.
func NewGenerator(cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	switch mode {
	case "auto":
		switch {
		case strings.TrimSpace(cfg.URL) != "":
			return NewFallbackGenerator(newGuardedHTTP(cfg), NewMockGenerator(), cfg.Logger), nil
		case strings.TrimSpace(cfg.CLIPath) != "":
			return NewFallbackGenerator(newGuardedCLI(cfg), NewMockGenerator(), cfg.Logger), nil
		default:
			return NewMockGenerator(), nil
		}
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("generator url is required for http mode")
		}
		return newGuardedHTTP(cfg), nil
	case "cli":
		if strings.TrimSpace(cfg.CLIPath) == "" {
			return nil, errors.New("generator cli path is required for cli mode")
		}
		return newGuardedCLI(cfg), nil
	case "mock":
		return NewMockGenerator(), nil
	case "off":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unsupported generator mode %q", cfg.Mode)
	}
}

func newGuardedHTTP(cfg Config) Generator {
	h := NewHTTPGenerator(cfg.URL, HTTPOptions{
		Token:      cfg.Token,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
	return NewBreakerGenerator(h, BreakerOptions{
		Name:             "content-generator",
		ConsecutiveFails: cfg.BreakerFailures,
		Cooldown:         cfg.BreakerCooldown,
		Logger:           cfg.Logger,
	})
}

func newGuardedCLI(cfg Config) Generator {
	return NewBreakerGenerator(NewCLIGenerator(cfg.CLIPath, cfg.CLIArgs...), BreakerOptions{
		Name:             "content-generator-cli",
		ConsecutiveFails: cfg.BreakerFailures,
		Cooldown:         cfg.BreakerCooldown,
		Logger:           cfg.Logger,
	})
}

// Disabled always reports ErrUnavailable.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, _ Request) (Content, error) {
	if err := ctx.Err(); err != nil {
		return Content{}, err
	}
	return Content{}, ErrUnavailable
}
