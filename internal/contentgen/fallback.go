package contentgen

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// FallbackGenerator tries primary first and falls back on error.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
	logger   *zap.Logger
}

func NewFallbackGenerator(primary, fallback Generator, logger *zap.Logger) *FallbackGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackGenerator{primary: primary, fallback: fallback, logger: logger}
}

func (g *FallbackGenerator) Generate(ctx context.Context, req Request) (Content, error) {
	if g == nil || g.primary == nil {
		if g != nil && g.fallback != nil {
			return g.fallback.Generate(ctx, req)
		}
		return Content{}, fmt.Errorf("fallback generator misconfigured")
	}

	content, err := g.primary.Generate(ctx, req)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Content{}, err
	}
	if g.fallback == nil {
		return Content{}, err
	}

	g.logger.Warn("primary generator failed, using fallback",
		zap.String("session_id", req.SessionID),
		zap.Error(err),
	)
	fallbackContent, fallbackErr := g.fallback.Generate(ctx, req)
	if fallbackErr != nil {
		return Content{}, fmt.Errorf("primary generator error: %w; fallback generator error: %v", err, fallbackErr)
	}
	return fallbackContent, nil
}
