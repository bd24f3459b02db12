package contentgen

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerOptions struct {
	Name             string
	ConsecutiveFails int
	Cooldown         time.Duration
	Logger           *zap.Logger
}

// BreakerGenerator stops calling a failing backend until the cooldown passes.
type BreakerGenerator struct {
	next Generator
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerGenerator(next Generator, opts BreakerOptions) *BreakerGenerator {
	if opts.ConsecutiveFails <= 0 {
		opts.ConsecutiveFails = 3
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fails := uint32(opts.ConsecutiveFails)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= fails
		},
		IsSuccessful: func(err error) bool {
			// A caller hanging up says nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("generator breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerGenerator{next: next, cb: cb}
}

func (g *BreakerGenerator) Generate(ctx context.Context, req Request) (Content, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Generate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Content{}, ErrUnavailable
	}
	if err != nil {
		return Content{}, err
	}
	return out.(Content), nil
}

// State exposes the breaker state for health reporting.
func (g *BreakerGenerator) State() string {
	return g.cb.State().String()
}
