package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/contentgen"
	"github.com/ent0n29/deckpilot/internal/history"
	"github.com/ent0n29/deckpilot/internal/observability"
	"github.com/ent0n29/deckpilot/internal/session"
	"github.com/ent0n29/deckpilot/internal/voice"
)

// ErrSessionStopped is returned for work on a session that has already ended.
var ErrSessionStopped = errors.New("session stopped")

type Mode string

const (
	ModeSingle     Mode = "single"
	ModeContinuous Mode = "continuous"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeContinuous:
		return ModeContinuous, nil
	case ModeSingle:
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("unknown loop mode %q", s)
	}
}

type Config struct {
	Matcher         *command.Matcher
	Generator       contentgen.Generator
	History         history.Store
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	CaptureTimeout  time.Duration
	GenerateTimeout time.Duration
}

// Loop runs dispatch cycles. It holds no per-session data; everything a cycle
// reads or writes lives in the session.State passed to it.
type Loop struct {
	matcher         *command.Matcher
	generator       contentgen.Generator
	history         history.Store
	metrics         *observability.Metrics
	logger          *zap.Logger
	captureTimeout  time.Duration
	generateTimeout time.Duration
}

func New(cfg Config) *Loop {
	if cfg.Matcher == nil {
		cfg.Matcher = command.NewMatcher(command.DefaultTuning())
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = 10 * time.Second
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	return &Loop{
		matcher:         cfg.Matcher,
		generator:       cfg.Generator,
		history:         cfg.History,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		captureTimeout:  cfg.CaptureTimeout,
		generateTimeout: cfg.GenerateTimeout,
	}
}

// Channel is where a running loop reads utterances and delivers results.
// Observe, when set, sees every outcome after feedback was spoken.
type Channel struct {
	Capturer voice.Capturer
	Speaker  voice.Speaker
	Observe  func(Outcome)
}

// Run captures and processes utterances until Stop, until the capturer runs
// dry, or, in single mode, after one cycle. Cancellation is checked before
// every capture.
func (l *Loop) Run(ctx context.Context, st *session.State, ch Channel, mode Mode) error {
	if ch.Capturer == nil {
		return errors.New("dispatch: channel has no capturer")
	}
	logger := l.logger.With(zap.String("session_id", st.ID), zap.String("mode", string(mode)))

	for {
		if err := ctx.Err(); err != nil {
			st.SetDispatch(session.StateIdle)
			return err
		}
		if st.Ended() {
			return ErrSessionStopped
		}
		if _, pending := st.Pending(); !pending {
			st.SetDispatch(session.StateListening)
		}

		tr, err := ch.Capturer.Capture(ctx, l.captureTimeout)
		var out Outcome
		switch {
		case err == nil:
			out = l.ProcessTranscript(ctx, st, tr)
		case errors.Is(err, voice.ErrCaptureTimeout):
			out = l.captureTimeoutOutcome(st)
		case errors.Is(err, voice.ErrClosed):
			logger.Info("capture source closed")
			st.SetDispatch(session.StateIdle)
			return nil
		case ctx.Err() != nil:
			st.SetDispatch(session.StateIdle)
			return ctx.Err()
		default:
			st.SetDispatch(session.StateIdle)
			return fmt.Errorf("capture: %w", err)
		}

		l.deliver(ctx, ch, out, logger)
		if out.Stopped {
			return nil
		}
		if mode == ModeSingle {
			if st.Dispatch() == session.StateListening {
				st.SetDispatch(session.StateIdle)
			}
			return nil
		}
	}
}

func (l *Loop) deliver(ctx context.Context, ch Channel, out Outcome, logger *zap.Logger) {
	if ch.Speaker != nil && out.Feedback.Text != "" {
		if err := ch.Speaker.Speak(ctx, out.Feedback); err != nil {
			logger.Warn("feedback delivery failed", zap.Error(err))
		}
	}
	if ch.Observe != nil {
		ch.Observe(out)
	}
}

func (l *Loop) captureTimeoutOutcome(st *session.State) Outcome {
	err := &command.Error{Kind: command.KindCaptureTimeout, Err: voice.ErrCaptureTimeout}
	out := Outcome{
		SessionID: st.ID,
		Intent:    command.IntentUnknown,
		Outcome:   session.OutcomeInfo,
		Feedback:  voice.NewFeedback(voice.FeedbackNothingHeard, err.Prompt()),
	}
	out.setError(err)
	if _, pending := st.Pending(); pending {
		out.State = session.StateAwaitingClarification
	} else {
		out.State = session.StateListening
	}
	st.SetDispatch(out.State)
	l.metrics.ObserveOutcome(string(out.Outcome), string(out.ErrorKind))
	l.metrics.ObserveIndicator("capture_timeout")
	return out
}
