package voice

import (
	"context"
	"errors"
	"time"

	"github.com/ent0n29/deckpilot/internal/command"
)

var (
	// ErrCaptureTimeout is returned when nothing was heard before the deadline.
	ErrCaptureTimeout = errors.New("no input before capture timeout")
	// ErrClosed is returned once a capture source has no more input.
	ErrClosed = errors.New("capture source closed")
)

// Capturer yields one transcript per call.
type Capturer interface {
	Capture(ctx context.Context, timeout time.Duration) (command.Transcript, error)
}

// Speaker delivers feedback to the user. Errors are reported but never stop a
// dispatch cycle.
type Speaker interface {
	Speak(ctx context.Context, fb Feedback) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, fb Feedback) error

func (f SpeakerFunc) Speak(ctx context.Context, fb Feedback) error { return f(ctx, fb) }
