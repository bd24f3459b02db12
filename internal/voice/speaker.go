package voice

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterSpeaker prints feedback lines, one per call.
type WriterSpeaker struct {
	mu     sync.Mutex
	w      io.Writer
	prefix string
}

func NewWriterSpeaker(w io.Writer, prefix string) *WriterSpeaker {
	return &WriterSpeaker{w: w, prefix: prefix}
}

func (s *WriterSpeaker) Speak(ctx context.Context, fb Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s%s\n", s.prefix, fb.Text)
	return err
}

// Recorder keeps every feedback it is given.
type Recorder struct {
	mu   sync.Mutex
	said []Feedback
}

func (r *Recorder) Speak(_ context.Context, fb Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.said = append(r.said, fb)
	return nil
}

func (r *Recorder) Said() []Feedback {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Feedback(nil), r.said...)
}

// Last returns the most recent feedback, if any.
func (r *Recorder) Last() (Feedback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.said) == 0 {
		return Feedback{}, false
	}
	return r.said[len(r.said)-1], true
}
