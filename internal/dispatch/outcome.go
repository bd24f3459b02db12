package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/contentgen"
	"github.com/ent0n29/deckpilot/internal/deck"
	"github.com/ent0n29/deckpilot/internal/history"
	"github.com/ent0n29/deckpilot/internal/session"
	"github.com/ent0n29/deckpilot/internal/voice"
)

// Outcome is the observable result of one dispatch cycle.
type Outcome struct {
	SessionID     string                  `json:"session_id"`
	Transcript    command.Transcript      `json:"transcript"`
	Intent        command.Intent          `json:"intent"`
	Confidence    float64                 `json:"confidence"`
	PatternID     string                  `json:"pattern_id,omitempty"`
	Parameters    command.ParameterBag    `json:"parameters,omitempty"`
	Action        *command.Action         `json:"action,omitempty"`
	Result        *deck.Result            `json:"result,omitempty"`
	Clarification *session.Clarification  `json:"clarification,omitempty"`
	Generated     *contentgen.Content     `json:"generated,omitempty"`
	Feedback      voice.Feedback          `json:"feedback"`
	Outcome       session.Outcome         `json:"outcome"`
	ErrorKind     command.ErrorKind       `json:"error_kind,omitempty"`
	Error         string                  `json:"error,omitempty"`
	State         session.DispatchState   `json:"state"`
	Trace         []session.DispatchState `json:"trace"`
	Stopped       bool                    `json:"stopped,omitempty"`
	DurationMS    float64                 `json:"duration_ms"`

	Err error `json:"-"`
}

func (o *Outcome) setError(err error) {
	o.Err = err
	if err == nil {
		o.ErrorKind = ""
		o.Error = ""
		return
	}
	o.ErrorKind = command.KindOf(err)
	o.Error = err.Error()
}

// Reached reports whether the cycle passed through state s.
func (o Outcome) Reached(s session.DispatchState) bool {
	for _, t := range o.Trace {
		if t == s {
			return true
		}
	}
	return false
}

func (o Outcome) message() string {
	if o.Result != nil {
		return o.Result.Message
	}
	return o.Feedback.Text
}

// record appends the outcome to the session log, the history store and the
// metrics. History failures are logged and otherwise ignored.
func (l *Loop) record(ctx context.Context, st *session.State, out Outcome, logger *zap.Logger) {
	actionID := ""
	if out.Action != nil {
		actionID = out.Action.ID
	}
	st.Record(session.RecentAction{
		Transcript: out.Transcript.Text,
		Intent:     out.Intent,
		ActionID:   actionID,
		Outcome:    out.Outcome,
		Message:    out.message(),
	})

	l.metrics.ObserveOutcome(string(out.Outcome), string(out.ErrorKind))
	if l.history == nil {
		return
	}
	entry := history.Entry{
		SessionID:    st.ID,
		TranscriptID: out.Transcript.ID,
		Transcript:   out.Transcript.Text,
		Source:       string(out.Transcript.Source),
		Intent:       string(out.Intent),
		Confidence:   out.Confidence,
		ActionID:     actionID,
		Outcome:      string(out.Outcome),
		Message:      out.message(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.history.Record(ctx, entry); err != nil {
		logger.Warn("history record failed", zap.Error(err))
	}
}
