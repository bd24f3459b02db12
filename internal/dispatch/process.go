package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/contentgen"
	"github.com/ent0n29/deckpilot/internal/observability"
	"github.com/ent0n29/deckpilot/internal/session"
	"github.com/ent0n29/deckpilot/internal/voice"
)

// cycle carries one transcript through the state machine.
type cycle struct {
	loop   *Loop
	st     *session.State
	tr     command.Transcript
	out    Outcome
	logger *zap.Logger
}

func (c *cycle) enter(s session.DispatchState) {
	c.st.SetDispatch(s)
	c.out.Trace = append(c.out.Trace, s)
}

// ProcessTranscript runs one cycle for an utterance that has already been
// captured. It never returns an error; failures are typed outcomes.
func (l *Loop) ProcessTranscript(ctx context.Context, st *session.State, tr command.Transcript) Outcome {
	start := time.Now()
	c := &cycle{
		loop:   l,
		st:     st,
		tr:     tr,
		out:    Outcome{SessionID: st.ID, Transcript: tr, Intent: command.IntentUnknown},
		logger: l.logger.With(zap.String("session_id", st.ID), zap.String("transcript_id", tr.ID)),
	}

	if err := st.Acquire(ctx); err != nil {
		if errors.Is(err, session.ErrEnded) {
			err = ErrSessionStopped
			c.out.Stopped = true
		}
		c.out.setError(err)
		c.out.Outcome = session.OutcomeFailed
		c.out.State = st.Dispatch()
		return c.out
	}
	defer st.Release()

	c.run(ctx)

	c.out.DurationMS = float64(time.Since(start).Microseconds()) / 1000
	l.metrics.ObserveStage(observability.StageCycleTotal, time.Since(start))
	c.logger.Debug("dispatch cycle",
		zap.String("intent", string(c.out.Intent)),
		zap.Float64("confidence", c.out.Confidence),
		zap.String("outcome", string(c.out.Outcome)),
		zap.String("error_kind", string(c.out.ErrorKind)),
		zap.String("state", string(c.out.State)),
	)
	return c.out
}

func (c *cycle) run(ctx context.Context) {
	if c.tr.Empty() {
		c.nothingHeard()
		return
	}

	c.enter(session.StateInterpreting)
	began := time.Now()
	in := c.loop.matcher.Interpret(c.tr)
	c.loop.metrics.ObserveStage(observability.StageInterpret, time.Since(began))
	c.loop.metrics.ObserveMatch(string(in.Match.Intent), in.Match.Confidence)

	c.out.Intent = in.Match.Intent
	c.out.Confidence = in.Match.Confidence
	c.out.PatternID = in.Match.PatternID
	if len(in.Params) > 0 {
		c.out.Parameters = in.Params
	}

	if in.Match.Intent == command.IntentStop {
		c.stop()
		c.finish(ctx)
		return
	}

	if pending, ok := c.st.Pending(); ok {
		c.reply(ctx, in, pending)
	} else {
		c.fresh(ctx, in)
	}
	c.finish(ctx)
}

func (c *cycle) fresh(ctx context.Context, in command.Interpretation) {
	switch {
	case in.Match.Intent == command.IntentHelp:
		c.help()
	case in.Match.Intent.Executable():
		c.validateAndExecute(ctx, c.tr, in.Match.Intent, in.Params, 0)
	case in.Match.Candidate != "":
		c.confirmCandidate(in.Match)
	default:
		c.generate(ctx, c.tr)
	}
}

// reply handles an utterance while a clarification is pending. A cancel
// word drops it. When a title or body is awaited the utterance is the value,
// whatever it sounds like. Otherwise a fresh executable command replaces the
// question and anything else is taken as the answer. An answer that doesn't
// resolve the question falls through to content generation.
func (c *cycle) reply(ctx context.Context, in command.Interpretation, pending session.Clarification) {
	tokens := in.Tokens
	switch {
	case isCancel(tokens):
		c.st.ClearPending()
		c.out.Outcome = session.OutcomeInfo
		c.out.Feedback = voice.NewFeedback(voice.FeedbackAck, "Okay, never mind.")
		return
	case in.Match.Intent == command.IntentHelp:
		c.help()
		c.out.Clarification = &pending
		return
	}

	if pending.Candidate != "" {
		if isYes(tokens) {
			c.st.ClearPending()
			orig := pending.Transcript
			c.out.Intent = pending.Candidate
			params := command.Extract(pending.Candidate, orig, command.Normalize(orig.Text))
			c.out.Parameters = params
			c.validateAndExecute(ctx, orig, pending.Candidate, params, 0)
			return
		}
		c.st.ClearPending()
		if in.Match.Intent.Executable() {
			c.fresh(ctx, in)
			return
		}
		c.generate(ctx, c.tr)
		return
	}

	c.st.ClearPending()
	if !awaitsFreeText(pending.Param) && in.Match.Intent.Executable() {
		c.fresh(ctx, in)
		return
	}
	answer := command.Fill(pending.Intent, pending.Param, c.tr)
	if !answer.Has(pending.Param) {
		c.generate(ctx, c.tr)
		return
	}
	params := pending.Params.Merge(answer)
	c.out.Intent = pending.Intent
	c.out.Parameters = params
	c.validateAndExecute(ctx, pending.Transcript, pending.Intent, params, pending.Attempts)
}

func (c *cycle) validateAndExecute(ctx context.Context, tr command.Transcript, intent command.Intent, params command.ParameterBag, attempts int) {
	pres := c.st.Presentation()
	action, err := command.Validate(tr, intent, params, pres.Summary())
	if err != nil {
		c.reject(ctx, tr, intent, params, attempts, err)
		return
	}
	c.out.Action = &action

	c.enter(session.StateExecuting)
	began := time.Now()
	res, err := pres.Apply(ctx, action)
	c.loop.metrics.ObserveStage(observability.StageExecute, time.Since(began))
	if err != nil {
		failure := &command.Error{Kind: command.KindExecutionFailure, Intent: intent, Err: err}
		c.out.setError(failure)
		c.out.Outcome = session.OutcomeFailed
		c.out.Feedback = voice.NewFeedback(voice.FeedbackError, failure.Prompt())
		c.logger.Warn("action failed", zap.String("intent", string(intent)), zap.Error(err))
		return
	}
	c.out.Result = &res
	c.out.Outcome = session.OutcomeExecuted
	c.out.Feedback = voice.NewFeedback(voice.FeedbackAck, res.Message)
}

func (c *cycle) reject(ctx context.Context, tr command.Transcript, intent command.Intent, params command.ParameterBag, attempts int, err error) {
	var cmdErr *command.Error
	if !errors.As(err, &cmdErr) {
		cmdErr = &command.Error{Kind: command.KindExecutionFailure, Intent: intent, Err: err}
	}

	if cmdErr.Kind == command.KindMissingParameter {
		if attempts >= 1 {
			c.generate(ctx, c.tr)
			return
		}
		c.clarify(session.Clarification{
			Kind:       cmdErr.Kind,
			Intent:     intent,
			Param:      cmdErr.Param,
			Prompt:     cmdErr.Prompt(),
			Transcript: tr,
			Params:     params,
			Attempts:   attempts + 1,
		})
		c.out.setError(cmdErr)
		return
	}

	c.out.setError(cmdErr)
	c.out.Outcome = session.OutcomeRejected
	c.out.Feedback = voice.NewFeedback(voice.FeedbackError, cmdErr.Prompt())
}

func (c *cycle) confirmCandidate(match command.MatchResult) {
	prompt := fmt.Sprintf("Did you want to %s?", match.Candidate.Describe())
	if match.Ambiguous && match.RunnerUp != "" {
		prompt = fmt.Sprintf("Did you want to %s, or %s?", match.Candidate.Describe(), match.RunnerUp.Describe())
	}
	cl := session.Clarification{
		Kind:       command.KindParseAmbiguous,
		Candidate:  match.Candidate,
		RunnerUp:   match.RunnerUp,
		Prompt:     prompt,
		Transcript: c.tr,
		Attempts:   1,
	}
	c.clarify(cl)
	c.out.setError(&command.Error{Kind: command.KindParseAmbiguous, Intent: match.Candidate, Detail: prompt})
}

func (c *cycle) clarify(cl session.Clarification) {
	c.enter(session.StateAwaitingClarification)
	c.st.SetPending(cl)
	c.out.Clarification = &cl
	c.out.Outcome = session.OutcomeClarify
	c.out.Feedback = voice.NewFeedback(voice.FeedbackPrompt, cl.Prompt)
	c.loop.metrics.ObserveIndicator("clarification")
}

// generate hands the raw utterance to the content generator and applies the
// result as a new slide through the normal validate and apply path.
func (c *cycle) generate(ctx context.Context, tr command.Transcript) {
	c.enter(session.StateFallbackGeneration)
	c.loop.metrics.ObserveIndicator("fallback_generation")
	pres := c.st.Presentation()
	summary := pres.Summary()

	fail := func(err error) {
		genErr := &command.Error{Kind: command.KindGenerationFailure, Err: err}
		c.out.setError(genErr)
		c.out.Outcome = session.OutcomeFailed
		c.out.Feedback = voice.NewFeedback(voice.FeedbackError, genErr.Prompt())
	}

	if c.loop.generator == nil {
		c.loop.metrics.ObserveGeneratorError("disabled")
		fail(contentgen.ErrUnavailable)
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, c.loop.generateTimeout)
	defer cancel()
	began := time.Now()
	content, err := c.loop.generator.Generate(genCtx, contentgen.Request{
		SessionID:   c.st.ID,
		Prompt:      tr.Text,
		SlideCount:  summary.SlideCount,
		SlideTitles: summary.SlideTitles,
	})
	c.loop.metrics.ObserveStage(observability.StageGenerate, time.Since(began))
	if err == nil && content.Empty() {
		err = contentgen.ErrEmptyContent
	}
	if err != nil {
		c.loop.metrics.ObserveGeneratorError(generatorReason(err))
		c.logger.Warn("content generation failed", zap.Error(err))
		fail(err)
		return
	}
	c.out.Generated = &content

	params := command.ParameterBag{}
	if content.Title != "" {
		params[command.ParamTitle] = content.Title
	}
	if content.Body != "" {
		params[command.ParamBody] = content.Body
	}
	action, err := command.Validate(tr, command.IntentCreateSlide, params, summary)
	if err != nil {
		fail(err)
		return
	}
	c.out.Action = &action

	c.enter(session.StateExecuting)
	res, err := pres.Apply(ctx, action)
	if err != nil {
		failure := &command.Error{Kind: command.KindExecutionFailure, Intent: command.IntentCreateSlide, Err: err}
		c.out.setError(failure)
		c.out.Outcome = session.OutcomeFailed
		c.out.Feedback = voice.NewFeedback(voice.FeedbackError, failure.Prompt())
		return
	}
	c.out.Result = &res
	c.out.Outcome = session.OutcomeGenerated
	c.out.Feedback = voice.NewFeedback(voice.FeedbackGenerated,
		fmt.Sprintf("I wasn't sure what you meant, so I drafted a slide. %s", res.Message))
}

func (c *cycle) help() {
	c.out.Outcome = session.OutcomeInfo
	c.out.Feedback = voice.NewFeedback(voice.FeedbackHelp, command.HelpText())
}

func (c *cycle) stop() {
	c.st.ClearPending()
	stats := c.st.Stats()
	c.out.Outcome = session.OutcomeInfo
	c.out.Stopped = true
	c.out.Feedback = voice.NewFeedback(voice.FeedbackGoodbye, fmt.Sprintf(
		"Stopped listening. %d commands processed, %d succeeded.",
		stats.CommandsProcessed+1, stats.CommandsSucceeded))
}

func (c *cycle) nothingHeard() {
	err := &command.Error{Kind: command.KindCaptureTimeout, Detail: "empty transcript"}
	c.out.setError(err)
	c.out.Outcome = session.OutcomeInfo
	c.out.Feedback = voice.NewFeedback(voice.FeedbackNothingHeard, err.Prompt())
	c.enter(session.StateFeedback)
	if _, pending := c.st.Pending(); pending {
		c.enter(session.StateAwaitingClarification)
	} else {
		c.enter(session.StateListening)
	}
	c.out.State = c.st.Dispatch()
	c.loop.metrics.ObserveOutcome(string(c.out.Outcome), string(c.out.ErrorKind))
}

// finish moves through Feedback to the resting state and records the cycle.
// A stop closes the session after the record so the final entry is kept.
func (c *cycle) finish(ctx context.Context) {
	c.enter(session.StateFeedback)
	c.loop.record(ctx, c.st, c.out, c.logger)

	switch {
	case c.out.Stopped:
		c.enter(session.StateIdle)
		if err := c.st.Close(); err != nil {
			c.logger.Warn("close presentation on stop", zap.Error(err))
			c.out.setError(fmt.Errorf("close presentation: %w", err))
		}
		c.loop.metrics.SessionEvent("stopped")
	default:
		if _, pending := c.st.Pending(); pending {
			c.enter(session.StateAwaitingClarification)
		} else {
			c.enter(session.StateListening)
		}
	}
	c.out.State = c.st.Dispatch()
}

func generatorReason(err error) string {
	switch {
	case errors.Is(err, contentgen.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, contentgen.ErrEmptyContent):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
