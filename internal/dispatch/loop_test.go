package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/contentgen"
	"github.com/ent0n29/deckpilot/internal/deck"
	"github.com/ent0n29/deckpilot/internal/history"
	"github.com/ent0n29/deckpilot/internal/session"
	"github.com/ent0n29/deckpilot/internal/voice"
)

type fakeGenerator struct {
	prompts []string
	content contentgen.Content
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, req contentgen.Request) (contentgen.Content, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return contentgen.Content{}, g.err
	}
	return g.content, nil
}

type fixture struct {
	loop    *Loop
	st      *session.State
	deck    *deck.Deck
	gen     *fakeGenerator
	history *history.InMemoryStore
}

func newFixture(t *testing.T, titles ...string) *fixture {
	t.Helper()
	d := deck.New(deck.Options{Dir: t.TempDir()})
	gen := &fakeGenerator{content: contentgen.Content{Title: "Drafted", Body: "Generated body", Source: "fake"}}
	store := history.NewInMemoryStore(100)
	f := &fixture{
		loop: New(Config{
			Generator:      gen,
			History:        history.Redacting(store),
			CaptureTimeout: 20 * time.Millisecond,
		}),
		st:      session.NewState("s1", d, 10),
		deck:    d,
		gen:     gen,
		history: store,
	}
	for _, title := range titles {
		out := f.say(t, "create a slide with title "+title)
		if out.Outcome != session.OutcomeExecuted {
			t.Fatalf("seed slide %q: %+v", title, out)
		}
	}
	return f
}

func (f *fixture) say(t *testing.T, text string) Outcome {
	t.Helper()
	return f.loop.ProcessTranscript(context.Background(), f.st, command.NewTranscript(text, command.SourceSpeech))
}

func TestScenarioCreateSlideExecutes(t *testing.T) {
	f := newFixture(t)
	out := f.say(t, "create a new slide with title Introduction")

	if out.Intent != command.IntentCreateSlide || out.Outcome != session.OutcomeExecuted {
		t.Fatalf("outcome = %+v", out)
	}
	if title, _ := out.Parameters.Text(command.ParamTitle); title != "Introduction" {
		t.Fatalf("title parameter = %q, want Introduction", title)
	}
	if out.Result == nil || out.Result.SlideCount != 1 {
		t.Fatalf("Result = %+v, want slide_count 1", out.Result)
	}
	if !out.Reached(session.StateExecuting) || out.State != session.StateListening {
		t.Fatalf("trace = %v, state = %s", out.Trace, out.State)
	}
	if out.Feedback.Kind != voice.FeedbackAck {
		t.Fatalf("Feedback = %+v", out.Feedback)
	}
}

func TestScenarioDeleteOutOfRangeNeverExecutes(t *testing.T) {
	f := newFixture(t, "Only")
	out := f.say(t, "delete slide number 2")

	if out.ErrorKind != command.KindIndexOutOfRange || out.Outcome != session.OutcomeRejected {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Feedback.Text != "Slide 2 doesn't exist. The presentation has 1 slide." {
		t.Fatalf("Feedback = %q", out.Feedback.Text)
	}
	if out.Reached(session.StateExecuting) {
		t.Fatalf("trace %v reached executing", out.Trace)
	}
	if out.State != session.StateListening || f.st.Dispatch() != session.StateListening {
		t.Fatalf("state = %s, want listening", out.State)
	}
	if f.deck.Summary().SlideCount != 1 {
		t.Fatal("deck changed on a rejected command")
	}
}

func TestScenarioGarbledInputFallsBackToGeneration(t *testing.T) {
	f := newFixture(t)
	out := f.say(t, "flerm zonk the slide")

	if out.Intent != command.IntentUnknown {
		t.Fatalf("Intent = %s, want unknown", out.Intent)
	}
	if len(f.gen.prompts) != 1 || f.gen.prompts[0] != "flerm zonk the slide" {
		t.Fatalf("generator prompts = %q", f.gen.prompts)
	}
	if !out.Reached(session.StateFallbackGeneration) || out.Outcome != session.OutcomeGenerated {
		t.Fatalf("outcome = %+v", out)
	}
	if got := f.deck.Summary(); got.SlideCount != 1 || got.SlideTitles[0] != "Drafted" {
		t.Fatalf("deck = %+v", got)
	}
	if f.st.Stats().Generations != 1 {
		t.Fatalf("Generations = %d, want 1", f.st.Stats().Generations)
	}
}

func TestScenarioCaptureTimeoutSingleMode(t *testing.T) {
	f := newFixture(t)
	rec := &voice.Recorder{}
	var outcomes []Outcome
	err := f.loop.Run(context.Background(), f.st, Channel{
		Capturer: voice.NewChannelCapturer(1),
		Speaker:  rec,
		Observe:  func(o Outcome) { outcomes = append(outcomes, o) },
	}, ModeSingle)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].ErrorKind != command.KindCaptureTimeout {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	fb, ok := rec.Last()
	if !ok || fb.Kind != voice.FeedbackNothingHeard {
		t.Fatalf("feedback = %+v", fb)
	}
	if f.st.Dispatch() != session.StateIdle {
		t.Fatalf("state = %s, want idle", f.st.Dispatch())
	}
}

func TestMissingParameterClarificationIsFilled(t *testing.T) {
	f := newFixture(t, "Intro")
	out := f.say(t, "change the background")
	if out.Outcome != session.OutcomeClarify || out.Feedback.Text != "Which background color?" {
		t.Fatalf("first outcome = %+v", out)
	}
	if out.State != session.StateAwaitingClarification || out.Reached(session.StateExecuting) {
		t.Fatalf("state = %s trace = %v", out.State, out.Trace)
	}

	out = f.say(t, "light blue")
	if out.Outcome != session.OutcomeExecuted || out.Intent != command.IntentSetBackground {
		t.Fatalf("answer outcome = %+v", out)
	}
	if bg := f.deck.Snapshot().Slides[0].Background; bg != "light blue" {
		t.Fatalf("background = %q, want light blue", bg)
	}
	if _, pending := f.st.Pending(); pending {
		t.Fatal("clarification still pending")
	}
}

func TestSecondFailureFallsThroughToGeneration(t *testing.T) {
	f := newFixture(t, "Intro")
	if out := f.say(t, "delete slide"); out.Feedback.Text != "Which slide number?" {
		t.Fatalf("first outcome = %+v", out)
	}

	out := f.say(t, "flerm zonk")
	if !out.Reached(session.StateFallbackGeneration) {
		t.Fatalf("trace = %v, want fallback generation", out.Trace)
	}
	if len(f.gen.prompts) != 1 || f.gen.prompts[0] != "flerm zonk" {
		t.Fatalf("generator prompts = %q", f.gen.prompts)
	}
	if _, pending := f.st.Pending(); pending {
		t.Fatal("clarification still pending")
	}
}

func TestNearMissConfirmedWithYes(t *testing.T) {
	f := newFixture(t, "One", "Two")
	out := f.say(t, "delete")
	if out.Outcome != session.OutcomeClarify || out.Clarification == nil || out.Clarification.Candidate != command.IntentDeleteSlide {
		t.Fatalf("near miss outcome = %+v", out)
	}
	if out.Feedback.Text != "Did you want to delete a slide?" {
		t.Fatalf("prompt = %q", out.Feedback.Text)
	}

	out = f.say(t, "yes")
	if out.Feedback.Text != "Which slide number?" {
		t.Fatalf("after yes = %+v", out)
	}
	out = f.say(t, "1")
	if out.Outcome != session.OutcomeExecuted || out.Intent != command.IntentDeleteSlide {
		t.Fatalf("after answer = %+v", out)
	}
	if got := f.deck.Summary(); got.SlideCount != 1 || got.SlideTitles[0] != "Two" {
		t.Fatalf("deck = %+v", got)
	}
}

func TestNearMissCancelled(t *testing.T) {
	f := newFixture(t, "One")
	f.say(t, "delete")
	out := f.say(t, "never mind")
	if out.Outcome != session.OutcomeInfo || out.State != session.StateListening {
		t.Fatalf("cancel outcome = %+v", out)
	}
	if len(f.gen.prompts) != 0 || f.deck.Summary().SlideCount != 1 {
		t.Fatal("cancel should not generate or change the deck")
	}
}

func TestAmbiguousMatchAsksBetweenCandidates(t *testing.T) {
	f := newFixture(t, "One")
	out := f.say(t, "change to blue")
	if out.Clarification == nil || out.Clarification.RunnerUp != command.IntentSetTitle {
		t.Fatalf("outcome = %+v", out)
	}
	if out.ErrorKind != command.KindParseAmbiguous {
		t.Fatalf("ErrorKind = %s, want parse_ambiguous", out.ErrorKind)
	}
	if out.Feedback.Text != "Did you want to change the layout, or change the title?" {
		t.Fatalf("prompt = %q", out.Feedback.Text)
	}
}

func TestNewCommandReplacesPendingClarification(t *testing.T) {
	f := newFixture(t, "One")
	f.say(t, "change the background")
	out := f.say(t, "create a slide with title Next")
	if out.Intent != command.IntentCreateSlide || out.Outcome != session.OutcomeExecuted {
		t.Fatalf("outcome = %+v", out)
	}
	if _, pending := f.st.Pending(); pending {
		t.Fatal("clarification still pending")
	}
}

func TestFreeTextAnswerIsNotReadAsCommand(t *testing.T) {
	cases := []struct {
		ask    string
		answer string
		intent command.Intent
		check  func(deck.Slide) string
	}{
		{"change the title", "Save the date", command.IntentSetTitle, func(s deck.Slide) string { return s.Title }},
		{"change the title", "Add new features", command.IntentSetTitle, func(s deck.Slide) string { return s.Title }},
		{"change the text", "Delete slide two before Friday", command.IntentSetBody, func(s deck.Slide) string { return s.Body }},
	}
	for _, tc := range cases {
		t.Run(tc.answer, func(t *testing.T) {
			f := newFixture(t, "Intro")
			first := f.say(t, tc.ask)
			if first.Outcome != session.OutcomeClarify {
				t.Fatalf("%q outcome = %+v, want clarification", tc.ask, first)
			}
			out := f.say(t, tc.answer)
			if out.Intent != tc.intent || out.Outcome != session.OutcomeExecuted {
				t.Fatalf("answer outcome = %+v, want executed %s", out, tc.intent)
			}
			snap := f.deck.Snapshot()
			if len(snap.Slides) != 1 {
				t.Fatalf("slides = %d, want 1", len(snap.Slides))
			}
			if got := tc.check(snap.Slides[0]); got != tc.answer {
				t.Fatalf("slide value = %q, want %q", got, tc.answer)
			}
			if out.Result == nil || out.Result.Intent != tc.intent {
				t.Fatalf("Result = %+v, want %s", out.Result, tc.intent)
			}
		})
	}
}

func TestFreeTextAnswerStillHonoursCancelAndStop(t *testing.T) {
	f := newFixture(t, "Intro")
	f.say(t, "change the title")
	if out := f.say(t, "never mind"); out.Outcome != session.OutcomeInfo {
		t.Fatalf("cancel outcome = %+v", out)
	}
	f.say(t, "change the title")
	if out := f.say(t, "stop"); !out.Stopped {
		t.Fatalf("stop outcome = %+v", out)
	}
	if got := f.deck.Snapshot().Slides[0].Title; got != "Intro" {
		t.Fatalf("title = %q, want Intro", got)
	}
}

func TestStopWinsAndEndsSession(t *testing.T) {
	f := newFixture(t, "One")
	f.say(t, "change the background")

	out := f.say(t, "please stop")
	if !out.Stopped || out.Intent != command.IntentStop || out.State != session.StateIdle {
		t.Fatalf("stop outcome = %+v", out)
	}
	if _, pending := f.st.Pending(); pending {
		t.Fatal("stop should cancel the pending clarification")
	}
	if !f.st.Ended() {
		t.Fatal("session should be ended after stop")
	}

	after := f.say(t, "create a slide")
	if !errors.Is(after.Err, ErrSessionStopped) {
		t.Fatalf("after stop Err = %v, want ErrSessionStopped", after.Err)
	}
}

func TestExecutionFailureKeepsSessionAlive(t *testing.T) {
	f := newFixture(t, "One")
	out := f.say(t, "insert image from missing.png")
	if out.ErrorKind != command.KindExecutionFailure || !errors.Is(out.Err, deck.ErrImageNotFound) {
		t.Fatalf("outcome = %+v", out)
	}
	if out.State != session.StateListening {
		t.Fatalf("state = %s, want listening", out.State)
	}
	if next := f.say(t, "create a slide"); next.Outcome != session.OutcomeExecuted {
		t.Fatalf("next outcome = %+v", next)
	}
	if f.st.Stats().Failures != 1 {
		t.Fatalf("Failures = %d, want 1", f.st.Stats().Failures)
	}
}

func TestInsertImageFromAssets(t *testing.T) {
	assets := t.TempDir()
	if err := os.WriteFile(filepath.Join(assets, "logo.png"), []byte("png"), 0o600); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	d := deck.New(deck.Options{AssetsDir: assets})
	st := session.NewState("img", d, 5)
	l := New(Config{})
	ctx := context.Background()
	l.ProcessTranscript(ctx, st, command.NewTranscript("create a slide", command.SourceTyped))
	out := l.ProcessTranscript(ctx, st, command.NewTranscript("insert image from logo.png", command.SourceTyped))
	if out.Outcome != session.OutcomeExecuted {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestGenerationFailureIsTyped(t *testing.T) {
	f := newFixture(t)
	f.gen.err = contentgen.ErrUnavailable
	out := f.say(t, "flerm zonk the slide")
	if out.ErrorKind != command.KindGenerationFailure || !errors.Is(out.Err, contentgen.ErrUnavailable) {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Feedback.Text != "I couldn't generate content for that. Try a more specific command." {
		t.Fatalf("Feedback = %q", out.Feedback.Text)
	}

	noGen := New(Config{})
	out = noGen.ProcessTranscript(context.Background(), session.NewState("x", deck.New(deck.Options{}), 5),
		command.NewTranscript("flerm zonk the slide", command.SourceTyped))
	if out.ErrorKind != command.KindGenerationFailure {
		t.Fatalf("without generator outcome = %+v", out)
	}
}

func TestHelpFeedback(t *testing.T) {
	f := newFixture(t)
	out := f.say(t, "help")
	if out.Intent != command.IntentHelp || out.Feedback.Kind != voice.FeedbackHelp {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Feedback.Text != command.HelpText() {
		t.Fatalf("help text mismatch")
	}
}

func TestEmptyTranscriptIsNothingHeard(t *testing.T) {
	f := newFixture(t)
	out := f.say(t, "   ")
	if out.ErrorKind != command.KindCaptureTimeout || out.Feedback.Kind != voice.FeedbackNothingHeard {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestHistoryIsRecordedAndRedacted(t *testing.T) {
	f := newFixture(t)
	f.say(t, "create a slide with title mail me at bob@example.com")
	entries, err := f.history.Recent(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || !entries[0].PIIRedacted || entries[0].Intent != string(command.IntentCreateSlide) {
		t.Fatalf("entries = %+v", entries)
	}
	if len(f.st.Recent()) != 1 {
		t.Fatalf("Recent() = %+v", f.st.Recent())
	}
}

func TestRunContinuousUntilStop(t *testing.T) {
	f := newFixture(t)
	capt := voice.NewChannelCapturer(8)
	for _, text := range []string{"create a slide with title A", "create a slide with title B", "go to slide 1", "stop"} {
		capt.Push(command.NewTranscript(text, command.SourceSpeech))
	}
	rec := &voice.Recorder{}
	var outcomes []Outcome
	err := f.loop.Run(context.Background(), f.st, Channel{
		Capturer: capt,
		Speaker:  rec,
		Observe:  func(o Outcome) { outcomes = append(outcomes, o) },
	}, ModeContinuous)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outcomes) != 4 || !outcomes[3].Stopped {
		t.Fatalf("outcomes = %d, last = %+v", len(outcomes), outcomes[len(outcomes)-1])
	}
	if len(rec.Said()) != 4 {
		t.Fatalf("feedback count = %d, want 4", len(rec.Said()))
	}
	if got := f.deck.Summary(); got.SlideCount != 2 || got.CurrentSlide != 1 {
		t.Fatalf("deck = %+v", got)
	}
	if err := f.loop.Run(context.Background(), f.st, Channel{Capturer: capt}, ModeContinuous); !errors.Is(err, ErrSessionStopped) {
		t.Fatalf("Run() on stopped session error = %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.loop.Run(ctx, f.st, Channel{Capturer: voice.NewChannelCapturer(1)}, ModeContinuous)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunContinuousSurvivesTimeouts(t *testing.T) {
	f := newFixture(t)
	capt := voice.NewChannelCapturer(1)
	var outcomes []Outcome
	go func() {
		time.Sleep(60 * time.Millisecond)
		capt.Push(command.NewTranscript("stop", command.SourceSpeech))
	}()
	err := f.loop.Run(context.Background(), f.st, Channel{
		Capturer: capt,
		Observe:  func(o Outcome) { outcomes = append(outcomes, o) },
	}, ModeContinuous)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outcomes) < 2 || outcomes[0].ErrorKind != command.KindCaptureTimeout || !outcomes[len(outcomes)-1].Stopped {
		t.Fatalf("outcomes = %+v", outcomes)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeContinuous, "single": ModeSingle, "continuous": ModeContinuous} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("forever"); err == nil {
		t.Fatal("ParseMode(forever) error = nil")
	}
}

// serialPresentation fails the test if two Apply calls ever overlap.
type serialPresentation struct {
	deck.Presentation
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (p *serialPresentation) Apply(ctx context.Context, a command.Action) (deck.Result, error) {
	if p.inFlight.Add(1) > 1 {
		p.overlaps.Add(1)
	}
	defer p.inFlight.Add(-1)
	time.Sleep(time.Millisecond)
	return p.Presentation.Apply(ctx, a)
}

func TestConcurrentCyclesOnOneSessionRunSequentially(t *testing.T) {
	const n = 16
	pres := &serialPresentation{Presentation: deck.New(deck.Options{Dir: t.TempDir()})}
	loop := New(Config{CaptureTimeout: 20 * time.Millisecond})
	st := session.NewState("shared", pres, n)

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr := command.NewTranscript(fmt.Sprintf("create a slide with title Part %d", i), command.SourceTyped)
			outcomes <- loop.ProcessTranscript(context.Background(), st, tr)
		}(i)
	}
	wg.Wait()
	close(outcomes)

	for out := range outcomes {
		if out.Outcome != session.OutcomeExecuted {
			t.Fatalf("outcome = %+v, want executed", out)
		}
	}
	if got := pres.overlaps.Load(); got != 0 {
		t.Fatalf("overlapping Apply calls = %d, want 0", got)
	}
	if got := pres.Summary().SlideCount; got != n {
		t.Fatalf("SlideCount = %d, want %d", got, n)
	}
	stats := st.Stats()
	if stats.CommandsProcessed != n || stats.CommandsSucceeded != n {
		t.Fatalf("Stats() = %+v, want %d processed and succeeded", stats, n)
	}
	if got := len(st.Recent()); got != n {
		t.Fatalf("len(Recent()) = %d, want %d", got, n)
	}
}

func TestConcurrentSessionsStayIndependent(t *testing.T) {
	const n = 12
	loop := New(Config{CaptureTimeout: 20 * time.Millisecond})
	names := []string{"alpha", "beta"}
	decks := make([]*deck.Deck, len(names))
	states := make([]*session.State, len(names))
	for i, name := range names {
		decks[i] = deck.New(deck.Options{Dir: t.TempDir()})
		states[i] = session.NewState(name, decks[i], 4)
	}

	var wg sync.WaitGroup
	for i, name := range names {
		for j := 0; j < n; j++ {
			wg.Add(1)
			go func(st *session.State, title string) {
				defer wg.Done()
				loop.ProcessTranscript(context.Background(), st, command.NewTranscript("create a slide with title "+title, command.SourceTyped))
			}(states[i], fmt.Sprintf("%s %d", name, j))
		}
	}
	wg.Wait()

	for i, name := range names {
		snap := decks[i].Snapshot()
		if len(snap.Slides) != n {
			t.Fatalf("%s slides = %d, want %d", name, len(snap.Slides), n)
		}
		for _, s := range snap.Slides {
			if !strings.HasPrefix(s.Title, name+" ") {
				t.Fatalf("%s deck holds slide %q", name, s.Title)
			}
		}
		recent := states[i].Recent()
		if len(recent) != 4 {
			t.Fatalf("%s len(Recent()) = %d, want ring size 4", name, len(recent))
		}
		for _, a := range recent {
			if !strings.Contains(a.Transcript, name+" ") {
				t.Fatalf("%s ring holds %q", name, a.Transcript)
			}
		}
		if got := states[i].Stats().CommandsProcessed; got != n {
			t.Fatalf("%s CommandsProcessed = %d, want %d", name, got, n)
		}
	}
}
