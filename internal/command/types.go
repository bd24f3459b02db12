package command

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source tags where a transcript came from.
type Source string

const (
	SourceSpeech Source = "speech"
	SourceTyped  Source = "typed"
)

// Transcript is raw text from speech or typing, captured once and never mutated.
type Transcript struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Source     Source    `json:"source"`
	CapturedAt time.Time `json:"captured_at"`
}

func NewTranscript(text string, source Source) Transcript {
	if source == "" {
		source = SourceTyped
	}
	return Transcript{
		ID:         uuid.NewString(),
		Text:       text,
		Source:     source,
		CapturedAt: time.Now().UTC(),
	}
}

// Empty reports whether the transcript carries no words.
func (t Transcript) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// Intent is the closed set of actions a transcript can request.
type Intent string

const (
	IntentCreateSlide   Intent = "create_slide"
	IntentDeleteSlide   Intent = "delete_slide"
	IntentSetLayout     Intent = "set_layout"
	IntentSetTitle      Intent = "set_title"
	IntentSetBody       Intent = "set_body"
	IntentInsertImage   Intent = "insert_image"
	IntentInsertChart   Intent = "insert_chart"
	IntentSetBackground Intent = "set_background"
	IntentSave          Intent = "save_presentation"
	IntentNavigate      Intent = "navigate"
	IntentHelp          Intent = "help"
	IntentStop          Intent = "stop"
	IntentUnknown       Intent = "unknown"
)

var intentOrder = []Intent{
	IntentCreateSlide,
	IntentDeleteSlide,
	IntentSetLayout,
	IntentSetTitle,
	IntentSetBody,
	IntentInsertImage,
	IntentInsertChart,
	IntentSetBackground,
	IntentSave,
	IntentNavigate,
	IntentHelp,
	IntentStop,
	IntentUnknown,
}

// Intents returns every intent in declaration order.
func Intents() []Intent {
	out := make([]Intent, len(intentOrder))
	copy(out, intentOrder)
	return out
}

func (i Intent) Valid() bool {
	for _, known := range intentOrder {
		if i == known {
			return true
		}
	}
	return false
}

// Meta reports whether the intent controls the loop instead of editing the deck.
func (i Intent) Meta() bool {
	return i == IntentHelp || i == IntentStop
}

// Executable reports whether the intent is applied to a presentation.
func (i Intent) Executable() bool {
	return i.Valid() && !i.Meta() && i != IntentUnknown
}

// SlideScoped intents act on one slide, defaulting to the current one.
func (i Intent) SlideScoped() bool {
	switch i {
	case IntentDeleteSlide, IntentSetLayout, IntentSetTitle, IntentSetBody,
		IntentInsertImage, IntentInsertChart, IntentSetBackground, IntentNavigate:
		return true
	default:
		return false
	}
}

// Describe returns a short spoken phrase for the intent, used in prompts.
func (i Intent) Describe() string {
	switch i {
	case IntentCreateSlide:
		return "create a slide"
	case IntentDeleteSlide:
		return "delete a slide"
	case IntentSetLayout:
		return "change the layout"
	case IntentSetTitle:
		return "change the title"
	case IntentSetBody:
		return "set the slide text"
	case IntentInsertImage:
		return "insert an image"
	case IntentInsertChart:
		return "insert a chart"
	case IntentSetBackground:
		return "change the background"
	case IntentSave:
		return "save the presentation"
	case IntentNavigate:
		return "go to a slide"
	case IntentHelp:
		return "hear the available commands"
	case IntentStop:
		return "stop listening"
	default:
		return "do something I didn't recognize"
	}
}

// MatchResult is the matcher's verdict for one transcript.
//
// Candidate is the best scoring concrete intent even when Intent is Unknown;
// it is empty when nothing scored high enough to be worth confirming.
type MatchResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	PatternID  string  `json:"pattern_id,omitempty"`
	Candidate  Intent  `json:"candidate,omitempty"`
	RunnerUp   Intent  `json:"runner_up,omitempty"`
	Ambiguous  bool    `json:"ambiguous,omitempty"`
}

// NearMiss reports whether an Unknown result has a candidate worth confirming.
func (r MatchResult) NearMiss() bool {
	return r.Intent == IntentUnknown && r.Candidate != "" && r.Candidate != IntentUnknown
}

// Param names a typed value in a ParameterBag.
type Param string

const (
	ParamSlide  Param = "slide"
	ParamTitle  Param = "title"
	ParamBody   Param = "body"
	ParamColor  Param = "color"
	ParamChart  Param = "chart"
	ParamLayout Param = "layout"
	ParamPath   Param = "path"
)

// SlideAnchor says how a SlideRef index is interpreted.
type SlideAnchor string

const (
	AnchorAbsolute SlideAnchor = "absolute"
	AnchorLast     SlideAnchor = "last"
	AnchorRelative SlideAnchor = "relative"
)

// SlideRef points at a slide before the deck size is known.
type SlideRef struct {
	Anchor SlideAnchor `json:"anchor"`
	Index  int         `json:"index"`
	// Spoken keeps the digits as said when they don't fit in an int.
	Spoken string `json:"spoken,omitempty"`
}

func AbsoluteSlide(index int) SlideRef {
	return SlideRef{Anchor: AnchorAbsolute, Index: index}
}

// Resolve turns the reference into a 1-based index for a deck of count slides.
func (r SlideRef) Resolve(current, count int) int {
	switch r.Anchor {
	case AnchorLast:
		return count + r.Index
	case AnchorRelative:
		return current + r.Index
	default:
		return r.Index
	}
}

// ParameterBag holds whatever the extractor found. Absent keys mean "not said".
type ParameterBag map[Param]any

func (b ParameterBag) Has(p Param) bool {
	_, ok := b[p]
	return ok
}

func (b ParameterBag) Slide() (SlideRef, bool) {
	ref, ok := b[ParamSlide].(SlideRef)
	return ref, ok
}

// Text returns a string-valued parameter.
func (b ParameterBag) Text(p Param) (string, bool) {
	s, ok := b[p].(string)
	return s, ok
}

// Keys returns the present parameter names sorted for stable output.
func (b ParameterBag) Keys() []Param {
	keys := make([]Param, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (b ParameterBag) Clone() ParameterBag {
	out := make(ParameterBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge copies every key from other into a clone of b, overwriting.
func (b ParameterBag) Merge(other ParameterBag) ParameterBag {
	out := b.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Action is a validated instruction. Only Validate produces one with Valid() == true.
type Action struct {
	ID         string       `json:"id"`
	Intent     Intent       `json:"intent"`
	Params     ParameterBag `json:"params"`
	Transcript Transcript   `json:"transcript"`

	valid bool
}

func (a Action) Valid() bool { return a.valid }

// Slide is the resolved 1-based target slide, or 0 when the intent has none.
func (a Action) Slide() int {
	ref, ok := a.Params.Slide()
	if !ok {
		return 0
	}
	return ref.Index
}

func (a Action) Text(p Param) string {
	s, _ := a.Params.Text(p)
	return s
}

func (a Action) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID           string        `json:"id"`
		Intent       Intent        `json:"intent"`
		Params       map[Param]any `json:"params"`
		TranscriptID string        `json:"transcript_id"`
		Source       Source        `json:"source"`
	}
	params := make(map[Param]any, len(a.Params))
	for k, v := range a.Params {
		if ref, ok := v.(SlideRef); ok {
			params[k] = ref.Index
			continue
		}
		params[k] = v
	}
	return json.Marshal(wire{
		ID:           a.ID,
		Intent:       a.Intent,
		Params:       params,
		TranscriptID: a.Transcript.ID,
		Source:       a.Transcript.Source,
	})
}

// Summary is the read view of a presentation the validator checks against.
type Summary struct {
	SlideCount   int      `json:"slide_count"`
	CurrentSlide int      `json:"current_slide"`
	SlideTitles  []string `json:"slide_titles,omitempty"`
	Layouts      []string `json:"layouts,omitempty"`
}
