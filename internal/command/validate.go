package command

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// requiredParams lists what each executable intent cannot run without.
// Slide-scoped intents missing from here fall back to the current slide.
var requiredParams = map[Intent][]Param{
	IntentCreateSlide:   nil,
	IntentDeleteSlide:   {ParamSlide},
	IntentSetLayout:     {ParamLayout},
	IntentSetTitle:      {ParamTitle},
	IntentSetBody:       {ParamBody},
	IntentInsertImage:   {ParamPath},
	IntentInsertChart:   {ParamChart},
	IntentSetBackground: {ParamColor},
	IntentSave:          nil,
	IntentNavigate:      {ParamSlide},
}

// RequiredParams returns the parameters an intent must carry.
func RequiredParams(intent Intent) []Param {
	return append([]Param(nil), requiredParams[intent]...)
}

var actionNamespace = uuid.MustParse("8f3c2a4e-6d1b-4f0a-9c7e-2b5d1e9a0c43")

// Validate checks a bag against the presentation and builds the Action.
// Checks run in order: required keys, slide range, enum membership. The
// result depends only on its inputs; the action id is derived from the
// transcript id.
func Validate(tr Transcript, intent Intent, bag ParameterBag, summary Summary) (Action, error) {
	if !intent.Executable() {
		return Action{}, &Error{Kind: KindParseAmbiguous, Intent: intent, Detail: "nothing to execute"}
	}

	params := bag.Clone()
	for k, v := range params {
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				delete(params, k)
				continue
			}
			params[k] = s
		}
	}

	for _, p := range requiredParams[intent] {
		if !params.Has(p) {
			return Action{}, &Error{Kind: KindMissingParameter, Intent: intent, Param: p}
		}
	}

	if intent.SlideScoped() || params.Has(ParamSlide) {
		ref, ok := params.Slide()
		if !ok {
			ref = AbsoluteSlide(summary.CurrentSlide)
		}
		index := ref.Resolve(summary.CurrentSlide, summary.SlideCount)
		if index < 1 || index > summary.SlideCount {
			return Action{}, &Error{
				Kind:   KindIndexOutOfRange,
				Intent: intent,
				Param:  ParamSlide,
				Detail: outOfRangeDetail(ref, index, summary.SlideCount),
			}
		}
		params[ParamSlide] = AbsoluteSlide(index)
	}

	if err := checkEnums(intent, params, summary); err != nil {
		return Action{}, err
	}

	return Action{
		ID:         uuid.NewSHA1(actionNamespace, []byte(tr.ID+"/"+string(intent))).String(),
		Intent:     intent,
		Params:     params,
		Transcript: tr,
		valid:      true,
	}, nil
}

func checkEnums(intent Intent, params ParameterBag, summary Summary) error {
	if v, ok := params.Text(ParamLayout); ok && !layoutAllowed(v, summary.Layouts) {
		return &Error{
			Kind:   KindInvalidValue,
			Intent: intent,
			Param:  ParamLayout,
			Detail: fmt.Sprintf("There is no %q layout. Try title slide, title and content, section header, two content, or blank.", v),
		}
	}
	if v, ok := params.Text(ParamChart); ok && !validChart(v) {
		return &Error{
			Kind:   KindInvalidValue,
			Intent: intent,
			Param:  ParamChart,
			Detail: fmt.Sprintf("I can't draw a %q chart. Choose bar, column, line, or pie.", v),
		}
	}
	if v, ok := params.Text(ParamColor); ok {
		if _, known := LookupColor(v); !known {
			return &Error{
				Kind:   KindInvalidValue,
				Intent: intent,
				Param:  ParamColor,
				Detail: fmt.Sprintf("I don't know the color %q. Try red, blue, light blue, or dark green.", v),
			}
		}
	}
	return nil
}

func layoutAllowed(name string, available []string) bool {
	if len(available) == 0 {
		_, ok := LookupLayout(name)
		return ok
	}
	for _, l := range available {
		if l == name {
			return true
		}
	}
	return false
}

func outOfRangeDetail(ref SlideRef, index, count int) string {
	switch {
	case count == 0:
		return "The presentation has no slides yet."
	case ref.Anchor == AnchorRelative && ref.Index > 0:
		return "You're already on the last slide."
	case ref.Anchor == AnchorRelative:
		return "You're already on the first slide."
	}
	said := fmt.Sprint(index)
	if ref.Spoken != "" {
		said = ref.Spoken
	}
	if count == 1 {
		return fmt.Sprintf("Slide %s doesn't exist. The presentation has 1 slide.", said)
	}
	return fmt.Sprintf("Slide %s doesn't exist. The presentation has %d slides.", said, count)
}
