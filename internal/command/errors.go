package command

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every recoverable failure of a dispatch cycle.
type ErrorKind string

const (
	KindParseAmbiguous    ErrorKind = "parse_ambiguous"
	KindMissingParameter  ErrorKind = "missing_parameter"
	KindIndexOutOfRange   ErrorKind = "index_out_of_range"
	KindInvalidValue      ErrorKind = "invalid_value"
	KindCaptureTimeout    ErrorKind = "capture_timeout"
	KindExecutionFailure  ErrorKind = "execution_failure"
	KindGenerationFailure ErrorKind = "generation_failure"
)

// Error is a typed rejection or failure carrying enough context to prompt the user.
type Error struct {
	Kind   ErrorKind
	Intent Intent
	Param  Param
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Intent != "" {
		msg += " (" + string(e.Intent) + ")"
	}
	if e.Param != "" {
		msg += ": " + string(e.Param)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, command.ErrMissingParameter).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Intent == "" && t.Param == "" && t.Detail == "" && t.Err == nil
}

var (
	ErrParseAmbiguous    = &Error{Kind: KindParseAmbiguous}
	ErrMissingParameter  = &Error{Kind: KindMissingParameter}
	ErrIndexOutOfRange   = &Error{Kind: KindIndexOutOfRange}
	ErrInvalidValue      = &Error{Kind: KindInvalidValue}
	ErrCaptureTimeout    = &Error{Kind: KindCaptureTimeout}
	ErrExecutionFailure  = &Error{Kind: KindExecutionFailure}
	ErrGenerationFailure = &Error{Kind: KindGenerationFailure}
)

// KindOf returns the kind of a wrapped *Error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Prompt is the user-facing message for the failure.
func (e *Error) Prompt() string {
	switch e.Kind {
	case KindMissingParameter:
		return missingPrompt(e.Param)
	case KindIndexOutOfRange:
		if e.Detail != "" {
			return e.Detail
		}
		return "That slide doesn't exist."
	case KindInvalidValue:
		if e.Detail != "" {
			return e.Detail
		}
		return fmt.Sprintf("I didn't understand the %s.", e.Param)
	case KindParseAmbiguous:
		if e.Detail != "" {
			return e.Detail
		}
		return "I'm not sure what you meant. Could you rephrase that?"
	case KindCaptureTimeout:
		return "I didn't hear anything."
	case KindExecutionFailure:
		if e.Err != nil {
			return fmt.Sprintf("I couldn't %s: %v.", e.Intent.Describe(), e.Err)
		}
		return fmt.Sprintf("I couldn't %s.", e.Intent.Describe())
	case KindGenerationFailure:
		return "I couldn't generate content for that. Try a more specific command."
	default:
		return "Something went wrong."
	}
}

func missingPrompt(p Param) string {
	switch p {
	case ParamSlide:
		return "Which slide number?"
	case ParamTitle:
		return "What should the title say?"
	case ParamBody:
		return "What text should I add?"
	case ParamColor:
		return "Which background color?"
	case ParamChart:
		return "Which chart type: bar, column, line, or pie?"
	case ParamLayout:
		return "Which layout? For example title, title and content, or blank."
	case ParamPath:
		return "Which image file should I insert?"
	default:
		return "Could you give me a bit more detail?"
	}
}
