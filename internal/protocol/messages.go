package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientTranscript MessageType = "client_transcript"
	TypeClientControl    MessageType = "client_control"
	TypeDispatchOutcome  MessageType = "dispatch_outcome"
	TypeFeedback         MessageType = "feedback"
	TypeSystemEvent      MessageType = "system_event"
	TypeErrorEvent       MessageType = "error_event"
)

// Control actions a client may send.
const (
	ControlStop = "stop"
	ControlHelp = "help"
	ControlPing = "ping"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientTranscript is one captured utterance. Source is "speech" or "typed".
type ClientTranscript struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	Source    string      `json:"source,omitempty"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
	Reason    string      `json:"reason,omitempty"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

// DispatchOutcome reports one finished cycle. Parameters carries the
// extracted values keyed by parameter name.
type DispatchOutcome struct {
	Type         MessageType    `json:"type"`
	SessionID    string         `json:"session_id"`
	TranscriptID string         `json:"transcript_id,omitempty"`
	Intent       string         `json:"intent"`
	Confidence   float64        `json:"confidence"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Outcome      string         `json:"outcome"`
	Message      string         `json:"message,omitempty"`
	Prompt       string         `json:"clarification_prompt,omitempty"`
	ErrorKind    string         `json:"error_kind,omitempty"`
	SlideCount   int            `json:"slide_count"`
	CurrentSlide int            `json:"current_slide"`
	State        string         `json:"state"`
	Stopped      bool           `json:"stopped,omitempty"`
	DurationMS   float64        `json:"duration_ms"`
}

type Feedback struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Kind      string      `json:"kind"`
	Text      string      `json:"text"`
	Speech    string      `json:"speech,omitempty"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientTranscript:
		var msg ClientTranscript
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_transcript: missing session_id")
		}
		switch msg.Source {
		case "", "speech", "typed":
		default:
			return nil, fmt.Errorf("invalid client_transcript: unknown source %q", msg.Source)
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.Action = strings.ToLower(strings.TrimSpace(msg.Action))
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		switch msg.Action {
		case ControlStop, ControlHelp, ControlPing:
		default:
			return nil, fmt.Errorf("invalid client_control: unknown action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// TypeOf returns the message type of any protocol value.
func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case ClientTranscript:
		return m.Type, true
	case ClientControl:
		return m.Type, true
	case DispatchOutcome:
		return m.Type, true
	case Feedback:
		return m.Type, true
	case SystemEvent:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
