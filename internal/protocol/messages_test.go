package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageTranscript(t *testing.T) {
	raw := []byte(`{"type":"client_transcript","session_id":"s1","text":"create a new slide","source":"speech","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	tr, ok := msg.(ClientTranscript)
	if !ok {
		t.Fatalf("message type = %T, want ClientTranscript", msg)
	}
	if tr.SessionID != "s1" || tr.Text != "create a new slide" || tr.Source != "speech" {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
}

func TestParseClientMessageAllowsEmptyText(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_transcript","session_id":"s1","text":""}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	if _, ok := msg.(ClientTranscript); !ok {
		t.Fatalf("message type = %T, want ClientTranscript", msg)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":" Stop ","reason":"user_button","ts_ms":456}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.SessionID != "s1" || control.Action != ControlStop {
		t.Fatalf("unexpected client control: %+v", control)
	}
	if control.TSMs != 456 {
		t.Fatalf("TSMs = %d, want %d", control.TSMs, 456)
	}
	if control.Reason != "user_button" {
		t.Fatalf("Reason = %q, want %q", control.Reason, "user_button")
	}
}

func TestParseClientMessageRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		`{"type":"client_transcript","session_id":"","text":"hi"}`,
		`{"type":"client_transcript","session_id":"s1","text":"hi","source":"telepathy"}`,
		`{"type":"client_control","session_id":"s1","action":"reboot"}`,
		`{"type":"client_control","session_id":"s1"}`,
		`not json`,
	} {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Fatalf("ParseClientMessage(%s) error = nil", raw)
		}
	}
}

func TestTypeOf(t *testing.T) {
	got, ok := TypeOf(Feedback{Type: TypeFeedback})
	if !ok || got != TypeFeedback {
		t.Fatalf("TypeOf(Feedback) = %q, %v", got, ok)
	}
	if _, ok := TypeOf("nope"); ok {
		t.Fatal("TypeOf(string) ok = true")
	}
}

func BenchmarkParseClientMessageTranscript(b *testing.B) {
	raw := []byte(`{"type":"client_transcript","session_id":"s1","text":"change the background of slide 3 to light blue","source":"speech","ts_ms":123456}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		msg, err := ParseClientMessage(raw)
		if err != nil {
			b.Fatalf("ParseClientMessage() error = %v", err)
		}
		if _, ok := msg.(ClientTranscript); !ok {
			b.Fatalf("message type = %T, want ClientTranscript", msg)
		}
	}
}
