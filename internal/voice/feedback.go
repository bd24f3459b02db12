package voice

type FeedbackKind string

const (
	FeedbackAck          FeedbackKind = "ack"
	FeedbackPrompt       FeedbackKind = "prompt"
	FeedbackError        FeedbackKind = "error"
	FeedbackHelp         FeedbackKind = "help"
	FeedbackNothingHeard FeedbackKind = "nothing_heard"
	FeedbackGenerated    FeedbackKind = "generated"
	FeedbackGoodbye      FeedbackKind = "goodbye"
)

// Feedback is what the user sees and hears after a cycle. Speech is Text with
// markup stripped for text-to-speech.
type Feedback struct {
	Kind   FeedbackKind `json:"kind"`
	Text   string       `json:"text"`
	Speech string       `json:"speech,omitempty"`
}

func NewFeedback(kind FeedbackKind, text string) Feedback {
	return Feedback{Kind: kind, Text: text, Speech: speakable(text)}
}

// ExpectsReply reports whether the user is being asked a question.
func (f Feedback) ExpectsReply() bool {
	return f.Kind == FeedbackPrompt
}
