package command

// Pattern is one way of phrasing an intent. Every required keyword should be
// present; optional keywords only raise the score. Any Exclude word
// disqualifies the pattern.
type Pattern struct {
	ID       string
	Required []string
	Optional []string
	Exclude  []string
}

// IntentPatterns binds an intent to its alternatives. Table order is the
// tie-break order.
type IntentPatterns struct {
	Intent   Intent
	Patterns []Pattern
}

// genericKeywords appear in most patterns; a hit on them alone is not a near miss.
var genericKeywords = map[string]bool{"slide": true}

var defaultPatterns = []IntentPatterns{
	{Intent: IntentCreateSlide, Patterns: []Pattern{
		{ID: "create_slide.add", Required: []string{"add", "slide"}, Optional: []string{"new", "title"}},
		{ID: "create_slide.create", Required: []string{"create", "slide"}, Optional: []string{"new", "title"}},
		{ID: "create_slide.make", Required: []string{"make", "slide"}, Optional: []string{"new", "title"}},
		{ID: "create_slide.insert", Required: []string{"insert", "slide"}, Optional: []string{"new", "title"}},
		{ID: "create_slide.new", Required: []string{"new", "slide"}, Optional: []string{"title"}},
	}},
	{Intent: IntentDeleteSlide, Patterns: []Pattern{
		{ID: "delete_slide.delete", Required: []string{"delete", "slide"}, Optional: []string{"number"}},
		{ID: "delete_slide.remove", Required: []string{"remove", "slide"}, Optional: []string{"number"}},
	}},
	{Intent: IntentSetLayout, Patterns: []Pattern{
		{ID: "set_layout.change", Required: []string{"change", "layout"}, Optional: []string{"to"}},
		{ID: "set_layout.set", Required: []string{"set", "layout"}, Optional: []string{"to"}},
		{ID: "set_layout.use", Required: []string{"use", "layout"}},
		{ID: "set_layout.apply", Required: []string{"apply", "layout"}},
		{ID: "set_layout.bare", Required: []string{"layout"}, Optional: []string{"to", "slide"}},
	}},
	{Intent: IntentSetTitle, Patterns: []Pattern{
		{ID: "set_title.change", Exclude: []string{"layout", "background"}, Required: []string{"change", "title"}, Optional: []string{"to"}},
		{ID: "set_title.set", Exclude: []string{"layout", "background"}, Required: []string{"set", "title"}, Optional: []string{"to"}},
		{ID: "set_title.update", Exclude: []string{"layout", "background"}, Required: []string{"update", "title"}, Optional: []string{"to"}},
		{ID: "set_title.should", Required: []string{"title", "should"}, Optional: []string{"be"}},
		{ID: "set_title.rename", Required: []string{"rename", "slide"}, Optional: []string{"to"}},
	}},
	{Intent: IntentSetBody, Patterns: []Pattern{
		{ID: "set_body.add_content", Exclude: []string{"title"}, Required: []string{"add", "content"}, Optional: []string{"to"}},
		{ID: "set_body.set_content", Exclude: []string{"title", "layout", "background"}, Required: []string{"set", "content"}, Optional: []string{"to"}},
		{ID: "set_body.change_content", Exclude: []string{"title", "layout", "background"}, Required: []string{"change", "content"}, Optional: []string{"to"}},
		{ID: "set_body.add_text", Exclude: []string{"title"}, Required: []string{"add", "text"}, Optional: []string{"to"}},
		{ID: "set_body.set_text", Exclude: []string{"title", "layout", "background"}, Required: []string{"set", "text"}, Optional: []string{"to"}},
		{ID: "set_body.change_text", Exclude: []string{"title", "layout", "background"}, Required: []string{"change", "text"}, Optional: []string{"to"}},
		{ID: "set_body.update_text", Exclude: []string{"title", "layout", "background"}, Required: []string{"update", "text"}, Optional: []string{"to"}},
		{ID: "set_body.body", Exclude: []string{"title", "layout", "background"}, Required: []string{"set", "body"}, Optional: []string{"to"}},
		{ID: "set_body.write", Required: []string{"write"}, Optional: []string{"text", "content"}},
	}},
	{Intent: IntentInsertImage, Patterns: []Pattern{
		{ID: "insert_image.add", Required: []string{"add", "image"}, Optional: []string{"from"}},
		{ID: "insert_image.insert", Required: []string{"insert", "image"}, Optional: []string{"from"}},
		{ID: "insert_image.load", Required: []string{"load", "image"}, Optional: []string{"from"}},
		{ID: "insert_image.put", Required: []string{"put", "image"}, Optional: []string{"from"}},
	}},
	{Intent: IntentInsertChart, Patterns: []Pattern{
		{ID: "insert_chart.add", Required: []string{"add", "chart"}, Optional: []string{"bar", "column", "line", "pie"}},
		{ID: "insert_chart.insert", Required: []string{"insert", "chart"}, Optional: []string{"bar", "column", "line", "pie"}},
		{ID: "insert_chart.create", Required: []string{"create", "chart"}, Optional: []string{"bar", "column", "line", "pie"}},
		{ID: "insert_chart.make", Required: []string{"make", "chart"}, Optional: []string{"bar", "column", "line", "pie"}},
	}},
	{Intent: IntentSetBackground, Patterns: []Pattern{
		{ID: "set_background.change", Required: []string{"change", "background"}, Optional: []string{"to", "color"}},
		{ID: "set_background.set", Required: []string{"set", "background"}, Optional: []string{"to", "color"}},
		{ID: "set_background.make", Required: []string{"make", "background"}, Optional: []string{"to", "color"}},
		{ID: "set_background.bare", Required: []string{"background"}, Optional: []string{"to", "color"}},
	}},
	{Intent: IntentSave, Patterns: []Pattern{
		{ID: "save.save", Required: []string{"save"}, Optional: []string{"presentation", "as", "file"}},
		{ID: "save.export", Required: []string{"export"}, Optional: []string{"presentation", "as", "file"}},
	}},
	{Intent: IntentNavigate, Patterns: []Pattern{
		{ID: "navigate.go", Required: []string{"go", "slide"}, Optional: []string{"to", "number"}},
		{ID: "navigate.show", Required: []string{"show", "slide"}, Optional: []string{"number"}},
		{ID: "navigate.open", Required: []string{"open", "slide"}, Optional: []string{"number"}},
		{ID: "navigate.jump", Required: []string{"jump", "slide"}, Optional: []string{"to"}},
		{ID: "navigate.next", Required: []string{"next", "slide"}},
		{ID: "navigate.previous", Required: []string{"previous", "slide"}},
		{ID: "navigate.back", Required: []string{"back"}, Optional: []string{"go", "slide"}},
	}},
}

// Patterns returns a copy of the built-in pattern table.
func Patterns() []IntentPatterns {
	out := make([]IntentPatterns, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}

var (
	stopKeywords = map[string]bool{"stop": true, "quit": true, "exit": true}
	helpKeywords = map[string]bool{"help": true, "commands": true}
)

// metaIntent checks the short-circuit commands. Stop outranks Help.
func metaIntent(tokens []string) (Intent, string) {
	for _, tok := range tokens {
		if stopKeywords[tok] {
			return IntentStop, "stop.keyword"
		}
	}
	for _, tok := range tokens {
		if helpKeywords[tok] {
			return IntentHelp, "help.keyword"
		}
	}
	if containsSequence(tokens, "what", "can", "you", "do") {
		return IntentHelp, "help.what_can_you_do"
	}
	return "", ""
}

func containsSequence(tokens []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(tokens); i++ {
		match := true
		for k, s := range seq {
			if tokens[i+k] != s {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
