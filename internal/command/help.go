package command

import "strings"

// HelpTopic groups example phrasings for one area of the deck.
type HelpTopic struct {
	Name     string   `json:"name"`
	Examples []string `json:"examples"`
}

var helpTopics = []HelpTopic{
	{Name: "Slides", Examples: []string{
		"Create a new slide",
		"Create a slide with title Introduction",
		"Delete slide number 2",
		"Change the layout to title only",
	}},
	{Name: "Content", Examples: []string{
		"Change the title to Quarterly Results",
		"Add content revenue grew twelve percent",
		"Set the text of slide 3 to thank you",
	}},
	{Name: "Charts and images", Examples: []string{
		"Add a pie chart",
		"Insert image from logo.png",
	}},
	{Name: "Styling", Examples: []string{
		"Change the background to light blue",
	}},
	{Name: "Navigation and files", Examples: []string{
		"Go to slide 4",
		"Next slide",
		"Save presentation as quarterly review",
	}},
	{Name: "Control", Examples: []string{
		"Help",
		"Stop listening",
	}},
}

func HelpTopics() []HelpTopic {
	out := make([]HelpTopic, len(helpTopics))
	copy(out, helpTopics)
	return out
}

// HelpText renders the topics as a short listing for display or speech.
func HelpText() string {
	var b strings.Builder
	b.WriteString("Here is what you can say.")
	for _, t := range helpTopics {
		b.WriteString("\n")
		b.WriteString(t.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(quoteAll(t.Examples), ", "))
		b.WriteString(".")
	}
	return b.String()
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = `"` + s + `"`
	}
	return out
}
