package command

import (
	"fmt"
	"sort"
	"strings"
)

// RGB is a background color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var colors = map[string]RGB{
	"red":         {255, 0, 0},
	"green":       {0, 255, 0},
	"blue":        {0, 0, 255},
	"yellow":      {255, 255, 0},
	"orange":      {255, 165, 0},
	"purple":      {128, 0, 128},
	"pink":        {255, 192, 203},
	"black":       {0, 0, 0},
	"white":       {255, 255, 255},
	"gray":        {128, 128, 128},
	"grey":        {128, 128, 128},
	"light blue":  {173, 216, 230},
	"dark blue":   {0, 0, 139},
	"light green": {144, 238, 144},
	"dark green":  {0, 100, 0},
	"light gray":  {211, 211, 211},
	"light grey":  {211, 211, 211},
	"dark gray":   {169, 169, 169},
	"dark grey":   {169, 169, 169},
	"navy":        {0, 0, 128},
	"teal":        {0, 128, 128},
	"brown":       {165, 42, 42},
}

// LookupColor resolves a canonical color name.
func LookupColor(name string) (RGB, bool) {
	c, ok := colors[name]
	return c, ok
}

// Layout is a named slide layout with the id a slide master would use.
type Layout struct {
	Name    string
	ID      int
	Aliases []string
}

var layouts = []Layout{
	{Name: "title slide", ID: 0, Aliases: []string{"title"}},
	{Name: "title and content", ID: 1, Aliases: []string{"content"}},
	{Name: "section header", ID: 2, Aliases: []string{"section"}},
	{Name: "two content", ID: 3},
	{Name: "comparison", ID: 4},
	{Name: "title only", ID: 5},
	{Name: "blank", ID: 6, Aliases: []string{"empty"}},
	{Name: "content with caption", ID: 7, Aliases: []string{"caption"}},
	{Name: "picture with caption", ID: 8, Aliases: []string{"picture", "image with caption"}},
}

// LayoutNames lists the canonical layout names in id order.
func LayoutNames() []string {
	out := make([]string, 0, len(layouts))
	for _, l := range layouts {
		out = append(out, l.Name)
	}
	return out
}

func LookupLayout(name string) (Layout, bool) {
	for _, l := range layouts {
		if l.Name == name {
			return l, true
		}
	}
	return Layout{}, false
}

// ChartKinds is the closed set of chart types.
var ChartKinds = []string{"bar", "column", "line", "pie"}

const DefaultChartKind = "bar"

func validChart(kind string) bool {
	for _, k := range ChartKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// phrase is a multi-token table key in normalized form.
type phrase struct {
	tokens []string
	value  string
}

// colorPhrases and layoutPhrases are normalized once and sorted longest first
// so scanning picks "light blue" over "blue".
var (
	colorPhrases  = buildColorPhrases()
	layoutPhrases = buildLayoutPhrases()
)

func buildColorPhrases() []phrase {
	out := make([]phrase, 0, len(colors))
	for name := range colors {
		out = append(out, phrase{tokens: strings.Fields(name), value: name})
	}
	sortPhrases(out)
	return out
}

func buildLayoutPhrases() []phrase {
	var out []phrase
	for _, l := range layouts {
		out = append(out, phrase{tokens: Normalize(l.Name), value: l.Name})
		for _, a := range l.Aliases {
			out = append(out, phrase{tokens: Normalize(a), value: l.Name})
		}
	}
	sortPhrases(out)
	return out
}

func sortPhrases(p []phrase) {
	sort.SliceStable(p, func(i, j int) bool {
		if len(p[i].tokens) != len(p[j].tokens) {
			return len(p[i].tokens) > len(p[j].tokens)
		}
		return p[i].value < p[j].value
	})
}

// longestPhraseAt returns the longest phrase starting at tokens[i].
func longestPhraseAt(table []phrase, tokens []string, i int) (phrase, bool) {
	for _, p := range table {
		if i+len(p.tokens) > len(tokens) {
			continue
		}
		match := true
		for k, tok := range p.tokens {
			if tokens[i+k] != tok {
				match = false
				break
			}
		}
		if match {
			return p, true
		}
	}
	return phrase{}, false
}

var cardinals = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
}

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14, "fifteenth": 15,
	"sixteenth": 16, "seventeenth": 17, "eighteenth": 18, "nineteenth": 19,
	"twentieth": 20, "thirtieth": 30, "fortieth": 40, "fiftieth": 50,
}

var synonyms = map[string]string{
	"pic":         "image",
	"pics":        "image",
	"picture":     "image",
	"pictures":    "image",
	"photo":       "image",
	"photos":      "image",
	"photograph":  "image",
	"img":         "image",
	"images":      "image",
	"page":        "slide",
	"pages":       "slide",
	"slides":      "slide",
	"titled":      "title",
	"heading":     "title",
	"headline":    "title",
	"graph":       "chart",
	"diagram":     "chart",
	"charts":      "chart",
	"colour":      "color",
	"erase":       "delete",
	"goto":        "go",
	"prev":        "previous",
	"backdrop":    "background",
	"backgrounds": "background",
}

// stopWords never take part in fuzzy keyword matching.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "on": true,
	"in": true, "for": true, "with": true, "and": true, "please": true,
	"my": true, "this": true, "that": true, "it": true, "is": true,
	"be": true, "me": true, "i": true, "can": true, "you": true, "now": true,
	"number": true, "some": true, "at": true, "by": true, "up": true,
}

// textTriggers start a free-text span in the original transcript.
var (
	titleTriggers = map[string]bool{"title": true, "called": true}
	bodyTriggers  = map[string]bool{"content": true, "text": true, "body": true, "saying": true}
)
