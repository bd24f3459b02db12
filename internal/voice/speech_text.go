package voice

import (
	"regexp"
	"strings"
	"unicode"
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order; generated slide content may carry markdown.
var speechRewrites = []rewrite{
	{regexp.MustCompile("(?s)```.*?```"), " "},
	{regexp.MustCompile("`([^`]*)`"), "$1"},
	{regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), "$1"},
	{regexp.MustCompile(`https?://\S+`), " "},
	{regexp.MustCompile(`#[0-9A-Fa-f]{6}\b`), " "},
	{regexp.MustCompile(`(?:[\w.-]*[/\\])+([\w.-]+)`), "$1"},
	{regexp.MustCompile(`\b([\w-]+)\.(json|png|jpe?g|gif|svg|pptx)\b`), "$1 $2"},
	{regexp.MustCompile(`(\d+)\s*%`), "$1 percent"},
}

var speechWords = strings.NewReplacer(
	"&", " and ",
	"+", " plus ",
	"->", " to ",
)

// speakable turns feedback text into something a speech engine reads cleanly.
// File paths collapse to the base name and color hex codes are dropped.
func speakable(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, rw := range speechRewrites {
		raw = rw.re.ReplaceAllString(raw, rw.repl)
	}
	raw = speechWords.Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	space := true
	emitSpace := func() {
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			emitSpace()
		case unicode.IsControl(r), unicode.Is(unicode.Mn, r), unicode.In(r, unicode.So, unicode.Sm, unicode.Sk, unicode.Cf):
		case strings.ContainsRune(`.,!?:;'"-()`, r):
			if space && b.Len() > 0 && strings.ContainsRune(`.,!?:;`, r) {
				s := strings.TrimRight(b.String(), " ")
				b.Reset()
				b.WriteString(s)
			}
			b.WriteRune(r)
			space = false
		case unicode.IsPunct(r):
			emitSpace()
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return strings.TrimSpace(b.String())
}
