package command

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases and segments text into comparable tokens. Number words
// become digits and the synonym table collapses spoken variants, so
// Normalize(strings.Join(Normalize(s), " ")) equals Normalize(s).
func Normalize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	words := segment(foldDiacritics(strings.ToLower(text)))
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		w := words[i]
		if v, ok := cardinals[w]; ok {
			if v >= 20 && v%10 == 0 && i+1 < len(words) {
				if unit, ok := cardinals[words[i+1]]; ok && unit > 0 && unit < 10 {
					out = append(out, strconv.Itoa(v+unit))
					i++
					continue
				}
			}
			out = append(out, strconv.Itoa(v))
			continue
		}
		if syn, ok := synonyms[w]; ok {
			w = syn
		}
		out = append(out, w)
	}
	return out
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// segment splits on anything that isn't a letter or digit. Path-like
// separators survive when they sit between two alphanumerics so "logo.png"
// and "q3/report" stay whole; apostrophes inside words are dropped.
func segment(s string) []string {
	rs := []rune(s)
	var (
		words []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		case isInnerRune(r) && between(rs, i):
			cur.WriteRune(r)
		case (r == '\'' || r == '’') && between(rs, i):
			continue
		default:
			flush()
		}
	}
	flush()
	return words
}

func isInnerRune(r rune) bool {
	switch r {
	case '.', '/', '_', '\\', ':':
		return true
	default:
		return false
	}
}

func between(rs []rune, i int) bool {
	if i == 0 || i == len(rs)-1 {
		return false
	}
	return isAlnum(rs[i-1]) && isAlnum(rs[i+1])
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigits(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
