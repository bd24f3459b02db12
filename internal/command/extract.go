package command

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var digitOrdinalPattern = regexp.MustCompile(`^(\d+)(?:st|nd|rd|th)$`)

// slideRefWord matches a spoken slide number inside the original transcript.
var slideRefWord = func() string {
	words := make([]string, 0, len(cardinals)+len(ordinals)+6)
	for w := range cardinals {
		words = append(words, w)
	}
	for w := range ordinals {
		words = append(words, w)
	}
	words = append(words, "last", "final", "next", "previous", "current", "this")
	sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	return `(?:\d+(?:st|nd|rd|th)?|(?:(?:twenty|thirty|forty)[\s-]+)?(?:` + strings.Join(words, "|") + `))`
}()

var (
	leadingSlideRef  = regexp.MustCompile(`(?i)^(?:of|for|on|in|to)\s+(?:the\s+)?(?:(?:slide|page)\s+(?:number\s+)?` + slideRefWord + `|` + slideRefWord + `\s+(?:slide|page))\b\s*`)
	trailingSlideRef = regexp.MustCompile(`(?i)[\s,]+(?:of|for|on|in|to)\s+(?:the\s+)?(?:(?:slide|page)\s+(?:number\s+)?` + slideRefWord + `|` + slideRefWord + `\s+(?:slide|page))[\s.!?]*$`)
	leadingConnector = regexp.MustCompile(`(?i)^(?:(?:to\s+be|should\s+be|will\s+be|to|as|is|be|reads?|says?|saying|that\s+says)\b|[:=,\-–]+)\s*`)
	trailingJoiner   = regexp.MustCompile(`(?i)[\s,;:]+(?:and|with|then|plus)[\s.!?]*$`)
)

// Extract pulls the parameters the intent cares about out of a transcript.
// tokens must be Normalize(tr.Text). It never fails; anything it cannot find
// is left out of the bag for the validator to report.
func Extract(intent Intent, tr Transcript, tokens []string) ParameterBag {
	bag := ParameterBag{}
	words := newWordList(tr.Text)

	switch intent {
	case IntentCreateSlide:
		if v, ok := words.textAfter(titleTriggers); ok {
			bag[ParamTitle] = v.value
		}
		if v, ok := words.textAfter(bodyTriggers); ok {
			bag[ParamBody] = v.value
		}
		if layout, ok := createLayout(tokens); ok {
			bag[ParamLayout] = layout
		}

	case IntentDeleteSlide, IntentNavigate:
		if ref, ok := slideRef(tokens, nil); ok {
			bag[ParamSlide] = ref
		}

	case IntentSetTitle, IntentSetBody:
		triggers, param := titleTriggers, ParamTitle
		if intent == IntentSetBody {
			triggers, param = bodyTriggers, ParamBody
		}
		v, ok := words.textAfter(triggers)
		if !ok {
			v, ok = words.textAfterVerb(intent)
		}
		scope := tokens
		if ok {
			if v.value != "" {
				bag[param] = v.value
			}
			scope = Normalize(v.prefix + " " + strings.Join(v.refs, " "))
		}
		if ref, found := slideRef(scope, nil); found {
			bag[ParamSlide] = ref
		}

	case IntentSetLayout:
		layout, span, ok := setLayout(tokens)
		if ok {
			bag[ParamLayout] = layout
		}
		if ref, found := slideRef(tokens, span); found {
			bag[ParamSlide] = ref
		}

	case IntentInsertImage:
		path, idx, ok := words.valueAfter(map[string]bool{"from": true, "named": true, "as": true, "called": true}, false)
		if !ok {
			path, idx, ok = words.fileLike()
		}
		if ok {
			bag[ParamPath] = path
		}
		scope := tokens
		if idx >= 0 {
			scope = Normalize(words.joinExcept(idx))
		}
		if ref, found := slideRef(scope, nil); found {
			bag[ParamSlide] = ref
		}

	case IntentInsertChart:
		bag[ParamChart] = chartKind(tokens)
		if ref, ok := slideRef(tokens, nil); ok {
			bag[ParamSlide] = ref
		}

	case IntentSetBackground:
		color, span, ok := colorName(tokens)
		if ok {
			bag[ParamColor] = color
		}
		if ref, found := slideRef(tokens, span); found {
			bag[ParamSlide] = ref
		}

	case IntentSave:
		if name, _, ok := words.valueAfter(map[string]bool{"as": true, "named": true, "called": true, "to": true}, true); ok {
			bag[ParamPath] = name
		}
	}
	return bag
}

// Fill reads a clarification answer for one missing parameter. Answers are
// usually bare ("three", "light blue", "Quarterly results"), so every rule
// falls back to the whole utterance.
func Fill(intent Intent, param Param, tr Transcript) ParameterBag {
	tokens := Normalize(tr.Text)
	bag := Extract(intent, tr, tokens)
	if bag.Has(param) {
		return ParameterBag{param: bag[param]}
	}

	raw := cleanText(tr.Text)
	switch param {
	case ParamSlide:
		if ref, ok := slideRef(tokens, nil); ok {
			return ParameterBag{ParamSlide: ref}
		}
	case ParamTitle, ParamBody:
		if raw != "" {
			return ParameterBag{param: raw}
		}
	case ParamColor:
		if color, _, ok := colorName(tokens); ok {
			return ParameterBag{ParamColor: color}
		}
		if len(tokens) > 0 {
			return ParameterBag{ParamColor: strings.Join(tokens, " ")}
		}
	case ParamLayout:
		if layout, _, ok := scanPhrase(layoutPhrases, tokens, 0, nil); ok {
			return ParameterBag{ParamLayout: layout}
		}
		if len(tokens) > 0 {
			return ParameterBag{ParamLayout: strings.Join(tokens, " ")}
		}
	case ParamChart:
		if len(tokens) > 0 {
			return ParameterBag{ParamChart: chartKind(tokens)}
		}
	case ParamPath:
		words := newWordList(tr.Text)
		if path, _, ok := words.fileLike(); ok {
			return ParameterBag{ParamPath: path}
		}
		if len(words.raw) == 1 && raw != "" {
			return ParameterBag{ParamPath: raw}
		}
	}
	return ParameterBag{}
}

// slideRef finds a slide reference, skipping token positions in skip.
// Explicit "slide N" wins over ordinals, which win over relative words,
// which win over the first bare number.
func slideRef(tokens []string, skip map[int]bool) (SlideRef, bool) {
	usable := func(i int) bool { return i >= 0 && i < len(tokens) && !skip[i] }

	for i, tok := range tokens {
		if !usable(i) || (tok != "slide" && tok != "number") {
			continue
		}
		j := i + 1
		if tok == "slide" && usable(j) && tokens[j] == "number" {
			j++
		}
		if usable(j) && isDigits(tokens[j]) {
			return digitSlide(tokens[j]), true
		}
	}
	for i := range tokens {
		if !usable(i) {
			continue
		}
		if n, ok := ordinalAt(tokens, i); ok {
			ref := AbsoluteSlide(n)
			if n == math.MaxInt {
				ref.Spoken = digitOrdinalPattern.ReplaceAllString(tokens[i], "$1")
			}
			return ref, true
		}
	}
	for i, tok := range tokens {
		if !usable(i) {
			continue
		}
		switch tok {
		case "last", "final":
			return SlideRef{Anchor: AnchorLast}, true
		case "next":
			return SlideRef{Anchor: AnchorRelative, Index: 1}, true
		case "previous", "back":
			return SlideRef{Anchor: AnchorRelative, Index: -1}, true
		}
	}
	for i, tok := range tokens {
		if usable(i) && isDigits(tok) {
			return digitSlide(tok), true
		}
	}
	return SlideRef{}, false
}

// ordinalAt reads "third", "3rd" and "20 first" (already-normalized "twenty first").
func ordinalAt(tokens []string, i int) (int, bool) {
	tok := tokens[i]
	if m := digitOrdinalPattern.FindStringSubmatch(tok); m != nil {
		return atoi(m[1]), true
	}
	if isDigits(tok) && i+1 < len(tokens) {
		tens := atoi(tok)
		if unit, ok := ordinals[tokens[i+1]]; ok && tens >= 20 && tens%10 == 0 && unit < 10 {
			return tens + unit, true
		}
	}
	if n, ok := ordinals[tok]; ok {
		return n, true
	}
	return 0, false
}

// atoi saturates at math.MaxInt so an oversized number stays out of range.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}

func digitSlide(tok string) SlideRef {
	ref := AbsoluteSlide(atoi(tok))
	if ref.Index == math.MaxInt {
		ref.Spoken = strings.TrimLeft(tok, "0")
	}
	return ref
}

func chartKind(tokens []string) string {
	for _, tok := range tokens {
		if validChart(tok) {
			return tok
		}
	}
	return DefaultChartKind
}

// colorName scans left to right for the longest color at each position.
// Without a known color it keeps the word after "to" or "background" so the
// validator can name what it did not recognize.
func colorName(tokens []string) (string, map[int]bool, bool) {
	if name, span, ok := scanPhrase(colorPhrases, tokens, 0, nil); ok {
		return name, span, true
	}
	for i := len(tokens) - 2; i >= 0; i-- {
		if tokens[i] != "to" && tokens[i] != "background" {
			continue
		}
		next := tokens[i+1]
		if stopWords[next] || isDigits(next) || next == "color" || next == "slide" {
			continue
		}
		return next, map[int]bool{i + 1: true}, true
	}
	return "", nil, false
}

// setLayout prefers a layout named after "to", then anywhere else.
func setLayout(tokens []string) (string, map[int]bool, bool) {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i] != "to" {
			continue
		}
		if name, span, ok := scanPhrase(layoutPhrases, tokens, i+1, nil); ok {
			return name, span, true
		}
		rest := trimTrailing(tokens[i+1:], "layout", "slide")
		if len(rest) > 0 {
			span := make(map[int]bool, len(rest))
			for k := range rest {
				span[i+1+k] = true
			}
			return strings.Join(rest, " "), span, true
		}
		break
	}
	skip := map[int]bool{}
	for i, tok := range tokens {
		if tok == "layout" {
			skip[i] = true
		}
	}
	return scanPhrase(layoutPhrases, tokens, 0, skip)
}

// createLayout looks for "add a blank slide" style layouts before the word slide.
func createLayout(tokens []string) (string, bool) {
	limit := -1
	for i, tok := range tokens {
		if tok == "slide" {
			limit = i
			break
		}
	}
	for i := 1; i < limit; i++ {
		if p, ok := longestPhraseAt(layoutPhrases, tokens, i); ok {
			return p.value, true
		}
	}
	for i, tok := range tokens {
		if tok == "layout" && i+1 < len(tokens) {
			if name, _, ok := scanPhrase(layoutPhrases, tokens, i+1, nil); ok {
				return name, true
			}
		}
	}
	return "", false
}

func scanPhrase(table []phrase, tokens []string, from int, skip map[int]bool) (string, map[int]bool, bool) {
	for i := from; i < len(tokens); i++ {
		if skip[i] {
			continue
		}
		if p, ok := longestPhraseAt(table, tokens, i); ok {
			span := make(map[int]bool, len(p.tokens))
			for k := range p.tokens {
				span[i+k] = true
			}
			return p.value, span, true
		}
	}
	return "", nil, false
}

func trimTrailing(tokens []string, drop ...string) []string {
	out := tokens
	for len(out) > 0 {
		last := out[len(out)-1]
		dropped := false
		for _, d := range drop {
			if last == d {
				out = out[:len(out)-1]
				dropped = true
				break
			}
		}
		if !dropped {
			break
		}
	}
	return out
}

// wordList keeps the original words next to their normalized keys so spans
// found by key can be cut from the original casing.
type wordList struct {
	raw  []string
	keys []string
}

func newWordList(text string) wordList {
	raw := strings.Fields(text)
	keys := make([]string, len(raw))
	for i, w := range raw {
		keys[i] = strings.Join(Normalize(w), " ")
	}
	return wordList{raw: raw, keys: keys}
}

type textSpan struct {
	value  string
	prefix string
	refs   []string
}

// textAfter cuts the original text following the first trigger word up to the
// next trigger of any kind. Triggers that belong to a layout name, as in
// "title only", are ignored.
func (w wordList) textAfter(triggers map[string]bool) (textSpan, bool) {
	for i, key := range w.keys {
		if !triggers[key] || w.inLayoutName(i) {
			continue
		}
		return w.spanFrom(i), true
	}
	return textSpan{}, false
}

// textAfterVerb handles "rename slide 2 to Results" and "write hello world".
func (w wordList) textAfterVerb(intent Intent) (textSpan, bool) {
	switch intent {
	case IntentSetTitle:
		for i, key := range w.keys {
			if key != "rename" {
				continue
			}
			for j := i + 1; j < len(w.keys); j++ {
				if w.keys[j] == "to" || w.keys[j] == "as" {
					return w.spanFrom(j), true
				}
			}
		}
	case IntentSetBody:
		for i, key := range w.keys {
			if key == "write" {
				return w.spanFrom(i), true
			}
		}
	}
	return textSpan{}, false
}

func (w wordList) spanFrom(i int) textSpan {
	end := len(w.raw)
	for j := i + 1; j < len(w.keys); j++ {
		if (titleTriggers[w.keys[j]] || bodyTriggers[w.keys[j]]) && !w.inLayoutName(j) {
			end = j
			break
		}
	}
	span := textSpan{prefix: strings.Join(w.raw[:i], " ")}
	value := strings.Join(w.raw[i+1:end], " ")

	if loc := leadingSlideRef.FindStringIndex(value); loc != nil {
		span.refs = append(span.refs, value[:loc[1]])
		value = value[loc[1]:]
	}
	value = leadingConnector.ReplaceAllString(value, "")
	for {
		before := value
		if loc := trailingSlideRef.FindStringIndex(value); loc != nil {
			span.refs = append(span.refs, value[loc[0]:])
			value = value[:loc[0]]
		}
		value = trailingJoiner.ReplaceAllString(value, "")
		if value == before {
			break
		}
	}
	span.value = cleanText(value)
	return span
}

// inLayoutName reports whether word i is part of a multi-word layout name.
func (w wordList) inLayoutName(i int) bool {
	for _, p := range layoutPhrases {
		n := len(p.tokens)
		if n < 2 {
			continue
		}
		for start := i - n + 1; start <= i; start++ {
			if start < 0 || start+n > len(w.keys) {
				continue
			}
			match := true
			for k, tok := range p.tokens {
				if w.keys[start+k] != tok {
					match = false
					break
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

// valueAfter returns the original word after the first marker word, or the
// rest of the utterance when rest is set.
func (w wordList) valueAfter(markers map[string]bool, rest bool) (string, int, bool) {
	for i, key := range w.keys {
		if !markers[key] || i+1 >= len(w.raw) {
			continue
		}
		if rest {
			v := cleanText(strings.Join(w.raw[i+1:], " "))
			if v == "" {
				continue
			}
			return v, i + 1, true
		}
		v := cleanText(w.raw[i+1])
		if v == "" {
			continue
		}
		return v, i + 1, true
	}
	return "", -1, false
}

// fileLike finds a word that looks like a file name or path.
func (w wordList) fileLike() (string, int, bool) {
	for i, raw := range w.raw {
		v := cleanText(raw)
		if strings.ContainsAny(v, "/\\") || (strings.Contains(v, ".") && !strings.HasSuffix(v, ".")) {
			return v, i, true
		}
	}
	return "", -1, false
}

func (w wordList) joinExcept(idx int) string {
	parts := make([]string, 0, len(w.raw))
	for i, r := range w.raw {
		if i != idx {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, " ")
}

func cleanText(s string) string {
	return strings.Trim(strings.TrimSpace(s), " \t\"'“”‘’.,;:!?")
}
