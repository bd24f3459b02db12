package command

import "unicode/utf8"

// Matcher scores normalized tokens against the pattern table. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	tuning     Tuning
	table      []IntentPatterns
	vocabulary map[string]bool
}

func NewMatcher(t Tuning) *Matcher {
	return NewMatcherWithPatterns(t, defaultPatterns)
}

func NewMatcherWithPatterns(t Tuning, table []IntentPatterns) *Matcher {
	vocab := make(map[string]bool)
	for _, ip := range table {
		for _, p := range ip.Patterns {
			for _, kw := range p.Required {
				vocab[kw] = true
			}
			for _, kw := range p.Optional {
				vocab[kw] = true
			}
		}
	}
	for _, p := range colorPhrases {
		for _, tok := range p.tokens {
			vocab[tok] = true
		}
	}
	for _, k := range ChartKinds {
		vocab[k] = true
	}
	return &Matcher{tuning: t, table: table, vocabulary: vocab}
}

func (m *Matcher) Tuning() Tuning { return m.tuning }

type intentScore struct {
	intent    Intent
	score     float64
	patternID string
}

// Match picks the intent for a token sequence. Stop and Help short-circuit
// scoring. Low scores and near ties yield IntentUnknown with the best
// candidate recorded.
func (m *Matcher) Match(tokens []string) MatchResult {
	if len(tokens) == 0 {
		return MatchResult{Intent: IntentUnknown}
	}
	if meta, id := metaIntent(tokens); meta != "" {
		return MatchResult{Intent: meta, Confidence: 1, PatternID: id}
	}

	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[tok] = true
	}
	pool := m.fuzzyPool(tokens)

	var best, runner intentScore
	for _, ip := range m.table {
		cur := intentScore{intent: ip.Intent}
		for _, p := range ip.Patterns {
			if s := m.scorePattern(p, present, pool); s > cur.score {
				cur.score = s
				cur.patternID = p.ID
			}
		}
		switch {
		case cur.score > best.score:
			runner = best
			best = cur
		case cur.score > runner.score:
			runner = cur
		}
	}

	if best.score == 0 {
		return MatchResult{Intent: IntentUnknown}
	}

	res := MatchResult{
		Intent:     best.intent,
		Confidence: round3(best.score),
		PatternID:  best.patternID,
	}
	tied := runner.score > 0 && best.score-runner.score <= m.tuning.TieMargin+1e-9
	if best.score < m.tuning.ConfidenceThreshold {
		res.Intent = IntentUnknown
		if best.score >= m.tuning.NearMissFloor {
			res.Candidate = best.intent
			if tied {
				res.RunnerUp = runner.intent
				res.Ambiguous = true
			}
		}
		return res
	}
	if tied {
		res.Intent = IntentUnknown
		res.Candidate = best.intent
		res.RunnerUp = runner.intent
		res.Ambiguous = true
	}
	return res
}

// scorePattern is the weighted keyword overlap normalized by the pattern's
// own maximum. A pattern hit only on generic keywords scores zero.
func (m *Matcher) scorePattern(p Pattern, present map[string]bool, pool []string) float64 {
	t := m.tuning
	for _, kw := range p.Exclude {
		if present[kw] {
			return 0
		}
	}
	var (
		exact, fuzzy, optional int
		distinctive            bool
		used                   map[string]bool
	)
	for _, kw := range p.Required {
		if present[kw] {
			exact++
			if !genericKeywords[kw] {
				distinctive = true
			}
			continue
		}
		for _, tok := range pool {
			if used[tok] {
				continue
			}
			if m.closeEnough(tok, kw) {
				if used == nil {
					used = make(map[string]bool)
				}
				used[tok] = true
				fuzzy++
				if !genericKeywords[kw] {
					distinctive = true
				}
				break
			}
		}
	}
	if !distinctive {
		return 0
	}
	for _, kw := range p.Optional {
		if present[kw] {
			optional++
		}
	}

	denom := float64(len(p.Required))*t.RequiredWeight + float64(len(p.Optional))*t.OptionalWeight
	if denom == 0 {
		return 0
	}
	score := (float64(exact)*t.RequiredWeight + float64(fuzzy)*t.FuzzyWeight + float64(optional)*t.OptionalWeight) / denom
	if score > 1 {
		score = 1
	}
	return score
}

// fuzzyPool keeps tokens that could be misheard keywords: not stop words,
// not numbers, not words the matcher already knows.
func (m *Matcher) fuzzyPool(tokens []string) []string {
	var pool []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if seen[tok] || stopWords[tok] || m.vocabulary[tok] || isDigits(tok) || utf8.RuneCountInString(tok) < 2 {
			continue
		}
		seen[tok] = true
		pool = append(pool, tok)
	}
	return pool
}

func (m *Matcher) closeEnough(tok, keyword string) bool {
	limit := m.tuning.MaxEditDistance
	if utf8.RuneCountInString(keyword) <= m.tuning.ShortKeywordLen && limit > 1 {
		limit = 1
	}
	if limit <= 0 {
		return false
	}
	return editDistance(tok, keyword, limit) <= limit
}

// editDistance is the Levenshtein distance between a and b. It stops early
// and returns limit+1 once every path exceeds limit.
func editDistance(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	if d := len(ra) - len(rb); d > limit || -d > limit {
		return limit + 1
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if cur[j] < rowMin {
				rowMin = cur[j]
			}
		}
		if rowMin > limit {
			return limit + 1
		}
		prev, cur = cur, prev
	}
	if d := prev[len(rb)]; d <= limit {
		return d
	}
	return limit + 1
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
