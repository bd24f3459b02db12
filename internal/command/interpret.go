package command

// Interpretation is everything the pure stages learn from one transcript.
type Interpretation struct {
	Transcript Transcript
	Tokens     []string
	Match      MatchResult
	Params     ParameterBag
}

// Interpret runs normalize, match and extract. Parameters are only extracted
// for executable intents.
func (m *Matcher) Interpret(tr Transcript) Interpretation {
	tokens := Normalize(tr.Text)
	match := m.Match(tokens)
	in := Interpretation{Transcript: tr, Tokens: tokens, Match: match, Params: ParameterBag{}}
	if match.Intent.Executable() {
		in.Params = Extract(match.Intent, tr, tokens)
	}
	return in
}
