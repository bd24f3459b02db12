package policy

import "regexp"

type redaction struct {
	pattern *regexp.Regexp
	mask    string
}

// Order matters: card numbers would otherwise match the phone rule, and the
// written email form must go before the spoken one.
var redactions = []redaction{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._]+(?: dot [a-z0-9._]+)* at [a-z0-9\-]+(?: dot [a-z0-9\-]+)* dot (?:com|org|net|io|edu|gov|co)\b`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
	{regexp.MustCompile(`(?:/Users|/home|[A-Za-z]:\\Users)[/\\][^/\\\s]+`), "~"},
}

// RedactPII masks contact details and card numbers in transcripts and
// feedback before they reach the action log. Home directories in spoken file
// paths shrink to "~".
func RedactPII(input string) (string, bool) {
	out := input
	for _, r := range redactions {
		out = r.pattern.ReplaceAllString(out, r.mask)
	}
	return out, out != input
}
