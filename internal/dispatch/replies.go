package dispatch

import "github.com/ent0n29/deckpilot/internal/command"

var (
	yesWords    = map[string]bool{"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true, "ok": true, "okay": true, "correct": true, "right": true, "exactly": true}
	cancelWords = map[string]bool{"no": true, "nope": true, "nah": true, "cancel": true, "nevermind": true}
)

// isYes accepts a short affirmative answer, such as "yes" or "yes please".
func isYes(tokens []string) bool {
	return len(tokens) > 0 && len(tokens) <= 3 && yesWords[tokens[0]]
}

func isCancel(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	if cancelWords[tokens[0]] {
		return true
	}
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] == "never" && tokens[i+1] == "mind" {
			return true
		}
	}
	return false
}

// awaitsFreeText reports whether any wording is a valid answer for p.
func awaitsFreeText(p command.Param) bool {
	return p == command.ParamTitle || p == command.ParamBody
}
