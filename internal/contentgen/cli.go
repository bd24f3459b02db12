package contentgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CLIGenerator runs a local command with the prompt on stdin. Stdout is
// parsed like an HTTP response body; leading log lines before a trailing
// JSON object are skipped.
type CLIGenerator struct {
	path string
	args []string
}

func NewCLIGenerator(path string, args ...string) *CLIGenerator {
	return &CLIGenerator{path: strings.TrimSpace(path), args: args}
}

func (g *CLIGenerator) Generate(ctx context.Context, req Request) (Content, error) {
	cmd := exec.CommandContext(ctx, g.path, g.args...)
	cmd.Stdin = strings.NewReader(buildPrompt(req))
	cmd.Env = append(os.Environ(), "DECKPILOT_SESSION_ID="+req.SessionID)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// exec.CommandContext may surface "signal: killed" instead of context cancellation.
			return Content{}, ctx.Err()
		}
		errText := strings.TrimSpace(stderr.String())
		if errText == "" {
			errText = strings.TrimSpace(stdout.String())
		}
		if errText != "" {
			return Content{}, fmt.Errorf("generator cli failed: %w: %s", err, errText)
		}
		return Content{}, fmt.Errorf("generator cli failed: %w", err)
	}

	content := parseContent(trailingJSON(stdout.Bytes()))
	if content.Empty() {
		return Content{}, ErrEmptyContent
	}
	content.Source = "cli"
	return content, nil
}

// buildPrompt puts the utterance first so plain-text tools that echo their
// input still produce a usable title.
func buildPrompt(req Request) string {
	prompt := strings.TrimSpace(req.Prompt)
	if len(req.SlideTitles) == 0 {
		return prompt + "\n"
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nExisting slides:\n")
	for i, title := range req.SlideTitles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(title))
	}
	return b.String()
}

func trailingJSON(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if json.Valid(raw) {
		return raw
	}
	if i := bytes.LastIndex(raw, []byte("\n{")); i >= 0 && json.Valid(raw[i+1:]) {
		return raw[i+1:]
	}
	if i := bytes.LastIndexByte(raw, '{'); i >= 0 && json.Valid(raw[i:]) {
		return raw[i:]
	}
	return raw
}
