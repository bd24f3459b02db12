package contentgen

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func lookPath(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return path
}

func TestCLIGeneratorReadsPlainText(t *testing.T) {
	g := NewCLIGenerator(lookPath(t, "cat"))
	got, err := g.Generate(context.Background(), Request{
		Prompt:      "Quarterly revenue overview",
		SlideTitles: []string{"Intro"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Title != "Quarterly revenue overview" || got.Source != "cli" {
		t.Fatalf("Generate() = %+v", got)
	}
	if !strings.Contains(got.Body, "1. Intro") {
		t.Fatalf("Body = %q, want existing slide context", got.Body)
	}
}

func TestCLIGeneratorParsesTrailingJSON(t *testing.T) {
	sh := lookPath(t, "sh")
	g := NewCLIGenerator(sh, "-c", `echo "loading model"; echo '{"title":"Roadmap","body":"Q1 then Q2"}'`)
	got, err := g.Generate(context.Background(), Request{Prompt: "roadmap"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Title != "Roadmap" || got.Body != "Q1 then Q2" {
		t.Fatalf("Generate() = %+v", got)
	}
}

func TestCLIGeneratorReportsFailure(t *testing.T) {
	sh := lookPath(t, "sh")
	g := NewCLIGenerator(sh, "-c", "echo model missing >&2; exit 3")
	_, err := g.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "model missing") {
		t.Fatalf("Generate() error = %v, want stderr in message", err)
	}
}

func TestTrailingJSON(t *testing.T) {
	cases := map[string]string{
		`{"title":"A"}`:              `{"title":"A"}`,
		"log line\n{\"title\":\"B\"}": `{"title":"B"}`,
		"plain text only":            "plain text only",
	}
	for in, want := range cases {
		if got := string(trailingJSON([]byte(in))); got != want {
			t.Fatalf("trailingJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
