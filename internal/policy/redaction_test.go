package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Add a slide titled contact sam@example.com or +1 (555) 123-9876 card 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIISpokenEmail(t *testing.T) {
	out, changed := RedactPII("set the body to email jane dot doe at example dot com")
	if !changed || out != "set the body to email [REDACTED_EMAIL]" {
		t.Fatalf("RedactPII() = %q, %v", out, changed)
	}
}

func TestRedactPIIHomePaths(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"insert image from /Users/alex/Pictures/logo.png", "insert image from ~/Pictures/logo.png"},
		{"insert image from /home/sam/chart.png", "insert image from ~/chart.png"},
		{"insert image logo.png", "insert image logo.png"},
	}
	for _, tc := range cases {
		got, _ := RedactPII(tc.in)
		if got != tc.want {
			t.Fatalf("RedactPII(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactPIILeavesSlideCommandsAlone(t *testing.T) {
	for _, in := range []string{"delete slide number 12", "go to slide 3", "change background to light blue"} {
		if out, changed := RedactPII(in); changed || out != in {
			t.Fatalf("RedactPII(%q) = %q, %v", in, out, changed)
		}
	}
}
