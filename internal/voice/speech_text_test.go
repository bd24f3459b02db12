package voice

import "testing"

func TestSpeakable(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops emoji and markdown markers",
			in:   "Sure 😊 **slide 2** is ready.",
			want: "Sure slide 2 is ready.",
		},
		{
			name: "keeps markdown link label and removes url",
			in:   "Read [the guide](https://example.com/docs) first.",
			want: "Read the guide first.",
		},
		{
			name: "removes code blocks and inline code",
			in:   "```json\n{}\n```\nSaved as `deck.json` ✅",
			want: "Saved as deck json",
		},
		{
			name: "collapses paths to base names",
			in:   "Inserted assets/img/logo.png on slide 1.",
			want: "Inserted logo png on slide 1.",
		},
		{
			name: "drops hex colors",
			in:   "Color #ADD8E6 applied .",
			want: "Color applied.",
		},
		{
			name: "spells out symbols",
			in:   "Sales up 20% & growing",
			want: "Sales up 20 percent and growing",
		},
		{
			name: "plain prompt unchanged",
			in:   "Which slide number?",
			want: "Which slide number?",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := speakable(tc.in)
			if got != tc.want {
				t.Fatalf("speakable(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
