package command

import "testing"

func testTuning() Tuning {
	return Tuning{
		ConfidenceThreshold: 0.5,
		TieMargin:           0.05,
		RequiredWeight:      1.0,
		OptionalWeight:      0.3,
		FuzzyWeight:         0.7,
		MaxEditDistance:     2,
		ShortKeywordLen:     4,
		NearMissFloor:       0.3,
	}
}

func TestMatcherIntents(t *testing.T) {
	m := NewMatcher(testTuning())
	cases := []struct {
		in   string
		want Intent
	}{
		{"create a new slide with title Introduction", IntentCreateSlide},
		{"add slide", IntentCreateSlide},
		{"delete slide number 2", IntentDeleteSlide},
		{"remove the third slide", IntentDeleteSlide},
		{"change the layout to title only", IntentSetLayout},
		{"use blank layout", IntentSetLayout},
		{"change the title to Quarterly Results", IntentSetTitle},
		{"title should be Results", IntentSetTitle},
		{"add content revenue grew", IntentSetBody},
		{"write hello world", IntentSetBody},
		{"insert image from logo.png", IntentInsertImage},
		{"add a picture from cat.jpg", IntentInsertImage},
		{"insert a pie chart", IntentInsertChart},
		{"change background to light blue", IntentSetBackground},
		{"save presentation as review", IntentSave},
		{"go to slide 3", IntentNavigate},
		{"next slide", IntentNavigate},
		{"go back", IntentNavigate},
	}
	for _, tc := range cases {
		got := m.Match(Normalize(tc.in))
		if got.Intent != tc.want {
			t.Fatalf("Match(%q).Intent = %s (confidence %v, candidate %s), want %s", tc.in, got.Intent, got.Confidence, got.Candidate, tc.want)
		}
		if got.Confidence < 0.5 || got.Confidence > 1 {
			t.Fatalf("Match(%q).Confidence = %v, want within [0.5,1]", tc.in, got.Confidence)
		}
	}
}

func TestMatcherStopAlwaysWins(t *testing.T) {
	m := NewMatcher(testTuning())
	for _, in := range []string{
		"stop",
		"stop listening",
		"please stop adding slides now",
		"delete slide 2 and then exit",
		"help me stop",
		"quit",
	} {
		got := m.Match(Normalize(in))
		if got.Intent != IntentStop {
			t.Fatalf("Match(%q).Intent = %s, want stop", in, got.Intent)
		}
	}
}

func TestMatcherHelp(t *testing.T) {
	m := NewMatcher(testTuning())
	for _, in := range []string{"help", "What can you do?", "show commands", "add slide help"} {
		if got := m.Match(Normalize(in)); got.Intent != IntentHelp {
			t.Fatalf("Match(%q).Intent = %s, want help", in, got.Intent)
		}
	}
}

func TestMatcherFuzzyKeyword(t *testing.T) {
	m := NewMatcher(testTuning())
	got := m.Match(Normalize("ad slide"))
	if got.Intent != IntentCreateSlide {
		t.Fatalf("Match(ad slide).Intent = %s, want create_slide", got.Intent)
	}
	if got.Confidence != 0.654 {
		t.Fatalf("Match(ad slide).Confidence = %v, want 0.654", got.Confidence)
	}
	if got.PatternID != "create_slide.add" {
		t.Fatalf("Match(ad slide).PatternID = %q", got.PatternID)
	}
}

func TestMatcherGarbledFallsToUnknownWithoutCandidate(t *testing.T) {
	m := NewMatcher(testTuning())
	got := m.Match(Normalize("flerm zonk the slide"))
	if got.Intent != IntentUnknown {
		t.Fatalf("Intent = %s, want unknown", got.Intent)
	}
	if got.NearMiss() {
		t.Fatalf("unexpected near miss candidate %s", got.Candidate)
	}
}

func TestMatcherNearMiss(t *testing.T) {
	m := NewMatcher(testTuning())
	got := m.Match(Normalize("delete"))
	if got.Intent != IntentUnknown {
		t.Fatalf("Intent = %s, want unknown", got.Intent)
	}
	if !got.NearMiss() || got.Candidate != IntentDeleteSlide {
		t.Fatalf("Candidate = %q, want delete_slide near miss", got.Candidate)
	}
	if got.Confidence >= 0.5 || got.Confidence < 0.3 {
		t.Fatalf("Confidence = %v, want below threshold and above floor", got.Confidence)
	}
}

func TestMatcherTieIsAmbiguousAndDeterministic(t *testing.T) {
	m := NewMatcher(testTuning())
	for i := 0; i < 5; i++ {
		got := m.Match(Normalize("change to blue"))
		if got.Intent != IntentUnknown || !got.Ambiguous {
			t.Fatalf("Match(change to blue) = %+v, want ambiguous unknown", got)
		}
		if got.Candidate != IntentSetLayout || got.RunnerUp != IntentSetTitle {
			t.Fatalf("candidates = %s/%s, want set_layout/set_title", got.Candidate, got.RunnerUp)
		}
	}
}

func TestMatcherThresholdIsConfigurable(t *testing.T) {
	tuning := testTuning()
	tuning.ConfidenceThreshold = 0.9
	m := NewMatcher(tuning)
	got := m.Match(Normalize("add slide"))
	if got.Intent != IntentUnknown {
		t.Fatalf("Intent = %s, want unknown under a 0.9 threshold", got.Intent)
	}
	if got.Candidate != IntentCreateSlide {
		t.Fatalf("Candidate = %s, want create_slide", got.Candidate)
	}
}

func TestMatcherEmptyTokens(t *testing.T) {
	got := NewMatcher(testTuning()).Match(nil)
	if got.Intent != IntentUnknown || got.Confidence != 0 {
		t.Fatalf("Match(nil) = %+v", got)
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b  string
		limit int
		want  int
	}{
		{"ad", "add", 2, 1},
		{"delet", "delete", 2, 1},
		{"slyde", "slide", 2, 1},
		{"kitten", "sitting", 3, 3},
		{"flerm", "delete", 2, 3},
	}
	for _, tc := range cases {
		if got := editDistance(tc.a, tc.b, tc.limit); got != tc.want {
			t.Fatalf("editDistance(%q, %q, %d) = %d, want %d", tc.a, tc.b, tc.limit, got, tc.want)
		}
	}
}
