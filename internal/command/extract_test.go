package command

import (
	"reflect"
	"strconv"
	"testing"
)

func extract(intent Intent, text string) ParameterBag {
	tr := NewTranscript(text, SourceTyped)
	return Extract(intent, tr, Normalize(text))
}

func TestExtractCreateSlideTitle(t *testing.T) {
	bag := extract(IntentCreateSlide, "create a new slide with title Introduction")
	want := ParameterBag{ParamTitle: "Introduction"}
	if !reflect.DeepEqual(bag, want) {
		t.Fatalf("Extract() = %#v, want %#v", bag, want)
	}
}

func TestExtractCreateSlideTitleAndBody(t *testing.T) {
	bag := extract(IntentCreateSlide, "Create slide with title Sales and content Q3 numbers")
	if got, _ := bag.Text(ParamTitle); got != "Sales" {
		t.Fatalf("title = %q, want Sales", got)
	}
	if got, _ := bag.Text(ParamBody); got != "Q3 numbers" {
		t.Fatalf("body = %q, want Q3 numbers", got)
	}
}

func TestExtractCreateSlideLayoutIsNotATitle(t *testing.T) {
	bag := extract(IntentCreateSlide, "add a title only slide")
	if bag.Has(ParamTitle) {
		t.Fatalf("unexpected title %q", bag[ParamTitle])
	}
	if got, _ := bag.Text(ParamLayout); got != "title only" {
		t.Fatalf("layout = %q, want title only", got)
	}
}

func TestExtractSlideIndexDigitsAndOrdinalsAgree(t *testing.T) {
	for i := 1; i <= 50; i++ {
		phrasings := []string{
			"delete slide " + strconv.Itoa(i),
			"delete slide number " + cardinalWord(i),
			"delete the " + ordinalWord(i) + " slide",
			"delete the " + strconv.Itoa(i) + ordinalSuffix(i) + " slide",
		}
		for _, text := range phrasings {
			bag := extract(IntentDeleteSlide, text)
			ref, ok := bag.Slide()
			if !ok {
				t.Fatalf("Extract(%q) found no slide", text)
			}
			if ref != AbsoluteSlide(i) {
				t.Fatalf("Extract(%q) slide = %+v, want %d", text, ref, i)
			}
		}
	}
}

func TestExtractRelativeSlides(t *testing.T) {
	cases := []struct {
		text string
		want SlideRef
	}{
		{"next slide", SlideRef{Anchor: AnchorRelative, Index: 1}},
		{"previous slide", SlideRef{Anchor: AnchorRelative, Index: -1}},
		{"go back", SlideRef{Anchor: AnchorRelative, Index: -1}},
		{"go to the last slide", SlideRef{Anchor: AnchorLast}},
		{"go to the first slide", AbsoluteSlide(1)},
	}
	for _, tc := range cases {
		ref, ok := extract(IntentNavigate, tc.text).Slide()
		if !ok || ref != tc.want {
			t.Fatalf("Extract(%q) slide = %+v (found %v), want %+v", tc.text, ref, ok, tc.want)
		}
	}
}

func TestExtractColorPrefersLongestName(t *testing.T) {
	bag := extract(IntentSetBackground, "change background to light blue")
	want := ParameterBag{ParamColor: "light blue"}
	if !reflect.DeepEqual(bag, want) {
		t.Fatalf("Extract() = %#v, want %#v", bag, want)
	}
}

func TestExtractColorWithSlide(t *testing.T) {
	bag := extract(IntentSetBackground, "change the background of slide 2 to dark green")
	if got, _ := bag.Text(ParamColor); got != "dark green" {
		t.Fatalf("color = %q, want dark green", got)
	}
	if ref, _ := bag.Slide(); ref != AbsoluteSlide(2) {
		t.Fatalf("slide = %+v, want 2", ref)
	}
}

func TestExtractUnknownColorKeepsRawWord(t *testing.T) {
	bag := extract(IntentSetBackground, "set the background to mauve")
	if got, _ := bag.Text(ParamColor); got != "mauve" {
		t.Fatalf("color = %q, want mauve", got)
	}
}

func TestExtractChartKind(t *testing.T) {
	cases := map[string]string{
		"add a pie chart":         "pie",
		"insert a line graph":     "line",
		"insert a chart":          DefaultChartKind,
		"add a scatter chart":     DefaultChartKind,
		"create a column diagram": "column",
	}
	for text, want := range cases {
		if got, _ := extract(IntentInsertChart, text).Text(ParamChart); got != want {
			t.Fatalf("Extract(%q) chart = %q, want %q", text, got, want)
		}
	}
}

func TestExtractTitleWithSlideReference(t *testing.T) {
	cases := []struct {
		text  string
		title string
		slide int
	}{
		{"change the title of slide 2 to Results", "Results", 2},
		{"set the title to Quarterly Results on slide 3", "Quarterly Results", 3},
		{"set title for the third slide: Roadmap", "Roadmap", 3},
		{"title should be Next Steps", "Next Steps", 0},
		{"rename slide 4 to Summary", "Summary", 4},
	}
	for _, tc := range cases {
		bag := extract(IntentSetTitle, tc.text)
		if got, _ := bag.Text(ParamTitle); got != tc.title {
			t.Fatalf("Extract(%q) title = %q, want %q", tc.text, got, tc.title)
		}
		ref, ok := bag.Slide()
		if tc.slide == 0 {
			if ok {
				t.Fatalf("Extract(%q) unexpected slide %+v", tc.text, ref)
			}
			continue
		}
		if ref != AbsoluteSlide(tc.slide) {
			t.Fatalf("Extract(%q) slide = %+v, want %d", tc.text, ref, tc.slide)
		}
	}
}

func TestExtractBody(t *testing.T) {
	bag := extract(IntentSetBody, "add text revenue grew twelve percent to slide 2")
	if got, _ := bag.Text(ParamBody); got != "revenue grew twelve percent" {
		t.Fatalf("body = %q", got)
	}
	if ref, _ := bag.Slide(); ref != AbsoluteSlide(2) {
		t.Fatalf("slide = %+v, want 2", ref)
	}

	bag = extract(IntentSetBody, "write Thank you!")
	if got, _ := bag.Text(ParamBody); got != "Thank you" {
		t.Fatalf("body = %q, want Thank you", got)
	}
}

func TestExtractLayout(t *testing.T) {
	cases := []struct {
		text   string
		layout string
		slide  int
	}{
		{"change layout of slide 3 to two content", "two content", 3},
		{"change the layout to title only", "title only", 0},
		{"use blank layout", "blank", 0},
		{"set layout to fancy", "fancy", 0},
	}
	for _, tc := range cases {
		bag := extract(IntentSetLayout, tc.text)
		if got, _ := bag.Text(ParamLayout); got != tc.layout {
			t.Fatalf("Extract(%q) layout = %q, want %q", tc.text, got, tc.layout)
		}
		ref, ok := bag.Slide()
		if tc.slide == 0 && ok {
			t.Fatalf("Extract(%q) unexpected slide %+v", tc.text, ref)
		}
		if tc.slide != 0 && ref != AbsoluteSlide(tc.slide) {
			t.Fatalf("Extract(%q) slide = %+v, want %d", tc.text, ref, tc.slide)
		}
	}
}

func TestExtractPaths(t *testing.T) {
	bag := extract(IntentInsertImage, "add picture from Photos/Cat.JPG to slide 2")
	if got, _ := bag.Text(ParamPath); got != "Photos/Cat.JPG" {
		t.Fatalf("path = %q", got)
	}
	if ref, _ := bag.Slide(); ref != AbsoluteSlide(2) {
		t.Fatalf("slide = %+v, want 2", ref)
	}

	if bag := extract(IntentInsertImage, "insert an image"); bag.Has(ParamPath) {
		t.Fatalf("unexpected path %v", bag[ParamPath])
	}

	bag = extract(IntentSave, "save presentation as Quarterly Review")
	if got, _ := bag.Text(ParamPath); got != "Quarterly Review" {
		t.Fatalf("save name = %q", got)
	}
	if bag := extract(IntentSave, "save the presentation"); bag.Has(ParamPath) {
		t.Fatalf("unexpected save name %v", bag[ParamPath])
	}
}

func TestFillAnswers(t *testing.T) {
	cases := []struct {
		intent Intent
		param  Param
		text   string
		want   any
	}{
		{IntentDeleteSlide, ParamSlide, "three", AbsoluteSlide(3)},
		{IntentDeleteSlide, ParamSlide, "the second one", AbsoluteSlide(2)},
		{IntentSetTitle, ParamTitle, "Quarterly Results", "Quarterly Results"},
		{IntentSetBackground, ParamColor, "light blue", "light blue"},
		{IntentSetLayout, ParamLayout, "blank please", "blank"},
		{IntentInsertImage, ParamPath, "logo.png", "logo.png"},
	}
	for _, tc := range cases {
		bag := Fill(tc.intent, tc.param, NewTranscript(tc.text, SourceSpeech))
		if got := bag[tc.param]; got != tc.want {
			t.Fatalf("Fill(%s, %s, %q) = %#v, want %#v", tc.intent, tc.param, tc.text, got, tc.want)
		}
		if len(bag) != 1 {
			t.Fatalf("Fill(%s, %s, %q) returned extra keys: %v", tc.intent, tc.param, tc.text, bag.Keys())
		}
	}
}

var (
	unitWords    = []string{"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	teenWords    = []string{"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen"}
	tensWords    = []string{"", "", "twenty", "thirty", "forty", "fifty"}
	unitOrdinals = []string{"", "first", "second", "third", "fourth", "fifth", "sixth", "seventh", "eighth", "ninth"}
	teenOrdinals = []string{"tenth", "eleventh", "twelfth", "thirteenth", "fourteenth", "fifteenth", "sixteenth", "seventeenth", "eighteenth", "nineteenth"}
	tensOrdinals = []string{"", "", "twentieth", "thirtieth", "fortieth", "fiftieth"}
)

func cardinalWord(n int) string {
	switch {
	case n < 10:
		return unitWords[n]
	case n < 20:
		return teenWords[n-10]
	case n%10 == 0:
		return tensWords[n/10]
	default:
		return tensWords[n/10] + " " + unitWords[n%10]
	}
}

func ordinalWord(n int) string {
	switch {
	case n < 10:
		return unitOrdinals[n]
	case n < 20:
		return teenOrdinals[n-10]
	case n%10 == 0:
		return tensOrdinals[n/10]
	default:
		return tensWords[n/10] + " " + unitOrdinals[n%10]
	}
}

func ordinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
