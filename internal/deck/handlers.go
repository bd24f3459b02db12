package deck

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ent0n29/deckpilot/internal/command"
)

type handler func(d *Deck, a command.Action) (Result, error)

// handlers is exhaustive over executable intents; deck_test checks coverage.
var handlers = map[command.Intent]handler{
	command.IntentCreateSlide:   (*Deck).createSlide,
	command.IntentDeleteSlide:   (*Deck).deleteSlide,
	command.IntentSetLayout:     (*Deck).setLayout,
	command.IntentSetTitle:      (*Deck).setTitle,
	command.IntentSetBody:       (*Deck).setBody,
	command.IntentInsertImage:   (*Deck).insertImage,
	command.IntentInsertChart:   (*Deck).insertChart,
	command.IntentSetBackground: (*Deck).setBackground,
	command.IntentSave:          (*Deck).save,
	command.IntentNavigate:      (*Deck).navigate,
}

// slideScoped intents index d.slides with the action's slide. Apply checks
// the index against the live deck, which may have shrunk since validation.
func slideScoped(intent command.Intent) bool {
	return intent != command.IntentCreateSlide && intent != command.IntentSave
}

func (d *Deck) createSlide(a command.Action) (Result, error) {
	if len(d.slides) >= d.opts.MaxSlides {
		return Result{}, fmt.Errorf("%w (%d)", ErrSlideLimit, d.opts.MaxSlides)
	}
	s := d.newSlide(a.Text(command.ParamTitle))
	s.Body = a.Text(command.ParamBody)
	if layout := a.Text(command.ParamLayout); layout != "" {
		s.Layout = layout
	}
	d.slides = append(d.slides, s)
	d.current = len(d.slides)
	return Result{Message: fmt.Sprintf("Added slide %d: %s.", d.current, s.Title)}, nil
}

func (d *Deck) deleteSlide(a command.Action) (Result, error) {
	i := a.Slide() - 1
	title := d.slides[i].Title
	d.slides = append(d.slides[:i], d.slides[i+1:]...)
	switch {
	case len(d.slides) == 0:
		d.current = 0
	case d.current > len(d.slides):
		d.current = len(d.slides)
	case d.current > i+1:
		d.current--
	}
	return Result{Message: fmt.Sprintf("Deleted slide %d, %s.", i+1, title)}, nil
}

func (d *Deck) setLayout(a command.Action) (Result, error) {
	s := d.target(a)
	s.Layout = a.Text(command.ParamLayout)
	return Result{Message: fmt.Sprintf("Slide %d now uses the %s layout.", a.Slide(), s.Layout)}, nil
}

func (d *Deck) setTitle(a command.Action) (Result, error) {
	s := d.target(a)
	s.Title = a.Text(command.ParamTitle)
	return Result{Message: fmt.Sprintf("Slide %d is now titled %s.", a.Slide(), s.Title)}, nil
}

func (d *Deck) setBody(a command.Action) (Result, error) {
	s := d.target(a)
	s.Body = a.Text(command.ParamBody)
	return Result{Message: fmt.Sprintf("Updated the text on slide %d.", a.Slide())}, nil
}

func (d *Deck) insertImage(a command.Action) (Result, error) {
	path := a.Text(command.ParamPath)
	resolved := path
	if !filepath.IsAbs(resolved) && d.opts.AssetsDir != "" {
		resolved = filepath.Join(d.opts.AssetsDir, resolved)
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s", ErrImageNotFound, path)
	}
	s := d.target(a)
	s.Images = append(s.Images, resolved)
	return Result{Message: fmt.Sprintf("Inserted %s on slide %d.", filepath.Base(path), a.Slide()), Path: resolved}, nil
}

func (d *Deck) insertChart(a command.Action) (Result, error) {
	s := d.target(a)
	kind := a.Text(command.ParamChart)
	s.Charts = append(s.Charts, kind)
	return Result{Message: fmt.Sprintf("Added a %s chart to slide %d.", kind, a.Slide())}, nil
}

func (d *Deck) setBackground(a command.Action) (Result, error) {
	s := d.target(a)
	name := a.Text(command.ParamColor)
	rgb, _ := command.LookupColor(name)
	s.Background = name
	s.Color = rgb.Hex()
	return Result{Message: fmt.Sprintf("Slide %d background is now %s.", a.Slide(), name)}, nil
}

func (d *Deck) save(a command.Action) (Result, error) {
	path := d.savePath(a.Text(command.ParamPath))
	if err := writeSnapshot(path, d.snapshotLocked()); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Saved the presentation as %s.", filepath.Base(path)), Path: path}, nil
}

func (d *Deck) navigate(a command.Action) (Result, error) {
	d.current = a.Slide()
	return Result{Message: fmt.Sprintf("Showing slide %d of %d: %s.", d.current, len(d.slides), d.slides[d.current-1].Title)}, nil
}

// target returns the slide a validated action points at. Apply has already
// checked the index against this deck.
func (d *Deck) target(a command.Action) *Slide {
	return &d.slides[a.Slide()-1]
}
