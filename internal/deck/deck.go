package deck

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/deckpilot/internal/command"
)

var (
	ErrInvalidAction = errors.New("action was not validated")
	ErrImageNotFound = errors.New("image file not found")
	ErrSlideLimit    = errors.New("slide limit reached")
	ErrClosed        = errors.New("presentation is closed")
)

const (
	defaultSlideTitle = "New Slide"
	defaultLayout     = "title and content"
	defaultMaxSlides  = 50
)

// Presentation is the document a session edits. The dispatch loop reads the
// summary for validation and hands validated actions to Apply.
type Presentation interface {
	Summary() command.Summary
	Apply(ctx context.Context, action command.Action) (Result, error)
	Snapshot() Snapshot
	Close() error
}

// Result describes what an applied action changed.
type Result struct {
	Intent       command.Intent `json:"intent"`
	Message      string         `json:"message"`
	SlideCount   int            `json:"slide_count"`
	CurrentSlide int            `json:"current_slide"`
	Path         string         `json:"path,omitempty"`
}

type Slide struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Body       string   `json:"body,omitempty"`
	Layout     string   `json:"layout"`
	Background string   `json:"background,omitempty"`
	Color      string   `json:"color_hex,omitempty"`
	Images     []string `json:"images,omitempty"`
	Charts     []string `json:"charts,omitempty"`
}

// Snapshot is the persisted form of a deck.
type Snapshot struct {
	Name         string    `json:"name"`
	Slides       []Slide   `json:"slides"`
	CurrentSlide int       `json:"current_slide"`
	SavedAt      time.Time `json:"saved_at"`
}

type Options struct {
	Name      string
	Dir       string
	AssetsDir string
	MaxSlides int
	// SnapshotPath, when set with Autosave, receives the deck on Close.
	SnapshotPath string
	Autosave     bool
}

// Deck is an in-memory slide model with JSON snapshots on disk.
type Deck struct {
	mu        sync.RWMutex
	opts      Options
	slides    []Slide
	current   int
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func New(opts Options) *Deck {
	if opts.Name == "" {
		opts.Name = "presentation"
	}
	if opts.MaxSlides <= 0 {
		opts.MaxSlides = defaultMaxSlides
	}
	return &Deck{opts: opts}
}

// FromSnapshot rebuilds a deck from a saved snapshot.
func FromSnapshot(opts Options, snap Snapshot) *Deck {
	d := New(opts)
	if snap.Name != "" {
		d.opts.Name = snap.Name
	}
	d.slides = append([]Slide(nil), snap.Slides...)
	d.current = snap.CurrentSlide
	if d.current > len(d.slides) {
		d.current = len(d.slides)
	}
	if d.current < 1 && len(d.slides) > 0 {
		d.current = 1
	}
	return d
}

func (d *Deck) Summary() command.Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	titles := make([]string, len(d.slides))
	for i, s := range d.slides {
		titles[i] = s.Title
	}
	return command.Summary{
		SlideCount:   len(d.slides),
		CurrentSlide: d.current,
		SlideTitles:  titles,
		Layouts:      command.LayoutNames(),
	}
}

func (d *Deck) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *Deck) snapshotLocked() Snapshot {
	slides := make([]Slide, len(d.slides))
	for i, s := range d.slides {
		s.Images = append([]string(nil), s.Images...)
		s.Charts = append([]string(nil), s.Charts...)
		slides[i] = s
	}
	return Snapshot{
		Name:         d.opts.Name,
		Slides:       slides,
		CurrentSlide: d.current,
		SavedAt:      time.Now().UTC(),
	}
}

// Apply runs the handler registered for the action's intent.
func (d *Deck) Apply(ctx context.Context, action command.Action) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !action.Valid() {
		return Result{}, ErrInvalidAction
	}
	h, ok := handlers[action.Intent]
	if !ok {
		return Result{}, fmt.Errorf("no handler for intent %q", action.Intent)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Result{}, ErrClosed
	}
	if slideScoped(action.Intent) {
		if i := action.Slide(); i < 1 || i > len(d.slides) {
			return Result{}, fmt.Errorf("%w: slide %d of %d", ErrInvalidAction, i, len(d.slides))
		}
	}
	res, err := h(d, action)
	if err != nil {
		return Result{}, err
	}
	res.Intent = action.Intent
	res.SlideCount = len(d.slides)
	res.CurrentSlide = d.current
	return res, nil
}

// Close autosaves when configured. Later calls return the first result.
func (d *Deck) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.closed = true
		if d.opts.Autosave && d.opts.SnapshotPath != "" {
			d.closeErr = writeSnapshot(d.opts.SnapshotPath, d.snapshotLocked())
		}
	})
	return d.closeErr
}

func (d *Deck) newSlide(title string) Slide {
	if title == "" {
		title = defaultSlideTitle
	}
	return Slide{ID: uuid.NewString(), Title: title, Layout: defaultLayout}
}

func (d *Deck) savePath(name string) string {
	if name == "" {
		name = d.opts.Name
	}
	base := filepath.Base(filepath.Clean(name))
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = d.opts.Name
	}
	return filepath.Join(d.opts.Dir, base+".json")
}
