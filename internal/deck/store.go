package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Opener gives each session its own presentation.
type Opener interface {
	Open(ctx context.Context, sessionID string) (Presentation, error)
}

// FileOpener keeps decks under Dir and restores a session's snapshot when one
// exists. A snapshot that cannot be read fails the open.
type FileOpener struct {
	Dir         string
	AssetsDir   string
	DefaultName string
	MaxSlides   int
	Autosave    bool
	TitleSlide  bool
	Logger      *zap.Logger
}

func (o *FileOpener) Open(ctx context.Context, sessionID string) (Presentation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sessionsDir := filepath.Join(o.Dir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create deck dir: %w", err)
	}
	snapshotPath := filepath.Join(sessionsDir, sessionID+".json")
	opts := Options{
		Name:         o.DefaultName,
		Dir:          o.Dir,
		AssetsDir:    o.AssetsDir,
		MaxSlides:    o.MaxSlides,
		SnapshotPath: snapshotPath,
		Autosave:     o.Autosave,
	}

	snap, err := readSnapshot(snapshotPath)
	switch {
	case err == nil:
		logger.Info("restored deck snapshot",
			zap.String("session_id", sessionID),
			zap.Int("slides", len(snap.Slides)),
		)
		return FromSnapshot(opts, snap), nil
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	d := New(opts)
	if o.TitleSlide {
		s := d.newSlide(d.opts.Name)
		s.Layout = "title slide"
		d.slides = append(d.slides, s)
		d.current = 1
	}
	return d, nil
}

func readSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
	}
	return snap, nil
}

// writeSnapshot writes through a synced temp file and renames it into place.
func writeSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
