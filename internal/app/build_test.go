package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/config"
	"github.com/ent0n29/deckpilot/internal/session"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		MetricsNamespace:         "deckpilot_app_test",
		SessionInactivityTimeout: time.Minute,
		SessionRetention:         time.Minute,
		CaptureTimeout:           time.Second,
		RecentActionsLimit:       10,
		Tuning:                   command.DefaultTuning(),
		GeneratorMode:            "mock",
		GeneratorTimeout:         time.Second,
		GeneratorBreakerFailures: 3,
		DeckDir:                  t.TempDir(),
		DeckDefaultName:          "talk",
		DeckMaxSlides:            10,
		DeckAutosave:             true,
		HistoryPerSession:        20,
	}
}

func TestBuildWiresLoopAndAutosavesOnCleanup(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	res, err := Build(ctx, cfg, nil, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	st, err := res.Sessions.Create(ctx, session.CreateRequest{SessionID: "demo"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	out := res.Loop.ProcessTranscript(ctx, st, command.NewTranscript("create a slide with title Agenda", command.SourceTyped))
	if out.Outcome != session.OutcomeExecuted {
		t.Fatalf("outcome = %+v", out)
	}
	entries, err := res.History.Recent(ctx, "demo", 5)
	if err != nil || len(entries) != 1 {
		t.Fatalf("history = %+v, %v", entries, err)
	}

	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.DeckDir, "sessions", "demo.json")); err != nil {
		t.Fatalf("autosaved snapshot missing: %v", err)
	}
}

func TestBuildRejectsHTTPGeneratorWithoutURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.GeneratorMode = "http"
	if _, err := Build(context.Background(), cfg, nil, prometheus.NewRegistry()); err == nil {
		t.Fatal("Build() error = nil, want generator init failure")
	}
}
