package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/config"
	"github.com/ent0n29/deckpilot/internal/contentgen"
	"github.com/ent0n29/deckpilot/internal/deck"
	"github.com/ent0n29/deckpilot/internal/dispatch"
	"github.com/ent0n29/deckpilot/internal/history"
	"github.com/ent0n29/deckpilot/internal/httpapi"
	"github.com/ent0n29/deckpilot/internal/observability"
	"github.com/ent0n29/deckpilot/internal/session"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Sessions  *session.Manager
	Loop      *dispatch.Loop
	History   history.Store
	Generator contentgen.Generator
	Metrics   *observability.Metrics

	// Cleanup closes every session (autosaving decks) and releases the history store.
	Cleanup func() error
}

// Build wires the service from cfg. A nil reg registers metrics with the
// default Prometheus registry.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, reg *prometheus.Registry) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var registerer prometheus.Registerer
	if reg != nil {
		registerer = reg
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace, registerer)

	hist, err := history.NewStore(ctx, history.Options{
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		PerSession:  cfg.HistoryPerSession,
		TTL:         cfg.HistoryTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}

	generator, err := contentgen.NewGenerator(contentgen.Config{
		Mode:            cfg.GeneratorMode,
		URL:             cfg.GeneratorHTTPURL,
		Token:           cfg.GeneratorToken,
		Timeout:         cfg.GeneratorTimeout,
		MaxRetries:      cfg.GeneratorMaxRetries,
		BreakerFailures: cfg.GeneratorBreakerFailures,
		BreakerCooldown: cfg.GeneratorBreakerCooldown,
		CLIPath:         cfg.GeneratorCLIPath,
		CLIArgs:         cfg.GeneratorCLIArgs,
		Logger:          logger.Named("contentgen"),
	})
	if err != nil {
		_ = hist.Close()
		return nil, fmt.Errorf("content generator init failed: %w", err)
	}

	opener := &deck.FileOpener{
		Dir:         cfg.DeckDir,
		AssetsDir:   cfg.AssetsDir,
		DefaultName: cfg.DeckDefaultName,
		MaxSlides:   cfg.DeckMaxSlides,
		Autosave:    cfg.DeckAutosave,
		TitleSlide:  cfg.DeckTitleSlide,
		Logger:      logger.Named("deck"),
	}

	sessions := session.NewManager(opener, session.Options{
		InactivityTimeout: cfg.SessionInactivityTimeout,
		Retention:         cfg.SessionRetention,
		RecentLimit:       cfg.RecentActionsLimit,
		Logger:            logger.Named("session"),
	})
	sessions.SetExpireHook(func(_ *session.State) {
		metrics.SessionEvent("expired")
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	loop := dispatch.New(dispatch.Config{
		Matcher:         command.NewMatcher(cfg.Tuning),
		Generator:       generator,
		History:         hist,
		Metrics:         metrics,
		Logger:          logger.Named("dispatch"),
		CaptureTimeout:  cfg.CaptureTimeout,
		GenerateTimeout: cfg.GeneratorTimeout,
	})

	api := httpapi.New(cfg, sessions, loop, hist, metrics, logger.Named("http"))
	if reg != nil {
		api.SetMetricsHandler(observability.HandlerFor(reg))
	}

	cleanup := func() error {
		return errors.Join(sessions.CloseAll(), hist.Close())
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Sessions:  sessions,
		Loop:      loop,
		History:   hist,
		Generator: generator,
		Metrics:   metrics,
		Cleanup:   cleanup,
	}, nil
}
