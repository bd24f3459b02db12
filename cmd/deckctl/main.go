package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/app"
	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/config"
	"github.com/ent0n29/deckpilot/internal/dispatch"
	"github.com/ent0n29/deckpilot/internal/logging"
	"github.com/ent0n29/deckpilot/internal/session"
	"github.com/ent0n29/deckpilot/internal/voice"
)

type options struct {
	baseURL        string
	userID         string
	sessionID      string
	mode           dispatch.Mode
	captureTimeout time.Duration
	replyTimeout   time.Duration
	texts          []string
	verbose        bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "deckctl: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in := input(cfg, os.Stdin)
	if cfg.baseURL != "" {
		err = runRemote(ctx, cfg, in, os.Stdout)
	} else {
		err = runLocal(ctx, cfg, in, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "deckctl: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var modeRaw, textsRaw string

	fs := flag.NewFlagSet("deckctl", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "", "deckpilot server URL; empty runs the pipeline in-process")
	fs.StringVar(&cfg.userID, "user-id", "deckctl", "user_id for the session")
	fs.StringVar(&cfg.sessionID, "session", "", "session id; reuses a saved deck when it exists")
	fs.StringVar(&modeRaw, "mode", "continuous", "loop mode: single or continuous")
	fs.DurationVar(&cfg.captureTimeout, "capture-timeout", 5*time.Minute, "how long to wait for each utterance")
	fs.DurationVar(&cfg.replyTimeout, "reply-timeout", 30*time.Second, "remote mode: how long to wait for the loop to finish after input ends")
	fs.StringVar(&textsRaw, "texts", "", "utterances separated by '|' instead of reading stdin")
	fs.BoolVar(&cfg.verbose, "verbose", false, "print intent and outcome for every command")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	mode, err := dispatch.ParseMode(modeRaw)
	if err != nil {
		return options{}, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.captureTimeout <= 0 {
		return options{}, fmt.Errorf("capture-timeout must be > 0")
	}
	if strings.TrimSpace(textsRaw) != "" {
		for _, part := range strings.Split(textsRaw, "|") {
			if t := strings.TrimSpace(part); t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty utterances")
		}
	}
	return cfg, nil
}

func input(cfg options, stdin io.Reader) io.Reader {
	if len(cfg.texts) == 0 {
		return stdin
	}
	return strings.NewReader(strings.Join(cfg.texts, "\n") + "\n")
}

// runLocal drives the dispatch loop in-process, one typed line per utterance.
func runLocal(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.CaptureTimeout = opts.captureTimeout
	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = logging.New(cfg.LogLevel, "console"); err != nil {
			return err
		}
		defer logger.Sync()
	}

	built, err := app.Build(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			fmt.Fprintf(out, "cleanup: %v\n", err)
		}
	}()

	id := opts.sessionID
	if id == "" {
		id = "local"
	}
	st, err := built.Sessions.Create(ctx, session.CreateRequest{SessionID: id, UserID: opts.userID})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deckctl: session=%s mode=%s slides=%d (say \"help\" for commands, \"stop\" to finish)\n",
		st.ID, opts.mode, st.Presentation().Summary().SlideCount)

	capturer := voice.NewReaderCapturer(in, command.SourceTyped)
	defer capturer.Close()
	ch := dispatch.Channel{
		Capturer: capturer,
		Speaker:  voice.NewWriterSpeaker(out, "deckpilot> "),
	}
	if opts.verbose {
		ch.Observe = func(o dispatch.Outcome) {
			fmt.Fprintf(out, "  [%s %.2f %s %s]\n", o.Intent, o.Confidence, o.Outcome, o.ErrorKind)
		}
	}
	err = built.Loop.Run(ctx, st, ch, opts.mode)
	stats := st.Stats()
	fmt.Fprintf(out, "deckctl: %d commands, %d succeeded, %d generated\n",
		stats.CommandsProcessed, stats.CommandsSucceeded, stats.Generations)
	return err
}
