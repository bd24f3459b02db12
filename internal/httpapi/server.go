package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/config"
	"github.com/ent0n29/deckpilot/internal/dispatch"
	"github.com/ent0n29/deckpilot/internal/history"
	"github.com/ent0n29/deckpilot/internal/observability"
	"github.com/ent0n29/deckpilot/internal/session"
)

const defaultHistoryLimit = 50

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	loop     *dispatch.Loop
	history  history.Store
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader

	metricsHandler http.Handler
}

func New(cfg config.Config, sessions *session.Manager, loop *dispatch.Loop, hist history.Store, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:            cfg,
		sessions:       sessions,
		loop:           loop,
		history:        hist,
		metrics:        metrics,
		logger:         logger,
		metricsHandler: observability.MetricsHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the same origin unless configured otherwise.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// SetMetricsHandler replaces the /metrics handler, e.g. to serve a private registry.
func (s *Server) SetMetricsHandler(h http.Handler) {
	if h != nil {
		s.metricsHandler = h
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metricsHandler.ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Get("/v1/commands/help", s.handleHelp)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/end", s.handleEndSession)
			r.Post("/commands", s.handleCommand)
			r.Get("/deck", s.handleDeck)
			r.Get("/history", s.handleHistory)
			r.Get("/ws", s.handleSessionWS)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.loop == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "dispatch loop not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"generator_mode": s.cfg.GeneratorMode,
		"history_store":  s.historyMode(),
	})
}

func (s *Server) handleHelp(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"text":   command.HelpText(),
		"topics": command.HelpTopics(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	st, err := s.sessions.Create(r.Context(), req)
	if err != nil {
		s.logger.Error("session init failed", zap.String("session_id", req.SessionID), zap.Error(err))
		s.metrics.SessionEvent("init_failed")
		status := http.StatusInternalServerError
		if !errors.Is(err, session.ErrInit) {
			status = http.StatusBadRequest
		}
		respondError(w, status, "session_init_failed", err.Error())
		return
	}
	s.updateActive()
	s.metrics.SessionEvent("created")
	respondJSON(w, http.StatusCreated, st.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.sessions.End(id)
	if errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if err != nil {
		// The session is ended either way; the deck just failed to autosave.
		s.logger.Warn("end session", zap.String("session_id", id), zap.Error(err))
	}
	s.updateActive()
	s.metrics.SessionEvent("ended")
	respondJSON(w, http.StatusOK, st.Snapshot())
}

type commandRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req commandRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	source, err := parseSource(req.Source)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_source", err.Error())
		return
	}

	out := s.loop.ProcessTranscript(r.Context(), st, command.NewTranscript(req.Text, source))
	if errors.Is(out.Err, dispatch.ErrSessionStopped) {
		respondError(w, http.StatusConflict, "session_stopped", out.Error)
		return
	}
	if out.Stopped {
		s.updateActive()
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, st.Presentation().Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.lookup(w, r)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries := []history.Entry{}
	if s.history != nil {
		got, err := s.history.Recent(r.Context(), st.ID, limit)
		if err != nil {
			s.logger.Error("read history", zap.String("session_id", st.ID), zap.Error(err))
			respondError(w, http.StatusBadGateway, "history_unavailable", err.Error())
			return
		}
		if got != nil {
			entries = got
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": st.ID,
		"entries":    entries,
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return nil, false
	}
	st, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return nil, false
	}
	return st, true
}

func (s *Server) updateActive() {
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	}
}

func (s *Server) historyMode() string {
	switch {
	case s.history == nil:
		return "disabled"
	case strings.TrimSpace(s.cfg.DatabaseURL) != "":
		return "postgres"
	case strings.TrimSpace(s.cfg.RedisURL) != "":
		return "redis"
	default:
		return "in-memory"
	}
}

func parseSource(raw string) (command.Source, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(command.SourceTyped):
		return command.SourceTyped, nil
	case string(command.SourceSpeech):
		return command.SourceSpeech, nil
	default:
		return "", errors.New("source must be speech or typed")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
