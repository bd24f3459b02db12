package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/dispatch"
	"github.com/ent0n29/deckpilot/internal/protocol"
	"github.com/ent0n29/deckpilot/internal/session"
	"github.com/ent0n29/deckpilot/internal/voice"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
)

// handleSessionWS runs the dispatch loop over a websocket. Inbound
// client_transcript messages feed the capturer; feedback and outcomes are
// written back as they happen. The connection closes when the loop ends.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	mode, err := dispatch.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	st, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if st.Ended() {
		respondError(w, http.StatusConflict, "session_stopped", dispatch.ErrSessionStopped.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	logger := s.logger.With(zap.String("session_id", st.ID), zap.String("mode", string(mode)))
	s.metrics.SessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	capturer := voice.NewChannelCapturer(64)
	outbound := make(chan any, 256)
	send := func(msg any) {
		t, _ := protocol.TypeOf(msg)
		select {
		case outbound <- msg:
		case <-ctx.Done():
		default:
			// Keep websocket writes single-threaded; drop if outbound queue is saturated.
			logger.Warn("outbound queue full", zap.String("type", string(t)))
		}
	}

	channel := dispatch.Channel{
		Capturer: capturer,
		Speaker: voice.SpeakerFunc(func(_ context.Context, fb voice.Feedback) error {
			send(protocol.Feedback{
				Type:      protocol.TypeFeedback,
				SessionID: st.ID,
				Kind:      string(fb.Kind),
				Text:      fb.Text,
				Speech:    fb.Speech,
			})
			return nil
		}),
		Observe: func(out dispatch.Outcome) {
			send(outcomeMessage(st, out))
		},
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		err := s.loop.Run(ctx, st, channel, mode)
		detail := "finished"
		if err != nil {
			detail = err.Error()
		}
		if err != nil && ctx.Err() == nil {
			logger.Warn("dispatch loop ended", zap.Error(err))
		}
		send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: st.ID, Code: "loop_ended", Detail: detail})
		s.updateActive()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		write := func(msg any) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return false
			}
			if t, ok := protocol.TypeOf(msg); ok {
				s.observeWS("outbound", t)
			}
			return true
		}
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				if !write(msg) {
					return
				}
			case <-runDone:
			drain:
				for {
					select {
					case msg := <-outbound:
						if !write(msg) {
							return
						}
					default:
						break drain
					}
				}
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "loop ended"),
					time.Now().Add(time.Second))
				_ = conn.Close()
				return
			}
		}
	}()

	send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: st.ID, Code: "listening", Detail: string(mode)})

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: st.ID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := protocol.TypeOf(parsed); ok {
			s.observeWS("inbound", t)
		}
		s.handleClientMessage(st, parsed, capturer, send)
	}

	cancel()
	capturer.Close()
	<-runDone
	<-writerDone
	s.metrics.SessionEvent("ws_disconnected")
}

func (s *Server) handleClientMessage(st *session.State, msg any, capturer *voice.ChannelCapturer, send func(any)) {
	switch m := msg.(type) {
	case protocol.ClientTranscript:
		if m.SessionID != st.ID {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: st.ID,
				Code:      "session_mismatch",
				Source:    "gateway",
				Detail:    "session_id does not match this connection",
			})
			return
		}
		source := command.SourceSpeech
		if m.Source == string(command.SourceTyped) {
			source = command.SourceTyped
		}
		s.push(st, capturer, command.NewTranscript(m.Text, source), send)
	case protocol.ClientControl:
		switch m.Action {
		case protocol.ControlStop:
			s.push(st, capturer, command.NewTranscript("stop", command.SourceTyped), send)
		case protocol.ControlHelp:
			s.push(st, capturer, command.NewTranscript("help", command.SourceTyped), send)
		case protocol.ControlPing:
			send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: st.ID, Code: "pong"})
		}
	}
}

func (s *Server) push(st *session.State, capturer *voice.ChannelCapturer, tr command.Transcript, send func(any)) {
	if capturer.Push(tr) {
		return
	}
	send(protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: st.ID,
		Code:      "transcript_dropped",
		Source:    "gateway",
		Retryable: true,
		Detail:    "too many pending transcripts",
	})
}

func (s *Server) observeWS(direction string, t protocol.MessageType) {
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues(direction, string(t)).Inc()
	}
}

func outcomeMessage(st *session.State, out dispatch.Outcome) protocol.DispatchOutcome {
	msg := protocol.DispatchOutcome{
		Type:         protocol.TypeDispatchOutcome,
		SessionID:    out.SessionID,
		TranscriptID: out.Transcript.ID,
		Intent:       string(out.Intent),
		Confidence:   out.Confidence,
		Outcome:      string(out.Outcome),
		ErrorKind:    string(out.ErrorKind),
		State:        string(out.State),
		Stopped:      out.Stopped,
		DurationMS:   out.DurationMS,
	}
	if len(out.Parameters) > 0 {
		msg.Parameters = make(map[string]any, len(out.Parameters))
		for k, v := range out.Parameters {
			msg.Parameters[string(k)] = v
		}
	}
	if out.Clarification != nil {
		msg.Prompt = out.Clarification.Prompt
	}
	if out.Result != nil {
		msg.Message = out.Result.Message
		msg.SlideCount = out.Result.SlideCount
		msg.CurrentSlide = out.Result.CurrentSlide
	} else {
		summary := st.Presentation().Summary()
		msg.SlideCount = summary.SlideCount
		msg.CurrentSlide = summary.CurrentSlide
	}
	return msg
}
