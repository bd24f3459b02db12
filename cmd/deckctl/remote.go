package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/deckpilot/internal/protocol"
)

type createSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type wsEnvelope struct {
	Type       string  `json:"type"`
	Kind       string  `json:"kind,omitempty"`
	Code       string  `json:"code,omitempty"`
	Detail     string  `json:"detail,omitempty"`
	Text       string  `json:"text,omitempty"`
	Intent     string  `json:"intent,omitempty"`
	Outcome    string  `json:"outcome,omitempty"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// runRemote sends each input line over the session websocket and prints the
// feedback the server returns.
func runRemote(ctx context.Context, cfg options, in io.Reader, out io.Writer) error {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	sessionID, err := createSession(ctx, httpClient, cfg)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	fmt.Fprintf(out, "deckctl: session=%s mode=%s server=%s\n", sessionID, cfg.mode, cfg.baseURL)

	wsURL, err := wsURLForSession(cfg.baseURL, sessionID, string(cfg.mode))
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	done := make(chan error, 1)
	go readLoop(conn, out, cfg.verbose, done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = sendControl(conn, sessionID, protocol.ControlStop)
			return ctx.Err()
		case err := <-done:
			return err
		case line, ok := <-lines:
			if !ok {
				_ = sendControl(conn, sessionID, protocol.ControlStop)
				return awaitDone(done, cfg.replyTimeout)
			}
			msg := protocol.ClientTranscript{
				Type:      protocol.TypeClientTranscript,
				SessionID: sessionID,
				Text:      line,
				Source:    "typed",
				TSMs:      time.Now().UnixMilli(),
			}
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("ws write: %w", err)
			}
		}
	}
}

func createSession(ctx context.Context, client *http.Client, cfg options) (string, error) {
	payload, err := json.Marshal(createSessionRequest{SessionID: cfg.sessionID, UserID: cfg.userID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/v1/sessions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var created createSessionResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", err
	}
	if strings.TrimSpace(created.SessionID) == "" {
		return "", fmt.Errorf("missing session_id in response")
	}
	return created.SessionID, nil
}

func wsURLForSession(baseURL, sessionID, mode string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/sessions/" + url.PathEscape(sessionID) + "/ws"
	q := u.Query()
	if mode != "" {
		q.Set("mode", mode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readLoop prints server messages until the loop ends or the socket closes.
func readLoop(conn *websocket.Conn, out io.Writer, verbose bool, done chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			done <- err
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if line, ok := formatMessage(env, verbose); ok {
			fmt.Fprintln(out, line)
		}
		if env.Type == string(protocol.TypeSystemEvent) && env.Code == "loop_ended" {
			done <- nil
			return
		}
	}
}

func formatMessage(env wsEnvelope, verbose bool) (string, bool) {
	switch protocol.MessageType(env.Type) {
	case protocol.TypeFeedback:
		return "deckpilot> " + env.Text, true
	case protocol.TypeErrorEvent:
		return fmt.Sprintf("error: %s %s", env.Code, env.Detail), true
	case protocol.TypeDispatchOutcome:
		if !verbose {
			return "", false
		}
		return fmt.Sprintf("  [%s %.2f %s %s]", env.Intent, env.Confidence, env.Outcome, env.ErrorKind), true
	case protocol.TypeSystemEvent:
		if !verbose {
			return "", false
		}
		return fmt.Sprintf("  (%s %s)", env.Code, env.Detail), true
	default:
		return "", false
	}
}

func sendControl(conn *websocket.Conn, sessionID, action string) error {
	return conn.WriteJSON(protocol.ClientControl{
		Type:      protocol.TypeClientControl,
		SessionID: sessionID,
		Action:    action,
		TSMs:      time.Now().UnixMilli(),
	})
}

func awaitDone(done <-chan error, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out waiting for the session loop to finish")
	}
}
