package contentgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/deckpilot/internal/reliability"
)

const (
	retryBase = 200 * time.Millisecond
	retryCap  = 2 * time.Second
)

type HTTPOptions struct {
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPGenerator posts requests to a JSON content endpoint.
type HTTPGenerator struct {
	url        string
	token      string
	maxRetries int
	client     *http.Client
}

func NewHTTPGenerator(url string, opts HTTPOptions) *HTTPGenerator {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &HTTPGenerator{
		url:        strings.TrimSpace(url),
		token:      strings.TrimSpace(opts.Token),
		maxRetries: opts.MaxRetries,
		client:     &http.Client{Timeout: opts.Timeout},
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("generator http status %d: %s", e.code, e.body)
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Content, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Content{}, fmt.Errorf("marshal request: %w", err)
	}

	policy := reliability.Policy{Retries: g.maxRetries, Base: retryBase, Cap: retryCap}
	var content Content
	err = policy.Do(ctx, func(ctx context.Context) error {
		var err error
		content, err = g.once(ctx, payload)
		var se *statusError
		if errors.As(err, &se) && !reliability.RetryableStatus(se.code) {
			return reliability.Permanent(err)
		}
		return err
	})
	if err != nil {
		return Content{}, err
	}
	return content, nil
}

func (g *HTTPGenerator) once(ctx context.Context, payload []byte) (Content, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return Content{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.token)
	}

	res, err := g.client.Do(httpReq)
	if err != nil {
		return Content{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Content{}, &statusError{code: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Content{}, fmt.Errorf("read response: %w", err)
	}
	content := parseContent(body)
	if content.Empty() {
		return Content{}, ErrEmptyContent
	}
	content.Source = "http"
	return content, nil
}

// parseContent accepts {"title","body"} objects, generic text payloads, or
// plain text where the first line is the title.
func parseContent(body []byte) Content {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return splitText(string(body))
	}
	title, _ := obj["title"].(string)
	text, _ := obj["body"].(string)
	if strings.TrimSpace(title) != "" || strings.TrimSpace(text) != "" {
		return Content{Title: strings.TrimSpace(title), Body: strings.TrimSpace(text)}
	}
	return splitText(extractText(obj))
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"text", "content", "output", "message"} {
		if s, ok := obj[k].(string); ok {
			return s
		}
	}
	return ""
}

func splitText(text string) Content {
	text = strings.TrimSpace(text)
	if text == "" {
		return Content{}
	}
	title, rest, _ := strings.Cut(text, "\n")
	return Content{
		Title: strings.TrimSpace(strings.TrimLeft(title, "# ")),
		Body:  strings.TrimSpace(rest),
	}
}
