package voice

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/deckpilot/internal/command"
)

// ChannelCapturer is fed by Push from another goroutine, typically a
// websocket reader or a speech recogniser callback.
type ChannelCapturer struct {
	mu     sync.Mutex
	input  chan command.Transcript
	closed bool
}

func NewChannelCapturer(buffer int) *ChannelCapturer {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelCapturer{input: make(chan command.Transcript, buffer)}
}

// Push queues a transcript. It returns false when the capturer is closed or
// the buffer is full.
func (c *ChannelCapturer) Push(tr command.Transcript) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.input <- tr:
		return true
	default:
		return false
	}
}

func (c *ChannelCapturer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.input)
}

func (c *ChannelCapturer) Capture(ctx context.Context, timeout time.Duration) (command.Transcript, error) {
	return waitFor(ctx, c.input, timeout)
}

// ReaderCapturer treats each line of r as one typed utterance. Close stops
// the scanning goroutine once it finishes the line it is reading.
type ReaderCapturer struct {
	lines     chan command.Transcript
	done      chan struct{}
	exited    chan struct{}
	source    command.Source
	startOnce sync.Once
	closeOnce sync.Once
	r         io.Reader
}

func NewReaderCapturer(r io.Reader, source command.Source) *ReaderCapturer {
	if source == "" {
		source = command.SourceTyped
	}
	return &ReaderCapturer{
		lines:  make(chan command.Transcript),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		source: source,
		r:      r,
	}
}

func (c *ReaderCapturer) start() {
	go func() {
		defer close(c.exited)
		defer close(c.lines)
		scanner := bufio.NewScanner(c.r)
		for scanner.Scan() {
			select {
			case c.lines <- command.NewTranscript(strings.TrimSpace(scanner.Text()), c.source):
			case <-c.done:
				return
			}
		}
	}()
}

func (c *ReaderCapturer) Capture(ctx context.Context, timeout time.Duration) (command.Transcript, error) {
	select {
	case <-c.done:
		return command.Transcript{}, ErrClosed
	default:
	}
	c.startOnce.Do(c.start)
	return waitFor(ctx, c.lines, timeout)
}

// Close ends capture; later Capture calls return ErrClosed.
func (c *ReaderCapturer) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func waitFor(ctx context.Context, in <-chan command.Transcript, timeout time.Duration) (command.Transcript, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	select {
	case <-ctx.Done():
		return command.Transcript{}, ctx.Err()
	case <-deadline:
		return command.Transcript{}, ErrCaptureTimeout
	case tr, ok := <-in:
		if !ok {
			return command.Transcript{}, ErrClosed
		}
		return tr, nil
	}
}
