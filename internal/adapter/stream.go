package adapter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

const (
	sseDataPrefix = "data: "
	sseDone       = "[DONE]"

	// maxFrameSize bounds a single event line.
	maxFrameSize = 1 << 20
)

// Reply is the outcome of one chat call.
// Exactly one of Content or Stream carries the result. When the call failed,
// Content holds the user-visible "Error: ..." text and Err the cause.
type Reply struct {
	Content string
	Stream  *Stream
	Err     error
}

// IsStream reports whether the reply is an open event stream.
func (r Reply) IsStream() bool {
	return r.Stream != nil
}

// Chunks yields the reply as text fragments: the stream's fragments,
// or the batch content as a single fragment.
func (r Reply) Chunks() iter.Seq[string] {
	if r.Stream != nil {
		return r.Stream.Chunks()
	}
	return func(yield func(string) bool) {
		if r.Content != "" {
			yield(r.Content)
		}
	}
}

// Text drains the reply into one string.
func (r Reply) Text() (string, error) {
	if r.Stream != nil {
		return r.Stream.Collect()
	}
	return r.Content, r.Err
}

// Stream is a single-pass sequence of content fragments read from one HTTP exchange.
// The connection is released when iteration ends, when the consumer stops early,
// on a read error, or on Close.
type Stream struct {
	ctx     context.Context
	body    io.ReadCloser
	idle    *time.Timer
	timeout time.Duration
	cancel  context.CancelCauseFunc
	logger  *slog.Logger

	started   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	err       error
}

func newStream(ctx context.Context, body io.ReadCloser, idle *time.Timer, timeout time.Duration, cancel context.CancelCauseFunc, logger *slog.Logger) *Stream {
	return &Stream{
		ctx:     ctx,
		body:    body,
		idle:    idle,
		timeout: timeout,
		cancel:  cancel,
		logger:  logger,
	}
}

// Chunks returns the fragment sequence. Only the first iteration reads; later ones yield nothing.
func (s *Stream) Chunks() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !s.started.CompareAndSwap(false, true) {
			return
		}
		defer s.Close()

		scanner := bufio.NewScanner(s.body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

		for {
			s.idle.Reset(s.timeout)
			if !scanner.Scan() {
				break
			}
			s.idle.Stop()

			content, done := s.parseLine(scanner.Text())
			if done {
				return
			}
			if content == "" {
				continue
			}
			if !yield(content) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if cause := context.Cause(s.ctx); errors.Is(cause, errStreamIdle) {
				err = cause
			}
			s.err = fmt.Errorf("failed to read grok stream: %w", err)
			s.logger.Error("stream read failed", slog.String("error", s.err.Error()))
		}
	}
}

// parseLine extracts the delta content of one event line.
// done is true on the [DONE] sentinel.
func (s *Stream) parseLine(line string) (content string, done bool) {
	if line == "" {
		return "", false
	}

	payload, ok := strings.CutPrefix(line, sseDataPrefix)
	if !ok {
		return "", false
	}
	if strings.TrimSpace(payload) == sseDone {
		return "", true
	}

	if !gjson.Valid(payload) {
		s.logger.Warn("failed to parse stream frame", slog.String("frame", payload))
		return "", false
	}

	delta := gjson.Get(payload, "choices.0.delta.content")
	if delta.Type != gjson.String {
		return "", false
	}
	return delta.Str, false
}

// Collect drains the stream into one string. A read failure keeps what arrived before it.
func (s *Stream) Collect() (string, error) {
	var b strings.Builder
	for chunk := range s.Chunks() {
		b.WriteString(chunk)
	}
	return b.String(), s.Err()
}

// Err returns the read failure that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.idle.Stop()
		s.closeErr = s.body.Close()
		s.cancel(nil)
	})
	return s.closeErr
}
