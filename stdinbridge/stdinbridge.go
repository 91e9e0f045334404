// Package stdinbridge turns the host's character input stream into complete
// lines that another goroutine can poll for without blocking.
//
// One writer (the goroutine reading the input stream) feeds chunks into a
// [LineBuffer]; any number of readers call [LineBuffer.TryDequeue]. A line is
// published only once its terminating newline has been seen, or when the
// stream ends with a non-empty remainder. The end-of-stream flag only ever
// goes from false to true.
package stdinbridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/caffeineduck/headless/hostenv"
	"github.com/rs/zerolog"
)

// Status is the outcome of a non-blocking dequeue.
type Status int

const (
	// LineReady means a line was returned.
	LineReady Status = iota
	// Pending means no line is available yet but the stream is still open.
	Pending
	// Ended means the stream ended and every line has been consumed.
	Ended
)

func (s Status) String() string {
	switch s {
	case LineReady:
		return "line"
	case Pending:
		return "pending"
	case Ended:
		return "eof"
	default:
		return "unknown"
	}
}

// LineBuffer holds completed lines, the partial line being accumulated and
// the end-of-stream flag.
type LineBuffer struct {
	mu    sync.Mutex
	lines []string

	// partial is only touched by the writer.
	writeMu sync.Mutex
	partial []byte

	eof   atomic.Bool
	ready chan struct{}
}

// NewLineBuffer returns an empty, open buffer.
func NewLineBuffer() *LineBuffer {
	return &LineBuffer{ready: make(chan struct{}, 1)}
}

// Feed appends a chunk of input. Every newline-terminated segment becomes a
// line; the trailing segment is held until more input or Close arrives.
// Feed after Close is ignored.
func (b *LineBuffer) Feed(chunk []byte) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.eof.Load() || len(chunk) == 0 {
		return
	}

	data := append(b.partial, chunk...)
	var complete []string
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		complete = append(complete, string(data[:i]))
		data = data[i+1:]
	}
	b.partial = bytes.Clone(data)

	b.publish(complete...)
}

// Close flushes a non-empty remainder as the final line and marks the end
// of the stream. Only the first call has any effect.
func (b *LineBuffer) Close() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.eof.Load() {
		return
	}
	if len(b.partial) > 0 {
		b.publish(string(b.partial))
		b.partial = nil
	}
	b.eof.Store(true)
	b.signal()
}

func (b *LineBuffer) publish(lines ...string) {
	if len(lines) == 0 {
		return
	}
	b.mu.Lock()
	b.lines = append(b.lines, lines...)
	b.mu.Unlock()
	b.signal()
}

func (b *LineBuffer) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// TryDequeue removes and returns the oldest line without blocking.
// The returned line is only meaningful when the status is [LineReady].
func (b *LineBuffer) TryDequeue() (string, Status) {
	// load before taking the lock: a line published before eof was set is
	// always visible below, so Ended is never reported with lines left
	eof := b.eof.Load()

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.lines) > 0 {
		line := b.lines[0]
		b.lines[0] = ""
		b.lines = b.lines[1:]
		return line, LineReady
	}
	if eof {
		return "", Ended
	}
	return "", Pending
}

// Len returns the number of lines waiting to be dequeued.
func (b *LineBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// EOF reports whether the input stream has ended.
func (b *LineBuffer) EOF() bool {
	return b.eof.Load()
}

// Partial returns the text received since the last newline.
func (b *LineBuffer) Partial() string {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return string(b.partial)
}

// Ready returns a channel that receives after lines are published or the
// stream ends. Consumers that would rather sleep than spin can select on it
// between polls; it never replaces TryDequeue.
func (b *LineBuffer) Ready() <-chan struct{} {
	return b.ready
}

const readChunkSize = 4096

// Bridge reads a host input stream into a LineBuffer.
type Bridge struct {
	buf    *LineBuffer
	done   chan struct{}
	logger zerolog.Logger
}

// Attach starts bridging the environment's stdin. It returns nil for
// browser-like environments or when no input stream is available.
func Attach(env *hostenv.Environment) *Bridge {
	if env.IsBrowserLike() || env.Stdin() == nil {
		return nil
	}
	return AttachReader(env.Stdin(), *env.Logger())
}

// AttachReader starts bridging r. The subscription ends only when r does.
func AttachReader(r io.Reader, logger zerolog.Logger) *Bridge {
	b := &Bridge{
		buf:    NewLineBuffer(),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "stdin").Logger(),
	}
	go b.read(r)
	return b
}

func (b *Bridge) read(r io.Reader) {
	defer close(b.done)
	defer b.buf.Close()

	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			b.buf.Feed(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				b.logger.Warn().Err(err).Msg("stdin read failed, treating as end of stream")
			}
			b.logger.Debug().Int("pending", b.buf.Len()).Msg("stdin ended")
			return
		}
	}
}

// Buffer returns the shared line buffer.
func (b *Bridge) Buffer() *LineBuffer { return b.buf }

// Done is closed once the input stream has ended and the buffer is closed.
func (b *Bridge) Done() <-chan struct{} { return b.done }

// Poll is the guest-facing "stdin_poll" function. It dequeues at most one
// line and reports {"status": "line"|"pending"|"eof", "line": ...}.
func (b *Bridge) Poll(ctx context.Context, args map[string]any) (any, error) {
	line, status := b.buf.TryDequeue()
	result := map[string]any{"status": status.String()}
	if status == LineReady {
		result["line"] = line
	}
	return result, nil
}
