package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/caffeineduck/headless/hostfunc"
)

// Protocol constants - used by guests to communicate with the host.
// Format: \x00HEADLESS:{json}\x00 and \x00HEADLESS_FLUSH:tag\x00
const (
	protocolPrefix      = "\x00HEADLESS:"
	protocolFlushPrefix = "\x00HEADLESS_FLUSH:"
	protocolSuffix      = "\x00"
)

type messageType int

const (
	messageNone messageType = iota
	messageCall
	messageFlush
)

type callRequest struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type callResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// findNextMessage returns the index and type of the earliest protocol
// message in content.
func findNextMessage(content string) (int, messageType) {
	callIdx := strings.Index(content, protocolPrefix)
	flushIdx := strings.Index(content, protocolFlushPrefix)

	switch {
	case callIdx == -1 && flushIdx == -1:
		return -1, messageNone
	case flushIdx == -1 || (callIdx != -1 && callIdx < flushIdx):
		return callIdx, messageCall
	default:
		return flushIdx, messageFlush
	}
}

// extractMessage splits the message starting at idx into its payload and
// whatever follows it. ok is false when the message is not yet complete, in
// which case remaining holds the message from idx on.
func extractMessage(content string, idx int, prefix string) (payload, remaining string, ok bool) {
	start := idx + len(prefix)
	end := strings.Index(content[start:], protocolSuffix)
	if end == -1 {
		return "", content[idx:], false
	}
	return content[start : start+end], content[start+end+len(protocolSuffix):], true
}

// partialPrefix reports how many trailing bytes of content could begin a
// protocol message.
func partialPrefix(content string) int {
	for n := min(len(content), len(protocolFlushPrefix)-1); n > 0; n-- {
		tail := content[len(content)-n:]
		if strings.HasPrefix(protocolPrefix, tail) || strings.HasPrefix(protocolFlushPrefix, tail) {
			return n
		}
	}
	return 0
}

// protocolHandler intercepts stderr to handle host function calls.
// Regular stderr output passes through; protocol messages trigger host calls.
type protocolHandler struct {
	ctx         context.Context
	registry    *hostfunc.Registry
	stdinWriter *io.PipeWriter
	passthrough io.Writer
	onFlush     func(tag string)
	realStderr  bytes.Buffer
	buf         bytes.Buffer
	mu          sync.Mutex

	// replies are written to stdinWriter in call order by writeReplies.
	replyMu  sync.Mutex
	replyCnd *sync.Cond
	replies  [][]byte
	finished bool
}

func newProtocolHandler(ctx context.Context, registry *hostfunc.Registry, stdinWriter *io.PipeWriter) *protocolHandler {
	p := &protocolHandler{
		ctx:         ctx,
		registry:    registry,
		stdinWriter: stdinWriter,
	}
	p.replyCnd = sync.NewCond(&p.replyMu)
	go p.writeReplies()
	return p
}

func (p *protocolHandler) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(data)

	for {
		content := p.buf.String()
		idx, msgType := findNextMessage(content)
		if msgType == messageNone {
			keep := partialPrefix(content)
			p.emit(content[:len(content)-keep])
			p.buf.Reset()
			p.buf.WriteString(content[len(content)-keep:])
			break
		}

		p.emit(content[:idx])

		prefix := protocolPrefix
		if msgType == messageFlush {
			prefix = protocolFlushPrefix
		}
		payload, remaining, ok := extractMessage(content, idx, prefix)
		p.buf.Reset()
		p.buf.WriteString(remaining)
		if !ok {
			break
		}

		if msgType == messageFlush {
			if p.onFlush != nil {
				p.onFlush(payload)
			}
			continue
		}

		var req callRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			p.respond(callResponse{Error: "invalid call format"})
			continue
		}

		resp := p.handleCall(req)
		p.respond(resp)
	}

	return len(data), nil
}

func (p *protocolHandler) emit(s string) {
	if s == "" {
		return
	}
	if p.passthrough != nil {
		io.WriteString(p.passthrough, s)
		return
	}
	p.realStderr.WriteString(s)
}

// respond queues a reply without blocking the guest's stderr write.
func (p *protocolHandler) respond(resp callResponse) {
	data, _ := json.Marshal(resp)
	p.replyMu.Lock()
	if p.finished {
		p.replyMu.Unlock()
		return
	}
	p.replies = append(p.replies, append(data, '\n'))
	p.replyMu.Unlock()
	p.replyCnd.Signal()
}

func (p *protocolHandler) writeReplies() {
	for {
		p.replyMu.Lock()
		for len(p.replies) == 0 && !p.finished {
			p.replyCnd.Wait()
		}
		if len(p.replies) == 0 {
			p.replyMu.Unlock()
			return
		}
		data := p.replies[0]
		p.replies = p.replies[1:]
		p.replyMu.Unlock()

		if _, err := p.stdinWriter.Write(data); err != nil {
			p.replyMu.Lock()
			p.replies = nil
			p.finished = true
			p.replyMu.Unlock()
			return
		}
	}
}

func (p *protocolHandler) handleCall(req callRequest) callResponse {
	fn, ok := p.registry.Get(req.Fn)
	if !ok {
		return callResponse{Error: "unknown function: " + req.Fn}
	}

	if req.Args == nil {
		req.Args = map[string]any{}
	}
	result, err := fn(p.ctx, req.Args)
	if err != nil {
		return callResponse{Error: err.Error()}
	}
	return callResponse{Data: result}
}

// finish passes through anything still held back once the guest has exited
// and stops the reply writer once its queue drains.
func (p *protocolHandler) finish() {
	p.mu.Lock()
	p.emit(p.buf.String())
	p.buf.Reset()
	p.mu.Unlock()

	p.replyMu.Lock()
	p.finished = true
	p.replyMu.Unlock()
	p.replyCnd.Broadcast()
}

// Stderr returns collected stderr, including any unterminated message.
func (p *protocolHandler) Stderr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realStderr.String() + p.buf.String()
}
