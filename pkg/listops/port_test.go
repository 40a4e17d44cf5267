package listops

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dan-solli/listops/pkg/llm"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose view worker starts at init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// scriptedPort answers every request with respond and records what it saw.
type scriptedPort struct {
	respond func(req llm.Request) (string, error)
	delay   func(req llm.Request) time.Duration

	mu       sync.Mutex
	requests []llm.Request

	active atomic.Int64
	peak   atomic.Int64
}

func (p *scriptedPort) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay != nil {
		select {
		case <-time.After(p.delay(req)):
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	}

	text, err := p.respond(req)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Text: text, Details: llm.Details{FinishReason: llm.FinishStop}}, nil
}

func (p *scriptedPort) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedPort) recorded() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}

func newTestEngine(t *testing.T, port llm.Completer, cfg Config) *Engine {
	t.Helper()
	e, err := New(port, cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return e
}

// section returns the body of a <TAG> block in a prompt, up to the next
// blank line or the end of the prompt.
func section(prompt, tag string) string {
	_, rest, ok := strings.Cut(prompt, "<"+tag+">\n")
	if !ok {
		return ""
	}
	body, _, _ := strings.Cut(rest, "\n\n")
	return body
}

func sectionInt(t *testing.T, prompt, tag string) int {
	t.Helper()
	n, err := strconv.Atoi(section(prompt, tag))
	if err != nil {
		t.Errorf("section %s of %q is not a number: %v", tag, prompt, err)
	}
	return n
}
