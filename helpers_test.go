package docqa

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/flarexio/docqa/vector"
)

// letterEmbedder maps text to letter frequencies plus a constant bias so
// that no vector is all zeros.
type letterEmbedder struct {
	fail  string
	calls atomic.Int32
}

func (e *letterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)

	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("embedding model unavailable")
	}

	v := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[26] = 1

	return v, nil
}

type recordingModel struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (m *recordingModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func (m *recordingModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.prompts) == 0 {
		return ""
	}

	return m.prompts[len(m.prompts)-1]
}

// stuckModel never answers and ignores cancellation until released.
type stuckModel struct {
	release chan struct{}
	started chan struct{}
}

func newStuckModel() *stuckModel {
	return &stuckModel{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
}

func (m *stuckModel) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case m.started <- struct{}{}:
	default:
	}

	<-m.release
	return "too late", nil
}

type countingExtractor struct {
	calls atomic.Int32
	text  string
	err   error
}

func (e *countingExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	e.calls.Add(1)

	if e.err != nil {
		return "", e.err
	}

	if e.text != "" {
		return e.text, nil
	}

	return string(data), nil
}

type stubIndex struct {
	name   string
	closed atomic.Bool
}

func (idx *stubIndex) Search(ctx context.Context, query []float32, k int) ([]vector.Result, error) {
	return []vector.Result{}, nil
}

func (idx *stubIndex) Len() int       { return 0 }
func (idx *stubIndex) Dimension() int { return 0 }

func (idx *stubIndex) Close() error {
	idx.closed.Store(true)
	return nil
}
