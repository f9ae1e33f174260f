package services

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

// mockEmbedder maps text onto one axis per keyword, so texts sharing
// keywords are similar.
type mockEmbedder struct {
	mu      sync.Mutex
	axes    []string
	err     error
	calls   int
	batches [][]string
	inputs  []string
}

func newMockEmbedder(axes ...string) *mockEmbedder {
	if len(axes) == 0 {
		axes = []string{"budget", "save", "debt", "invest"}
	}
	return &mockEmbedder{axes: axes}
}

func (m *mockEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(m.axes)+1)
	for i, a := range m.axes {
		v[i] = float32(strings.Count(lower, a))
	}
	v[len(m.axes)] = 0.1
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.inputs = append(m.inputs, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return len(m.axes) + 1 }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// failingStore returns err from every operation.
type failingStore struct {
	err error
}

func (f *failingStore) InsertIfAbsent(context.Context, []domain.IndexedRecord) (int, error) {
	return 0, f.err
}
func (f *failingStore) ScanMetadata(context.Context) ([]map[string]any, error) { return nil, f.err }
func (f *failingStore) Search(context.Context, []float32, int) ([]driven.VectorHit, error) {
	return nil, f.err
}
func (f *failingStore) DeleteCollection(context.Context) error { return f.err }
func (f *failingStore) Count(context.Context) (int, error)     { return 0, f.err }
func (f *failingStore) Close() error                           { return nil }

var errBoom = errors.New("boom")

// mockGenerator yields fixed fragments and records what it was asked.
type mockGenerator struct {
	mu        sync.Mutex
	fragments []string
	err       error
	prompts   []string
	opts      []driven.GenerateOptions
}

func (m *mockGenerator) Stream(_ context.Context, prompt string, opts driven.GenerateOptions) iter.Seq2[string, error] {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, f := range m.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if m.err != nil {
			yield("", m.err)
		}
	}
}

func (m *mockGenerator) ModelName() string          { return "mock-llm" }
func (m *mockGenerator) Ping(context.Context) error { return nil }
func (m *mockGenerator) Close() error               { return nil }

// stubSearcher returns a fixed retrieval result.
type stubSearcher struct {
	result  domain.RetrievalResult
	queries []string
	opts    []domain.RetrievalOptions
}

func (s *stubSearcher) Search(_ context.Context, query string, opts domain.RetrievalOptions) domain.RetrievalResult {
	s.queries = append(s.queries, query)
	s.opts = append(s.opts, opts)
	r := s.result
	r.Query = query
	return r
}
