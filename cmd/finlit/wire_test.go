package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/adapters/driven/config/file"
	"github.com/custodia-labs/finlit/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/finlit/internal/adapters/driving/cli"
	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

// keywordEmbedder embeds text as counts of a few finance terms.
type keywordEmbedder struct {
	closed bool
}

var keywordDims = []string{"emergency", "debt", "tax", "retirement"}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywordDims))
	for i, kw := range keywordDims {
		vec[i] = float32(strings.Count(lower, kw))
	}
	return vec, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int            { return len(keywordDims) }
func (e *keywordEmbedder) ModelName() string          { return "keywords" }
func (e *keywordEmbedder) Ping(context.Context) error { return nil }
func (e *keywordEmbedder) Close() error {
	e.closed = true
	return nil
}

func newTestApplication(t *testing.T, embedder driven.EmbeddingService) *application {
	t.Helper()
	prompts, err := file.NewPromptStore(t.TempDir())
	require.NoError(t, err)
	return &application{
		prompts: prompts,
		initAI: func(*domain.AppSettings) (driven.EmbeddingService, driven.Generator, func()) {
			return embedder, nil, func() {
				if embedder != nil {
					embedder.Close()
				}
			}
		},
	}
}

func testSettings(t *testing.T, backend domain.StoreBackend) *domain.AppSettings {
	t.Helper()
	s := domain.DefaultAppSettings()
	s.Store.Backend = backend
	s.Store.DataDir = t.TempDir()
	return &s
}

func writeTestChunks(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "basics.jsonl")
	chunks := []domain.Chunk{
		{ID: "c1", DocumentID: "d1", Title: "Money Basics", SourceFile: "basics.pdf", Index: 0,
			Text: "An emergency fund covers three to six months of expenses."},
		{ID: "c2", DocumentID: "d1", Title: "Money Basics", SourceFile: "basics.pdf", Index: 1,
			Text: "Pay the debt with the highest interest rate first."},
		{ID: "c3", DocumentID: "d1", Title: "Money Basics", SourceFile: "basics.pdf", Index: 2,
			Text: "Contributions to retirement accounts may reduce income tax."},
	}
	require.NoError(t, jsonl.New().WriteFile(path, chunks))
	return path
}

func TestWire_NoNeeds(t *testing.T) {
	app := newTestApplication(t, nil)
	settings := testSettings(t, domain.StoreBackendSQLite)

	svc, err := app.wire(context.Background(), settings, 0)
	require.NoError(t, err)

	assert.NotNil(t, svc.Ingest)
	assert.NotNil(t, svc.Index)
	assert.NotNil(t, svc.Search)
	assert.NotNil(t, svc.Answer)
	assert.NotNil(t, svc.Watcher)
	assert.NoError(t, svc.Close())

	_, err = os.Stat(filepath.Join(settings.Store.DataDir, "knowledge.db"))
	assert.True(t, os.IsNotExist(err), "store must not be opened without NeedStore")
}

func TestWire_SQLiteStore(t *testing.T) {
	app := newTestApplication(t, nil)
	settings := testSettings(t, domain.StoreBackendSQLite)

	svc, err := app.wire(context.Background(), settings, cli.NeedStore)
	require.NoError(t, err)
	defer svc.Close()

	_, err = os.Stat(filepath.Join(settings.Store.DataDir, "knowledge.db"))
	assert.NoError(t, err)
}

func TestWire_IndexAndSearchMemory(t *testing.T) {
	embedder := &keywordEmbedder{}
	app := newTestApplication(t, embedder)
	settings := testSettings(t, domain.StoreBackendMemory)
	path := writeTestChunks(t)

	svc, err := app.wire(context.Background(), settings, cli.NeedStore|cli.NeedAI)
	require.NoError(t, err)

	ctx := context.Background()
	report, err := svc.Index.Index(ctx, []string{path}, domain.IndexModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Added)

	again, err := svc.Index.Index(ctx, []string{path}, domain.IndexModeIncremental)
	require.NoError(t, err)
	assert.Zero(t, again.Added)
	assert.Equal(t, 3, again.Total)

	result := svc.Search.Search(ctx, "How big should my emergency fund be?",
		domain.RetrievalOptions{K: 1, FetchK: 3, Diversity: 0.5})
	require.NoError(t, result.Err)
	require.Len(t, result.Hits, 1)
	assert.Contains(t, result.Hits[0].Text, "emergency fund")
	assert.Equal(t, "Money Basics", result.Hits[0].Citation().Title)

	require.NoError(t, svc.Close())
	assert.True(t, embedder.closed)
}

func TestWire_AnswerWithoutGenerator(t *testing.T) {
	app := newTestApplication(t, &keywordEmbedder{})
	settings := testSettings(t, domain.StoreBackendMemory)

	svc, err := app.wire(context.Background(), settings, cli.NeedStore|cli.NeedAI)
	require.NoError(t, err)
	defer svc.Close()

	greeting, err := svc.Answer.Answer(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, greeting.Greeting)
	assert.NotEmpty(t, greeting.Text)

	_, err = svc.Answer.Answer(context.Background(), "How do I save for retirement?")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestWire_InvalidRouterPattern(t *testing.T) {
	app := newTestApplication(t, nil)
	settings := testSettings(t, domain.StoreBackendMemory)
	settings.Router.AmountPattern = "(["

	_, err := app.wire(context.Background(), settings, cli.NeedStore)
	require.Error(t, err)
}

func TestWire_ChunkOverridesReachPipeline(t *testing.T) {
	app := newTestApplication(t, nil)
	settings := testSettings(t, domain.StoreBackendMemory)
	settings.Chunking = domain.ChunkSettings{Size: 600, Overlap: 50}

	svc, err := app.wire(context.Background(), settings, 0)
	require.NoError(t, err)
	defer svc.Close()

	cfg := svc.Ingest.Pipeline()
	assert.Equal(t, []string{"cleaner", "chunker"}, cfg.Processors)
	assert.Equal(t, 600, cfg.GetProcessorConfig("chunker")["chunk_size"])
	assert.Equal(t, 50, cfg.GetProcessorConfig("chunker")["overlap"])
}
