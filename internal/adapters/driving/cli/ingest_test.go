package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finlit/internal/connectors/filesystem"
	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [pdf-dir]", ingestCmd.Use)
}

func TestIngestCmd_Flags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"out", "o", defaultChunkDir},
		{"force", "", "false"},
		{"watch", "w", "false"},
		{"chunk-size", "", "0"},
		{"chunk-overlap", "", "-1"},
		{"ocr-threshold", "", "0"},
		{"no-images", "", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := ingestCmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestIngestCmd_DefaultDirectories(t *testing.T) {
	env := setupTestServices(t)

	_, err := runCommand("ingest")
	require.NoError(t, err)

	assert.Equal(t, []string{"pdfs"}, env.ingest.dirs)
	assert.Equal(t, []string{"data_chunks"}, env.ingest.outDirs)
	assert.Equal(t, NeedStore, env.need)
	assert.False(t, env.ingest.force)
}

func TestIngestCmd_PrintsReport(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.batch = &driving.BatchReport{Files: []driving.IngestReport{
		{SourcePath: "docs/saving.pdf", OutputPath: "out/saving.jsonl", Pages: 4, OCRPages: 1, Chunks: 5},
		{SourcePath: "docs/broken.pdf", Err: errors.New("bad xref")},
		{SourcePath: "docs/budget.pdf", OutputPath: "out/budget.jsonl", Chunks: 2, Unchanged: true},
	}}

	out, err := runCommand("ingest", "docs", "--out", "out")
	require.NoError(t, err)

	assert.Contains(t, out, "processed saving.pdf -> out/saving.jsonl (4 pages, 1 OCR, 5 chunks)")
	assert.Contains(t, out, "FAILED    broken.pdf: bad xref")
	assert.Contains(t, out, "unchanged budget.pdf (2 chunks)")
	assert.Contains(t, out, "Ingested 2 of 3 PDFs, 7 chunks.")
	assert.Equal(t, []string{"docs"}, env.ingest.dirs)
	assert.Equal(t, []string{"out"}, env.ingest.outDirs)
}

func TestIngestCmd_PrintsPipeline(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.pipeline = domain.PipelineConfigFor(domain.DefaultAppSettings().Chunking)

	out, err := runCommand("ingest", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Pipeline: cleaner -> chunker\n")
}

func TestIngestCmd_MissingTools(t *testing.T) {
	t.Run("failed file", func(t *testing.T) {
		env := setupTestServices(t)
		env.ingest.batch = &driving.BatchReport{Files: []driving.IngestReport{
			{SourcePath: "docs/a.pdf", Err: fmt.Errorf("%w: pdfinfo", domain.ErrToolNotFound)},
			{SourcePath: "docs/b.pdf", Err: fmt.Errorf("%w: pdfinfo", domain.ErrToolNotFound)},
		}}

		out, err := runCommand("ingest", "docs")
		require.NoError(t, err)
		assert.Contains(t, out, "FAILED    a.pdf: external tool not found: pdfinfo")
		assert.Equal(t, 1, strings.Count(out, "brew install poppler"))
	})

	t.Run("directory error", func(t *testing.T) {
		env := setupTestServices(t)
		env.ingest.err = fmt.Errorf("%w: pdftotext", domain.ErrToolNotFound)

		out, err := runCommand("ingest", "docs")
		require.ErrorIs(t, err, domain.ErrToolNotFound)
		assert.Contains(t, out, "PDF extraction requires poppler-utils")
	})

	t.Run("other errors print no help", func(t *testing.T) {
		env := setupTestServices(t)
		env.ingest.batch = &driving.BatchReport{Files: []driving.IngestReport{
			{SourcePath: "docs/broken.pdf", Err: errors.New("bad xref")},
		}}

		out, err := runCommand("ingest", "docs")
		require.NoError(t, err)
		assert.NotContains(t, out, "poppler")
	})
}

func TestIngestCmd_NoPDFs(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand("ingest", "empty")
	require.NoError(t, err)
	assert.Contains(t, out, "No PDFs found in empty")
}

func TestIngestCmd_Overrides(t *testing.T) {
	env := setupTestServices(t)

	_, err := runCommand("ingest", "--chunk-size", "800", "--chunk-overlap", "0",
		"--ocr-threshold", "120", "--no-images", "--force")
	require.NoError(t, err)

	require.NotNil(t, env.settings)
	assert.Equal(t, 800, env.settings.Chunking.Size)
	assert.Equal(t, 0, env.settings.Chunking.Overlap)
	assert.Equal(t, 120, env.settings.Extraction.OCRThreshold)
	assert.False(t, env.settings.Extraction.ExtractImages)
	assert.True(t, env.ingest.force)
}

func TestIngestCmd_NoOverridesKeepsSettings(t *testing.T) {
	env := setupTestServices(t)

	_, err := runCommand("ingest")
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Chunking, env.settings.Chunking)
	assert.Equal(t, defaults.Extraction.OCRThreshold, env.settings.Extraction.OCRThreshold)
	assert.Equal(t, defaults.Extraction.ExtractImages, env.settings.Extraction.ExtractImages)
}

func TestIngestCmd_Error(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.err = errors.New("read directory pdfs: no such file or directory")

	_, err := runCommand("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest failed")
	assert.Equal(t, 1, env.closed)
}

func TestIngestCmd_Watch(t *testing.T) {
	env := setupTestServices(t)
	env.watcher.changes = []filesystem.Change{
		{Path: "docs/new.pdf", Type: filesystem.ChangeCreated},
		{Path: "docs/old.pdf", Type: filesystem.ChangeRemoved},
		{Path: "docs/edited.pdf", Type: filesystem.ChangeUpdated},
	}

	out, err := runCommand("ingest", "docs", "--watch")
	require.NoError(t, err)

	assert.Equal(t, "docs", env.watcher.dir)
	assert.Equal(t, []string{"docs/new.pdf", "docs/edited.pdf"}, env.ingest.files)
	assert.Contains(t, out, "Watching docs for new PDFs")
	assert.Contains(t, out, "processed new.pdf")
	assert.Contains(t, out, "removed   old.pdf (chunk file kept)")
	assert.Contains(t, out, "processed edited.pdf")
}

func TestIngestCmd_WatchReportsFileErrors(t *testing.T) {
	env := setupTestServices(t)
	env.watcher.changes = []filesystem.Change{{Path: "docs/new.pdf", Type: filesystem.ChangeCreated}}

	// Succeed for the directory pass, then fail for the watched file.
	env.ingest.batch = &driving.BatchReport{}
	wrapped := wire
	wire = func(ctx context.Context, s *domain.AppSettings, need Need) (*Services, error) {
		svc, err := wrapped(ctx, s, need)
		if err != nil {
			return nil, err
		}
		svc.Ingest = &failingFileIngest{fakeIngest: env.ingest}
		return svc, nil
	}

	out, err := runCommand("ingest", "docs", "-w")
	require.NoError(t, err)
	assert.Contains(t, out, "FAILED    new.pdf: no text")
}

type failingFileIngest struct {
	*fakeIngest
}

func (f *failingFileIngest) IngestFile(context.Context, string, string) (*driving.IngestReport, error) {
	return nil, errors.New("no text")
}

func TestIngestCmd_WatchUnavailable(t *testing.T) {
	env := setupTestServices(t)
	env.noWatcher = true

	_, err := runCommand("ingest", "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching is not available")
}

func TestIngestCmd_WatchError(t *testing.T) {
	env := setupTestServices(t)
	env.watcher.err = errors.New("not a directory")

	_, err := runCommand("ingest", "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch failed")
}
