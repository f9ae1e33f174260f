package driving

import (
	"context"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// IngestReport describes one ingested PDF.
type IngestReport struct {
	// SourcePath is the PDF that was read.
	SourcePath string

	// OutputPath is the chunk file written. Empty on failure.
	OutputPath string

	// Pages is the number of pages extracted.
	Pages int

	// OCRPages is the number of pages read with full-page OCR.
	OCRPages int

	// Chunks is the number of chunks written.
	Chunks int

	// Unchanged is true when the PDF was skipped because the same
	// version was already ingested.
	Unchanged bool

	// Err is set when the file could not be ingested.
	Err error
}

// BatchReport summarises a directory ingestion.
type BatchReport struct {
	Files []IngestReport
}

// Succeeded returns the number of files ingested without error.
func (b *BatchReport) Succeeded() int {
	n := 0
	for _, f := range b.Files {
		if f.Err == nil {
			n++
		}
	}
	return n
}

// Chunks returns the total number of chunks written.
func (b *BatchReport) Chunks() int {
	n := 0
	for _, f := range b.Files {
		n += f.Chunks
	}
	return n
}

// CleanReport describes one re-cleaned chunk file.
type CleanReport struct {
	Path    string
	Total   int
	Kept    int
	Skipped int
}

// IngestService turns PDFs into chunk files.
type IngestService interface {
	// IngestFile extracts, cleans and chunks one PDF into outDir.
	IngestFile(ctx context.Context, path, outDir string) (*IngestReport, error)

	// IngestDir ingests every PDF in dir, continuing past failed files.
	IngestDir(ctx context.Context, dir, outDir string) (*BatchReport, error)

	// CleanChunks re-cleans the chunk files in inDir into outDir,
	// dropping chunks left without usable text.
	CleanChunks(ctx context.Context, inDir, outDir string) ([]CleanReport, error)

	// Pipeline returns the pipeline configuration in use.
	Pipeline() domain.PipelineConfig

	// SetForce makes later runs re-ingest PDFs that are unchanged
	// since they were last ingested.
	SetForce(force bool)
}
