package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
	"github.com/custodia-labs/finlit/internal/logger"
	"github.com/custodia-labs/finlit/internal/postprocessors/cleaner"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// chunkFileExt is the extension of the chunk files written per PDF.
const chunkFileExt = ".jsonl"

// IngestService turns PDFs into chunk files.
type IngestService struct {
	extractor driven.Extractor
	pipeline  driven.PostProcessorPipeline
	config    domain.PipelineConfig
	files     driven.ChunkFiles
	source    driven.PDFSource
	ledger    driven.IngestLedger

	force bool
	now   func() time.Time
}

// NewIngestService creates an ingest service. The ledger is optional:
// without it every PDF is processed on every run.
func NewIngestService(
	extractor driven.Extractor,
	pipeline driven.PostProcessorPipeline,
	config domain.PipelineConfig,
	files driven.ChunkFiles,
	source driven.PDFSource,
	ledger driven.IngestLedger,
) *IngestService {
	return &IngestService{
		extractor: extractor,
		pipeline:  pipeline,
		config:    config,
		files:     files,
		source:    source,
		ledger:    ledger,
		now:       time.Now,
	}
}

// SetForce makes the service re-ingest PDFs the ledger reports unchanged.
func (s *IngestService) SetForce(force bool) {
	s.force = force
}

// Pipeline returns the pipeline configuration in use.
func (s *IngestService) Pipeline() domain.PipelineConfig {
	return s.config
}

// IngestFile extracts, cleans and chunks one PDF into outDir as
// <stem>.jsonl. A PDF with no text left after cleaning fails with
// domain.ErrExtraction.
func (s *IngestService) IngestFile(ctx context.Context, path, outDir string) (*driving.IngestReport, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s is not a PDF", domain.ErrInvalidInput, path)
	}
	file, err := s.source.Stat(path)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, file, outDir)
}

// IngestDir ingests every PDF in dir, in name order. A failed file is
// recorded in the report and the remaining files are still processed.
func (s *IngestService) IngestDir(ctx context.Context, dir, outDir string) (*driving.BatchReport, error) {
	files, err := s.source.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	logger.Section("Ingesting " + dir)
	logger.Info("found %d PDFs", len(files))
	batch := &driving.BatchReport{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		report, err := s.ingest(ctx, file, outDir)
		if err != nil {
			logger.Warn("%s: %v", filepath.Base(file.Path), err)
			report = &driving.IngestReport{SourcePath: file.Path, Err: err}
		}
		batch.Files = append(batch.Files, *report)
	}
	return batch, nil
}

func (s *IngestService) ingest(ctx context.Context, file domain.PDFFile, outDir string) (*driving.IngestReport, error) {
	outPath := chunkFilePath(outDir, file.Path)

	if prev := s.previous(ctx, file); prev != nil {
		logger.Debug("%s unchanged since %s, skipping", file.Path, prev.IngestedAt.Format(time.RFC3339))
		return &driving.IngestReport{
			SourcePath: file.Path,
			OutputPath: prev.OutputPath,
			Chunks:     prev.Chunks,
			Unchanged:  true,
		}, nil
	}

	done := logger.Timed("ingest " + filepath.Base(file.Path))
	defer done()

	pages, err := s.extractor.Extract(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", file.Path, err)
	}

	doc := &domain.Document{
		ID:         uuid.NewString(),
		Title:      domain.TitleFromPath(file.Path),
		SourcePath: file.Path,
		Pages:      pages,
		CreatedAt:  s.now(),
	}
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", file.Path, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text left after cleaning %s", domain.ErrExtraction, file.Path)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := s.files.WriteFile(outPath, chunks); err != nil {
		return nil, err
	}

	report := &driving.IngestReport{
		SourcePath: file.Path,
		OutputPath: outPath,
		Pages:      len(pages),
		Chunks:     len(chunks),
	}
	for _, p := range pages {
		if p.OCR {
			report.OCRPages++
		}
	}
	logger.Info("%s: %d pages (%d OCR), %d chunks", filepath.Base(file.Path), report.Pages, report.OCRPages, report.Chunks)

	if s.ledger != nil {
		entry := domain.IngestedFile{
			Path:       file.Path,
			OutputPath: outPath,
			Chunks:     len(chunks),
			ModTime:    file.ModTime,
			Size:       file.Size,
			IngestedAt: s.now(),
		}
		if err := s.ledger.Put(ctx, entry); err != nil {
			logger.Warn("failed to record %s in ingest ledger: %v", file.Path, err)
		}
	}
	return report, nil
}

// previous returns the ledger entry for file when the same version was
// already ingested and its chunk file still exists.
func (s *IngestService) previous(ctx context.Context, file domain.PDFFile) *domain.IngestedFile {
	if s.ledger == nil || s.force {
		return nil
	}
	entry, err := s.ledger.Get(ctx, file.Path)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("ingest ledger lookup for %s: %v", file.Path, err)
		}
		return nil
	}
	if !entry.Unchanged(file.ModTime, file.Size) {
		return nil
	}
	if _, err := os.Stat(entry.OutputPath); err != nil {
		return nil
	}
	return entry
}

// CleanChunks re-cleans every chunk file in inDir and writes the chunks
// that still have text to a file of the same name in outDir.
func (s *IngestService) CleanChunks(ctx context.Context, inDir, outDir string) ([]driving.CleanReport, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", inDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	logger.Section("Cleaning " + inDir)
	var reports []driving.CleanReport
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), chunkFileExt) {
			continue
		}

		inPath := filepath.Join(inDir, e.Name())
		chunks, skipped, err := s.files.ReadFile(inPath)
		if err != nil {
			return reports, err
		}

		kept := make([]domain.Chunk, 0, len(chunks))
		for _, c := range chunks {
			c.Text = cleaner.Clean(c.Text)
			if c.Text == "" {
				continue
			}
			kept = append(kept, c)
		}

		outPath := filepath.Join(outDir, e.Name())
		if err := s.files.WriteFile(outPath, kept); err != nil {
			return reports, err
		}

		report := driving.CleanReport{
			Path:    outPath,
			Total:   len(chunks) + skipped,
			Kept:    len(kept),
			Skipped: skipped,
		}
		logger.Info("%s: kept %d of %d chunks", e.Name(), report.Kept, report.Total)
		reports = append(reports, report)
	}
	return reports, nil
}

func chunkFilePath(outDir, pdfPath string) string {
	base := filepath.Base(pdfPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+chunkFileExt)
}
