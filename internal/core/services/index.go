package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
	"github.com/custodia-labs/finlit/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// DefaultBatchSize is the number of texts embedded per request.
const DefaultBatchSize = 32

// IndexService loads chunk files into the vector store.
type IndexService struct {
	// mu serialises the scan-then-insert sequence of concurrent runs.
	mu sync.Mutex

	store     driven.VectorStore
	embedder  driven.EmbeddingService
	reader    driven.ChunkReader
	batchSize int
}

// NewIndexService creates an index service. A batchSize of zero or
// less uses DefaultBatchSize.
func NewIndexService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	reader driven.ChunkReader,
	batchSize int,
) *IndexService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IndexService{
		store:     store,
		embedder:  embedder,
		reader:    reader,
		batchSize: batchSize,
	}
}

// Index loads the given chunk files. Reset mode rebuilds the collection;
// incremental mode only adds content whose hash is not yet stored.
// Running incremental mode twice over the same files adds nothing the
// second time.
func (s *IndexService) Index(ctx context.Context, paths []string, mode domain.IndexMode) (*driving.IndexReport, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown index mode %q", domain.ErrInvalidInput, mode)
	}
	if s.store == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Indexing")
	report := &driving.IndexReport{Mode: mode}

	var records []domain.IndexedRecord
	for _, path := range paths {
		chunks, skipped, err := s.reader.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if skipped > 0 {
			logger.Warn("%s: skipped %d unusable records", path, skipped)
		}
		report.Files = append(report.Files, driving.FileLoad{Path: path, Loaded: len(chunks), Skipped: skipped})
		for _, c := range chunks {
			records = append(records, domain.NewIndexedRecord(c))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := map[string]bool{}
	switch mode {
	case domain.IndexModeReset:
		if err := s.store.DeleteCollection(ctx); err != nil {
			return nil, fmt.Errorf("reset collection: %w", err)
		}
	case domain.IndexModeIncremental:
		metas, err := s.store.ScanMetadata(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan existing records: %w", err)
		}
		for _, m := range metas {
			if h, ok := m[domain.MetaContentHash].(string); ok {
				existing[h] = true
			}
		}
	}

	candidates := novel(records, existing)
	report.Candidates = len(candidates)
	logger.Info("%d records loaded, %d to index", len(records), len(candidates))

	for start := 0; start < len(candidates); start += s.batchSize {
		end := min(start+s.batchSize, len(candidates))
		added, err := s.embedAndInsert(ctx, candidates[start:end])
		report.Added += added
		if err != nil {
			return report, err
		}
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return report, fmt.Errorf("count records: %w", err)
	}
	report.Total = total

	logger.Info("indexed %d new records, collection holds %d", report.Added, report.Total)
	return report, nil
}

func (s *IndexService) embedAndInsert(ctx context.Context, batch []domain.IndexedRecord) (int, error) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Text
	}

	done := logger.Timed(fmt.Sprintf("embed batch of %d", len(batch)))
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	done()
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vectors), len(batch))
	}
	for i := range batch {
		batch[i].Embedding = vectors[i]
	}

	added, err := s.store.InsertIfAbsent(ctx, batch)
	if err != nil {
		return added, fmt.Errorf("insert records: %w", err)
	}
	return added, nil
}

// novel returns the records whose hash is neither in existing nor
// repeated earlier in records.
func novel(records []domain.IndexedRecord, existing map[string]bool) []domain.IndexedRecord {
	seen := make(map[string]bool, len(existing)+len(records))
	for h := range existing {
		seen[h] = true
	}
	out := make([]domain.IndexedRecord, 0, len(records))
	for _, r := range records {
		if seen[r.ContentHash] {
			continue
		}
		seen[r.ContentHash] = true
		out = append(out, r)
	}
	return out
}
