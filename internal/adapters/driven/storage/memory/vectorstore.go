package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/vector"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore
// holding a single collection. Search is brute-force cosine similarity.
type VectorStore struct {
	mu      sync.RWMutex
	records []domain.IndexedRecord
	hashes  map[string]struct{}
}

// NewVectorStore creates a new empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		hashes: make(map[string]struct{}),
	}
}

// InsertIfAbsent adds records whose content hash is not yet present.
func (s *VectorStore) InsertIfAbsent(_ context.Context, records []domain.IndexedRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, r := range records {
		if _, ok := s.hashes[r.ContentHash]; ok {
			continue
		}
		s.hashes[r.ContentHash] = struct{}{}
		s.records = append(s.records, cloneRecord(r))
		added++
	}
	return added, nil
}

// ScanMetadata returns a copy of every record's metadata.
func (s *VectorStore) ScanMetadata(_ context.Context) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, len(s.records))
	for i, r := range s.records {
		out[i] = maps.Clone(r.Metadata)
	}
	return out, nil
}

// Search returns the k records most similar to query.
func (s *VectorStore) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	embeddings := make([][]float32, len(s.records))
	for i, r := range s.records {
		embeddings[i] = r.Embedding
	}

	ranked := vector.TopK(query, embeddings, k)
	hits := make([]driven.VectorHit, len(ranked))
	for i, sc := range ranked {
		hits[i] = driven.VectorHit{
			Record:     cloneRecord(s.records[sc.Index]),
			Similarity: sc.Similarity,
		}
	}
	return hits, nil
}

// DeleteCollection removes all records.
func (s *VectorStore) DeleteCollection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.hashes = make(map[string]struct{})
	return nil
}

// Count returns the number of records.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for the in-memory store.
func (s *VectorStore) Close() error {
	return nil
}

func cloneRecord(r domain.IndexedRecord) domain.IndexedRecord {
	r.Metadata = maps.Clone(r.Metadata)
	if r.Embedding != nil {
		r.Embedding = append([]float32(nil), r.Embedding...)
	}
	return r
}
