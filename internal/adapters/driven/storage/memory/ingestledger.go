package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

// Ensure IngestLedger implements the interface.
var _ driven.IngestLedger = (*IngestLedger)(nil)

// IngestLedger is an in-memory implementation of driven.IngestLedger.
type IngestLedger struct {
	mu    sync.RWMutex
	files map[string]domain.IngestedFile
}

// NewIngestLedger creates a new empty in-memory ledger.
func NewIngestLedger() *IngestLedger {
	return &IngestLedger{
		files: make(map[string]domain.IngestedFile),
	}
}

// Get returns the entry for path.
func (l *IngestLedger) Get(_ context.Context, path string) (*domain.IngestedFile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

// Put records or replaces the entry for f.Path.
func (l *IngestLedger) Put(_ context.Context, f domain.IngestedFile) error {
	if f.IngestedAt.IsZero() {
		f.IngestedAt = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[f.Path] = f
	return nil
}

// List returns all entries ordered by path.
func (l *IngestLedger) List(_ context.Context) ([]domain.IngestedFile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.IngestedFile, 0, len(l.files))
	for _, f := range l.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
