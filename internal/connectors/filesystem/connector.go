// Package filesystem finds PDFs in local directories and watches them
// for new or updated files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/logger"
)

// Verify interface compliance.
var _ driven.PDFSource = (*Connector)(nil)

// DefaultSettleDelay is how long a file must stay quiet before a change
// is reported. PDFs are often written in several steps.
const DefaultSettleDelay = 500 * time.Millisecond

// ErrClosed is returned when watching through a closed connector.
var ErrClosed = errors.New("filesystem connector is closed")

// ChangeType is the kind of change seen on a watched PDF.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeRemoved ChangeType = "removed"
)

// Change is a settled change to one PDF.
type Change struct {
	Path string
	Type ChangeType
}

// Connector lists and watches PDFs on the local filesystem.
type Connector struct {
	settle time.Duration

	mu       sync.Mutex
	watchers []*fsnotify.Watcher
	closed   bool
}

// Option configures a Connector.
type Option func(*Connector)

// WithSettleDelay sets how long a file must stay quiet before its change is reported.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.settle = d
		}
	}
}

// New creates a filesystem connector.
func New(opts ...Option) *Connector {
	c := &Connector{settle: DefaultSettleDelay}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsPDF reports whether path has a .pdf extension, in any case.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// List returns the PDFs directly inside dir, sorted by path.
func (c *Connector) List(ctx context.Context, dir string) ([]domain.PDFFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []domain.PDFFile
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || isHidden(e.Name()) || !IsPDF(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			logger.Warn("skipping %s: %v", e.Name(), err)
			continue
		}
		files = append(files, domain.PDFFile{
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	slices.SortFunc(files, func(a, b domain.PDFFile) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files, nil
}

// Stat describes a single PDF.
func (c *Connector) Stat(path string) (domain.PDFFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.PDFFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.PDFFile{}, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	return domain.PDFFile{Path: path, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Watch reports settled changes to PDFs directly inside dir. The channel
// is closed when ctx is cancelled or the connector is closed.
func (c *Connector) Watch(ctx context.Context, dir string) (<-chan Change, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	c.watchers = append(c.watchers, w)

	out := make(chan Change)
	go c.run(ctx, w, out)
	return out, nil
}

func (c *Connector) run(ctx context.Context, w *fsnotify.Watcher, out chan<- Change) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(c.settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			change := handleFsEvent(event)
			if change == nil {
				continue
			}
			pending[change.Path] = merge(pending[change.Path], change.Type)
			timer.Reset(c.settle)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			for _, p := range paths {
				select {
				case out <- Change{Path: p, Type: pending[p]}:
				case <-ctx.Done():
					return
				}
			}
			clear(pending)
		}
	}
}

// merge folds a new event into the change already pending for a path.
// A file created and then written is still reported as created.
func merge(prev, next ChangeType) ChangeType {
	if prev == ChangeCreated && next == ChangeUpdated {
		return ChangeCreated
	}
	return next
}

// handleFsEvent maps a raw event to a PDF change, or nil when the
// event is not about a visible PDF file.
func handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(event.Name) || !IsPDF(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Path: event.Name, Type: ChangeRemoved}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		if event.Has(fsnotify.Create) {
			return &Change{Path: event.Name, Type: ChangeCreated}
		}
		return &Change{Path: event.Name, Type: ChangeUpdated}
	default:
		return nil
	}
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// Close stops every active watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, w := range c.watchers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.watchers = nil
	return errors.Join(errs...)
}
