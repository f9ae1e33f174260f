package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults/*.txt defaults/README.md
var defaultFS embed.FS

// promptNames lists the prompts a user may override.
var promptNames = []string{
	driven.PromptGroundedRules,
	driven.PromptGreeting,
}

// PromptStore serves the editable parts of the grounded prompt from
// <dir>/<name>.txt. The directory is seeded with the built-in texts on
// first use; a missing, empty or unreadable file falls back to the
// built-in text.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store rooted at dir, or ~/.finlit/prompts
// when dir is empty. No files are touched until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".finlit", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// DefaultPrompt returns the built-in text for name.
func DefaultPrompt(name string) (string, bool) {
	data, err := defaultFS.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// Load returns the prompt text for name. Unknown names wrap domain.ErrNotFound.
func (s *PromptStore) Load(name string) (string, error) {
	def, ok := DefaultPrompt(name)
	if !ok {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		logger.Debug("prompts: %v, using built-in %s", s.seedErr, name)
		return def, nil
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	text := def
	data, err := os.ReadFile(s.path(name))
	switch {
	case err != nil:
		logger.Debug("prompts: %v, using built-in %s", err, name)
	case strings.TrimSpace(string(data)) == "":
		logger.Warn("prompts: %s is empty, using built-in text", s.path(name))
	default:
		text = strings.TrimSpace(string(data))
	}

	s.mu.Lock()
	if existing, ok := s.cache[name]; ok {
		text = existing
	} else {
		s.cache[name] = text
	}
	s.mu.Unlock()
	return text, nil
}

// Reload drops cached prompts so edits are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed writes any missing prompt files and the README. Existing files
// are never overwritten.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	files := make([]string, 0, len(promptNames)+1)
	for _, name := range promptNames {
		files = append(files, name+".txt")
	}
	files = append(files, "README.md")

	for _, file := range files {
		if err := writeIfMissing(filepath.Join(s.dir, file), "defaults/"+file); err != nil {
			s.seedErr = err
			return
		}
	}
}

func writeIfMissing(path, embedded string) error {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	data, err := defaultFS.ReadFile(embedded)
	if err != nil {
		return fmt.Errorf("read built-in %s: %w", embedded, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("seed %s: %w", filepath.Base(path), err)
	}
	return nil
}
