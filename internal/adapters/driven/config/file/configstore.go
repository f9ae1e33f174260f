package file

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

const configHeader = "# finlit settings. Edit here or with 'finlit config set <key> <value>'.\n\n"

// ConfigStore keeps settings in config.toml. Keys are addressed in dot
// notation ("retrieval.k") and written back as nested tables. Every
// Set and Delete rewrites the file.
type ConfigStore struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// NewConfigStore opens <configDir>/config.toml, or ~/.finlit/config.toml
// when configDir is empty. A missing file is an empty configuration; an
// unparsable one wraps domain.ErrConfiguration.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".finlit")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		path: filepath.Join(configDir, "config.toml"),
		data: make(map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

func (s *ConfigStore) GetString(key string) string {
	val, _ := s.Get(key)
	str, _ := val.(string)
	return str
}

func (s *ConfigStore) GetBool(key string) bool {
	val, _ := s.Get(key)
	b, _ := val.(bool)
	return b
}

// GetInt reads TOML integers. A float such as "size = 1500.0" is not an int.
func (s *ConfigStore) GetInt(key string) int {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// GetFloat accepts integers so "diversity = 1" reads as 1.0.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// GetStringSlice reads a TOML array, skipping non-string elements.
func (s *ConfigStore) GetStringSlice(key string) []string {
	val, _ := s.Get(key)
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Keys returns the keys under prefix, sorted. An empty prefix returns every key.
func (s *ConfigStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := slices.Sorted(maps.Keys(s.data))
	if prefix == "" {
		return keys
	}
	return slices.DeleteFunc(keys, func(k string) bool {
		return !strings.HasPrefix(k, prefix+".")
	})
}

// Set stores value and rewrites the file. On a write failure the
// previous value is restored.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, had := s.data[key]
	s.data[key] = value
	if err := s.save(); err != nil {
		if had {
			s.data[key] = old
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *ConfigStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes a temporary file and renames it over config.toml so a
// crash never leaves a truncated file. Caller holds the lock.
func (s *ConfigStore) save() error {
	body, err := toml.Marshal(unflattenMap(s.data))
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(s.path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append([]byte(configHeader), body...)); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load replaces the in-memory values with the file contents. On error
// the current values are kept.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.data = make(map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var tree map[string]any
	if err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&tree); err != nil {
		return fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, s.path, err)
	}
	s.data = flattenMap(tree, "")
	return nil
}

func (s *ConfigStore) Path() string {
	return s.path
}

// flattenMap turns {"a": {"b": 1}} into {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	for key, value := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			maps.Copy(out, flattenMap(nested, full))
			continue
		}
		out[full] = value
	}
	return out
}

// unflattenMap is the inverse of flattenMap. A key that is both a value
// and a table prefix keeps the value under its full dotted name.
func unflattenMap(m map[string]any) map[string]any {
	out := make(map[string]any)
	for _, key := range slices.Sorted(maps.Keys(m)) {
		parts := strings.Split(key, ".")
		node, ok := out, true
		for _, part := range parts[:len(parts)-1] {
			child, exists := node[part]
			if !exists {
				next := make(map[string]any)
				node[part] = next
				node = next
				continue
			}
			if node, ok = child.(map[string]any); !ok {
				break
			}
		}
		leaf := parts[len(parts)-1]
		if !ok {
			out[key] = m[key]
			continue
		}
		if _, taken := node[leaf]; taken {
			out[key] = m[key]
			continue
		}
		node[leaf] = m[key]
	}
	return out
}
