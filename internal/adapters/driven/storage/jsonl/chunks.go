// Package jsonl stores chunks as JSON Lines files, one chunk record per
// line. Fields it does not know are carried in Chunk.Metadata and
// written back unchanged.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/logger"
)

// Extension is the file extension of chunk files.
const Extension = ".jsonl"

// maxLineSize bounds a single record line.
const maxLineSize = 4 * 1024 * 1024

// Verify interface compliance.
var (
	_ driven.ChunkWriter = (*Store)(nil)
	_ driven.ChunkReader = (*Store)(nil)
)

// Store reads and writes chunk files.
type Store struct{}

// New creates a chunk file store.
func New() *Store {
	return &Store{}
}

// record is the on-disk layout of a chunk.
type record struct {
	ID          string `json:"id"`
	DocumentID  string `json:"doc_id"`
	Title       string `json:"title"`
	SourceFile  string `json:"source_file"`
	ChunkIndex  int    `json:"chunk_index"`
	Text        string `json:"text"`
	CreatedAt   string `json:"created_at"`
	ContentHash string `json:"content_hash,omitempty"`
}

var knownKeys = map[string]bool{
	domain.MetaID:          true,
	domain.MetaDocumentID:  true,
	domain.MetaTitle:       true,
	domain.MetaSourceFile:  true,
	domain.MetaChunkIndex:  true,
	domain.MetaText:        true,
	domain.MetaCreatedAt:   true,
	domain.MetaContentHash: true,
}

// WriteFile replaces path with the given chunks. The file is written to
// a temporary sibling and renamed into place.
func (s *Store) WriteFile(path string, chunks []domain.Chunk) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	for i := range chunks {
		line, err := EncodeChunk(chunks[i])
		if err != nil {
			tmp.Close()
			return fmt.Errorf("encode chunk %d: %w", i, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write chunks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// ReadFile loads the chunks in path. Malformed lines and records without
// text are skipped with a warning and counted. Blank lines are ignored.
func (s *Store) ReadFile(path string) ([]domain.Chunk, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, 0, fmt.Errorf("open chunk file: %w", err)
	}
	defer f.Close()

	return Decode(f, path)
}

// Decode reads chunk records from r. name is used in warnings only.
func Decode(r io.Reader, name string) ([]domain.Chunk, int, error) {
	var chunks []domain.Chunk
	skipped := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		chunk, err := DecodeChunk(line)
		if err != nil {
			logger.Warn("%s:%d: skipping record: %v", name, lineNo, err)
			skipped++
			continue
		}
		chunks = append(chunks, chunk)
	}

	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan %s: %w", name, err)
	}

	return chunks, skipped, nil
}

// DecodeChunk parses one record line.
// Returns domain.ErrInvalidInput for malformed JSON or missing text.
func DecodeChunk(line []byte) (domain.Chunk, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return domain.Chunk{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	text, _ := raw[domain.MetaText].(string)
	if strings.TrimSpace(text) == "" {
		return domain.Chunk{}, fmt.Errorf("%w: missing text", domain.ErrInvalidInput)
	}

	c := domain.Chunk{Text: text}
	c.ID, _ = raw[domain.MetaID].(string)
	c.DocumentID, _ = raw[domain.MetaDocumentID].(string)
	c.Title, _ = raw[domain.MetaTitle].(string)
	c.SourceFile, _ = raw[domain.MetaSourceFile].(string)
	c.CreatedAt, _ = raw[domain.MetaCreatedAt].(string)
	c.ContentHash, _ = raw[domain.MetaContentHash].(string)
	if n, ok := raw[domain.MetaChunkIndex].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			c.Index = int(i)
		}
	}

	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		c.Metadata[k] = v
	}

	return c, nil
}

// EncodeChunk renders a chunk as a single JSON line without the newline.
// Core fields come first in a fixed order, extra metadata follows with
// sorted keys.
func EncodeChunk(c domain.Chunk) ([]byte, error) {
	core, err := json.Marshal(record{
		ID:          c.ID,
		DocumentID:  c.DocumentID,
		Title:       c.Title,
		SourceFile:  c.SourceFile,
		ChunkIndex:  c.Index,
		Text:        c.Text,
		CreatedAt:   c.CreatedAt,
		ContentHash: c.ContentHash,
	})
	if err != nil {
		return nil, err
	}

	extra := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		if !knownKeys[k] {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return core, nil
	}

	rest, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}

	// Splice {"a":..} and {"b":..} into {"a":..,"b":..}.
	out := make([]byte, 0, len(core)+len(rest))
	out = append(out, core[:len(core)-1]...)
	out = append(out, ',')
	out = append(out, rest[1:]...)
	return out, nil
}

// IsChunkFile reports whether path names a chunk file.
func IsChunkFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// ListFiles returns the chunk files directly inside dir, sorted by name.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsChunkFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
