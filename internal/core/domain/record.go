package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// contentHashLen is the number of hex characters kept from the SHA-256 digest.
const contentHashLen = 16

// Well-known metadata keys.
const (
	MetaContentHash = "content_hash"
	MetaTitle       = "title"
	MetaSource      = "source"
	MetaURL         = "url"
	MetaSourceFile  = "source_file"
	MetaDocumentID  = "doc_id"
	MetaChunkIndex  = "chunk_index"
	MetaCreatedAt   = "created_at"
	MetaText        = "text"
	MetaID          = "id"
	MetaNested      = "metadata"
)

// IndexMode selects how the indexer treats existing records.
type IndexMode string

const (
	// IndexModeReset deletes the collection before indexing.
	IndexModeReset IndexMode = "reset"

	// IndexModeIncremental only adds records with unseen content hashes.
	IndexModeIncremental IndexMode = "incremental"
)

// IsValid returns true if the mode is recognised.
func (m IndexMode) IsValid() bool {
	return m == IndexModeReset || m == IndexModeIncremental
}

// IndexedRecord is a chunk as held by the vector store.
// No two records in a collection share a ContentHash.
type IndexedRecord struct {
	// ID is the chunk identifier.
	ID string

	// Text is the embedded content.
	Text string

	// ContentHash is the deduplication key, see ContentHash.
	ContentHash string

	// Metadata is flat: values are strings, numbers, bools or nil.
	Metadata map[string]any

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// ContentHash returns the deduplication key for a chunk text:
// the first 16 hex characters of its SHA-256 digest.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:contentHashLen]
}

// NewIndexedRecord builds a record from a chunk, flattening its fields
// into store metadata and computing the content hash.
func NewIndexedRecord(c Chunk) IndexedRecord {
	raw := make(map[string]any, len(c.Metadata)+7)
	for k, v := range c.Metadata {
		raw[k] = v
	}
	raw[MetaID] = c.ID
	raw[MetaDocumentID] = c.DocumentID
	raw[MetaTitle] = c.Title
	raw[MetaSourceFile] = c.SourceFile
	raw[MetaChunkIndex] = c.Index
	raw[MetaCreatedAt] = c.CreatedAt

	hash := ContentHash(c.Text)
	meta := FlattenMetadata(raw)
	meta[MetaContentHash] = hash

	return IndexedRecord{
		ID:          c.ID,
		Text:        c.Text,
		ContentHash: hash,
		Metadata:    meta,
	}
}

// FlattenMetadata lifts a nested "metadata" object one level, drops the
// text field and converts every non-primitive value to JSON text.
// Nested keys win over top-level keys of the same name.
func FlattenMetadata(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	nested, hasNested := raw[MetaNested].(map[string]any)
	for k, v := range raw {
		if k == MetaText || (hasNested && k == MetaNested) {
			continue
		}
		out[k] = primitive(v)
	}
	for k, v := range nested {
		if k == MetaText {
			continue
		}
		out[k] = primitive(v)
	}
	return out
}

func primitive(v any) any {
	switch t := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
