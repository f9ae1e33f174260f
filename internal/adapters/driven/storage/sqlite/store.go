package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/finlit/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/logger"
	"github.com/custodia-labs/finlit/internal/vector"
)

// dbFile is the database file name inside the data directory.
const dbFile = "knowledge.db"

// Store is a SQLite database holding vector collections and the
// ingest ledger, exposed through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.finlit/data/knowledge.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".finlit", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL lets searches proceed while an index run is writing.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VectorStore returns a VectorStore for the named collection.
// Closing it does not close the Store.
func (s *Store) VectorStore(collection string) driven.VectorStore {
	return &vectorStore{store: s, collection: collection}
}

// IngestLedger returns an IngestLedger backed by this store.
func (s *Store) IngestLedger() driven.IngestLedger {
	return &ingestLedger{store: s}
}

// migrate applies each pending migration in its own transaction.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var applied int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	pending, err := migrations.Pending(applied)
	if err != nil {
		return err
	}
	for _, m := range pending {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.Name, err)
		}
		logger.Debug("sqlite: applied migration %s", m.Name)
	}
	return nil
}

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore over the records table.
type vectorStore struct {
	store      *Store
	collection string
}

var _ driven.VectorStore = (*vectorStore)(nil)

// InsertIfAbsent inserts records in one transaction. The unique
// (collection, content_hash) constraint makes the check-and-insert atomic.
func (s *vectorStore) InsertIfAbsent(ctx context.Context, records []domain.IndexedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (collection, id, content_hash, text, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, content_hash) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshalling metadata: %w", err)
		}

		res, err := stmt.ExecContext(ctx, s.collection, r.ID, r.ContentHash, r.Text,
			string(metadataJSON), float32SliceToBytes(r.Embedding))
		if err != nil {
			return 0, fmt.Errorf("inserting record: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reading rows affected: %w", err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return added, nil
}

// ScanMetadata returns the metadata of every record in the collection.
func (s *vectorStore) ScanMetadata(ctx context.Context) ([]map[string]any, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT metadata FROM records WHERE collection = ? ORDER BY rowid`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying metadata: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var metadataJSON string
		if err := rows.Scan(&metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		meta, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

// Search ranks every record in the collection by cosine similarity.
func (s *vectorStore) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, content_hash, text, metadata, embedding
		FROM records WHERE collection = ? ORDER BY rowid
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.IndexedRecord
	var embeddings [][]float32
	for rows.Next() {
		var r domain.IndexedRecord
		var metadataJSON string
		var embeddingBlob []byte
		if err := rows.Scan(&r.ID, &r.ContentHash, &r.Text, &metadataJSON, &embeddingBlob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if r.Metadata, err = decodeMetadata(metadataJSON); err != nil {
			return nil, err
		}
		r.Embedding = bytesToFloat32Slice(embeddingBlob)
		records = append(records, r)
		embeddings = append(embeddings, r.Embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	ranked := vector.TopK(query, embeddings, k)
	hits := make([]driven.VectorHit, len(ranked))
	for i, sc := range ranked {
		hits[i] = driven.VectorHit{Record: records[sc.Index], Similarity: sc.Similarity}
	}
	return hits, nil
}

// DeleteCollection removes every record in the collection.
func (s *vectorStore) DeleteCollection(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("deleting collection %s: %w", s.collection, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (s *vectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store holds the connection.
func (s *vectorStore) Close() error {
	return nil
}

func decodeMetadata(data string) (map[string]any, error) {
	meta := make(map[string]any)
	if data == "" || data == "null" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return meta, nil
}

// ==================== Ingest Ledger ====================

// ingestLedger implements driven.IngestLedger.
type ingestLedger struct {
	store *Store
}

var _ driven.IngestLedger = (*ingestLedger)(nil)

// Get returns the entry for path.
func (l *ingestLedger) Get(ctx context.Context, path string) (*domain.IngestedFile, error) {
	row := l.store.db.QueryRowContext(ctx, `
		SELECT path, output_path, chunks, mod_time, size, ingested_at
		FROM ingested_files WHERE path = ?
	`, path)

	f, err := scanIngestedFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting ingested file: %w", err)
	}
	return f, nil
}

// Put records or replaces the entry for f.Path.
func (l *ingestLedger) Put(ctx context.Context, f domain.IngestedFile) error {
	if f.IngestedAt.IsZero() {
		f.IngestedAt = time.Now().UTC()
	}

	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO ingested_files (path, output_path, chunks, mod_time, size, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			output_path = excluded.output_path,
			chunks = excluded.chunks,
			mod_time = excluded.mod_time,
			size = excluded.size,
			ingested_at = excluded.ingested_at
	`, f.Path, f.OutputPath, f.Chunks, f.ModTime.UTC(), f.Size, f.IngestedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving ingested file: %w", err)
	}
	return nil
}

// List returns all entries ordered by path.
func (l *ingestLedger) List(ctx context.Context) ([]domain.IngestedFile, error) {
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT path, output_path, chunks, mod_time, size, ingested_at
		FROM ingested_files ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("listing ingested files: %w", err)
	}
	defer rows.Close()

	var out []domain.IngestedFile
	for rows.Next() {
		f, err := scanIngestedFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ingested file: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngestedFile(row rowScanner) (*domain.IngestedFile, error) {
	var f domain.IngestedFile
	if err := row.Scan(&f.Path, &f.OutputPath, &f.Chunks, &f.ModTime, &f.Size, &f.IngestedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// ==================== Helpers ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
