package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteChunkStore implements ChunkStore over a SQLite database in WAL mode,
// following the same corruption-detection and single-writer pattern as
// SQLiteBM25Index.
type SQLiteChunkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ ChunkStore = (*SQLiteChunkStore)(nil)

// validateChunkStoreIntegrity checks a chunk database for corruption before
// opening it, mirroring validateSQLiteIntegrity for the BM25 index.
func validateChunkStoreIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='chunks'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("table 'chunks' missing")
	}

	return nil
}

// NewSQLiteChunkStore opens (creating if absent) a chunk store at path.
// An empty path opens an in-memory database, for tests.
func NewSQLiteChunkStore(path string) (*SQLiteChunkStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateChunkStoreIntegrity(path); validErr != nil {
			slog.Warn("chunk_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("chunk store corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("chunk_store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, reindex required"))
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteChunkStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteChunkStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id            TEXT PRIMARY KEY,
		text          TEXT NOT NULL,
		vector        BLOB,
		source        TEXT NOT NULL,
		timestamp     INTEGER NOT NULL,
		metadata      TEXT NOT NULL DEFAULT '{}',
		last_accessed INTEGER NOT NULL,
		access_count  INTEGER NOT NULL DEFAULT 0,
		decay_score   REAL NOT NULL DEFAULT 1.0
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_decay ON chunks(decay_score);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

func encodeVector(v []float32) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var v []float32
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// normalizeSource converts a source string to forward-slash form.
func normalizeSource(source string) string {
	return strings.ReplaceAll(filepath.ToSlash(source), `\`, "/")
}

// Add appends chunks atomically, normalizing Source to forward slashes.
func (s *SQLiteChunkStore) Add(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("chunk store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
			(id, text, vector, source, timestamp, metadata, last_accessed, access_count, decay_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		vecBytes, err := encodeVector(c.Vector)
		if err != nil {
			return fmt.Errorf("failed to encode vector for %s: %w", c.ID, err)
		}
		metaBytes, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", c.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Text, vecBytes, normalizeSource(c.Source), c.Timestamp,
			string(metaBytes), c.LastAccessed, c.AccessCount, c.DecayScore,
		); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func scanChunk(row interface {
	Scan(dest ...any) error
}) (*Chunk, error) {
	var c Chunk
	var vecBytes []byte
	var metaStr string

	if err := row.Scan(&c.ID, &c.Text, &vecBytes, &c.Source, &c.Timestamp,
		&metaStr, &c.LastAccessed, &c.AccessCount, &c.DecayScore); err != nil {
		return nil, err
	}

	vec, err := decodeVector(vecBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vector for %s: %w", c.ID, err)
	}
	c.Vector = vec

	if metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", c.ID, err)
		}
	}

	return &c, nil
}

const chunkSelectColumns = `id, text, vector, source, timestamp, metadata, last_accessed, access_count, decay_score`

// Get returns a chunk by ID, or (nil, nil) if absent.
func (s *SQLiteChunkStore) Get(ctx context.Context, id string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+chunkSelectColumns+` FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByIDs batch-retrieves chunks, skipping any ID that doesn't exist.
func (s *SQLiteChunkStore) GetByIDs(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM chunks WHERE id IN (%s)`,
		chunkSelectColumns, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var result []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// FindByPrefix returns the first chunk whose text starts with prefix, ordered
// by ID, or (nil, nil) if none match.
func (s *SQLiteChunkStore) FindByPrefix(ctx context.Context, prefix string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	escaped := strings.NewReplacer("%", "\\%", "_", "\\_").Replace(prefix)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chunkSelectColumns+` FROM chunks WHERE text LIKE ? ESCAPE '\' ORDER BY id LIMIT 1`,
		escaped+"%")
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// All returns every chunk, for decay rescoring and reports.
func (s *SQLiteChunkStore) All(ctx context.Context) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+chunkSelectColumns+` FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var result []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Touch updates last_accessed/access_count for a chunk in place.
func (s *SQLiteChunkStore) Touch(ctx context.Context, id string, lastAccessed int64, accessCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("chunk store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET last_accessed = ?, access_count = ? WHERE id = ?`,
		lastAccessed, accessCount, id)
	return err
}

// SetDecay updates the decay score for a chunk in place.
func (s *SQLiteChunkStore) SetDecay(ctx context.Context, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("chunk store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET decay_score = ? WHERE id = ?`, score, id)
	return err
}

// Count returns the number of chunks.
func (s *SQLiteChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("chunk store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the store, checkpointing WAL first.
func (s *SQLiteChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
