package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteStore persists indexes in SQLite, with sqlite-vec handling the
// nearest-neighbour search.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.RWMutex
	indexes map[string]int // name -> dimension
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &SQLiteStore{db: db, indexes: make(map[string]int)}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	var vecVersion string
	if err := s.db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		return fmt.Errorf("sqlite-vec not loaded: %w", err)
	}
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS vector_indexes (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		metric TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// tableName maps an index name to a safe SQL identifier prefix.
func tableName(index string) string {
	var b strings.Builder
	b.WriteString("idx_")
	for _, r := range index {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// EnsureIndex implements VectorStore.
func (s *SQLiteStore) EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error {
	if err := checkMetric(metric); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int
	err := s.db.QueryRowContext(ctx, "SELECT dimension FROM vector_indexes WHERE name = ?", name).Scan(&existing)
	switch {
	case err == nil:
		if existing != dimension {
			return &DimensionError{Index: name, Want: existing, Got: dimension}
		}
		s.indexes[name] = existing
		return nil
	case err != sql.ErrNoRows:
		return fmt.Errorf("lookup index %s: %w", name, err)
	}

	t := tableName(name)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS "%[1]s_records" (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		result TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE VIRTUAL TABLE IF NOT EXISTS "%[1]s_vectors" USING vec0(
		id TEXT PRIMARY KEY,
		embedding FLOAT[%[2]d] distance_metric=cosine
	);`, t, dimension)
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO vector_indexes (name, dimension, metric) VALUES (?, ?, ?)",
		name, dimension, string(metric)); err != nil {
		return fmt.Errorf("register index %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.indexes[name] = dimension
	return nil
}

func (s *SQLiteStore) dimension(index string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.indexes[index]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}
	return d, nil
}

// Upsert implements VectorStore.
func (s *SQLiteStore) Upsert(ctx context.Context, index string, rec Record) error {
	dim, err := s.dimension(index)
	if err != nil {
		return err
	}
	if len(rec.Vector) != dim {
		return &DimensionError{Index: index, Want: dim, Got: len(rec.Vector)}
	}
	blob, err := sqlite_vec.SerializeFloat32(rec.Vector)
	if err != nil {
		return fmt.Errorf("serialize vector: %w", err)
	}

	t := tableName(index)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO "%s_records" (id, task, result, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET task = excluded.task, result = excluded.result, updated_at = excluded.updated_at
	`, t), rec.ID, rec.Metadata.Task, rec.Metadata.Result, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}

	// vec0 tables have no upsert
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM "%s_vectors" WHERE id = ?`, t), rec.ID); err != nil {
		return fmt.Errorf("replace vector %s: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO "%s_vectors" (id, embedding) VALUES (?, ?)`, t), rec.ID, blob); err != nil {
		return fmt.Errorf("insert vector %s: %w", rec.ID, err)
	}
	return tx.Commit()
}

// Query implements VectorStore.
func (s *SQLiteStore) Query(ctx context.Context, index string, vector []float32, topK int) ([]Match, error) {
	dim, err := s.dimension(index)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, &DimensionError{Index: index, Want: dim, Got: len(vector)}
	}
	if topK <= 0 {
		return nil, nil
	}
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serialize vector: %w", err)
	}

	t := tableName(index)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT v.id, v.distance, r.task, r.result
		FROM "%[1]s_vectors" v
		JOIN "%[1]s_records" r ON v.id = r.id
		WHERE v.embedding MATCH ?
		  AND k = ?
		ORDER BY v.distance
	`, t), blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(&m.ID, &distance, &m.Metadata.Task, &m.Metadata.Result); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		// cosine distance is 1 - similarity
		m.Score = float32(1 - distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortMatches(matches)
	return matches, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
