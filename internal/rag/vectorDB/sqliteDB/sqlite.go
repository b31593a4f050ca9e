// Package sqliteDB keeps collections in a single SQLite file under the
// persist directory and answers nearest-neighbour queries by scanning.
package sqliteDB

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

	_ "modernc.org/sqlite"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/domain/commonModels"
	"github.com/akolanti/kbbot/internal/rag/vectorDB"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

const dbFileName = "kbbot.db"

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name            TEXT PRIMARY KEY,
	dimension       INTEGER NOT NULL,
	embedding_model TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	id         TEXT NOT NULL,
	text       TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);`

type Store struct {
	db     *sql.DB
	path   string
	logger *logger_i.Logger
}

func NewStore(persistDir string) (*Store, error) {
	if persistDir == "" {
		persistDir = config.DefaultPersistDir
	}
	if err := os.MkdirAll(persistDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating persist directory: %w", err)
	}

	dbPath := filepath.Join(persistDir, dbFileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection keeps upserts from one run ordered
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log := logger_i.NewLogger("sqlite_vector_store")
	log.Info("vector store opened", "path", dbPath)
	return &Store{db: db, path: dbPath, logger: log}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureCollection(ctx context.Context, spec commonModels.CollectionSpec) (commonModels.CollectionSpec, error) {
	if spec.Name == "" {
		return commonModels.CollectionSpec{}, errors.New("empty collection name")
	}

	existing, err := s.GetCollection(ctx, spec.Name)
	if err == nil {
		if err := vectorDB.CheckModel(existing, spec.EmbeddingModel, spec.Dimension); err != nil {
			return existing, err
		}
		return existing, nil
	}
	if !errors.Is(err, vectorDB.ErrCollectionNotFound) {
		return commonModels.CollectionSpec{}, err
	}

	if spec.CreatedAt.IsZero() {
		spec.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, embedding_model, created_at) VALUES (?, ?, ?, ?)`,
		spec.Name, spec.Dimension, spec.EmbeddingModel, spec.CreatedAt.Unix())
	if err != nil {
		return commonModels.CollectionSpec{}, fmt.Errorf("creating collection %q: %w", spec.Name, err)
	}
	s.logger.Info("collection created", "collection", spec.Name, "dimension", spec.Dimension, "model", spec.EmbeddingModel)
	spec.CreatedAt = time.Unix(spec.CreatedAt.Unix(), 0).UTC()
	return spec, nil
}

func (s *Store) GetCollection(ctx context.Context, name string) (commonModels.CollectionSpec, error) {
	var spec commonModels.CollectionSpec
	var created int64
	row := s.db.QueryRowContext(ctx,
		`SELECT name, dimension, embedding_model, created_at FROM collections WHERE name = ?`, name)
	if err := row.Scan(&spec.Name, &spec.Dimension, &spec.EmbeddingModel, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return commonModels.CollectionSpec{}, fmt.Errorf("%q: %w", name, vectorDB.ErrCollectionNotFound)
		}
		return commonModels.CollectionSpec{}, fmt.Errorf("reading collection %q: %w", name, err)
	}
	spec.CreatedAt = time.Unix(created, 0).UTC()
	return spec, nil
}

func (s *Store) Upsert(ctx context.Context, collection string, entries []commonModels.CollectionEntry) error {
	spec, err := s.GetCollection(ctx, collection)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (collection, id, text, metadata, embedding) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			text = excluded.text,
			metadata = excluded.metadata,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.Id == "" {
			return errors.New("entry without id")
		}
		if spec.Dimension > 0 && len(e.Embedding) != spec.Dimension {
			return fmt.Errorf("entry %s has %d values, collection %d: %w", e.Id, len(e.Embedding), spec.Dimension, vectorDB.ErrDimensionMismatch)
		}
		meta, err := marshalMetadata(e.Metadata)
		if err != nil {
			return fmt.Errorf("entry %s metadata: %w", e.Id, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, e.Id, e.Text, meta, encodeEmbedding(e.Embedding)); err != nil {
			return fmt.Errorf("upserting entry %s: %w", e.Id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int) (commonModels.QueryResult, error) {
	if _, err := s.GetCollection(ctx, collection); err != nil {
		return commonModels.QueryResult{}, err
	}
	if k <= 0 {
		return commonModels.QueryResult{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, metadata, embedding FROM entries WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return commonModels.QueryResult{}, fmt.Errorf("scanning collection %q: %w", collection, err)
	}
	defer rows.Close()

	var entries []commonModels.CollectionEntry
	var candidates [][]float32
	for rows.Next() {
		var e commonModels.CollectionEntry
		var meta string
		var blob []byte
		if err := rows.Scan(&e.Id, &e.Text, &meta, &blob); err != nil {
			return commonModels.QueryResult{}, fmt.Errorf("reading entry: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return commonModels.QueryResult{}, fmt.Errorf("entry %s metadata: %w", e.Id, err)
		}
		e.Embedding = decodeEmbedding(blob)
		entries = append(entries, e)
		candidates = append(candidates, e.Embedding)
	}
	if err := rows.Err(); err != nil {
		return commonModels.QueryResult{}, err
	}

	ranked, err := vectorDB.TopK(vector, candidates, k)
	if err != nil {
		return commonModels.QueryResult{}, err
	}

	result := commonModels.QueryResult{Matches: make([]commonModels.QueryMatch, 0, len(ranked))}
	for _, r := range ranked {
		result.Matches = append(result.Matches, commonModels.QueryMatch{Entry: entries[r.Index], Distance: r.Distance})
	}
	return result, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.GetCollection(ctx, collection); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", collection, err)
	}
	return n, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
