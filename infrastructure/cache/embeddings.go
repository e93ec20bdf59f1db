package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/engagekit/verity/internal/ports"
)

// EmbeddingCache is a SQLite-backed store for embedding vectors keyed by
// content hash and model. Verification workloads re-embed the same
// reference content for every response, so hits here remove the bulk of
// embedding traffic.
type EmbeddingCache struct {
	db         *sql.DB
	maxEntries int
}

// NewEmbeddingCache opens (or creates) an embedding cache at dbPath.
// maxEntries bounds the table size; least recently used rows are evicted
// past it.
func NewEmbeddingCache(dbPath string, maxEntries int) (*EmbeddingCache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be positive, got %d", maxEntries)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			content_hash TEXT NOT NULL,
			model        TEXT NOT NULL,
			vector       BLOB NOT NULL,
			created_at   INTEGER NOT NULL,
			accessed_at  INTEGER NOT NULL,
			PRIMARY KEY (content_hash, model)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_embeddings_accessed ON embeddings(accessed_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &EmbeddingCache{db: db, maxEntries: maxEntries}, nil
}

// ContentHash returns the SHA-256 hex digest used as the cache key for a
// text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a cached vector. A miss returns (nil, nil).
func (c *EmbeddingCache) Get(ctx context.Context, contentHash, model string) ([]float32, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE content_hash = ? AND model = ?`,
		contentHash, model,
	)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get embedding: %w", err)
	}

	_, _ = c.db.ExecContext(ctx,
		`UPDATE embeddings SET accessed_at = ? WHERE content_hash = ? AND model = ?`,
		time.Now().UnixNano(), contentHash, model,
	)

	return blobToVector(blob)
}

// Put stores a vector, replacing any previous value, then evicts if the
// table is over the entry limit.
func (c *EmbeddingCache) Put(ctx context.Context, contentHash, model string, vector []float32) error {
	now := time.Now().UnixNano()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO embeddings(content_hash, model, vector, created_at, accessed_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash, model) DO UPDATE SET vector=excluded.vector, accessed_at=excluded.accessed_at`,
		contentHash, model, vectorToBlob(vector), now, now,
	)
	if err != nil {
		return fmt.Errorf("put embedding: %w", err)
	}
	return c.evictIfNeeded(ctx)
}

// Len reports the number of cached vectors.
func (c *EmbeddingCache) Len(ctx context.Context) (int, error) {
	row := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (c *EmbeddingCache) Close() error { return c.db.Close() }

func (c *EmbeddingCache) evictIfNeeded(ctx context.Context) error {
	count, err := c.Len(ctx)
	if err != nil {
		return err
	}
	if count <= c.maxEntries {
		return nil
	}

	_, err = c.db.ExecContext(ctx, `
		DELETE FROM embeddings WHERE (content_hash, model) IN (
			SELECT content_hash, model FROM embeddings
			ORDER BY accessed_at ASC LIMIT ?
		)`, count-c.maxEntries)
	if err != nil {
		return fmt.Errorf("evict embeddings: %w", err)
	}
	return nil
}

func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[4*i:], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob: %d bytes", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vector, nil
}

// CachingEmbedder wraps an embedder with the persistent cache: only
// texts missing from the cache reach the upstream provider.
type CachingEmbedder struct {
	next  ports.Embedder
	cache *EmbeddingCache
}

// NewCachingEmbedder wraps next with cache.
func NewCachingEmbedder(next ports.Embedder, cache *EmbeddingCache) *CachingEmbedder {
	return &CachingEmbedder{next: next, cache: cache}
}

// Encode serves cached vectors where possible and batches the remaining
// texts into one upstream call. Cache failures degrade to a full
// upstream call rather than failing the request.
func (e *CachingEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := e.next.Model()
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		cached, err := e.cache.Get(ctx, ContentHash(text), model)
		if err != nil || cached == nil {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
			continue
		}
		vectors[i] = cached
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := e.next.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missing))
	}

	for j, vector := range fresh {
		vectors[missingIdx[j]] = vector
		// Best effort: a failed write just means a future miss.
		_ = e.cache.Put(ctx, ContentHash(missing[j]), model, vector)
	}
	return vectors, nil
}

// Model returns the wrapped embedder's model identifier.
func (e *CachingEmbedder) Model() string { return e.next.Model() }

var _ ports.Embedder = (*CachingEmbedder)(nil)
