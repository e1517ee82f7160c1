// Package cache provides the three persistence backends SPEC_FULL.md's
// domain stack wires in: a Redis content-hash-keyed embedding-matrix
// cache, a Qdrant warm-restart vector mirror, and a SQLite record-set
// snapshot cache. None of these sit on the query path — Search always
// runs against the in-memory RecordSet — they only shortcut the
// (re)build step at startup so a process restart doesn't have to
// re-embed the whole catalog.
package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/krishnaw/dealsearch/internal/observability"
	"github.com/krishnaw/dealsearch/internal/record"
)

var log = observability.Logger("cache")

const matrixKeyPrefix = "dealsearch:matrix:"

// MatrixCache persists and retrieves an embedding matrix keyed by the
// SHA-256 content hash of the source documents it was built from
// (record.LoadRecordSet's return value). A hit means the catalog hasn't
// changed since the matrix was last computed, so the encoder never has
// to re-embed unchanged records.
type MatrixCache struct {
	client *redis.Client
}

// NewMatrixCache dials Redis at addr. An empty addr disables the cache:
// Get always misses and Put is a no-op, so callers don't need a separate
// "is caching enabled" branch.
func NewMatrixCache(addr string) *MatrixCache {
	if addr == "" {
		return &MatrixCache{}
	}
	return &MatrixCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Get returns the cached matrix for contentHash, or (nil, false) on a
// miss or when the cache is disabled.
func (c *MatrixCache) Get(ctx context.Context, contentHash string) (*record.EmbeddingMatrix, bool) {
	if c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, matrixKeyPrefix+contentHash).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("content_hash", contentHash).Msg("matrix cache get failed")
		}
		return nil, false
	}

	m, err := decodeMatrix(raw)
	if err != nil {
		log.Warn().Err(err).Str("content_hash", contentHash).Msg("matrix cache decode failed")
		return nil, false
	}
	observability.LogEvent(log, observability.EventCacheHit, map[string]interface{}{"content_hash": contentHash})
	return m, true
}

// Put stores m under contentHash. Errors are logged, not returned — a
// cache write failure must never fail the search path that triggered it.
func (c *MatrixCache) Put(ctx context.Context, contentHash string, m *record.EmbeddingMatrix) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, matrixKeyPrefix+contentHash, encodeMatrix(m), 0).Err(); err != nil {
		log.Warn().Err(err).Str("content_hash", contentHash).Msg("matrix cache put failed")
	}
}

// encodeMatrix serializes an EmbeddingMatrix as: int32 row count, int32
// dimension, then rows*dim little-endian float32s.
func encodeMatrix(m *record.EmbeddingMatrix) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(len(m.Rows)))
	binary.Write(&buf, binary.LittleEndian, int32(m.Dim))
	for _, row := range m.Rows {
		binary.Write(&buf, binary.LittleEndian, row)
	}
	return buf.Bytes()
}

func decodeMatrix(raw []byte) (*record.EmbeddingMatrix, error) {
	buf := bytes.NewReader(raw)
	var rowCount, dim int32
	if err := binary.Read(buf, binary.LittleEndian, &rowCount); err != nil {
		return nil, fmt.Errorf("cache: reading row count: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("cache: reading dimension: %w", err)
	}

	rows := make([][]float32, rowCount)
	for i := range rows {
		row := make([]float32, dim)
		if err := binary.Read(buf, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("cache: reading row %d: %w", i, err)
		}
		rows[i] = row
	}
	return &record.EmbeddingMatrix{Rows: rows, Dim: int(dim)}, nil
}

// Close releases the underlying Redis connection, if any.
func (c *MatrixCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
