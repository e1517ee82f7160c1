package cache

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/krishnaw/dealsearch/internal/record"
)

// dealsearchNamespace is a fixed UUID namespace so a record's offer+product
// identity always maps to the same Qdrant point id across restarts.
var dealsearchNamespace = uuid.MustParse("5f5a9b2e-6c3a-4e9a-9b7a-1d1f6a4e9c10")

func pointID(offerID, productUPC string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", offerID, productUPC, index)))
	return uuid.NewSHA1(dealsearchNamespace, h[:]).String()
}

// VectorMirror is a warm-restart mirror of the in-memory embedding
// matrix: after a corpus is embedded once, its rows are upserted here so
// a process restart can repopulate RecordSet.Matrix from Qdrant instead
// of re-running every record through the encoder.
type VectorMirror struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewVectorMirror dials Qdrant at host:port. An empty host disables the
// mirror: Fetch always misses and Upsert is a no-op.
func NewVectorMirror(host string, port int, collection string, dimension int) (*VectorMirror, error) {
	if host == "" {
		return &VectorMirror{}, nil
	}
	if collection == "" {
		collection = "dealsearch_embeddings"
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("cache: dialing qdrant: %w", err)
	}
	return &VectorMirror{client: client, collection: collection, dimension: dimension}, nil
}

func (m *VectorMirror) enabled() bool { return m.client != nil }

// EnsureCollection creates the mirror collection if it doesn't exist yet.
func (m *VectorMirror) EnsureCollection(ctx context.Context) error {
	if !m.enabled() {
		return nil
	}

	collections, err := m.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("cache: listing qdrant collections: %w", err)
	}
	for _, c := range collections {
		if c == m.collection {
			return nil
		}
	}

	return m.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(m.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// Upsert mirrors every row of the matrix, identifying each point by a
// deterministic hash of (offerID, productUPC, row index) so re-running
// Upsert against an unchanged corpus updates the same points instead of
// duplicating them.
func (m *VectorMirror) Upsert(ctx context.Context, records []*record.Record, matrix *record.EmbeddingMatrix) error {
	if !m.enabled() || matrix == nil || len(matrix.Rows) == 0 {
		return nil
	}
	if err := m.EnsureCollection(ctx); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(matrix.Rows))
	for i, row := range matrix.Rows {
		r := records[i]
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(r.OfferID, r.ProductUPC, i)),
			Vectors: qdrant.NewVectors(row...),
			Payload: qdrant.NewValueMap(map[string]any{
				"offer_id": r.OfferID,
				"index":    int64(i),
			}),
		}
	}

	_, err := m.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: m.collection, Points: points})
	if err != nil {
		return fmt.Errorf("cache: upserting vector mirror points: %w", err)
	}
	return nil
}

// Fetch retrieves every mirrored point and reassembles them into a matrix
// ordered by the "index" payload field, for restoring RecordSet.Matrix on
// a warm restart without calling the encoder. Returns (nil, false) when
// the mirror is disabled, empty, or a point's recorded index is out of
// range for count.
func (m *VectorMirror) Fetch(ctx context.Context, count int) (*record.EmbeddingMatrix, bool) {
	if !m.enabled() {
		return nil, false
	}

	limit := uint32(count)
	points, err := m.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: m.collection,
		Limit:          &limit,
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil || len(points) == 0 {
		return nil, false
	}

	rows := make([][]float32, count)
	filled := 0
	for _, p := range points {
		idxVal, ok := p.Payload["index"]
		if !ok {
			continue
		}
		idx := int(idxVal.GetIntegerValue())
		if idx < 0 || idx >= count {
			continue
		}
		rows[idx] = p.Vectors.GetVector().GetData()
		filled++
	}
	if filled != count {
		return nil, false
	}

	dim := m.dimension
	if dim == 0 && len(rows) > 0 {
		dim = len(rows[0])
	}
	return &record.EmbeddingMatrix{Rows: rows, Dim: dim}, true
}

// Close releases the underlying Qdrant connection, if any.
func (m *VectorMirror) Close() error {
	if !m.enabled() {
		return nil
	}
	return m.client.Close()
}
