package cache

import (
	"testing"

	"github.com/krishnaw/dealsearch/internal/record"
)

func TestEncodeDecodeMatrix_RoundTrip(t *testing.T) {
	m := &record.EmbeddingMatrix{
		Rows: [][]float32{
			{0.1, 0.2, 0.3},
			{-0.5, 0.0, 0.9},
		},
		Dim: 3,
	}

	raw := encodeMatrix(m)
	decoded, err := decodeMatrix(raw)
	if err != nil {
		t.Fatalf("decodeMatrix: %v", err)
	}
	if decoded.Dim != m.Dim {
		t.Errorf("expected dim %d, got %d", m.Dim, decoded.Dim)
	}
	if len(decoded.Rows) != len(m.Rows) {
		t.Fatalf("expected %d rows, got %d", len(m.Rows), len(decoded.Rows))
	}
	for i, row := range m.Rows {
		for j, v := range row {
			if decoded.Rows[i][j] != v {
				t.Errorf("row %d col %d: expected %v, got %v", i, j, v, decoded.Rows[i][j])
			}
		}
	}
}

func TestEncodeDecodeMatrix_Empty(t *testing.T) {
	m := &record.EmbeddingMatrix{Rows: nil, Dim: 0}
	raw := encodeMatrix(m)
	decoded, err := decodeMatrix(raw)
	if err != nil {
		t.Fatalf("decodeMatrix: %v", err)
	}
	if len(decoded.Rows) != 0 {
		t.Errorf("expected 0 rows, got %d", len(decoded.Rows))
	}
}

func TestMatrixCache_DisabledWhenNoAddr(t *testing.T) {
	c := NewMatrixCache("")
	if _, ok := c.Get(nil, "somehash"); ok {
		t.Error("expected disabled cache to always miss")
	}
	c.Put(nil, "somehash", &record.EmbeddingMatrix{})
	if err := c.Close(); err != nil {
		t.Errorf("Close on disabled cache should be a no-op, got %v", err)
	}
}
