package record

import "sync/atomic"

// versionCounter assigns each RecordSet a monotonically increasing
// identity. spec.md §9(b) flags the original implementation's
// object-identity-keyed caches (Python's id()) as needing re-architecture;
// unlike a pointer address, a version is never reused within the process,
// and it is what CorpusIndex keys its lazy state on. The counter restarts
// with the process, so the persistent caches key on the source content
// hash instead.
var versionCounter int64

// RecordSet is the immutable, flattened view of the catalog: one Record
// per offer×product pair, plus one offer-only Record per offer that has
// no qualifying products. Built once at startup and never mutated after
// NewRecordSet returns.
type RecordSet struct {
	Version int64
	Records []*Record

	// Matrix is the (N,D) L2-normalized embedding matrix, row i aligned
	// with Records[i]. Nil until the caller computes and attaches it —
	// building embeddings is an external collaborator's job (spec.md §6),
	// not the record set's.
	Matrix *EmbeddingMatrix
}

// NewRecordSet assigns a fresh version id and prepares every record's
// cached lowercase projections in one pass.
func NewRecordSet(records []*Record) *RecordSet {
	for _, r := range records {
		r.prepareForSearch()
	}
	return &RecordSet{
		Version: atomic.AddInt64(&versionCounter, 1),
		Records: records,
	}
}

// WithMatrix returns the same RecordSet with its embedding matrix
// attached. The record set is otherwise immutable; this is only ever
// called once, right after NewRecordSet, before the set is handed to
// the search engine.
func (rs *RecordSet) WithMatrix(m *EmbeddingMatrix) *RecordSet {
	rs.Matrix = m
	return rs
}

// EmbeddingMatrix holds N L2-normalized D-dimensional row vectors, one
// per record, in record order.
type EmbeddingMatrix struct {
	Rows [][]float32
	Dim  int
}

// NewEmbeddingMatrix validates that every row has the same dimension.
func NewEmbeddingMatrix(rows [][]float32) (*EmbeddingMatrix, error) {
	if len(rows) == 0 {
		return &EmbeddingMatrix{Rows: rows, Dim: 0}, nil
	}
	dim := len(rows[0])
	for i, row := range rows {
		if len(row) != dim {
			return nil, &DimensionMismatchError{Index: i, Expected: dim, Got: len(row)}
		}
	}
	return &EmbeddingMatrix{Rows: rows, Dim: dim}, nil
}
