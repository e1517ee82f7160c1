package retrieval

import (
	"context"
	"sort"

	"github.com/krishnaw/dealsearch/internal/record"
)

// Encoder is the external collaborator spec.md §6 describes: something
// that turns text into L2-normalized vectors. The semantic retriever
// never knows whether that's Ollama, a hosted API, or a test stub.
type Encoder interface {
	// EncodeCorpus returns an (N,D) L2-normalized matrix, one row per
	// input string, in order.
	EncodeCorpus(ctx context.Context, texts []string) (*record.EmbeddingMatrix, error)

	// EncodeQuery returns a single L2-normalized length-D vector.
	EncodeQuery(ctx context.Context, query string) ([]float32, error)
}

// SemanticSearch implements spec.md §4.3: encode the query, score every
// row of the embedding matrix by dot product (cosine similarity, since
// both sides are unit vectors), and return the top_k by similarity
// descending.
//
// Top-k selection is an expected-O(N) partial selection (quickselect)
// followed by sorting only the selected k, rather than a full O(N log N)
// sort of every row.
func SemanticSearch(ctx context.Context, query string, rs *record.RecordSet, encoder Encoder, topK int) ([]Hit, error) {
	if rs.Matrix == nil || len(rs.Matrix.Rows) == 0 {
		return nil, nil
	}

	qvec, err := encoder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(qvec) != rs.Matrix.Dim {
		return nil, &record.DimensionMismatchError{Expected: rs.Matrix.Dim, Got: len(qvec)}
	}

	scores := make([]float64, len(rs.Matrix.Rows))
	for i, row := range rs.Matrix.Rows {
		scores[i] = dot(qvec, row)
	}

	order := partialTopKIndices(scores, topK)

	hits := make([]Hit, len(order))
	for i, idx := range order {
		hits[i] = Hit{Record: rs.Records[idx], Score: scores[idx]}
	}
	return hits, nil
}

func dot(a []float32, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// partialTopKIndices returns the indices of the k largest values in
// scores, sorted descending. When k <= 0 or k >= len(scores) it just
// sorts every index.
func partialTopKIndices(scores []float64, k int) []int {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k <= 0 || k >= n {
		sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })
		return idx
	}

	quickselectDesc(idx, scores, 0, n-1, k)
	top := idx[:k]
	sort.SliceStable(top, func(i, j int) bool { return scores[top[i]] > scores[top[j]] })
	return top
}

// quickselectDesc partitions idx[lo:hi+1] (by scores, descending) so the
// k largest end up in idx[:k], in arbitrary order within that prefix.
func quickselectDesc(idx []int, scores []float64, lo, hi, k int) {
	for lo < hi {
		p := partitionDesc(idx, scores, lo, hi)
		if p == k-1 {
			return
		} else if p < k-1 {
			lo = p + 1
		} else {
			hi = p - 1
		}
	}
}

func partitionDesc(idx []int, scores []float64, lo, hi int) int {
	pivot := scores[idx[hi]]
	i := lo
	for j := lo; j < hi; j++ {
		if scores[idx[j]] > pivot {
			idx[i], idx[j] = idx[j], idx[i]
			i++
		}
	}
	idx[i], idx[hi] = idx[hi], idx[i]
	return i
}
