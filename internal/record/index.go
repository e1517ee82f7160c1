package record

import "sync"

// CorpusIndex holds the derived, record-set-wide structures the keyword
// and fuzzy retrievers need: parallel lowercased name arrays, the
// per-offer product count used by the match-density penalty, a
// handle-to-index map, and the whitespace-token vocabulary the gibberish
// gate checks query tokens against.
//
// It is built once per RecordSet and is immutable thereafter; building it
// is idempotent and safe to race on (first caller wins, others block and
// reuse the result) — this is the "lazy derived-index construction,
// concurrent first-call safe" requirement from spec.md §7.
type CorpusIndex struct {
	Version int64

	OfferNames   []string // raw, parallel to RecordSet.Records
	ProductNames []string
	OfferNamesLower   []string
	ProductNamesLower []string

	// OfferProductCounts is offer_id -> count of records under that offer
	// with a non-empty ProductName.
	OfferProductCounts map[string]int

	// RecHandleToIndex maps a record pointer to its position in
	// RecordSet.Records, for retrievers that need to go back from a
	// matched record to its row index in the embedding matrix.
	RecHandleToIndex map[*Record]int

	// Vocabulary is the set of every lowercased whitespace token that
	// appears in any record's SearchText.
	Vocabulary map[string]struct{}
}

func buildCorpusIndex(rs *RecordSet) *CorpusIndex {
	n := len(rs.Records)
	idx := &CorpusIndex{
		Version:            rs.Version,
		OfferNames:         make([]string, n),
		ProductNames:       make([]string, n),
		OfferNamesLower:    make([]string, n),
		ProductNamesLower:  make([]string, n),
		OfferProductCounts: make(map[string]int),
		RecHandleToIndex:   make(map[*Record]int, n),
		Vocabulary:         make(map[string]struct{}),
	}

	for i, r := range rs.Records {
		idx.OfferNames[i] = r.OfferName
		idx.ProductNames[i] = r.ProductName
		idx.OfferNamesLower[i] = r.offerNameLower
		idx.ProductNamesLower[i] = r.productNameLower
		idx.RecHandleToIndex[r] = i

		if r.ProductName != "" {
			idx.OfferProductCounts[r.OfferID]++
		}

		for _, tok := range tokenize(r.searchTextLower) {
			idx.Vocabulary[tok] = struct{}{}
		}
	}

	return idx
}

// tokenize splits on ASCII whitespace the same way the keyword retriever
// tokenizes a query, so vocabulary membership checks are consistent with
// how queries get tokenized.
func tokenize(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// indexCache guards lazy, concurrency-safe CorpusIndex construction,
// keyed by RecordSet.Version rather than by the RecordSet's address.
type indexCache struct {
	mu      sync.Mutex
	built   map[int64]*CorpusIndex
	pending map[int64]*sync.WaitGroup
}

func newIndexCache() *indexCache {
	return &indexCache{
		built:   make(map[int64]*CorpusIndex),
		pending: make(map[int64]*sync.WaitGroup),
	}
}

// Get returns the CorpusIndex for rs, building it on the first call for
// this version and reusing it on every subsequent call. Concurrent first
// calls for the same version block on one build instead of racing.
func (c *indexCache) Get(rs *RecordSet) *CorpusIndex {
	c.mu.Lock()
	if idx, ok := c.built[rs.Version]; ok {
		c.mu.Unlock()
		return idx
	}
	if wg, ok := c.pending[rs.Version]; ok {
		c.mu.Unlock()
		wg.Wait()
		c.mu.Lock()
		idx := c.built[rs.Version]
		c.mu.Unlock()
		return idx
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.pending[rs.Version] = wg
	c.mu.Unlock()

	idx := buildCorpusIndex(rs)

	c.mu.Lock()
	c.built[rs.Version] = idx
	delete(c.pending, rs.Version)
	c.mu.Unlock()
	wg.Done()

	return idx
}

// globalIndexCache backs the package-level Index helper. It is process
// lifetime, not per-engine — the same RecordSet version is always the
// same CorpusIndex no matter which Engine asks for it.
var globalIndexCache = newIndexCache()

// Index returns the (lazily built, cached) CorpusIndex for rs.
func Index(rs *RecordSet) *CorpusIndex {
	return globalIndexCache.Get(rs)
}
