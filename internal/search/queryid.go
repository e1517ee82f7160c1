package search

import "github.com/google/uuid"

// newQueryID mints a per-search trace id so the log lines Search writes
// for one call (start, completion, retriever error) can be correlated.
func newQueryID() string {
	return uuid.NewString()
}
