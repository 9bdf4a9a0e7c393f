package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autofilter/internal/store"
)

// ErrSearchFailed wraps store errors during a query. Callers get either a
// full ranked result or this error, never a partial list.
var ErrSearchFailed = errors.New("search failed")

// Searcher is the slice of the media store the resolver reads.
type Searcher interface {
	Search(ctx context.Context, cleanedQuery string, limit int) ([]store.MediaRecord, error)
}

// Resolver turns a raw user query into ranked media records.
type Resolver struct {
	store Searcher
}

func NewResolver(s Searcher) *Resolver {
	return &Resolver{store: s}
}

// Resolve normalizes rawQuery and asks the store for up to limit matches.
// An empty cleaned query yields no results without touching the store;
// searching on nothing is undefined there.
func (r *Resolver) Resolve(ctx context.Context, rawQuery string, limit int) ([]store.MediaRecord, error) {
	tokens := Normalize(rawQuery)
	if len(tokens) == 0 {
		return nil, nil
	}

	records, err := r.store.Search(ctx, strings.Join(tokens, " "), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	return records, nil
}
