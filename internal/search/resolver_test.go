package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autofilter/internal/store"
)

type fakeSearcher struct {
	calls   int
	gotQry  string
	gotLim  int
	results []store.MediaRecord
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, cleanedQuery string, limit int) ([]store.MediaRecord, error) {
	f.calls++
	f.gotQry = cleanedQuery
	f.gotLim = limit
	return f.results, f.err
}

func TestResolveEmptyQueryShortCircuits(t *testing.T) {
	fake := &fakeSearcher{}
	r := NewResolver(fake)

	for _, q := range []string{"", "   ", "!!! ...", "\t\n"} {
		got, err := r.Resolve(context.Background(), q, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Zero(t, fake.calls, "the store must not be called for an empty cleaned query")
}

func TestResolvePassesCleanedQuery(t *testing.T) {
	want := []store.MediaRecord{
		{ChannelID: -1001, MessageID: 7, FileName: "Inception.2010.mkv"},
	}
	fake := &fakeSearcher{results: want}
	r := NewResolver(fake)

	got, err := r.Resolve(context.Background(), "  Inception (2010)! ", 5)
	require.NoError(t, err)
	assert.Equal(t, want, got, "store results are returned verbatim")
	assert.Equal(t, "inception 2010", fake.gotQry)
	assert.Equal(t, 5, fake.gotLim)
	assert.Equal(t, 1, fake.calls)
}

func TestResolveWrapsStoreErrors(t *testing.T) {
	fake := &fakeSearcher{err: errors.New("connection reset")}
	r := NewResolver(fake)

	got, err := r.Resolve(context.Background(), "inception", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Nil(t, got, "no partial results on failure")
}
