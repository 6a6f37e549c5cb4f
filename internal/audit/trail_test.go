package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubTrailRepo struct {
	entries []Entry

	lastFilters TrailFilters
	lastOffset  int
	lastLimit   int
}

func (r *stubTrailRepo) TrailWindow(_ context.Context, filters TrailFilters, offset, limit int) ([]Entry, error) {
	r.lastFilters = filters
	r.lastOffset = offset
	r.lastLimit = limit
	if offset >= len(r.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.entries) {
		end = len(r.entries)
	}
	return r.entries[offset:end], nil
}

func seedEntries(n int) []Entry {
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, Entry{
			ID:       fmt.Sprintf("entry-%d", i),
			Action:   "override.set",
			Entity:   "principal",
			EntityID: "42",
			ActorID:  1,
		})
	}
	return entries
}

func TestTrailDefaultsPaging(t *testing.T) {
	repo := &stubTrailRepo{entries: seedEntries(25)}
	svc := NewService(repo)

	result, err := svc.Trail(context.Background(), TrailFilters{EntityID: "42"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.Equal(t, 1, result.Paging.Page)
	require.Equal(t, 20, result.Paging.PageSize)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)

	// The repo is asked for one extra row to detect the next page.
	require.Equal(t, 21, repo.lastLimit)
	require.Equal(t, 0, repo.lastOffset)
}

func TestTrailClampsPageSize(t *testing.T) {
	repo := &stubTrailRepo{entries: seedEntries(120)}
	svc := NewService(repo)

	result, err := svc.Trail(context.Background(), TrailFilters{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Rows, 50)
	require.Equal(t, 50, result.Paging.PageSize)
}

func TestTrailLastPageHasNoNext(t *testing.T) {
	repo := &stubTrailRepo{entries: seedEntries(25)}
	svc := NewService(repo)

	result, err := svc.Trail(context.Background(), TrailFilters{Page: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 20, repo.lastOffset)
}

func TestTrailWithoutRepository(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Trail(context.Background(), TrailFilters{})
	require.Error(t, err)
}
