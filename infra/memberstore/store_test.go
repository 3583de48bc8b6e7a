package memberstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coralnet/reefhub/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "members.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []domain.Member{
		{ID: 1, Name: "Ana", Slug: "ana"},
		{ID: 2, Name: "Bo", AvatarThumb: "https://a/t.png"},
	}))

	got, err := s.Get(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Ana", got[1].Name)
	assert.Equal(t, "https://a/t.png", got[2].AvatarThumb)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []domain.Member{{ID: 5, Name: "Old"}}))
	require.NoError(t, s.Put(ctx, []domain.Member{{ID: 5, Name: "New"}}))

	got, err := s.Get(ctx, []int64{5})
	require.NoError(t, err)
	assert.Equal(t, "New", got[5].Name)
}

func TestStore_StaleEntriesIgnored(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base.Add(-2 * time.Hour) }
	require.NoError(t, s.Put(ctx, []domain.Member{{ID: 9, Name: "Stale"}}))
	s.now = func() time.Time { return base }

	got, err := s.Get(ctx, []int64{9})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	_, err := Open("  ", 0)
	assert.Error(t, err)
}
