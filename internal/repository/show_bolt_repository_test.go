package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/iliyamo/showdesk/internal/model"
)

func setupBoltRepo(t *testing.T) *BoltShowRepo {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "shows.db"), 0o600, nil)
	require.NoError(t, err)
	repo, err := NewBoltShowRepo(db)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestBoltShowRepo_AppendListUpdateClear(t *testing.T) {
	repo := setupBoltRepo(t)
	ctx := context.Background()

	shows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, shows)

	require.NoError(t, repo.AppendMany(ctx, mustShows(t, `[{"id":"a","title":"X"},{"id":"b"},{"id":"a"}]`)))

	updated, err := repo.UpdateField(ctx, "a", model.FieldIntervalDone, true)
	require.NoError(t, err)
	assert.True(t, *updated.IntervalDone)

	shows, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, shows, 3)
	assert.Equal(t, "a", shows[0].ID)
	require.NotNil(t, shows[0].IntervalDone)
	assert.Nil(t, shows[2].IntervalDone, "only the first match is updated")
	assert.JSONEq(t, `"X"`, string(shows[0].Extra["title"]))

	_, err = repo.UpdateField(ctx, "zzz", model.FieldSold, true)
	assert.ErrorIs(t, err, ErrShowNotFound)

	require.NoError(t, repo.ClearAll(ctx))
	shows, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, shows)

	// sequence restarts but order is still insertion order
	require.NoError(t, repo.AppendMany(ctx, mustShows(t, `[{"id":"c"},{"id":"d"}]`)))
	shows, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", shows[0].ID)
	assert.Equal(t, "d", shows[1].ID)
}

func TestBoltShowRepo_ConcurrentDifferentFields(t *testing.T) {
	repo := setupBoltRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.AppendMany(ctx, mustShows(t, `[{"id":"a"}]`)))

	var wg sync.WaitGroup
	for _, f := range model.Fields {
		wg.Add(1)
		go func(f model.Field) {
			defer wg.Done()
			_, err := repo.UpdateField(ctx, "a", f, false)
			assert.NoError(t, err)
		}(f)
	}
	wg.Wait()

	shows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	for _, f := range model.Fields {
		require.NotNil(t, shows[0].Flag(f), "field %s lost", f)
		assert.False(t, *shows[0].Flag(f))
	}
}
