package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pitchey/ndagate/internal/database/testutil"
	"github.com/pitchey/ndagate/internal/models"
)

func newTestCounterStore(t *testing.T) (*CounterStore, *time.Time) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithMigrations())
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	store := NewCounterStore(db)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestCounterStoreFixedWindow(t *testing.T) {
	store, now := newTestCounterStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "actor|GET /x", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	*now = now.Add(20 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "actor|GET /x", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 40*time.Second, ttl, "window must not slide on each hit")

	*now = now.Add(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "actor|GET /x", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestCounterStoreConcurrentIncrements(t *testing.T) {
	store, _ := newTestCounterStore(t)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.IncrementWithTTL(context.Background(), "shared", time.Minute)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, _, err := store.IncrementWithTTL(context.Background(), "shared", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, workers+1, count)
}

func TestCounterStorePurgeExpired(t *testing.T) {
	store, now := newTestCounterStore(t)
	ctx := context.Background()

	_, _, err := store.IncrementWithTTL(ctx, "old", time.Minute)
	require.NoError(t, err)
	*now = now.Add(2 * time.Minute)
	_, _, err = store.IncrementWithTTL(ctx, "fresh", time.Minute)
	require.NoError(t, err)

	removed, err := store.PurgeExpired(ctx, *now)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var keys []string
	require.NoError(t, store.db.Model(&models.RateCounter{}).Pluck("counter_key", &keys).Error)
	require.Equal(t, []string{"fresh"}, keys)
}
