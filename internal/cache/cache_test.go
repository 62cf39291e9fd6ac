package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)

	_, err = c.Get(ctx, "forever")
	require.NoError(t, err)
}

func TestMemoize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	type page struct {
		HTML string
	}
	calls := 0
	fn := func(context.Context) (page, error) {
		calls++
		return page{HTML: "<html></html>"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Memoize(ctx, c, "page:a", time.Hour, fn)
		require.NoError(t, err)
		require.Equal(t, "<html></html>", got.HTML)
	}
	require.Equal(t, 1, calls)
}

func TestMemoizeDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	boom := errors.New("boom")

	_, err := Memoize(ctx, c, "k", time.Hour, func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemoizeSurvivesBrokenStore(t *testing.T) {
	got, err := Memoize(context.Background(), brokenStore{}, "k", time.Hour, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, got)
}
