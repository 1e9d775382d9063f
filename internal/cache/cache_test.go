package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/landedcost/internal/logging"
	"github.com/Simplici0/landedcost/internal/pricing"
)

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("f"), 0))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "forever"))
	_, err = m.Get(ctx, "forever")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v, 0))
	v[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

type failingBackend struct {
	gets int
}

func (f *failingBackend) Get(context.Context, string) ([]byte, error) {
	f.gets++
	return nil, ErrUnavailable
}

func (f *failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return ErrUnavailable
}

func (f *failingBackend) Delete(context.Context, string) error {
	return ErrUnavailable
}

func countingLoader(calls *int) func(context.Context) ([]pricing.Category, error) {
	return func(context.Context) ([]pricing.Category, error) {
		*calls++
		return []pricing.Category{{ID: 1, Name: "Textiles", Routes: map[pricing.RouteKind]pricing.RouteBaseline{
			pricing.Rail: {LogisticsRate: pricing.Float(3.2)},
		}}}, nil
	}
}

func TestCategories_LoadCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c := NewCategories(NewMemory(), time.Minute, logging.Discard())

	var calls int
	first, hit, err := c.Load(ctx, countingLoader(&calls))
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.Load(ctx, countingLoader(&calls))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Invalidate(ctx))
	_, hit, err = c.Load(ctx, countingLoader(&calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestCategories_BackendFailureFallsBackToLoader(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	c := NewCategories(backend, time.Minute, logging.Discard())

	var calls int
	for i := 0; i < 3; i++ {
		got, hit, err := c.Load(ctx, countingLoader(&calls))
		require.NoError(t, err)
		assert.False(t, hit)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, backend.gets)
	assert.ErrorIs(t, c.Invalidate(ctx), ErrUnavailable)
}

func TestCategories_LoaderErrorIsReturned(t *testing.T) {
	c := NewCategories(NewMemory(), time.Minute, logging.Discard())
	boom := errors.New("boom")

	_, _, err := c.Load(context.Background(), func(context.Context) ([]pricing.Category, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCategories_ZeroTTLBypassesBackend(t *testing.T) {
	backend := &failingBackend{}
	c := NewCategories(backend, 0, logging.Discard())

	var calls int
	_, hit, err := c.Load(context.Background(), countingLoader(&calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, backend.gets)
}

func TestRedis_BreakerOpensOnUnreachableServer(t *testing.T) {
	var transitions []gobreaker.State
	r := NewRedis(RedisConfig{
		Addr:         "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
		MaxRetries:   -1,
		FailureLimit: 2,
		OpenTimeout:  time.Hour,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	}, logging.Discard())
	defer r.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := r.Get(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMiss)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	assert.Equal(t, gobreaker.StateOpen, r.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	_, err := r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, r.Set(ctx, "k", []byte("v"), time.Minute), ErrUnavailable)
	assert.ErrorIs(t, r.Ping(ctx), ErrUnavailable)
}
