package qrcode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEncoder struct {
	mu      sync.Mutex
	rasters int
	vectors int
	fail    bool
}

func (e *countingEncoder) Raster(_ context.Context, opts Options) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rasters++
	if e.fail {
		return nil, errors.New("boom")
	}
	return []byte(opts.Text), nil
}

func (e *countingEncoder) Vector(_ context.Context, opts Options) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors++
	if e.fail {
		return "", errors.New("boom")
	}
	return "<svg>" + opts.Text + "</svg>", nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func TestCachedEncoderServesRepeatsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingEncoder{}
	cache := &mapCache{data: map[string][]byte{}}
	enc := NewCachedEncoder(inner, cache, "rsc", time.Minute)

	opts := defaultOptions("cached")
	for i := 0; i < 3; i++ {
		raw, err := enc.Raster(ctx, opts)
		require.NoError(t, err)
		assert.Equal(t, []byte("cached"), raw)
		svg, err := enc.Vector(ctx, opts)
		require.NoError(t, err)
		assert.Equal(t, "<svg>cached</svg>", svg)
	}
	assert.Equal(t, 1, inner.rasters)
	assert.Equal(t, 1, inner.vectors)

	// Size changes the raster only.
	opts.Size = 480
	_, err := enc.Raster(ctx, opts)
	require.NoError(t, err)
	_, err = enc.Vector(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.rasters)
	assert.Equal(t, 1, inner.vectors)

	for key := range cache.data {
		assert.NotContains(t, key, "cached", "payload must not leak into keys")
	}
}

func TestCachedEncoderDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	inner := &countingEncoder{fail: true}
	cache := &mapCache{data: map[string][]byte{}}
	enc := NewCachedEncoder(inner, cache, "rsc", time.Minute)

	_, err := enc.Raster(ctx, defaultOptions("x"))
	assert.Error(t, err)
	_, err = enc.Vector(ctx, defaultOptions("x"))
	assert.Error(t, err)
	assert.Empty(t, cache.data)
}

func TestNilCacheReturnsInnerEncoder(t *testing.T) {
	inner := &countingEncoder{}
	assert.Same(t, inner, NewCachedEncoder(inner, nil, "rsc", time.Minute))
}
