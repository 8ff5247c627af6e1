package qrcode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/beautifulqr/qrgen/pkg/metrics"
)

// Cache stores rendered bytes. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// CachedEncoder memoises renderings. Keys are hashes of the options so the
// payload text never appears in a cache key.
type CachedEncoder struct {
	next      Encoder
	cache     Cache
	namespace string
	ttl       time.Duration
}

// NewCachedEncoder wraps next. namespace separates backends whose matrices
// may differ for the same text.
func NewCachedEncoder(next Encoder, cache Cache, namespace string, ttl time.Duration) Encoder {
	if cache == nil {
		return next
	}
	return &CachedEncoder{next: next, cache: cache, namespace: namespace, ttl: ttl}
}

func (c *CachedEncoder) Raster(ctx context.Context, opts Options) ([]byte, error) {
	key := c.key("png", opts, true)
	if data, ok := c.cache.Get(ctx, key); ok {
		metrics.CacheLookups.WithLabelValues("png", "hit").Inc()
		return data, nil
	}
	metrics.CacheLookups.WithLabelValues("png", "miss").Inc()

	data, err := c.next.Raster(ctx, opts)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, data, c.ttl)
	return data, nil
}

func (c *CachedEncoder) Vector(ctx context.Context, opts Options) (string, error) {
	key := c.key("svg", opts, false)
	if data, ok := c.cache.Get(ctx, key); ok {
		metrics.CacheLookups.WithLabelValues("svg", "hit").Inc()
		return string(data), nil
	}
	metrics.CacheLookups.WithLabelValues("svg", "miss").Inc()

	svg, err := c.next.Vector(ctx, opts)
	if err != nil {
		return "", err
	}
	c.cache.Set(ctx, key, []byte(svg), c.ttl)
	return svg, nil
}

// key hashes every option the output depends on. The SVG does not depend
// on Size, so vector keys leave it out.
func (c *CachedEncoder) key(format string, opts Options, withSize bool) string {
	size := 0
	if withSize {
		size = opts.Size
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%s\x00%s\x00%s\x00",
		c.namespace, format, size, opts.Margin, opts.Level, opts.Foreground, opts.Background)
	h.Write([]byte(opts.Text))
	return format + ":" + hex.EncodeToString(h.Sum(nil))
}
