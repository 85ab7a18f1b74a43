package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flarexio/docqa/vector"
)

const DefaultCacheSize = 1000

// CachedEmbedder keeps the most recent embeddings so repeated questions
// and re-uploaded documents skip the model round trip.
type CachedEmbedder struct {
	inner vector.Embedder
	model string
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(inner vector.Embedder, model string, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, _ := lru.New[string, []float32](size)

	return &CachedEmbedder{
		inner: inner,
		model: model,
		cache: cache,
	}
}

func (c *CachedEmbedder) key(text string) string {
	hash := sha256.Sum256([]byte(c.model + "\x00" + text))
	return hex.EncodeToString(hash[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, v)
	return v, nil
}

func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}
