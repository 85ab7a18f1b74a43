package memory

import (
	"context"
	"sync/atomic"

	"github.com/flarexio/docqa/vector"
)

// NewBuilder returns a vector.Builder producing brute-force cosine indexes
// held entirely in process memory.
func NewBuilder() vector.Builder {
	return &builder{}
}

type builder struct{}

func (b *builder) Build(ctx context.Context, name string, texts []string, embedder vector.Embedder) (vector.Index, error) {
	chunks, err := vector.EmbedAll(ctx, texts, embedder)
	if err != nil {
		return nil, err
	}

	idx := &index{
		name:   name,
		chunks: chunks,
	}

	if len(chunks) > 0 {
		idx.dim = len(chunks[0].Embedding)
	}

	return idx, nil
}

type index struct {
	name   string
	chunks []vector.Chunk
	dim    int

	closed atomic.Bool
}

func (idx *index) Search(ctx context.Context, query []float32, k int) ([]vector.Result, error) {
	if k <= 0 || len(idx.chunks) == 0 || idx.closed.Load() {
		return []vector.Result{}, nil
	}

	if len(query) != idx.dim {
		return nil, vector.ErrDimensionMismatch
	}

	results := make([]vector.Result, len(idx.chunks))
	for i, c := range idx.chunks {
		results[i] = vector.Result{
			Chunk:      c,
			Similarity: vector.Cosine(query, c.Embedding),
		}
	}

	return vector.Rank(results, k), nil
}

func (idx *index) Len() int {
	return len(idx.chunks)
}

func (idx *index) Dimension() int {
	return idx.dim
}

// Close marks the index as closed. The chunk slice is left in place so that
// searches already running on it finish safely; it is reclaimed once the
// registry drops its reference.
func (idx *index) Close() error {
	idx.closed.Store(true)
	return nil
}
