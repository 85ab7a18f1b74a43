package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(-1.0, Cosine([]float32{1, 0}, []float32{-3, 0}), 1e-6)
	assert.Equal(float32(0), Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestRankBreaksTiesByIndex(t *testing.T) {
	assert := assert.New(t)

	results := []Result{
		{Chunk: Chunk{Index: 4}, Similarity: 0.5},
		{Chunk: Chunk{Index: 2}, Similarity: 0.9},
		{Chunk: Chunk{Index: 1}, Similarity: 0.5},
		{Chunk: Chunk{Index: 0}, Similarity: 0.9},
	}

	ranked := Rank(results, 3)

	assert.Len(ranked, 3)
	assert.Equal(0, ranked[0].Index)
	assert.Equal(2, ranked[1].Index)
	assert.Equal(1, ranked[2].Index)
}

type countingEmbedder struct {
	calls []string
	fail  string
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if text == e.fail {
		return nil, errors.New("model unavailable")
	}

	return []float32{float32(len(text)), 1}, nil
}

func TestEmbedAllPreservesOrder(t *testing.T) {
	assert := assert.New(t)

	embedder := &countingEmbedder{}

	chunks, err := EmbedAll(context.Background(), []string{"a", "bb", "ccc"}, embedder)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal([]string{"a", "bb", "ccc"}, embedder.calls)
	for i, c := range chunks {
		assert.Equal(i, c.Index)
		assert.Len(c.Embedding, 2)
	}
}

func TestEmbedAllStopsAtFirstFailure(t *testing.T) {
	assert := assert.New(t)

	embedder := &countingEmbedder{fail: "bb"}

	chunks, err := EmbedAll(context.Background(), []string{"a", "bb", "ccc"}, embedder)
	assert.Error(err)
	assert.Nil(chunks)
	assert.Equal([]string{"a", "bb"}, embedder.calls)
}
