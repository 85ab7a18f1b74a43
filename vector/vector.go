package vector

import (
	"context"
	"errors"
	"math"
	"sort"
)

var (
	ErrUnsupportedBackend = errors.New("unsupported vector backend")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrEmptyVector        = errors.New("empty vector")
)

type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendChromem Backend = "chromem"
)

type Config struct {
	Backend Backend `yaml:"backend"`

	// Concurrency bounds the number of goroutines chromem uses when adding
	// pre-embedded documents to a collection.
	Concurrency int `yaml:"concurrency"`
}

// Embedder maps text to a vector of fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunk is one window of a document together with its embedding.
type Chunk struct {
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}

// Result is a chunk returned by a similarity query.
type Result struct {
	Chunk
	Similarity float32 `json:"similarity"`
}

// Index owns the chunks of exactly one document. It is immutable once built
// and safe for concurrent Search calls.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Len() int
	Dimension() int
	Close() error
}

// Builder embeds a document's chunks and produces its Index. A failed
// embedding call fails the whole build; no partial index is returned.
type Builder interface {
	Build(ctx context.Context, name string, texts []string, embedder Embedder) (Index, error)
}

// EmbedAll embeds texts in order. The dimension of the first vector is
// enforced on every following one.
func EmbedAll(ctx context.Context, texts []string, embedder Embedder) ([]Chunk, error) {
	chunks := make([]Chunk, len(texts))

	dim := 0
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v, err := embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}

		if len(v) == 0 {
			return nil, ErrEmptyVector
		}

		if i == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, ErrDimensionMismatch
		}

		chunks[i] = Chunk{
			Index:     i,
			Content:   text,
			Embedding: v,
		}
	}

	return chunks, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func Cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Rank sorts results by descending similarity, breaking ties by ascending
// chunk index, and keeps at most k of them.
func Rank(results []Result, k int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}

		return results[i].Index < results[j].Index
	})

	if k < len(results) {
		results = results[:k]
	}

	return results
}
