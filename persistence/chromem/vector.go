package chromem

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/flarexio/docqa/vector"
)

// NewChromemBuilder returns a vector.Builder that keeps one chromem
// collection per document inside a shared in-memory database.
func NewChromemBuilder(cfg vector.Config) vector.Builder {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &chromemBuilder{
		db:          chromem.NewDB(),
		concurrency: concurrency,
	}
}

type chromemBuilder struct {
	db          *chromem.DB
	concurrency int
}

func (b *chromemBuilder) Build(ctx context.Context, name string, texts []string, embedder vector.Embedder) (vector.Index, error) {
	chunks, err := vector.EmbedAll(ctx, texts, embedder)
	if err != nil {
		return nil, err
	}

	// A replacement upload builds next to the registered index, so the
	// collection name must not collide with it.
	collectionName := name + "#" + uuid.NewString()

	// Embeddings are always supplied, the embedding func is never called.
	c, err := b.db.CreateCollection(collectionName, map[string]string{"document": name}, nil)
	if err != nil {
		return nil, err
	}

	idx := &index{
		db:         b.db,
		name:       collectionName,
		collection: c,
	}

	if len(chunks) == 0 {
		return idx, nil
	}

	idx.dim = len(chunks[0].Embedding)

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(chunk.Index),
			Embedding: chunk.Embedding,
			Content:   chunk.Content,
		}
	}

	if err := c.AddDocuments(ctx, docs, b.concurrency); err != nil {
		b.db.DeleteCollection(collectionName)
		return nil, err
	}

	return idx, nil
}

type index struct {
	db         *chromem.DB
	name       string
	collection *chromem.Collection
	dim        int
}

func (idx *index) Search(ctx context.Context, query []float32, k int) ([]vector.Result, error) {
	n := idx.collection.Count()
	if k <= 0 || n == 0 {
		return []vector.Result{}, nil
	}

	if len(query) != idx.dim {
		return nil, vector.ErrDimensionMismatch
	}

	// chromem gives no ordering guarantee between equal similarities, so
	// every candidate is fetched and re-ranked.
	results, err := idx.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, err
	}

	ranked := make([]vector.Result, 0, len(results))
	for _, r := range results {
		i, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, err
		}

		ranked = append(ranked, vector.Result{
			Chunk: vector.Chunk{
				Index:     i,
				Content:   r.Content,
				Embedding: r.Embedding,
			},
			Similarity: r.Similarity,
		})
	}

	return vector.Rank(ranked, k), nil
}

func (idx *index) Len() int {
	return idx.collection.Count()
}

func (idx *index) Dimension() int {
	return idx.dim
}

func (idx *index) Close() error {
	return idx.db.DeleteCollection(idx.name)
}
