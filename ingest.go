package docqa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flarexio/docqa/chunk"
	"github.com/flarexio/docqa/vector"
)

// Ingestor turns uploaded files into registered indexes. Every file of a
// batch is processed independently; one failure never stops its siblings.
type Ingestor struct {
	extractors  map[Format]Extractor
	splitter    *chunk.Splitter
	builder     vector.Builder
	embedder    vector.Embedder
	registry    *Registry
	maxFiles    int
	maxFileSize int64
	log         *zap.Logger
}

func NewIngestor(cfg Config, registry *Registry, builder vector.Builder, embedder vector.Embedder, extractors map[Format]Extractor) *Ingestor {
	cfg = cfg.Normalize()

	return &Ingestor{
		extractors:  extractors,
		splitter:    chunk.NewSplitter(cfg.Chunk),
		builder:     builder,
		embedder:    embedder,
		registry:    registry,
		maxFiles:    cfg.MaxFiles,
		maxFileSize: cfg.MaxFileSize,
		log: zap.L().With(
			zap.String("service", "docqa"),
			zap.String("component", "ingestor"),
		),
	}
}

// Admit validates a batch and reserves one registry slot per file. The
// whole batch is rejected before any work starts if it does not fit.
func (p *Ingestor) Admit(files []File) (*Reservation, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	if len(files) > p.maxFiles {
		return nil, fmt.Errorf("%w: at most %d files", ErrTooManyFiles, p.maxFiles)
	}

	for _, f := range files {
		if f.Name == "" {
			return nil, ErrNameRequired
		}

		if int64(len(f.Data)) > p.maxFileSize {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, f.Name)
		}
	}

	res, err := p.registry.Reserve(len(files))
	if err != nil {
		return nil, fmt.Errorf("%w: you can upload up to %d files", err, p.registry.Capacity())
	}

	return res, nil
}

// Ingest admits and processes a batch, returning once every file settled.
func (p *Ingestor) Ingest(ctx context.Context, batchID string, files []File) ([]Outcome, error) {
	res, err := p.Admit(files)
	if err != nil {
		return nil, err
	}

	return p.Run(ctx, batchID, files, res, nil), nil
}

// Run processes an admitted batch, one goroutine per file, and waits for
// all of them. report, if set, is called as each file settles.
func (p *Ingestor) Run(ctx context.Context, batchID string, files []File, res *Reservation, report func(i int, o Outcome)) []Outcome {
	defer res.Release()

	outcomes := make([]Outcome, len(files))

	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			o := p.process(ctx, batchID, f, res)
			outcomes[i] = o

			if report != nil {
				report(i, o)
			}

			return nil
		})
	}

	g.Wait()

	return outcomes
}

func (p *Ingestor) process(ctx context.Context, batchID string, f File, res *Reservation) Outcome {
	log := p.log.With(
		zap.String("batch_id", batchID),
		zap.String("file", f.Name),
	)

	outcome := Outcome{
		File:  f.Name,
		State: StateReceived,
	}

	fail := func(err error) Outcome {
		outcome.FailedAt = outcome.State
		outcome.State = StateFailed
		outcome.Error = err.Error()

		log.Error(err.Error(), zap.String("stage", string(outcome.FailedAt)))
		return outcome
	}

	outcome.State = StateExtracting

	format := FormatOf(f.Name)
	extractor, ok := p.extractors[format]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Name)

		outcome.FailedAt = outcome.State
		outcome.State = StateFailed
		outcome.Error = err.Error()

		log.Warn(err.Error())
		return outcome
	}

	text, err := extractor.Extract(ctx, f.Data)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %v", ErrExtractionFailed, f.Name, err))
	}

	if strings.TrimSpace(text) == "" {
		return fail(fmt.Errorf("%w: %s", ErrExtractionFailed, f.Name))
	}

	outcome.State = StateChunking

	texts := p.splitter.Split(text)
	if len(texts) == 0 {
		return fail(fmt.Errorf("%w: %s", ErrExtractionFailed, f.Name))
	}

	outcome.Chunks = len(texts)
	outcome.State = StateEmbedding

	idx, err := p.builder.Build(ctx, f.Name, texts, p.embedder)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrEmbeddingFailed, err))
	}

	outcome.State = StateRegistering

	if err := res.Commit(f.Name, idx); err != nil {
		idx.Close()
		return fail(err)
	}

	outcome.State = StateRegistered

	log.Info("successfully processed",
		zap.String("format", string(format)),
		zap.Int("chunks", outcome.Chunks),
	)

	return outcome
}
