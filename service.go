package docqa

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/flarexio/docqa/vector"
)

// Service defines the core logic of DocQA.
type Service interface {

	// Close waits for in-flight uploads and releases every registered document.
	Close() error

	// Upload validates a batch of files and processes it in the background.
	Upload(ctx context.Context, files []File) (*UploadReceipt, error)

	// UploadStatus reports the per-file outcome of a recent upload batch.
	UploadStatus(ctx context.Context, batchID string) (*BatchStatus, error)

	// Ask answers a question, grounded in the named document when it is registered.
	Ask(ctx context.Context, question string, filename string) (string, error)

	// DeleteDocument removes a registered document.
	DeleteDocument(ctx context.Context, filename string) error

	// ListDocuments returns the registered document names in upload order.
	ListDocuments(ctx context.Context) ([]string, error)
}

type ServiceMiddleware func(Service) Service

func NewService(ctx context.Context, cfg Config, builder vector.Builder, embedder vector.Embedder, model LanguageModel, extractors map[Format]Extractor) (Service, error) {
	cfg = cfg.Normalize()

	log := zap.L().With(
		zap.String("service", "docqa"),
	)

	batches, err := lru.New[string, *batch](cfg.StatusHistory)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	registry := NewRegistry(cfg.Capacity)

	svc := &service{
		registry: registry,
		ingestor: NewIngestor(cfg, registry, builder, embedder, extractors),
		answerer: NewAnswerer(cfg, registry, embedder, model),
		batches:  batches,

		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	return svc, nil
}

type service struct {
	registry *Registry
	ingestor *Ingestor
	answerer *Answerer

	// Recent upload batches, bounded (thread-safe by itself)
	batches *lru.Cache[string, *batch]

	inflight sync.WaitGroup
	closeMu  sync.RWMutex
	closed   bool

	cfg    Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (svc *service) Close() error {
	svc.closeMu.Lock()
	if svc.closed {
		svc.closeMu.Unlock()
		return nil
	}
	svc.closed = true
	svc.closeMu.Unlock()

	svc.cancel()
	svc.inflight.Wait()

	return svc.registry.Close()
}

func (svc *service) Upload(ctx context.Context, files []File) (*UploadReceipt, error) {
	svc.closeMu.RLock()
	defer svc.closeMu.RUnlock()

	if svc.closed {
		return nil, ErrServiceClosed
	}

	res, err := svc.ingestor.Admit(files)
	if err != nil {
		return nil, err
	}

	b := newBatch(uuid.NewString(), files)
	svc.batches.Add(b.id, b)

	svc.inflight.Add(1)
	go func() {
		defer svc.inflight.Done()

		// The request context ends with the acknowledgment; processing is
		// bound to the service instead.
		svc.ingestor.Run(svc.ctx, b.id, files, res, b.settle)
		b.finish()

		status := b.status()
		svc.log.Info("upload batch processed",
			zap.String("batch_id", b.id),
			zap.Int("registered", status.Registered),
			zap.Int("files", len(status.Files)),
		)
	}()

	return &UploadReceipt{
		BatchID:  b.id,
		Accepted: b.names(),
	}, nil
}

func (svc *service) UploadStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	b, ok := svc.batches.Get(batchID)
	if !ok {
		return nil, ErrBatchNotFound
	}

	status := b.status()
	return &status, nil
}

func (svc *service) Ask(ctx context.Context, question string, filename string) (string, error) {
	return svc.answerer.Answer(ctx, question, strings.TrimSpace(filename))
}

func (svc *service) DeleteDocument(ctx context.Context, filename string) error {
	if filename == "" {
		return ErrNameRequired
	}

	return svc.registry.Remove(filename)
}

func (svc *service) ListDocuments(ctx context.Context) ([]string, error) {
	return svc.registry.Names(), nil
}

// batch tracks one upload. Only terminal per-file outcomes are published;
// a file shows as received until it is registered or failed.
type batch struct {
	id         string
	receivedAt time.Time

	mu       sync.RWMutex
	outcomes []Outcome
	done     bool
}

func newBatch(id string, files []File) *batch {
	outcomes := make([]Outcome, len(files))
	for i, f := range files {
		outcomes[i] = Outcome{
			File:  f.Name,
			State: StateReceived,
		}
	}

	return &batch{
		id:         id,
		receivedAt: time.Now(),
		outcomes:   outcomes,
	}
}

func (b *batch) settle(i int, o Outcome) {
	b.mu.Lock()
	b.outcomes[i] = o
	b.mu.Unlock()
}

func (b *batch) finish() {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()
}

func (b *batch) names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, len(b.outcomes))
	for i, o := range b.outcomes {
		names[i] = o.File
	}

	return names
}

func (b *batch) status() BatchStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	status := BatchStatus{
		BatchID:    b.id,
		ReceivedAt: b.receivedAt,
		Done:       b.done,
		Files:      make([]Outcome, len(b.outcomes)),
	}

	copy(status.Files, b.outcomes)

	for _, o := range b.outcomes {
		if o.State == StateRegistered {
			status.Registered++
		}
	}

	return status
}
