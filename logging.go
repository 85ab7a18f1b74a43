package docqa

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "docqa"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Upload(ctx context.Context, files []File) (*UploadReceipt, error) {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}

	log := mw.log.With(
		zap.String("action", "upload"),
		zap.Strings("files", names),
	)

	receipt, err := mw.next.Upload(ctx, files)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("files received, processing in the background",
		zap.String("batch_id", receipt.BatchID),
	)
	return receipt, nil
}

func (mw *loggingMiddleware) UploadStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	log := mw.log.With(
		zap.String("action", "upload_status"),
		zap.String("batch_id", batchID),
	)

	status, err := mw.next.UploadStatus(ctx, batchID)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Debug("upload status reported", zap.Bool("done", status.Done))
	return status, nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, question string, filename string) (string, error) {
	log := mw.log.With(
		zap.String("action", "ask"),
		zap.String("question", question),
	)

	if filename != "" {
		log = log.With(
			zap.String("filename", filename),
		)
	}

	answer, err := mw.next.Ask(ctx, question, filename)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("question answered", zap.Int("length", len(answer)))
	return answer, nil
}

func (mw *loggingMiddleware) DeleteDocument(ctx context.Context, filename string) error {
	log := mw.log.With(
		zap.String("action", "delete_document"),
		zap.String("filename", filename),
	)

	err := mw.next.DeleteDocument(ctx, filename)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("document deleted")
	return nil
}

func (mw *loggingMiddleware) ListDocuments(ctx context.Context) ([]string, error) {
	log := mw.log.With(
		zap.String("action", "list_documents"),
	)

	names, err := mw.next.ListDocuments(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents listed", zap.Int("count", len(names)))
	return names, nil
}
