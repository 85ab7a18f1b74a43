package docqa

import (
	"context"
	"errors"
)

// ProxyMiddleware forwards every call to remote endpoints, ignoring next.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

var errInvalidResponseType = errors.New("invalid response type")

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) Upload(ctx context.Context, files []File) (*UploadReceipt, error) {
	resp, err := mw.endpoints.Upload(ctx, UploadRequest{files})
	if err != nil {
		return nil, err
	}

	receipt, ok := resp.(*UploadReceipt)
	if !ok {
		return nil, errInvalidResponseType
	}

	return receipt, nil
}

func (mw *proxyMiddleware) UploadStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	resp, err := mw.endpoints.UploadStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}

	status, ok := resp.(*BatchStatus)
	if !ok {
		return nil, errInvalidResponseType
	}

	return status, nil
}

func (mw *proxyMiddleware) Ask(ctx context.Context, question string, filename string) (string, error) {
	req := AskRequest{
		Question: question,
		Filename: filename,
	}

	resp, err := mw.endpoints.Ask(ctx, req)
	if err != nil {
		return "", err
	}

	answer, ok := resp.(AskResponse)
	if !ok {
		return "", errInvalidResponseType
	}

	return answer.Answer, nil
}

func (mw *proxyMiddleware) DeleteDocument(ctx context.Context, filename string) error {
	_, err := mw.endpoints.DeleteDocument(ctx, DeleteDocumentRequest{filename})
	return err
}

func (mw *proxyMiddleware) ListDocuments(ctx context.Context) ([]string, error) {
	resp, err := mw.endpoints.ListDocuments(ctx, nil)
	if err != nil {
		return nil, err
	}

	names, ok := resp.([]string)
	if !ok {
		return nil, errInvalidResponseType
	}

	return names, nil
}
