package docqa

import (
	"context"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Upload         endpoint.Endpoint
	UploadStatus   endpoint.Endpoint
	Ask            endpoint.Endpoint
	DeleteDocument endpoint.Endpoint
	ListDocuments  endpoint.Endpoint
}

func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		Upload:         UploadEndpoint(svc),
		UploadStatus:   UploadStatusEndpoint(svc),
		Ask:            AskEndpoint(svc),
		DeleteDocument: DeleteDocumentEndpoint(svc),
		ListDocuments:  ListDocumentsEndpoint(svc),
	}
}

type UploadRequest struct {
	Files []File `json:"files"`
}

func UploadEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(UploadRequest)
		if !ok {
			return nil, ErrInvalidRequestType
		}

		return svc.Upload(ctx, req.Files)
	}
}

func UploadStatusEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		batchID, ok := request.(string)
		if !ok {
			return nil, ErrInvalidRequestType
		}

		return svc.UploadStatus(ctx, batchID)
	}
}

type AskRequest struct {
	Question string `json:"question"`
	Filename string `json:"filename,omitempty"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskRequest)
		if !ok {
			return nil, ErrInvalidRequestType
		}

		answer, err := svc.Ask(ctx, req.Question, req.Filename)
		if err != nil {
			return nil, err
		}

		return AskResponse{answer}, nil
	}
}

type DeleteDocumentRequest struct {
	Filename string `json:"filename"`
}

func DeleteDocumentEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(DeleteDocumentRequest)
		if !ok {
			return nil, ErrInvalidRequestType
		}

		err := svc.DeleteDocument(ctx, req.Filename)
		return nil, err
	}
}

func ListDocumentsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.ListDocuments(ctx)
	}
}
