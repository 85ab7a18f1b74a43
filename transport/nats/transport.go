package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docqa"
)

// ErrorCode maps a service error to the code reported in the
// Nats-Service-Error-Code header.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, docqa.ErrQuestionRequired),
		errors.Is(err, docqa.ErrNameRequired),
		errors.Is(err, docqa.ErrNoFiles),
		errors.Is(err, docqa.ErrTooManyFiles),
		errors.Is(err, docqa.ErrCapacityExceeded),
		errors.Is(err, docqa.ErrInvalidRequestType):
		return "400"

	case errors.Is(err, docqa.ErrDocumentNotFound),
		errors.Is(err, docqa.ErrBatchNotFound):
		return "404"

	case errors.Is(err, docqa.ErrFileTooLarge):
		return "413"

	case errors.Is(err, docqa.ErrTimeout):
		return "504"

	default:
		return "417"
	}
}

func respondError(r micro.Request, err error) {
	r.Error(ErrorCode(err), err.Error(), nil)
}

func UploadHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docqa.UploadRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(resp)
	}
}

func UploadStatusHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		batchID := string(r.Data())
		if batchID == "" {
			r.Error("400", "batch id is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, batchID)
		if err != nil {
			respondError(r, err)
			return
		}

		r.RespondJSON(resp)
	}
}

// AskHandler answers in its own goroutine; a micro endpoint delivers
// requests one at a time and an answer may take minutes.
func AskHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docqa.AskRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		go func() {
			ctx := context.Background()
			resp, err := endpoint(ctx, req)
			if err != nil {
				respondError(r, err)
				return
			}

			r.RespondJSON(resp)
		}()
	}
}

func DeleteDocumentHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docqa.DeleteDocumentRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		if _, err := endpoint(ctx, req); err != nil {
			respondError(r, err)
			return
		}

		r.Respond([]byte("OK"))
	}
}

func ListDocumentsHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		ctx := context.Background()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			respondError(r, err)
			return
		}

		names, ok := resp.([]string)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		if names == nil {
			names = []string{}
		}

		r.RespondJSON(&names)
	}
}
