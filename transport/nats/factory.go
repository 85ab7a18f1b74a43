package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docqa"
)

// MakeEndpoints returns client endpoints for a service group under prefix.
// askTimeout bounds Ask requests whose context carries no deadline.
func MakeEndpoints(nc *nats.Conn, prefix string, askTimeout time.Duration) *docqa.EndpointSet {
	return &docqa.EndpointSet{
		Upload:         UploadEndpoint(nc, prefix+"."+SubjectUpload),
		UploadStatus:   UploadStatusEndpoint(nc, prefix+"."+SubjectUploadStatus),
		Ask:            AskEndpoint(nc, prefix+"."+SubjectAsk, askTimeout),
		DeleteDocument: DeleteDocumentEndpoint(nc, prefix+"."+SubjectDeleteDocument),
		ListDocuments:  ListDocumentsEndpoint(nc, prefix+"."+SubjectListDocuments),
	}
}

func requestMsg(ctx context.Context, nc *nats.Conn, topic string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msg, err := nc.RequestWithContext(ctx, topic, data)
	if err != nil {
		return nil, err
	}

	if err := Error(msg); err != nil {
		return nil, err
	}

	return msg, nil
}

func UploadEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docqa.UploadRequest)
		if !ok {
			return nil, docqa.ErrInvalidRequestType
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := requestMsg(ctx, nc, topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		var receipt *docqa.UploadReceipt
		if err := json.Unmarshal(resp.Data, &receipt); err != nil {
			return nil, err
		}

		return receipt, nil
	}
}

func UploadStatusEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		batchID, ok := request.(string)
		if !ok {
			return nil, docqa.ErrInvalidRequestType
		}

		resp, err := requestMsg(ctx, nc, topic, []byte(batchID), nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		var status *docqa.BatchStatus
		if err := json.Unmarshal(resp.Data, &status); err != nil {
			return nil, err
		}

		return status, nil
	}
}

func AskEndpoint(nc *nats.Conn, topic string, timeout time.Duration) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docqa.AskRequest)
		if !ok {
			return nil, docqa.ErrInvalidRequestType
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := requestMsg(ctx, nc, topic, data, timeout)
		if err != nil {
			return nil, err
		}

		var answer docqa.AskResponse
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return nil, err
		}

		return answer, nil
	}
}

func DeleteDocumentEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docqa.DeleteDocumentRequest)
		if !ok {
			return nil, docqa.ErrInvalidRequestType
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		if _, err := requestMsg(ctx, nc, topic, data, nats.DefaultTimeout); err != nil {
			return nil, err
		}

		return nil, nil
	}
}

func ListDocumentsEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := requestMsg(ctx, nc, topic, nil, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		var names []string
		if err := json.Unmarshal(resp.Data, &names); err != nil {
			return nil, err
		}

		return names, nil
	}
}

var knownErrors = []error{
	docqa.ErrQuestionRequired,
	docqa.ErrNameRequired,
	docqa.ErrNoFiles,
	docqa.ErrTooManyFiles,
	docqa.ErrFileTooLarge,
	docqa.ErrCapacityExceeded,
	docqa.ErrDocumentNotFound,
	docqa.ErrBatchNotFound,
	docqa.ErrTimeout,
	docqa.ErrInvalidRequestType,
}

// Error decodes a micro service error reply. Descriptions that start with a
// known service error wrap it, so callers can match with errors.Is.
func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	for _, known := range knownErrors {
		if rest, ok := strings.CutPrefix(description, known.Error()); ok {
			return fmt.Errorf("%w%s", known, rest)
		}
	}

	return errors.New(code + ":" + description)
}
