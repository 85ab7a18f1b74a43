package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/docqa"
)

func newRouter(endpoints docqa.EndpointSet) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	AddRouters(r, endpoints, 1<<10)
	return r
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	for name, content := range files {
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}

		part.Write([]byte(content))
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return body, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}

	return body
}

func TestUploadHandler(t *testing.T) {
	assert := assert.New(t)

	var received []docqa.File
	r := newRouter(docqa.EndpointSet{
		Upload: func(ctx context.Context, request any) (any, error) {
			req := request.(docqa.UploadRequest)
			received = req.Files

			return &docqa.UploadReceipt{BatchID: "batch-1", Accepted: []string{"notes.txt"}}, nil
		},
	})

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "hello"})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(http.StatusAccepted, rec.Code)
	assert.Equal("batch-1", decode(t, rec)["batch_id"])

	if assert.Len(received, 1) {
		assert.Equal("notes.txt", received[0].Name)
		assert.Equal([]byte("hello"), received[0].Data)
	}
}

func TestUploadHandlerRejections(t *testing.T) {
	assert := assert.New(t)

	r := newRouter(docqa.EndpointSet{
		Upload: func(ctx context.Context, request any) (any, error) {
			return nil, fmt.Errorf("%w: you can upload up to 5 files", docqa.ErrCapacityExceeded)
		},
	})

	// oversized file
	body, contentType := multipartBody(t, map[string]string{"big.txt": strings.Repeat("x", 2<<10)})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(http.StatusRequestEntityTooLarge, rec.Code)

	// capacity
	body, contentType = multipartBody(t, map[string]string{"small.txt": "x"})

	req = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(decode(t, rec)["error"], "limit exceeded")
}

func TestAskHandler(t *testing.T) {
	assert := assert.New(t)

	r := newRouter(docqa.EndpointSet{
		Ask: func(ctx context.Context, request any) (any, error) {
			req := request.(docqa.AskRequest)

			switch req.Question {
			case "":
				return nil, docqa.ErrQuestionRequired
			case "slow":
				return nil, docqa.ErrTimeout
			case "broken":
				return nil, errors.New("model crashed")
			}

			return docqa.AskResponse{Answer: "answer to " + req.Question}, nil
		},
	})

	tests := []struct {
		body    string
		status  int
		key     string
		message string
	}{
		{`{"question": "why", "filename": "a.txt"}`, http.StatusOK, "answer", "answer to why"},
		{`{"filename": "a.txt"}`, http.StatusBadRequest, "error", docqa.ErrQuestionRequired.Error()},
		{`{"question": "slow"}`, http.StatusGatewayTimeout, "error", MessageTimeout},
		{`{"question": "broken"}`, http.StatusInternalServerError, "error", MessageInternal},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(tt.status, rec.Code, tt.body)
		assert.Equal(tt.message, decode(t, rec)[tt.key], tt.body)
	}
}

func TestDeleteAndListHandlers(t *testing.T) {
	assert := assert.New(t)

	documents := []string{"a.txt"}
	r := newRouter(docqa.EndpointSet{
		DeleteDocument: func(ctx context.Context, request any) (any, error) {
			req := request.(docqa.DeleteDocumentRequest)
			if len(documents) == 0 || documents[0] != req.Filename {
				return nil, docqa.ErrDocumentNotFound
			}

			documents = documents[1:]
			return nil, nil
		},
		ListDocuments: func(ctx context.Context, request any) (any, error) {
			return documents, nil
		},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug", nil))

	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal([]any{"a.txt"}, decode(t, rec)["stored_files"])

	for _, status := range []int{http.StatusOK, http.StatusNotFound} {
		req := httptest.NewRequest(http.MethodDelete, "/api/delete", strings.NewReader(`{"filename": "a.txt"}`))
		req.Header.Set("Content-Type", "application/json")

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(status, rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	assert.Equal([]any{}, decode(t, rec)["stored_files"])
}

func TestUploadStatusHandler(t *testing.T) {
	assert := assert.New(t)

	r := newRouter(docqa.EndpointSet{
		UploadStatus: func(ctx context.Context, request any) (any, error) {
			if request.(string) != "batch-1" {
				return nil, docqa.ErrBatchNotFound
			}

			return &docqa.BatchStatus{BatchID: "batch-1", Done: true}, nil
		},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/upload/batch-1", nil))
	assert.Equal(http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/upload/batch-2", nil))
	assert.Equal(http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	assert := assert.New(t)

	r := newRouter(docqa.EndpointSet{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/ask", nil))

	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
}
