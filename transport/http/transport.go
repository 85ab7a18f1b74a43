package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/docqa"
)

const (
	MessageTimeout  = "Response timed out. Please try again."
	MessageInternal = "Failed to process the question."
)

// StatusOf maps a service error to an HTTP status and a client message.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, docqa.ErrQuestionRequired),
		errors.Is(err, docqa.ErrNameRequired),
		errors.Is(err, docqa.ErrNoFiles),
		errors.Is(err, docqa.ErrTooManyFiles),
		errors.Is(err, docqa.ErrCapacityExceeded),
		errors.Is(err, docqa.ErrInvalidRequestType):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, docqa.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()

	case errors.Is(err, docqa.ErrDocumentNotFound),
		errors.Is(err, docqa.ErrBatchNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, docqa.ErrTimeout):
		return http.StatusGatewayTimeout, MessageTimeout

	case errors.Is(err, docqa.ErrServiceClosed):
		return http.StatusServiceUnavailable, err.Error()

	default:
		return http.StatusInternalServerError, MessageInternal
	}
}

func abort(c *gin.Context, err error) {
	status, msg := StatusOf(err)

	c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func UploadHandler(endpoint endpoint.Endpoint, maxFileSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			abort(c, docqa.ErrNoFiles)
			return
		}

		headers := form.File["file"]

		files := make([]docqa.File, 0, len(headers))
		for _, fh := range headers {
			if maxFileSize > 0 && fh.Size > maxFileSize {
				abort(c, fmt.Errorf("%w: %s", docqa.ErrFileTooLarge, fh.Filename))
				return
			}

			data, err := readFile(fh)
			if err != nil {
				abort(c, err)
				return
			}

			files = append(files, docqa.File{
				Name: fh.Filename,
				Data: data,
			})
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, docqa.UploadRequest{Files: files})
		if err != nil {
			abort(c, err)
			return
		}

		receipt, ok := resp.(*docqa.UploadReceipt)
		if !ok {
			abort(c, errors.New("invalid response type"))
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message":  "Files received. Processing in the background.",
			"batch_id": receipt.BatchID,
			"accepted": receipt.Accepted,
		})
	}
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func UploadStatusHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		batchID := c.Param("batch_id")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, batchID)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AskHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docqa.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, docqa.ErrQuestionRequired)
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func DeleteDocumentHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req docqa.DeleteDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, docqa.ErrNameRequired)
			return
		}

		ctx := c.Request.Context()
		if _, err := endpoint(ctx, req); err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": req.Filename + " has been deleted.",
		})
	}
}

func ListDocumentsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, err)
			return
		}

		names, ok := resp.([]string)
		if !ok {
			abort(c, errors.New("invalid response type"))
			return
		}

		if names == nil {
			names = []string{}
		}

		c.JSON(http.StatusOK, gin.H{"stored_files": names})
	}
}
