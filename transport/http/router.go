package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/docqa"

	mcpE "github.com/flarexio/docqa/mcp"
)

func AddRouters(r *gin.Engine, endpoints docqa.EndpointSet, maxFileSize int64) {
	r.Use(CORS())

	api := r.Group("/api")
	{
		api.POST("/upload", UploadHandler(endpoints.Upload, maxFileSize))
		api.GET("/upload/:batch_id", UploadStatusHandler(endpoints.UploadStatus))
		api.POST("/ask", AskHandler(endpoints.Ask))
		api.DELETE("/delete", DeleteDocumentHandler(endpoints.DeleteDocument))
		api.GET("/documents", ListDocumentsHandler(endpoints.ListDocuments))
	}

	r.GET("/debug", ListDocumentsHandler(endpoints.ListDocuments))
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}

// CORS allows any origin, matching a browser frontend served elsewhere.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
