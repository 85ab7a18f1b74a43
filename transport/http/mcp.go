package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	mcpE "github.com/flarexio/docqa/mcp"
)

func MCPStreamableHandler(endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req mcpE.JSONRPCRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusBadRequest,
				mcpE.ErrorResponse(req.ID, mcp.PARSE_ERROR, "parse error"))
			return
		}

		// notifications carry no id and expect no response
		if req.ID.IsNil() {
			c.Status(http.StatusAccepted)
			return
		}

		endpoint, ok := endpoints[req.Method]
		if !ok {
			c.Error(errors.New("method not found: " + string(req.Method)))
			c.AbortWithStatusJSON(http.StatusNotFound,
				mcpE.ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "method not found"))
			return
		}

		ctx := c.Request.Context()
		resp := endpoint(ctx, req)

		c.JSON(http.StatusOK, &resp)
	}
}
