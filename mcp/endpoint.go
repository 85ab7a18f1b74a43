package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/docqa"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func ErrorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

func resultResponse(id mcp.RequestId, result any) mcp.JSONRPCResponse {
	return mcp.JSONRPCResponse{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Result:  result,
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `DocQA answers questions about uploaded documents (PDF, DOCX, TXT).

Documents are uploaded over HTTP or NATS; at most five are held in memory at once.

Available tools:
- list_documents: names of the documents that can be asked about
- ask_document: ask a question, optionally about one named document
- delete_document: remove a document to free a slot

Questions that ask to summarize, to list important points, or to give questions
are answered with a dedicated prompt.`

const (
	ToolAskDocument    = "ask_document"
	ToolListDocuments  = "list_documents"
	ToolDeleteDocument = "delete_document"
)

// Tools lists every tool this server exposes.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolAskDocument,
			mcp.WithDescription("Ask a question, grounded in an uploaded document when filename is given"),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question to answer"),
			),
			mcp.WithString("filename",
				mcp.Description("Name of an uploaded document; omit to use general knowledge"),
			),
		),
		mcp.NewTool(ToolListDocuments,
			mcp.WithDescription("List the documents currently held in memory"),
		),
		mcp.NewTool(ToolDeleteDocument,
			mcp.WithDescription("Delete an uploaded document"),
			mcp.WithString("filename",
				mcp.Required(),
				mcp.Description("Name of the document to delete"),
			),
		),
	}
}

func InitializeEndpoint(svc docqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "docqa",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return resultResponse(req.ID, result)
	}
}

func PingEndpoint(svc docqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return resultResponse(req.ID, struct{}{})
	}
}

func ListToolsEndpoint(svc docqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return resultResponse(req.ID, result)
	}
}

type toolArguments struct {
	Question string `json:"question"`
	Filename string `json:"filename"`
}

// CallToolEndpoint runs a tool against the service. Service failures are
// reported as tool errors so the client model can read them; malformed
// calls are protocol errors.
func CallToolEndpoint(svc docqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var args toolArguments
		if params.Arguments != nil {
			bs, err := json.Marshal(params.Arguments)
			if err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}

			if err := json.Unmarshal(bs, &args); err != nil {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}
		}

		result, err := callTool(ctx, svc, params.Name, args)
		if err != nil {
			if errors.Is(err, errUnknownTool) {
				return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error()+": "+params.Name)
			}

			return resultResponse(req.ID, mcp.NewToolResultError(err.Error()))
		}

		return resultResponse(req.ID, result)
	}
}

var errUnknownTool = errors.New("unknown tool")

func callTool(ctx context.Context, svc docqa.Service, name string, args toolArguments) (*mcp.CallToolResult, error) {
	switch name {
	case ToolAskDocument:
		answer, err := svc.Ask(ctx, args.Question, args.Filename)
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(answer), nil

	case ToolListDocuments:
		names, err := svc.ListDocuments(ctx)
		if err != nil {
			return nil, err
		}

		bs, err := json.Marshal(names)
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(string(bs)), nil

	case ToolDeleteDocument:
		if err := svc.DeleteDocument(ctx, args.Filename); err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(args.Filename + " has been deleted."), nil

	default:
		return nil, errUnknownTool
	}
}

// MakeEndpoints returns the MCP methods served for svc, keyed by method.
func MakeEndpoints(svc docqa.Service) map[mcp.MCPMethod]MCPEndpoint {
	return map[mcp.MCPMethod]MCPEndpoint{
		mcp.MethodInitialize: InitializeEndpoint(svc),
		mcp.MethodPing:       PingEndpoint(svc),
		mcp.MethodToolsList:  ListToolsEndpoint(svc),
		mcp.MethodToolsCall:  CallToolEndpoint(svc),
	}
}
