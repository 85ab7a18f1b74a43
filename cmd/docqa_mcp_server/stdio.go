package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	mcpE "github.com/flarexio/docqa/mcp"
)

type StdioMCPServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error
	Listen(ctx context.Context) error
}

func NewStdioMCPServer(in io.Reader, out io.Writer) StdioMCPServer {
	return &stdioMCPServer{
		in:        in,
		out:       out,
		endpoints: make(map[mcp.MCPMethod]mcpE.MCPEndpoint),
	}
}

type stdioMCPServer struct {
	in  io.Reader
	out io.Writer

	endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint

	mu sync.Mutex // guards out
	wg sync.WaitGroup
}

// Listen serves newline-delimited JSON-RPC requests until in is exhausted
// or ctx ends. Requests are handled concurrently so a slow question does
// not block pings; responses may arrive out of order.
func (s *stdioMCPServer) Listen(ctx context.Context) error {
	defer s.wg.Wait()

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lines := make(chan string)
	errs := make(chan error, 1)

	go func(ctx context.Context, lines chan<- string, errs chan<- error) {
		defer close(lines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}(ctx, lines, errs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if line == "" {
				continue
			}

			var req mcpE.JSONRPCRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				s.write(mcpE.ErrorResponse(mcp.NewRequestId(nil), mcp.PARSE_ERROR, "parse error"))
				continue
			}

			// notification
			if req.ID.IsNil() {
				continue
			}

			endpoint, ok := s.endpoints[req.Method]
			if !ok {
				s.write(mcpE.ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "method not found"))
				continue
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.write(endpoint(ctx, req))
			}()
		}
	}
}

func (s *stdioMCPServer) write(msg mcp.JSONRPCMessage) {
	bs, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.out, "%s\n", bs)
}

func (s *stdioMCPServer) AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error {
	_, ok := s.endpoints[method]
	if ok {
		return errors.New("endpoint already exists")
	}

	s.endpoints[method] = endpoint
	return nil
}
