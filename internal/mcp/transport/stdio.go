package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"tsintrospect/internal/mcp/contracts"
	"tsintrospect/internal/mcp/schema"
	"tsintrospect/internal/shared/observability"
	"tsintrospect/internal/shared/util"
)

const (
	protocolVersion = "2025-06-18"

	codeMethodNotFound = -32601
	codeRateLimited    = -32005
)

type Handler func(ctx context.Context, tool string, raw map[string]any) (any, error)

type Adapter interface {
	Start(ctx context.Context, handler Handler) error
	Stop() error
}

// Stdio speaks newline-delimited JSON-RPC 2.0 over a reader/writer pair.
// Requests are served one at a time.
type Stdio struct {
	in      io.Reader
	out     io.Writer
	limiter *util.Limiter

	mu      sync.Mutex
	running bool
}

// NewStdio builds a transport limited to rpm requests per minute with the
// given burst. rpm <= 0 disables limiting.
func NewStdio(in io.Reader, out io.Writer, rpm, burst int) *Stdio {
	return &Stdio{in: in, out: out, limiter: util.NewLimiterPerMinute(rpm, burst)}
}

// SetRate retunes the limiter of a running transport.
func (s *Stdio) SetRate(rpm, burst int) {
	s.limiter.SetPerMinute(rpm, burst)
}

func (s *Stdio) Start(ctx context.Context, handler Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	s.running = true
	s.mu.Unlock()

	err := s.serve(ctx, handler)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (s *Stdio) Stop() error {
	return nil
}

type toolRequest struct {
	ID   any            `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type toolResponse struct {
	ID     any                  `json:"id,omitempty"`
	OK     bool                 `json:"ok"`
	Result any                  `json:"result,omitempty"`
	Error  *contracts.ToolError `json:"error,omitempty"`
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc,omitempty"`
	ID      any            `json:"id,omitempty"`
	Method  string         `json:"method,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (s *Stdio) serve(ctx context.Context, handler Handler) error {
	if handler == nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "stdio handler is required"}
	}

	decoder := json.NewDecoder(bufio.NewReader(s.in))
	writer := bufio.NewWriter(s.out)
	encoder := json.NewEncoder(writer)
	send := func(v any) error {
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return writer.Flush()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var raw map[string]any
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		method, _ := raw["method"].(string)
		if method == "" {
			method = "legacy"
		}

		if !s.limiter.Allow(1) {
			observability.ToolRequestsTotal.WithLabelValues(method, "rate_limited").Inc()
			if err := send(rpcResponse{
				JSONRPC: "2.0",
				ID:      raw["id"],
				Error:   &rpcError{Code: codeRateLimited, Message: "Rate limit exceeded"},
			}); err != nil {
				return err
			}
			continue
		}

		handled, err := s.handleRPCMessage(ctx, handler, raw, send)
		if err != nil {
			return err
		}
		if handled {
			continue
		}

		req := parseLegacyToolRequest(raw)
		if req.Args == nil {
			req.Args = map[string]any{}
		}

		result, callErr := handler(ctx, req.Tool, req.Args)
		resp := toolResponse{ID: req.ID}
		if callErr != nil {
			toolErr := normalizeToolError(callErr)
			resp.Error = &toolErr
			observability.ToolRequestsTotal.WithLabelValues(method, "error").Inc()
		} else {
			resp.OK = true
			resp.Result = result
			observability.ToolRequestsTotal.WithLabelValues(method, "ok").Inc()
		}
		if err := send(resp); err != nil {
			return err
		}
	}
}

func parseLegacyToolRequest(raw map[string]any) toolRequest {
	req := toolRequest{}
	if id, ok := raw["id"]; ok {
		req.ID = id
	}
	if tool, ok := raw["tool"].(string); ok {
		req.Tool = tool
	}
	if args, ok := raw["args"].(map[string]any); ok {
		req.Args = args
	}
	return req
}

func (s *Stdio) handleRPCMessage(ctx context.Context, handler Handler, raw map[string]any, send func(any) error) (bool, error) {
	method, hasMethod := raw["method"].(string)
	if !hasMethod || method == "" {
		return false, nil
	}
	jsonrpc, _ := raw["jsonrpc"].(string)
	if jsonrpc == "" {
		return false, nil
	}

	req := rpcRequest{
		JSONRPC: jsonrpc,
		Method:  method,
		Params:  map[string]any{},
	}
	if id, ok := raw["id"]; ok {
		req.ID = id
	}
	if params, ok := raw["params"].(map[string]any); ok {
		req.Params = params
	}

	if req.Method == "notifications/initialized" {
		return true, nil
	}

	resp := rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}
	outcome := "ok"

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    contracts.ServerName,
				"version": contracts.ContractVersion,
			},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		toolDefs := schema.BuildToolDefinitions()
		tools := make([]map[string]any, 0, len(toolDefs))
		for _, def := range toolDefs {
			tools = append(tools, map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"inputSchema": def.InputSchema,
			})
		}
		resp.Result = map[string]any{"tools": tools}
	case "tools/call":
		name, _ := req.Params["name"].(string)
		args, _ := req.Params["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		result, err := handler(ctx, name, args)
		if err != nil {
			outcome = "error"
			toolErr := normalizeToolError(err)
			resp.Result = map[string]any{
				"isError": true,
				"content": []map[string]any{
					{
						"type": "text",
						"text": fmt.Sprintf("%s: %s", toolErr.Code, toolErr.Message),
					},
				},
			}
		} else {
			resp.Result = map[string]any{
				"isError":           false,
				"structuredContent": result,
				"content": []map[string]any{
					{
						"type": "text",
						"text": mustJSONText(result),
					},
				},
			}
		}
	default:
		outcome = "unknown_method"
		resp.Error = &rpcError{
			Code:    codeMethodNotFound,
			Message: "Method not found",
		}
	}
	observability.ToolRequestsTotal.WithLabelValues(req.Method, outcome).Inc()

	return true, send(resp)
}

func mustJSONText(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func normalizeToolError(err error) contracts.ToolError {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return contracts.ToolError{Code: contracts.ErrorInternal, Message: err.Error()}
}
