package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"tsintrospect/internal/mcp/contracts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStdio(t *testing.T, s *Stdio, input string, handler Handler) []map[string]any {
	t.Helper()
	var out strings.Builder
	s.in = strings.NewReader(input)
	s.out = &out
	require.NoError(t, s.Start(context.Background(), handler))

	var responses []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var resp map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func echoHandler(_ context.Context, tool string, raw map[string]any) (any, error) {
	if tool == "fail" {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "bad input"}
	}
	return map[string]any{"tool": tool, "args": raw}, nil
}

func TestStdio_RPCMethods(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"introspect-source","arguments":{"source":"x"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"fail"}}`,
		`{"jsonrpc":"2.0","id":5,"method":"nope"}`,
		`{"jsonrpc":"2.0","id":6,"method":"ping"}`,
	}, "\n")

	responses := runStdio(t, NewStdio(nil, nil, 0, 0), input, echoHandler)
	require.Len(t, responses, 6)

	info := responses[0]["result"].(map[string]any)["serverInfo"].(map[string]any)
	assert.Equal(t, contracts.ServerName, info["name"])

	tools := responses[1]["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, len(contracts.ToolNames))

	call := responses[2]["result"].(map[string]any)
	assert.Equal(t, false, call["isError"])
	assert.Equal(t, "introspect-source", call["structuredContent"].(map[string]any)["tool"])

	failed := responses[3]["result"].(map[string]any)
	assert.Equal(t, true, failed["isError"])
	text := failed["content"].([]any)[0].(map[string]any)["text"]
	assert.Equal(t, "invalid_argument: bad input", text)

	assert.Equal(t, float64(codeMethodNotFound), responses[4]["error"].(map[string]any)["code"])
	assert.Equal(t, float64(6), responses[5]["id"])
}

func TestStdio_LegacyToolRequest(t *testing.T) {
	responses := runStdio(t, NewStdio(nil, nil, 0, 0), `{"id":"a","tool":"introspect-package","args":{"packageName":"zod"}}`, echoHandler)
	require.Len(t, responses, 1)
	assert.Equal(t, true, responses[0]["ok"])
	assert.Equal(t, "a", responses[0]["id"])
}

func TestStdio_RateLimited(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n")

	responses := runStdio(t, NewStdio(nil, nil, 1, 1), input, echoHandler)
	require.Len(t, responses, 2)
	assert.Nil(t, responses[0]["error"])
	assert.Equal(t, float64(codeRateLimited), responses[1]["error"].(map[string]any)["code"])
}

func TestStdio_NilHandler(t *testing.T) {
	s := NewStdio(strings.NewReader(""), &strings.Builder{}, 0, 0)
	assert.Error(t, s.Start(context.Background(), nil))
}
