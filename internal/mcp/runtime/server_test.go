package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tsintrospect/internal/core/app"
	"tsintrospect/internal/core/config"
	"tsintrospect/internal/mcp/contracts"
	"tsintrospect/internal/mcp/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	startFn func(ctx context.Context, handler transport.Handler) error
	rpm     int
	burst   int
}

func (f *fakeTransport) Start(ctx context.Context, handler transport.Handler) error {
	if f.startFn != nil {
		return f.startFn(ctx, handler)
	}
	return nil
}

func (f *fakeTransport) Stop() error { return nil }

func (f *fakeTransport) SetRate(rpm, burst int) {
	f.rpm, f.burst = rpm, burst
}

func newTestServer(t *testing.T, cwd string, tr transport.Adapter) *Server {
	t.Helper()
	cfg := config.Default()
	server, err := New(cfg, Dependencies{Introspector: app.New(app.Dependencies{Config: cfg, WorkingDir: cwd})}, tr)
	require.NoError(t, err)
	return server
}

func TestServer_StartDispatchesTools(t *testing.T) {
	root := t.TempDir()
	pkg := filepath.Join(root, "node_modules", "tiny")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "package.json"), []byte(`{"name":"tiny","types":"index.d.ts"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "index.d.ts"), []byte("export declare const size: number;\n"), 0o644))

	var got []any
	tr := &fakeTransport{startFn: func(ctx context.Context, handler transport.Handler) error {
		for _, call := range []struct {
			tool string
			args map[string]any
		}{
			{contracts.ToolIntrospectPackage, map[string]any{"packageName": "tiny"}},
			{contracts.ToolIntrospectSource, map[string]any{"source": "export type A = 1;"}},
		} {
			out, err := handler(ctx, call.tool, call.args)
			if err != nil {
				return err
			}
			got = append(got, out)
		}
		return nil
	}}

	server := newTestServer(t, root, tr)
	require.NoError(t, server.Start(context.Background()))
	require.Len(t, got, 2)

	first := got[0].(map[string]any)
	assert.Equal(t, contracts.ToolIntrospectPackage, first["tool"])
	pkgOut := first["result"].(contracts.IntrospectOutput)
	require.Equal(t, 1, pkgOut.Count)
	assert.Equal(t, "size", pkgOut.Exports[0].Name)

	srcOut := got[1].(map[string]any)["result"].(contracts.IntrospectOutput)
	assert.Equal(t, "A", srcOut.Exports[0].Name)

	assert.NoError(t, server.Stop())
}

func TestServer_ErrorMapping(t *testing.T) {
	server := newTestServer(t, t.TempDir(), &fakeTransport{})

	_, err := server.handleToolCall(context.Background(), contracts.ToolIntrospectPackage, map[string]any{"packageName": "x", "searchTerm": "("})
	var toolErr contracts.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, contracts.ErrorInvalidArgument, toolErr.Code)
	assert.Equal(t, "INVALID_PATTERN", toolErr.Details["domain_code"])

	_, err = server.handleToolCall(context.Background(), contracts.ToolIntrospectProject, map[string]any{"projectPath": "missing"})
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, contracts.ErrorInvalidArgument, toolErr.Code)

	_, err = server.handleToolCall(context.Background(), "unknown", nil)
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, contracts.ErrorInvalidArgument, toolErr.Code)
}

func TestServer_MissingPackageIsEmptyResult(t *testing.T) {
	server := newTestServer(t, t.TempDir(), &fakeTransport{})

	out, err := server.handleToolCall(context.Background(), contracts.ToolIntrospectPackage, map[string]any{"packageName": "ghost"})
	require.NoError(t, err)
	result := out.(map[string]any)["result"].(contracts.IntrospectOutput)
	assert.Zero(t, result.Count)
}

func TestServer_Reload(t *testing.T) {
	tr := &fakeTransport{}
	server := newTestServer(t, t.TempDir(), tr)

	cfg := config.Default()
	cfg.Server.RequestsPerMinute = 30
	cfg.Server.Burst = 3
	cfg.Introspect.Limit = 7
	server.Reload(cfg)

	assert.Equal(t, 30, tr.rpm)
	assert.Equal(t, 3, tr.burst)
	assert.Equal(t, 7, server.callDefaults().Limit)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, Dependencies{}, &fakeTransport{})
	assert.Error(t, err)
	_, err = New(config.Default(), Dependencies{}, &fakeTransport{})
	assert.Error(t, err)
}
