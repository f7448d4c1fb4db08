package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tsintrospect/internal/core/app"
	"tsintrospect/internal/core/config"
	domainerrors "tsintrospect/internal/core/errors"
	"tsintrospect/internal/core/ports"
	"tsintrospect/internal/mcp/contracts"
	"tsintrospect/internal/mcp/tools/introspect"
	"tsintrospect/internal/mcp/transport"
	"tsintrospect/internal/mcp/validate"
)

const defaultRequestTimeout = 2 * time.Minute

type Dependencies struct {
	Introspector ports.Introspector
	Logger       *slog.Logger
}

// rateTuner is implemented by transports whose limiter can change live.
type rateTuner interface {
	SetRate(rpm, burst int)
}

type Server struct {
	deps      Dependencies
	transport transport.Adapter

	cfgMu    sync.RWMutex
	cfg      *config.Config
	defaults ports.IntrospectOptions

	mu      sync.Mutex
	running bool
}

func New(cfg *config.Config, deps Dependencies, adapter transport.Adapter) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Introspector == nil {
		return nil, fmt.Errorf("introspector dependency is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		deps:      deps,
		transport: adapter,
		cfg:       cfg,
		defaults:  app.OptionsFromConfig(cfg),
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
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

	s.deps.Logger.Info("tool server active", "tools", strings.Join(contracts.ToolNames, ","))
	err := s.transport.Start(ctx, s.handleToolCall)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return err
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.transport.Stop()
}

// Reload swaps in new call defaults and rate limits. Calls already in
// flight keep the values they started with.
func (s *Server) Reload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.defaults = app.OptionsFromConfig(cfg)
	s.cfgMu.Unlock()

	if tuner, ok := s.transport.(rateTuner); ok {
		tuner.SetRate(cfg.Server.RequestsPerMinute, cfg.Server.Burst)
	}
	s.deps.Logger.Info("tool server configuration reloaded")
}

func (s *Server) callDefaults() ports.IntrospectOptions {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	opts := s.defaults
	opts.SearchPaths = append([]string(nil), s.defaults.SearchPaths...)
	return opts
}

func (s *Server) handleToolCall(ctx context.Context, tool string, raw map[string]any) (any, error) {
	input, err := validate.ParseToolArgs(tool, raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	defaults := s.callDefaults()
	var out any
	switch in := input.(type) {
	case contracts.IntrospectPackageInput:
		out, err = introspect.HandlePackage(ctx, s.deps.Introspector, in, defaults)
	case contracts.IntrospectSourceInput:
		out, err = introspect.HandleSource(ctx, s.deps.Introspector, in)
	case contracts.IntrospectProjectInput:
		out, err = introspect.HandleProject(ctx, s.deps.Introspector, in, defaults)
	default:
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}
	if err != nil {
		s.deps.Logger.Warn("tool call failed", "tool", tool, "error", err)
		return nil, toToolError(err)
	}
	return wrapToolResult(tool, out), nil
}

func wrapToolResult(tool string, payload any) any {
	return map[string]any{
		"version": contracts.ContractVersion,
		"tool":    tool,
		"result":  payload,
	}
}

func toToolError(err error) error {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "request timed out"}
	}

	code := contracts.ErrorInternal
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeNotFound, domainerrors.CodeNoDeclarations:
		code = contracts.ErrorNotFound
	case domainerrors.CodeInvalidPattern, domainerrors.CodeInvalidProject, domainerrors.CodeValidationError, domainerrors.CodeNotSupported:
		code = contracts.ErrorInvalidArgument
	}
	return contracts.ToolError{Code: code, Message: err.Error(), Details: detailsOf(err)}
}

func detailsOf(err error) map[string]any {
	var de *domainerrors.DomainError
	if !errors.As(err, &de) || len(de.Context) == 0 {
		return nil
	}
	out := make(map[string]any, len(de.Context)+1)
	for k, v := range de.Context {
		out[k] = v
	}
	out["domain_code"] = string(de.Code)
	return out
}
