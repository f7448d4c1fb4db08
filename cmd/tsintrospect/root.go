package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"tsintrospect/internal/core/app"
	"tsintrospect/internal/core/config"
	"tsintrospect/internal/core/errors"
	"tsintrospect/internal/engine/resolver"
	"tsintrospect/internal/shared/observability"

	"github.com/spf13/cobra"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// session holds what every subcommand needs once flags are parsed.
type session struct {
	configPath string
	format     string
	verbose    bool

	cwd      string
	cfg      *config.Config
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newRootCmd(version string) *cobra.Command {
	s := &session{}

	cmd := &cobra.Command{
		Use:           "tsintrospect",
		Short:         "List the public API of TypeScript packages, sources and projects",
		Long:          "tsintrospect reads TypeScript declaration files and sources and reports their exported functions, classes, types and constants.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return s.teardown(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&s.configPath, "config", "", "path to config file (default ./"+config.DefaultFileName+" when present)")
	flags.StringVar(&s.format, "format", formatJSON, "output format: json or table")
	flags.BoolVar(&s.verbose, "verbose", false, "log debug output to stderr")

	cmd.AddCommand(
		newPackageCmd(s),
		newSourceCmd(s),
		newProjectCmd(s),
		newServeCmd(s),
	)
	return cmd
}

func (s *session) setup(cmd *cobra.Command) error {
	if s.format != formatJSON && s.format != formatTable {
		return errors.Newf(errors.CodeValidationError, "unknown format %q (want json or table)", s.format)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	s.cwd = cwd

	cfg, err := config.LoadOptional(s.configFile())
	if err != nil {
		return err
	}
	config.ResolvePaths(cfg, cwd)
	s.cfg = cfg

	level := cfg.Log.Level
	if s.verbose {
		level = "debug"
	}
	s.logger = config.NewLogger(cmd.ErrOrStderr(), level)
	config.EnvLogger = s.logger.With("component", "config")

	shutdown, err := observability.SetupTracing(cmd.Context(), cfg.Observability.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	s.shutdown = shutdown
	return nil
}

func (s *session) teardown(ctx context.Context) error {
	if s.shutdown == nil {
		return nil
	}
	// The command context may already be canceled by a signal.
	return s.shutdown(context.WithoutCancel(ctx))
}

// configFile is the explicit --config path, or empty to let the loader try
// the default file name.
func (s *session) configFile() string {
	if s.configPath == "" {
		return ""
	}
	return config.ResolveRelative(s.cwd, s.configPath)
}

// watchedConfig is the config file to hot-reload, if one exists.
func (s *session) watchedConfig() (string, bool) {
	path := s.configFile()
	if path == "" {
		path = filepath.Join(s.cwd, config.DefaultFileName)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func (s *session) introspector() *app.Introspector {
	return app.New(app.Dependencies{
		Config:     s.cfg,
		Logger:     s.logger,
		WorkingDir: s.cwd,
		NodePath:   resolver.NodePathFromEnv(),
	})
}

// startMetrics serves /metrics for long-running commands when configured.
func (s *session) startMetrics(ctx context.Context) {
	addr := s.cfg.Observability.MetricsAddr
	if addr == "" {
		return
	}
	srv := observability.MetricsServer(addr)
	go func() {
		s.logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}
