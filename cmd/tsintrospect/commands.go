package main

import (
	"io"
	"os"

	"tsintrospect/internal/core/config"
	"tsintrospect/internal/core/errors"
	"tsintrospect/internal/core/ports"
	"tsintrospect/internal/mcp/runtime"
	"tsintrospect/internal/mcp/transport"

	"github.com/spf13/cobra"
)

// introspectFlags are shared by the package and project commands. Only
// flags set on the command line override the config file.
type introspectFlags struct {
	searchTerm  string
	cache       bool
	cacheDir    string
	limit       int
	searchPaths []string
	refresh     bool
}

func (f *introspectFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.searchTerm, "search-term", "", "case-insensitive regular expression over name, signature and description")
	flags.BoolVar(&f.cache, "cache", false, "read and write the export cache")
	flags.StringVar(&f.cacheDir, "cache-dir", "", "cache directory (default from config)")
	flags.IntVar(&f.limit, "limit", 0, "maximum number of exports to print, 0 or less for all")
	flags.StringArrayVar(&f.searchPaths, "search-path", nil, "extra directory to search for node_modules (repeatable)")
	flags.BoolVar(&f.refresh, "refresh", false, "ignore cached results and rewrite them")
}

func (f *introspectFlags) options(cmd *cobra.Command, s *session) ports.IntrospectOptions {
	opts := ports.IntrospectOptions{
		SearchPaths: append([]string(nil), s.cfg.Introspect.SearchPaths...),
		Cache:       s.cfg.Introspect.Cache,
		CacheDir:    s.cfg.Introspect.CacheDir,
		Limit:       s.cfg.Introspect.Limit,
		SearchTerm:  f.searchTerm,
		Refresh:     f.refresh,
	}
	flags := cmd.Flags()
	if flags.Changed("cache") {
		opts.Cache = f.cache
	}
	if flags.Changed("cache-dir") {
		opts.CacheDir = config.ResolveRelative(s.cwd, f.cacheDir)
	}
	if flags.Changed("limit") {
		opts.Limit = f.limit
	}
	if flags.Changed("search-path") {
		opts.SearchPaths = opts.SearchPaths[:0]
		for _, p := range f.searchPaths {
			opts.SearchPaths = append(opts.SearchPaths, config.ResolveRelative(s.cwd, p))
		}
	}
	return opts
}

func newPackageCmd(s *session) *cobra.Command {
	var f introspectFlags
	cmd := &cobra.Command{
		Use:   "package <name>",
		Short: "List the exports of an installed package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := f.options(cmd, s)
			records, err := s.introspector().IntrospectPackage(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), s.format, records)
		},
	}
	f.register(cmd)
	return cmd
}

func newSourceCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "source [file|-]",
		Short: "List the exports of a TypeScript source text",
		Long:  "Reads a file, or standard input when the argument is '-' or omitted, and lists its exports with synthesized signatures.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd, args)
			if err != nil {
				return err
			}
			records, err := s.introspector().IntrospectSource(cmd.Context(), src)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), s.format, records)
		},
	}
}

func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, errors.CodeInternal, "read standard input")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Newf(errors.CodeNotFound, "source file %s not found", args[0])
		}
		return "", errors.Wrap(err, errors.CodeInternal, "read source file")
	}
	return string(data), nil
}

func newProjectCmd(s *session) *cobra.Command {
	var (
		f            introspectFlags
		projectPath  string
		tsconfigPath string
		watch        bool
	)
	cmd := &cobra.Command{
		Use:   "project",
		Short: "List the exports of a TypeScript project",
		Long:  "Locates the project root and tsconfig.json, analyzes every source file the config selects and lists their exports.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := ports.ProjectOptions{IntrospectOptions: f.options(cmd, s)}
			if projectPath != "" {
				opts.ProjectPath = config.ResolveRelative(s.cwd, projectPath)
			}
			if tsconfigPath != "" {
				opts.TSConfigPath = config.ResolveRelative(s.cwd, tsconfigPath)
			}

			in := s.introspector()
			if !watch {
				records, err := in.IntrospectProject(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), s.format, records)
			}

			s.startMetrics(cmd.Context())
			out := cmd.OutOrStdout()
			return in.WatchProject(cmd.Context(), opts, func(u ports.WatchUpdate) {
				if u.Err != nil {
					s.logger.Error("project run failed", "error", u.Err)
				}
				if err := renderUpdate(out, s.format, u); err != nil {
					s.logger.Warn("write update", "error", err)
				}
			})
		},
	}
	f.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&projectPath, "project", "", "project directory (default: parent or current directory holding tsconfig.json)")
	flags.StringVar(&tsconfigPath, "tsconfig", "", "tsconfig.json to use; implies the project root")
	flags.BoolVar(&watch, "watch", false, "re-run on every change under the project root")
	return cmd
}

func newServeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the introspection tools as JSON-RPC over stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			adapter := transport.NewStdio(cmd.InOrStdin(), cmd.OutOrStdout(), s.cfg.Server.RequestsPerMinute, s.cfg.Server.Burst)
			srv, err := runtime.New(s.cfg, runtime.Dependencies{
				Introspector: s.introspector(),
				Logger:       s.logger.With("component", "server"),
			}, adapter)
			if err != nil {
				return err
			}

			if path, ok := s.watchedConfig(); ok {
				w := config.NewWatcher(path, s.logger.With("component", "config"), func(cfg *config.Config) {
					config.ResolvePaths(cfg, s.cwd)
					srv.Reload(cfg)
				})
				if err := w.Start(ctx); err != nil {
					s.logger.Warn("config hot reload disabled", "error", err)
				} else {
					defer w.Stop()
				}
			}

			s.startMetrics(ctx)
			defer srv.Stop()
			if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
