package app

import (
	"context"

	"tsintrospect/internal/core/ports"
	"tsintrospect/internal/core/watcher"
	"tsintrospect/internal/engine/project"
)

// WatchProject introspects the project once, then again with Refresh set
// after every debounced batch of changes under its root. Runs are
// sequential. It blocks until ctx is done; only setup failures are
// returned.
func (in *Introspector) WatchProject(ctx context.Context, opts ports.ProjectOptions, emit func(ports.WatchUpdate)) error {
	loc, err := project.Locate(opts.ProjectPath, opts.TSConfigPath, in.cwd)
	if err != nil {
		return err
	}
	allowJS := in.cfg.Analyzer.AllowJS
	if tsconfig, err := project.LoadConfig(loc.ConfigPath); err == nil {
		allowJS = allowJS || tsconfig.AllowJS
	}

	records, err := in.IntrospectProject(ctx, opts)
	emit(ports.WatchUpdate{Records: records, Err: err})

	refresh := opts
	refresh.Refresh = true
	w, err := watcher.NewWatcher(in.cfg.Watch.Debounce, in.cfg.Watch.Exclude, func(paths []string) {
		if ctx.Err() != nil {
			return
		}
		in.logger.Info("project changed", "files", len(paths))
		records, err := in.IntrospectProject(ctx, refresh)
		emit(ports.WatchUpdate{Changed: paths, Records: records, Err: err})
	})
	if err != nil {
		return err
	}
	defer w.Close()
	w.SetLogger(in.logger.With("component", "watcher"))
	w.SetAllowJS(allowJS)

	if err := w.Watch([]string{loc.Root}); err != nil {
		return err
	}
	in.logger.Info("watching project", "root", loc.Root)
	<-ctx.Done()
	return nil
}
