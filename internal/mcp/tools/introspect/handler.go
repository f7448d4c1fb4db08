package introspect

import (
	"context"
	"fmt"
	"strings"

	"tsintrospect/internal/core/model"
	"tsintrospect/internal/core/ports"
	"tsintrospect/internal/mcp/contracts"
	"tsintrospect/internal/mcp/validate"
)

func HandlePackage(ctx context.Context, svc ports.Introspector, in contracts.IntrospectPackageInput, defaults ports.IntrospectOptions) (contracts.IntrospectOutput, error) {
	opts := validate.PackageOptions(in, defaults)
	records, err := svc.IntrospectPackage(ctx, in.PackageName, opts)
	if err != nil {
		return contracts.IntrospectOutput{}, err
	}
	out := output(records)
	if out.Count == 0 {
		out.Note = emptyPackageNote(in.PackageName, opts)
	}
	return out, nil
}

func emptyPackageNote(pkg string, opts ports.IntrospectOptions) string {
	if opts.SearchTerm != "" {
		return fmt.Sprintf("No exports of %s matched searchTerm %q.", pkg, opts.SearchTerm)
	}
	searched := "node_modules in the working directory and its parents, then NODE_PATH"
	if len(opts.SearchPaths) > 0 {
		searched += ", then " + strings.Join(opts.SearchPaths, ", ")
	}
	return fmt.Sprintf("No declaration files found for %s. Searched %s. Pass searchPaths to look in other project directories.", pkg, searched)
}

func HandleSource(ctx context.Context, svc ports.Introspector, in contracts.IntrospectSourceInput) (contracts.IntrospectOutput, error) {
	records, err := svc.IntrospectSource(ctx, in.Source)
	if err != nil {
		return contracts.IntrospectOutput{}, err
	}
	return output(records), nil
}

func HandleProject(ctx context.Context, svc ports.Introspector, in contracts.IntrospectProjectInput, defaults ports.IntrospectOptions) (contracts.IntrospectOutput, error) {
	records, err := svc.IntrospectProject(ctx, validate.ProjectOptions(in, defaults))
	if err != nil {
		return contracts.IntrospectOutput{}, err
	}
	return output(records), nil
}

func output(records []model.ExportRecord) contracts.IntrospectOutput {
	if records == nil {
		records = []model.ExportRecord{}
	}
	return contracts.IntrospectOutput{Count: len(records), Exports: records}
}
