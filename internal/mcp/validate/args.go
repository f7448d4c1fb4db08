package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"tsintrospect/internal/core/ports"
	"tsintrospect/internal/mcp/contracts"
)

const (
	maxPathCount     = 64
	maxPackageLength = 214
	maxFilterLength  = 200
	maxSourceBytes   = 1 << 20
)

// ParseToolArgs decodes raw arguments into the typed input for tool.
func ParseToolArgs(tool string, raw map[string]any) (any, error) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool name is required"}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	switch tool {
	case contracts.ToolIntrospectPackage:
		var input contracts.IntrospectPackageInput
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		input.PackageName = strings.TrimSpace(input.PackageName)
		if input.PackageName == "" {
			return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "packageName is required"}
		}
		if len(input.PackageName) > maxPackageLength {
			return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "packageName is too long"}
		}
		input.SearchPaths = normalizeStrings(input.SearchPaths, maxPathCount)
		if err := validateFilter(input.SearchTerm); err != nil {
			return nil, err
		}
		return input, nil
	case contracts.ToolIntrospectSource:
		var input contracts.IntrospectSourceInput
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		if _, ok := raw["source"].(string); !ok {
			return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "source is required"}
		}
		if len(input.Source) > maxSourceBytes {
			return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "source is too large"}
		}
		return input, nil
	case contracts.ToolIntrospectProject:
		var input contracts.IntrospectProjectInput
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		input.ProjectPath = strings.TrimSpace(input.ProjectPath)
		input.TSConfigPath = strings.TrimSpace(input.TSConfigPath)
		if err := validateFilter(input.SearchTerm); err != nil {
			return nil, err
		}
		return input, nil
	default:
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}
}

// PackageOptions overlays input on the server defaults.
func PackageOptions(in contracts.IntrospectPackageInput, defaults ports.IntrospectOptions) ports.IntrospectOptions {
	opts := defaults
	if len(in.SearchPaths) > 0 {
		opts.SearchPaths = append(append([]string(nil), in.SearchPaths...), defaults.SearchPaths...)
	}
	applyCommon(&opts, in.SearchTerm, in.Cache, in.CacheDir, in.Limit, in.Refresh)
	return opts
}

// ProjectOptions overlays input on the server defaults.
func ProjectOptions(in contracts.IntrospectProjectInput, defaults ports.IntrospectOptions) ports.ProjectOptions {
	opts := ports.ProjectOptions{IntrospectOptions: defaults, ProjectPath: in.ProjectPath, TSConfigPath: in.TSConfigPath}
	applyCommon(&opts.IntrospectOptions, in.SearchTerm, in.Cache, in.CacheDir, in.Limit, in.Refresh)
	return opts
}

func applyCommon(opts *ports.IntrospectOptions, term string, cache *bool, cacheDir string, limit int, refresh bool) {
	opts.SearchTerm = term
	if cache != nil {
		opts.Cache = *cache
	}
	if dir := strings.TrimSpace(cacheDir); dir != "" {
		opts.CacheDir = dir
	}
	// Zero means unset; a negative limit explicitly lifts the default.
	if limit != 0 {
		opts.Limit = limit
	}
	opts.Refresh = refresh
}

func validateFilter(term string) error {
	if len(term) > maxFilterLength {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "searchTerm is too long"}
	}
	return nil
}

func decodeParams(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params encoding"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params", Details: map[string]any{"error": err.Error()}}
	}
	return nil
}

func normalizeStrings(values []string, maxCount int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if seen[trimmed] {
			continue
		}
		if maxCount > 0 && len(out) >= maxCount {
			break
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}
