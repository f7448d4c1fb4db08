package contracts

import "tsintrospect/internal/core/model"

const (
	ServerName      = "tsintrospect"
	ContractVersion = "v1"
)

const (
	ToolIntrospectPackage = "introspect-package"
	ToolIntrospectSource  = "introspect-source"
	ToolIntrospectProject = "introspect-project"
)

// ToolNames lists every tool in the order tools/list reports them.
var ToolNames = []string{ToolIntrospectPackage, ToolIntrospectSource, ToolIntrospectProject}

type IntrospectPackageInput struct {
	PackageName string   `json:"packageName"`
	SearchPaths []string `json:"searchPaths,omitempty"`
	SearchTerm  string   `json:"searchTerm,omitempty"`
	Cache       *bool    `json:"cache,omitempty"`
	CacheDir    string   `json:"cacheDir,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Refresh     bool     `json:"refresh,omitempty"`
}

type IntrospectSourceInput struct {
	Source string `json:"source"`
}

type IntrospectProjectInput struct {
	ProjectPath  string `json:"projectPath,omitempty"`
	TSConfigPath string `json:"tsconfigPath,omitempty"`
	SearchTerm   string `json:"searchTerm,omitempty"`
	Cache        *bool  `json:"cache,omitempty"`
	CacheDir     string `json:"cacheDir,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Refresh      bool   `json:"refresh,omitempty"`
}

type IntrospectOutput struct {
	Count   int                  `json:"count"`
	Exports []model.ExportRecord `json:"exports"`
	// Note explains an empty package result.
	Note string `json:"note,omitempty"`
}

type ToolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e ToolError) Error() string {
	return e.Message
}

const (
	ErrorInvalidArgument = "invalid_argument"
	ErrorNotFound        = "not_found"
	ErrorInternal        = "internal"
	ErrorUnavailable     = "unavailable"
	ErrorRateLimited     = "rate_limited"
)
