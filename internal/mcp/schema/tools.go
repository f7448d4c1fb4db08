package schema

import "tsintrospect/internal/mcp/contracts"

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	Version     string         `json:"version"`
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func filterProps(props map[string]any) map[string]any {
	props["searchTerm"] = stringProp("Case-insensitive regular expression matched against name, signature and description.")
	props["cache"] = map[string]any{"type": "boolean", "description": "Read and write the result cache."}
	props["cacheDir"] = stringProp("Cache directory, relative to the server working directory.")
	props["limit"] = map[string]any{"type": "integer", "description": "Maximum number of records. Zero uses the server default; a negative value means no limit."}
	props["refresh"] = map[string]any{"type": "boolean", "description": "Ignore any cached result and rebuild it."}
	return props
}

func BuildToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        contracts.ToolIntrospectPackage,
			Description: "List the exported API of an installed npm package from its type declarations.",
			Version:     contracts.ContractVersion,
			InputSchema: map[string]any{
				"type": "object",
				"properties": filterProps(map[string]any{
					"packageName": stringProp("Package name, e.g. zod or @scope/pkg."),
					"searchPaths": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Extra directories probed for node_modules, pnpm stores or unpacked packages.",
					},
				}),
				"required": []string{"packageName"},
			},
		},
		{
			Name:        contracts.ToolIntrospectSource,
			Description: "List the exports of a TypeScript snippet.",
			Version:     contracts.ContractVersion,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source": stringProp("TypeScript source text."),
				},
				"required": []string{"source"},
			},
		},
		{
			Name:        contracts.ToolIntrospectProject,
			Description: "List the exports of every file in a TypeScript project.",
			Version:     contracts.ContractVersion,
			InputSchema: map[string]any{
				"type": "object",
				"properties": filterProps(map[string]any{
					"projectPath":  stringProp("Project root. Defaults to the nearest directory with a tsconfig.json."),
					"tsconfigPath": stringProp("Explicit tsconfig path."),
				}),
			},
		},
	}
}
