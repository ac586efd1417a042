package mcpserver

import "encoding/json"

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	registryName   = "io.github.panbanda/deadwood"
	sourceURL      = "https://github.com/panbanda/deadwood"
	imageName      = "ghcr.io/panbanda/deadwood"
)

type serverManifest struct {
	Schema      string            `json:"$schema"`
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Repository  manifestRepo      `json:"repository"`
	Packages    []manifestPackage `json:"packages"`
}

type manifestRepo struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

type manifestPackage struct {
	RegistryType string            `json:"registryType"`
	Identifier   string            `json:"identifier"`
	Arguments    []manifestArg     `json:"packageArguments"`
	Env          []manifestEnv     `json:"environmentVariables,omitempty"`
	Transport    map[string]string `json:"transport"`
}

type manifestArg struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type manifestEnv struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// GenerateManifest renders the registry server.json for a release. The
// server ships as an OCI image that runs `deadwood mcp` over stdio.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}
	return json.MarshalIndent(serverManifest{
		Schema:      manifestSchema,
		Name:        registryName,
		Title:       "Deadwood",
		Description: "Dead code detection for JavaScript and TypeScript with deletion confidence scores",
		Version:     version,
		Repository:  manifestRepo{URL: sourceURL, Source: "github"},
		Packages: []manifestPackage{{
			RegistryType: "oci",
			Identifier:   imageName + ":" + version,
			Arguments:    []manifestArg{{Type: "positional", Value: "mcp"}},
			Env: []manifestEnv{
				{Name: "DEADWOOD_CONFIG", Description: "Path to a deadwood.toml outside the analyzed project"},
				{Name: "DEADWOOD_NO_CACHE", Description: "Set to true to skip the extraction cache"},
			},
			Transport: map[string]string{"type": "stdio"},
		}},
	}, "", "  ")
}
