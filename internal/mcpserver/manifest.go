package mcpserver

import (
	"encoding/json"
)

// Manifest is the MCP registry server.json document.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes one way to install and launch the server.
type Package struct {
	RegistryType     string     `json:"registryType"`
	Identifier       string     `json:"identifier"`
	PackageArguments []Argument `json:"packageArguments,omitempty"`
	Transport        Transport  `json:"transport"`
}

type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

type Transport struct {
	Type string `json:"type"`
}

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// GenerateManifest returns the indented server.json for version.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/sweep",
		Description: "Resolves safe, mechanical TODO comments in JavaScript and TypeScript codebases",
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/panbanda/sweep",
			Source: "github",
		},
		Packages: []Package{
			{
				RegistryType:     "oci",
				Identifier:       "ghcr.io/panbanda/sweep:" + version,
				PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
				Transport:        Transport{Type: "stdio"},
			},
		},
	}

	return json.MarshalIndent(manifest, "", "  ")
}
