package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

var schemeTypes = []string{"apiKey", "http", "oauth2", "openIdConnect"}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}

	if c.Info.Title == "" {
		result.Errors = append(result.Errors, "info.title: required (or set \"name\" in package.json)")
	}
	if c.Info.Version == "" {
		result.Errors = append(result.Errors, "info.version: required (or set \"version\" in package.json)")
	}

	for i, s := range c.Servers {
		if s.URL == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("servers[%d].url: required", i))
		}
	}

	for _, pattern := range c.Files {
		if !strings.ContainsAny(pattern, "*?[") && !strings.HasSuffix(pattern, ".ts") && !strings.HasSuffix(pattern, ".tsx") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("files: pattern %q doesn't contain a wildcard or .ts extension, did you mean %q?", pattern, strings.TrimSuffix(pattern, "/")+"/**/*.ts"))
		}
	}

	if c.OutputFile != "" {
		ext := filepath.Ext(c.OutputFile)
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("outputFile: extension %q is unusual, expected .json, .yaml, or .yml (JSON will be written)", ext))
		}
	}

	for _, name := range slices.Sorted(maps.Keys(c.SecuritySchemes)) {
		scheme := c.SecuritySchemes[name]
		prefix := "securitySchemes." + name
		switch {
		case !slices.Contains(schemeTypes, scheme.Type):
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s.type: invalid value %q, must be one of %s", prefix, scheme.Type, strings.Join(schemeTypes, ", ")))
		case scheme.Type == "apiKey" && (scheme.Name == "" || scheme.In == ""):
			result.Errors = append(result.Errors, prefix+": apiKey schemes require name and in")
		case scheme.Type == "http" && scheme.Scheme == "":
			result.Errors = append(result.Errors, prefix+": http schemes require scheme")
		}
	}

	if c.SecurityConfigured() {
		if _, ok := c.SecurityTemplates[""]; !ok {
			result.Errors = append(result.Errors, `securityTemplates: a default template with the key "" is required when security is configured`)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(c.SecurityTemplates)) {
		for _, scheme := range slices.Sorted(maps.Keys(c.SecurityTemplates[name])) {
			if _, ok := c.SecuritySchemes[scheme]; !ok {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("securityTemplates[%q]: scheme %q is not defined in securitySchemes", name, scheme))
			}
		}
	}

	return result
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}
