// Package config loads the tsoapi configuration file and applies its
// defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"gopkg.in/yaml.v3"

	"github.com/tsgonest/tsoapi/internal/diagnostic"
)

// FileNames are the configuration files Discover looks for, in order.
var FileNames = []string{
	"tsoapi.config.json",
	"tsoapi.config.yaml",
	"tsoapi.config.yml",
	"ts-openapi-generator.json",
}

const (
	DefaultOutputFile = "openapi.json"
	DefaultFiles      = "src/**/*.ts"
)

// Config represents the tsoapi configuration.
type Config struct {
	Info    InfoConfig     `json:"info" yaml:"info"`
	Servers []ServerConfig `json:"servers,omitempty" yaml:"servers,omitempty"`
	// SecuritySchemes are emitted as components.securitySchemes.
	SecuritySchemes map[string]SecuritySchemeConfig `json:"securitySchemes,omitempty" yaml:"securitySchemes,omitempty"`
	// SecurityTemplates map a template name to scheme name -> scopes. The ""
	// template is the default and is required when security is configured.
	SecurityTemplates map[string]map[string][]string `json:"securityTemplates,omitempty" yaml:"securityTemplates,omitempty"`
	OutputFile        string                         `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
	Indent            Indent                         `json:"indent,omitzero" yaml:"indent,omitempty"`
	// Files are the entry globs, relative to the config directory.
	Files   []string `json:"files,omitempty" yaml:"files,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	// Paths and BaseURL mirror tsconfig compilerOptions for module aliases.
	Paths   map[string][]string `json:"paths,omitempty" yaml:"paths,omitempty"`
	BaseURL string              `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
}

// InfoConfig holds the document info object.
type InfoConfig struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ServerConfig represents an API server in the document.
type ServerConfig struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SecuritySchemeConfig represents a security scheme in the document.
type SecuritySchemeConfig struct {
	Type             string         `json:"type" yaml:"type"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	Name             string         `json:"name,omitempty" yaml:"name,omitempty"`
	In               string         `json:"in,omitempty" yaml:"in,omitempty"`
	Scheme           string         `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	BearerFormat     string         `json:"bearerFormat,omitempty" yaml:"bearerFormat,omitempty"`
	Flows            map[string]any `json:"flows,omitempty" yaml:"flows,omitempty"`
	OpenIDConnectURL string         `json:"openIdConnectUrl,omitempty" yaml:"openIdConnectUrl,omitempty"`
}

// Indent is the JSON output indentation. It decodes from a string or from a
// number of spaces; both are capped at ten characters.
type Indent string

const maxIndent = 10

func indentFromNumber(n int) Indent {
	n = max(0, min(n, maxIndent))
	return Indent(strings.Repeat(" ", n))
}

func indentFromString(s string) Indent {
	if len(s) > maxIndent {
		s = s[:maxIndent]
	}
	return Indent(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Indent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = indentFromString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("indent must be a string or a number: %w", err)
	}
	*i = indentFromNumber(int(n))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *Indent) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!int" || node.Tag == "!!float" {
		var n float64
		if err := node.Decode(&n); err != nil {
			return err
		}
		*i = indentFromNumber(int(n))
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("indent must be a string or a number: %w", err)
	}
	*i = indentFromString(s)
	return nil
}

// Discover returns the first configuration file found in dir.
func Discover(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", diagnostic.Errorf(diagnostic.CategoryConfigMissing,
		"no configuration file found in %s (looked for %s)", dir, strings.Join(FileNames, ", "))
}

// Load reads and parses a config file, applies defaults from the
// package.json next to it, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	pkg, err := readPackageJSON(filepath.Join(filepath.Dir(path), "package.json"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults(pkg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML for ".yaml"/".yml" extensions and JSON otherwise.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// PackageJSON holds the package.json fields used as info defaults.
type PackageJSON struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

func readPackageJSON(path string) (PackageJSON, error) {
	var pkg PackageJSON
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return pkg, nil
	}
	if err != nil {
		return pkg, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return pkg, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	return pkg, nil
}

// ApplyDefaults fills empty info fields from package.json and sets the
// default output file and entry globs.
func (c *Config) ApplyDefaults(pkg PackageJSON) {
	if c.Info.Title == "" {
		c.Info.Title = pkg.Name
	}
	if c.Info.Version == "" {
		c.Info.Version = pkg.Version
	}
	if c.Info.Description == "" {
		c.Info.Description = pkg.Description
	}
	if c.OutputFile == "" {
		c.OutputFile = DefaultOutputFile
	}
	if len(c.Files) == 0 {
		c.Files = []string{DefaultFiles}
	}
}

// SecurityConfigured reports whether either security key is present in the
// file, even with an empty value.
func (c *Config) SecurityConfigured() bool {
	return c.SecuritySchemes != nil || c.SecurityTemplates != nil
}

// Validate checks the fields generation cannot proceed without.
func (c *Config) Validate() error {
	if c.Info.Title == "" {
		return diagnostic.Errorf(diagnostic.CategoryConfigMissing, "Missing required field info.title")
	}
	if c.Info.Version == "" {
		return diagnostic.Errorf(diagnostic.CategoryConfigMissing, "Missing required field info.version")
	}
	if c.SecurityConfigured() {
		if _, ok := c.SecurityTemplates[""]; !ok {
			return diagnostic.Errorf(diagnostic.CategoryConfigMissing,
				`securityTemplates must define a default template with the key ""`)
		}
	}
	return nil
}
