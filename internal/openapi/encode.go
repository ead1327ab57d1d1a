package openapi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"sigs.k8s.io/yaml"
)

// Format is an output serialization.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the serialization from an output file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// MarshalJSON encodes v with sorted map keys. An empty indent produces
// compact output.
func MarshalJSON(v any, indent string) ([]byte, error) {
	opts := []json.Options{json.Deterministic(true)}
	if indent != "" {
		opts = append(opts, jsontext.WithIndent(indent))
	}
	data, err := json.Marshal(v, opts...)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Encode serializes the document in the given format.
func (doc *Document) Encode(format Format, indent string) ([]byte, error) {
	data, err := MarshalJSON(doc, indent)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	if format == FormatYAML {
		out, err := yaml.JSONToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("converting document to YAML: %w", err)
		}
		return out, nil
	}
	return data, nil
}

// WriteFile writes data atomically: a temp file in the target directory is
// renamed over path.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
