// Package buildcache lets tsoapi skip regeneration when nothing that feeds
// the document has changed.
//
// The cache is conservative: the effective settings, the set of root files,
// every parsed source file, the tool version and the written outputs must all
// be unchanged for a hit.
// Any mismatch regenerates the whole document.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// SchemaVersion is bumped when the cache format changes.
const SchemaVersion = 1

// FileName is the cache file written next to the output document.
const FileName = ".tsoapi-cache"

// Cache records what was true when the document was last written.
type Cache struct {
	// V is the schema version. Must match SchemaVersion or cache is invalid.
	V           int    `json:"v"`
	ToolVersion string `json:"toolVersion"`
	// ConfigHash is HashConfig of the settings and root files of the run.
	ConfigHash string `json:"configHash"`
	// Inputs are the source files the last run parsed, imports included.
	Inputs []string `json:"inputs"`
	// InputHash is HashInputs(Inputs) at the time of the run.
	InputHash string `json:"inputHash"`
	// Outputs lists files that must still exist for the cache to be valid.
	Outputs []string `json:"outputs"`
}

// CachePath returns the cache path for the given output document.
func CachePath(outputFile string) string {
	return filepath.Join(filepath.Dir(outputFile), FileName)
}

// Load reads a cache file. It returns nil when the file is missing or
// unreadable; callers treat nil as a miss.
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}

// Save writes the cache atomically.
func Save(path string, cache *Cache) error {
	data, err := json.Marshal(cache, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Delete removes the cache file. Errors are ignored.
func Delete(path string) {
	os.Remove(path)
}

// IsValid reports whether the cache matches the current run:
//
//  1. schema and tool versions match
//  2. the config hash matches
//  3. every root file was an input last time and no input changed
//  4. all outputs still exist on disk
func (c *Cache) IsValid(toolVersion, configHash string, roots []string) bool {
	if c == nil {
		return false
	}
	if c.V != SchemaVersion || c.ToolVersion != toolVersion {
		return false
	}
	if c.ConfigHash != configHash {
		return false
	}
	for _, root := range roots {
		if !slices.Contains(c.Inputs, root) {
			return false
		}
	}
	if HashInputs(c.Inputs) != c.InputHash {
		return false
	}
	for _, path := range c.Outputs {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// HashConfig digests the settings a run was made with, after defaults and
// command-line overrides are applied, together with its root files. Any
// value that marshals to JSON can be used as settings.
func HashConfig(settings any, roots []string) (string, error) {
	data, err := json.Marshal(settings, json.Deterministic(true))
	if err != nil {
		return "", fmt.Errorf("hashing config: %w", err)
	}
	sorted := slices.Clone(roots)
	slices.Sort(sorted)

	h := sha256.New()
	h.Write(data)
	for _, root := range slices.Compact(sorted) {
		fmt.Fprintf(h, "\x00%s", root)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashInputs digests the sorted file list together with each file's
// content. A file that can't be read contributes its path only, so the
// hash still changes when it disappears.
func HashInputs(files []string) string {
	sorted := slices.Clone(files)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	h := sha256.New()
	for _, path := range sorted {
		fmt.Fprintf(h, "%s\x00", path)
		if data, err := os.ReadFile(path); err == nil {
			sum := sha256.Sum256(data)
			h.Write(sum[:])
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// New creates a cache record with the current schema version, hashing
// inputs as they are now.
func New(toolVersion, configHash string, inputs, outputs []string) *Cache {
	sorted := slices.Clone(inputs)
	slices.Sort(sorted)
	return &Cache{
		V:           SchemaVersion,
		ToolVersion: toolVersion,
		ConfigHash:  configHash,
		Inputs:      slices.Compact(sorted),
		InputHash:   HashInputs(inputs),
		Outputs:     outputs,
	}
}
