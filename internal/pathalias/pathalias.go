// Package pathalias resolves tsconfig-style path aliases to candidate source
// locations for module resolution.
//
// Matching follows TypeScript's tryLoadModuleUsingPaths():
//  1. Exact matches are checked first
//  2. Wildcard patterns are matched by longest prefix (ties broken by longest suffix)
//  3. The matched wildcard text is substituted into fallback paths
//  4. Fallback paths are resolved relative to the base directory
//
// All paths are slash-separated and relative to the root of the file system
// the program is loaded from.
package pathalias

import (
	"path"
	"strings"
)

// PathResolver maps non-relative import specifiers to candidate paths.
type PathResolver struct {
	baseDir string              // directory path targets are resolved against
	aliases map[string][]string // pattern → fallback paths (e.g., "@app/*" → ["src/*"])
	baseURL bool
}

// Config holds the alias configuration.
type Config struct {
	// BaseDir is the directory that alias targets (and bare specifiers, when
	// BaseURL is set) are resolved against.
	BaseDir string
	Paths   map[string][]string
	// BaseURL makes bare specifiers that match no alias resolve against BaseDir.
	BaseURL bool
}

// NewPathResolver creates a resolver.
func NewPathResolver(cfg Config) *PathResolver {
	base := cfg.BaseDir
	if base == "" {
		base = "."
	}
	return &PathResolver{
		baseDir: path.Clean(base),
		aliases: cfg.Paths,
		baseURL: cfg.BaseURL,
	}
}

// HasAliases reports whether the resolver has any path aliases to resolve.
func (r *PathResolver) HasAliases() bool {
	return r != nil && len(r.aliases) > 0
}

// Resolve returns candidate module paths (without extension) for specifier,
// in the order they should be tried. Relative and absolute specifiers, and
// specifiers matching nothing, yield no candidates.
func (r *PathResolver) Resolve(specifier string) []string {
	if r == nil || strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return nil
	}

	// Phase 1: exact matches
	if targets, ok := r.aliases[specifier]; ok && !strings.Contains(specifier, "*") {
		return r.join(targets, "")
	}

	// Phase 2: longest-prefix wildcard match
	longestPrefixLen := -1
	longestSuffixLen := -1
	var bestPrefix, bestSuffix string
	var bestTargets []string

	for key, targets := range r.aliases {
		starIdx := strings.IndexByte(key, '*')
		if starIdx < 0 {
			continue
		}
		prefix := key[:starIdx]
		suffix := key[starIdx+1:]

		if strings.HasPrefix(specifier, prefix) && strings.HasSuffix(specifier, suffix) &&
			len(specifier) >= len(prefix)+len(suffix) {
			if len(prefix) > longestPrefixLen ||
				(len(prefix) == longestPrefixLen && len(suffix) > longestSuffixLen) {
				longestPrefixLen = len(prefix)
				longestSuffixLen = len(suffix)
				bestPrefix, bestSuffix, bestTargets = prefix, suffix, targets
			}
		}
	}

	if longestPrefixLen >= 0 {
		matched := specifier[len(bestPrefix) : len(specifier)-len(bestSuffix)]
		return r.join(bestTargets, matched)
	}

	if r.baseURL {
		return []string{path.Join(r.baseDir, specifier)}
	}
	return nil
}

func (r *PathResolver) join(targets []string, wildcard string) []string {
	out := make([]string, 0, len(targets))
	for _, target := range targets {
		target = strings.TrimPrefix(target, "./")
		target = strings.Replace(target, "*", wildcard, 1)
		out = append(out, path.Join(r.baseDir, target))
	}
	return out
}
