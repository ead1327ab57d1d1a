package analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// MatchesGlob checks if a slash-separated path matches any of the include
// patterns and none of the exclude patterns. A "**" segment matches zero or
// more directories; every other segment is matched with path.Match.
func MatchesGlob(filePath string, includePatterns []string, excludePatterns []string) bool {
	if len(includePatterns) == 0 {
		return false
	}
	filePath = cleanGlobPath(filePath)

	for _, pattern := range excludePatterns {
		if globMatch(filePath, pattern) {
			return false
		}
	}
	for _, pattern := range includePatterns {
		if globMatch(filePath, pattern) {
			return true
		}
	}
	return false
}

// ExpandGlobs walks fsys and returns the sorted, de-duplicated files matching
// include and not exclude. node_modules and dot-directories are never
// entered. A pattern without wildcards names a file that must exist.
func ExpandGlobs(fsys fs.FS, include, exclude []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			files = append(files, name)
		}
	}

	for _, pattern := range include {
		pattern = cleanGlobPath(pattern)
		if !hasMeta(pattern) {
			if _, err := fs.Stat(fsys, pattern); err != nil {
				return nil, fmt.Errorf("source file %s: %w", pattern, err)
			}
			if !MatchesGlob(pattern, []string{pattern}, exclude) {
				continue
			}
			add(pattern)
			continue
		}

		root := staticPrefix(pattern)
		err := fs.WalkDir(fsys, root, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && name == root {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if name != root && skipDir(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if MatchesGlob(name, []string{pattern}, exclude) {
				add(name)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", pattern, err)
		}
	}

	slices.Sort(files)
	return files, nil
}

func skipDir(name string) bool {
	return name == "node_modules" || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

func cleanGlobPath(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[\\")
}

// staticPrefix returns the directory portion of pattern before its first
// wildcard segment, or ".".
func staticPrefix(pattern string) string {
	segs := strings.Split(pattern, "/")
	var prefix []string
	for _, s := range segs[:len(segs)-1] {
		if hasMeta(s) {
			break
		}
		prefix = append(prefix, s)
	}
	if len(prefix) == 0 {
		return "."
	}
	return path.Join(prefix...)
}

func globMatch(filePath, pattern string) bool {
	pattern = cleanGlobPath(pattern)
	return matchSegments(strings.Split(pattern, "/"), strings.Split(filePath, "/"))
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
