// Package compiler is the TypeScript front-end. It parses source files with
// tree-sitter, indexes their declarations and imports, and answers the
// questions the route analyzer asks: which classes exist, where each
// decorator was defined, and what each declared type looks like.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/tsgonest/tsoapi/internal/diagnostic"
	"github.com/tsgonest/tsoapi/internal/metadata"
	"github.com/tsgonest/tsoapi/internal/pathalias"
)

// ProgramOptions configures module resolution and reporting.
type ProgramOptions struct {
	// Paths are tsconfig-style module aliases ("@app/*" → ["src/*"]).
	Paths map[string][]string
	// BaseURL is the directory aliases and bare specifiers resolve against.
	BaseURL string
	// Diagnostics receives parse and resolution warnings. May be nil.
	Diagnostics *diagnostic.Collector
	Logger      *slog.Logger
}

// Program is a set of parsed TypeScript files rooted at the entry files.
// Imported files are parsed on demand.
type Program struct {
	ctx      context.Context
	fsys     fs.FS
	parser   *sitter.Parser
	resolver *pathalias.PathResolver
	diags    *diagnostic.Collector
	logger   *slog.Logger

	roots   []*SourceFile
	files   map[string]*SourceFile
	missing map[string]bool
	warned  map[string]bool

	types      map[string]metadata.Type
	inProgress map[string]bool
}

// NewProgram parses rootNames (slash-separated paths within fsys). Failing to
// read or parse a root file is an error; problems in imported files are
// reported as diagnostics.
func NewProgram(ctx context.Context, fsys fs.FS, rootNames []string, opts ProgramOptions) (*Program, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseDir := opts.BaseURL
	if baseDir == "" {
		baseDir = "."
	}

	p := &Program{
		ctx:    ctx,
		fsys:   fsys,
		parser: parser,
		resolver: pathalias.NewPathResolver(pathalias.Config{
			BaseDir: strings.TrimPrefix(baseDir, "./"),
			Paths:   opts.Paths,
			BaseURL: opts.BaseURL != "",
		}),
		diags:      opts.Diagnostics,
		logger:     logger,
		files:      make(map[string]*SourceFile),
		missing:    make(map[string]bool),
		warned:     make(map[string]bool),
		types:      make(map[string]metadata.Type),
		inProgress: make(map[string]bool),
	}

	for _, name := range rootNames {
		f, err := p.load(path.Clean(name))
		if err != nil {
			p.Close()
			return nil, err
		}
		p.roots = append(p.roots, f)
	}
	return p, nil
}

// Close releases the parse trees.
func (p *Program) Close() {
	for _, f := range p.files {
		if f.tree != nil {
			f.tree.Close()
			f.tree = nil
		}
	}
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// RootFiles returns the entry files in the order they were given.
func (p *Program) RootFiles() []*SourceFile {
	return p.roots
}

// Files returns every file parsed so far, sorted by path.
func (p *Program) Files() []*SourceFile {
	out := make([]*SourceFile, 0, len(p.files))
	for _, f := range p.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (p *Program) load(name string) (*SourceFile, error) {
	if f, ok := p.files[name]; ok {
		return f, nil
	}
	src, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	tree, err := p.parser.ParseCtx(p.ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if tree.RootNode().HasError() {
		p.diags.Warn(diagnostic.CategoryParse, name, 0, "source contains syntax errors")
	}
	p.logger.Debug("parsed source file", slog.String("file", name), slog.Int("size_bytes", len(src)))

	f := newSourceFile(name, src, tree)
	p.files[name] = f
	return f, nil
}

var moduleExtensions = []string{".ts", ".tsx", ".d.ts", "/index.ts", "/index.tsx", "/index.d.ts"}

// resolveModule maps an import specifier to a program file. external is true
// when the specifier names a package outside the program.
func (p *Program) resolveModule(from *SourceFile, specifier string) (file *SourceFile, external bool) {
	var candidates []string
	relative := strings.HasPrefix(specifier, ".")
	if relative {
		candidates = []string{path.Join(path.Dir(from.Path), specifier)}
	} else {
		candidates = p.resolver.Resolve(specifier)
		if len(candidates) == 0 {
			return nil, true
		}
	}

	for _, base := range candidates {
		if f := p.tryLoad(base); f != nil {
			return f, false
		}
	}

	if relative {
		key := from.Path + "\x00" + specifier
		if !p.warned[key] {
			p.warned[key] = true
			p.diags.Warn(diagnostic.CategoryResolve, from.Path, 0, fmt.Sprintf("cannot resolve module %q", specifier))
		}
		return nil, false
	}
	// An alias that matches nothing on disk is treated as a package.
	return nil, true
}

func (p *Program) tryLoad(base string) *SourceFile {
	tries := make([]string, 0, len(moduleExtensions)+2)
	switch {
	case strings.HasSuffix(base, ".ts") || strings.HasSuffix(base, ".tsx"):
		tries = append(tries, base)
	case strings.HasSuffix(base, ".js"):
		base = strings.TrimSuffix(base, ".js")
	}
	for _, ext := range moduleExtensions {
		tries = append(tries, base+ext)
	}

	for _, name := range tries {
		if !fs.ValidPath(name) || p.missing[name] {
			continue
		}
		f, err := p.load(name)
		if err == nil {
			return f
		}
		if !errors.Is(err, fs.ErrNotExist) {
			p.diags.Warn(diagnostic.CategoryResolve, name, 0, err.Error())
		}
		p.missing[name] = true
	}
	return nil
}
