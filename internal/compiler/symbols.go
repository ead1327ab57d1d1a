package compiler

import (
	"strings"

	"github.com/tsgonest/tsoapi/internal/metadata"
)

// symbol is the target of a name: a declaration in the program, or an export
// of a module outside it.
type symbol struct {
	decl *declaration
	// member is set for enum member references (Status.Active).
	member string
	module string
	export string
}

func parentScope(scope string) string {
	if i := strings.LastIndexByte(scope, '.'); i >= 0 {
		return scope[:i]
	}
	return ""
}

// localDecl looks name up in f, from the innermost namespace outwards.
func localDecl(f *SourceFile, name, scope string) (*declaration, bool) {
	for s := scope; ; s = parentScope(s) {
		if d, ok := f.decls[qualify(s, name)]; ok {
			return d, true
		}
		if s == "" {
			return nil, false
		}
	}
}

// resolveName resolves a possibly dotted name as written in f.
func (p *Program) resolveName(f *SourceFile, name, scope string) (symbol, bool) {
	return p.resolveNameVisited(f, name, scope, make(map[string]bool))
}

func (p *Program) resolveNameVisited(f *SourceFile, name, scope string, visited map[string]bool) (symbol, bool) {
	if d, ok := localDecl(f, name, scope); ok {
		return symbol{decl: d}, true
	}

	head, rest, dotted := strings.Cut(name, ".")
	if dotted {
		if d, ok := localDecl(f, head, scope); ok && d.kind == declEnum && !strings.Contains(rest, ".") {
			return symbol{decl: d, member: rest}, true
		}
	}

	b, ok := f.imports[head]
	if !ok {
		return symbol{}, false
	}
	export := b.export
	switch {
	case export == "*" && !dotted:
		return symbol{}, false
	case export == "*":
		export = rest
	case dotted:
		export += "." + rest
	}

	target, external := p.resolveModule(f, b.module)
	if target == nil {
		if external {
			return symbol{module: b.module, export: export}, true
		}
		return symbol{}, false
	}
	return p.lookupExport(target, export, visited)
}

// lookupExport finds what f exports under name, following re-exports and
// `export *` barrels.
func (p *Program) lookupExport(f *SourceFile, name string, visited map[string]bool) (symbol, bool) {
	key := f.Path + "#" + name
	if visited[key] {
		return symbol{}, false
	}
	visited[key] = true

	head, rest, dotted := strings.Cut(name, ".")
	if e, ok := f.exports[head]; ok {
		if e.module == "" {
			local := e.local
			if dotted {
				local += "." + rest
			}
			return p.resolveNameVisited(f, local, "", visited)
		}
		export := e.name
		switch {
		case export == "*" && !dotted:
			return symbol{}, false
		case export == "*":
			export = rest
		case dotted:
			export += "." + rest
		}
		target, external := p.resolveModule(f, e.module)
		if target == nil {
			if external {
				return symbol{module: e.module, export: export}, true
			}
			return symbol{}, false
		}
		return p.lookupExport(target, export, visited)
	}

	// Declaration files and ambient modules may declare without exporting.
	if strings.HasSuffix(f.Path, ".d.ts") {
		if d, ok := f.decls[name]; ok {
			return symbol{decl: d}, true
		}
	}

	for _, module := range f.starExports {
		target, _ := p.resolveModule(f, module)
		if target == nil {
			continue
		}
		if sym, ok := p.lookupExport(target, name, visited); ok {
			return sym, true
		}
	}
	return symbol{}, false
}

// annotationOrigin resolves a decorator callee ("Get", "rc.Get") to the
// module and exported name that define it.
func (p *Program) annotationOrigin(f *SourceFile, callee, scope string) metadata.Origin {
	sym, ok := p.resolveName(f, callee, scope)
	switch {
	case !ok:
		return metadata.Origin{Export: callee}
	case sym.decl != nil:
		return metadata.Origin{Module: sym.decl.file.Path, Export: sym.decl.name}
	default:
		return metadata.Origin{Module: sym.module, Export: sym.export}
	}
}
