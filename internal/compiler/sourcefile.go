package compiler

import (
	sitter "github.com/smacker/go-tree-sitter"
)

type declKind int

const (
	declClass declKind = iota
	declInterface
	declTypeAlias
	declEnum
	declNamespace
	declFunction
	declValue
)

// declaration is a named top-level or namespace-level declaration.
type declaration struct {
	kind declKind
	// name is qualified by enclosing namespaces ("Api.User").
	name  string
	scope string
	node  *sitter.Node
	file  *SourceFile
}

// importBinding records where a local import name comes from. export is
// "default" for default imports and "*" for namespace imports.
type importBinding struct {
	module string
	export string
}

// exportEntry is one name exported by a file: either a local name or a
// re-export from another module.
type exportEntry struct {
	local  string
	module string
	name   string
}

// SourceFile is one parsed TypeScript file.
type SourceFile struct {
	Path string
	src  []byte
	tree *sitter.Tree

	imports     map[string]importBinding
	decls       map[string]*declaration
	order       []*declaration
	exports     map[string]exportEntry
	starExports []string
	// interfaces holds every declaration of an interface name, for merging.
	interfaces map[string][]*declaration
}

// Source returns the file contents.
func (f *SourceFile) Source() []byte { return f.src }

func newSourceFile(path string, src []byte, tree *sitter.Tree) *SourceFile {
	f := &SourceFile{
		Path:       path,
		src:        src,
		tree:       tree,
		imports:    make(map[string]importBinding),
		decls:      make(map[string]*declaration),
		exports:    make(map[string]exportEntry),
		interfaces: make(map[string][]*declaration),
	}
	f.index(tree.RootNode(), "")
	return f
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// index records imports, exports and declarations of a statement list.
func (f *SourceFile) index(block *sitter.Node, scope string) {
	for _, stmt := range namedChildren(block) {
		switch stmt.Type() {
		case "import_statement":
			if scope == "" {
				f.indexImport(stmt)
			}
		case "export_statement":
			f.indexExport(stmt, scope)
		default:
			f.declare(stmt, scope)
		}
	}
}

// declare indexes a declaration statement and returns its local name.
func (f *SourceFile) declare(n *sitter.Node, scope string) string {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		return f.add(declClass, n, scope)
	case "interface_declaration":
		name := f.add(declInterface, n, scope)
		if name != "" {
			q := qualify(scope, name)
			f.interfaces[q] = append(f.interfaces[q], &declaration{kind: declInterface, name: q, scope: scope, node: n, file: f})
		}
		return name
	case "type_alias_declaration":
		return f.add(declTypeAlias, n, scope)
	case "enum_declaration":
		return f.add(declEnum, n, scope)
	case "function_declaration", "generator_function_declaration", "function_signature":
		return f.add(declFunction, n, scope)
	case "internal_module", "module":
		name := f.add(declNamespace, n, scope)
		if body := n.ChildByFieldName("body"); body != nil && name != "" {
			f.index(body, qualify(scope, name))
		}
		return name
	case "expression_statement", "ambient_declaration":
		var last string
		for _, c := range namedChildren(n) {
			if name := f.declare(c, scope); name != "" {
				last = name
			}
		}
		return last
	case "lexical_declaration", "variable_declaration":
		var last string
		for _, d := range childrenOfType(n, "variable_declarator") {
			if id := d.ChildByFieldName("name"); id != nil && id.Type() == "identifier" {
				last = id.Content(f.src)
				q := qualify(scope, last)
				if _, ok := f.decls[q]; !ok {
					f.decls[q] = &declaration{kind: declValue, name: q, scope: scope, node: d, file: f}
				}
			}
		}
		return last
	}
	return ""
}

func (f *SourceFile) add(kind declKind, n *sitter.Node, scope string) string {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nameNode.Content(f.src)
	q := qualify(scope, name)
	if existing, ok := f.decls[q]; ok {
		// Namespace and interface merging keep the first declaration.
		if existing.kind == kind || kind == declNamespace {
			return name
		}
	}
	d := &declaration{kind: kind, name: q, scope: scope, node: n, file: f}
	f.decls[q] = d
	f.order = append(f.order, d)
	return name
}

func (f *SourceFile) indexImport(n *sitter.Node) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return
	}
	module := stringValue(source, f.src)
	for _, clause := range childrenOfType(n, "import_clause") {
		for _, c := range namedChildren(clause) {
			switch c.Type() {
			case "identifier":
				f.imports[c.Content(f.src)] = importBinding{module: module, export: "default"}
			case "namespace_import":
				if id := firstNamed(c); id != nil {
					f.imports[id.Content(f.src)] = importBinding{module: module, export: "*"}
				}
			case "named_imports":
				for _, spec := range childrenOfType(c, "import_specifier") {
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = alias
					}
					f.imports[local.Content(f.src)] = importBinding{module: module, export: propertyName(name, f.src)}
				}
			}
		}
	}
}

func (f *SourceFile) indexExport(n *sitter.Node, scope string) {
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		name := f.declare(decl, scope)
		if name != "" && scope == "" {
			f.exports[name] = exportEntry{local: name}
			if hasToken(n, "default") {
				f.exports["default"] = exportEntry{local: name}
			}
		}
		return
	}
	if scope != "" {
		return
	}

	var module string
	if source := n.ChildByFieldName("source"); source != nil {
		module = stringValue(source, f.src)
	}

	if value := n.ChildByFieldName("value"); value != nil && value.Type() == "identifier" {
		f.exports["default"] = exportEntry{local: value.Content(f.src)}
		return
	}

	clause := childrenOfType(n, "export_clause")
	if len(clause) == 0 {
		if module == "" {
			return
		}
		if ns := childrenOfType(n, "namespace_export"); len(ns) > 0 {
			if id := firstNamed(ns[0]); id != nil {
				f.exports[propertyName(id, f.src)] = exportEntry{module: module, name: "*"}
			}
			return
		}
		if hasToken(n, "*") {
			f.starExports = append(f.starExports, module)
		}
		return
	}

	for _, spec := range childrenOfType(clause[0], "export_specifier") {
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := propertyName(nameNode, f.src)
		exported := name
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			exported = propertyName(alias, f.src)
		}
		if module != "" {
			f.exports[exported] = exportEntry{module: module, name: name}
		} else {
			f.exports[exported] = exportEntry{local: name}
		}
	}
}
