package compiler

import (
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tsgonest/tsoapi/internal/metadata"
)

// env is the lexical context a type expression is read in.
type env struct {
	scope string
	// params binds type parameters while instantiating a generic alias.
	params map[string]metadata.Type
}

func (p *Program) location(f *SourceFile, n *sitter.Node) metadata.Location {
	return metadata.Location{File: f.Path, Line: line(n)}
}

func (p *Program) unsupported(f *SourceFile, n *sitter.Node) *metadata.Unsupported {
	text := ""
	if n != nil {
		text = n.Content(f.src)
	}
	return &metadata.Unsupported{Text: text, Location: p.location(f, n)}
}

// typeOf converts a type expression node into a descriptor.
func (p *Program) typeOf(f *SourceFile, n *sitter.Node, e env) metadata.Type {
	if n == nil {
		return &metadata.Unsupported{Text: "any"}
	}
	switch n.Type() {
	case "type_annotation", "parenthesized_type", "readonly_type", "opting_type_annotation":
		return p.typeOf(f, firstNamed(n), e)

	case "predefined_type":
		switch text := n.Content(f.src); text {
		case "string", "number", "boolean":
			return &metadata.Primitive{Name: text}
		case "void":
			return &metadata.Void{}
		case "object":
			return &metadata.ObjectKeyword{}
		}
		return p.unsupported(f, n)

	case "literal_type":
		return p.literalType(f, firstNamed(n))

	case "type_identifier", "identifier":
		return p.namedType(f, n.Content(f.src), n, e)

	case "nested_type_identifier":
		return p.namedType(f, n.Content(f.src), n, e)

	case "generic_type":
		return p.genericType(f, n, e)

	case "array_type":
		return &metadata.Generic{Name: "Array", Args: []metadata.Type{p.typeOf(f, firstNamed(n), e)}}

	case "tuple_type":
		t := &metadata.Tuple{}
		for _, el := range namedChildren(n) {
			t.Elements = append(t.Elements, p.typeOf(f, el, e))
		}
		return t

	case "union_type":
		var members []metadata.Type
		p.flatten(f, n, e, "union_type", &members)
		kept := members[:0]
		for _, m := range members {
			if _, ok := m.(*metadata.Void); ok {
				continue
			}
			kept = append(kept, m)
		}
		switch len(kept) {
		case 0:
			return &metadata.Void{}
		case 1:
			return kept[0]
		}
		return &metadata.Union{Members: kept}

	case "intersection_type":
		var members []metadata.Type
		p.flatten(f, n, e, "intersection_type", &members)
		return &metadata.Intersection{Members: members}

	case "object_type":
		obj := &metadata.Object{Anonymous: true, Location: p.location(f, n)}
		p.objectMembers(f, n, e, obj)
		return obj
	}
	return p.unsupported(f, n)
}

// flatten collects the members of nested unions or intersections.
func (p *Program) flatten(f *SourceFile, n *sitter.Node, e env, kind string, out *[]metadata.Type) {
	for _, c := range namedChildren(n) {
		if c.Type() == kind {
			p.flatten(f, c, e, kind, out)
			continue
		}
		t := p.typeOf(f, c, e)
		if u, ok := t.(*metadata.Union); ok && kind == "union_type" && u.ID == "" {
			*out = append(*out, u.Members...)
			continue
		}
		*out = append(*out, t)
	}
}

func (p *Program) literalType(f *SourceFile, n *sitter.Node) metadata.Type {
	if n == nil {
		return &metadata.Unsupported{Text: "literal"}
	}
	switch n.Type() {
	case "string":
		return &metadata.Literal{Value: stringValue(n, f.src)}
	case "number":
		if v, err := (&metadata.Expr{Kind: metadata.ExprNumber, Text: n.Content(f.src)}).Value(); err == nil {
			return &metadata.Literal{Value: v}
		}
	case "unary_expression":
		text := strings.TrimSpace(n.Content(f.src))
		if strings.HasPrefix(text, "-") {
			if v, err := (&metadata.Expr{Kind: metadata.ExprNumber, Text: strings.TrimSpace(text[1:])}).Value(); err == nil {
				return &metadata.Literal{Value: -v.(float64)}
			}
		}
	case "true":
		return &metadata.Literal{Value: true}
	case "false":
		return &metadata.Literal{Value: false}
	case "null":
		return &metadata.Primitive{Name: "null"}
	case "undefined":
		return &metadata.Void{}
	}
	return p.unsupported(f, n)
}

func (p *Program) namedType(f *SourceFile, name string, n *sitter.Node, e env) metadata.Type {
	if t, ok := e.params[name]; ok {
		return t
	}
	sym, ok := p.resolveName(f, name, e.scope)
	if ok && sym.decl != nil {
		if sym.member != "" {
			return p.enumMember(sym.decl, sym.member, f, n)
		}
		return p.declType(sym.decl)
	}
	if !ok && name == "Date" {
		return &metadata.Date{}
	}
	return p.unsupported(f, n)
}

var builtinGenerics = map[string]string{
	"Promise":       "Promise",
	"PromiseLike":   "Promise",
	"Array":         "Array",
	"ReadonlyArray": "Array",
	"Map":           "Map",
	"ReadonlyMap":   "Map",
}

func (p *Program) genericType(f *SourceFile, n *sitter.Node, e env) metadata.Type {
	nameNode := n.ChildByFieldName("name")
	argsNode := n.ChildByFieldName("type_arguments")
	if nameNode == nil {
		return p.unsupported(f, n)
	}
	name := nameNode.Content(f.src)
	var args []metadata.Type
	for _, a := range namedChildren(argsNode) {
		args = append(args, p.typeOf(f, a, e))
	}

	sym, ok := p.resolveName(f, name, e.scope)
	if ok && sym.decl != nil && sym.decl.kind == declTypeAlias {
		if t, ok := p.instantiateAlias(sym.decl, args); ok {
			return t
		}
	}
	if !ok {
		if canonical, builtin := builtinGenerics[name]; builtin {
			name = canonical
		}
	}
	return &metadata.Generic{Name: name, Args: args}
}

// instantiateAlias expands `type List<T> = T[]` for List<User>.
func (p *Program) instantiateAlias(d *declaration, args []metadata.Type) (metadata.Type, bool) {
	params := namedChildren(d.node.ChildByFieldName("type_parameters"))
	if len(params) == 0 || len(params) < len(args) {
		return nil, false
	}
	bound := make(map[string]metadata.Type, len(params))
	for i, tp := range params {
		nameNode := tp.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = firstNamed(tp)
		}
		name := nameNode.Content(d.file.src)
		switch {
		case i < len(args):
			bound[name] = args[i]
		case tp.ChildByFieldName("value") != nil:
			bound[name] = p.typeOf(d.file, firstNamed(tp.ChildByFieldName("value")), env{scope: d.scope})
		default:
			return nil, false
		}
	}
	return p.typeOf(d.file, d.node.ChildByFieldName("value"), env{scope: d.scope, params: bound}), true
}

// declType returns the descriptor of a declaration, memoized by identity.
// Classes and interfaces are registered before their members are read so
// self-referencing types terminate.
func (p *Program) declType(d *declaration) metadata.Type {
	key := d.file.Path + "#" + d.name
	if t, ok := p.types[key]; ok {
		return t
	}

	switch d.kind {
	case declClass, declInterface:
		obj := &metadata.Object{
			ID:       metadata.TypeID(key),
			Name:     d.name,
			Location: p.location(d.file, d.node),
		}
		p.types[key] = obj
		p.fillObject(d, obj)
		return obj

	case declEnum:
		_, values := p.enumMembers(d)
		u := &metadata.Union{ID: metadata.TypeID(key), Name: d.name, Members: values}
		p.types[key] = u
		return u

	case declTypeAlias:
		if p.inProgress[key] {
			return &metadata.Unsupported{Text: d.name, Location: p.location(d.file, d.node)}
		}
		p.inProgress[key] = true
		t := p.typeOf(d.file, d.node.ChildByFieldName("value"), env{scope: d.scope})
		delete(p.inProgress, key)
		p.types[key] = t
		return t
	}
	return &metadata.Unsupported{Text: d.name, Location: p.location(d.file, d.node)}
}

func (p *Program) fillObject(d *declaration, obj *metadata.Object) {
	e := env{scope: d.scope}
	var bases []metadata.Type

	switch d.kind {
	case declClass:
		obj.Annotations = p.annotations(d.file, classDecorators(d.node), d.scope)
		p.classMembers(d.file, d.node.ChildByFieldName("body"), e, obj)
		for _, heritage := range childrenOfType(d.node, "class_heritage") {
			for _, ext := range childrenOfType(heritage, "extends_clause") {
				value := ext.ChildByFieldName("value")
				if value == nil {
					value = firstNamed(ext)
				}
				if value != nil {
					bases = append(bases, p.namedType(d.file, value.Content(d.file.src), value, e))
				}
			}
		}

	case declInterface:
		for _, part := range d.file.interfaces[d.name] {
			var members metadata.Object
			p.objectMembers(d.file, part.node.ChildByFieldName("body"), e, &members)
			mergeMembers(obj, &members)
			for _, ext := range childrenOfType(part.node, "extends_type_clause") {
				for _, t := range namedChildren(ext) {
					bases = append(bases, p.typeOf(d.file, t, e))
				}
			}
		}
	}

	for _, base := range bases {
		if b, ok := base.(*metadata.Object); ok {
			mergeMembers(obj, b)
		}
	}
}

// mergeMembers appends the properties of from that obj does not declare
// yet. The first declaration of a name wins.
func mergeMembers(obj, from *metadata.Object) {
	own := make(map[string]bool, len(obj.Properties))
	for _, prop := range obj.Properties {
		own[prop.Name] = true
	}
	for _, prop := range from.Properties {
		if !own[prop.Name] {
			own[prop.Name] = true
			obj.Properties = append(obj.Properties, prop)
		}
	}
	for _, m := range from.Methods {
		if !slices.Contains(obj.Methods, m) {
			obj.Methods = append(obj.Methods, m)
		}
	}
}

// classMembers reads the fields and methods of a class body.
func (p *Program) classMembers(f *SourceFile, body *sitter.Node, e env, obj *metadata.Object) {
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "public_field_definition":
			if hasToken(c, "static") {
				continue
			}
			nameNode := c.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			prop := metadata.Property{
				Name:        propertyName(nameNode, f.src),
				Optional:    hasToken(c, "?"),
				Doc:         docComment(c, f.src),
				Annotations: p.annotations(f, childrenOfType(c, "decorator"), e.scope),
				Location:    p.location(f, c),
			}
			if value := c.ChildByFieldName("value"); value != nil {
				prop.Initializer = exprOf(f, value)
			}
			if typ := c.ChildByFieldName("type"); typ != nil {
				prop.Type = p.typeOf(f, typ, e)
			} else {
				prop.Type = inferType(prop.Initializer, p.location(f, c))
			}
			obj.Properties = append(obj.Properties, prop)

		case "method_definition", "method_signature", "abstract_method_signature":
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				name := nameNode.Content(f.src)
				if name != "constructor" {
					obj.Methods = append(obj.Methods, name)
				}
			}
		}
	}
}

// objectMembers reads property and method signatures of an interface body
// or type literal.
func (p *Program) objectMembers(f *SourceFile, body *sitter.Node, e env, obj *metadata.Object) {
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "property_signature":
			nameNode := c.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			var typ metadata.Type = &metadata.Unsupported{Text: "any", Location: p.location(f, c)}
			if t := c.ChildByFieldName("type"); t != nil {
				typ = p.typeOf(f, t, e)
			}
			obj.Properties = append(obj.Properties, metadata.Property{
				Name:     propertyName(nameNode, f.src),
				Type:     typ,
				Optional: hasToken(c, "?"),
				Doc:      docComment(c, f.src),
				Location: p.location(f, c),
			})
		case "method_signature":
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				obj.Methods = append(obj.Methods, nameNode.Content(f.src))
			}
		}
	}
}

// inferType widens the type of an unannotated initializer.
func inferType(init *metadata.Expr, loc metadata.Location) metadata.Type {
	if init != nil {
		switch init.Kind {
		case metadata.ExprString:
			return &metadata.Primitive{Name: "string"}
		case metadata.ExprNumber:
			return &metadata.Primitive{Name: "number"}
		case metadata.ExprTrue, metadata.ExprFalse:
			return &metadata.Primitive{Name: "boolean"}
		}
	}
	return &metadata.Unsupported{Text: "any", Location: loc}
}

// enumMembers evaluates enum members. Members without initializers count up
// from the previous numeric value.
func (p *Program) enumMembers(d *declaration) ([]string, []metadata.Type) {
	var names []string
	var values []metadata.Type
	next := 0.0
	for _, c := range namedChildren(d.node.ChildByFieldName("body")) {
		switch c.Type() {
		case "property_identifier", "string":
			names = append(names, propertyName(c, d.file.src))
			values = append(values, &metadata.Literal{Value: next})
			next++
		case "enum_assignment":
			names = append(names, propertyName(c.ChildByFieldName("name"), d.file.src))
			t := p.literalType(d.file, c.ChildByFieldName("value"))
			if lit, ok := t.(*metadata.Literal); ok {
				if n, isNum := lit.Value.(float64); isNum {
					next = n + 1
				}
			}
			values = append(values, t)
		}
	}
	return names, values
}

func (p *Program) enumMember(d *declaration, member string, f *SourceFile, n *sitter.Node) metadata.Type {
	names, values := p.enumMembers(d)
	for i, name := range names {
		if name == member {
			return values[i]
		}
	}
	return p.unsupported(f, n)
}
