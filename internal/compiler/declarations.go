package compiler

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/tsgonest/tsoapi/internal/metadata"
)

// Classes returns every decorated class declared in the root files, in
// source order. Classes nested in namespaces are included.
func (p *Program) Classes() []*metadata.ClassDecl {
	var out []*metadata.ClassDecl
	for _, f := range p.roots {
		for _, d := range f.order {
			if d.kind != declClass {
				continue
			}
			decorators := classDecorators(d.node)
			if len(decorators) == 0 {
				continue
			}
			out = append(out, p.classDecl(d, decorators))
		}
	}
	return out
}

// classDecorators returns the decorators applied to a class, including
// those written before `export`.
func classDecorators(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	if parent := n.Parent(); parent != nil && parent.Type() == "export_statement" {
		out = append(out, childrenOfType(parent, "decorator")...)
	}
	return append(out, childrenOfType(n, "decorator")...)
}

func (p *Program) classDecl(d *declaration, decorators []*sitter.Node) *metadata.ClassDecl {
	f := d.file
	cls := &metadata.ClassDecl{
		Name:        d.name,
		Doc:         docComment(d.node, f.src),
		Annotations: p.annotations(f, decorators, d.scope),
		Location:    p.location(f, d.node),
	}

	// Method decorators are siblings preceding the method in the class body.
	var pending []*sitter.Node
	for _, c := range namedChildren(d.node.ChildByFieldName("body")) {
		switch c.Type() {
		case "decorator":
			pending = append(pending, c)
		case "method_definition":
			decs := append(pending, childrenOfType(c, "decorator")...)
			pending = nil
			nameNode := c.ChildByFieldName("name")
			if nameNode == nil || hasToken(c, "static") {
				continue
			}
			if name := nameNode.Content(f.src); name != "constructor" {
				cls.Methods = append(cls.Methods, p.methodDecl(f, c, name, decs, env{scope: d.scope}))
			}
		default:
			pending = nil
		}
	}
	return cls
}

func (p *Program) methodDecl(f *SourceFile, n *sitter.Node, name string, decorators []*sitter.Node, e env) metadata.MethodDecl {
	m := metadata.MethodDecl{
		Name:        name,
		Doc:         docComment(n, f.src),
		Annotations: p.annotations(f, decorators, e.scope),
		Location:    p.location(f, n),
	}
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		m.ReturnType = p.typeOf(f, rt, e)
	}

	for _, param := range namedChildren(n.ChildByFieldName("parameters")) {
		if param.Type() != "required_parameter" && param.Type() != "optional_parameter" {
			continue
		}
		pd := metadata.ParamDecl{
			Optional:    param.Type() == "optional_parameter",
			Annotations: p.annotations(f, childrenOfType(param, "decorator"), e.scope),
			Location:    p.location(f, param),
		}
		if pattern := param.ChildByFieldName("pattern"); pattern != nil {
			pd.Name = pattern.Content(f.src)
		}
		if value := param.ChildByFieldName("value"); value != nil {
			pd.Initializer = exprOf(f, value)
		}
		if typ := param.ChildByFieldName("type"); typ != nil {
			pd.Type = p.typeOf(f, typ, e)
		} else {
			pd.Type = inferType(pd.Initializer, pd.Location)
		}
		m.Params = append(m.Params, pd)
	}
	return m
}

// annotations resolves decorator nodes to their defining origin and collects
// their string-literal arguments.
func (p *Program) annotations(f *SourceFile, decorators []*sitter.Node, scope string) []metadata.Annotation {
	var out []metadata.Annotation
	for _, dec := range decorators {
		expr := firstNamed(dec)
		if expr == nil {
			continue
		}
		a := metadata.Annotation{Location: p.location(f, dec)}
		switch expr.Type() {
		case "identifier", "member_expression":
			a.Name = expr.Content(f.src)
		case "call_expression":
			fn := expr.ChildByFieldName("function")
			if fn == nil || (fn.Type() != "identifier" && fn.Type() != "member_expression") {
				continue
			}
			a.Name = fn.Content(f.src)
			a.Called = true
			for _, arg := range namedChildren(expr.ChildByFieldName("arguments")) {
				if arg.Type() == "string" {
					a.Args = append(a.Args, stringValue(arg, f.src))
				}
			}
		default:
			continue
		}
		a.Origin = p.annotationOrigin(f, a.Name, scope)
		out = append(out, a)
	}
	return out
}

// exprOf captures an initializer expression.
func exprOf(f *SourceFile, n *sitter.Node) *metadata.Expr {
	switch n.Type() {
	case "string":
		return &metadata.Expr{Kind: metadata.ExprString, Text: stringValue(n, f.src)}
	case "number":
		return &metadata.Expr{Kind: metadata.ExprNumber, Text: n.Content(f.src)}
	case "true":
		return &metadata.Expr{Kind: metadata.ExprTrue, Text: "true"}
	case "false":
		return &metadata.Expr{Kind: metadata.ExprFalse, Text: "false"}
	case "array":
		e := &metadata.Expr{Kind: metadata.ExprArray, Text: n.Content(f.src)}
		for _, el := range namedChildren(n) {
			e.Elements = append(e.Elements, exprOf(f, el))
		}
		return e
	}
	return &metadata.Expr{Kind: metadata.ExprOther, Text: n.Content(f.src)}
}
