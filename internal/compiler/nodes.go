package compiler

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// namedChildren returns n's named children, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// children returns all of n's children, anonymous tokens included.
func children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.ChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// hasToken reports whether n has a direct child token of the given type,
// such as "?" or "static".
func hasToken(n *sitter.Node, token string) bool {
	for _, c := range children(n) {
		if c.Type() == token {
			return true
		}
	}
	return false
}

// childrenOfType returns n's direct children of the given type.
func childrenOfType(n *sitter.Node, typ string) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range children(n) {
		if c.Type() == typ {
			out = append(out, c)
		}
	}
	return out
}

// firstNamed returns the first non-comment named child of n.
func firstNamed(n *sitter.Node) *sitter.Node {
	for _, c := range namedChildren(n) {
		return c
	}
	return nil
}

func line(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

// stringValue decodes a string literal node.
func stringValue(n *sitter.Node, src []byte) string {
	var sb strings.Builder
	found := false
	for _, c := range children(n) {
		switch c.Type() {
		case "string_fragment":
			sb.WriteString(c.Content(src))
			found = true
		case "escape_sequence":
			sb.WriteString(unescape(c.Content(src)))
			found = true
		}
	}
	if !found {
		return strings.Trim(n.Content(src), `"'`)
	}
	return sb.String()
}

func unescape(seq string) string {
	switch seq {
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	}
	if s, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return s
	}
	return strings.TrimPrefix(seq, `\`)
}

// propertyName returns the name of a property_identifier, string or number
// name node.
func propertyName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.Type() == "string" {
		return stringValue(n, src)
	}
	return n.Content(src)
}
