package metadata

import (
	"strconv"
	"strings"
)

// Describe renders t in TypeScript-like syntax for messages and dumps.
func Describe(t Type) string {
	switch t := t.(type) {
	case nil:
		return "<none>"
	case *Primitive:
		return t.Name
	case *Literal:
		switch v := t.Value.(type) {
		case string:
			return strconv.Quote(v)
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
		return "<literal>"
	case *Union:
		if t.Name != "" {
			return t.Name
		}
		return join(t.Members, " | ")
	case *Intersection:
		return join(t.Members, " & ")
	case *Tuple:
		return "[" + join(t.Elements, ", ") + "]"
	case *Generic:
		return t.Name + "<" + join(t.Args, ", ") + ">"
	case *Date:
		return "Date"
	case *ObjectKeyword:
		return "object"
	case *Void:
		return "void"
	case *Object:
		if !t.Anonymous {
			return t.Name
		}
		var sb strings.Builder
		sb.WriteString("{ ")
		for _, p := range t.Properties {
			sb.WriteString(p.Name)
			if p.Optional {
				sb.WriteString("?")
			}
			sb.WriteString(": ")
			sb.WriteString(Describe(p.Type))
			sb.WriteString("; ")
		}
		sb.WriteString("}")
		return sb.String()
	case *Unsupported:
		return t.Text
	}
	return "<unknown>"
}

func join(types []Type, sep string) string {
	parts := make([]string, len(types))
	for i, m := range types {
		parts[i] = Describe(m)
	}
	return strings.Join(parts, sep)
}

// Identical reports whether a and b denote the same type. Declared types
// compare by identity; everything else compares structurally.
func Identical(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case *Primitive:
		return a.Name == b.(*Primitive).Name
	case *Literal:
		return a.Value == b.(*Literal).Value
	case *Union:
		bu := b.(*Union)
		if a.ID != "" || bu.ID != "" {
			return a.ID == bu.ID
		}
		return identicalAll(a.Members, bu.Members)
	case *Intersection:
		return identicalAll(a.Members, b.(*Intersection).Members)
	case *Tuple:
		return identicalAll(a.Elements, b.(*Tuple).Elements)
	case *Generic:
		bg := b.(*Generic)
		return a.Name == bg.Name && identicalAll(a.Args, bg.Args)
	case *Object:
		bo := b.(*Object)
		if a.ID != "" || bo.ID != "" {
			return a.ID == bo.ID
		}
		return a == bo
	case *Unsupported:
		return a.Text == b.(*Unsupported).Text
	default:
		// Date, ObjectKeyword, Void carry no data.
		return true
	}
}

func identicalAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Identical(a[i], b[i]) {
			return false
		}
	}
	return true
}
