package analyzer

import (
	"fmt"

	"github.com/tsgonest/tsoapi/internal/diagnostic"
	"github.com/tsgonest/tsoapi/internal/metadata"
)

// validateParameter records warnings for bindings that produce a valid
// document but are unlikely to work at runtime.
func validateParameter(p *Parameter, diags *diagnostic.Collector) {
	if diags == nil || p.Type == nil {
		return
	}
	loc := p.Location
	switch {
	case p.In == InPath && !isScalar(p.Type):
		diags.WarnWithHint(diagnostic.CategoryParameterInvalid, loc.File, loc.Line,
			fmt.Sprintf("path parameter %q has non-scalar type %s", p.Name, metadata.Describe(p.Type)),
			"path parameters are always strings on the wire; use string, number or a literal union")
	case (p.In == InQuery || p.In == InHeader || p.In == InCookie) && !p.WholeParam && isStructured(p.Type):
		diags.Warn(diagnostic.CategoryParameterInvalid, loc.File, loc.Line,
			fmt.Sprintf("%s parameter %q has object type %s; use the whole-param decorator to bind its fields", p.In, p.Name, metadata.Describe(p.Type)))
	case p.In == InPath && !p.Required:
		diags.Warn(diagnostic.CategoryParameterInvalid, loc.File, loc.Line,
			fmt.Sprintf("path parameter %q is optional but will be emitted as required", p.Name))
	}
}

func isScalar(t metadata.Type) bool {
	switch t := t.(type) {
	case *metadata.Primitive, *metadata.Literal, *metadata.Date:
		return true
	case *metadata.Union:
		for _, m := range t.Members {
			if !isScalar(m) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isStructured(t metadata.Type) bool {
	switch t.(type) {
	case *metadata.Object, *metadata.Intersection, *metadata.ObjectKeyword:
		return true
	default:
		return false
	}
}
