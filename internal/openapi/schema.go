// Package openapi compiles analyzed controllers and their TypeScript types
// into an OpenAPI 3.0 document.
package openapi

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/tsgonest/tsoapi/internal/analyzer"
	"github.com/tsgonest/tsoapi/internal/diagnostic"
	"github.com/tsgonest/tsoapi/internal/metadata"
)

const componentPrefix = "#/components/schemas/"

// Schema is an OpenAPI 3.0 schema object. A reference schema carries only
// Ref plus the per-use Description and Default annotations.
type Schema struct {
	Ref                  string             `json:"$ref,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitzero"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitzero"`
	MinItems             *int               `json:"minItems,omitzero"`
	MaxItems             *int               `json:"maxItems,omitzero"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitzero"`
	Enum                 []any              `json:"enum,omitempty"`
	Default              any                `json:"default,omitzero"`
	AnyOf                []*Schema          `json:"anyOf,omitempty"`
	AllOf                []*Schema          `json:"allOf,omitempty"`

	// order keeps property declaration order for parameter expansion.
	order []string
}

// PropertyNames returns the property names in declaration order.
func (s *Schema) PropertyNames() []string {
	if len(s.order) == len(s.Properties) {
		return s.order
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Schema) setProperty(name string, prop *Schema) {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	if _, exists := s.Properties[name]; !exists {
		s.order = append(s.order, name)
	}
	s.Properties[name] = prop
}

// IsRequired reports whether name is in the required list.
func (s *Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// clone returns a shallow copy safe for per-use annotation.
func (s *Schema) clone() *Schema {
	c := *s
	return &c
}

// SchemaTable holds every reference-eligible schema compiled in one run,
// keyed by type identity, plus the identity/name mapping used for $ref
// targets. Assigned names never change and never collide.
type SchemaTable struct {
	schemas  map[metadata.TypeID]*Schema
	idToName map[metadata.TypeID]string
	nameToID map[string]metadata.TypeID
}

// NewSchemaTable creates an empty table.
func NewSchemaTable() *SchemaTable {
	return &SchemaTable{
		schemas:  make(map[metadata.TypeID]*Schema),
		idToName: make(map[metadata.TypeID]string),
		nameToID: make(map[string]metadata.TypeID),
	}
}

// Name returns the component name for id, assigning one derived from
// baseName on first use. Collisions get "_1", "_2", ... in encounter order.
func (t *SchemaTable) Name(id metadata.TypeID, baseName string) string {
	if name, ok := t.idToName[id]; ok {
		return name
	}
	name := baseName
	if _, taken := t.nameToID[name]; taken {
		for i := 1; ; i++ {
			name = baseName + "_" + strconv.Itoa(i)
			if _, taken := t.nameToID[name]; !taken {
				break
			}
		}
	}
	t.idToName[id] = name
	t.nameToID[name] = id
	return name
}

// Get returns the definition stored for id.
func (t *SchemaTable) Get(id metadata.TypeID) (*Schema, bool) {
	s, ok := t.schemas[id]
	return s, ok
}

// ByRef returns the definition a "#/components/schemas/<name>" reference
// points at.
func (t *SchemaTable) ByRef(ref string) (*Schema, bool) {
	name, ok := strings.CutPrefix(ref, componentPrefix)
	if !ok {
		return nil, false
	}
	id, ok := t.nameToID[name]
	if !ok {
		return nil, false
	}
	return t.Get(id)
}

// Len returns the number of stored definitions.
func (t *SchemaTable) Len() int { return len(t.schemas) }

// Components returns every stored definition keyed by its assigned name.
// Unreferenced definitions are included.
func (t *SchemaTable) Components() map[string]*Schema {
	out := make(map[string]*Schema, len(t.schemas))
	for id, s := range t.schemas {
		out[t.idToName[id]] = s
	}
	return out
}

// SchemaCompiler turns type descriptors into schemas, registering named types
// in its SchemaTable.
type SchemaCompiler struct {
	table *SchemaTable
}

// NewSchemaCompiler creates a compiler that owns a fresh table.
func NewSchemaCompiler() *SchemaCompiler {
	return &SchemaCompiler{table: NewSchemaTable()}
}

// Table returns the compiler's schema table.
func (c *SchemaCompiler) Table() *SchemaTable { return c.table }

// Deref follows a reference schema to its table definition. Non-reference
// schemas are returned unchanged.
func (c *SchemaCompiler) Deref(s *Schema) *Schema {
	if s == nil || s.Ref == "" {
		return s
	}
	if def, ok := c.table.ByRef(s.Ref); ok {
		return def
	}
	return s
}

// Compile returns the schema for t: a fresh $ref for declared classes,
// interfaces and enums, an inline schema otherwise. It returns nil for void.
func (c *SchemaCompiler) Compile(t metadata.Type) (*Schema, error) {
	id, name, eligible := referenceable(t)
	if !eligible {
		return c.compileInto(t, &Schema{})
	}

	ref := &Schema{Ref: componentPrefix + c.table.Name(id, name)}
	if _, done := c.table.schemas[id]; done {
		return ref, nil
	}
	// Register before visiting members so self references resolve to $ref.
	def := &Schema{}
	c.table.schemas[id] = def
	if _, err := c.compileInto(t, def); err != nil {
		return nil, err
	}
	return ref, nil
}

func referenceable(t metadata.Type) (metadata.TypeID, string, bool) {
	switch t := t.(type) {
	case *metadata.Object:
		return t.ID, t.Name, !t.Anonymous && t.ID != ""
	case *metadata.Union:
		return t.ID, t.Name, t.ID != ""
	default:
		return "", "", false
	}
}

// compileInto fills s with the structural schema of t.
func (c *SchemaCompiler) compileInto(t metadata.Type, s *Schema) (*Schema, error) {
	switch t := t.(type) {
	case *metadata.Primitive:
		s.Type = t.Name
	case *metadata.Literal:
		s.Type = literalType(t.Value)
		s.Enum = []any{t.Value}
		s.Default = t.Value
	case *metadata.Union:
		return c.compileUnion(t, s)
	case *metadata.Intersection:
		s.Type = "object"
		for _, m := range t.Members {
			sub, err := c.Compile(m)
			if err != nil {
				return nil, err
			}
			if sub != nil {
				s.AllOf = append(s.AllOf, sub)
			}
		}
	case *metadata.Tuple:
		return c.compileTuple(t, s)
	case *metadata.Generic:
		return c.compileGeneric(t, s)
	case *metadata.Date:
		s.Type = "string"
		s.Format = "date-time"
	case *metadata.ObjectKeyword:
		s.Type = "object"
	case *metadata.Void:
		return nil, nil
	case *metadata.Object:
		return c.compileObject(t, s)
	case *metadata.Unsupported:
		return nil, diagnostic.Errorf(diagnostic.CategoryTypeUnsupported, "Unknown type %s", t.Text).
			At(t.Location.File, t.Location.Line)
	default:
		return nil, diagnostic.Errorf(diagnostic.CategoryTypeUnsupported, "Unknown type %s", metadata.Describe(t))
	}
	return s, nil
}

func literalType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}

func (c *SchemaCompiler) compileUnion(u *metadata.Union, s *Schema) (*Schema, error) {
	var literals []any
	var subs []*Schema
	for _, m := range u.Members {
		if lit, ok := m.(*metadata.Literal); ok {
			if !slices.Contains(literals, lit.Value) {
				literals = append(literals, lit.Value)
			}
			continue
		}
		sub, err := c.Compile(m)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			subs = append(subs, sub)
		}
	}

	if len(literals) > 0 {
		kind := literalType(literals[0])
		for _, v := range literals[1:] {
			if literalType(v) != kind {
				return nil, diagnostic.Errorf(diagnostic.CategoryTypeUnsupported,
					"Multiple type not supported at %s", metadata.Describe(u))
			}
		}
		sortLiterals(literals)
		subs = append(subs, &Schema{Type: kind, Enum: literals})
	}

	switch len(subs) {
	case 0:
		return nil, nil
	case 1:
		*s = *subs[0]
	default:
		s.AnyOf = subs
	}
	return s, nil
}

func sortLiterals(values []any) {
	slices.SortFunc(values, func(a, b any) int {
		switch a := a.(type) {
		case string:
			return cmp.Compare(a, b.(string))
		case float64:
			return cmp.Compare(a, b.(float64))
		case bool:
			// false before true
			if a == b.(bool) {
				return 0
			}
			if !a {
				return -1
			}
			return 1
		}
		return 0
	})
}

func (c *SchemaCompiler) compileTuple(t *metadata.Tuple, s *Schema) (*Schema, error) {
	if len(t.Elements) == 0 || !allIdentical(t.Elements) {
		return nil, diagnostic.Errorf(diagnostic.CategoryTypeUnsupported,
			"Multiple type in tuple is not support, %s", metadata.Describe(t))
	}
	items, err := c.Compile(t.Elements[0])
	if err != nil {
		return nil, err
	}
	n := len(t.Elements)
	s.Type = "array"
	s.Items = items
	s.MinItems = &n
	s.MaxItems = &n
	return s, nil
}

func allIdentical(types []metadata.Type) bool {
	for _, t := range types[1:] {
		if !metadata.Identical(types[0], t) {
			return false
		}
	}
	return true
}

func (c *SchemaCompiler) compileGeneric(g *metadata.Generic, s *Schema) (*Schema, error) {
	switch {
	case g.Name == "Promise" && len(g.Args) == 1:
		// Unwraps in place; the promise has no identity of its own.
		return c.Compile(g.Args[0])
	case g.Name == "Array" && len(g.Args) == 1:
		items, err := c.Compile(g.Args[0])
		if err != nil {
			return nil, err
		}
		s.Type = "array"
		s.Items = items
	case g.Name == "Map" && len(g.Args) == 2:
		// The key type has no representation.
		values, err := c.Compile(g.Args[1])
		if err != nil {
			return nil, err
		}
		s.Type = "object"
		s.Properties = map[string]*Schema{}
		s.AdditionalProperties = values
	default:
		return nil, diagnostic.Errorf(diagnostic.CategoryTypeUnsupported,
			"Unknown generic type %s", metadata.Describe(g))
	}
	return s, nil
}

func (c *SchemaCompiler) compileObject(obj *metadata.Object, s *Schema) (*Schema, error) {
	if !obj.Anonymous && len(obj.Properties) == 0 && len(obj.Methods) == 0 {
		return nil, diagnostic.Errorf(diagnostic.CategoryTypeUnsupported,
			"no members in class declaration %s", obj.Name).At(obj.Location.File, obj.Location.Line)
	}

	s.Type = "object"
	s.Properties = map[string]*Schema{}
	hiddenClass := analyzer.HasRole(obj.Annotations, analyzer.RoleExclude)

	for _, prop := range obj.Properties {
		if propertyHidden(prop, hiddenClass) {
			continue
		}
		sub, err := c.Compile(prop.Type)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			continue
		}
		if desc := prop.Doc.Comment; desc != "" {
			sub.Description = desc
		}
		if prop.Initializer != nil {
			v, err := prop.Initializer.Value()
			if err != nil {
				return nil, diagnostic.Locate(err, prop.Location.File, prop.Location.Line)
			}
			sub.Default = v
		} else if !prop.Optional {
			s.Required = append(s.Required, prop.Name)
		}
		s.setProperty(prop.Name, sub)
	}
	return s, nil
}

// propertyHidden applies class-transformer visibility: a class-level Exclude
// hides every property, and property decorators toggle it in order.
func propertyHidden(prop metadata.Property, hidden bool) bool {
	for _, d := range analyzer.ResolveDecorators(prop.Annotations) {
		switch d.Role {
		case analyzer.RoleExclude:
			hidden = true
		case analyzer.RoleExpose:
			hidden = false
		}
	}
	return hidden || prop.Doc.HasTag("internal")
}
