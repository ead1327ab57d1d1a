package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsgonest/tsoapi/internal/diagnostic"
	"github.com/tsgonest/tsoapi/internal/metadata"
)

var (
	tString  = &metadata.Primitive{Name: "string"}
	tNumber  = &metadata.Primitive{Name: "number"}
	tBoolean = &metadata.Primitive{Name: "boolean"}
)

func lit(v any) *metadata.Literal { return &metadata.Literal{Value: v} }

func intp(n int) *int { return &n }

func object(id, name string, props ...metadata.Property) *metadata.Object {
	return &metadata.Object{ID: metadata.TypeID(id), Name: name, Properties: props}
}

func prop(name string, t metadata.Type) metadata.Property {
	return metadata.Property{Name: name, Type: t}
}

func TestCompile_Primitives(t *testing.T) {
	c := NewSchemaCompiler()
	tests := []struct {
		name string
		in   metadata.Type
		want *Schema
	}{
		{"string", tString, &Schema{Type: "string"}},
		{"null", &metadata.Primitive{Name: "null"}, &Schema{Type: "null"}},
		{"string literal", lit("a"), &Schema{Type: "string", Enum: []any{"a"}, Default: "a"}},
		{"number literal", lit(float64(3)), &Schema{Type: "number", Enum: []any{float64(3)}, Default: float64(3)}},
		{"boolean literal", lit(true), &Schema{Type: "boolean", Enum: []any{true}, Default: true}},
		{"date", &metadata.Date{}, &Schema{Type: "string", Format: "date-time"}},
		{"object keyword", &metadata.ObjectKeyword{}, &Schema{Type: "object"}},
		{"array", &metadata.Generic{Name: "Array", Args: []metadata.Type{tNumber}}, &Schema{Type: "array", Items: &Schema{Type: "number"}}},
		{"promise", &metadata.Generic{Name: "Promise", Args: []metadata.Type{tBoolean}}, &Schema{Type: "boolean"}},
		{"map", &metadata.Generic{Name: "Map", Args: []metadata.Type{tString, tNumber}},
			&Schema{Type: "object", Properties: map[string]*Schema{}, AdditionalProperties: &Schema{Type: "number"}}},
		{"tuple", &metadata.Tuple{Elements: []metadata.Type{tString, tString}},
			&Schema{Type: "array", Items: &Schema{Type: "string"}, MinItems: intp(2), MaxItems: intp(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Compile(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Zero(t, c.Table().Len(), "inline types are never registered")
}

func TestCompile_Void(t *testing.T) {
	got, err := NewSchemaCompiler().Compile(&metadata.Void{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompile_UnsupportedShapes(t *testing.T) {
	tests := []struct {
		name string
		in   metadata.Type
		msg  string
	}{
		{"heterogeneous tuple", &metadata.Tuple{Elements: []metadata.Type{tString, tNumber}}, "Multiple type in tuple is not support"},
		{"empty tuple", &metadata.Tuple{}, "Multiple type in tuple is not support"},
		{"mixed literal union", &metadata.Union{Members: []metadata.Type{lit("a"), lit(float64(1))}}, "Multiple type not supported"},
		{"unknown generic", &metadata.Generic{Name: "Set", Args: []metadata.Type{tString}}, "Unknown generic type Set<string>"},
		{"unsupported", &metadata.Unsupported{Text: "any"}, "Unknown type any"},
		{"empty class", object("a.ts#Empty", "Empty"), "no members in class declaration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchemaCompiler().Compile(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, diagnostic.ErrUnsupportedType)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCompile_EmptyTypeLiteralAllowed(t *testing.T) {
	got, err := NewSchemaCompiler().Compile(&metadata.Object{Anonymous: true})
	require.NoError(t, err)
	assert.Equal(t, &Schema{Type: "object", Properties: map[string]*Schema{}}, got)
}

func TestCompile_UnionLiteralsSortedAndDeduplicated(t *testing.T) {
	got, err := NewSchemaCompiler().Compile(&metadata.Union{Members: []metadata.Type{lit("b"), lit("a"), lit("b")}})
	require.NoError(t, err)
	assert.Equal(t, &Schema{Type: "string", Enum: []any{"a", "b"}}, got)

	got, err = NewSchemaCompiler().Compile(&metadata.Union{Members: []metadata.Type{lit(float64(10)), lit(float64(9))}})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(9), float64(10)}, got.Enum, "numbers sort numerically")
}

func TestCompile_UnionFlattening(t *testing.T) {
	c := NewSchemaCompiler()

	single, err := c.Compile(&metadata.Union{Members: []metadata.Type{tString, &metadata.Void{}}})
	require.NoError(t, err)
	assert.Equal(t, &Schema{Type: "string"}, single)
	assert.Nil(t, single.AnyOf)

	mixed, err := c.Compile(&metadata.Union{Members: []metadata.Type{tNumber, lit("x"), lit("y")}})
	require.NoError(t, err)
	assert.Equal(t, &Schema{AnyOf: []*Schema{
		{Type: "number"},
		{Type: "string", Enum: []any{"x", "y"}},
	}}, mixed)
}

func TestCompile_Intersection(t *testing.T) {
	a := object("a.ts#A", "A", prop("a", tString))
	got, err := NewSchemaCompiler().Compile(&metadata.Intersection{Members: []metadata.Type{
		a, &metadata.Object{Anonymous: true, Properties: []metadata.Property{prop("b", tNumber)}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "object", got.Type)
	require.Len(t, got.AllOf, 2)
	assert.Equal(t, "#/components/schemas/A", got.AllOf[0].Ref)
	assert.Equal(t, []string{"b"}, got.AllOf[1].Required)
}

func TestCompile_ObjectProperties(t *testing.T) {
	user := object("user.ts#User", "User",
		metadata.Property{Name: "id", Type: tString, Doc: metadata.JSDoc{Comment: "Identifier."}},
		metadata.Property{Name: "nickname", Type: tString, Optional: true},
		metadata.Property{Name: "role", Type: tString, Initializer: &metadata.Expr{Kind: metadata.ExprString, Text: "member"}},
		metadata.Property{Name: "secret", Type: tString, Doc: metadata.JSDoc{Tags: []metadata.JSDocTag{{Name: "internal"}}}},
	)
	user.Methods = []string{"greet"}

	c := NewSchemaCompiler()
	ref, err := c.Compile(user)
	require.NoError(t, err)
	assert.Equal(t, &Schema{Ref: "#/components/schemas/User"}, ref)

	def := c.Deref(ref)
	assert.Equal(t, "object", def.Type)
	assert.Equal(t, []string{"id", "nickname", "role"}, def.PropertyNames())
	assert.Equal(t, "Identifier.", def.Properties["id"].Description)
	assert.Equal(t, "member", def.Properties["role"].Default)
	assert.Equal(t, []string{"id"}, def.Required, "optional and defaulted fields are not required")
}

func TestCompile_DefaultNeverRequired(t *testing.T) {
	obj := object("a.ts#Paging", "Paging",
		metadata.Property{Name: "limit", Type: tNumber, Initializer: &metadata.Expr{Kind: metadata.ExprNumber, Text: "20"}},
	)
	c := NewSchemaCompiler()
	ref, err := c.Compile(obj)
	require.NoError(t, err)
	def := c.Deref(ref)
	assert.Empty(t, def.Required)
	assert.Equal(t, float64(20), def.Properties["limit"].Default)
}

func TestCompile_MalformedPropertyDefault(t *testing.T) {
	obj := object("a.ts#Clock", "Clock", metadata.Property{
		Name:        "now",
		Type:        tNumber,
		Initializer: &metadata.Expr{Kind: metadata.ExprOther, Text: "Date.now()"},
		Location:    metadata.Location{File: "a.ts", Line: 4},
	})
	_, err := NewSchemaCompiler().Compile(obj)
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnostic.ErrMalformedDefault)
	assert.Contains(t, err.Error(), "a.ts:4")
}

func TestCompile_ExcludeAndExpose(t *testing.T) {
	exclude := metadata.Annotation{Name: "Exclude", Origin: metadata.Origin{Module: "class-transformer", Export: "Exclude"}}
	expose := metadata.Annotation{Name: "Expose", Origin: metadata.Origin{Module: "class-transformer", Export: "Expose"}}
	fakeExclude := metadata.Annotation{Name: "Exclude", Origin: metadata.Origin{Module: "src/mine.ts", Export: "Exclude"}}

	hiddenClass := object("a.ts#Hidden", "Hidden",
		prop("a", tString),
		metadata.Property{Name: "b", Type: tString, Annotations: []metadata.Annotation{expose}},
	)
	hiddenClass.Annotations = []metadata.Annotation{exclude}

	visibleClass := object("a.ts#Visible", "Visible",
		metadata.Property{Name: "a", Type: tString, Annotations: []metadata.Annotation{exclude}},
		metadata.Property{Name: "b", Type: tString, Annotations: []metadata.Annotation{fakeExclude}},
		metadata.Property{Name: "c", Type: tString, Annotations: []metadata.Annotation{exclude, expose}},
	)

	c := NewSchemaCompiler()
	ref, err := c.Compile(hiddenClass)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, c.Deref(ref).PropertyNames())

	ref, err = c.Compile(visibleClass)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, c.Deref(ref).PropertyNames())
}

func TestCompile_SelfReferenceTerminates(t *testing.T) {
	node := object("tree.ts#Node", "Node", prop("value", tString))
	node.Properties = append(node.Properties,
		prop("children", &metadata.Generic{Name: "Array", Args: []metadata.Type{node}}),
		metadata.Property{Name: "parent", Type: node, Optional: true},
	)

	c := NewSchemaCompiler()
	ref, err := c.Compile(node)
	require.NoError(t, err)
	def := c.Deref(ref)
	assert.Equal(t, "#/components/schemas/Node", def.Properties["parent"].Ref)
	assert.Equal(t, "#/components/schemas/Node", def.Properties["children"].Items.Ref)
	assert.Equal(t, 1, c.Table().Len())
}

func TestCompile_MutualRecursion(t *testing.T) {
	a := object("m.ts#A", "A")
	b := object("m.ts#B", "B", prop("a", a))
	a.Properties = []metadata.Property{prop("b", b)}

	c := NewSchemaCompiler()
	_, err := c.Compile(a)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Table().Len())
	components := c.Table().Components()
	assert.Equal(t, "#/components/schemas/B", components["A"].Properties["b"].Ref)
	assert.Equal(t, "#/components/schemas/A", components["B"].Properties["a"].Ref)
}

func TestCompile_NameCollisions(t *testing.T) {
	first := object("a.ts#User", "User", prop("a", tString))
	second := object("b.ts#User", "User", prop("a", tString))
	third := object("c.ts#User", "User", prop("a", tString))

	c := NewSchemaCompiler()
	for _, o := range []*metadata.Object{first, second, third, first} {
		_, err := c.Compile(o)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Table().Len(), "structurally identical declarations stay distinct")
	assert.ElementsMatch(t, []string{"User", "User_1", "User_2"}, keys(c.Table().Components()))

	again, err := c.Compile(second)
	require.NoError(t, err)
	assert.Equal(t, "#/components/schemas/User_1", again.Ref, "names are stable for the run")
}

func TestCompile_EnumIsReferenced(t *testing.T) {
	status := &metadata.Union{ID: "s.ts#Status", Name: "Status", Members: []metadata.Type{lit("active"), lit("disabled")}}
	c := NewSchemaCompiler()
	ref, err := c.Compile(status)
	require.NoError(t, err)
	assert.Equal(t, "#/components/schemas/Status", ref.Ref)
	assert.Equal(t, &Schema{Type: "string", Enum: []any{"active", "disabled"}}, c.Deref(ref))
}

func TestCompile_Deterministic(t *testing.T) {
	build := func() []byte {
		node := object("tree.ts#Node", "Node", prop("value", tString))
		node.Properties = append(node.Properties, prop("next", node))
		c := NewSchemaCompiler()
		_, err := c.Compile(&metadata.Generic{Name: "Array", Args: []metadata.Type{node}})
		require.NoError(t, err)
		data, err := MarshalJSON(c.Table().Components(), "  ")
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, string(build()), string(build()))
}

func keys(m map[string]*Schema) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
