// Package metadata defines the type descriptors produced by the TypeScript
// front-end and consumed by the schema compiler. It is a closed sum type: every
// classification the compiler understands has exactly one concrete type here,
// and anything else arrives as *Unsupported.
package metadata

// Kind names the classification of a Type.
type Kind string

const (
	KindPrimitive     Kind = "primitive"     // string, number, boolean, null
	KindLiteral       Kind = "literal"       // "a", 1, true
	KindUnion         Kind = "union"         // A | B, enum declarations
	KindIntersection  Kind = "intersection"  // A & B
	KindTuple         Kind = "tuple"         // [A, A]
	KindGeneric       Kind = "generic"       // Promise<T>, Array<T>, Map<K, V>
	KindDate          Kind = "date"          // Date
	KindObjectKeyword Kind = "objectKeyword" // object
	KindVoid          Kind = "void"          // void, undefined
	KindObject        Kind = "object"        // class, interface, type literal
	KindUnsupported   Kind = "unsupported"
)

// Type is a descriptor for one TypeScript type.
type Type interface {
	Kind() Kind
	sealed()
}

// TypeID is the stable identity of a declared type: "<file>#<qualified name>".
// Anonymous shapes and generic instantiations have no identity.
type TypeID string

// Location is a 1-based source position.
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Primitive is one of the intrinsic types string, number, boolean or null.
type Primitive struct {
	Name string
}

// Literal is a string, number (float64) or boolean literal type.
type Literal struct {
	Value any
}

// Union is a union of member types. Enum declarations are unions of literals
// that carry an ID and Name.
type Union struct {
	ID      TypeID
	Name    string
	Members []Type
}

// Intersection is A & B & ...
type Intersection struct {
	Members []Type
}

// Tuple is a fixed-length array type.
type Tuple struct {
	Elements []Type
}

// Generic is a generic instantiation such as Promise<T>, Array<T> (also
// written T[]) or Map<K, V>.
type Generic struct {
	Name string
	Args []Type
}

// Date is the built-in Date class.
type Date struct{}

// ObjectKeyword is the intrinsic `object` type.
type ObjectKeyword struct{}

// Void is void or undefined. It compiles to no schema.
type Void struct{}

// Object is a class, an interface or an anonymous type literal.
type Object struct {
	ID          TypeID
	Name        string
	Anonymous   bool
	Annotations []Annotation
	Properties  []Property
	// Methods lists member functions; they never produce schema properties.
	Methods  []string
	Location Location
}

// Unsupported is a type the front-end could not classify, such as any,
// unknown, a function type or an unresolved reference.
type Unsupported struct {
	Text     string
	Location Location
}

// Property is a field of an Object.
type Property struct {
	Name        string
	Type        Type
	Optional    bool
	Initializer *Expr
	Doc         JSDoc
	Annotations []Annotation
	Location    Location
}

// JSDoc is a parsed documentation comment.
type JSDoc struct {
	Comment string
	Tags    []JSDocTag
}

// JSDocTag is one @tag with its text.
type JSDocTag struct {
	Name string
	Text string
}

// Tag returns the first tag with the given name.
func (d JSDoc) Tag(name string) (JSDocTag, bool) {
	for _, t := range d.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return JSDocTag{}, false
}

// HasTag reports whether the comment carries @name.
func (d JSDoc) HasTag(name string) bool {
	_, ok := d.Tag(name)
	return ok
}

// Origin is the canonical definition site of an annotation: the module
// specifier it was imported from and its exported name there. Locally
// declared decorators have an empty Module.
type Origin struct {
	Module string `json:"module"`
	Export string `json:"export"`
}

// Annotation is one decorator application.
type Annotation struct {
	// Name is the identifier as written at the call site (possibly an alias).
	Name   string   `json:"name"`
	Origin Origin   `json:"origin"`
	Args   []string `json:"args,omitempty"` // string-literal arguments only
	// Called is false for bare `@Foo` applications.
	Called   bool     `json:"called,omitempty"`
	Location Location `json:"location"`
}

func (*Primitive) Kind() Kind     { return KindPrimitive }
func (*Literal) Kind() Kind       { return KindLiteral }
func (*Union) Kind() Kind         { return KindUnion }
func (*Intersection) Kind() Kind  { return KindIntersection }
func (*Tuple) Kind() Kind         { return KindTuple }
func (*Generic) Kind() Kind       { return KindGeneric }
func (*Date) Kind() Kind          { return KindDate }
func (*ObjectKeyword) Kind() Kind { return KindObjectKeyword }
func (*Void) Kind() Kind          { return KindVoid }
func (*Object) Kind() Kind        { return KindObject }
func (*Unsupported) Kind() Kind   { return KindUnsupported }

func (*Primitive) sealed()     {}
func (*Literal) sealed()       {}
func (*Union) sealed()         {}
func (*Intersection) sealed()  {}
func (*Tuple) sealed()         {}
func (*Generic) sealed()       {}
func (*Date) sealed()          {}
func (*ObjectKeyword) sealed() {}
func (*Void) sealed()          {}
func (*Object) sealed()        {}
func (*Unsupported) sealed()   {}
