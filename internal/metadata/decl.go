package metadata

// ClassDecl is a class declaration as seen by the route analyzer.
type ClassDecl struct {
	Name        string
	Doc         JSDoc
	Annotations []Annotation
	Methods     []MethodDecl
	Location    Location
}

// MethodDecl is a method of a ClassDecl.
type MethodDecl struct {
	Name        string
	Doc         JSDoc
	Annotations []Annotation
	Params      []ParamDecl
	// ReturnType is nil when the method has no return type annotation.
	ReturnType Type
	Location   Location
}

// ParamDecl is a method parameter.
type ParamDecl struct {
	Name        string
	Annotations []Annotation
	Type        Type
	Optional    bool
	Initializer *Expr
	Location    Location
}
