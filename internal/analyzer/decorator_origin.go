package analyzer

import (
	"github.com/tsgonest/tsoapi/internal/metadata"
)

// Role is the semantic role of a recognized decorator.
type Role int

const (
	RoleUnknown Role = iota
	RoleController
	RoleAction
	RoleParam
	RoleFile
	RoleAuthorization
	RoleContentType
	RoleExclude
	RoleExpose
)

func (r Role) String() string {
	switch r {
	case RoleController:
		return "controller"
	case RoleAction:
		return "action"
	case RoleParam:
		return "param"
	case RoleFile:
		return "file"
	case RoleAuthorization:
		return "authorization"
	case RoleContentType:
		return "content-type"
	case RoleExclude:
		return "exclude"
	case RoleExpose:
		return "expose"
	default:
		return "unknown"
	}
}

// In is a parameter binding location.
type In string

const (
	InPath   In = "path"
	InQuery  In = "query"
	InHeader In = "header"
	InCookie In = "cookie"
	InBody   In = "body"
)

// Options are the role-specific settings of a catalog entry.
type Options struct {
	// MediaType is the default content type a controller or file upload implies.
	MediaType string
	In        In
	// WholeParam marks bindings that take an entire structured value.
	WholeParam bool
}

// CatalogEntry maps a decorator's defining module and exported name to a role.
type CatalogEntry struct {
	Module  string
	Name    string
	Role    Role
	Options Options
}

const (
	routingControllers = "routing-controllers"
	classTransformer   = "class-transformer"
)

// Catalog lists every decorator the analyzer understands.
var Catalog = []CatalogEntry{
	{routingControllers, "Controller", RoleController, Options{MediaType: "*/*"}},
	{routingControllers, "JsonController", RoleController, Options{MediaType: "application/json"}},
	{routingControllers, "Get", RoleAction, Options{}},
	{routingControllers, "Put", RoleAction, Options{}},
	{routingControllers, "Post", RoleAction, Options{}},
	{routingControllers, "Delete", RoleAction, Options{}},
	{routingControllers, "Options", RoleAction, Options{}},
	{routingControllers, "Head", RoleAction, Options{}},
	{routingControllers, "Patch", RoleAction, Options{}},
	{routingControllers, "Param", RoleParam, Options{In: InPath}},
	{routingControllers, "QueryParam", RoleParam, Options{In: InQuery}},
	{routingControllers, "QueryParams", RoleParam, Options{In: InQuery, WholeParam: true}},
	{routingControllers, "HeaderParam", RoleParam, Options{In: InHeader}},
	{routingControllers, "HeaderParams", RoleParam, Options{In: InHeader, WholeParam: true}},
	{routingControllers, "CookieParam", RoleParam, Options{In: InCookie}},
	{routingControllers, "CookieParams", RoleParam, Options{In: InCookie, WholeParam: true}},
	{routingControllers, "BodyParam", RoleParam, Options{In: InBody}},
	{routingControllers, "Body", RoleParam, Options{In: InBody, WholeParam: true}},
	{routingControllers, "UploadedFile", RoleFile, Options{MediaType: "multipart/form-data", In: InBody}},
	{routingControllers, "UploadedFiles", RoleFile, Options{MediaType: "multipart/form-data", In: InBody, WholeParam: true}},
	{routingControllers, "Authorized", RoleAuthorization, Options{}},
	{routingControllers, "ContentType", RoleContentType, Options{}},
	{classTransformer, "Exclude", RoleExclude, Options{}},
	{classTransformer, "Expose", RoleExpose, Options{}},
}

var catalogIndex = func() map[metadata.Origin]CatalogEntry {
	idx := make(map[metadata.Origin]CatalogEntry, len(Catalog))
	for _, e := range Catalog {
		idx[metadata.Origin{Module: e.Module, Export: e.Name}] = e
	}
	return idx
}()

// Decorator is an annotation resolved against the Catalog.
type Decorator struct {
	Role Role
	// Name is the exported name at the definition site, not the local alias.
	Name       string
	Args       []string
	Options    Options
	Annotation metadata.Annotation
}

// Arg returns the i-th string argument, or "".
func (d Decorator) Arg(i int) string {
	if i < len(d.Args) {
		return d.Args[i]
	}
	return ""
}

// ResolveDecorator matches an annotation by its resolved origin. Annotations
// that match no catalog entry resolve to RoleUnknown.
func ResolveDecorator(a metadata.Annotation) Decorator {
	entry, ok := catalogIndex[a.Origin]
	if !ok {
		return Decorator{Role: RoleUnknown, Name: a.Origin.Export, Args: a.Args, Annotation: a}
	}
	return Decorator{Role: entry.Role, Name: entry.Name, Args: a.Args, Options: entry.Options, Annotation: a}
}

// ResolveDecorators resolves every annotation and drops the unknown ones.
func ResolveDecorators(annotations []metadata.Annotation) []Decorator {
	var out []Decorator
	for _, a := range annotations {
		if d := ResolveDecorator(a); d.Role != RoleUnknown {
			out = append(out, d)
		}
	}
	return out
}

// HasRole reports whether any annotation resolves to role.
func HasRole(annotations []metadata.Annotation, role Role) bool {
	for _, a := range annotations {
		if ResolveDecorator(a).Role == role {
			return true
		}
	}
	return false
}
