package analyzer

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tsgonest/tsoapi/internal/diagnostic"
	"github.com/tsgonest/tsoapi/internal/metadata"
)

// Controller is a class carrying a controller-role decorator.
type Controller struct {
	// Name is the class name (e.g., "UserController").
	Name string
	// Route is the base route template from the decorator's first argument.
	Route string
	// Description is the class JSDoc body, or its @description tag.
	Description string
	// MediaType is the default content type implied by the decorator.
	MediaType string
	// Authorization is the controller-wide security template name, if any.
	Authorization *string
	Methods       []*Method
	Location      metadata.Location
}

// Route is one (verb, path template) pair declared on a method.
type Route struct {
	// Verb is the lower-cased action decorator name: "get", "post", ...
	Verb string
	Path string
}

// Method is a controller method with at least one action decorator.
type Method struct {
	Name        string
	Routes      []Route
	Summary     string
	Description string
	Deprecated  bool
	Parameters  []*Parameter
	// ReturnType is nil when the method declares no return type.
	ReturnType metadata.Type
	// MediaType overrides the controller content type when set.
	MediaType string
	// Authorization overrides the controller template when non-nil.
	Authorization *string
	Location      metadata.Location
}

// Parameter is a method parameter carrying a binding decorator.
type Parameter struct {
	// Name is the decorator's first argument, or the declared identifier.
	Name string
	In   In
	Type metadata.Type
	// File marks an uploaded file; its schema is a binary string.
	File       bool
	WholeParam bool
	Required   bool
	// Default is the evaluated initializer when HasDefault is set.
	Default    any
	HasDefault bool
	MediaType  string
	Location   metadata.Location
}

// ClassSource yields the decorated class declarations of a program.
type ClassSource interface {
	Classes() []*metadata.ClassDecl
}

// ControllerAnalyzer builds the controller model from class declarations.
type ControllerAnalyzer struct {
	source ClassSource
	diags  *diagnostic.Collector
	lower  cases.Caser
}

// NewControllerAnalyzer creates an analyzer. diags may be nil.
func NewControllerAnalyzer(source ClassSource, diags *diagnostic.Collector) *ControllerAnalyzer {
	return &ControllerAnalyzer{
		source: source,
		diags:  diags,
		lower:  cases.Lower(language.Und),
	}
}

// Analyze returns every controller in declaration order. Classes without a
// controller decorator, methods without an action decorator and parameters
// without a binding decorator are skipped.
func (a *ControllerAnalyzer) Analyze() ([]*Controller, error) {
	var controllers []*Controller
	for _, class := range a.source.Classes() {
		c, err := a.analyzeClass(class)
		if err != nil {
			return nil, err
		}
		if c != nil {
			controllers = append(controllers, c)
		}
	}
	return controllers, nil
}

func (a *ControllerAnalyzer) analyzeClass(class *metadata.ClassDecl) (*Controller, error) {
	var controller *Decorator
	var auth *string
	for _, d := range ResolveDecorators(class.Annotations) {
		switch d.Role {
		case RoleController:
			if controller != nil {
				return nil, diagnostic.Errorf(diagnostic.CategoryDuplicate,
					"Encountered multiple route decorator in '%s' controller", class.Name).
					At(class.Location.File, class.Location.Line)
			}
			controller = &d
		case RoleAuthorization:
			name := d.Arg(0)
			auth = &name
		}
	}
	if controller == nil {
		return nil, nil
	}

	doc := extractClassJSDoc(class.Doc)
	if doc.Hidden {
		return nil, nil
	}

	c := &Controller{
		Name:          class.Name,
		Route:         controller.Arg(0),
		Description:   doc.Description,
		MediaType:     controller.Options.MediaType,
		Authorization: auth,
		Location:      class.Location,
	}
	for i := range class.Methods {
		m, err := a.analyzeMethod(&class.Methods[i])
		if err != nil {
			return nil, err
		}
		if m != nil {
			c.Methods = append(c.Methods, m)
		}
	}
	return c, nil
}

func (a *ControllerAnalyzer) analyzeMethod(decl *metadata.MethodDecl) (*Method, error) {
	m := &Method{
		Name:       decl.Name,
		ReturnType: decl.ReturnType,
		Location:   decl.Location,
	}
	for _, d := range ResolveDecorators(decl.Annotations) {
		switch d.Role {
		case RoleAction:
			m.Routes = append(m.Routes, Route{Verb: a.lower.String(d.Name), Path: d.Arg(0)})
		case RoleContentType:
			m.MediaType = d.Arg(0)
		case RoleAuthorization:
			name := d.Arg(0)
			m.Authorization = &name
		}
	}
	if len(m.Routes) == 0 {
		return nil, nil
	}

	doc := extractMethodJSDoc(decl.Doc)
	if doc.Hidden {
		return nil, nil
	}
	m.Summary = doc.Summary
	m.Description = doc.Description
	m.Deprecated = doc.Deprecated

	for i := range decl.Params {
		p, err := a.analyzeParameter(&decl.Params[i])
		if err != nil {
			return nil, err
		}
		if p != nil {
			m.Parameters = append(m.Parameters, p)
		}
	}
	return m, nil
}

func (a *ControllerAnalyzer) analyzeParameter(decl *metadata.ParamDecl) (*Parameter, error) {
	var binding *Decorator
	for _, d := range ResolveDecorators(decl.Annotations) {
		if d.Role == RoleParam || d.Role == RoleFile {
			binding = &d
			break
		}
	}
	if binding == nil {
		return nil, nil
	}

	p := &Parameter{
		Name:       decl.Name,
		In:         binding.Options.In,
		Type:       decl.Type,
		File:       binding.Role == RoleFile,
		WholeParam: binding.Options.WholeParam,
		MediaType:  binding.Options.MediaType,
		Location:   decl.Location,
	}
	if name := binding.Arg(0); name != "" {
		p.Name = name
	}

	if decl.Initializer != nil {
		v, err := decl.Initializer.Value()
		if err != nil {
			return nil, diagnostic.Locate(err, decl.Location.File, decl.Location.Line)
		}
		p.Default = v
		p.HasDefault = true
	} else {
		p.Required = !decl.Optional
	}

	validateParameter(p, a.diags)
	return p, nil
}

