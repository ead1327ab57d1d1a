package openapi

import (
	"fmt"
	"regexp"

	"golang.org/x/text/cases"

	"github.com/tsgonest/tsoapi/internal/analyzer"
	"github.com/tsgonest/tsoapi/internal/diagnostic"
)

// Version is the OpenAPI version emitted.
const Version = "3.0.3"

// Document is an OpenAPI 3.0 document.
type Document struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Servers    []Server             `json:"servers,omitempty"`
	Tags       []Tag                `json:"tags,omitempty"`
	Paths      map[string]*PathItem `json:"paths"`
	Components *Components          `json:"components,omitzero"`
}

// Info holds API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents an OpenAPI server.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Tag represents an OpenAPI tag.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PathItem holds the operations for a single path.
type PathItem struct {
	Get     *Operation `json:"get,omitzero"`
	Put     *Operation `json:"put,omitzero"`
	Post    *Operation `json:"post,omitzero"`
	Delete  *Operation `json:"delete,omitzero"`
	Options *Operation `json:"options,omitzero"`
	Head    *Operation `json:"head,omitzero"`
	Patch   *Operation `json:"patch,omitzero"`
}

// slot returns the field holding verb's operation, or nil for an unknown verb.
func (p *PathItem) slot(verb string) **Operation {
	switch verb {
	case "get":
		return &p.Get
	case "put":
		return &p.Put
	case "post":
		return &p.Post
	case "delete":
		return &p.Delete
	case "options":
		return &p.Options
	case "head":
		return &p.Head
	case "patch":
		return &p.Patch
	}
	return nil
}

// Operation returns the operation registered for verb.
func (p *PathItem) Operation(verb string) *Operation {
	if s := p.slot(verb); s != nil {
		return *s
	}
	return nil
}

// Operation represents an HTTP operation.
type Operation struct {
	Tags        []string              `json:"tags,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	Deprecated  bool                  `json:"deprecated,omitzero"`
	Parameters  []*Parameter          `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitzero"`
	Responses   Responses             `json:"responses"`
	Security    []map[string][]string `json:"security,omitempty"`
}

// Parameter is a non-body operation input.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitzero"`
	Schema      *Schema `json:"schema"`
}

// RequestBody represents an OpenAPI request body.
type RequestBody struct {
	Required bool                  `json:"required,omitzero"`
	Content  map[string]*MediaType `json:"content"`
}

// MediaType holds the schema for a content type.
type MediaType struct {
	Schema *Schema `json:"schema,omitzero"`
}

// Responses maps status codes to response objects.
type Responses map[string]*Response

// Response represents an OpenAPI response.
type Response struct {
	Description string                `json:"description"`
	Content     map[string]*MediaType `json:"content,omitempty"`
}

// Components holds reusable schemas and security schemes.
type Components struct {
	Schemas         map[string]*Schema         `json:"schemas,omitempty"`
	SecuritySchemes map[string]*SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityScheme represents an OpenAPI security scheme.
type SecurityScheme struct {
	Type             string         `json:"type"` // "http", "apiKey", "oauth2", "openIdConnect"
	Description      string         `json:"description,omitempty"`
	Name             string         `json:"name,omitempty"`         // header/query/cookie name (for apiKey)
	In               string         `json:"in,omitempty"`           // "header", "query", "cookie" (for apiKey)
	Scheme           string         `json:"scheme,omitempty"`       // "bearer", "basic"
	BearerFormat     string         `json:"bearerFormat,omitempty"` // "JWT"
	Flows            map[string]any `json:"flows,omitempty"`
	OpenIDConnectURL string         `json:"openIdConnectUrl,omitempty"`
}

// DocumentConfig holds the project-level document settings.
type DocumentConfig struct {
	Title           string
	Description     string
	Version         string
	Servers         []Server
	SecuritySchemes map[string]*SecurityScheme
	// SecurityTemplates maps a template name to scheme name -> scopes. The
	// "" template is the project default and must exist when security is
	// configured.
	SecurityTemplates map[string]map[string][]string
}

// securityConfigured reports whether any security settings are present. An
// explicitly empty map counts as present.
func (c DocumentConfig) securityConfigured() bool {
	return c.SecuritySchemes != nil || c.SecurityTemplates != nil
}

// CheckSecurity fails when security is configured without a default template.
func (c DocumentConfig) CheckSecurity() error {
	if !c.securityConfigured() {
		return nil
	}
	if _, ok := c.SecurityTemplates[""]; !ok {
		return diagnostic.Errorf(diagnostic.CategoryConfigMissing,
			`securityTemplates must define a default template with the key ""`)
	}
	return nil
}

const (
	defaultMediaType    = "*/*"
	defaultResponseCode = "default"
)

var routeParam = regexp.MustCompile(`(\/)?:(\w+)(\(.*?\))?(\*)?(\?)?`)

// OpenAPIPath joins a controller route and a method route and rewrites
// ":name" placeholders, including optional regex, "*" and "?" suffixes, to
// "{name}".
func OpenAPIPath(controllerRoute, methodRoute string) string {
	return routeParam.ReplaceAllString(controllerRoute+methodRoute, "$1{$2}")
}

// Generator creates OpenAPI documents from analyzed controllers.
type Generator struct {
	config   DocumentConfig
	compiler *SchemaCompiler
	diags    *diagnostic.Collector
	fold     cases.Caser
}

// NewGenerator creates a generator. diags may be nil.
func NewGenerator(config DocumentConfig, diags *diagnostic.Collector) *Generator {
	return &Generator{
		config:   config,
		compiler: NewSchemaCompiler(),
		diags:    diags,
		fold:     cases.Fold(),
	}
}

// Table returns the schema table filled by Generate.
func (g *Generator) Table() *SchemaTable { return g.compiler.Table() }

// Generate builds the document. Any error aborts generation; no partial
// document is returned.
func (g *Generator) Generate(controllers []*analyzer.Controller) (*Document, error) {
	if err := g.config.CheckSecurity(); err != nil {
		return nil, err
	}

	doc := &Document{
		OpenAPI: Version,
		Info: Info{
			Title:       g.config.Title,
			Description: g.config.Description,
			Version:     g.config.Version,
		},
		Servers: g.config.Servers,
		Paths:   make(map[string]*PathItem),
	}

	for _, ctrl := range controllers {
		tag := g.tagName(ctrl.Name)
		if ctrl.Description != "" {
			doc.Tags = append(doc.Tags, Tag{Name: tag, Description: ctrl.Description})
		}
		for _, method := range ctrl.Methods {
			if err := g.addMethod(doc, ctrl, method, tag); err != nil {
				return nil, err
			}
		}
	}

	components := &Components{}
	if g.compiler.Table().Len() > 0 {
		components.Schemas = g.compiler.Table().Components()
	}
	if len(g.config.SecuritySchemes) > 0 {
		components.SecuritySchemes = g.config.SecuritySchemes
	}
	if components.Schemas != nil || components.SecuritySchemes != nil {
		doc.Components = components
	}
	return doc, nil
}

// tagName strips a case-insensitive "controller" suffix from a class name.
func (g *Generator) tagName(name string) string {
	const suffix = "controller"
	if len(name) >= len(suffix) && g.fold.String(name[len(name)-len(suffix):]) == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}

// compiledParam is a method parameter with its schema.
type compiledParam struct {
	param  *analyzer.Parameter
	schema *Schema
}

func (g *Generator) addMethod(doc *Document, ctrl *analyzer.Controller, method *analyzer.Method, tag string) error {
	// Parameters compile before the return type so component names are
	// assigned in declaration order.
	var params []compiledParam
	for _, p := range method.Parameters {
		schema, err := g.parameterSchema(p)
		if err != nil {
			return err
		}
		params = append(params, compiledParam{param: p, schema: schema})
	}
	var returnSchema *Schema
	if method.ReturnType != nil {
		s, err := g.compiler.Compile(method.ReturnType)
		if err != nil {
			return diagnostic.Locate(err, method.Location.File, method.Location.Line)
		}
		returnSchema = s
	}

	parameters := g.parameterObjects(params)
	body, err := g.requestBody(ctrl, method, params)
	if err != nil {
		return err
	}
	security, err := g.security(ctrl, method)
	if err != nil {
		return err
	}

	mediaType := effectiveMediaType("", method.MediaType, ctrl.MediaType)
	for _, route := range method.Routes {
		op := &Operation{
			Tags:        []string{tag},
			Summary:     method.Summary,
			Description: method.Description,
			Deprecated:  method.Deprecated,
			Parameters:  parameters,
			Responses:   Responses{defaultResponseCode: {Description: "Success"}},
			Security:    security,
		}
		if returnSchema != nil {
			op.Responses[defaultResponseCode].Content = map[string]*MediaType{mediaType: {Schema: returnSchema}}
		}
		if body != nil && route.Verb != "get" {
			op.RequestBody = body
		}

		path := OpenAPIPath(ctrl.Route, route.Path)
		item, ok := doc.Paths[path]
		if !ok {
			item = &PathItem{}
			doc.Paths[path] = item
		}
		slot := item.slot(route.Verb)
		if slot == nil {
			return fmt.Errorf("%s.%s: unsupported HTTP verb %q", ctrl.Name, method.Name, route.Verb)
		}
		if *slot != nil {
			g.diags.Warn(diagnostic.CategoryRouteConflict, method.Location.File, method.Location.Line,
				fmt.Sprintf("%s %s is declared more than once; %s.%s replaces the earlier operation",
					route.Verb, path, ctrl.Name, method.Name))
		}
		*slot = op
	}
	return nil
}

func (g *Generator) parameterSchema(p *analyzer.Parameter) (*Schema, error) {
	var schema *Schema
	if p.File {
		schema = &Schema{Type: "string", Format: "binary"}
	} else {
		s, err := g.compiler.Compile(p.Type)
		if err != nil {
			return nil, diagnostic.Locate(err, p.Location.File, p.Location.Line)
		}
		if s == nil {
			s = &Schema{}
		}
		schema = s
	}
	if p.HasDefault {
		schema.Default = p.Default
	}
	return schema, nil
}

// parameterObjects converts non-body parameters. A whole param whose schema
// is an object is expanded into one parameter per property.
func (g *Generator) parameterObjects(params []compiledParam) []*Parameter {
	var out []*Parameter
	for _, cp := range params {
		p := cp.param
		if p.In == analyzer.InBody {
			continue
		}
		if p.WholeParam {
			if obj := g.compiler.Deref(cp.schema); obj != nil && obj.Type == "object" && obj.Properties != nil {
				for _, name := range obj.PropertyNames() {
					out = append(out, parameterObject(name, p.In, obj.Properties[name], obj.IsRequired(name)))
				}
				continue
			}
		}
		out = append(out, parameterObject(p.Name, p.In, cp.schema, p.Required))
	}
	return out
}

func parameterObject(name string, in analyzer.In, schema *Schema, required bool) *Parameter {
	s := schema.clone()
	param := &Parameter{
		Name:        name,
		In:          string(in),
		Description: s.Description,
		Required:    in == analyzer.InPath || required,
		Schema:      s,
	}
	s.Description = ""
	return param
}

// bodyContent accumulates the request body for one content type.
type bodyContent struct {
	schema *Schema
	// whole is set when a whole-body parameter owns the schema.
	whole bool
}

func (g *Generator) requestBody(ctrl *analyzer.Controller, method *analyzer.Method, params []compiledParam) (*RequestBody, error) {
	var body *RequestBody
	contents := make(map[string]*bodyContent)

	for _, cp := range params {
		p := cp.param
		if p.In != analyzer.InBody {
			continue
		}
		if body == nil {
			body = &RequestBody{Content: make(map[string]*MediaType)}
		}
		mediaType := effectiveMediaType(p.MediaType, method.MediaType, ctrl.MediaType)
		content := contents[mediaType]

		if p.WholeParam {
			if content != nil {
				return nil, diagnostic.Errorf(diagnostic.CategoryDuplicate,
					"Duplicate body parameter '%s' in %s.%s: the %s request body is already defined",
					p.Name, ctrl.Name, method.Name, mediaType).At(p.Location.File, p.Location.Line)
			}
			contents[mediaType] = &bodyContent{schema: cp.schema, whole: true}
		} else {
			if content == nil {
				content = &bodyContent{schema: &Schema{Type: "object", Properties: map[string]*Schema{}}}
				contents[mediaType] = content
			}
			if content.whole {
				return nil, diagnostic.Errorf(diagnostic.CategoryDuplicate,
					"Body parameter '%s' in %s.%s conflicts with the whole %s request body",
					p.Name, ctrl.Name, method.Name, mediaType).At(p.Location.File, p.Location.Line)
			}
			if _, exists := content.schema.Properties[p.Name]; exists {
				return nil, diagnostic.Errorf(diagnostic.CategoryDuplicate,
					"Duplicate body parameter '%s' in %s.%s", p.Name, ctrl.Name, method.Name).
					At(p.Location.File, p.Location.Line)
			}
			content.schema.setProperty(p.Name, cp.schema)
			if p.Required {
				content.schema.Required = append(content.schema.Required, p.Name)
			}
		}
		if p.Required {
			body.Required = true
		}
		body.Content[mediaType] = &MediaType{Schema: contents[mediaType].schema}
	}
	return body, nil
}

// effectiveMediaType picks the most specific non-empty content type.
func effectiveMediaType(param, method, controller string) string {
	for _, mt := range []string{param, method, controller} {
		if mt != "" {
			return mt
		}
	}
	return defaultMediaType
}

func (g *Generator) security(ctrl *analyzer.Controller, method *analyzer.Method) ([]map[string][]string, error) {
	name := method.Authorization
	if name == nil {
		name = ctrl.Authorization
	}
	if name == nil {
		return nil, nil
	}
	template, ok := g.config.SecurityTemplates[*name]
	if !ok {
		return nil, diagnostic.Errorf(diagnostic.CategoryConfigMissing,
			"Unknown security template '%s' used by %s.%s", *name, ctrl.Name, method.Name).
			At(method.Location.File, method.Location.Line)
	}
	requirement := make(map[string][]string, len(template))
	for scheme, scopes := range template {
		if scopes == nil {
			scopes = []string{}
		}
		requirement[scheme] = scopes
	}
	return []map[string][]string{requirement}, nil
}

