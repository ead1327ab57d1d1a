package openapi

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/tsgonest/tsoapi/internal/diagnostic"
)

// ValidationError represents an OpenAPI compliance finding.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var pathTemplateParam = regexp.MustCompile(`\{([^}]+)\}`)

// ValidateDocument checks the structural rules the generator is expected to
// uphold. It returns nil for a compliant document.
func ValidateDocument(doc *Document) []ValidationError {
	var errors []ValidationError

	if doc.OpenAPI == "" {
		errors = append(errors, ValidationError{Path: "openapi", Message: "required field missing"})
	} else if !strings.HasPrefix(doc.OpenAPI, "3.0") {
		errors = append(errors, ValidationError{Path: "openapi", Message: fmt.Sprintf("expected 3.0.x, got %q", doc.OpenAPI)})
	}
	if doc.Info.Title == "" {
		errors = append(errors, ValidationError{Path: "info.title", Message: "required field missing"})
	}
	if doc.Info.Version == "" {
		errors = append(errors, ValidationError{Path: "info.version", Message: "required field missing"})
	}
	if doc.Paths == nil {
		errors = append(errors, ValidationError{Path: "paths", Message: "required field missing"})
	}

	for _, path := range sortedKeys(doc.Paths) {
		if !strings.HasPrefix(path, "/") {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("paths[%q]", path),
				Message: "path must begin with /",
			})
		}
		errors = append(errors, validatePathItem(path, doc.Paths[path])...)
	}

	if doc.Components != nil {
		for _, name := range sortedKeys(doc.Components.Schemas) {
			errors = append(errors, validateSchema("components.schemas."+name, doc.Components.Schemas[name])...)
		}
	}

	for i, server := range doc.Servers {
		if server.URL == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("servers[%d].url", i),
				Message: "required field missing",
			})
		}
	}

	return errors
}

var verbs = []string{"get", "put", "post", "delete", "options", "head", "patch"}

func validatePathItem(path string, item *PathItem) []ValidationError {
	var errors []ValidationError
	prefix := fmt.Sprintf("paths[%q]", path)

	var templated []string
	for _, m := range pathTemplateParam.FindAllStringSubmatch(path, -1) {
		templated = append(templated, m[1])
	}

	for _, verb := range verbs {
		op := item.Operation(verb)
		if op == nil {
			continue
		}
		opPath := prefix + "." + verb
		errors = append(errors, validateOperation(opPath, op)...)

		for _, name := range templated {
			if !slices.ContainsFunc(op.Parameters, func(p *Parameter) bool { return p.In == "path" && p.Name == name }) {
				errors = append(errors, ValidationError{
					Path:    opPath + ".parameters",
					Message: fmt.Sprintf("path template parameter %q has no matching path parameter", name),
				})
			}
		}
		for i, p := range op.Parameters {
			if p.In == "path" && !slices.Contains(templated, p.Name) {
				errors = append(errors, ValidationError{
					Path:    fmt.Sprintf("%s.parameters[%d]", opPath, i),
					Message: fmt.Sprintf("path parameter %q does not appear in the path", p.Name),
				})
			}
		}
	}

	return errors
}

func validateOperation(prefix string, op *Operation) []ValidationError {
	var errors []ValidationError

	if len(op.Responses) == 0 {
		errors = append(errors, ValidationError{
			Path:    prefix + ".responses",
			Message: "at least one response is required",
		})
	}

	seen := make(map[string]bool)
	for i, param := range op.Parameters {
		paramPath := fmt.Sprintf("%s.parameters[%d]", prefix, i)
		if param.Name == "" {
			errors = append(errors, ValidationError{Path: paramPath + ".name", Message: "required field missing"})
		}
		switch param.In {
		case "":
			errors = append(errors, ValidationError{Path: paramPath + ".in", Message: "required field missing"})
		case "query", "path", "header", "cookie":
		default:
			errors = append(errors, ValidationError{
				Path:    paramPath + ".in",
				Message: fmt.Sprintf("invalid value %q, must be query/path/header/cookie", param.In),
			})
		}
		if param.In == "path" && !param.Required {
			errors = append(errors, ValidationError{
				Path:    paramPath + ".required",
				Message: "path parameters must be required",
			})
		}
		key := param.In + ":" + param.Name
		if seen[key] {
			errors = append(errors, ValidationError{
				Path:    paramPath,
				Message: fmt.Sprintf("duplicate %s parameter %q", param.In, param.Name),
			})
		}
		seen[key] = true
	}

	for _, code := range sortedKeys(op.Responses) {
		if op.Responses[code].Description == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("%s.responses[%s].description", prefix, code),
				Message: "required field missing",
			})
		}
	}

	return errors
}

func validateSchema(prefix string, schema *Schema) []ValidationError {
	var errors []ValidationError
	if schema.Ref != "" && (schema.Type != "" || schema.Properties != nil || schema.Items != nil) {
		errors = append(errors, ValidationError{
			Path:    prefix,
			Message: "$ref must not be combined with structural fields",
		})
	}
	return errors
}

// ValidateBytes loads an encoded OpenAPI document (JSON or YAML) with
// kin-openapi and runs its validator.
func ValidateBytes(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("validating document: %w", err)
	}
	return nil
}

// Check records structural findings and kin-openapi validation failures as
// compliance warnings. They never abort generation.
func Check(ctx context.Context, doc *Document, diags *diagnostic.Collector) {
	for _, e := range ValidateDocument(doc) {
		diags.Warn(diagnostic.CategoryOpenAPICompliance, "", 0, e.Error())
	}
	data, err := MarshalJSON(doc, "")
	if err != nil {
		diags.Warn(diagnostic.CategoryOpenAPICompliance, "", 0, err.Error())
		return
	}
	if err := ValidateBytes(ctx, data); err != nil {
		diags.Warn(diagnostic.CategoryOpenAPICompliance, "", 0, err.Error())
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}
