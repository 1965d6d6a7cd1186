// Package openapi generates OpenAPI 3.0 documents from mounted viewsets.
// Paths, operations and component schemas are derived from each viewset's
// routes, schema descriptors and query pipeline.
package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/artpar/crudkit/core/field"
	"github.com/artpar/crudkit/core/query"
	"github.com/artpar/crudkit/core/view"
)

// Spec represents an OpenAPI 3.0 specification.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

func (p *PathItem) set(method string, op *Operation) {
	switch method {
	case http.MethodGet:
		p.Get = op
	case http.MethodPost:
		p.Post = op
	case http.MethodPut:
		p.Put = op
	case http.MethodPatch:
		p.Patch = op
	case http.MethodDelete:
		p.Delete = op
	}
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string            `json:"tags,omitempty"`
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // path, query, header
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Required bool                 `json:"required,omitempty"`
	Content  map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Headers     map[string]Header    `json:"headers,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// Header describes a response header.
type Header struct {
	Description string  `json:"description,omitempty"`
	Schema      *Schema `json:"schema"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
	Default              any                `json:"default,omitempty"`
	Nullable             bool               `json:"nullable,omitempty"`
	ReadOnly             bool               `json:"readOnly,omitempty"`
}

// Components contains reusable schemas.
type Components struct {
	Schemas map[string]*Schema `json:"schemas,omitempty"`
}

// Tag provides metadata for a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type mounted struct {
	path string
	vs   *view.ViewSet
}

// Generator collects mounted viewsets and renders them as one document.
type Generator struct {
	info    Info
	servers []Server
	views   []mounted
}

// NewGenerator creates a generator with the given document info.
func NewGenerator(info Info) *Generator {
	if info.Title == "" {
		info.Title = "crudkit API"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}
	return &Generator{info: info}
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{URL: url, Description: description})
}

// Add registers vs as mounted at path.
func (g *Generator) Add(path string, vs *view.ViewSet) {
	g.views = append(g.views, mounted{path: path, vs: vs})
}

// Generate creates the OpenAPI specification. Only enabled routes appear.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: map[string]*Schema{
				"Error": errorSchema(),
			},
		},
	}

	views := append([]mounted(nil), g.views...)
	sort.Slice(views, func(i, j int) bool { return views[i].path < views[j].path })

	for _, m := range views {
		g.generateView(spec, m)
	}
	return spec
}

func (g *Generator) generateView(spec *Spec, m mounted) {
	v := m.vs.View()
	name := v.Name()
	title := titleCase(name)

	spec.Tags = append(spec.Tags, Tag{Name: name})
	spec.Components.Schemas[title] = recordSchema(v, false)
	if m.vs.Has(view.ActionCreate) || m.vs.Has(view.ActionUpdate) {
		spec.Components.Schemas[title+"Input"] = recordSchema(v, true)
	}

	for _, rt := range m.vs.Routes(m.path) {
		if !rt.Enabled {
			continue
		}
		path := openAPIPath(rt.Pattern)
		item := spec.Paths[path]
		item.set(rt.Method, g.operation(v, title, rt))
		spec.Paths[path] = item
	}
}

func (g *Generator) operation(v *view.GenericView, title string, rt view.Route) *Operation {
	ref := &Schema{Ref: "#/components/schemas/" + title}
	input := &Schema{Ref: "#/components/schemas/" + title + "Input"}
	name := v.Name()

	op := &Operation{
		Tags:        []string{name},
		OperationID: fmt.Sprintf("%s_%s", name, rt.Action),
		Responses:   map[string]Response{},
	}
	if perm := v.Permissions[rt.Action]; perm != "" {
		op.Description = "Requires permission " + perm + "."
	}

	switch rt.Action {
	case view.ActionList:
		op.Summary = "List " + name + " records"
		op.Parameters = listParameters(v)
		op.Responses["200"] = Response{
			Description: "OK",
			Headers: map[string]Header{
				"X-Total-Count": {
					Description: "Number of matching records before pagination",
					Schema:      &Schema{Type: "integer"},
				},
			},
			Content: jsonContent(&Schema{Type: "array", Items: ref}),
		}
		op.Responses["400"] = errorResponse("Invalid filter or pagination parameter")
	case view.ActionCreate:
		op.Summary = "Create a " + name
		op.RequestBody = &RequestBody{Required: true, Content: jsonContent(input)}
		op.Responses["201"] = Response{Description: "Created", Content: jsonContent(ref)}
		op.Responses["400"] = errorResponse("Validation failed")
	case view.ActionRetrieve:
		op.Summary = "Retrieve a " + name
		op.Responses["200"] = Response{Description: "OK", Content: jsonContent(ref)}
	case view.ActionUpdate, view.ActionPartialUpdate:
		op.Summary = "Update a " + name
		if rt.Action == view.ActionPartialUpdate {
			op.Summary = "Partially update a " + name
		}
		op.RequestBody = &RequestBody{Required: true, Content: jsonContent(input)}
		op.Responses["200"] = Response{Description: "OK", Content: jsonContent(ref)}
		op.Responses["400"] = errorResponse("Validation failed")
	case view.ActionDestroy:
		op.Summary = "Delete a " + name
		op.Responses["204"] = Response{Description: "Deleted"}
	}

	if rt.Action != view.ActionList && rt.Action != view.ActionCreate {
		op.Parameters = append(op.Parameters, lookupParameter(v))
		op.Responses["404"] = errorResponse("Not found")
	}
	if v.Permissions[rt.Action] != "" {
		op.Responses["401"] = errorResponse("Access denied")
	}
	return op
}

// recordSchema describes the serialized record. The input form omits
// read-only fields and lists required ones.
func recordSchema(v *view.GenericView, input bool) *Schema {
	s := &Schema{Type: "object", Properties: make(map[string]*Schema)}
	for _, d := range v.Schema.Fields() {
		if input && d.ReadOnly {
			continue
		}
		s.Properties[d.Name] = fieldSchema(d)
		if input && !d.Nullable && !d.HasDefault() {
			s.Required = append(s.Required, d.Name)
		}
		if !input {
			s.Required = append(s.Required, d.Name)
		}
	}
	return s
}

func fieldSchema(d field.Descriptor) *Schema {
	typ, format := d.Kind.JSONType()
	s := &Schema{
		Type:     typ,
		Format:   format,
		Nullable: d.Nullable,
		ReadOnly: d.ReadOnly,
		Default:  d.Default,
	}
	if d.MaxLength > 0 {
		n := d.MaxLength
		s.MaxLength = &n
	}
	if d.Kind == field.KindDecimal && d.Precision > 0 {
		s.Description = fmt.Sprintf("Decimal with up to %d digits, %d after the point", d.Precision, d.Scale)
	}
	return s
}

func lookupParameter(v *view.GenericView) Parameter {
	s := &Schema{Type: "string", Pattern: "^" + v.LookupPattern + "$"}
	if d, ok := v.Schema.Field(v.LookupField); ok {
		s = fieldSchema(d)
		s.Nullable, s.ReadOnly, s.Default = false, false, nil
	}
	return Parameter{Name: v.LookupField, In: "path", Required: true, Schema: s}
}

func listParameters(v *view.GenericView) []Parameter {
	var params []Parameter
	for _, b := range v.FilterBackends {
		switch f := b.(type) {
		case query.FieldFilter:
			for _, d := range selected(v, f.Fields) {
				s := fieldSchema(d)
				s.ReadOnly, s.Default = false, nil
				params = append(params, Parameter{
					Name:        d.Name,
					In:          "query",
					Description: "Exact match on " + d.Name,
					Schema:      s,
				})
			}
		case query.SearchFilter:
			params = append(params, Parameter{
				Name:        orDefault(f.Param, "search"),
				In:          "query",
				Description: "Case-insensitive substring search",
				Schema:      &Schema{Type: "string"},
			})
		case query.OrderingFilter:
			var names []string
			for _, d := range selected(v, f.Fields) {
				names = append(names, d.Name)
			}
			params = append(params, Parameter{
				Name:        orDefault(f.Param, "ordering"),
				In:          "query",
				Description: "Comma separated fields, prefix with - for descending: " + strings.Join(names, ", "),
				Schema:      &Schema{Type: "string"},
			})
		}
	}

	switch v.Paginator.(type) {
	case query.LimitOffset:
		params = append(params, intQuery("limit", "Maximum number of records"), intQuery("offset", "Records to skip"))
	case query.PageNumber:
		params = append(params, intQuery("page", "Page number, from 1"), intQuery("page_size", "Records per page"))
	}
	return params
}

func selected(v *view.GenericView, names []string) []field.Descriptor {
	if len(names) == 0 {
		return v.Schema.Fields()
	}
	var out []field.Descriptor
	for _, n := range names {
		if d, ok := v.Schema.Field(n); ok {
			out = append(out, d)
		}
	}
	return out
}

func intQuery(name, desc string) Parameter {
	zero := 0.0
	return Parameter{Name: name, In: "query", Description: desc, Schema: &Schema{Type: "integer", Minimum: &zero}}
}

func errorSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"error": {Type: "string"},
			"error_details": {
				Type:                 "object",
				AdditionalProperties: &Schema{Type: "array", Items: &Schema{Type: "string"}},
			},
		},
		Required: []string{"error"},
	}
}

func errorResponse(desc string) Response {
	return Response{Description: desc, Content: jsonContent(&Schema{Ref: "#/components/schemas/Error"})}
}

func jsonContent(s *Schema) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: s}}
}

// openAPIPath turns "/authors/{id:[0-9]+}" into "/authors/{id}".
func openAPIPath(pattern string) string {
	var b strings.Builder
	depth := 0
	skip := false
	for _, r := range pattern {
		switch {
		case r == '{':
			depth++
			if depth == 1 {
				skip = false
				b.WriteRune(r)
				continue
			}
		case r == '}':
			depth--
			if depth == 0 {
				skip = false
				b.WriteRune(r)
				continue
			}
		case r == ':' && depth == 1:
			skip = true
		}
		if !skip {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func titleCase(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' }) {
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
