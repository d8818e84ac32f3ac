package model

import (
	"sort"
	"strings"
)

type ParamLocation string

type ParamType string

const (
	ParamInPath  ParamLocation = "path"
	ParamInQuery ParamLocation = "query"

	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeUnknown ParamType = "unknown"
)

// ParseParamType maps a JSON-schema type name. An empty name is TypeString,
// anything unrecognized is TypeUnknown.
func ParseParamType(s string) ParamType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return TypeString
	case "string":
		return TypeString
	case "integer":
		return TypeInteger
	case "number":
		return TypeNumber
	case "boolean":
		return TypeBoolean
	case "array":
		return TypeArray
	case "object":
		return TypeObject
	default:
		return TypeUnknown
	}
}

// Methods lists the verbs the catalogue and the executor support.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// SupportedMethod reports whether method is one of Methods (case-insensitive).
func SupportedMethod(method string) bool {
	m := strings.ToUpper(method)
	for _, s := range Methods {
		if s == m {
			return true
		}
	}
	return false
}

// MethodHasBody reports whether requests with method carry a JSON body.
func MethodHasBody(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH":
		return true
	default:
		return false
	}
}

type Param struct {
	Name        string
	In          ParamLocation
	Required    bool
	Type        ParamType
	Description string
	Example     string
	Enum        []string
	Default     string
}

type Property struct {
	Name        string
	Type        ParamType
	Description string
}

// BodySchema is the form view of an object schema. Properties are sorted by name.
type BodySchema struct {
	Properties []Property
	Required   map[string]bool
}

// Property returns the named property. Unknown names report ok=false.
func (b BodySchema) Property(name string) (Property, bool) {
	for _, p := range b.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// MediaType is one entry of a request body's content map. Schema is the
// literal (already resolved) JSON schema.
type MediaType struct {
	ContentType string
	Schema      map[string]any
}

type RequestBody struct {
	Required    bool
	Description string
	Content     []MediaType
}

// Media returns the entry for contentType.
func (r *RequestBody) Media(contentType string) (MediaType, bool) {
	if r == nil {
		return MediaType{}, false
	}
	for _, m := range r.Content {
		if m.ContentType == contentType {
			return m, true
		}
	}
	return MediaType{}, false
}

// ContentTypes lists declared content types in catalogue order.
func (r *RequestBody) ContentTypes() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Content))
	for _, m := range r.Content {
		out = append(out, m.ContentType)
	}
	return out
}

type Response struct {
	Status      string
	Description string
}

type Endpoint struct {
	Method      string
	Path        string
	Summary     string
	Description string
	OperationID string
	Tags        []string

	PathParams  []Param
	QueryParams []Param
	RequestBody *RequestBody
	Responses   []Response
	Security    []string
}

// ID identifies the endpoint within one document.
func (e Endpoint) ID() string {
	return e.Method + " " + e.Path
}

// HasRequestBody reports whether the operation declared a non-empty request body.
func (e Endpoint) HasRequestBody() bool {
	return e.RequestBody != nil
}

// Catalogue groups endpoints by tag.
type Catalogue map[string][]Endpoint

// Tags returns the tag names sorted lexicographically.
func (c Catalogue) Tags() []string {
	tags := make([]string, 0, len(c))
	for t := range c {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Len counts descriptors across all groups.
func (c Catalogue) Len() int {
	n := 0
	for _, eps := range c {
		n += len(eps)
	}
	return n
}

// Entry is one (tag, endpoint) row of a flattened catalogue.
type Entry struct {
	Tag      string
	Endpoint Endpoint
}

// Entries flattens the catalogue in presentation order: tags sorted, endpoints
// in the order they were filed.
func (c Catalogue) Entries() []Entry {
	var out []Entry
	for _, tag := range c.Tags() {
		for _, ep := range c[tag] {
			out = append(out, Entry{Tag: tag, Endpoint: ep})
		}
	}
	return out
}
