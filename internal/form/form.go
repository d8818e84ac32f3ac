// Package form derives the input fields of an endpoint and keeps the values a
// user typed into them.
package form

import (
	"encoding/json"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"xplore/internal/model"
)

const jsonContentType = "application/json"

type Tab int

const (
	TabPath Tab = iota
	TabQuery
	TabHeaders
	TabBody
)

func (t Tab) String() string {
	switch t {
	case TabPath:
		return "path"
	case TabQuery:
		return "query"
	case TabHeaders:
		return "headers"
	case TabBody:
		return "body"
	default:
		return "unknown"
	}
}

// Kind is the widget a field renders as.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindCheckbox
	KindList
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCheckbox:
		return "checkbox"
	case KindList:
		return "list"
	case KindJSON:
		return "json"
	default:
		return "text"
	}
}

// KindFor maps a schema type to a widget. Checkboxes are never used for path
// parameters; list and JSON widgets only exist on the body tab.
func KindFor(t model.ParamType, tab Tab) Kind {
	switch t {
	case model.TypeString:
		return KindText
	case model.TypeInteger, model.TypeNumber:
		return KindNumeric
	case model.TypeBoolean:
		if tab == TabPath {
			return KindText
		}
		return KindCheckbox
	case model.TypeArray:
		if tab == TabBody {
			return KindList
		}
		return KindText
	case model.TypeObject:
		if tab == TabBody {
			return KindJSON
		}
		return KindText
	default:
		return KindText
	}
}

// Key identifies one field across all endpoints of a session.
type Key struct {
	EndpointID string
	Tab        Tab
	Name       string
}

type Field struct {
	Key      Key
	Name     string
	Label    string
	Kind     Kind
	Type     model.ParamType
	Required bool
	Help     string
	Example  string
	Enum     []string
	Default  string
}

// BodyLayout tells the UI what the body tab shows.
type BodyLayout int

const (
	// BodyNone: no body tab at all.
	BodyNone BodyLayout = iota
	// BodyEmpty: the tab exists but there is nothing to enter (a declared body
	// on a verb that never sends one, or a body without content types).
	BodyEmpty
	// BodyJSON: application/json, the user chooses Form or Raw JSON mode.
	BodyJSON
	// BodyRawText: a non-JSON content type, free text with no default.
	BodyRawText
	// BodyRawFallback: POST/PUT/PATCH with no declared body, raw JSON only.
	BodyRawFallback
)

type Body struct {
	Layout       BodyLayout
	ContentTypes []string
	ContentType  string
	Schema       model.BodySchema
	// DefaultRaw pre-fills the Raw JSON text area.
	DefaultRaw string
}

// Offered reports whether the endpoint gets a body tab.
func (b Body) Offered() bool { return b.Layout != BodyNone }

// ForcedMode reports the only mode the layout allows, if any.
func (b Body) ForcedMode() (model.BodyMode, bool) {
	switch b.Layout {
	case BodyRawText, BodyRawFallback:
		return model.BodyModeRawJSON, true
	default:
		return model.BodyModeForm, false
	}
}

type FieldSet struct {
	PathFields  []Field
	QueryFields []Field
	BodyFields  []Field
	Body        Body
}

// Derive builds the fields of ep. contentType picks the body media type; an
// empty or undeclared one falls back to the first declared type.
func Derive(ep model.Endpoint, contentType string) FieldSet {
	id := ep.ID()
	fs := FieldSet{}
	for _, p := range ep.PathParams {
		fs.PathFields = append(fs.PathFields, paramField(id, TabPath, p))
	}
	for _, p := range ep.QueryParams {
		fs.QueryFields = append(fs.QueryFields, paramField(id, TabQuery, p))
	}
	fs.Body = deriveBody(ep, contentType)
	if fs.Body.Layout == BodyJSON {
		for _, prop := range fs.Body.Schema.Properties {
			fs.BodyFields = append(fs.BodyFields, propertyField(id, prop, fs.Body.Schema.Required[prop.Name]))
		}
	}
	return fs
}

func paramField(endpointID string, tab Tab, p model.Param) Field {
	return Field{
		Key:      Key{EndpointID: endpointID, Tab: tab, Name: p.Name},
		Name:     p.Name,
		Label:    label(p.Name, p.Required),
		Kind:     KindFor(p.Type, tab),
		Type:     p.Type,
		Required: p.Required,
		Help:     helpText(p.Description),
		Example:  p.Example,
		Enum:     p.Enum,
		Default:  p.Default,
	}
}

func propertyField(endpointID string, prop model.Property, required bool) Field {
	kind := KindFor(prop.Type, TabBody)
	l := prop.Name
	switch kind {
	case KindList:
		l += " (comma separated for array)"
	case KindJSON:
		l += " (JSON object)"
	}
	return Field{
		Key:      Key{EndpointID: endpointID, Tab: TabBody, Name: prop.Name},
		Name:     prop.Name,
		Label:    label(l, required),
		Kind:     kind,
		Type:     prop.Type,
		Required: required,
		Help:     helpText(prop.Description),
	}
}

func label(name string, required bool) string {
	if required {
		return name + " (required)"
	}
	return name
}

func deriveBody(ep model.Endpoint, contentType string) Body {
	hasBody := model.MethodHasBody(ep.Method)
	switch {
	case ep.HasRequestBody() && hasBody:
		types := ep.RequestBody.ContentTypes()
		if len(types) == 0 {
			return Body{Layout: BodyEmpty}
		}
		selected := types[0]
		for _, t := range types {
			if t == contentType {
				selected = t
			}
		}
		b := Body{ContentTypes: types, ContentType: selected}
		if selected != jsonContentType {
			b.Layout = BodyRawText
			return b
		}
		media, _ := ep.RequestBody.Media(selected)
		b.Layout = BodyJSON
		b.Schema = SchemaOf(media.Schema)
		b.DefaultRaw = DefaultJSONText(media.Schema)
		return b
	case ep.HasRequestBody():
		return Body{Layout: BodyEmpty}
	case hasBody:
		return Body{Layout: BodyRawFallback, ContentTypes: []string{jsonContentType}, ContentType: jsonContentType}
	default:
		return Body{Layout: BodyNone}
	}
}

// SchemaOf reads the properties and required names of an object schema.
// Property names are sorted; a property without a type is a string.
func SchemaOf(schema map[string]any) model.BodySchema {
	out := model.BodySchema{Required: map[string]bool{}}
	props, _ := schema["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		detail, _ := props[name].(map[string]any)
		typ, _ := detail["type"].(string)
		desc, _ := detail["description"].(string)
		out.Properties = append(out.Properties, model.Property{
			Name:        name,
			Type:        model.ParseParamType(typ),
			Description: strings.TrimSpace(desc),
		})
	}
	req, _ := schema["required"].([]any)
	for _, r := range req {
		if s, ok := r.(string); ok {
			out.Required[s] = true
		}
	}
	return out
}

// DefaultJSON sets every declared property to the zero value of its type.
func DefaultJSON(schema map[string]any) map[string]any {
	out := map[string]any{}
	for _, p := range SchemaOf(schema).Properties {
		switch p.Type {
		case model.TypeString:
			out[p.Name] = ""
		case model.TypeInteger, model.TypeNumber:
			out[p.Name] = 0
		case model.TypeBoolean:
			out[p.Name] = false
		case model.TypeArray:
			out[p.Name] = []any{}
		case model.TypeObject:
			out[p.Name] = map[string]any{}
		default:
			out[p.Name] = nil
		}
	}
	return out
}

// DefaultJSONText is DefaultJSON indented by two spaces.
func DefaultJSONText(schema map[string]any) string {
	b, err := json.MarshalIndent(DefaultJSON(schema), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// helpText strips markup from a description before it is shown as help.
func helpText(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return ""
	}
	helpPolicyOnce.Do(func() {
		helpPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(helpPolicy.Sanitize(desc)))
}
