package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"xplore/internal/model"
)

const (
	defaultTag   = "default"
	schemaRefDir = "#/components/schemas/"
)

// Normalize turns a document into endpoints grouped by tag. The document is
// read through kin-openapi's typed model; a document that does not fit it
// (wrong value types somewhere) falls back to walking the raw maps. Missing
// or malformed parts degrade to defaults and a hopeless document yields an
// empty catalogue.
func Normalize(doc Document) model.Catalogue {
	if asMap(doc["paths"]) == nil {
		return model.Catalogue{}
	}
	t, err := decodeTyped(doc)
	if err != nil {
		return normalizeRaw(doc)
	}
	return normalizeTyped(t)
}

// decodeTyped unmarshals doc into openapi3.T without the loader, so nothing
// is validated and references stay unresolved. Verb keys are lowercased
// first since operations may be spelled in any case.
func decodeTyped(doc Document) (*openapi3.T, error) {
	b, err := json.Marshal(lowerVerbs(doc))
	if err != nil {
		return nil, err
	}
	var t openapi3.T
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func lowerVerbs(doc Document) Document {
	paths := asMap(doc["paths"])
	if paths == nil {
		return doc
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	items := make(map[string]any, len(paths))
	for path, raw := range paths {
		item := asMap(raw)
		if item == nil {
			items[path] = raw
			continue
		}
		copied := make(map[string]any, len(item))
		for k, v := range item {
			if !model.SupportedMethod(k) {
				copied[k] = v
				continue
			}
			lower := strings.ToLower(k)
			if _, exact := item[lower]; exact && lower != k {
				continue
			}
			copied[lower] = v
		}
		items[path] = copied
	}
	out["paths"] = items
	return out
}

func normalizeTyped(t *openapi3.T) model.Catalogue {
	out := model.Catalogue{}
	if t.Paths == nil {
		return out
	}
	var schemas openapi3.Schemas
	if t.Components != nil {
		schemas = t.Components.Schemas
	}

	items := t.Paths.Map()
	pathKeys := make([]string, 0, len(items))
	for p := range items {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, path := range pathKeys {
		item := items[path]
		if item == nil {
			continue
		}
		common := typedParams(item.Parameters)
		for _, method := range model.Methods {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			ep := typedEndpoint(path, method, op, common, schemas)
			for _, tag := range ep.Tags {
				out[tag] = append(out[tag], ep)
			}
		}
	}
	return out
}

func typedEndpoint(path, method string, op *openapi3.Operation, common []model.Param, schemas openapi3.Schemas) model.Endpoint {
	ep := model.Endpoint{
		Method:      method,
		Path:        path,
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
		OperationID: strings.TrimSpace(op.OperationID),
		Tags:        uniqueTags(op.Tags),
	}
	splitParams(&ep, mergeParams(common, typedParams(op.Parameters)))
	ep.RequestBody = typedRequestBody(op.RequestBody, schemas)
	ep.Responses = typedResponses(op.Responses)
	if op.Security != nil {
		var names []string
		for _, req := range *op.Security {
			for name := range req {
				names = append(names, name)
			}
		}
		ep.Security = uniqueSorted(names)
	}
	return ep
}

// typedParams keeps path and query parameters. References to
// components/parameters are left unresolved and dropped.
func typedParams(refs openapi3.Parameters) []model.Param {
	var out []model.Param
	for _, ref := range refs {
		if ref == nil || ref.Value == nil {
			continue
		}
		pv := ref.Value
		in := model.ParamLocation(pv.In)
		if in != model.ParamInPath && in != model.ParamInQuery {
			continue
		}
		p := model.Param{
			Name:        pv.Name,
			In:          in,
			Required:    pv.Required,
			Type:        schemaType(pv.Schema),
			Description: strings.TrimSpace(pv.Description),
		}
		var schemaExample any
		if pv.Schema != nil && pv.Schema.Value != nil {
			sv := pv.Schema.Value
			p.Default = scalarString(sv.Default)
			schemaExample = sv.Example
			for _, e := range sv.Enum {
				p.Enum = append(p.Enum, scalarString(e))
			}
		}
		p.Example = scalarString(firstPresent(pv.Example, schemaExample))
		out = append(out, p)
	}
	return out
}

// schemaType reads the single type of a schema. No schema or no type means
// string.
func schemaType(ref *openapi3.SchemaRef) model.ParamType {
	if ref == nil || ref.Value == nil || ref.Value.Type == nil {
		return model.TypeString
	}
	for _, name := range []string{"string", "integer", "number", "boolean", "array", "object"} {
		if ref.Value.Type.Is(name) {
			return model.ParseParamType(name)
		}
	}
	return model.TypeUnknown
}

func typedRequestBody(ref *openapi3.RequestBodyRef, schemas openapi3.Schemas) *model.RequestBody {
	if ref == nil {
		return nil
	}
	rb := ref.Value
	if rb == nil {
		if ref.Ref == "" {
			return nil
		}
		return &model.RequestBody{}
	}
	if len(rb.Content) == 0 && rb.Description == "" && !rb.Required {
		return nil
	}
	out := &model.RequestBody{
		Required:    rb.Required,
		Description: strings.TrimSpace(rb.Description),
	}
	types := make([]string, 0, len(rb.Content))
	for ct := range rb.Content {
		types = append(types, ct)
	}
	for _, ct := range contentTypeOrder(types) {
		var schema map[string]any
		if mt := rb.Content[ct]; mt != nil {
			schema = resolveSchemaRef(schemas, mt.Schema)
		}
		out.Content = append(out.Content, model.MediaType{ContentType: ct, Schema: schema})
	}
	return out
}

// resolveSchemaRef follows #/components/schemas/<Name> references and returns
// the schema they end at as a plain map. Names that do not resolve, cycles
// and references elsewhere become an empty schema.
func resolveSchemaRef(schemas openapi3.Schemas, ref *openapi3.SchemaRef) map[string]any {
	if ref == nil {
		return nil
	}
	seen := map[string]bool{}
	for ref.Ref != "" {
		name, ok := strings.CutPrefix(ref.Ref, schemaRefDir)
		if !ok || name == "" || seen[name] {
			return map[string]any{}
		}
		seen[name] = true
		next := schemas[name]
		if next == nil {
			return map[string]any{}
		}
		ref = next
	}
	if ref.Value == nil {
		return map[string]any{}
	}
	return schemaMap(ref.Value)
}

// schemaMap converts a typed schema into the map form the form layer reads.
func schemaMap(s *openapi3.Schema) map[string]any {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func typedResponses(rs *openapi3.Responses) []model.Response {
	if rs == nil || rs.Len() == 0 {
		return nil
	}
	m := rs.Map()
	codes := make([]string, 0, len(m))
	for c := range m {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	out := make([]model.Response, 0, len(codes))
	for _, c := range codes {
		r := model.Response{Status: c}
		if ref := m[c]; ref != nil && ref.Value != nil && ref.Value.Description != nil {
			r.Description = strings.TrimSpace(*ref.Value.Description)
		}
		out = append(out, r)
	}
	return out
}

// normalizeRaw is the fallback for documents openapi3.T will not unmarshal.
// It walks the same structure on the raw maps and skips whatever is not
// shaped as expected.
func normalizeRaw(doc Document) model.Catalogue {
	out := model.Catalogue{}
	paths := asMap(doc["paths"])
	if paths == nil {
		return out
	}
	schemas := componentSchemas(doc)

	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, path := range pathKeys {
		item := asMap(paths[path])
		if item == nil {
			continue
		}
		common := rawParams(asSlice(item["parameters"]))

		for _, key := range operationKeys(item) {
			op := asMap(item[key])
			if op == nil {
				continue
			}
			ep := extractEndpoint(path, strings.ToUpper(key), op, common, schemas)
			for _, tag := range ep.Tags {
				out[tag] = append(out[tag], ep)
			}
		}
	}
	return out
}

// operationKeys returns the keys of a path item that name a supported verb,
// in model.Methods order. Siblings like "parameters" or "servers" are skipped.
func operationKeys(item map[string]any) []string {
	var keys []string
	for k := range item {
		if model.SupportedMethod(k) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := methodRank(keys[i]), methodRank(keys[j])
		if ri == rj {
			return keys[i] < keys[j]
		}
		return ri < rj
	})
	return keys
}

func methodRank(m string) int {
	m = strings.ToUpper(m)
	for i, s := range model.Methods {
		if s == m {
			return i
		}
	}
	return len(model.Methods)
}

func extractEndpoint(path, method string, op map[string]any, common []model.Param, schemas map[string]any) model.Endpoint {
	ep := model.Endpoint{
		Method:      method,
		Path:        path,
		Summary:     strings.TrimSpace(asString(op["summary"])),
		Description: strings.TrimSpace(asString(op["description"])),
		OperationID: strings.TrimSpace(asString(op["operationId"])),
		Tags:        operationTags(op),
	}
	splitParams(&ep, mergeParams(common, rawParams(asSlice(op["parameters"]))))
	ep.RequestBody = extractRequestBody(asMap(op["requestBody"]), schemas)
	ep.Responses = extractResponses(asMap(op["responses"]))
	ep.Security = securityNames(asSlice(op["security"]))
	return ep
}

func operationTags(op map[string]any) []string {
	var tags []string
	for _, t := range asSlice(op["tags"]) {
		if s, ok := t.(string); ok {
			tags = append(tags, s)
		}
	}
	return uniqueTags(tags)
}

// uniqueTags drops repeated tags, keeping the first occurrence. No tags at
// all means the default group.
func uniqueTags(in []string) []string {
	var tags []string
	seen := map[string]bool{}
	for _, t := range in {
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return []string{defaultTag}
	}
	return tags
}

// mergeParams lays operation parameters over path-level ones; an operation
// parameter with the same in+name replaces the inherited one in place.
func mergeParams(common, own []model.Param) []model.Param {
	var out []model.Param
	index := map[string]int{}
	for _, p := range append(append([]model.Param(nil), common...), own...) {
		key := string(p.In) + ":" + p.Name
		if i, dup := index[key]; dup {
			out[i] = p
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func splitParams(ep *model.Endpoint, params []model.Param) {
	for _, p := range params {
		switch p.In {
		case model.ParamInPath:
			ep.PathParams = append(ep.PathParams, p)
		case model.ParamInQuery:
			ep.QueryParams = append(ep.QueryParams, p)
		}
	}
}

// rawParams converts raw parameter objects. Parameters located anywhere but
// path or query are dropped.
func rawParams(raw []any) []model.Param {
	var out []model.Param
	for _, r := range raw {
		if p, ok := toParam(asMap(r)); ok {
			out = append(out, p)
		}
	}
	return out
}

func toParam(m map[string]any) (model.Param, bool) {
	if m == nil {
		return model.Param{}, false
	}
	in := model.ParamLocation(asString(m["in"]))
	if in != model.ParamInPath && in != model.ParamInQuery {
		return model.Param{}, false
	}
	schema := asMap(m["schema"])
	p := model.Param{
		Name:        asString(m["name"]),
		In:          in,
		Required:    asBool(m["required"]),
		Type:        model.ParseParamType(asString(schema["type"])),
		Description: strings.TrimSpace(asString(m["description"])),
		Default:     scalarString(schema["default"]),
		Example:     scalarString(firstPresent(m["example"], schema["example"])),
	}
	for _, e := range asSlice(schema["enum"]) {
		p.Enum = append(p.Enum, scalarString(e))
	}
	return p, true
}

func extractRequestBody(rb map[string]any, schemas map[string]any) *model.RequestBody {
	if len(rb) == 0 {
		return nil
	}
	out := &model.RequestBody{
		Required:    asBool(rb["required"]),
		Description: strings.TrimSpace(asString(rb["description"])),
	}
	content := asMap(rb["content"])
	types := make([]string, 0, len(content))
	for ct := range content {
		types = append(types, ct)
	}
	for _, ct := range contentTypeOrder(types) {
		mt := asMap(content[ct])
		var schema map[string]any
		if mt != nil {
			schema = ResolveSchema(schemas, asMap(mt["schema"]))
		}
		out.Content = append(out.Content, model.MediaType{ContentType: ct, Schema: schema})
	}
	return out
}

// contentTypeOrder puts application/json first, the rest sorted.
func contentTypeOrder(keys []string) []string {
	sort.Slice(keys, func(i, j int) bool {
		ji, jj := keys[i] == "application/json", keys[j] == "application/json"
		if ji != jj {
			return ji
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ResolveSchema substitutes a local component reference with the schema it
// names, following chains of references. Names that do not resolve, cycles
// and references outside components/schemas all become an empty schema. A
// schema without "$ref" is returned unchanged, so resolving twice is the same
// as resolving once.
func ResolveSchema(schemas map[string]any, schema map[string]any) map[string]any {
	seen := map[string]bool{}
	for {
		raw, has := schema["$ref"]
		if !has {
			return schema
		}
		ref, _ := raw.(string)
		name, ok := strings.CutPrefix(ref, schemaRefDir)
		if !ok || name == "" || seen[name] {
			return map[string]any{}
		}
		seen[name] = true
		next := asMap(schemas[name])
		if next == nil {
			return map[string]any{}
		}
		schema = next
	}
}

func componentSchemas(doc Document) map[string]any {
	return asMap(asMap(doc["components"])["schemas"])
}

func extractResponses(responses map[string]any) []model.Response {
	if len(responses) == 0 {
		return nil
	}
	codes := make([]string, 0, len(responses))
	for c := range responses {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	out := make([]model.Response, 0, len(codes))
	for _, c := range codes {
		r := asMap(responses[c])
		out = append(out, model.Response{Status: c, Description: strings.TrimSpace(asString(r["description"]))})
	}
	return out
}

func securityNames(reqs []any) []string {
	var names []string
	for _, r := range reqs {
		for name := range asMap(r) {
			names = append(names, name)
		}
	}
	return uniqueSorted(names)
}

func uniqueSorted(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case Document:
		return t
	default:
		return nil
	}
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func firstPresent(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool, int, int64:
		return fmt.Sprint(t)
	default:
		return ""
	}
}
