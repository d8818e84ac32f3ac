package httpclient

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"xplore/internal/model"
)

const jsonContentType = "application/json"

// maxInt64Float is 2^63, the first float64 that does not fit an int64.
const maxInt64Float = 1 << 63

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// RequestSpec is a request ready for an Executor.
type RequestSpec struct {
	Method  string
	URL     string
	Headers map[string]string
	Cookies map[string]string
	// Body is sent as JSON unless ContentType names another media type, in
	// which case it is a string sent verbatim.
	Body        any
	HasBody     bool
	ContentType string
}

type BuildInput struct {
	BaseURL  string
	Endpoint model.Endpoint

	PathValues  map[string]model.Value
	QueryValues []model.NamedValue
	Headers     []model.HeaderRow

	BodyMode    model.BodyMode
	ContentType string
	BodySchema  model.BodySchema
	BodyValues  map[string]model.Value
	RawBody     string

	PartitionID string
	Auth        model.AuthConfig
}

// BuildRequest assembles the URL, headers, cookies and body of a call. The
// only error it returns is *InvalidBodyError.
func BuildRequest(in BuildInput) (RequestSpec, error) {
	ep := in.Endpoint
	spec := RequestSpec{
		Method: strings.ToUpper(ep.Method),
		URL:    strings.TrimRight(in.BaseURL, "/") + SubstitutePath(ep.Path, in.PathValues),
	}
	if q := BuildQuery(in.QueryValues); q != "" {
		spec.URL += "?" + q
	}
	spec.Headers, spec.Cookies = BuildHeaders(in.Headers, in.PartitionID, in.Auth)

	if !model.MethodHasBody(spec.Method) {
		return spec, nil
	}

	spec.ContentType = in.ContentType
	if spec.ContentType == "" {
		spec.ContentType = jsonContentType
	}

	switch {
	case in.BodyMode == model.BodyModeRawJSON && !isJSON(spec.ContentType):
		spec.Body = in.RawBody
	case in.BodyMode == model.BodyModeRawJSON:
		v, err := ParseRawJSON(in.RawBody)
		if err != nil {
			return RequestSpec{}, &InvalidBodyError{Cause: err}
		}
		spec.Body = v
	default:
		spec.Body = BuildFormBody(in.BodySchema, in.BodyValues)
	}
	spec.HasBody = true
	return spec, nil
}

// SubstitutePath replaces each {name} with its value. Unset or empty values
// leave the placeholder in place. Values are inserted verbatim.
// Placeholders are matched in one pass over tpl, so inserted text is never
// rescanned.
func SubstitutePath(tpl string, values map[string]model.Value) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		v, ok := values[m[1:len(m)-1]]
		if !ok || v.IsEmpty() {
			return m
		}
		return v.String()
	})
}

// BuildQuery joins name=value pairs with "&" in input order, dropping unset
// and empty values. Values are not percent-encoded.
func BuildQuery(values []model.NamedValue) string {
	var parts []string
	for _, nv := range values {
		if nv.Value.IsEmpty() {
			continue
		}
		parts = append(parts, nv.Name+"="+nv.Value.String())
	}
	return strings.Join(parts, "&")
}

// BuildHeaders layers, in order: Accept, enabled custom rows, the partition
// header and the auth header. Cookie-mode auth goes into the cookie map.
func BuildHeaders(rows []model.HeaderRow, partition string, auth model.AuthConfig) (map[string]string, map[string]string) {
	headers := map[string]string{"Accept": jsonContentType}
	for _, r := range rows {
		if !r.Enabled || r.Key == "" {
			continue
		}
		headers[r.Key] = r.Value
	}
	headers[model.PartitionHeader] = partition

	cookies := map[string]string{}
	if auth.Token != "" {
		switch auth.Method {
		case model.AuthCookie:
			cookies[auth.CookieName] = auth.Token
		default:
			headers[auth.HeaderName] = auth.HeaderPrefix + auth.Token
		}
	}
	return headers, cookies
}

// ParseRawJSON decodes a raw body. Blank text is an empty object. Numbers
// keep their literal form.
func ParseRawJSON(text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	return decodeJSON(text)
}

func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// BuildFormBody coerces each captured value by its property type. Unset
// values and empty text are left out.
func BuildFormBody(schema model.BodySchema, values map[string]model.Value) map[string]any {
	body := map[string]any{}
	for name, v := range values {
		if v.IsEmpty() {
			continue
		}
		typ := model.TypeString
		if p, ok := schema.Property(name); ok {
			typ = p.Type
		}
		body[name] = Coerce(typ, v)
	}
	return body
}

// Coerce converts a form value to the JSON value for a property of type t.
// Conversions that fail keep the original value.
func Coerce(t model.ParamType, v model.Value) any {
	switch t {
	case model.TypeArray:
		if v.IsText() {
			return splitList(v.Text)
		}
	case model.TypeObject:
		if v.IsText() {
			if obj, err := decodeJSON(v.Text); err == nil {
				return obj
			}
		}
	case model.TypeNumber:
		if v.IsText() {
			if f, err := parseNumber(v.Text); err == nil {
				return f
			}
		}
	case model.TypeInteger:
		switch v.Kind {
		case model.ValueText:
			if i, err := parseInteger(v.Text); err == nil {
				return i
			}
		case model.ValueNumber:
			if v.Number >= math.MinInt64 && v.Number < maxInt64Float {
				return int64(v.Number)
			}
		}
	case model.TypeBoolean:
		if v.IsText() {
			return truthy(v.Text)
		}
	}
	return v.Native()
}

func splitList(s string) []any {
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseInteger(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "1", "y":
		return true
	default:
		return false
	}
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}
