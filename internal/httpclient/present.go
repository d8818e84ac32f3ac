package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Category int

const (
	Success Category = iota
	Redirect
	ClientError
	ServerError
)

func (c Category) String() string {
	switch c {
	case Success:
		return "Success"
	case Redirect:
		return "Redirect"
	case ClientError:
		return "Client Error"
	default:
		return "Server Error"
	}
}

// Classify buckets a status code. Anything outside 200-499, including codes
// below 200, is a ServerError.
func Classify(status int) Category {
	switch {
	case status >= 200 && status < 300:
		return Success
	case status >= 300 && status < 400:
		return Redirect
	case status >= 400 && status < 500:
		return ClientError
	default:
		return ServerError
	}
}

type HeaderPair struct {
	Name  string
	Value string
}

type Presentation struct {
	Category   Category
	StatusCode int
	Status     string
	Elapsed    time.Duration
	Headers    []HeaderPair
	IsJSON     bool
	JSON       any
	Raw        string
}

// Present prepares a result for display. It never fails: a body that is not
// JSON is shown as raw text.
func Present(r Result) Presentation {
	p := Presentation{
		Category:   Classify(r.StatusCode),
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Elapsed:    r.Elapsed,
		Raw:        string(r.Body),
	}
	names := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		p.Headers = append(p.Headers, HeaderPair{Name: k, Value: strings.Join(r.Headers[k], ", ")})
	}
	if v, err := DecodeJSONBody(r.Body); err == nil {
		p.IsJSON = true
		p.JSON = v
	}
	return p
}

// DecodeJSONBody parses a response body, keeping number literals intact.
func DecodeJSONBody(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ResponseParseError{Cause: err}
	}
	if dec.More() {
		return nil, &ResponseParseError{Cause: fmt.Errorf("unexpected data after JSON value")}
	}
	return v, nil
}

// Body renders the body, indented and optionally colourised when it is JSON.
func (p Presentation) Body(colour bool) string {
	if !p.IsJSON {
		return p.Raw
	}
	if colour {
		return colorizeJSON(p.JSON, 0)
	}
	b, err := json.MarshalIndent(p.JSON, "", "  ")
	if err != nil {
		return p.Raw
	}
	return string(b)
}

// Summary is the one-line status shown above a response.
func (p Presentation) Summary() string {
	status := p.Status
	if status == "" {
		status = fmt.Sprintf("%d", p.StatusCode)
	}
	return fmt.Sprintf("%s  (%s, %s)", status, p.Category, p.Elapsed.Round(time.Millisecond))
}

// Preview describes a built request before it is sent.
func (r RequestSpec) Preview() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", r.Method, r.URL)
	sb.WriteString(formatPairs(r.Headers, ": "))
	if len(r.Cookies) > 0 {
		sb.WriteString("Cookies:\n")
		sb.WriteString(formatPairs(r.Cookies, "="))
	}
	if r.HasBody {
		sb.WriteString("\n")
		if s, ok := r.Body.(string); ok && !isJSON(r.ContentType) {
			sb.WriteString(s)
		} else if b, err := json.MarshalIndent(r.Body, "", "  "); err == nil {
			sb.Write(b)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatPairs(m map[string]string, sep string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k + sep + m[k] + "\n")
	}
	return sb.String()
}

// ansi color codes
const (
	colorReset   = "\033[0m"
	colorKey     = "\033[36m" // cyan for keys
	colorString  = "\033[32m" // green for strings
	colorNumber  = "\033[33m" // yellow for numbers
	colorBool    = "\033[35m" // magenta for booleans
	colorNull    = "\033[90m" // gray for null
	colorBracket = "\033[37m" // white for brackets
)

func colorizeJSON(v any, indent int) string {
	prefix := strings.Repeat("  ", indent)

	switch val := v.(type) {
	case nil:
		return colorNull + "null" + colorReset
	case bool:
		return colorBool + fmt.Sprintf("%v", val) + colorReset
	case json.Number:
		return colorNumber + val.String() + colorReset
	case float64:
		return colorNumber + fmt.Sprintf("%v", val) + colorReset
	case string:
		return colorString + quote(val) + colorReset
	case []any:
		if len(val) == 0 {
			return colorBracket + "[]" + colorReset
		}
		var sb strings.Builder
		sb.WriteString(colorBracket + "[" + colorReset + "\n")
		for i, item := range val {
			sb.WriteString(prefix + "  " + colorizeJSON(item, indent+1))
			if i < len(val)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(prefix + colorBracket + "]" + colorReset)
		return sb.String()
	case map[string]any:
		if len(val) == 0 {
			return colorBracket + "{}" + colorReset
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString(colorBracket + "{" + colorReset + "\n")
		for i, k := range keys {
			sb.WriteString(prefix + "  " + colorKey + quote(k) + colorReset + ": ")
			sb.WriteString(colorizeJSON(val[k], indent+1))
			if i < len(keys)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(prefix + colorBracket + "}" + colorReset)
		return sb.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `"` + s + `"`
	}
	return string(b)
}
