package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ryanuber/columnize"

	"xplore/internal/form"
	"xplore/internal/httpclient"
	"xplore/internal/model"
	"xplore/internal/session"
)

// ansi colors
const (
	colorDim     = "\033[90m" // gray for placeholders
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

var pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)

func colorizeMethod(method string) string {
	var color string
	switch strings.ToUpper(method) {
	case "GET":
		color = colorBlue
	case "POST":
		color = colorGreen
	case "PUT":
		color = colorYellow
	case "DELETE":
		color = colorRed
	case "PATCH":
		color = colorCyan
	default:
		color = colorMagenta
	}
	return color + padRight(method, 6) + colorReset
}

func categoryColor(c httpclient.Category) string {
	switch c {
	case httpclient.Success:
		return colorGreen
	case httpclient.Redirect:
		return colorCyan
	case httpclient.ClientError:
		return colorYellow
	default:
		return colorRed
	}
}

func highlightPathParams(path string) string {
	return pathParamRe.ReplaceAllString(path, colorCyan+"{$1}"+colorReset)
}

func dim(s string) string { return colorDim + s + colorReset }

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", len(s))
}

// endpointLine is one row of the endpoint list. The first five rows carry
// their quick-select number.
func endpointLine(i int, e model.Entry) string {
	ep := e.Endpoint
	label := firstNonEmpty(ep.Summary, ep.OperationID)
	if label != "" {
		label = " - " + label
	}
	prefix := "  "
	if i < 5 {
		prefix = fmt.Sprintf("%d ", i+1)
	}
	return fmt.Sprintf("%s%s  %s %s%s", prefix, colorizeMethod(ep.Method), highlightPathParams(ep.Path), dim("["+e.Tag+"]"), label)
}

// fieldLine renders one form field with its value, or a dimmed hint when it
// has none.
func fieldLine(f form.Field, v model.Value) string {
	name := f.Name
	if f.Required {
		name = "*" + name
	}
	if f.Kind == form.KindCheckbox {
		mark := "[ ]"
		if v.IsSet() && v.Bool {
			mark = "[x]"
		}
		return fmt.Sprintf("%s = %s", name, mark)
	}
	if v.IsSet() {
		return fmt.Sprintf("%s = %s", name, v.String())
	}
	if hint := fieldHint(f); hint != "" {
		return fmt.Sprintf("%s = %s", name, dim(hint))
	}
	return name + " = "
}

func fieldHint(f form.Field) string {
	var parts []string
	if len(f.Enum) > 0 {
		parts = append(parts, strings.Join(f.Enum, "|"))
	}
	if f.Default != "" {
		parts = append(parts, "default: "+f.Default)
	}
	if f.Example != "" {
		parts = append(parts, "e.g. "+f.Example)
	}
	switch f.Kind {
	case form.KindList:
		parts = append(parts, "comma separated")
	case form.KindJSON:
		parts = append(parts, "JSON object")
	}
	if len(parts) == 0 && f.Help != "" {
		parts = append(parts, f.Help)
	}
	return strings.Join(parts, ", ")
}

// headerLine renders a header row. The partition row shows the partition in
// effect rather than its stored value.
func headerLine(h model.HeaderRow, partition string) string {
	mark := "[ ]"
	if h.Enabled {
		mark = "[x]"
	}
	if h.IsPartition() {
		return fmt.Sprintf("[x] %s: %s %s", h.Key, partition, dim("(partition)"))
	}
	if h.Key == "" {
		return mark + " " + dim("(empty)")
	}
	return fmt.Sprintf("%s %s: %s", mark, h.Key, h.Value)
}

// bodyTitle names the body pane after its layout, mode and content type.
func bodyTitle(b form.Body, mode model.BodyMode) string {
	switch b.Layout {
	case form.BodyJSON:
		return fmt.Sprintf("Body (%s, %s)", mode, b.ContentType)
	case form.BodyRawText:
		return "Body (" + b.ContentType + ")"
	case form.BodyRawFallback:
		return "Body (Raw JSON)"
	default:
		return "Body"
	}
}

// endpointDetail is the header block of the request builder.
func endpointDetail(ep model.Endpoint, s *session.Session, st *form.State) []string {
	label := firstNonEmpty(ep.Summary, ep.OperationID)
	if label != "" {
		label = " - " + label
	}
	lines := []string{fmt.Sprintf("%s  %s%s", colorizeMethod(ep.Method), highlightPathParams(ep.Path), label)}
	if d := strings.TrimSpace(ep.Description); d != "" {
		lines = append(lines, dim(strings.SplitN(d, "\n", 2)[0]))
	}
	var meta []string
	if len(ep.Responses) > 0 {
		codes := make([]string, 0, len(ep.Responses))
		for _, r := range ep.Responses {
			codes = append(codes, r.Status)
		}
		meta = append(meta, "responses: "+strings.Join(codes, ", "))
	}
	if len(ep.Security) > 0 {
		meta = append(meta, "security: "+strings.Join(ep.Security, ", "))
	}
	meta = append(meta, "partition: "+s.PartitionFor(st))
	if s.Auth.Token != "" {
		meta = append(meta, "auth: "+string(s.Auth.Method))
	}
	lines = append(lines, colorCyan+strings.Join(meta, "   ")+colorReset)
	return lines
}

// responseText renders a presentation: coloured status, header table and
// colourised body.
func responseText(p httpclient.Presentation) string {
	var sb strings.Builder
	sb.WriteString(categoryColor(p.Category) + p.Summary() + colorReset + "\n\n")
	if len(p.Headers) > 0 {
		rows := make([]string, 0, len(p.Headers))
		for _, h := range p.Headers {
			rows = append(rows, h.Name+"|"+h.Value)
		}
		sb.WriteString(columnize.SimpleFormat(rows))
		sb.WriteString("\n\n")
	}
	sb.WriteString(p.Body(true))
	return sb.String()
}
