package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ryanuber/columnize"

	"xplore/internal/form"
	"xplore/internal/httpclient"
	"xplore/internal/model"
	"xplore/internal/session"
)

const otherOption = "Other..."

// Walker asks for every input of one endpoint, shows the request, sends it
// and prints the response.
type Walker struct {
	driver Driver
	ctrl   *session.Controller
	colour bool
}

func NewWalker(driver Driver, ctrl *session.Controller, colour bool) *Walker {
	return &Walker{driver: driver, ctrl: ctrl, colour: colour}
}

// Run walks the endpoint named by id ("METHOD /path"), or lets the user pick
// one when id is empty. Action failures are printed; only prompt errors and
// aborts are returned.
func (w *Walker) Run(ctx context.Context, id string) error {
	cat := w.ctrl.Catalogue()
	if cat.Len() == 0 {
		return w.driver.Info(ctx, "No endpoints available.")
	}

	ep, err := w.pickEndpoint(ctx, cat, id)
	if err != nil {
		return err
	}

	fs, st := w.ctrl.Form(ep)
	if err := w.askFields(ctx, st, fs.PathFields); err != nil {
		return err
	}
	if err := w.askFields(ctx, st, fs.QueryFields); err != nil {
		return err
	}
	if err := w.askHeaders(ctx, st); err != nil {
		return err
	}
	if err := w.askBody(ctx, ep, st); err != nil {
		return err
	}

	spec, err := w.ctrl.Build(ep)
	if err != nil {
		return w.driver.Info(ctx, session.Describe(err))
	}
	if err := w.driver.Info(ctx, spec.Preview()); err != nil {
		return err
	}
	send, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Send request?", Default: true})
	if err != nil || !send {
		return err
	}

	p, err := w.ctrl.Execute(ctx, ep)
	if err != nil {
		return w.driver.Info(ctx, session.Describe(err))
	}
	return w.driver.Info(ctx, FormatResponse(p, w.colour))
}

func (w *Walker) pickEndpoint(ctx context.Context, cat model.Catalogue, id string) (model.Endpoint, error) {
	entries := cat.Entries()
	if id != "" {
		for _, e := range entries {
			if strings.EqualFold(e.Endpoint.ID(), id) {
				return e.Endpoint, nil
			}
		}
		return model.Endpoint{}, fmt.Errorf("no endpoint %q in the catalogue", id)
	}

	options := make([]string, 0, len(entries))
	for _, e := range entries {
		label := fmt.Sprintf("[%s] %s", e.Tag, e.Endpoint.ID())
		if e.Endpoint.Summary != "" {
			label += " - " + e.Endpoint.Summary
		}
		options = append(options, label)
	}
	idx, err := w.driver.Select(ctx, SelectConfig{Message: "Endpoint", Options: options, PageSize: 15})
	if err != nil {
		return model.Endpoint{}, err
	}
	if idx < 0 || idx >= len(entries) {
		return model.Endpoint{}, errors.New("no endpoint selected")
	}
	return entries[idx].Endpoint, nil
}

func (w *Walker) askFields(ctx context.Context, st *form.State, fields []form.Field) error {
	for _, f := range fields {
		v, err := w.askField(ctx, f, st.Value(f.Key))
		if err != nil {
			return err
		}
		st.Set(f.Key, v)
	}
	return nil
}

func (w *Walker) askField(ctx context.Context, f form.Field, current model.Value) (model.Value, error) {
	help := f.Help
	if f.Example != "" {
		help = strings.TrimSpace(help + " (example: " + f.Example + ")")
	}

	if len(f.Enum) > 0 && f.Kind != form.KindCheckbox {
		options := append([]string{""}, f.Enum...)
		def := indexOf(options, firstNonEmpty(current.String(), f.Default))
		idx, err := w.driver.Select(ctx, SelectConfig{Message: f.Label, Options: options, DefaultIndex: def, Help: help})
		if err != nil || idx <= 0 {
			return model.Value{}, err
		}
		return model.TextValue(options[idx]), nil
	}

	switch f.Kind {
	case form.KindCheckbox:
		def := current.Bool
		if !current.IsSet() {
			def, _ = strconv.ParseBool(f.Default)
		}
		b, err := w.driver.Confirm(ctx, ConfirmConfig{Message: f.Label, Default: def, Help: help})
		if err != nil {
			return model.Value{}, err
		}
		return model.BoolValue(b), nil
	case form.KindNumeric:
		s, err := w.driver.Input(ctx, InputConfig{
			Message:   f.Label,
			Default:   firstNonEmpty(current.String(), f.Default),
			Help:      help,
			Validator: numeric,
		})
		if err != nil {
			return model.Value{}, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return model.Value{}, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.TextValue(s), nil
		}
		return model.NumberValue(n), nil
	default:
		s, err := w.driver.Input(ctx, InputConfig{
			Message: f.Label,
			Default: firstNonEmpty(current.String(), f.Default),
			Help:    help,
		})
		if err != nil || s == "" {
			return model.Value{}, err
		}
		return model.TextValue(s), nil
	}
}

func (w *Walker) askHeaders(ctx context.Context, st *form.State) error {
	s := w.ctrl.Session()
	options := append(append([]string(nil), s.Partitions...), otherOption)
	idx, err := w.driver.Select(ctx, SelectConfig{
		Message:      "Data partition",
		Options:      options,
		DefaultIndex: indexOf(options, s.PartitionFor(st)),
	})
	if err != nil {
		return err
	}
	partition := ""
	if idx >= 0 && idx < len(options)-1 {
		partition = options[idx]
	} else {
		partition, err = w.driver.Input(ctx, InputConfig{Message: "Partition ID"})
		if err != nil {
			return err
		}
		partition = strings.TrimSpace(partition)
		s.UsePartition(partition)
	}
	if partition != "" && partition != s.Partition {
		st.Partition = partition
	}

	for {
		more, err := w.driver.Confirm(ctx, ConfirmConfig{Message: "Add a header?"})
		if err != nil || !more {
			return err
		}
		key, err := w.driver.Input(ctx, InputConfig{Message: "Header name"})
		if err != nil {
			return err
		}
		value, err := w.driver.Input(ctx, InputConfig{Message: "Header value"})
		if err != nil {
			return err
		}
		st.Headers = append(st.Headers, model.HeaderRow{Key: strings.TrimSpace(key), Value: value, Enabled: true})
	}
}

func (w *Walker) askBody(ctx context.Context, ep model.Endpoint, st *form.State) error {
	fs, _ := w.ctrl.Form(ep)
	if len(fs.Body.ContentTypes) > 1 {
		idx, err := w.driver.Select(ctx, SelectConfig{
			Message:      "Content type",
			Options:      fs.Body.ContentTypes,
			DefaultIndex: indexOf(fs.Body.ContentTypes, fs.Body.ContentType),
		})
		if err != nil {
			return err
		}
		if idx >= 0 && fs.Body.ContentTypes[idx] != st.ContentType {
			st.ContentType = fs.Body.ContentTypes[idx]
			fs, _ = w.ctrl.Form(ep)
		}
	}

	switch fs.Body.Layout {
	case form.BodyJSON:
		modes := []string{model.BodyModeForm.String(), model.BodyModeRawJSON.String()}
		idx, err := w.driver.Select(ctx, SelectConfig{Message: "Body input", Options: modes, DefaultIndex: int(st.Mode)})
		if err != nil {
			return err
		}
		if idx == int(model.BodyModeRawJSON) {
			st.Mode = model.BodyModeRawJSON
			return w.askRaw(ctx, st, "Body (JSON)")
		}
		st.Mode = model.BodyModeForm
		return w.askFields(ctx, st, fs.BodyFields)
	case form.BodyRawText:
		return w.askRaw(ctx, st, "Body ("+fs.Body.ContentType+")")
	case form.BodyRawFallback:
		return w.askRaw(ctx, st, "Body (JSON)")
	default:
		return nil
	}
}

func (w *Walker) askRaw(ctx context.Context, st *form.State, label string) error {
	text, err := w.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: st.RawBody})
	if err != nil {
		return err
	}
	st.SetRawBody(text)
	return nil
}

// FormatResponse renders a response: status line, header table and body.
func FormatResponse(p httpclient.Presentation, colour bool) string {
	var sb strings.Builder
	sb.WriteString(p.Summary())
	sb.WriteString("\n\n")
	if len(p.Headers) > 0 {
		rows := make([]string, 0, len(p.Headers)+1)
		rows = append(rows, "Header|Value")
		for _, h := range p.Headers {
			rows = append(rows, h.Name+"|"+h.Value)
		}
		sb.WriteString(columnize.SimpleFormat(rows))
		sb.WriteString("\n\n")
	}
	sb.WriteString(p.Body(colour))
	return sb.String()
}

func numeric(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
