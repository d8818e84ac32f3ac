package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jroimartin/gocui"

	"xplore/internal/form"
	"xplore/internal/httpclient"
	"xplore/internal/model"
	"xplore/internal/session"
)

type focusPane int

const (
	panePath focusPane = iota
	paneQuery
	paneHeaders
	paneBody
)

func (p focusPane) view() string {
	switch p {
	case paneQuery:
		return "query"
	case paneHeaders:
		return "headers"
	case paneBody:
		return "body"
	default:
		return "path"
	}
}

// editTarget is what the edit modal writes to when confirmed.
type editTarget struct {
	pane      focusPane
	row       int
	headerKey bool
	setting   bool
}

// refreshForm re-derives the active endpoint's fields, e.g. after the
// content type changed.
func (a *App) refreshForm() {
	a.fields, a.state = a.ctrl.Form(a.active)
}

// panes lists the builder panes the active endpoint needs. Headers are
// always there.
func (a *App) panes() []focusPane {
	var out []focusPane
	if len(a.fields.PathFields) > 0 {
		out = append(out, panePath)
	}
	if len(a.fields.QueryFields) > 0 {
		out = append(out, paneQuery)
	}
	out = append(out, paneHeaders)
	if a.fields.Body.Offered() {
		out = append(out, paneBody)
	}
	return out
}

func (a *App) firstPane() focusPane { return a.panes()[0] }

func (a *App) layoutBuilder(maxX, maxY int) error {
	panes := a.panes()
	keep := []string{"selected"}
	for _, p := range panes {
		keep = append(keep, p.view())
	}
	a.clearMainViews(keep)

	valid := false
	for _, p := range panes {
		if p == a.pane {
			valid = true
		}
	}
	if !valid {
		a.pane = panes[0]
	}

	if v, err := a.g.SetView("selected", 0, 2, maxX-1, 6); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Selected endpoint"
	}

	top := 6
	bottom := maxY - 3
	height := (bottom - top) / len(panes)
	for i, p := range panes {
		y0 := top + i*height
		y1 := top + (i+1)*height
		if i == len(panes)-1 {
			y1 = bottom
		}
		if v, err := a.g.SetView(p.view(), 0, y0, maxX-1, y1); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
			v.Highlight = true
		}
	}

	a.renderBuilder()
	a.updatePanelColors()
	if !a.editing && !a.settingsOpen {
		a.g.SetCurrentView(a.pane.view())
	}
	return nil
}

func (a *App) updatePanelColors() {
	for _, p := range []focusPane{panePath, paneQuery, paneHeaders, paneBody} {
		v, err := a.g.View(p.view())
		if err != nil {
			continue
		}
		if a.pane == p && !a.editing {
			v.SelBgColor = gocui.ColorGreen
			v.SelFgColor = gocui.ColorBlack
			v.FgColor = gocui.ColorWhite
		} else {
			v.SelBgColor = gocui.ColorDefault
			v.SelFgColor = gocui.ColorDefault
			v.FgColor = gocui.ColorDefault
		}
	}
}

func (a *App) bindBuilderKeys() error {
	g := a.g
	if err := g.SetKeybinding("", gocui.KeyTab, gocui.ModNone, a.tabPane); err != nil {
		return err
	}
	for _, name := range []string{"path", "query", "headers", "body"} {
		if err := g.SetKeybinding(name, gocui.KeyArrowDown, gocui.ModNone, a.moveRow(1)); err != nil {
			return err
		}
		if err := g.SetKeybinding(name, gocui.KeyArrowUp, gocui.ModNone, a.moveRow(-1)); err != nil {
			return err
		}
		if err := g.SetKeybinding(name, gocui.KeyCtrlR, gocui.ModNone, a.executeRequest); err != nil {
			return err
		}
		if err := g.SetKeybinding(name, 'p', gocui.ModNone, a.showPreview); err != nil {
			return err
		}
	}
	for _, name := range []string{"path", "query", "body"} {
		if err := g.SetKeybinding(name, gocui.KeyEnter, gocui.ModNone, a.fieldEnter); err != nil {
			return err
		}
		if err := g.SetKeybinding(name, 'd', gocui.ModNone, a.resetField); err != nil {
			return err
		}
	}

	if err := g.SetKeybinding("headers", gocui.KeyEnter, gocui.ModNone, a.headerEnter); err != nil {
		return err
	}
	if err := g.SetKeybinding("headers", 'k', gocui.ModNone, a.headerEditKey); err != nil {
		return err
	}
	if err := g.SetKeybinding("headers", gocui.KeySpace, gocui.ModNone, a.headerToggle); err != nil {
		return err
	}
	if err := g.SetKeybinding("headers", 'a', gocui.ModNone, a.headerAdd); err != nil {
		return err
	}
	if err := g.SetKeybinding("headers", 'x', gocui.ModNone, a.headerRemove); err != nil {
		return err
	}

	if err := g.SetKeybinding("body", 'm', gocui.ModNone, a.toggleBodyMode); err != nil {
		return err
	}
	if err := g.SetKeybinding("body", 'c', gocui.ModNone, a.cycleContentType); err != nil {
		return err
	}
	return nil
}

func (a *App) tabPane(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing || a.settingsOpen {
		return nil
	}
	panes := a.panes()
	for i, p := range panes {
		if p == a.pane {
			a.pane = panes[(i+1)%len(panes)]
			break
		}
	}
	a.updatePanelColors()
	a.g.SetCurrentView(a.pane.view())
	a.renderFooter()
	return nil
}

func (a *App) moveRow(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.scr != screenBuilder || a.editing || v == nil {
			return nil
		}
		ox, oy := v.Origin()
		cx, cy := v.Cursor()
		newY := cy + delta
		if newY < 0 {
			if oy > 0 {
				v.SetOrigin(ox, oy-1)
			}
			return nil
		}
		if oy+newY >= len(viewLines(v)) {
			return nil
		}
		v.SetCursor(cx, newY)
		return nil
	}
}

// paneFields returns the form fields shown in pane, nil for panes that
// don't list fields.
func (a *App) paneFields(p focusPane) []form.Field {
	switch p {
	case panePath:
		return a.fields.PathFields
	case paneQuery:
		return a.fields.QueryFields
	case paneBody:
		if a.fields.Body.Layout == form.BodyJSON && a.state.Mode == model.BodyModeForm {
			return a.fields.BodyFields
		}
	}
	return nil
}

func (a *App) currentRow() (int, bool) {
	v, err := a.g.View(a.pane.view())
	if err != nil {
		return 0, false
	}
	_, cy := v.Cursor()
	_, oy := v.Origin()
	return oy + cy, true
}

func (a *App) currentField() (form.Field, bool) {
	row, ok := a.currentRow()
	fields := a.paneFields(a.pane)
	if !ok || row < 0 || row >= len(fields) {
		return form.Field{}, false
	}
	return fields[row], true
}

// fieldEnter changes the selected field: checkboxes toggle, enums cycle and
// everything else opens the edit modal. In raw body mode it opens $EDITOR.
func (a *App) fieldEnter(g *gocui.Gui, v *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	if a.pane == paneBody && a.rawBodyPane() {
		return a.editBodyInEditor()
	}
	f, ok := a.currentField()
	if !ok {
		return nil
	}
	cur := a.state.Value(f.Key)
	switch {
	case f.Kind == form.KindCheckbox:
		a.state.Set(f.Key, model.BoolValue(!(cur.IsSet() && cur.Bool)))
	case len(f.Enum) > 0:
		a.state.Set(f.Key, nextEnum(f.Enum, cur))
	default:
		row, _ := a.currentRow()
		return a.beginEdit(f.Label, cur.String(), editTarget{pane: a.pane, row: row})
	}
	a.renderBuilder()
	return nil
}

// nextEnum cycles through the enum values and back to unset.
func nextEnum(enum []string, cur model.Value) model.Value {
	if !cur.IsSet() {
		return model.TextValue(enum[0])
	}
	for i, e := range enum {
		if e == cur.String() {
			if i+1 < len(enum) {
				return model.TextValue(enum[i+1])
			}
			return model.Value{}
		}
	}
	return model.TextValue(enum[0])
}

func (a *App) resetField(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	if a.pane == paneBody && a.rawBodyPane() {
		a.state.SetRawBody(a.fields.Body.DefaultRaw)
		a.errorMsg = ""
		a.renderBuilder()
		return nil
	}
	if f, ok := a.currentField(); ok {
		a.state.Set(f.Key, model.Value{})
		a.renderBuilder()
	}
	return nil
}

// fieldValue turns edited text into a value of the field's kind. Empty text
// clears the field.
func fieldValue(f form.Field, text string) (model.Value, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Value{}, nil
	}
	if f.Kind == form.KindNumeric {
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return model.Value{}, fmt.Errorf("%s: %q is not a number", f.Name, text)
		}
		return model.NumberValue(n), nil
	}
	return model.TextValue(text), nil
}

func (a *App) headerEnter(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	row, ok := a.currentRow()
	if !ok || row >= len(a.state.Headers) {
		return nil
	}
	h := a.state.Headers[row]
	if h.IsPartition() {
		a.cyclePartition()
		return nil
	}
	return a.beginEdit(firstNonEmpty(h.Key, "value"), h.Value, editTarget{pane: paneHeaders, row: row})
}

// cyclePartition moves this endpoint's partition to the next option. The
// session partition itself is left alone.
func (a *App) cyclePartition() {
	s := a.ctrl.Session()
	if len(s.Partitions) == 0 {
		return
	}
	current := s.PartitionFor(a.state)
	next := s.Partitions[0]
	for i, p := range s.Partitions {
		if p == current && i+1 < len(s.Partitions) {
			next = s.Partitions[i+1]
		}
	}
	a.state.Partition = ""
	if next != s.Partition {
		a.state.Partition = next
	}
	a.renderBuilder()
}

func (a *App) headerEditKey(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	row, ok := a.currentRow()
	if !ok || row >= len(a.state.Headers) || a.state.Headers[row].IsPartition() {
		return nil
	}
	return a.beginEdit("header name", a.state.Headers[row].Key, editTarget{pane: paneHeaders, row: row, headerKey: true})
}

func (a *App) headerToggle(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	row, ok := a.currentRow()
	if !ok || row >= len(a.state.Headers) || a.state.Headers[row].IsPartition() {
		return nil
	}
	a.state.Headers[row].Enabled = !a.state.Headers[row].Enabled
	a.renderBuilder()
	return nil
}

func (a *App) headerAdd(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	a.state.AddHeader()
	a.renderBuilder()
	return nil
}

func (a *App) headerRemove(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	row, ok := a.currentRow()
	if !ok {
		return nil
	}
	if !a.state.RemoveHeader(row) {
		a.errorMsg = "the partition header cannot be removed"
	}
	a.renderBuilder()
	return nil
}

func (a *App) rawBodyPane() bool {
	return a.fields.Body.Layout != form.BodyEmpty && a.state.Mode == model.BodyModeRawJSON
}

func (a *App) toggleBodyMode(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing || a.fields.Body.Layout != form.BodyJSON {
		return nil
	}
	if a.state.Mode == model.BodyModeForm {
		a.state.Mode = model.BodyModeRawJSON
	} else {
		a.state.Mode = model.BodyModeForm
	}
	if v, err := a.g.View("body"); err == nil {
		v.SetOrigin(0, 0)
		v.SetCursor(0, 0)
	}
	a.renderBuilder()
	return nil
}

func (a *App) cycleContentType(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	types := a.fields.Body.ContentTypes
	if len(types) < 2 {
		return nil
	}
	next := types[0]
	for i, t := range types {
		if t == a.state.ContentType && i+1 < len(types) {
			next = types[i+1]
		}
	}
	a.state.ContentType = next
	a.refreshForm()
	a.renderBuilder()
	return nil
}

// editBodyInEditor asks Run to leave the GUI and open the raw body in the
// editor.
func (a *App) editBodyInEditor() error {
	ext := ".json"
	if a.fields.Body.Layout == form.BodyRawText {
		ext = ".txt"
	}
	file, err := writeEditorFile(a.state.RawBody, ext)
	if err != nil {
		a.errorMsg = err.Error()
		return nil
	}
	a.suspendEditorFile = file
	return gocui.ErrQuit
}

// rawBodyWarning flags JSON bodies that won't be sent as typed.
func rawBodyWarning(b form.Body, text string) string {
	if b.Layout == form.BodyRawText {
		return ""
	}
	if _, err := httpclient.ParseRawJSON(text); err != nil {
		return "body is not valid JSON and will not be sent: " + err.Error()
	}
	return ""
}

func (a *App) beginEdit(title, current string, target editTarget) error {
	a.editing = true
	a.editTarget = target

	maxX, maxY := a.g.Size()
	width := 60
	if width > maxX-4 {
		width = maxX - 4
	}
	x0 := (maxX - width) / 2
	y0 := (maxY - 3) / 2

	ev, err := a.g.SetView("edit", x0, y0, x0+width, y0+3)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		ev.Editable = true
		ev.Editor = singleLineEditor{}
		ev.BgColor = gocui.ColorBlack
		ev.FgColor = gocui.ColorWhite
	}
	ev.Title = fmt.Sprintf(" %s (enter=ok, esc=cancel) ", title)
	ev.Clear()
	fmt.Fprint(ev, current)
	ev.SetCursor(len(current), 0)
	a.g.SetViewOnTop("edit")
	a.g.SetCurrentView("edit")
	a.updatePanelColors()
	a.renderFooter()
	return nil
}

func (a *App) closeEdit() error {
	if !a.editing {
		return nil
	}
	if v, err := a.g.View("edit"); err == nil {
		v.Clear()
		a.g.DeleteView("edit")
	}
	a.editing = false
	a.editTarget = editTarget{}
	switch {
	case a.settingsOpen:
		a.g.SetCurrentView("settings")
	case a.scr == screenBuilder:
		a.g.SetCurrentView(a.pane.view())
	}
	a.updatePanelColors()
	return nil
}

func (a *App) confirmEdit(g *gocui.Gui, v *gocui.View) error {
	if !a.editing {
		return nil
	}
	text := viewText(v)
	t := a.editTarget

	if t.setting {
		if err := a.applySetting(t.row, text); err != nil {
			a.errorMsg = err.Error()
			a.renderFooter()
			return nil
		}
		a.closeEdit()
		a.renderSettings()
		return nil
	}

	if t.pane == paneHeaders {
		if t.row < len(a.state.Headers) {
			h := &a.state.Headers[t.row]
			if t.headerKey {
				key := strings.TrimSpace(text)
				if h.Key == "" && key != "" {
					h.Enabled = true
				}
				h.Key = key
			} else {
				h.Value = text
			}
		}
		a.closeEdit()
		a.renderBuilder()
		return nil
	}

	fields := a.paneFields(t.pane)
	if t.row >= len(fields) {
		return a.closeEdit()
	}
	val, err := fieldValue(fields[t.row], text)
	if err != nil {
		a.errorMsg = err.Error()
		a.renderFooter()
		return nil
	}
	a.state.Set(fields[t.row].Key, val)
	a.errorMsg = ""
	a.closeEdit()
	a.renderBuilder()
	return nil
}

func (a *App) showPreview(*gocui.Gui, *gocui.View) error {
	if a.scr != screenBuilder || a.editing {
		return nil
	}
	spec, err := a.ctrl.Build(a.active)
	if err != nil {
		a.errorMsg = session.Describe(err)
		return nil
	}
	a.preview = spec.Preview()
	a.errorMsg = ""
	a.scr = screenPreview
	return nil
}

func (a *App) executeRequest(*gocui.Gui, *gocui.View) error {
	if (a.scr != screenBuilder && a.scr != screenPreview) || a.editing {
		return nil
	}
	if _, err := a.ctrl.Execute(a.ctx, a.active); err != nil {
		a.errorMsg = session.Describe(err)
		return nil
	}
	a.errorMsg = ""
	a.scr = screenResponse
	if v, err := a.g.View("response"); err == nil {
		v.SetOrigin(0, 0)
	}
	return nil
}

func (a *App) renderBuilder() {
	a.renderFooter()
	if a.state == nil {
		return
	}
	s := a.ctrl.Session()

	if v, err := a.g.View("selected"); err == nil {
		v.Clear()
		for _, line := range endpointDetail(a.active, s, a.state) {
			fmt.Fprintln(v, line)
		}
	}

	if v, err := a.g.View("path"); err == nil {
		v.Title = "Path Params"
		v.Clear()
		for _, f := range a.fields.PathFields {
			fmt.Fprintln(v, fieldLine(f, a.state.Value(f.Key)))
		}
	}

	if v, err := a.g.View("query"); err == nil {
		v.Title = "Query Params"
		v.Clear()
		for _, f := range a.fields.QueryFields {
			fmt.Fprintln(v, fieldLine(f, a.state.Value(f.Key)))
		}
	}

	if v, err := a.g.View("headers"); err == nil {
		v.Title = "Headers"
		v.Clear()
		partition := s.PartitionFor(a.state)
		for _, h := range a.state.Headers {
			fmt.Fprintln(v, headerLine(h, partition))
		}
	}

	if v, err := a.g.View("body"); err == nil {
		b := a.fields.Body
		v.Title = bodyTitle(b, a.state.Mode)
		v.Clear()
		switch {
		case b.Layout == form.BodyEmpty:
			fmt.Fprintln(v, "(no body is sent for this request)")
		case a.state.Mode == model.BodyModeRawJSON:
			if strings.TrimSpace(a.state.RawBody) == "" {
				fmt.Fprintln(v, dim("(empty, enter to edit)"))
			} else {
				fmt.Fprintln(v, a.state.RawBody)
			}
		case len(a.fields.BodyFields) == 0:
			fmt.Fprintln(v, "(empty schema)")
		default:
			for _, f := range a.fields.BodyFields {
				fmt.Fprintln(v, fieldLine(f, a.state.Value(f.Key)))
			}
		}
	}
}

func viewText(v *gocui.View) string {
	// gocui includes a trailing newline
	return strings.TrimSuffix(v.Buffer(), "\n")
}

func viewLines(v *gocui.View) []string {
	buf := strings.TrimSuffix(v.Buffer(), "\n")
	if buf == "" {
		return nil
	}
	return strings.Split(buf, "\n")
}
