// Package ui is the full-screen terminal explorer: pick an endpoint, fill in
// its form, send it and read the response.
package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/jroimartin/gocui"

	"xplore/internal/form"
	"xplore/internal/model"
	"xplore/internal/session"
)

type screen int

const (
	screenEndpoints screen = iota
	screenBuilder
	screenPreview
	screenResponse
)

func (s screen) String() string {
	switch s {
	case screenBuilder:
		return "builder"
	case screenPreview:
		return "preview"
	case screenResponse:
		return "response"
	default:
		return "endpoints"
	}
}

type Options struct {
	// Editor is the command used for raw bodies; empty falls back to $EDITOR.
	Editor string
	Logger hclog.Logger
}

type App struct {
	g      *gocui.Gui
	ctx    context.Context
	ctrl   *session.Controller
	logger hclog.Logger
	editor string

	scr screen

	entries  []model.Entry
	filter   string
	filtered []int
	selected int

	active model.Endpoint
	fields form.FieldSet
	state  *form.State
	pane   focusPane

	editing    bool
	editTarget editTarget

	settingsOpen bool
	settingsSel  int

	suspendEditorFile string

	preview  string
	errorMsg string
}

func NewApp(ctrl *session.Controller, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &App{
		ctx:    context.Background(),
		ctrl:   ctrl,
		logger: logger.Named("ui"),
		editor: opts.Editor,
		scr:    screenEndpoints,
	}
}

// Init loads the catalogue of the active service. A failure is shown in the
// footer and leaves an empty list; it never stops the app.
func (a *App) Init(ctx context.Context) {
	a.ctx = ctx
	a.loadCatalogue(false)
}

func (a *App) loadCatalogue(refresh bool) {
	cat, err := a.ctrl.LoadCatalogue(a.ctx, refresh)
	a.entries = cat.Entries()
	a.filter = ""
	a.selected = 0
	a.recomputeFilter()
	a.errorMsg = session.Describe(err)
}

// singleLineEditor is an editor that doesn't consume Enter (lets keybinding handle it)
type singleLineEditor struct{}

func (e singleLineEditor) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	case key == gocui.KeyDelete:
		v.EditDelete(false)
	case key == gocui.KeyArrowLeft:
		v.MoveCursor(-1, 0, false)
	case key == gocui.KeyArrowRight:
		v.MoveCursor(1, 0, false)
	case key == gocui.KeyHome || key == gocui.KeyCtrlA:
		v.SetCursor(0, 0)
	case key == gocui.KeyEnd || key == gocui.KeyCtrlE:
		line := v.Buffer()
		v.SetCursor(len(line)-1, 0)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyEnter:
		// don't handle - let keybinding process it
	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	// gocui has no suspend/resume, so editing a body in $EDITOR leaves the main
	// loop, runs the editor and builds a fresh GUI.
	for {
		g, err := gocui.NewGui(gocui.OutputNormal)
		if err != nil {
			return err
		}
		a.g = g

		g.BgColor = gocui.ColorBlack
		g.FgColor = gocui.ColorWhite

		g.Cursor = true
		g.InputEsc = true
		g.SetManagerFunc(a.layout)

		if err := a.bindKeys(); err != nil {
			g.Close()
			return err
		}

		err = g.MainLoop()
		g.Close()

		if a.suspendEditorFile != "" {
			file := a.suspendEditorFile
			a.suspendEditorFile = ""
			a.finishEditor(file)
			continue
		}

		if err != nil && err != gocui.ErrQuit {
			return err
		}
		return nil
	}
}

// finishEditor runs the editor on file and stores the result as the raw body.
func (a *App) finishEditor(file string) {
	args, err := editorCommand(a.editor, os.Getenv)
	if err != nil {
		a.errorMsg = err.Error()
		return
	}
	text, err := runEditor(args, file)
	if err != nil {
		a.logger.Warn("editor failed", "editor", args[0], "error", err)
		a.errorMsg = "editor failed: " + err.Error()
		return
	}
	if a.state == nil {
		return
	}
	a.state.SetRawBody(text)
	a.errorMsg = rawBodyWarning(a.fields.Body, text)
	a.logger.Debug("raw body edited", "endpoint", a.active.ID(), "bytes", len(text))
}

func (a *App) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("header", 0, 0, maxX-1, 2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
	}
	a.renderHeader()

	if v, err := g.SetView("footer", 0, maxY-2, maxX-1, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorBlack
		v.FgColor = gocui.ColorWhite
	}
	a.renderFooter()

	var err error
	switch a.scr {
	case screenEndpoints:
		err = a.layoutEndpoints(maxX, maxY)
	case screenBuilder:
		err = a.layoutBuilder(maxX, maxY)
	case screenPreview, screenResponse:
		err = a.layoutText(maxX, maxY)
	}
	if err != nil {
		return err
	}

	if a.settingsOpen {
		if err := a.layoutSettings(maxX, maxY); err != nil {
			return err
		}
	}
	if a.editing {
		if _, err := g.SetViewOnTop("edit"); err == nil {
			_, _ = g.SetCurrentView("edit")
		}
	}
	return nil
}

// layoutText shows the request preview or the last response.
func (a *App) layoutText(maxX, maxY int) error {
	a.clearMainViews([]string{"response"})

	if v, err := a.g.SetView("response", 0, 2, maxX-1, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Wrap = false
		v.Autoscroll = false
	}
	a.renderText()
	if !a.settingsOpen && !a.editing {
		if _, err := a.g.SetCurrentView("response"); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) clearMainViews(keep []string) {
	keepSet := map[string]bool{"header": true, "footer": true, "edit": true, "settings": true}
	for _, k := range keep {
		keepSet[k] = true
	}

	for _, n := range []string{"filter", "endpoints", "selected", "path", "query", "headers", "body", "response"} {
		if keepSet[n] {
			continue
		}
		if v, err := a.g.View(n); err == nil {
			v.Clear()
			a.g.DeleteView(n)
		}
	}
}

func (a *App) bindKeys() error {
	g := a.g
	if err := g.SetKeybinding("", 'q', gocui.ModNone, a.quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, a.quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyEsc, gocui.ModNone, a.back); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyF2, gocui.ModNone, a.openSettings); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyF5, gocui.ModNone, a.reload); err != nil {
		return err
	}
	if err := g.SetKeybinding("edit", gocui.KeyEnter, gocui.ModNone, a.confirmEdit); err != nil {
		return err
	}
	if err := a.bindEndpointKeys(); err != nil {
		return err
	}
	if err := a.bindBuilderKeys(); err != nil {
		return err
	}
	if err := a.bindSettingsKeys(); err != nil {
		return err
	}

	if err := g.SetKeybinding("response", gocui.KeyArrowDown, gocui.ModNone, a.scrollText(1)); err != nil {
		return err
	}
	if err := g.SetKeybinding("response", gocui.KeyArrowUp, gocui.ModNone, a.scrollText(-1)); err != nil {
		return err
	}
	if err := g.SetKeybinding("response", 'r', gocui.ModNone, a.rerun); err != nil {
		return err
	}
	if err := g.SetKeybinding("response", gocui.KeyCtrlR, gocui.ModNone, a.executeRequest); err != nil {
		return err
	}
	if err := g.SetKeybinding("response", gocui.KeyEnter, gocui.ModNone, a.textEnter); err != nil {
		return err
	}
	return nil
}

func (a *App) quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

func (a *App) back(*gocui.Gui, *gocui.View) error {
	if a.editing {
		return a.closeEdit()
	}
	if a.settingsOpen {
		a.closeSettings()
		return nil
	}
	switch a.scr {
	case screenResponse, screenPreview:
		a.scr = screenBuilder
	case screenBuilder:
		a.scr = screenEndpoints
	case screenEndpoints:
		// no previous screen
	}
	a.errorMsg = ""
	return nil
}

func (a *App) reload(*gocui.Gui, *gocui.View) error {
	if a.editing {
		return nil
	}
	a.loadCatalogue(true)
	a.scr = screenEndpoints
	return nil
}

func (a *App) scrollText(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if v == nil {
			return nil
		}
		ox, oy := v.Origin()
		if delta > 0 {
			v.SetOrigin(ox, oy+1)
		} else if oy > 0 {
			v.SetOrigin(ox, oy-1)
		}
		return nil
	}
}

// textEnter sends the previewed request, or goes back to the endpoint list
// from a response.
func (a *App) textEnter(g *gocui.Gui, v *gocui.View) error {
	if a.scr == screenPreview {
		return a.executeRequest(g, v)
	}
	a.scr = screenEndpoints
	a.errorMsg = ""
	return nil
}

func (a *App) rerun(*gocui.Gui, *gocui.View) error {
	if a.scr != screenResponse {
		return nil
	}
	if _, err := a.ctrl.Rerun(a.ctx); err != nil {
		a.errorMsg = session.Describe(err)
		return nil
	}
	a.errorMsg = ""
	a.renderText()
	return nil
}

func (a *App) renderHeader() {
	v, err := a.g.View("header")
	if err != nil {
		return
	}
	v.Clear()
	s := a.ctrl.Session()
	source := s.BaseURL
	if s.SpecFile != "" {
		source = s.SpecFile
	}
	service := s.Service
	if spec := a.ctrl.Spec(); spec != nil && spec.Info.Label() != "" {
		service += " (" + spec.Info.Label() + ")"
	}
	fmt.Fprintf(v, "%sxplore%s  -  %s  %s\n", colorGreen, colorReset, service, dim(source))
}

func (a *App) renderFooter() {
	v, err := a.g.View("footer")
	if err != nil {
		return
	}
	v.Clear()
	msg := a.errorMsg
	if msg == "" {
		msg = a.hint()
	}
	fmt.Fprint(v, msg)
}

func (a *App) hint() string {
	switch {
	case a.editing:
		return "enter: ok   esc: cancel"
	case a.settingsOpen:
		return "enter: change   e: type a value   r: reload catalogue   esc: close"
	}
	switch a.scr {
	case screenEndpoints:
		return "type: filter   1-5: quick select   enter: select   F2: settings   F5: reload   ctrl+c: quit"
	case screenBuilder:
		switch a.pane {
		case paneHeaders:
			return "enter: edit value   k: edit name   space: toggle   a: add   x: remove   p: preview   ctrl+r: run   esc: back"
		case paneBody:
			if a.state != nil && a.state.Mode == model.BodyModeRawJSON {
				return "enter: edit in $EDITOR   m: form mode   c: content type   d: reset   p: preview   ctrl+r: run   esc: back"
			}
			return "enter: edit   m: raw mode   c: content type   d: reset   p: preview   ctrl+r: run   esc: back"
		}
		return "tab: switch pane   enter: edit   d: reset   p: preview   ctrl+r: run   F2: settings   esc: back"
	case screenPreview:
		return "enter/ctrl+r: send   up/down: scroll   esc: back"
	case screenResponse:
		return "up/down: scroll   r: rerun   enter: endpoints   esc: back"
	}
	return ""
}

func (a *App) renderText() {
	a.renderFooter()
	v, err := a.g.View("response")
	if err != nil {
		return
	}
	v.Clear()
	if a.scr == screenPreview {
		v.Title = "Request"
		fmt.Fprint(v, a.preview)
		return
	}
	v.Title = "Response"
	if _, p := a.ctrl.Last(); p != nil {
		fmt.Fprint(v, responseText(*p))
	}
}
