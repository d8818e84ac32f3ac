package ui

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jroimartin/gocui"

	"xplore/internal/model"
	"xplore/internal/session"
)

const (
	settingService = iota
	settingBaseURL
	settingPartition
	settingAuthMethod
	settingToken
	settingHeaderName
	settingHeaderPrefix
	settingCookieName
	settingCount
)

type settingRow struct {
	label string
	value string
}

// settingsRows is what the settings modal lists, in row order.
func settingsRows(s *session.Session) []settingRow {
	service := s.Service
	if svc, ok := s.ActiveService(); ok && svc.Title != "" {
		service = svc.Title + " (" + svc.Name + ")"
	}
	if s.SpecFile != "" {
		service += " " + dim("file: "+s.SpecFile)
	}
	return []settingRow{
		settingService:      {"service", service},
		settingBaseURL:      {"base url", s.BaseURL},
		settingPartition:    {"partition", s.Partition},
		settingAuthMethod:   {"auth method", string(s.Auth.Method)},
		settingToken:        {"token", mask(s.Auth.Token)},
		settingHeaderName:   {"header name", s.Auth.HeaderName},
		settingHeaderPrefix: {"header prefix", fmt.Sprintf("%q", s.Auth.HeaderPrefix)},
		settingCookieName:   {"cookie name", s.Auth.CookieName},
	}
}

// nextOption returns the option after current, wrapping around.
func nextOption(options []string, current string) string {
	if len(options) == 0 {
		return current
	}
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func (a *App) layoutSettings(maxX, maxY int) error {
	width := maxX - 10
	if width > 80 {
		width = 80
	}
	if width < 34 {
		width = 34
	}
	height := settingCount + 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	if v, err := a.g.SetView("settings", x0, y0, x0+width, y0+height); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Settings"
		v.Highlight = true
		v.SelFgColor = gocui.ColorBlack
		v.SelBgColor = gocui.ColorGreen
	}
	a.renderSettings()
	_, _ = a.g.SetViewOnTop("settings")
	if !a.editing {
		if _, err := a.g.SetCurrentView("settings"); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) bindSettingsKeys() error {
	g := a.g
	if err := g.SetKeybinding("settings", gocui.KeyArrowDown, gocui.ModNone, a.moveSettingsSel(1)); err != nil {
		return err
	}
	if err := g.SetKeybinding("settings", gocui.KeyArrowUp, gocui.ModNone, a.moveSettingsSel(-1)); err != nil {
		return err
	}
	if err := g.SetKeybinding("settings", gocui.KeyEnter, gocui.ModNone, a.settingsEnter); err != nil {
		return err
	}
	if err := g.SetKeybinding("settings", 'e', gocui.ModNone, a.settingsType); err != nil {
		return err
	}
	if err := g.SetKeybinding("settings", 'r', gocui.ModNone, a.reload); err != nil {
		return err
	}
	return nil
}

func (a *App) openSettings(*gocui.Gui, *gocui.View) error {
	if a.settingsOpen || a.editing {
		return nil
	}
	a.settingsOpen = true
	a.settingsSel = 0
	return nil
}

func (a *App) closeSettings() {
	a.settingsOpen = false
	if v, err := a.g.View("settings"); err == nil {
		v.Clear()
		a.g.DeleteView("settings")
	}
}

func (a *App) moveSettingsSel(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		if a.editing {
			return nil
		}
		a.settingsSel += delta
		if a.settingsSel < 0 {
			a.settingsSel = 0
		}
		if a.settingsSel >= settingCount {
			a.settingsSel = settingCount - 1
		}
		if v != nil {
			v.SetCursor(0, a.settingsSel)
		}
		return nil
	}
}

// settingsEnter cycles preset options in place and opens the edit modal for
// free-text settings.
func (a *App) settingsEnter(*gocui.Gui, *gocui.View) error {
	if a.editing {
		return nil
	}
	s := a.ctrl.Session()
	switch a.settingsSel {
	case settingService:
		names := make([]string, 0, len(s.Services))
		for _, svc := range s.Services {
			names = append(names, svc.Name)
		}
		next := nextOption(names, s.Service)
		if next == s.Service {
			return nil
		}
		if err := s.UseService(next); err != nil {
			a.errorMsg = err.Error()
			return nil
		}
		a.logger.Info("service changed", "service", next)
		a.switchCatalogue(false)
	case settingBaseURL:
		next := nextOption(s.BaseURLs, s.BaseURL)
		if next == s.BaseURL {
			return nil
		}
		s.UseBaseURL(next)
		a.logger.Info("base url changed", "base_url", next)
		a.switchCatalogue(true)
	case settingPartition:
		s.UsePartition(nextOption(s.Partitions, s.Partition))
	case settingAuthMethod:
		if s.Auth.Method == model.AuthCookie {
			s.Auth.Method = model.AuthHeader
		} else {
			s.Auth.Method = model.AuthCookie
		}
	default:
		return a.settingsType(nil, nil)
	}
	a.renderSettings()
	return nil
}

// settingsType opens the edit modal on the selected setting.
func (a *App) settingsType(*gocui.Gui, *gocui.View) error {
	if a.editing {
		return nil
	}
	s := a.ctrl.Session()
	var current string
	switch a.settingsSel {
	case settingBaseURL:
		current = s.BaseURL
	case settingPartition:
		current = s.Partition
	case settingToken:
		current = s.Auth.Token
	case settingHeaderName:
		current = s.Auth.HeaderName
	case settingHeaderPrefix:
		current = s.Auth.HeaderPrefix
	case settingCookieName:
		current = s.Auth.CookieName
	default:
		return nil
	}
	title := settingsRows(s)[a.settingsSel].label
	return a.beginEdit(title, current, editTarget{row: a.settingsSel, setting: true})
}

// applySetting stores text typed for setting row.
func (a *App) applySetting(row int, text string) error {
	s := a.ctrl.Session()
	trimmed := strings.TrimSpace(text)
	switch row {
	case settingBaseURL:
		u, err := url.Parse(trimmed)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base url %q must be an absolute http(s) URL", trimmed)
		}
		if trimmed != s.BaseURL {
			s.UseBaseURL(trimmed)
			a.switchCatalogue(true)
		}
	case settingPartition:
		if trimmed == "" {
			return errors.New("partition cannot be empty")
		}
		s.UsePartition(trimmed)
	case settingToken:
		s.Auth.Token = trimmed
	case settingHeaderName:
		if trimmed == "" {
			return errors.New("header name cannot be empty")
		}
		s.Auth.HeaderName = trimmed
	case settingHeaderPrefix:
		s.Auth.HeaderPrefix = text
	case settingCookieName:
		if trimmed == "" {
			return errors.New("cookie name cannot be empty")
		}
		s.Auth.CookieName = trimmed
	}
	return nil
}

// switchCatalogue reloads the catalogue after the service or base URL
// changed and goes back to the endpoint list.
func (a *App) switchCatalogue(refresh bool) {
	a.state = nil
	a.active = model.Endpoint{}
	a.scr = screenEndpoints
	a.loadCatalogue(refresh)
}

func (a *App) renderSettings() {
	a.renderHeader()
	a.renderFooter()
	v, err := a.g.View("settings")
	if err != nil {
		return
	}
	v.Clear()
	for _, r := range settingsRows(a.ctrl.Session()) {
		fmt.Fprintf(v, "%s %s\n", padRight(r.label, 14), r.value)
	}
	v.SetCursor(0, a.settingsSel)
}
