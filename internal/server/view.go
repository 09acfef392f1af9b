package server

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/hnrobert/dharmagate/internal/gate"
	"github.com/hnrobert/dharmagate/internal/logger"
)

// httpView records what the gate asked for during one request so the
// handler can turn it into a response: flash text on the rendered page and
// either a 303 or a delayed Refresh header.
type httpView struct {
	flash     string
	flashKind string
	target    string
	after     time.Duration
	navigated bool
}

func (v *httpView) ShowError(msg string) {
	v.flash, v.flashKind = msg, "err"
}

func (v *httpView) ShowSuccess(msg string) {
	v.flash, v.flashKind = msg, "ok"
}

func (v *httpView) Navigate(p gate.Page, after time.Duration) {
	v.target = pagePath(p)
	v.after = after
	v.navigated = true
}

func pagePath(p gate.Page) string {
	switch p {
	case gate.PageLogin:
		return "/login"
	case gate.PageRegister:
		return "/register"
	default:
		return "/"
	}
}

// respond finishes a form submission. Immediate navigation becomes a
// redirect; otherwise page is rendered with the flash and, for delayed
// navigation, a Refresh header pointing at the target.
func (a *App) respond(w http.ResponseWriter, r *http.Request, v *httpView, page string, data ViewData) {
	if v.navigated && v.after <= 0 {
		http.Redirect(w, r, v.target, http.StatusSeeOther)
		return
	}
	data.Flash, data.FlashKind = v.flash, v.flashKind
	if v.navigated {
		secs := int(math.Ceil(v.after.Seconds()))
		w.Header().Set("Refresh", fmt.Sprintf("%d; url=%s", secs, v.target))
	}
	a.renderPage(w, page, data)
}

func (a *App) baseData(r *http.Request, title string) ViewData {
	opts := a.gate.Options()
	d := ViewData{
		Title:               title,
		MessageTimeoutMS:    opts.MessageTimeout.Milliseconds(),
		AcceptedAffiliation: opts.AcceptedAffiliation,
		MinPasswordLength:   opts.MinPasswordLength,
	}
	if sess, ok := sessionFrom(r); ok {
		d.Authed = true
		d.FullName = sess.Record.FullName
		d.Email = sess.Record.Email
		d.Pages = a.pageLinks()
	}
	return d
}

func (a *App) pageLinks() []PageLink {
	names, err := a.content.Pages()
	if err != nil {
		logger.Warn("Listing content pages failed: %v", err)
		return nil
	}
	links := make([]PageLink, 0, len(names))
	for _, n := range names {
		links = append(links, PageLink{Name: n, Title: a.content.Title(n)})
	}
	return links
}

func (a *App) renderPage(w http.ResponseWriter, page string, data ViewData) {
	a.renderStatus(w, http.StatusOK, page, data)
}

func (a *App) renderStatus(w http.ResponseWriter, status int, page string, data ViewData) {
	t, ok := a.pages[page]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		logger.Error("Template execution error for %s: %v", page, err)
	}
}
