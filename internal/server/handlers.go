package server

import (
	"errors"
	"net"
	"net/http"

	"github.com/hnrobert/dharmagate/internal/content"
	"github.com/hnrobert/dharmagate/internal/gate"
	"github.com/hnrobert/dharmagate/internal/logger"
)

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		a.renderPage(w, "login", a.baseData(r, "Login"))
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	form := gate.LoginForm{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	data := a.baseData(r, "Login")
	data.FormEmail = form.Email

	v := &httpView{}
	sess, ok := a.gate.SubmitLogin(r.Context(), v, form)
	if !ok {
		logger.Info("Failed login attempt for %s from %s", form.Email, remoteIP(r))
		a.respond(w, r, v, "login", data)
		return
	}
	tok, err := a.signSession(a.secret, sess.ID, sess.Record.ID, sess.Record.FullName, sess.Record.Email)
	if err != nil {
		logger.Error("Signing session for %s failed: %v", sess.Record.Email, err)
		if err := a.gate.Logout(r.Context(), sess.ID); err != nil {
			logger.Error("Deleting session for %s failed: %v", sess.Record.Email, err)
		}
		data.Flash, data.FlashKind = "Failed to create session.", "err"
		a.renderPage(w, "login", data)
		return
	}
	a.issueCookie(w, tok)
	a.respond(w, r, v, "login", data)
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		a.renderPage(w, "register", a.baseData(r, "Register"))
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_ = r.ParseForm()
	form := gate.RegisterForm{
		FullName:        r.PostForm.Get("fullName"),
		Email:           r.PostForm.Get("email"),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirmPassword"),
		Affiliation:     r.PostForm.Get("hinduDharma"),
	}
	data := a.baseData(r, "Register")

	v := &httpView{}
	if !a.gate.SubmitRegister(r.Context(), v, form) {
		// Keep what the user typed, minus the passwords.
		data.FormFullName = form.FullName
		data.FormEmail = form.Email
	}
	a.respond(w, r, v, "register", data)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := sessionFrom(r)
	v := &httpView{}
	a.gate.SubmitLogout(r.Context(), v, sess)
	a.clearCookie(w)
	a.respond(w, r, v, "login", a.baseData(r, "Login"))
}

// handleHome also catches every unmatched path, which has already been
// through the protected-page guard by the time it lands here.
func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		a.notFound(w, r)
		return
	}
	a.servePage(w, r, content.HomePage)
}

func (a *App) handleContentPage(w http.ResponseWriter, r *http.Request) {
	a.servePage(w, r, r.PathValue("name"))
}

func (a *App) servePage(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := a.content.Render(name)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) || errors.Is(err, content.ErrInvalidName) {
			a.notFound(w, r)
			return
		}
		logger.Error("Rendering page %s failed: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	title := ""
	if name != content.HomePage {
		title = a.content.Title(name)
	}
	data := a.baseData(r, title)
	data.Body = body
	a.renderPage(w, "page", data)
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) {
	data := a.baseData(r, "Not found")
	data.Flash, data.FlashKind = "Page not found.", "err"
	a.renderStatus(w, http.StatusNotFound, "page", data)
}
