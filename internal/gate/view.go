package gate

import (
	"context"
	"time"

	"github.com/hnrobert/dharmagate/internal/logger"
)

// View is where gate outcomes become visible: an inline message region and
// page navigation. A zero delay navigates immediately.
type View interface {
	ShowError(msg string)
	ShowSuccess(msg string)
	Navigate(page Page, after time.Duration)
}

// Guard applies the page-guard table for one page load and performs the
// redirect when the table calls for one.
func (g *Gate) Guard(v View, authed bool, kind Kind) Action {
	act := Decide(authed, kind)
	switch act {
	case ActionRedirectLogin:
		v.Navigate(PageLogin, 0)
	case ActionRedirectHome:
		v.Navigate(PageHome, 0)
	}
	return act
}

// SubmitRegister handles a registration form: an error message on failure,
// otherwise a success message and a delayed move to the login page.
func (g *Gate) SubmitRegister(ctx context.Context, v View, form RegisterForm) bool {
	rec, err := g.Register(ctx, form)
	if err != nil {
		g.fail(v, "Registration", form.Email, err)
		return false
	}
	logger.Info("Registered user %s (id %d)", rec.Email, rec.ID)
	v.ShowSuccess(msgRegistered)
	v.Navigate(PageLogin, g.opts.RedirectDelay)
	return true
}

// SubmitLogin handles a login form and navigates home on success.
func (g *Gate) SubmitLogin(ctx context.Context, v View, form LoginForm) (Session, bool) {
	sess, err := g.Login(ctx, form)
	if err != nil {
		g.fail(v, "Login", form.Email, err)
		return Session{}, false
	}
	logger.Info("User %s logged in", sess.Record.Email)
	v.Navigate(PageHome, 0)
	return sess, true
}

// SubmitLogout ends the session and navigates to the login page. A failed
// delete is logged; the browser is logged out regardless.
func (g *Gate) SubmitLogout(ctx context.Context, v View, sess Session) {
	if err := g.Logout(ctx, sess.ID); err != nil {
		logger.Error("Deleting session for %s failed: %v", sess.Record.Email, err)
	} else {
		logger.Info("User %s logged out", sess.Record.Email)
	}
	v.Navigate(PageLogin, 0)
}

func (g *Gate) fail(v View, op, email string, err error) {
	msg := g.HumanError(err)
	if msg == msgInternal {
		logger.Error("%s for %s failed: %v", op, email, err)
	} else {
		logger.Debug("%s for %s rejected: %v", op, email, err)
	}
	v.ShowError(msg)
}
