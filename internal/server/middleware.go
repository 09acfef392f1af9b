package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/hnrobert/dharmagate/internal/auth"
	"github.com/hnrobert/dharmagate/internal/gate"
	"github.com/hnrobert/dharmagate/internal/logger"
)

type ctxKey string

const ctxSession ctxKey = "session"

// withSession resolves the session token to a stored session record. A
// token whose session is gone (logged out elsewhere, store wiped) is
// treated as absent and the cookie is cleared.
func (a *App) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if tok, fromCookie := a.readToken(r); tok != "" {
			sess, ok := a.resolve(ctx, tok)
			if ok {
				ctx = context.WithValue(ctx, ctxSession, sess)
			} else if fromCookie {
				a.clearCookie(w)
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) readToken(r *http.Request) (string, bool) {
	// Prefer cookie.
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	// Fallback: Authorization: Bearer <token>
	authz := r.Header.Get("Authorization")
	if authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}
	return "", false
}

func (a *App) resolve(ctx context.Context, tok string) (gate.Session, bool) {
	cl, err := auth.ParseSession(a.secret, tok)
	if err != nil {
		logger.Debug("Rejected session token: %v", err)
		return gate.Session{}, false
	}
	sess, ok, err := a.gate.Current(ctx, cl.SessionID())
	if err != nil {
		logger.Error("Loading session %s failed: %v", cl.SessionID(), err)
		return gate.Session{}, false
	}
	return sess, ok
}

func sessionFrom(r *http.Request) (gate.Session, bool) {
	if v := r.Context().Value(ctxSession); v != nil {
		if s, ok := v.(gate.Session); ok {
			return s, true
		}
	}
	return gate.Session{}, false
}

// guard runs the page-guard table before h. Redirect outcomes never reach h.
func (a *App) guard(kind gate.Kind, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, authed := sessionFrom(r)
		v := &httpView{}
		switch a.gate.Guard(v, authed, kind) {
		case gate.ActionRedirectLogin, gate.ActionRedirectHome:
			http.Redirect(w, r, v.target, http.StatusSeeOther)
			return
		}
		h(w, r)
	}
}
