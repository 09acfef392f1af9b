package server

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/hnrobert/dharmagate/internal/auth"
	"github.com/hnrobert/dharmagate/internal/content"
	"github.com/hnrobert/dharmagate/internal/gate"
	"github.com/hnrobert/dharmagate/internal/logger"
)

//go:embed templates/*.html
var templatesFS embed.FS

type App struct {
	secret       []byte
	cookieName   string
	cookieSecure bool
	cookieMaxAge time.Duration
	pages        map[string]*template.Template
	gate         *gate.Gate
	content      *content.Library

	signSession func(secret []byte, sessionID string, userID int64, fullName, email string) (string, error)
}

type ViewData struct {
	Title     string
	Authed    bool
	FullName  string
	Email     string
	Flash     string
	FlashKind string // ok|err|""

	// error messages hide themselves after this many milliseconds
	MessageTimeoutMS int64

	// login / register
	FormFullName        string
	FormEmail           string
	AcceptedAffiliation string
	MinPasswordLength   int

	// content pages
	Body  template.HTML
	Pages []PageLink
}

type PageLink struct {
	Name  string
	Title string
}

func newApp(cfg Config, g *gate.Gate, lib *content.Library) (*App, error) {
	secretText := cfg.Secret
	if secretText == "" {
		// Generate ephemeral secret if not configured.
		s, err := auth.NewRandomSecretB64(32)
		if err != nil {
			return nil, err
		}
		secretText = s
		logger.Warn("No session secret configured; sessions will not survive a restart")
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = auth.DefaultCookieName
	}

	base := template.New("layout.html").Funcs(template.FuncMap{
		"eq": auth.ConstantTimeEqual,
	})

	pages := map[string]*template.Template{}
	for _, page := range []string{"login", "register", "page"} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		// Each page file defines the same block names (title/content).
		if _, err := t.ParseFS(templatesFS, "templates/layout.html", "templates/"+page+".html"); err != nil {
			return nil, err
		}
		pages[page] = t
	}

	return &App{
		secret:       auth.DecodeSecret(secretText),
		cookieName:   cookieName,
		cookieSecure: cfg.CookieSecure,
		cookieMaxAge: cfg.CookieMaxAge,
		pages:        pages,
		gate:         g,
		content:      lib,
		signSession:  auth.SignSession,
	}, nil
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", a.guard(gate.KindAuth, a.handleLogin))
	mux.HandleFunc("/register", a.guard(gate.KindAuth, a.handleRegister))
	mux.HandleFunc("/logout", a.guard(gate.KindProtected, a.handleLogout))

	mux.HandleFunc("/", a.guard(gate.KindProtected, a.handleHome))
	mux.HandleFunc("/p/{name}", a.guard(gate.KindProtected, a.handleContentPage))

	// Old static page names.
	for old, target := range map[string]string{
		"/login.html":    "/login",
		"/register.html": "/register",
		"/index.html":    "/",
	} {
		mux.Handle(old, http.RedirectHandler(target, http.StatusMovedPermanently))
	}

	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})

	return a.withSession(mux)
}

func (a *App) issueCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.cookieSecure,
		MaxAge:   int(a.cookieMaxAge.Seconds()),
	})
}

func (a *App) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.cookieSecure,
		MaxAge:   -1,
	})
}
