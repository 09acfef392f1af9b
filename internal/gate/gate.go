// Package gate decides who may see which page and runs the login,
// registration and logout flows against the account stores.
//
// The gate never touches HTTP. Outcomes reach the user through a View, which
// the server implements with flash messages and redirects.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hnrobert/dharmagate/internal/account"
	"github.com/hnrobert/dharmagate/internal/auth"
	"github.com/hnrobert/dharmagate/internal/logger"
)

type Page int

const (
	PageLogin Page = iota
	PageRegister
	PageHome
)

func (p Page) String() string {
	switch p {
	case PageLogin:
		return "login"
	case PageRegister:
		return "register"
	default:
		return "home"
	}
}

type Kind int

const (
	// KindProtected is every page other than the login and registration pages.
	KindProtected Kind = iota
	KindAuth
)

type Action int

const (
	ActionRenderForms Action = iota
	ActionRenderLogout
	ActionRedirectLogin
	ActionRedirectHome
)

// Decide is the page-guard table.
func Decide(authed bool, kind Kind) Action {
	switch {
	case !authed && kind == KindProtected:
		return ActionRedirectLogin
	case authed && kind == KindAuth:
		return ActionRedirectHome
	case authed:
		return ActionRenderLogout
	default:
		return ActionRenderForms
	}
}

const (
	DefaultAcceptedAffiliation = "yes"
	DefaultMinPasswordLength   = 6
	DefaultRedirectDelay       = 2 * time.Second
	DefaultMessageTimeout      = 5 * time.Second
)

type Options struct {
	// AcceptedAffiliation is the only affiliation-consent value that may register.
	AcceptedAffiliation string
	// AffiliationMessage replaces the default rejection text when set.
	AffiliationMessage string
	MinPasswordLength  int
	// RedirectDelay is how long the registration success message shows
	// before navigating to the login page. Negative navigates immediately.
	RedirectDelay time.Duration
	// MessageTimeout is how long an error message stays visible.
	MessageTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.AcceptedAffiliation == "" {
		o.AcceptedAffiliation = DefaultAcceptedAffiliation
	}
	if o.AffiliationMessage == "" {
		o.AffiliationMessage = msgAffiliation
	}
	if o.MinPasswordLength <= 0 {
		o.MinPasswordLength = DefaultMinPasswordLength
	}
	if o.RedirectDelay < 0 {
		o.RedirectDelay = 0
	} else if o.RedirectDelay == 0 {
		o.RedirectDelay = DefaultRedirectDelay
	}
	if o.MessageTimeout <= 0 {
		o.MessageTimeout = DefaultMessageTimeout
	}
	return o
}

// Session is an authenticated browser: the opaque session ID plus the
// stored record.
type Session struct {
	ID     string
	Record account.SessionRecord
}

type Gate struct {
	users    *account.Users
	sessions *account.Sessions
	hasher   auth.Hasher
	opts     Options

	dummyOnce sync.Once
	dummyHash string
	newID     func() string
}

func New(users *account.Users, sessions *account.Sessions, hasher auth.Hasher, opts Options) *Gate {
	return &Gate{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		opts:     opts.withDefaults(),
		newID:    func() string { return uuid.NewString() },
	}
}

func (g *Gate) Options() Options {
	return g.opts
}

// Current resolves a session ID to its record. Unknown IDs are reported as
// ok=false, never as an error.
func (g *Gate) Current(ctx context.Context, sid string) (Session, bool, error) {
	rec, ok, err := g.sessions.Load(ctx, sid)
	if err != nil || !ok {
		return Session{}, false, err
	}
	return Session{ID: sid, Record: rec}, true, nil
}

// Register validates form and appends a new user. Validation failures are
// returned as sentinel errors and leave the store untouched.
func (g *Gate) Register(ctx context.Context, form RegisterForm) (account.UserRecord, error) {
	form = form.normalized()
	if err := form.validate(g.opts); err != nil {
		return account.UserRecord{}, err
	}
	hash, err := g.hasher.Hash(form.Password)
	if err != nil {
		return account.UserRecord{}, fmt.Errorf("hash password: %w", err)
	}
	rec, err := g.users.Create(ctx, account.UserRecord{
		FullName:     form.FullName,
		Email:        form.Email,
		PasswordHash: hash,
		Affiliation:  form.Affiliation,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return account.UserRecord{}, ErrEmailTaken
		}
		return account.UserRecord{}, err
	}
	return rec, nil
}

// Authenticate returns the user whose email and password both match.
func (g *Gate) Authenticate(ctx context.Context, form LoginForm) (account.UserRecord, error) {
	form = form.normalized()
	if form.Email == "" || form.Password == "" {
		return account.UserRecord{}, ErrInvalidCredentials
	}
	user, err := g.users.FindByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Spend the same hashing work as a real mismatch.
			_ = g.hasher.Verify(g.dummy(), form.Password)
			return account.UserRecord{}, ErrInvalidCredentials
		}
		return account.UserRecord{}, err
	}
	if err := g.hasher.Verify(user.PasswordHash, form.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return account.UserRecord{}, ErrInvalidCredentials
		}
		logger.Warn("Password check for %s failed: %v", user.Email, err)
		return account.UserRecord{}, ErrInvalidCredentials
	}
	if g.hasher.NeedsRehash(user.PasswordHash) {
		g.rehash(ctx, user, form.Password)
	}
	return user, nil
}

// Login authenticates form and persists a fresh session for the user.
func (g *Gate) Login(ctx context.Context, form LoginForm) (Session, error) {
	user, err := g.Authenticate(ctx, form)
	if err != nil {
		return Session{}, err
	}
	sess := Session{ID: g.newID(), Record: user.Session()}
	if err := g.sessions.Save(ctx, sess.ID, sess.Record); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Logout removes the session record. Logging out twice is not an error.
func (g *Gate) Logout(ctx context.Context, sid string) error {
	return g.sessions.Delete(ctx, sid)
}

func (g *Gate) rehash(ctx context.Context, user account.UserRecord, password string) {
	h, err := g.hasher.Hash(password)
	if err != nil {
		logger.Warn("Rehash for %s failed: %v", user.Email, err)
		return
	}
	user.PasswordHash = h
	if err := g.users.Update(ctx, user); err != nil {
		logger.Warn("Storing upgraded hash for %s failed: %v", user.Email, err)
		return
	}
	logger.Info("Upgraded password hash for %s", user.Email)
}

func (g *Gate) dummy() string {
	g.dummyOnce.Do(func() {
		h, err := g.hasher.Hash(strings.Repeat("x", g.opts.MinPasswordLength))
		if err != nil {
			logger.Warn("Dummy hash unavailable: %v", err)
		}
		g.dummyHash = h
	})
	return g.dummyHash
}
