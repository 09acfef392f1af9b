package gate

import (
	"errors"
	"fmt"
)

var (
	ErrAffiliationRequired = errors.New("affiliation not accepted")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrPasswordTooShort    = errors.New("password too short")
	ErrPasswordTooLong     = errors.New("password too long")
	ErrNameRequired        = errors.New("full name required")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)

const (
	msgAffiliation = "This website is exclusively for followers of Hindu Dharma. We respect all faiths, but this platform is dedicated to Hindu spiritual knowledge."
	msgRegistered  = "Welcome to Hindu Dharma! Account created successfully. Redirecting to login..."
	msgInternal    = "Something went wrong. Please try again."
)

// HumanError turns a gate error into the text shown in the error region.
func (g *Gate) HumanError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAffiliationRequired):
		return g.opts.AffiliationMessage
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, ErrPasswordTooShort):
		return fmt.Sprintf("Password must be at least %d characters", g.opts.MinPasswordLength)
	case errors.Is(err, ErrPasswordTooLong):
		return "Password is too long"
	case errors.Is(err, ErrNameRequired):
		return "Please enter your full name"
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address"
	case errors.Is(err, ErrEmailTaken):
		return "User with this email already exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	default:
		return msgInternal
	}
}
