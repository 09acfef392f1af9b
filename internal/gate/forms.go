package gate

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/hnrobert/dharmagate/internal/auth"
)

// RegisterForm carries the registration fields as submitted.
type RegisterForm struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
	Affiliation     string
}

type LoginForm struct {
	Email    string
	Password string
}

func (f RegisterForm) normalized() RegisterForm {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.TrimSpace(f.Email)
	return f
}

func (f LoginForm) normalized() LoginForm {
	f.Email = strings.TrimSpace(f.Email)
	return f
}

// validate runs the registration rules in order and returns the first
// failure. Uniqueness of the email is left to the user store. The
// affiliation value is compared exactly as submitted.
func (f RegisterForm) validate(opts Options) error {
	checks := []struct {
		value any
		rules []validation.Rule
		err   error
	}{
		{f.Affiliation, []validation.Rule{validation.Required, validation.In(opts.AcceptedAffiliation)}, ErrAffiliationRequired},
		{f.ConfirmPassword, []validation.Rule{validation.By(equalTo(f.Password))}, ErrPasswordMismatch},
		{f.Password, []validation.Rule{validation.Required, validation.RuneLength(opts.MinPasswordLength, 0)}, ErrPasswordTooShort},
		{f.Password, []validation.Rule{validation.Length(0, auth.MaxPasswordBytes)}, ErrPasswordTooLong},
		{f.FullName, []validation.Rule{validation.Required, validation.RuneLength(1, 200)}, ErrNameRequired},
		{f.Email, []validation.Rule{validation.Required, validation.Length(3, 254), is.Email}, ErrInvalidEmail},
	}
	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			return c.err
		}
	}
	return nil
}

func equalTo(want string) validation.RuleFunc {
	return func(value interface{}) error {
		if s, _ := value.(string); s != want {
			return errors.New("values do not match")
		}
		return nil
	}
}
