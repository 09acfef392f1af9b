package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt      = "bcrypt"
	SchemeSHA512Crypt = "sha512-crypt"

	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72

	prefixMD5Crypt    = "$1$"
	prefixSHA256Crypt = "$5$"
	prefixSHA512Crypt = "$6$"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnsupportedHash    = errors.New("unsupported password hash")
	ErrEmptyPassword      = errors.New("empty password")
	ErrUnknownScheme      = errors.New("unknown password scheme")
)

// Hasher produces salted password hashes. Verify accepts every supported
// format, so records hashed under a previous scheme keep working; NeedsRehash
// reports whether such a record should be upgraded to the current scheme.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
	NeedsRehash(hash string) bool
}

func NewHasher(scheme string, bcryptCost int) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeBcrypt:
		if bcryptCost == 0 {
			bcryptCost = bcrypt.DefaultCost
		}
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return BcryptHasher{Cost: bcryptCost}, nil
	case SchemeSHA512Crypt:
		return SHA512CryptHasher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(hash, password string) error {
	return VerifyPassword(hash, password)
}

func (h BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.Cost
}

type SHA512CryptHasher struct{}

func (SHA512CryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	// A nil salt makes the crypter generate a random one.
	return sha512_crypt.New().Generate([]byte(password), nil)
}

func (SHA512CryptHasher) Verify(hash, password string) error {
	return VerifyPassword(hash, password)
}

func (SHA512CryptHasher) NeedsRehash(hash string) bool {
	return !strings.HasPrefix(hash, prefixSHA512Crypt)
}

// VerifyPassword checks password against a bcrypt ($2a$/$2b$/$2y$) or
// crypt(3) ($1$, $5$, $6$) hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if strings.HasPrefix(hash, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrInvalidCredentials
		default:
			return fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
		}
	}

	var crypter crypt.Crypter
	switch {
	case strings.HasPrefix(hash, prefixSHA512Crypt):
		crypter = sha512_crypt.New()
	case strings.HasPrefix(hash, prefixSHA256Crypt):
		crypter = sha256_crypt.New()
	case strings.HasPrefix(hash, prefixMD5Crypt):
		crypter = md5_crypt.New()
	default:
		return ErrUnsupportedHash
	}
	// Verify returns nil on success; malformed hashes and mismatches are not distinguished.
	if err := crypter.Verify(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ConstantTimeEqual compares two secrets without leaking their common prefix length.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
