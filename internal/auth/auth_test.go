package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("", 0)
	require.NoError(t, err)
	assert.Equal(t, BcryptHasher{Cost: bcrypt.DefaultCost}, h)

	h, err = NewHasher("SHA512-Crypt", 0)
	require.NoError(t, err)
	assert.IsType(t, SHA512CryptHasher{}, h)

	_, err = NewHasher("bcrypt", 99)
	assert.Error(t, err)

	_, err = NewHasher("plaintext", 0)
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	assert.NoError(t, h.Verify(hash, "secret1"))
	assert.ErrorIs(t, h.Verify(hash, "secret2"), ErrInvalidCredentials)
	assert.False(t, h.NeedsRehash(hash))
	assert.True(t, BcryptHasher{Cost: bcrypt.MinCost + 1}.NeedsRehash(hash))

	_, err = h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestBcryptHasherSaltsEachHash(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSHA512CryptHasher(t *testing.T) {
	h := SHA512CryptHasher{}

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$6$"))

	assert.NoError(t, h.Verify(hash, "secret1"))
	assert.ErrorIs(t, h.Verify(hash, "nope"), ErrInvalidCredentials)
	assert.False(t, h.NeedsRehash(hash))

	bh, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, h.NeedsRehash(bh))
}

func TestVerifyPasswordAcrossSchemes(t *testing.T) {
	sha, err := SHA512CryptHasher{}.Hash("secret1")
	require.NoError(t, err)

	// A bcrypt-configured hasher still verifies older sha512-crypt records.
	bh := BcryptHasher{Cost: bcrypt.MinCost}
	assert.NoError(t, bh.Verify(sha, "secret1"))
	assert.True(t, bh.NeedsRehash(sha))

	assert.ErrorIs(t, VerifyPassword("", "secret1"), ErrInvalidCredentials)
	assert.ErrorIs(t, VerifyPassword("secret1", "secret1"), ErrUnsupportedHash)
	assert.ErrorIs(t, VerifyPassword("$y$j9T$abc", "secret1"), ErrUnsupportedHash)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("yes", "yes"))
	assert.False(t, ConstantTimeEqual("yes", "no"))
	assert.False(t, ConstantTimeEqual("yes", "yes "))
}

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := DecodeSecret("test-secret-value")

	tok, err := SignSession(secret, "sid-1", 1700000000000, "Asha Rao", "a@x.com")
	require.NoError(t, err)

	cl, err := ParseSession(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", cl.SessionID())
	assert.Equal(t, int64(1700000000000), cl.UserID)
	assert.Equal(t, "Asha Rao", cl.FullName)
	assert.Equal(t, "a@x.com", cl.Email)
	assert.Nil(t, cl.ExpiresAt)
}

func TestParseSessionRejectsTampering(t *testing.T) {
	secret := DecodeSecret("test-secret-value")
	tok, err := SignSession(secret, "sid-1", 1, "A", "a@x.com")
	require.NoError(t, err)

	_, err = ParseSession(DecodeSecret("another-secret-value"), tok)
	assert.Error(t, err)

	_, err = ParseSession(secret, tok+"x")
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{ID: "sid-1", Issuer: DefaultIssuer}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseSession(secret, unsigned)
	assert.Error(t, err)
}

func TestParseSessionRequiresSessionID(t *testing.T) {
	secret := DecodeSecret("test-secret-value")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:   DefaultIssuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseSession(secret, s)
	assert.Error(t, err)

	_, err = SignSession(secret, "", 1, "A", "a@x.com")
	assert.Error(t, err)
}

func TestDecodeSecret(t *testing.T) {
	s, err := NewRandomSecretB64(32)
	require.NoError(t, err)
	assert.Len(t, DecodeSecret(s), 32)

	assert.Len(t, DecodeSecret("short"), 16)
	assert.Equal(t, []byte("this is not base64 at all!"), DecodeSecret("this is not base64 at all!"))
}
