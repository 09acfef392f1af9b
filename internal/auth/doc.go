// Package auth holds the credential primitives behind the session gate:
// password hashing, signed session cookies and the user-facing wording of
// authentication failures.
package auth
