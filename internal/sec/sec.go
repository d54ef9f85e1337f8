// Package sec provides the authentication and authorization primitives for
// the castellan service.
//
// # Authentication
//
// Login exchanges a username and password for a signed bearer token. The
// password is validated against a bcrypt hash held by the credential store,
// and a successful login is answered with an HS256 JWT carrying the subject,
// issue/expiry timestamps and the subject's roles. No server-side session
// state exists; every request after login is authenticated independently
// from its token.
//
// # Authorization
//
// A [Gate] evaluates an ordered list of [Rule] values against the request
// path. The first matching rule wins: public rules admit anonymous requests,
// role rules require an authenticated [Identity] holding one of the listed
// roles, and a rule with no roles requires any authenticated identity.
//
// # Components
//
//   - [TokenCodec]: issues and validates signed bearer tokens
//   - [LoginService]: authenticates credentials and issues tokens
//   - [Authenticate], [Authorize]: echo middleware binding the above to HTTP
//   - [Gate]: ordered first-match-wins path authorization
//   - [HashPassword], [ComparePassword]: bcrypt password hashing utilities
//
// IMPORTANT: bearer tokens and Basic Auth credentials travel in cleartext
// headers. TLS must be used in production to protect them in transit.
package sec

// Errors returned by the sec package. Handlers map these to HTTP statuses;
// anything more specific (which check failed, store error detail) is logged
// internally and never reaches the client.
const (
	// ErrInvalidCredentials is returned when the username is unknown or the
	// password does not match. The two cases are deliberately
	// indistinguishable to prevent username enumeration.
	ErrInvalidCredentials Error = "invalid username or password"
	// ErrAccountDisabled is returned when the credentials are correct but the
	// account has been disabled.
	ErrAccountDisabled Error = "account disabled"
	// ErrStoreUnavailable is returned when the credential store cannot be
	// reached. Distinct from ErrInvalidCredentials so callers answer 503
	// instead of 401.
	ErrStoreUnavailable Error = "credential store unavailable"
	// ErrTokenMalformed is returned when a token cannot be parsed into claims.
	ErrTokenMalformed Error = "malformed token"
	// ErrBadSignature is returned when the token signature does not verify.
	ErrBadSignature Error = "bad token signature"
	// ErrTokenExpired is returned when the token expiry has passed.
	ErrTokenExpired Error = "token expired"
)

// Error is an error type returned by the sec package.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }
