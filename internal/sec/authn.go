package sec

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type identityKey struct{}

// BearerToken extracts the bearer token from the request's Authorization
// header. It reports false if the header is absent or carries another scheme.
func BearerToken(req *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := req.Header.Get(echo.HeaderAuthorization)
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):], true
	}
	return "", false
}

// AuthenticatedIdentity returns the identity attached to the context by the
// [Authenticate] middleware. ok is false for anonymous requests.
func AuthenticatedIdentity(ctx context.Context) (id Identity, ok bool) {
	id, ok = ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// WithIdentity attaches an authenticated identity to the context. The
// [Authenticate] middleware does this automatically; this function is
// provided as a convenience for testing.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Authenticate returns middleware that resolves the bearer identity for each
// request. A request with no token, or an invalid one, proceeds anonymously;
// rejecting it is the job of the [Authorize] middleware so that public paths
// stay reachable. Validation failures are logged at debug level only, the
// client never learns whether the signature or the expiry failed.
func Authenticate(codec *TokenCodec, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			raw, ok := BearerToken(req)
			if !ok {
				return next(c)
			}
			id, err := codec.Validate(raw, time.Now())
			if err != nil {
				logger.LogAttrs(req.Context(), slog.LevelDebug,
					"bearer token rejected",
					slog.Any("error", err),
				)
				return next(c)
			}
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

// Authorize returns middleware that enforces the gate's decision for each
// request path before any handler runs. Anonymous requests to protected
// paths get 401, authenticated requests lacking a required role get 403.
func Authorize(gate *Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var idp *Identity
			if id, ok := AuthenticatedIdentity(c.Request().Context()); ok {
				idp = &id
			}
			switch gate.Check(c.Request().URL.Path, idp) {
			case Allow:
				return next(c)
			case DenyForbidden:
				return echo.NewHTTPError(http.StatusForbidden)
			default:
				return echo.NewHTTPError(http.StatusUnauthorized)
			}
		}
	}
}
