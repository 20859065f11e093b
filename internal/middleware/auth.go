package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/tasktracker/internal/domain"
)

// currentUserKey is the echo context key holding the authenticated user.
const currentUserKey = "current_user"

type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, token string) (domain.User, error)
}

// RequireAuth extracts the bearer token from the Authorization header and
// resolves the caller before the handler runs. Failures are returned as
// domain errors for the HTTP error handler to map.
func RequireAuth(resolver UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.Unauthenticated("not authenticated")
			}
			user, err := resolver.ResolveCurrentUser(c.Request().Context(), token)
			if err != nil {
				return err
			}
			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

// BearerToken parses "Bearer <token>". The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c echo.Context) (domain.User, bool) {
	user, ok := c.Get(currentUserKey).(domain.User)
	return user, ok
}
