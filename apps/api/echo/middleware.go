package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware lets faculty members and admins through.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsAdmin || claims.IsFaculty {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// sessionMiddleware builds the core.Session of the authenticated caller.
// Admins are always elevated; other users need a valid elevation token header.
func (a *authenticator) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		ctx.Set(contextSessionKey, core.Session{
			UserID:   claims.Subject,
			Username: claims.Username,
			Email:    claims.Email,
			Roles:    claims.Roles,
			IsAdmin:  claims.IsAdmin,
			Elevated: claims.IsAdmin || a.elevated(ctx.Request().Header.Get(elevationHeader), claims.Subject),
		})
		return next(ctx)
	}
}
