package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/autograder/repository/core/auth"
)

const contextPrincipalKey = "principal"

// authMiddleware rejects requests without a valid bearer token before any handler runs.
func authMiddleware(authn *auth.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := authn.Authenticate(ctx.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error()).SetInternal(err)
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

func getContextPrincipal(ctx echo.Context) (auth.Principal, bool) {
	p, ok := ctx.Get(contextPrincipalKey).(auth.Principal)
	return p, ok
}

// mustGetContextPrincipal yields the zero Principal on routes without authMiddleware.
func mustGetContextPrincipal(ctx echo.Context) auth.Principal {
	p, _ := getContextPrincipal(ctx)
	return p
}
