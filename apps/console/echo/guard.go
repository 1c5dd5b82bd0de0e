package echoconsole

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core/routes"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

const (
	contextUserKey  = "user"
	contextRouteKey = "route"

	loadingText = "loading..."
)

// viewGuard lets through the views the session may reach, as decided by routes.Guard.
func viewGuard(svc session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			state := svc.State()
			decision := routes.Guard{}.Resolve(state, ctx.Request().URL.Path)
			switch decision.Outcome {
			case routes.Loading:
				return ctx.String(http.StatusServiceUnavailable, loadingText)
			case routes.Redirect:
				return ctx.Redirect(http.StatusSeeOther, decision.To)
			case routes.NotFound:
				return echo.ErrNotFound
			}
			ctx.Set(contextRouteKey, decision.Route)
			ctx.Set(contextUserKey, state.User)
			return next(ctx)
		}
	}
}

// apiGuard only lets authenticated sessions through.
func apiGuard(svc session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			state := svc.State()
			if state.Loading {
				return ctx.String(http.StatusServiceUnavailable, loadingText)
			}
			if !state.Authenticated {
				return errUnauthorized
			}
			ctx.Set(contextUserKey, state.User)
			return next(ctx)
		}
	}
}

// contextUser returns the claims of the session a request was let through with, if any.
func contextUser(ctx echo.Context) *session.UserClaims {
	claims, _ := ctx.Get(contextUserKey).(*session.UserClaims)
	return claims
}

func contextRoute(ctx echo.Context) routes.Route {
	route, _ := ctx.Get(contextRouteKey).(routes.Route)
	return route
}
