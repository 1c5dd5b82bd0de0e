package echoconsole

import (
	"html/template"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/routes"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.AppName}} - {{.Title}}</title></head>
<body>
  <h1>{{.AppName}}</h1>
  {{if .User}}<p>Logged in as {{.User.DisplayName}}. <a href="{{.Landing}}">Continue</a></p>{{end}}
  <form method="post" action="{{.Action}}">
    <label>Email <input type="email" name="email" required></label>
    <label>Password <input type="password" name="password" required></label>
    <button type="submit">Login</button>
  </form>
</body>
</html>
`))

type authApi struct {
	appName  string
	svc      session.Service
	validate *validator.Validate
}

func registerAuth(app *echo.Echo, views *echo.Group, deps ServerDeps) {
	api := authApi{
		appName:  deps.Conf.AppName,
		svc:      deps.Session,
		validate: deps.Validate,
	}

	views.GET(routes.RootPath, api.loginPage)
	views.GET(routes.LoginPath, api.loginPage)
	views.POST(routes.LoginPath, api.login)

	// reachable whatever the session state
	app.GET("/session", api.state)
	app.POST("/logout", api.logout)
}

// Handlers

func (api *authApi) loginPage(ctx echo.Context) error {
	data := struct {
		AppName, Title, Action, Landing string
		User                            *session.UserClaims
	}{
		AppName: api.appName,
		Title:   contextRoute(ctx).Title,
		Action:  routes.LoginPath,
		Landing: routes.LandingPath,
		User:    contextUser(ctx),
	}
	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)
	return loginPage.Execute(ctx.Response(), data)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	_, err := api.svc.Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		var herr *apiclient.HTTPError
		if errors.As(err, &herr) {
			return echo.NewHTTPError(http.StatusBadRequest, herr.Message)
		}
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, routes.LandingPath)
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := api.svc.Logout(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.Redirect(http.StatusSeeOther, routes.LoginPath)
}

func (api *authApi) state(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.State())
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Validate checks a trimmed copy: the credentials are sent as typed.
func (lr LoginRequest) Validate(validate *validator.Validate) error {
	clean := lr
	clean.Email = core.CleanString(lr.Email)
	return validate.Struct(clean)
}
