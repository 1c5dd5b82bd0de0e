package echoconsole

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/resource"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

var (
	errBadID          = echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	errUnknownKind    = echo.NewHTTPError(http.StatusNotFound, "unknown resource")
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "login required")
	errMalformedToken = echo.NewHTTPError(http.StatusBadGateway, "backend returned a malformed token")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Backend failures keep their status and message so that forms can show them inline.
// Debug mode only details server errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *apiclient.HTTPError:
			code = origErr.Status
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *session.DecodeError:
			code = errMalformedToken.Code
			message = errMalformedToken.Message
		default:
			switch origErr {
			case resource.ErrUnsupported:
				code = http.StatusMethodNotAllowed
				message = origErr.Error()
			case session.ErrStaleLogin:
				code = http.StatusConflict
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				if ctx.Echo().Debug {
					message = err.Error()
				}

				if claims := contextUser(ctx); claims != nil {
					logger.Error(msg, errors.Wrap(err, msg), *claims)
				} else {
					logger.Error(msg, errors.Wrap(err, msg))
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
