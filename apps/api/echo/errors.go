package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/session"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, session.ErrUnauthenticated.Error())
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, session.ErrForbidden.Error())
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(deps ServerDeps, signalShutdown func()) echo.HTTPErrorHandler {
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
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(deps.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
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
		case *core.AuthError:
			// the API no longer accepts the session's token
			if sess := getContextSession(ctx); sess.IsAuthenticated() {
				if lErr := deps.Gate.Logout(ctx.Request().Context(), sess.ID); lErr != nil {
					deps.Logger.Error("dropping rejected session", lErr, sess.User)
				}
				clearSessionCookie(ctx, deps.Conf)
			}
			code = http.StatusUnauthorized
			message = origErr.Message
		case *core.NotFoundError:
			code = http.StatusNotFound
			message = origErr.Error()
		case *core.RemoteError:
			code = http.StatusBadGateway
			message = origErr.Message
			deps.Logger.Warn(origErr.Error(), getContextSession(ctx).User)
		default:
			switch origErr {
			case session.ErrUnauthenticated:
				code, message = errUnauthorized.Code, errUnauthorized.Message
			case session.ErrForbidden:
				code, message = errHttpForbidden.Code, errHttpForbidden.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				deps.Logger.Error(msg, errors.Wrap(err, msg), getContextSession(ctx).User)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
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
