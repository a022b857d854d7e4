package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
)

const (
	sessionCookie     = "sid"
	contextSessionKey = "session"
)

// sessionMiddleware restores the session named by the sid cookie into the context.
// The session's token is added to the request context for calls to the evaluation API.
func sessionMiddleware(gate *session.Gate, conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var id string
			if c, err := ctx.Cookie(sessionCookie); err == nil {
				id = c.Value
			}

			req := ctx.Request()
			sess, state, err := gate.Restore(req.Context(), id)
			if err != nil {
				return errors.Wrap(err, "restoring session")
			}
			if state == session.Expired {
				clearSessionCookie(ctx, conf)
			}

			ctx.Set(contextSessionKey, sess)
			if sess.IsAuthenticated() {
				ctx.SetRequest(req.WithContext(core.ContextWithToken(req.Context(), sess.Token)))
			}
			return next(ctx)
		}
	}
}

// requireRoles lets through sessions holding one of roles, or any authenticated session when no role is given.
func requireRoles(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := getContextSession(ctx).Authorize(roles...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) session.Session {
	sess, _ := ctx.Get(contextSessionKey).(session.Session)
	return sess
}

func setSessionCookie(ctx echo.Context, conf *core.Config, sess session.Session) {
	exp := sess.ExpiresAt
	if exp.IsZero() {
		exp = time.Now().Add(conf.Server.SessionTTL)
	}
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   conf.Server.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   conf.Server.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
