package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
)

type authApi struct {
	conf     *core.Config
	gate     *session.Gate
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, authed echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		conf:     deps.Conf,
		gate:     deps.Gate,
		validate: deps.Validate,
	}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.GET("/me", api.me, authed)
}

// MeResponse describes the logged-in user.
type MeResponse struct {
	User      user.User     `json:"user"`
	RoleLabel string        `json:"roleLabel"`
	EvalType  user.EvalType `json:"evalType"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
}

func newMeResponse(sess session.Session) MeResponse {
	res := MeResponse{
		User:      sess.User,
		RoleLabel: sess.User.Role.Label(),
		EvalType:  user.EvalTypeFor(sess.User),
	}
	if !sess.ExpiresAt.IsZero() {
		exp := sess.ExpiresAt.UTC()
		res.ExpiresAt = &exp
	}
	return res
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data session.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// a new login replaces the current session
	if old := getContextSession(ctx); old.ID != "" {
		if err := api.gate.Logout(ctx.Request().Context(), old.ID); err != nil {
			return errors.Wrap(err, "logging out")
		}
	}

	sess, err := api.gate.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	setSessionCookie(ctx, api.conf, sess)
	return ctx.JSON(http.StatusOK, newMeResponse(sess))
}

func (api *authApi) logout(ctx echo.Context) error {
	if err := api.gate.Logout(ctx.Request().Context(), getContextSession(ctx).ID); err != nil {
		return errors.Wrap(err, "logging out")
	}
	clearSessionCookie(ctx, api.conf)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newMeResponse(getContextSession(ctx)))
}
