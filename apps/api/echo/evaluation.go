package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core/evaluation"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
)

type evaluationApi struct {
	svc *evaluation.Service
}

func registerEvaluationAPI(g *echo.Group, svc *evaluation.Service) {
	api := evaluationApi{svc: svc}

	eg := g.Group("/evaluation", requireRoles(user.EvaluatedRoles...))
	eg.GET("", api.form)
	eg.POST("", api.submit)

	tg := g.Group("/team", requireRoles(user.ReviewerRoles...))
	tg.GET("", api.team)
	tg.GET("/:id", api.memberForm)
	tg.POST("/:id", api.review)
}

type (
	// ScoresRequest maps criterion IDs to scores. Missing criteria are stored as 0.
	ScoresRequest struct {
		Tier   string                      `json:"tier"`
		Scores map[string]evaluation.Score `json:"scores"`
	}

	TeamResponse struct {
		Period  evaluation.Period        `json:"period"`
		Members []evaluation.MemberStatus `json:"members"`
	}
)

// reviewTier reads the tier a reviewer scores at: team leader by default, principal on request.
func reviewTier(sess session.Session, tier string) (evaluation.Tier, error) {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "", "tl", "teamleader", strings.ToLower(string(evaluation.TierTeamLeader)):
		return evaluation.TierTeamLeader, nil
	case "principal", strings.ToLower(string(evaluation.TierPrincipal)):
		if !sess.HasRole(user.RolePrincipal) {
			return "", errHttpForbidden
		}
		return evaluation.TierPrincipal, nil
	default:
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid tier")
	}
}

// Handlers

func (api *evaluationApi) form(ctx echo.Context) error {
	form, err := api.svc.Form(ctx.Request().Context(), getContextSession(ctx).User)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, form)
}

func (api *evaluationApi) submit(ctx echo.Context) error {
	var data ScoresRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoresRequest")
	}
	res, err := api.svc.SubmitSelf(ctx.Request().Context(), getContextSession(ctx).User, data.Scores)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *evaluationApi) team(ctx echo.Context) error {
	p, members, err := api.svc.Team(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TeamResponse{Period: p, Members: members})
}

func (api *evaluationApi) memberForm(ctx echo.Context) error {
	tier, err := reviewTier(getContextSession(ctx), ctx.QueryParam("tier"))
	if err != nil {
		return err
	}
	form, err := api.svc.MemberForm(ctx.Request().Context(), ctx.Param("id"), tier)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, form)
}

func (api *evaluationApi) review(ctx echo.Context) error {
	var data ScoresRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoresRequest")
	}
	sess := getContextSession(ctx)
	tier, err := reviewTier(sess, data.Tier)
	if err != nil {
		return err
	}
	res, err := api.svc.SubmitReview(ctx.Request().Context(), sess.User, ctx.Param("id"), tier, data.Scores)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
