package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/evaluation"
)

type dashboardApi struct {
	svc *evaluation.Service
}

// The dashboard is public: the evaluation API serves it without a token.
func registerDashboardAPI(g *echo.Group, svc *evaluation.Service) {
	api := dashboardApi{svc: svc}
	g.GET("/dashboard", api.summary)
}

func (api *dashboardApi) summary(ctx echo.Context) error {
	var filter evaluation.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to evaluation.Filter")
	}
	filter.Search = core.CleanString(filter.Search)
	filter.TeamID = core.CleanString(filter.TeamID)
	filter.Year = core.CleanString(filter.Year)

	sum, err := api.svc.Dashboard(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}
