package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/user"
	xlsxsvc "github.com/trezcool/danhgia/services/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type userApi struct {
	svc *user.Service
}

func registerUserAPI(g *echo.Group, admin echo.MiddlewareFunc, svc *user.Service) {
	api := userApi{svc: svc}

	ug := g.Group("/users", admin)
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.POST("/import", api.importUsers)
	ug.GET("/export", api.export)
	ug.GET("/template", api.template)
	ug.PUT("/:id", api.update)
	ug.DELETE("/:id", api.destroy)
}

type ImportResponse struct {
	Success string `json:"success"`
	Count   int    `json:"count"`
}

// Handlers

func (api *userApi) query(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	ordering.SortUsers(users)
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := api.svc.Create(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "User created."})
}

func (api *userApi) update(ctx echo.Context) error {
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	data.ID = ctx.Param("id")
	if err := api.svc.Update(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "User updated."})
}

func (api *userApi) destroy(ctx echo.Context) error {
	// Say No to Suicide! ctxUser cannot delete themselves
	if ctx.Param("id") == getContextSession(ctx).User.ID {
		return errHttpForbidden
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) importUsers(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "an .xlsx file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	users, err := xlsxsvc.ReadUsers(f)
	if err != nil {
		return err
	}
	if err = api.svc.Import(ctx.Request().Context(), users); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ImportResponse{Success: "Users imported.", Count: len(users)})
}

func (api *userApi) export(ctx echo.Context) error {
	users, err := api.svc.Query(ctx.Request().Context(), user.QueryFilter{})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err = xlsxsvc.WriteUsers(&buf, users); err != nil {
		return errors.Wrap(err, "writing users workbook")
	}
	return attachment(ctx, "users.xlsx", buf.Bytes())
}

func (api *userApi) template(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := xlsxsvc.WriteTemplate(&buf); err != nil {
		return errors.Wrap(err, "writing template workbook")
	}
	return attachment(ctx, "users_template.xlsx", buf.Bytes())
}

func attachment(ctx echo.Context, name string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return ctx.Blob(http.StatusOK, xlsxContentType, data)
}
