package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/roster"
)

type studentApi struct {
	svc      roster.ServiceInterface
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc roster.ServiceInterface, validate *validator.Validate) {
	api := studentApi{svc: svc, validate: validate}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, staffMiddleware)
	sg.POST("", api.load, adminMiddleware())
}

func (api *studentApi) query(ctx echo.Context) error {
	var filter roster.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to roster.Filter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	students, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) load(ctx echo.Context) error {
	var data LoadStudentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoadStudentsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	students, err := api.svc.Load(ctx.Request().Context(), data.Students)
	if err != nil {
		return errors.Wrap(err, "loading students")
	}
	return ctx.JSON(http.StatusCreated, students)
}

type LoadStudentsRequest struct {
	Students []roster.NewStudent `json:"students" validate:"required,min=1,dive"`
}

func (lr *LoadStudentsRequest) Validate(validate *validator.Validate) error {
	for i := range lr.Students {
		lr.Students[i].Clean()
	}
	return validate.Struct(lr)
}
