package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/assignment"
)

type assignmentAPI struct {
	conf     *core.Config
	validate *validator.Validate
	svc      *assignment.Service
}

func registerAssignmentAPI(g *echo.Group, conf *core.Config, validate *validator.Validate, svc *assignment.Service) {
	api := assignmentAPI{conf: conf, validate: validate, svc: svc}

	g.POST("", api.create)
	g.GET("/:id", api.retrieve)
	g.PATCH("/:id", api.update)
}

func (api *assignmentAPI) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding data")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), mustGetContextPrincipal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	ctx.Response().Header().Set(echo.HeaderLocation, location(api.conf, "/assignments/", a.ID))
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentAPI) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	a, err := api.svc.Get(ctx.Request().Context(), mustGetContextPrincipal(ctx), id)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentAPI) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data assignment.UpdateAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding data")
	}

	a, err := api.svc.Update(ctx.Request().Context(), mustGetContextPrincipal(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}
