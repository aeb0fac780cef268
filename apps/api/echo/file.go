package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/file"
)

type fileAPI struct {
	validate *validator.Validate
	svc      *file.Service
}

func registerFileAPI(g *echo.Group, validate *validator.Validate, svc *file.Service) {
	api := fileAPI{validate: validate, svc: svc}

	g.GET("", api.bySubmission)
	g.GET("/:id", api.retrieve)
	g.PATCH("/:id", api.trigger)
	g.PATCH("/:id/output", api.output)
}

func (api *fileAPI) bySubmission(ctx echo.Context) error {
	submissionID, ok, err := queryID(ctx, "submission_id")
	if err != nil {
		return err
	}
	if !ok {
		return core.NewValidationError(
			errors.New("missing submission_id"),
			core.FieldError{Field: "submission_id", Error: "this field is required"},
		)
	}

	f, err := api.svc.GetBySubmission(ctx.Request().Context(), mustGetContextPrincipal(ctx), submissionID)
	if err != nil {
		return errors.Wrap(err, "getting file by submission")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *fileAPI) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.Get(ctx.Request().Context(), mustGetContextPrincipal(ctx), id)
	if err != nil {
		return errors.Wrap(err, "getting file")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *fileAPI) trigger(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data file.ScheduleTrigger
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding data")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Trigger(ctx.Request().Context(), mustGetContextPrincipal(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "triggering file")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *fileAPI) output(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data file.ScheduleOutput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding data")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.SetOutput(ctx.Request().Context(), mustGetContextPrincipal(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "setting file output")
	}
	return ctx.JSON(http.StatusOK, f)
}
