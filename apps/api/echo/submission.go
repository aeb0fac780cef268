package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/file"
	"github.com/autograder/repository/core/submission"
)

type (
	submissionAPI struct {
		conf     *core.Config
		logger   core.Logger
		validate *validator.Validate
		svc      *submission.Service
		fileSvc  *file.Service
	}

	newSubmissionRequest struct {
		submission.NewSubmission
		EncodedText []byte `json:"encoded_text" validate:"required"`
	}

	// submissionResponse is a submission together with the file created along with it.
	submissionResponse struct {
		ID           uuid.UUID `json:"id"`
		AssignmentID uuid.UUID `json:"assignment_id"`
		UserID       uuid.UUID `json:"user_id"`
		Extension    string    `json:"extension"`
		Created      time.Time `json:"created"`
		UpdateCount  int       `json:"update_count"`
		FileID       uuid.UUID `json:"file_id"`
	}
)

func registerSubmissionAPI(g *echo.Group, conf *core.Config, logger core.Logger, validate *validator.Validate, svc *submission.Service, fileSvc *file.Service) {
	api := submissionAPI{conf: conf, logger: logger, validate: validate, svc: svc, fileSvc: fileSvc}

	g.POST("", api.create)
	g.GET("", api.list)
}

func (api *submissionAPI) create(ctx echo.Context) error {
	var data newSubmissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding data")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	p := mustGetContextPrincipal(ctx)
	rctx := ctx.Request().Context()

	s, err := api.svc.Submit(rctx, p, data.NewSubmission)
	if err != nil {
		return api.badRequest(ctx, errors.Wrap(err, "submitting"))
	}
	f, err := api.fileSvc.Create(rctx, s.ID, data.EncodedText)
	if err != nil {
		return api.badRequest(ctx, errors.Wrap(err, "creating file"))
	}

	ctx.Response().Header().Set(echo.HeaderLocation, location(api.conf, "/files/", f.ID))
	return ctx.JSON(http.StatusCreated, submissionResponse{
		ID:           s.ID,
		AssignmentID: s.AssignmentID,
		UserID:       s.UserID,
		Extension:    s.Extension,
		Created:      s.Created,
		UpdateCount:  s.UpdateCount,
		FileID:       f.ID,
	})
}

// badRequest reports any failure of the submit-then-create-file chain as a 400.
func (api *submissionAPI) badRequest(ctx echo.Context, err error) error {
	if cause := errors.Cause(err); cause != core.ErrUnauthorized && !core.IsNotFound(cause) {
		api.logger.Warn("submission failed", err, mustGetContextPrincipal(ctx))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "submission failed").SetInternal(err)
}

// list routes on the query: both ids select one submission, assignment_id alone
// lists that assignment's submissions, anything else lists them all.
func (api *submissionAPI) list(ctx echo.Context) error {
	assignmentID, hasAssignment, err := queryID(ctx, "assignment_id")
	if err != nil {
		return err
	}
	userID, hasUser, err := queryID(ctx, "user_id")
	if err != nil {
		return err
	}

	p := mustGetContextPrincipal(ctx)
	rctx := ctx.Request().Context()

	switch {
	case hasAssignment && hasUser:
		s, err := api.svc.Get(rctx, p, assignmentID, userID)
		if err != nil {
			return errors.Wrap(err, "getting submission")
		}
		return ctx.JSON(http.StatusOK, s)
	case hasAssignment:
		subs, err := api.svc.QueryByAssignment(rctx, p, assignmentID)
		if err != nil {
			return errors.Wrap(err, "querying submissions by assignment")
		}
		return listJSON(ctx, subs)
	default:
		subs, err := api.svc.QueryAll(rctx, p)
		if err != nil {
			return errors.Wrap(err, "querying submissions")
		}
		return listJSON(ctx, subs)
	}
}

func listJSON(ctx echo.Context, subs []submission.Submission) error {
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}
