package echoapi

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
)

func parseUUID(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, core.NewValidationError(
			errors.Wrapf(err, "parsing %s", name),
			core.FieldError{Field: name, Error: fmt.Sprintf("%s must be a valid UUID", name)},
		)
	}
	return id, nil
}

// pathID parses the :id path parameter.
func pathID(ctx echo.Context) (uuid.UUID, error) {
	return parseUUID("id", ctx.Param("id"))
}

// queryID parses an optional UUID query parameter. ok is false when the parameter is absent.
func queryID(ctx echo.Context, name string) (id uuid.UUID, ok bool, err error) {
	value := ctx.QueryParam(name)
	if value == "" {
		return uuid.Nil, false, nil
	}
	id, err = parseUUID(name, value)
	return id, err == nil, err
}

// location builds the Location header of a created resource.
func location(conf *core.Config, path string, id uuid.UUID) string {
	return conf.Address() + path + id.String()
}
