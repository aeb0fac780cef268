package submission

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Submission is unique per (AssignmentID, UserID). UpdateCount counts resubmissions.
type Submission struct {
	ID           uuid.UUID `json:"id" db:"id"`
	AssignmentID uuid.UUID `json:"assignment_id" db:"assignment_id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Extension    string    `json:"extension" db:"extension"`
	Created      time.Time `json:"created" db:"created"`
	UpdateCount  int       `json:"update_count" db:"update_count"`
}

type NewSubmission struct {
	AssignmentID uuid.UUID `json:"assignment_id" validate:"required"`
	UserID       uuid.UUID `json:"user_id" validate:"required"`
	Extension    string    `json:"extension" validate:"required,extension"`
}

func (ns NewSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}
