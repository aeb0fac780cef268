package assignment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Assignment struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	EncodedInput  []byte    `json:"encoded_input" db:"encoded_input"`
	EncodedOutput []byte    `json:"encoded_output" db:"encoded_output"`
	Updated       time.Time `json:"updated" db:"updated"`
}

// NewAssignment is the payload of a create request.
// A zero AssignmentID is replaced by a generated one, a zero UserID by the caller's id.
type NewAssignment struct {
	AssignmentID  uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	EncodedInput  []byte    `json:"encoded_input" validate:"required"`
	EncodedOutput []byte    `json:"encoded_output" validate:"required"`
}

func (na NewAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

// UpdateAssignment is a partial update: nil fields are left untouched.
type UpdateAssignment struct {
	EncodedInput  []byte `json:"encoded_input,omitempty"`
	EncodedOutput []byte `json:"encoded_output,omitempty"`
}

func (ua UpdateAssignment) IsEmpty() bool {
	return ua.EncodedInput == nil && ua.EncodedOutput == nil
}
