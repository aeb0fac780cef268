package file

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// File is a piece of submitted code. EncodedOutput stays nil until the
// scheduler reports back; Validated is true only when it matches the
// assignment's reference output byte for byte.
type File struct {
	ID            uuid.UUID `json:"id"`
	SubmissionID  uuid.UUID `json:"submission_id"`
	Updated       time.Time `json:"updated"`
	EncodedText   []byte    `json:"encoded_text"`
	Scheduled     bool      `json:"scheduled"`
	Validated     bool      `json:"validated"`
	EncodedOutput []byte    `json:"encoded_output"`
}

// ScheduleTrigger flips the scheduled flag. FileID may be omitted; when set it must match the path.
type ScheduleTrigger struct {
	FileID    uuid.UUID `json:"id"`
	Scheduled *bool     `json:"scheduled" validate:"required"`
}

func (st ScheduleTrigger) Validate(validate *validator.Validate) error {
	return validate.Struct(st)
}

// ScheduleOutput is what the scheduler delivers once a run is over.
type ScheduleOutput struct {
	EncodedOutput []byte `json:"encoded_output" validate:"required"`
}

func (so ScheduleOutput) Validate(validate *validator.Validate) error {
	return validate.Struct(so)
}

// ScheduleFile is the payload handed to the scheduler.
type ScheduleFile struct {
	FileID       uuid.UUID `json:"file_id" db:"file_id"`
	Extension    string    `json:"extension" db:"extension"`
	AssignmentID uuid.UUID `json:"assignment_id" db:"assignment_id"`
	Content      []byte    `json:"content" db:"content"`
	TestCase     []byte    `json:"test_case" db:"test_case"`
}
