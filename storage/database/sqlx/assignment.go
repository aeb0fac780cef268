package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/assignment"
)

const assignmentColumns = `id, user_id, encoded_input, encoded_output, updated`

type assignmentRepository struct {
	exec core.DBExecutor
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor) *assignmentRepository {
	return &assignmentRepository{exec: exec}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	q := `INSERT INTO assignments (` + assignmentColumns + `)
		VALUES (:id, :user_id, :encoded_input, :encoded_output, :updated)`
	if _, err := repo.exec.NamedExecContext(ctx, q, a); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo assignmentRepository) GetAssignmentByID(ctx context.Context, id uuid.UUID) (assignment.Assignment, error) {
	var a assignment.Assignment
	q := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	if err := repo.exec.GetContext(ctx, &a, q, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment by ID")
	}
	return a, nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, id uuid.UUID, ua assignment.UpdateAssignment, updated time.Time) (assignment.Assignment, error) {
	var a assignment.Assignment
	q := `UPDATE assignments SET
			encoded_input = COALESCE($2, encoded_input),
			encoded_output = COALESCE($3, encoded_output),
			updated = $4
		WHERE id = $1
		RETURNING ` + assignmentColumns
	if err := repo.exec.GetContext(ctx, &a, q, id, nullBytes(ua.EncodedInput), nullBytes(ua.EncodedOutput), updated); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "updating assignment")
	}
	return a, nil
}
