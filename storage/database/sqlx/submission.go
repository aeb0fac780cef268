package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/submission"
)

const submissionColumns = `id, assignment_id, user_id, extension, created, update_count`

var newestFirst = core.DBOrdering{Field: "created"}

type submissionRepository struct {
	exec core.DBExecutor
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(exec core.DBExecutor) *submissionRepository {
	return &submissionRepository{exec: exec}
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	q := `INSERT INTO submissions (` + submissionColumns + `)
		VALUES (:id, :assignment_id, :user_id, :extension, :created, :update_count)`
	if _, err := repo.exec.NamedExecContext(ctx, q, s); err != nil {
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo submissionRepository) UpdateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	var updated submission.Submission
	q := `UPDATE submissions SET extension = $2, created = $3, update_count = $4
		WHERE id = $1
		RETURNING ` + submissionColumns
	if err := repo.exec.GetContext(ctx, &updated, q, s.ID, s.Extension, s.Created, s.UpdateCount); err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "updating submission")
	}
	return updated, nil
}

func (repo submissionRepository) GetSubmissionByUnique(ctx context.Context, assignmentID, userID uuid.UUID) (submission.Submission, error) {
	var s submission.Submission
	q := `SELECT ` + submissionColumns + ` FROM submissions
		WHERE assignment_id = $1 AND user_id = $2
		ORDER BY ` + newestFirst.String() + ` LIMIT 1`
	if err := repo.exec.GetContext(ctx, &s, q, assignmentID, userID); err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "finding submission")
	}
	return s, nil
}

func (repo submissionRepository) QueryAllSubmissions(ctx context.Context) ([]submission.Submission, error) {
	subs := make([]submission.Submission, 0)
	q := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY ` + newestFirst.String()
	if err := repo.exec.SelectContext(ctx, &subs, q); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return subs, nil
}

func (repo submissionRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]submission.Submission, error) {
	subs := make([]submission.Submission, 0)
	q := `SELECT ` + submissionColumns + ` FROM submissions
		WHERE assignment_id = $1
		ORDER BY ` + newestFirst.String()
	if err := repo.exec.SelectContext(ctx, &subs, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions by assignment")
	}
	return subs, nil
}
