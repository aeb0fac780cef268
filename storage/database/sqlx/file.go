package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/core/file"
)

const fileColumns = `id, submission_id, updated, encoded_text, scheduled, validated, encoded_output`

// fileRow maps the nullable encoded_output column.
type fileRow struct {
	ID            uuid.UUID  `db:"id"`
	SubmissionID  uuid.UUID  `db:"submission_id"`
	Updated       time.Time  `db:"updated"`
	EncodedText   []byte     `db:"encoded_text"`
	Scheduled     bool       `db:"scheduled"`
	Validated     bool       `db:"validated"`
	EncodedOutput null.Bytes `db:"encoded_output"`
}

func (r fileRow) unwrap() file.File {
	f := file.File{
		ID:           r.ID,
		SubmissionID: r.SubmissionID,
		Updated:      r.Updated.UTC(),
		EncodedText:  r.EncodedText,
		Scheduled:    r.Scheduled,
		Validated:    r.Validated,
	}
	if r.EncodedOutput.Valid {
		f.EncodedOutput = r.EncodedOutput.Bytes
		if f.EncodedOutput == nil {
			f.EncodedOutput = []byte{}
		}
	}
	return f
}

type fileRepository struct {
	exec core.DBExecutor
}

var _ file.Repository = (*fileRepository)(nil) // interface compliance check

func NewFileRepository(exec core.DBExecutor) *fileRepository {
	return &fileRepository{exec: exec}
}

func (repo fileRepository) getFile(ctx context.Context, msg, q string, args ...interface{}) (file.File, error) {
	var row fileRow
	if err := repo.exec.GetContext(ctx, &row, q, args...); err != nil {
		return file.File{}, trapNoRowsErr(err, file.ErrNotFound, msg)
	}
	return row.unwrap(), nil
}

func (repo fileRepository) CreateFile(ctx context.Context, f file.File) (file.File, error) {
	q := `INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + fileColumns
	return repo.getFile(ctx, "inserting file", q,
		f.ID, f.SubmissionID, f.Updated, f.EncodedText, f.Scheduled, f.Validated, nullBytes(f.EncodedOutput))
}

func (repo fileRepository) GetFileByID(ctx context.Context, id uuid.UUID) (file.File, error) {
	q := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return repo.getFile(ctx, "finding file by ID", q, id)
}

func (repo fileRepository) GetLatestFileBySubmission(ctx context.Context, submissionID uuid.UUID) (file.File, error) {
	q := `SELECT ` + fileColumns + ` FROM files
		WHERE submission_id = $1
		ORDER BY updated DESC LIMIT 1`
	return repo.getFile(ctx, "finding latest file by submission", q, submissionID)
}

func (repo fileRepository) GetFileOwnership(ctx context.Context, id uuid.UUID) (auth.OwnershipFacts, error) {
	var facts auth.OwnershipFacts
	q := `SELECT s.user_id AS submitter_id, a.user_id AS assignment_owner_id
		FROM files f
		JOIN submissions s ON s.id = f.submission_id
		JOIN assignments a ON a.id = s.assignment_id
		WHERE f.id = $1`
	if err := repo.exec.GetContext(ctx, &facts, q, id); err != nil {
		return auth.OwnershipFacts{}, trapNoRowsErr(err, file.ErrNotFound, "finding file ownership")
	}
	return facts, nil
}

func (repo fileRepository) SetFileScheduled(ctx context.Context, id uuid.UUID, scheduled bool, updated time.Time) (file.File, error) {
	q := `UPDATE files SET scheduled = $2, updated = $3
		WHERE id = $1
		RETURNING ` + fileColumns
	return repo.getFile(ctx, "updating file scheduled flag", q, id, scheduled, updated)
}

func (repo fileRepository) GetScheduleFile(ctx context.Context, id uuid.UUID) (file.ScheduleFile, error) {
	var sf file.ScheduleFile
	q := `SELECT f.id AS file_id, s.extension, s.assignment_id, f.encoded_text AS content, a.encoded_input AS test_case
		FROM files f
		JOIN submissions s ON s.id = f.submission_id
		JOIN assignments a ON a.id = s.assignment_id
		WHERE f.id = $1`
	if err := repo.exec.GetContext(ctx, &sf, q, id); err != nil {
		return file.ScheduleFile{}, trapNoRowsErr(err, file.ErrNotFound, "finding schedule file")
	}
	return sf, nil
}

func (repo fileRepository) GetReferenceOutput(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var out []byte
	q := `SELECT a.encoded_output
		FROM files f
		JOIN submissions s ON s.id = f.submission_id
		JOIN assignments a ON a.id = s.assignment_id
		WHERE f.id = $1`
	if err := repo.exec.GetContext(ctx, &out, q, id); err != nil {
		return nil, trapNoRowsErr(err, file.ErrNotFound, "finding reference output")
	}
	return out, nil
}

func (repo fileRepository) SetFileOutput(ctx context.Context, id uuid.UUID, output []byte, validated bool, updated time.Time) (file.File, error) {
	q := `UPDATE files SET encoded_output = $2, validated = $3, updated = $4
		WHERE id = $1
		RETURNING ` + fileColumns
	return repo.getFile(ctx, "updating file output", q, id, nullBytes(output), validated, updated)
}
