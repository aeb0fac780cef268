package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core/assignment"
	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/core/file"
	"github.com/autograder/repository/core/submission"
)

type fileRepository struct {
	db *DB
}

var _ file.Repository = (*fileRepository)(nil)

func NewFileRepository(db *DB) file.Repository {
	return &fileRepository{db: db}
}

// join walks file -> submission -> assignment. Callers hold the lock.
func (repo *fileRepository) join(id uuid.UUID) (*file.File, *submission.Submission, *assignment.Assignment, error) {
	f, ok := repo.db.files[id]
	if !ok {
		return nil, nil, nil, file.ErrNotFound
	}
	s, ok := repo.db.submissions[f.SubmissionID]
	if !ok {
		return nil, nil, nil, file.ErrNotFound
	}
	a, ok := repo.db.assignments[s.AssignmentID]
	if !ok {
		return nil, nil, nil, file.ErrNotFound
	}
	return f, s, a, nil
}

func (repo *fileRepository) CreateFile(_ context.Context, f file.File) (file.File, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.submissions[f.SubmissionID]; !ok {
		return file.File{}, errors.Errorf("inserting file: submission %s does not exist", f.SubmissionID)
	}
	f.EncodedText = cloneBytes(f.EncodedText)
	f.EncodedOutput = cloneBytes(f.EncodedOutput)
	repo.db.files[f.ID] = &f
	return f, nil
}

func (repo *fileRepository) GetFileByID(_ context.Context, id uuid.UUID) (file.File, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if f, ok := repo.db.files[id]; ok {
		return *f, nil
	}
	return file.File{}, file.ErrNotFound
}

func (repo *fileRepository) GetLatestFileBySubmission(_ context.Context, submissionID uuid.UUID) (file.File, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var latest *file.File
	for _, f := range repo.db.files {
		if f.SubmissionID == submissionID && (latest == nil || f.Updated.After(latest.Updated)) {
			latest = f
		}
	}
	if latest == nil {
		return file.File{}, file.ErrNotFound
	}
	return *latest, nil
}

func (repo *fileRepository) GetFileOwnership(_ context.Context, id uuid.UUID) (auth.OwnershipFacts, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, s, a, err := repo.join(id)
	if err != nil {
		return auth.OwnershipFacts{}, err
	}
	return auth.OwnershipFacts{SubmitterID: s.UserID, AssignmentOwnerID: a.UserID}, nil
}

func (repo *fileRepository) SetFileScheduled(_ context.Context, id uuid.UUID, scheduled bool, updated time.Time) (file.File, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	f, ok := repo.db.files[id]
	if !ok {
		return file.File{}, file.ErrNotFound
	}
	f.Scheduled = scheduled
	f.Updated = updated
	return *f, nil
}

func (repo *fileRepository) GetScheduleFile(_ context.Context, id uuid.UUID) (file.ScheduleFile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	f, s, a, err := repo.join(id)
	if err != nil {
		return file.ScheduleFile{}, err
	}
	return file.ScheduleFile{
		FileID:       f.ID,
		Extension:    s.Extension,
		AssignmentID: a.ID,
		Content:      cloneBytes(f.EncodedText),
		TestCase:     cloneBytes(a.EncodedInput),
	}, nil
}

func (repo *fileRepository) GetReferenceOutput(_ context.Context, id uuid.UUID) ([]byte, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, _, a, err := repo.join(id)
	if err != nil {
		return nil, err
	}
	return cloneBytes(a.EncodedOutput), nil
}

func (repo *fileRepository) SetFileOutput(_ context.Context, id uuid.UUID, output []byte, validated bool, updated time.Time) (file.File, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	f, ok := repo.db.files[id]
	if !ok {
		return file.File{}, file.ErrNotFound
	}
	f.EncodedOutput = cloneBytes(output)
	f.Validated = validated
	f.Updated = updated
	return *f, nil
}
