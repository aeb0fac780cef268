package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

// query returns the rows matching keep, newest first. Callers hold the lock.
func (repo *submissionRepository) query(keep func(s *submission.Submission) bool) []submission.Submission {
	subs := make([]submission.Submission, 0)
	for _, s := range repo.db.submissions {
		if keep == nil || keep(s) {
			subs = append(subs, *s)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Created.After(subs[j].Created) })
	return subs
}

func (repo *submissionRepository) CreateSubmission(_ context.Context, s submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[s.AssignmentID]; !ok {
		return submission.Submission{}, errors.Errorf("inserting submission: assignment %s does not exist", s.AssignmentID)
	}
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *submissionRepository) UpdateSubmission(_ context.Context, s submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.submissions[s.ID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	orig.Extension = s.Extension
	orig.Created = s.Created
	orig.UpdateCount = s.UpdateCount
	return *orig, nil
}

func (repo *submissionRepository) GetSubmissionByUnique(_ context.Context, assignmentID, userID uuid.UUID) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := repo.query(func(s *submission.Submission) bool {
		return s.AssignmentID == assignmentID && s.UserID == userID
	})
	if len(subs) == 0 {
		return submission.Submission{}, submission.ErrNotFound
	}
	return subs[0], nil
}

func (repo *submissionRepository) QueryAllSubmissions(_ context.Context) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(nil), nil
}

func (repo *submissionRepository) QuerySubmissionsByAssignment(_ context.Context, assignmentID uuid.UUID) ([]submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(s *submission.Submission) bool { return s.AssignmentID == assignmentID }), nil
}
