package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[a.ID]; ok {
		return assignment.Assignment{}, errors.Errorf("inserting assignment: duplicate key %s", a.ID)
	}
	a.EncodedInput = cloneBytes(a.EncodedInput)
	a.EncodedOutput = cloneBytes(a.EncodedOutput)
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignmentByID(_ context.Context, id uuid.UUID) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, id uuid.UUID, ua assignment.UpdateAssignment, updated time.Time) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	a, ok := repo.db.assignments[id]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	if ua.EncodedInput != nil {
		a.EncodedInput = cloneBytes(ua.EncodedInput)
	}
	if ua.EncodedOutput != nil {
		a.EncodedOutput = cloneBytes(ua.EncodedOutput)
	}
	a.Updated = updated
	return *a, nil
}
