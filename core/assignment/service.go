package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/auth"
)

var ErrNotFound = core.NewNotFoundError("assignment")

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id uuid.UUID) (Assignment, error)
		// UpdateAssignment only writes the non-nil fields of ua.
		UpdateAssignment(ctx context.Context, id uuid.UUID, ua UpdateAssignment, updated time.Time) (Assignment, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) Create(ctx context.Context, p auth.Principal, na NewAssignment) (Assignment, error) {
	if p.IsStudent {
		return Assignment{}, core.ErrUnauthorized
	}
	a := Assignment{
		ID:            na.AssignmentID,
		UserID:        na.UserID,
		EncodedInput:  na.EncodedInput,
		EncodedOutput: na.EncodedOutput,
		Updated:       core.Now(),
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.UserID == uuid.Nil {
		a.UserID = p.UserID
	}
	return svc.repo.CreateAssignment(ctx, a)
}

// Authorize returns the assignment if p owns it or is a superuser.
// A failed lookup always reads as ErrNotFound.
func (svc *Service) Authorize(ctx context.Context, p auth.Principal, id uuid.UUID) (Assignment, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Assignment{}, err
		}
		svc.logger.Warn("assignment lookup failed", err, map[string]interface{}{"assignment_id": id}, p)
		return Assignment{}, errors.Wrap(ErrNotFound, err.Error())
	}
	if !p.Is(a.UserID) {
		return Assignment{}, core.ErrUnauthorized
	}
	return a, nil
}

func (svc *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (Assignment, error) {
	return svc.Authorize(ctx, p, id)
}

func (svc *Service) Update(ctx context.Context, p auth.Principal, id uuid.UUID, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.Authorize(ctx, p, id)
	if err != nil {
		return Assignment{}, err
	}
	if ua.IsEmpty() {
		return a, nil
	}
	a, err = svc.repo.UpdateAssignment(ctx, id, ua, core.Now())
	return a, errors.Wrap(err, "updating assignment")
}
