package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/assignment"
	"github.com/autograder/repository/core/auth"
)

var ErrNotFound = core.NewNotFoundError("submission")

type (
	Repository interface {
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		// UpdateSubmission writes Extension, UpdateCount and Created.
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmissionByUnique(ctx context.Context, assignmentID, userID uuid.UUID) (Submission, error)
		// QueryAllSubmissions and QuerySubmissionsByAssignment order by created, newest first.
		QueryAllSubmissions(ctx context.Context) ([]Submission, error)
		QuerySubmissionsByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]Submission, error)
	}

	// AssignmentAuthorizer checks that a principal may manage an assignment.
	AssignmentAuthorizer interface {
		Authorize(ctx context.Context, p auth.Principal, id uuid.UUID) (assignment.Assignment, error)
	}

	Service struct {
		repo        Repository
		assignments AssignmentAuthorizer
	}
)

func NewService(repo Repository, assignments AssignmentAuthorizer) *Service {
	return &Service{repo: repo, assignments: assignments}
}

// Get looks a submission up by its unique key. Only the submitter or a superuser may.
func (svc *Service) Get(ctx context.Context, p auth.Principal, assignmentID, userID uuid.UUID) (Submission, error) {
	if !p.Is(userID) {
		return Submission{}, core.ErrUnauthorized
	}
	return svc.repo.GetSubmissionByUnique(ctx, assignmentID, userID)
}

// Submit creates the submission or, when one exists for the same key, bumps
// its counter and creation time in place.
func (svc *Service) Submit(ctx context.Context, p auth.Principal, ns NewSubmission) (Submission, error) {
	now := core.Now()

	existing, err := svc.Get(ctx, p, ns.AssignmentID, ns.UserID)
	switch {
	case err == nil:
		if !now.After(existing.Created) {
			now = existing.Created.Add(time.Microsecond)
		}
		existing.UpdateCount++
		existing.Created = now
		existing.Extension = ns.Extension
		s, err := svc.repo.UpdateSubmission(ctx, existing)
		return s, errors.Wrap(err, "resubmitting")

	case errors.Cause(err) == ErrNotFound:
		s, err := svc.repo.CreateSubmission(ctx, Submission{
			ID:           uuid.New(),
			AssignmentID: ns.AssignmentID,
			UserID:       ns.UserID,
			Extension:    ns.Extension,
			Created:      now,
		})
		return s, errors.Wrap(err, "creating submission")

	default:
		return Submission{}, err
	}
}

// QueryAll is reserved to superusers.
func (svc *Service) QueryAll(ctx context.Context, p auth.Principal) ([]Submission, error) {
	if !p.IsSuperuser {
		return nil, core.ErrUnauthorized
	}
	return svc.repo.QueryAllSubmissions(ctx)
}

func (svc *Service) QueryByAssignment(ctx context.Context, p auth.Principal, assignmentID uuid.UUID) ([]Submission, error) {
	if _, err := svc.assignments.Authorize(ctx, p, assignmentID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissionsByAssignment(ctx, assignmentID)
}
