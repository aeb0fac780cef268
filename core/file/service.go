package file

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/auth"
)

var (
	ErrNotFound = core.NewNotFoundError("file")

	// ErrDispatchFailed is returned when the scheduler could not be reached
	// and the scheduled flag was reverted.
	ErrDispatchFailed = errors.New("scheduling failed")

	ErrSchedulerNotConfigured = core.NewValidationError(errors.New("no scheduler endpoint configured"))
)

type (
	Repository interface {
		CreateFile(ctx context.Context, f File) (File, error)
		GetFileByID(ctx context.Context, id uuid.UUID) (File, error)
		// GetLatestFileBySubmission returns the most recently updated file of a submission.
		GetLatestFileBySubmission(ctx context.Context, submissionID uuid.UUID) (File, error)
		// GetFileOwnership joins file -> submission -> assignment.
		GetFileOwnership(ctx context.Context, id uuid.UUID) (auth.OwnershipFacts, error)
		SetFileScheduled(ctx context.Context, id uuid.UUID, scheduled bool, updated time.Time) (File, error)
		GetScheduleFile(ctx context.Context, id uuid.UUID) (ScheduleFile, error)
		// GetReferenceOutput returns the encoded output of the file's assignment.
		GetReferenceOutput(ctx context.Context, id uuid.UUID) ([]byte, error)
		SetFileOutput(ctx context.Context, id uuid.UUID, output []byte, validated bool, updated time.Time) (File, error)
	}

	// Scheduler hands files over to the external execution service.
	Scheduler interface {
		Enabled() bool
		// Dispatch authenticates as p.
		Dispatch(ctx context.Context, p auth.Principal, sf ScheduleFile) error
	}

	Service struct {
		repo      Repository
		scheduler Scheduler
		logger    core.Logger
	}
)

func NewService(repo Repository, scheduler Scheduler, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(scheduler, "scheduler"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, scheduler: scheduler, logger: logger}
}

// authorize lets superusers through without a lookup; everyone else must be
// the assignment owner or the submitter. A failed ownership join always reads
// as ErrNotFound.
func (svc *Service) authorize(ctx context.Context, p auth.Principal, id uuid.UUID) (auth.Ownership, error) {
	if p.IsSuperuser {
		return auth.Viewer, nil
	}
	facts, err := svc.repo.GetFileOwnership(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return auth.Unauthorized, err
		}
		svc.logger.Warn("ownership lookup failed", err, map[string]interface{}{"file_id": id}, p)
		return auth.Unauthorized, errors.Wrap(ErrNotFound, err.Error())
	}
	own := auth.Resolve(p, facts)
	if !own.Allowed() {
		return own, core.ErrUnauthorized
	}
	return own, nil
}

// Create stores the code of a freshly upserted submission.
func (svc *Service) Create(ctx context.Context, submissionID uuid.UUID, text []byte) (File, error) {
	f, err := svc.repo.CreateFile(ctx, File{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		Updated:      core.Now(),
		EncodedText:  text,
	})
	return f, errors.Wrap(err, "creating file")
}

func (svc *Service) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (File, error) {
	if _, err := svc.authorize(ctx, p, id); err != nil {
		return File{}, err
	}
	return svc.repo.GetFileByID(ctx, id)
}

func (svc *Service) GetBySubmission(ctx context.Context, p auth.Principal, submissionID uuid.UUID) (File, error) {
	f, err := svc.repo.GetLatestFileBySubmission(ctx, submissionID)
	if err != nil {
		return File{}, err
	}
	if _, err = svc.authorize(ctx, p, f.ID); err != nil {
		return File{}, err
	}
	return f, nil
}

// Trigger persists the scheduled flag and, when it is set, dispatches the
// file to the scheduler. A failed dispatch reverts the flag.
func (svc *Service) Trigger(ctx context.Context, p auth.Principal, id uuid.UUID, st ScheduleTrigger) (File, error) {
	if st.FileID != uuid.Nil && st.FileID != id {
		return File{}, core.NewValidationError(
			errors.New("id mismatch"),
			core.FieldError{Field: "id", Error: "id does not match the requested file"},
		)
	}
	if _, err := svc.authorize(ctx, p, id); err != nil {
		return File{}, err
	}
	scheduled := st.Scheduled != nil && *st.Scheduled
	if scheduled && !svc.scheduler.Enabled() {
		return File{}, ErrSchedulerNotConfigured
	}

	f, err := svc.repo.SetFileScheduled(ctx, id, scheduled, core.Now())
	if err != nil || !scheduled {
		return f, err
	}

	// the dispatch and its compensation outlive a disconnected client
	ctx = context.WithoutCancel(ctx)

	sf, err := svc.repo.GetScheduleFile(ctx, id)
	if err != nil {
		return File{}, svc.revert(ctx, p, id, errors.Wrap(err, "getting schedule file"))
	}
	if err = svc.scheduler.Dispatch(ctx, p, sf); err != nil {
		return File{}, svc.revert(ctx, p, id, err)
	}
	return f, nil
}

func (svc *Service) revert(ctx context.Context, p auth.Principal, id uuid.UUID, cause error) error {
	svc.logger.Warn("dispatch failed, reverting scheduled flag", cause, map[string]interface{}{"file_id": id}, p)

	if _, err := svc.repo.SetFileScheduled(ctx, id, false, core.Now()); err != nil {
		svc.logger.Error("reverting scheduled flag", err, map[string]interface{}{"file_id": id}, p)
		return errors.Wrap(ErrNotFound, "reverting scheduled flag")
	}
	return errors.Wrap(ErrDispatchFailed, cause.Error())
}

// SetOutput stores what the scheduler produced and validates it against the
// assignment's reference output.
func (svc *Service) SetOutput(ctx context.Context, p auth.Principal, id uuid.UUID, so ScheduleOutput) (File, error) {
	if _, err := svc.authorize(ctx, p, id); err != nil {
		return File{}, err
	}

	ref, err := svc.repo.GetReferenceOutput(ctx, id)
	if err != nil {
		return File{}, err
	}
	validated := Validate(so.EncodedOutput, ref)
	if !validated {
		svc.logger.Debug("output rejected", outputDiff(ref, so.EncodedOutput), map[string]interface{}{"file_id": id}, p)
	}

	f, err := svc.repo.SetFileOutput(ctx, id, so.EncodedOutput, validated, core.Now())
	return f, errors.Wrap(err, "setting file output")
}

// Validate reports whether a produced output matches the reference byte for byte.
// A missing output never validates.
func Validate(output, reference []byte) bool {
	return output != nil && bytes.Equal(output, reference)
}

func outputDiff(reference, output []byte) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(reference)),
		B:        difflib.SplitLines(string(output)),
		FromFile: "reference",
		ToFile:   "output",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}
