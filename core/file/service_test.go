package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/assignment"
	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/core/file"
	"github.com/autograder/repository/core/submission"
	"github.com/autograder/repository/storage/database/inmem"
	"github.com/autograder/repository/tests"
)

type schedulerMock struct {
	enabled    bool
	err        error
	calls      int
	principal  auth.Principal
	dispatched file.ScheduleFile
}

func (m *schedulerMock) Enabled() bool { return m.enabled }

func (m *schedulerMock) Dispatch(_ context.Context, p auth.Principal, sf file.ScheduleFile) error {
	m.calls++
	m.principal = p
	m.dispatched = sf
	return m.err
}

// failingRevertRepo fails every attempt to clear the scheduled flag.
type failingRevertRepo struct {
	file.Repository
}

func (r failingRevertRepo) SetFileScheduled(ctx context.Context, id uuid.UUID, scheduled bool, updated time.Time) (file.File, error) {
	if !scheduled {
		return file.File{}, errors.New("connection reset")
	}
	return r.Repository.SetFileScheduled(ctx, id, scheduled, updated)
}

// brokenOwnershipRepo cannot resolve who owns a file.
type brokenOwnershipRepo struct {
	file.Repository
}

func (r brokenOwnershipRepo) GetFileOwnership(context.Context, uuid.UUID) (auth.OwnershipFacts, error) {
	return auth.OwnershipFacts{}, errors.New("relation \"submissions\" does not exist")
}

type fixture struct {
	teacher, student, stranger auth.Principal
	assignment                 assignment.Assignment
	submission                 submission.Submission
	file                       file.File

	repo      file.Repository
	scheduler *schedulerMock
}

func setup(t *testing.T) *fixture {
	db := inmemdb.Open()
	fx := &fixture{
		teacher:   testutil.Teacher(),
		student:   testutil.Student(),
		stranger:  testutil.Student(),
		repo:      inmemdb.NewFileRepository(db),
		scheduler: &schedulerMock{enabled: true},
	}
	fx.assignment = testutil.CreateAssignment(t, inmemdb.NewAssignmentRepository(db), fx.teacher.UserID, "2\n3", "5")
	fx.submission = testutil.CreateSubmission(t, inmemdb.NewSubmissionRepository(db), fx.assignment.ID, fx.student.UserID, "py")
	fx.file = testutil.CreateFile(t, fx.repo, fx.submission.ID, "print(sum(map(int, open(0))))")
	return fx
}

func (fx *fixture) service(repo ...file.Repository) *file.Service {
	r := fx.repo
	if len(repo) > 0 {
		r = repo[0]
	}
	return file.NewService(r, fx.scheduler, testutil.NewLogger())
}

func bPtr(b bool) *bool { return &b }

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		output    []byte
		reference []byte
		want      bool
	}{
		{name: "equal", output: []byte("5"), reference: []byte("5"), want: true},
		{name: "different", output: []byte("6"), reference: []byte("5")},
		{name: "trailing newline", output: []byte("5\n"), reference: []byte("5")},
		{name: "prefix", output: []byte("5"), reference: []byte("55")},
		{name: "missing output", output: nil, reference: []byte("5")},
		{name: "missing output, empty reference", output: nil, reference: []byte{}},
		{name: "empty both", output: []byte{}, reference: []byte{}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, file.Validate(tt.output, tt.reference))
		})
	}
}

func TestService_Get(t *testing.T) {
	fx := setup(t)
	svc := fx.service()
	ctx := context.Background()

	tests := []struct {
		name    string
		p       auth.Principal
		id      uuid.UUID
		wantErr error
	}{
		{name: "owner", p: fx.teacher, id: fx.file.ID},
		{name: "submitter", p: fx.student, id: fx.file.ID},
		{name: "superuser", p: testutil.Superuser(), id: fx.file.ID},
		{name: "stranger", p: fx.stranger, id: fx.file.ID, wantErr: core.ErrUnauthorized},
		{name: "missing", p: fx.teacher, id: uuid.New(), wantErr: file.ErrNotFound},
		{name: "missing, superuser", p: testutil.Superuser(), id: uuid.New(), wantErr: file.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Get(ctx, tt.p, tt.id)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, fx.file, got)
		})
	}
}

func TestService_OwnershipLookupFailure(t *testing.T) {
	fx := setup(t)
	svc := fx.service(&brokenOwnershipRepo{fx.repo})
	ctx := context.Background()

	_, err := svc.Get(ctx, fx.teacher, fx.file.ID)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, "file not found", errors.Cause(err).Error())

	_, err = svc.GetBySubmission(ctx, fx.student, fx.submission.ID)
	assert.True(t, core.IsNotFound(err))

	_, err = svc.Trigger(ctx, fx.student, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
	assert.True(t, core.IsNotFound(err))
	assert.Zero(t, fx.scheduler.calls)

	_, err = svc.SetOutput(ctx, fx.teacher, fx.file.ID, file.ScheduleOutput{EncodedOutput: []byte("5")})
	assert.True(t, core.IsNotFound(err))

	got, err := fx.repo.GetFileByID(ctx, fx.file.ID)
	require.NoError(t, err)
	assert.False(t, got.Scheduled)
	assert.Nil(t, got.EncodedOutput)

	// superusers skip the join
	_, err = svc.Get(ctx, testutil.Superuser(), fx.file.ID)
	assert.NoError(t, err)
}

func TestService_GetBySubmission(t *testing.T) {
	defer testutil.Tick(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))()

	fx := setup(t)
	svc := fx.service()
	ctx := context.Background()
	latest := testutil.CreateFile(t, fx.repo, fx.submission.ID, "print(5)")

	got, err := svc.GetBySubmission(ctx, fx.student, fx.submission.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, got.ID)

	_, err = svc.GetBySubmission(ctx, fx.stranger, fx.submission.ID)
	assert.Equal(t, core.ErrUnauthorized, err)

	_, err = svc.GetBySubmission(ctx, fx.teacher, uuid.New())
	assert.Equal(t, file.ErrNotFound, err)
}

func TestService_Trigger(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches as the caller", func(t *testing.T) {
		fx := setup(t)
		got, err := fx.service().Trigger(ctx, fx.student, fx.file.ID, file.ScheduleTrigger{FileID: fx.file.ID, Scheduled: bPtr(true)})
		require.NoError(t, err)
		assert.True(t, got.Scheduled)
		assert.Equal(t, 1, fx.scheduler.calls)
		assert.Equal(t, fx.student, fx.scheduler.principal)
		assert.Equal(t, file.ScheduleFile{
			FileID:       fx.file.ID,
			Extension:    "py",
			AssignmentID: fx.assignment.ID,
			Content:      fx.file.EncodedText,
			TestCase:     []byte("2\n3"),
		}, fx.scheduler.dispatched)
	})

	t.Run("id may be omitted", func(t *testing.T) {
		fx := setup(t)
		_, err := fx.service().Trigger(ctx, fx.teacher, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
		assert.NoError(t, err)
	})

	t.Run("id mismatch", func(t *testing.T) {
		fx := setup(t)
		_, err := fx.service().Trigger(ctx, fx.teacher, fx.file.ID, file.ScheduleTrigger{FileID: uuid.New(), Scheduled: bPtr(true)})
		assert.True(t, core.IsValidation(err))
		assert.Zero(t, fx.scheduler.calls)
	})

	t.Run("unscheduling does not dispatch", func(t *testing.T) {
		fx := setup(t)
		fx.scheduler.enabled = false
		got, err := fx.service().Trigger(ctx, fx.teacher, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(false)})
		require.NoError(t, err)
		assert.False(t, got.Scheduled)
		assert.Zero(t, fx.scheduler.calls)
	})

	t.Run("scheduler not configured", func(t *testing.T) {
		fx := setup(t)
		fx.scheduler.enabled = false
		_, err := fx.service().Trigger(ctx, fx.teacher, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
		assert.Equal(t, file.ErrSchedulerNotConfigured, err)
		assert.True(t, core.IsValidation(err))

		got, err := fx.repo.GetFileByID(ctx, fx.file.ID)
		require.NoError(t, err)
		assert.False(t, got.Scheduled)
		assert.Equal(t, fx.file.Updated, got.Updated)
	})

	t.Run("stranger", func(t *testing.T) {
		fx := setup(t)
		_, err := fx.service().Trigger(ctx, fx.stranger, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
		assert.Equal(t, core.ErrUnauthorized, err)
		assert.Zero(t, fx.scheduler.calls)
	})

	t.Run("stranger, scheduler not configured", func(t *testing.T) {
		fx := setup(t)
		fx.scheduler.enabled = false
		_, err := fx.service().Trigger(ctx, fx.stranger, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
		assert.Equal(t, core.ErrUnauthorized, err)
	})

	t.Run("missing file", func(t *testing.T) {
		fx := setup(t)
		_, err := fx.service().Trigger(ctx, testutil.Superuser(), uuid.New(), file.ScheduleTrigger{Scheduled: bPtr(true)})
		assert.True(t, core.IsNotFound(err))
		assert.Zero(t, fx.scheduler.calls)
	})

	t.Run("dispatch failure reverts", func(t *testing.T) {
		fx := setup(t)
		fx.scheduler.err = errors.New("connection refused")
		_, err := fx.service().Trigger(ctx, fx.student, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, file.ErrDispatchFailed))

		got, err := fx.repo.GetFileByID(ctx, fx.file.ID)
		require.NoError(t, err)
		assert.False(t, got.Scheduled)
	})

	t.Run("failed revert surfaces not found", func(t *testing.T) {
		fx := setup(t)
		fx.scheduler.err = errors.New("connection refused")
		_, err := fx.service(&failingRevertRepo{fx.repo}).Trigger(ctx, fx.student, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("re-trigger keeps validated", func(t *testing.T) {
		fx := setup(t)
		svc := fx.service()
		_, err := svc.SetOutput(ctx, fx.teacher, fx.file.ID, file.ScheduleOutput{EncodedOutput: []byte("5")})
		require.NoError(t, err)

		got, err := svc.Trigger(ctx, fx.teacher, fx.file.ID, file.ScheduleTrigger{Scheduled: bPtr(true)})
		require.NoError(t, err)
		assert.True(t, got.Scheduled)
		assert.True(t, got.Validated)
	})
}

func TestService_SetOutput(t *testing.T) {
	fx := setup(t)
	svc := fx.service()
	ctx := context.Background()

	tests := []struct {
		name          string
		p             auth.Principal
		output        string
		wantValidated bool
		wantErr       error
	}{
		{name: "matching", p: fx.teacher, output: "5", wantValidated: true},
		{name: "different", p: fx.student, output: "6"},
		{name: "matching again", p: testutil.Superuser(), output: "5", wantValidated: true},
		{name: "extra newline", p: fx.teacher, output: "5\n"},
		{name: "stranger", p: fx.stranger, output: "5", wantErr: core.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SetOutput(ctx, tt.p, fx.file.ID, file.ScheduleOutput{EncodedOutput: []byte(tt.output)})
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.output), got.EncodedOutput)
			assert.Equal(t, tt.wantValidated, got.Validated)
		})
	}

	_, err := svc.SetOutput(ctx, fx.teacher, uuid.New(), file.ScheduleOutput{EncodedOutput: []byte("5")})
	assert.True(t, core.IsNotFound(err))
}
