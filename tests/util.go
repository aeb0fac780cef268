package testutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/assignment"
	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/core/file"
	"github.com/autograder/repository/core/submission"
	logsvc "github.com/autograder/repository/services/logger"
)

var (
	keysOnce sync.Once
	keys     *auth.Keys
)

// Keys returns an RSA key pair shared by the whole test binary.
func Keys(t *testing.T) *auth.Keys {
	keysOnce.Do(func() {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("Keys() failed: %v", err)
		}
		keys = auth.NewKeys(priv, nil)
	})
	return keys
}

// NewLogger returns a logger that reports nowhere.
func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)
	return logger
}

func Teacher() auth.Principal {
	return auth.Principal{UserID: uuid.New(), IsTeacher: true, Email: "teacher@test.cd", ExpiresAt: expiry()}
}

func Student() auth.Principal {
	return auth.Principal{UserID: uuid.New(), IsStudent: true, Email: "student@test.cd", ExpiresAt: expiry()}
}

func Superuser() auth.Principal {
	return auth.Principal{UserID: uuid.New(), IsSuperuser: true, Email: "root@test.cd", ExpiresAt: expiry()}
}

func expiry() time.Time {
	return time.Unix(time.Now().Add(time.Hour).Unix(), 0).UTC()
}

// Tick makes core.Now advance by one second on every call, starting at start.
// The returned func restores the clock.
func Tick(start time.Time) func() {
	var mu sync.Mutex
	now := start
	core.NowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	return func() { core.NowFunc = time.Now }
}

func CreateAssignment(t *testing.T, repo assignment.Repository, owner uuid.UUID, input, output string) assignment.Assignment {
	a, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		ID:            uuid.New(),
		UserID:        owner,
		EncodedInput:  []byte(input),
		EncodedOutput: []byte(output),
		Updated:       core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

func CreateSubmission(t *testing.T, repo submission.Repository, assignmentID, userID uuid.UUID, ext string) submission.Submission {
	s, err := repo.CreateSubmission(context.Background(), submission.Submission{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		UserID:       userID,
		Extension:    ext,
		Created:      core.Now(),
	})
	if err != nil {
		t.Fatalf("CreateSubmission() failed: %v", err)
	}
	return s
}

func CreateFile(t *testing.T, repo file.Repository, submissionID uuid.UUID, text string) file.File {
	f, err := repo.CreateFile(context.Background(), file.File{
		ID:           uuid.New(),
		SubmissionID: submissionID,
		Updated:      core.Now(),
		EncodedText:  []byte(text),
	})
	if err != nil {
		t.Fatalf("CreateFile() failed: %v", err)
	}
	return f
}
