package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/core/submission"
	"github.com/autograder/repository/tests"
)

type submissionResponse struct {
	submission.Submission
	FileID uuid.UUID `json:"file_id"`
}

func submitBody(t *testing.T, assignmentID, userID uuid.UUID, ext, text string) []byte {
	return marshallObj(t, echo.Map{
		"assignment_id": assignmentID,
		"user_id":       userID,
		"extension":     ext,
		"encoded_text":  []byte(text),
	})
}

func TestSubmissionAPI_Create(t *testing.T) {
	e := setup(t)
	teacher, student := testutil.Teacher(), testutil.Student()
	a := testutil.CreateAssignment(t, e.assignmentRepo, teacher.UserID, "2\n3", "5")
	studentToken := e.token(t, student)

	tests := []httpTest{
		{
			name:     "missing token",
			method:   http.MethodPost,
			path:     "/submissions",
			body:     submitBody(t, a.ID, student.UserID, "py", "print(5)"),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "missing text",
			method:   http.MethodPost,
			path:     "/submissions",
			body:     marshallObj(t, echo.Map{"assignment_id": a.ID, "user_id": student.UserID, "extension": "py"}),
			token:    studentToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, echo.Map{"encoded_text": "this field is required"}),
		},
		{
			name:     "bad extension",
			method:   http.MethodPost,
			path:     "/submissions",
			body:     submitBody(t, a.ID, student.UserID, ".py", "print(5)"),
			token:    studentToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "on behalf of someone else",
			method:   http.MethodPost,
			path:     "/submissions",
			body:     submitBody(t, a.ID, uuid.New(), "py", "print(5)"),
			token:    studentToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "submission failed"}),
		},
		{
			name:     "unknown assignment",
			method:   http.MethodPost,
			path:     "/submissions",
			body:     submitBody(t, uuid.New(), student.UserID, "py", "print(5)"),
			token:    studentToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "submission failed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.serve(t, tt)
		})
	}

	t.Run("resubmission keeps the id", func(t *testing.T) {
		var first, second submissionResponse

		rec := e.serve(t, httpTest{
			method:   http.MethodPost,
			path:     "/submissions",
			body:     submitBody(t, a.ID, student.UserID, "py", "print(6)"),
			token:    studentToken,
			wantCode: http.StatusCreated,
		})
		unmarshallObj(t, rec, &first)
		assert.Equal(t, 0, first.UpdateCount)
		assert.Equal(t, a.ID, first.AssignmentID)
		assert.Equal(t, student.UserID, first.UserID)
		assert.Equal(t, "localhost:8000/files/"+first.FileID.String(), rec.Header().Get(echo.HeaderLocation))

		rec = e.serve(t, httpTest{
			method:   http.MethodPost,
			path:     "/submissions",
			body:     submitBody(t, a.ID, student.UserID, "rs", "fn main() { println!(\"5\") }"),
			token:    studentToken,
			wantCode: http.StatusCreated,
		})
		unmarshallObj(t, rec, &second)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, second.UpdateCount)
		assert.Equal(t, "rs", second.Extension)
		assert.True(t, second.Created.After(first.Created))
		assert.NotEqual(t, first.FileID, second.FileID)
	})
}

func TestSubmissionAPI_List(t *testing.T) {
	defer testutil.Tick(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))()

	e := setup(t)
	teacher, student, other := testutil.Teacher(), testutil.Student(), testutil.Student()
	a := testutil.CreateAssignment(t, e.assignmentRepo, teacher.UserID, "2\n3", "5")
	b := testutil.CreateAssignment(t, e.assignmentRepo, testutil.Teacher().UserID, "1", "1")

	submit := func(asg uuid.UUID, p auth.Principal) submissionResponse {
		var resp submissionResponse
		rec := e.serve(t, httpTest{
			method:   http.MethodPost,
			path:     "/submissions",
			body:     submitBody(t, asg, p.UserID, "py", "print(5)"),
			token:    e.token(t, p),
			wantCode: http.StatusCreated,
		})
		unmarshallObj(t, rec, &resp)
		return resp
	}
	s1 := submit(a.ID, student)
	s2 := submit(a.ID, other)
	s3 := submit(b.ID, student)

	ids := func(t *testing.T, rec *httptest.ResponseRecorder) []uuid.UUID {
		var subs []submission.Submission
		unmarshallObj(t, rec, &subs)
		res := make([]uuid.UUID, len(subs))
		for i, s := range subs {
			res[i] = s.ID
		}
		return res
	}

	t.Run("unique by student", func(t *testing.T) {
		rec := e.serve(t, httpTest{
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=" + a.ID.String() + "&user_id=" + student.UserID.String(),
			token:    e.token(t, student),
			wantCode: http.StatusOK,
		})
		var got submission.Submission
		unmarshallObj(t, rec, &got)
		assert.Equal(t, s1.ID, got.ID)
	})

	t.Run("by assignment owner", func(t *testing.T) {
		rec := e.serve(t, httpTest{
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=" + a.ID.String(),
			token:    e.token(t, teacher),
			wantCode: http.StatusOK,
		})
		assert.Equal(t, []uuid.UUID{s2.ID, s1.ID}, ids(t, rec))
	})

	t.Run("all by superuser", func(t *testing.T) {
		rec := e.serve(t, httpTest{
			method:   http.MethodGet,
			path:     "/submissions",
			token:    e.token(t, testutil.Superuser()),
			wantCode: http.StatusOK,
		})
		assert.Equal(t, []uuid.UUID{s3.ID, s2.ID, s1.ID}, ids(t, rec))
	})

	t.Run("user_id alone lists all", func(t *testing.T) {
		rec := e.serve(t, httpTest{
			method:   http.MethodGet,
			path:     "/submissions?user_id=" + student.UserID.String(),
			token:    e.token(t, testutil.Superuser()),
			wantCode: http.StatusOK,
		})
		assert.Len(t, ids(t, rec), 3)
	})

	t.Run("empty assignment", func(t *testing.T) {
		c := testutil.CreateAssignment(t, e.assignmentRepo, teacher.UserID, "1", "1")
		e.serve(t, httpTest{
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=" + c.ID.String(),
			token:    e.token(t, teacher),
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		})
	})

	tests := []httpTest{
		{
			name:     "unique by someone else",
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=" + a.ID.String() + "&user_id=" + student.UserID.String(),
			token:    e.token(t, other),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errUnauthorized),
		},
		{
			name:     "unique not found",
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=" + b.ID.String() + "&user_id=" + other.UserID.String(),
			token:    e.token(t, other),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "submission not found"}),
		},
		{
			name:     "by assignment, not the owner",
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=" + a.ID.String(),
			token:    e.token(t, student),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errUnauthorized),
		},
		{
			name:     "by unknown assignment",
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=" + uuid.New().String(),
			token:    e.token(t, teacher),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "assignment not found"}),
		},
		{
			name:     "all, not a superuser",
			method:   http.MethodGet,
			path:     "/submissions",
			token:    e.token(t, teacher),
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errUnauthorized),
		},
		{
			name:     "malformed assignment_id",
			method:   http.MethodGet,
			path:     "/submissions?assignment_id=nope",
			token:    e.token(t, teacher),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, echo.Map{"assignment_id": "assignment_id must be a valid UUID"}),
		},
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/submissions",
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errMissingToken),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.serve(t, tt)
		})
	}
}
