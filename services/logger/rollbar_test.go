package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/auth"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	p := auth.Principal{UserID: uuid.New(), Email: "t@test.cd", IsTeacher: true}
	logger.Error("boom", errors.New("storage down"),
		map[string]interface{}{"file_id": 42}, map[string]interface{}{"assignment_id": "a1"}, p)

	out := buf.String()
	assert.Contains(t, out, "TEST : boom")
	assert.Contains(t, out, "storage down")
	assert.Contains(t, out, "assignment_id=a1 file_id=42")
	assert.Contains(t, out, "principal: "+p.UserID.String()+" [teacher]")
	assert.NotContains(t, out, p.Email)
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{}
	p1 := auth.Principal{UserID: uuid.New()}
	p2 := auth.Principal{UserID: uuid.New()}
	err := errors.New("lol")

	args := logger.prepare("msg", []interface{}{err, p1, p2})
	assert.Equal(t, []interface{}{"msg", err}, args)

	p1.IsSuperuser, p1.IsStudent = true, true
	args = logger.prepare("msg", []interface{}{
		map[string]interface{}{"file_id": 1},
		err,
		p1,
		map[string]interface{}{"file_id": 2, "attempt": 3},
	})
	assert.Equal(t, []interface{}{"msg", err, map[string]interface{}{
		"file_id":         2,
		"attempt":         3,
		"principal_roles": "superuser,student",
	}}, args)
}

func Test_fields_String(t *testing.T) {
	assert.Equal(t, "", fields{}.String())
	assert.Equal(t, "a=1 b=x", fields{"b": "x", "a": 1}.String())
}
