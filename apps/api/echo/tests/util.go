package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/autograder/repository/apps/api/echo"
	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/assignment"
	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/core/file"
	"github.com/autograder/repository/core/submission"
	schedulersvc "github.com/autograder/repository/services/scheduler"
	"github.com/autograder/repository/storage/database/inmem"
	"github.com/autograder/repository/tests"
)

var (
	errMissingToken = httpErr{Error: auth.ErrMissingToken.Error()}
	errInvalidToken = httpErr{Error: auth.ErrInvalidToken.Error()}
	errUnauthorized = httpErr{Error: core.ErrUnauthorized.Error()}
)

// schedulerMock stands in for the remote scheduler.
type schedulerMock struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	received []file.ScheduleFile
}

func newSchedulerMock() *schedulerMock {
	m := &schedulerMock{status: http.StatusOK}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sf file.ScheduleFile
		_ = json.NewDecoder(r.Body).Decode(&sf)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.received = append(m.received, sf)
		w.WriteHeader(m.status)
	}))
	return m
}

func (m *schedulerMock) setStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *schedulerMock) calls() []file.ScheduleFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]file.ScheduleFile{}, m.received...)
}

type env struct {
	app       *Server
	conf      *core.Config
	scheduler *schedulerMock
	signer    *auth.Signer

	assignmentRepo assignment.Repository
	submissionRepo submission.Repository
	fileRepo       file.Repository
}

func setup(t *testing.T) *env {
	scheduler := newSchedulerMock()
	t.Cleanup(scheduler.Close)

	conf := &core.Config{Env: "TEST", TestMode: true}
	conf.Server.Host = "localhost"
	conf.Server.Port = "8000"
	conf.Server.AllowOrigins = []string{"*"}
	conf.Scheduler.SubmissionURL = scheduler.URL
	conf.Scheduler.UserAgent = "autograder-tests"

	return setupWithConf(t, conf, scheduler)
}

func setupWithConf(t *testing.T, conf *core.Config, scheduler *schedulerMock) *env {
	keys := testutil.Keys(t)
	signer := auth.NewSigner(keys)
	logger := testutil.NewLogger()

	// set up DB & repos
	db := inmemdb.Open()
	e := &env{
		conf:           conf,
		scheduler:      scheduler,
		signer:         signer,
		assignmentRepo: inmemdb.NewAssignmentRepository(db),
		submissionRepo: inmemdb.NewSubmissionRepository(db),
		fileRepo:       inmemdb.NewFileRepository(db),
	}

	// set up services
	asgSvc := assignment.NewService(e.assignmentRepo, logger)
	subSvc := submission.NewService(e.submissionRepo, asgSvc)
	fileSvc := file.NewService(e.fileRepo, schedulersvc.NewGateway(conf, signer, nil), logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// set up server
	e.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Authenticator: auth.NewAuthenticator(keys),
		AssignmentSvc: asgSvc,
		SubmissionSvc: subSvc,
		FileSvc:       fileSvc,
		Validate:      validate,
		Translator:    translator,
	})
	return e
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (e *env) token(t *testing.T, p auth.Principal) string {
	token, err := e.signer.Sign(p)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// serve runs tt against the app and checks the response.
func (e *env) serve(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", auth.TokenPrefix+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshallObj() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

// checkCodeAndData compares the body only when tt.wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
