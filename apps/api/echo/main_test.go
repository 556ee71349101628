package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanikworkforce/TET-Bloom/apps/api/echo"
	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/mailer"
	"github.com/Nanikworkforce/TET-Bloom/core/notify"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/provision"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
	"github.com/Nanikworkforce/TET-Bloom/services/lock"
	"github.com/Nanikworkforce/TET-Bloom/storage/database/inmem"
	"github.com/Nanikworkforce/TET-Bloom/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	conf        *core.Config
	server      *echoapi.Server
	logger      *testutil.Logger
	outbox      *testutil.Outbox
	locker      *locksvc.LocalLocker
	people      person.Repository
	teachers    teacher.Repository
	credentials credential.Repository
	groups      group.Repository
	schedules   schedule.Repository
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := testutil.NewConfig()
	logger := new(testutil.Logger)
	validate, translator := testutil.NewValidator()

	db := inmemdb.NewDB()
	e := &env{
		conf:        conf,
		logger:      logger,
		outbox:      new(testutil.Outbox),
		locker:      locksvc.NewLocalLocker(),
		people:      inmemdb.NewPersonRepository(db),
		teachers:    inmemdb.NewTeacherRepository(db),
		credentials: inmemdb.NewCredentialRepository(db),
		groups:      inmemdb.NewGroupRepository(db),
		schedules:   inmemdb.NewScheduleRepository(db),
	}

	composer, err := mailer.NewComposer(conf)
	require.NoError(t, err)
	provisioner := identity.NewProvisioner(conf, e.credentials, nil /* provider disabled */)

	e.server = echoapi.NewServer(echoapi.Deps{
		Config:      conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		People:      e.people,
		Teachers:    e.teachers,
		Groups:      e.groups,
		Schedules:   e.schedules,
		Provisioner: provisioner,
		Orchestrator: provision.NewOrchestrator(
			conf, logger, validate, e.people, e.teachers, e.credentials, provisioner, composer, e.outbox,
		),
		Dispatcher: notify.NewDispatcher(
			conf, logger, e.schedules, e.teachers, e.groups, e.people, composer, e.outbox, e.locker,
		),
	})
	return e
}

// admin creates an administrator and returns it with a valid token.
func (e *env) admin(t *testing.T) (person.Person, string) {
	t.Helper()
	p := testutil.CreatePerson(t, e.people, "Grace Hopper", "grace@bloom.test", person.RoleAdministrator)
	return p, e.token(t, p)
}

func (e *env) token(t *testing.T, p person.Person) string {
	t.Helper()
	token, err := echoapi.GenerateToken(e.conf, echoapi.NewClaims(e.conf, p, p.Email))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.server.ServeHTTP(rec, req)
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
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.do(tt.method, tt.path, tt.token, tt.body))
		})
	}
}

func getCredential(t *testing.T, repo credential.Repository, email string) credential.Credential {
	t.Helper()
	c, err := repo.GetCredentialByEmail(context.Background(), email)
	require.NoError(t, err)
	return c
}
