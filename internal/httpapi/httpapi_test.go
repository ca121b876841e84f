package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsnshll/myshell/internal/jobtable"
)

func newTestServer(t *testing.T, token string) (*Server, *jobtable.Table) {
	t.Helper()
	table := jobtable.NewTable(nil, new(int32))
	s := NewServer(nil, table, nil, Options{Env: "dev", AdminToken: token})
	return s, table
}

func do(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestListJobsEmpty(t *testing.T) {
	s, _ := newTestServer(t, "")
	rec := do(s, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListJobsReturnsRegisteredJob(t *testing.T) {
	s, table := newTestServer(t, "")
	require.NoError(t, table.Add(jobtable.Job{ID: table.NextID(), Pgid: 4242, Command: "sleep 5", Status: jobtable.Running}))

	rec := do(s, http.MethodGet, "/api/jobs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var views []jobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, 4242, views[0].Pgid)
}

func TestGetJobNotFound(t *testing.T) {
	s, _ := newTestServer(t, "")
	rec := do(s, http.MethodGet, "/api/jobs/99", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignalJobRequiresAuthWhenTokenSet(t *testing.T) {
	s, table := newTestServer(t, "secret")
	id := table.NextID()
	require.NoError(t, table.Add(jobtable.Job{ID: id, Pgid: 999999, Command: "x", Status: jobtable.Running}))

	rec := do(s, http.MethodPost, "/api/jobs/"+strconv.FormatInt(id, 10)+"/signal", `{"signal":"TERM"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(s, http.MethodPost, "/api/jobs/"+strconv.FormatInt(id, 10)+"/signal", `{"signal":"TERM"}`,
		map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code) // pgid doesn't exist, kill fails
}

func TestSignalJobRejectsUnknownSignal(t *testing.T) {
	s, table := newTestServer(t, "")
	id := table.NextID()
	require.NoError(t, table.Add(jobtable.Job{ID: id, Pgid: 123, Command: "x", Status: jobtable.Running}))

	rec := do(s, http.MethodPost, "/api/jobs/"+strconv.FormatInt(id, 10)+"/signal", `{"signal":"BOGUS"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRecentLogEmptyWithoutSink(t *testing.T) {
	s, _ := newTestServer(t, "")
	rec := do(s, http.MethodGet, "/api/log/recent", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestLoginRejectsWrongToken(t *testing.T) {
	s, _ := newTestServer(t, "secret")
	rec := do(s, http.MethodPost, "/api/login", `{"token":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginGrantsSessionForMutatingRoute(t *testing.T) {
	s, table := newTestServer(t, "secret")
	id := table.NextID()
	require.NoError(t, table.Add(jobtable.Job{ID: id, Pgid: 999999, Command: "x", Status: jobtable.Running}))

	loginRec := do(s, http.MethodPost, "/api/login", `{"token":"secret"}`, nil)
	require.Equal(t, http.StatusOK, loginRec.Code)

	var cookie string
	for _, c := range loginRec.Result().Cookies() {
		if c.Name == "sid" {
			cookie = c.String()
		}
	}
	require.NotEmpty(t, cookie, "login must set a session cookie")

	rec := do(s, http.MethodPost, "/api/jobs/"+strconv.FormatInt(id, 10)+"/signal", `{"signal":"TERM"}`,
		map[string]string{"Cookie": cookie})
	assert.Equal(t, http.StatusInternalServerError, rec.Code) // pgid doesn't exist, kill fails, but auth passed
}
