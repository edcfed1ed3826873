package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-tracker/internal/config"
	"github.com/aanand-mishra/student-tracker/internal/storage"
	"github.com/aanand-mishra/student-tracker/internal/storage/sqlstore"
	"github.com/aanand-mishra/student-tracker/internal/storage/storagetest"
	"github.com/aanand-mishra/student-tracker/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:        "dev",
		HTTPServer: config.HTTPServer{APIPrefix: "/api"},
		Metrics:    config.Metrics{Path: "/metrics"},
	}
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), config.Storage{
		Driver:       config.DriverSQLite,
		DSN:          ":memory:",
		PingAttempts: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(testConfig(), store)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func requireCommonHeaders(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func listStudents(t *testing.T, h http.Handler) map[string]types.StudentDocument {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]types.StudentDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOptionsShortCircuits(t *testing.T) {
	h := setupRouter(t)
	for _, path := range []string{"/api/students", "/api/comment", "/nowhere"} {
		rec := do(t, h, http.MethodOptions, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Zero(t, rec.Body.Len(), path)
		requireCommonHeaders(t, rec)
	}
}

func TestUnknownPathsAndMethods(t *testing.T) {
	h := setupRouter(t)
	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/teachers"},
		{http.MethodGet, "/api"},
		{http.MethodPatch, "/api/students"},
		{http.MethodGet, "/api/student-login"},
		{http.MethodGet, "/api/comment"},
		{http.MethodGet, "/students"},
	}
	for _, tc := range cases {
		rec := do(t, h, tc.method, tc.path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		require.JSONEq(t, `{"error":"API Path Not Found"}`, rec.Body.String())
		requireCommonHeaders(t, rec)
	}
}

func TestFirstSegmentSelectsHandler(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/api/students/", `{"account":"s1","name":"Alice","school":"North","class":"3A","tasks":[{"id":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, path := range []string{"/api/students", "/api/students/", "/api/students/s1", "/api/students/s1/tasks"} {
		rec = do(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		requireCommonHeaders(t, rec)
		var out map[string]types.StudentDocument
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), path)
		require.Contains(t, out, "s1", path)
	}

	rec = do(t, h, http.MethodPost, "/api/student-login/x", `{"school":"North","class":"3A","account":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/comment/", `{"action":"ADD","task_id":1,"sender":"t1","content":"hi","timestamp":1704067200000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/students/anything", `{"account":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, path := range []string{"/api/studentsx", "/api/comments", "/api/student"} {
		rec = do(t, h, http.MethodGet, path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		require.JSONEq(t, `{"error":"API Path Not Found"}`, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/comment/x", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEveryRequestIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := setupRouter(t)
	do(t, h, http.MethodOptions, "/api/students", "")
	do(t, h, http.MethodGet, "/nowhere", "")

	out := buf.String()
	require.Contains(t, out, "method=OPTIONS")
	require.Contains(t, out, "path=/nowhere")
	require.Contains(t, out, "status=404")
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestUpsertThenList(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/api/students",
		`{"account":"s1","name":"Alice","tasks":[{"id":1,"name":"HW1","status":"open"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requireCommonHeaders(t, rec)

	students := listStudents(t, h)
	require.Len(t, students, 1)
	s1 := students["s1"]
	require.Equal(t, "Alice", s1.Name)
	require.Len(t, s1.Tasks, 1)
	require.Equal(t, "HW1", *s1.Tasks[0].Name)
	require.NotNil(t, s1.Tasks[0].Comments)
	require.Empty(t, s1.Tasks[0].Comments)
}

func TestUpsertIsIdempotentAndReplaces(t *testing.T) {
	h := setupRouter(t)
	body := `{"account":"s1","name":"Alice","tasks":[{"id":1,"name":"HW1"},{"id":2,"name":"HW2"}]}`

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/students", body).Code)
	once := listStudents(t, h)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/students", body).Code)
	require.Equal(t, once, listStudents(t, h))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/students", `{"account":"s1","name":"Alice","tasks":[]}`).Code)
	require.Empty(t, listStudents(t, h)["s1"].Tasks)
}

func TestUpsertValidation(t *testing.T) {
	h := setupRouter(t)
	rec := do(t, h, http.MethodPost, "/api/students", `{"account":"s1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"field name is required"}`, rec.Body.String())
	require.Empty(t, listStudents(t, h))
}

func TestCommentLifecycle(t *testing.T) {
	h := setupRouter(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/students",
		`{"account":"s1","name":"Alice","tasks":[{"id":1,"name":"HW1","status":"open"}]}`).Code)

	rec := do(t, h, http.MethodPost, "/api/comment",
		`{"action":"ADD","task_id":1,"sender":"t1","content":"good","timestamp":"2024-01-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var added struct {
		Message   string `json:"message"`
		CommentID *int64 `json:"commentId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.NotNil(t, added.CommentID)
	id := *added.CommentID

	comments := listStudents(t, h)["s1"].Tasks[0].Comments
	require.Len(t, comments, 1)
	require.Equal(t, types.CommentDocument{
		ID: id, Sender: "t1", Content: "good", Timestamp: "2024-01-01",
	}, comments[0])

	rec = do(t, h, http.MethodPost, "/api/comment", `{"action":"RECALL","comment_id":`+jsonInt(id)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)

	comments = listStudents(t, h)["s1"].Tasks[0].Comments
	require.Equal(t, types.CommentDocument{
		ID: id, Sender: "t1", Content: "good", Timestamp: "2024-01-01", IsRecalled: true,
	}, comments[0])

	// recalling again and blocking never clear the recall flag
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/comment", `{"action":"RECALL","comment_id":`+jsonInt(id)+`}`).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/comment", `{"action":"BLOCK","comment_id":`+jsonInt(id)+`}`).Code)
	comments = listStudents(t, h)["s1"].Tasks[0].Comments
	require.True(t, comments[0].IsRecalled)
	require.True(t, comments[0].IsBlocked)

	rec = do(t, h, http.MethodPost, "/api/comment", `{"action":"BLOCK","comment_id":9999}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"commentId":9999`)
}

func TestCommentErrors(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/api/comment", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/comment", `{"action":"EDIT"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"無效的 action"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/comment", `{"action":"ADD","task_id":1}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	requireCommonHeaders(t, rec)

	// task 77 does not exist
	rec = do(t, h, http.MethodPost, "/api/comment",
		`{"action":"ADD","task_id":77,"sender":"t1","content":"x","timestamp":"t"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDeleteStudent(t *testing.T) {
	h := setupRouter(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/students", `{"account":"s1","name":"Alice"}`).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/students", `{"account":"s2","name":"Bob"}`).Code)

	rec := do(t, h, http.MethodDelete, "/api/students", `{"account":"ghost"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"查無此學號或資料已刪除。"}`, rec.Body.String())
	require.Len(t, listStudents(t, h), 2)

	rec = do(t, h, http.MethodDelete, "/api/students", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/students", `{"account":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	students := listStudents(t, h)
	require.Len(t, students, 1)
	require.Contains(t, students, "s2")
}

func TestStudentLogin(t *testing.T) {
	h := setupRouter(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/students",
		`{"account":"s1","name":"Alice","school":"North","class":"3A","tasks":[{"id":1,"name":"HW1"}]}`).Code)

	rec := do(t, h, http.MethodPost, "/api/student-login", `{"school":"North","class":"3B","account":"s1"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotContains(t, rec.Body.String(), "Alice")

	rec = do(t, h, http.MethodPost, "/api/student-login", `{"school":"North","class":"3A","account":"s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc types.StudentDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "Alice", doc.Name)
	require.Len(t, doc.Tasks, 1)
	require.Empty(t, doc.Tasks[0].Comments)
}

func TestStorageFailureBecomes500(t *testing.T) {
	store := &storagetest.Fake{Err: errors.New("connection refused")}
	h := New(testConfig(), store)

	rec := do(t, h, http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	requireCommonHeaders(t, rec)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Contains(t, body["error"], "connection refused")

	rec = do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPanicIsRecovered(t *testing.T) {
	h := New(testConfig(), panicStore{})

	rec := do(t, h, http.MethodGet, "/api/students", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
	requireCommonHeaders(t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	do(t, h, http.MethodGet, "/api/students", "")
	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

type panicStore struct{ storage.Storage }

func (panicStore) Snapshot(context.Context) (types.Rows, error) { panic("boom") }

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestMetricsDisabledHidesEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Disabled = true
	h := New(cfg, &storagetest.Fake{})

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"API Path Not Found"}`, rec.Body.String())
}
