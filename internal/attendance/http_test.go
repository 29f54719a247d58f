package attendance_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/attendance"
	"faceattend/internal/auth"
)

const (
	testSigningKey = "test-signing-key"
	testIssuer     = "faceattend-test"
)

// fakeQueries records the scope arguments the handler passes down and
// returns rows filtered the way the repository would.
type fakeQueries struct {
	rows []attendance.Row

	lastDay       string
	lastSubjectID string
	lastStudentID string
}

func (f *fakeQueries) Query(_ context.Context, day, subjectID, studentID string) ([]attendance.Row, error) {
	f.lastDay = day
	f.lastSubjectID = subjectID
	f.lastStudentID = studentID
	if studentID == "" {
		return f.rows, nil
	}
	var scoped []attendance.Row
	for _, r := range f.rows {
		if r.RollNumber == studentID {
			scoped = append(scoped, r)
		}
	}
	return scoped, nil
}

func (f *fakeQueries) History(_ context.Context, studentID string) ([]attendance.HistoryRow, error) {
	f.lastStudentID = studentID
	return nil, nil
}

func (f *fakeQueries) StatsFor(context.Context, time.Time) (attendance.Stats, error) {
	return attendance.Stats{}, nil
}

func queryRouter(q attendance.Queries) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := attendance.NewHandler(nil, q, time.UTC,
		func() time.Time { return time.Date(2026, 1, 5, 9, 10, 0, 0, time.UTC) }, logger)
	r := gin.New()
	h.RegisterRoutes(r.Group("/v1", auth.Bearer(testSigningKey, testIssuer)))
	return r
}

func bearerToken(t *testing.T, id, role string) string {
	t.Helper()
	tok, _, err := auth.Issue(id, role, testIssuer, testSigningKey, time.Hour)
	require.NoError(t, err)
	return tok
}

func authedGet(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	return w
}

func TestQueryEndpoint_StudentScopedToSelf(t *testing.T) {
	// Roll numbers stand in for student ids so the fake can filter.
	q := &fakeQueries{rows: []attendance.Row{
		{StudentName: "Ada", RollNumber: "s1"},
		{StudentName: "Grace", RollNumber: "s2"},
	}}
	r := queryRouter(q)

	w := authedGet(r, "/v1/attendance", bearerToken(t, "s1", auth.RoleStudent))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", q.lastStudentID)
	assert.Equal(t, "2026-01-05", q.lastDay)

	var resp struct {
		Records []attendance.Row `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Ada", resp.Records[0].StudentName)
}

func TestQueryEndpoint_StudentCannotWidenScope(t *testing.T) {
	q := &fakeQueries{}
	r := queryRouter(q)

	// Query parameters never override the principal's own scope.
	w := authedGet(r, "/v1/attendance?student_id=s2&date=2026-01-05", bearerToken(t, "s1", auth.RoleStudent))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", q.lastStudentID)
}

func TestQueryEndpoint_AdminSeesAll(t *testing.T) {
	q := &fakeQueries{rows: []attendance.Row{
		{StudentName: "Ada", RollNumber: "s1"},
		{StudentName: "Grace", RollNumber: "s2"},
	}}
	r := queryRouter(q)

	w := authedGet(r, "/v1/attendance?subject_id=sub-1", bearerToken(t, "a1", auth.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, q.lastStudentID)
	assert.Equal(t, "sub-1", q.lastSubjectID)

	var resp struct {
		Records []attendance.Row `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Records, 2)
}

func TestQueryEndpoint_RejectsBadDateAndMissingToken(t *testing.T) {
	q := &fakeQueries{}
	r := queryRouter(q)

	w := authedGet(r, "/v1/attendance?date=05-01-2026", bearerToken(t, "s1", auth.RoleStudent))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/attendance", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHistoryEndpoint_StudentOnly(t *testing.T) {
	q := &fakeQueries{}
	r := queryRouter(q)

	w := authedGet(r, "/v1/attendance/me", bearerToken(t, "s1", auth.RoleStudent))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", q.lastStudentID)

	w = authedGet(r, "/v1/attendance/me", bearerToken(t, "a1", auth.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
