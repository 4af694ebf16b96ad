package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/rbac"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
	"github.com/pathlight-learning/pathlight-lms/internal/store"
)

func testRouter(t *testing.T) (chi.Router, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutCourse(ctx, course.Course{
		ID: "c1",
		Sections: []course.Section{{
			ID: "s1", Order: 1,
			Modules: []course.Module{{
				ID: "m1", Type: course.ModuleQuiz, Order: 1,
				Quiz: &course.QuizSpec{QuestionIDs: []string{"q1"}, TimeLimitMin: 10, PassPercent: 50},
			}},
		}},
	}))
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q1", Type: course.QuestionMultipleChoice, Points: 1,
		Options: []course.Option{{Text: "A", Correct: true}},
	}))

	builder := snapshot.NewBuilder(m, m, nil)
	svc := attempt.NewService(m, m, builder, m, m, m, nil)

	r := chi.NewRouter()
	r.Post("/attempts/start", StartAttemptHandler(svc))
	r.Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(svc))
	r.Get("/attempts/{attemptID}", GetAttemptHandler(svc))
	return r, m
}

// asUser stamps the request context the way the JWT middleware would.
func asUser(r *http.Request, sub, role string) *http.Request {
	ctx := auth.WithSubject(r.Context(), sub)
	ctx = rbac.WithRole(ctx, role)
	return r.WithContext(ctx)
}

func TestStartAndSubmitOverHTTP(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest("POST", "/attempts/start",
		bytes.NewBufferString(`{"module_id":"m1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "alice", "student"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var a attempt.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "alice", a.UserID)

	req = httptest.NewRequest("POST", "/attempts/"+a.ID+"/submit",
		bytes.NewBufferString(`{"answers":{"q1":"A"}}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "alice", "student"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, attempt.StatusGraded, a.Status)
	assert.Equal(t, 1.0, a.Score)

	// Double submit maps AlreadyFinalized to 409.
	req = httptest.NewRequest("POST", "/attempts/"+a.ID+"/submit", bytes.NewBufferString(`{}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "alice", "student"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartValidatesPayload(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest("POST", "/attempts/start", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "alice", "student"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "module_id is required")

	req = httptest.NewRequest("POST", "/attempts/start", bytes.NewBufferString(`not json`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "alice", "student"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOwnershipGuards(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest("POST", "/attempts/start",
		bytes.NewBufferString(`{"module_id":"m1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "alice", "student"))
	require.Equal(t, http.StatusOK, rec.Code)
	var a attempt.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))

	// Another student cannot read it.
	req = httptest.NewRequest("GET", "/attempts/"+a.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "bob", "student"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An instructor with attempt:view-all can.
	req = httptest.NewRequest("GET", "/attempts/"+a.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "teach", "instructor"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown attempts are 404.
	req = httptest.NewRequest("GET", "/attempts/nope", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "alice", "student"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
