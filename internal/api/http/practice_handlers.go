package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
	"github.com/pathlight-learning/pathlight-lms/internal/practicetest"
	"github.com/pathlight-learning/pathlight-lms/internal/rbac"
)

// POST /api/practice-tests/start  { "section_id": "..." }
func StartPracticeTestHandler(svc *practicetest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SectionID string `json:"section_id" validate:"required"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := checkStruct(req); err != nil {
			writeErr(w, err)
			return
		}
		ta, err := svc.Start(r.Context(), auth.SubjectFromContext(r.Context()), req.SectionID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ta)
	}
}

// PUT /api/practice-tests/{testAttemptID}/progress
func SavePracticeProgressHandler(svc *practicetest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ta, err := ownedTestAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			NextModuleID  string `json:"next_module_id"`
			NextAttemptID string `json:"next_attempt_id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		ta, msg, err := svc.SaveProgress(r.Context(), ta.ID, req.NextModuleID, req.NextAttemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		resp := map[string]any{"attempt": ta}
		if msg != "" {
			resp["message"] = msg
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// POST /api/practice-tests/{testAttemptID}/submit
func SubmitPracticeTestHandler(svc *practicetest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ta, err := ownedTestAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		ta, err = svc.Submit(r.Context(), ta.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ta)
	}
}

// GET /api/practice-tests/{testAttemptID}
func GetPracticeTestHandler(svc *practicetest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ta, err := svc.Get(r.Context(), chi.URLParam(r, "testAttemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		sub := auth.SubjectFromContext(r.Context())
		if ta.UserID != sub && !rbac.Allowed(rbac.RoleFromContext(r.Context()), "practice:view-all") {
			writeErr(w, apperr.New(apperr.KindUnauthorized, "not your practice test"))
			return
		}
		writeJSON(w, http.StatusOK, ta)
	}
}

func ownedTestAttempt(r *http.Request, svc *practicetest.Service) (practicetest.TestAttempt, error) {
	ta, err := svc.Get(r.Context(), chi.URLParam(r, "testAttemptID"))
	if err != nil {
		return practicetest.TestAttempt{}, err
	}
	if ta.UserID != auth.SubjectFromContext(r.Context()) {
		return practicetest.TestAttempt{}, apperr.New(apperr.KindUnauthorized, "not your practice test")
	}
	return ta, nil
}
