package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
	"github.com/pathlight-learning/pathlight-lms/internal/rbac"
)

// POST /api/attempts/start  { "module_id": "...", "parent_id": "..." }
func StartAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ModuleID string `json:"module_id" validate:"required"`
			ParentID string `json:"parent_id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := checkStruct(req); err != nil {
			writeErr(w, err)
			return
		}
		a, err := svc.Start(r.Context(), auth.SubjectFromContext(r.Context()), req.ModuleID, req.ParentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /api/attempts/{attemptID}/timer — arms (or re-reads) the countdown.
func StartTimerHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ownedAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		a, remaining, err := svc.StartTimedSession(r.Context(), a.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attempt": a, "remaining_sec": remaining})
	}
}

// PUT /api/attempts/{attemptID}/answers
func SaveAnswersHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ownedAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req attempt.SaveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		a, err = svc.SaveAnswers(r.Context(), a.ID, req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /api/attempts/{attemptID}/submit
func SubmitAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ownedAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			Answers       map[string]any `json:"answers"`
			AutoSubmitted bool           `json:"auto_submitted"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		a, err = svc.Submit(r.Context(), a.ID, req.Answers, req.AutoSubmitted)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /api/attempts/{attemptID}
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := viewableAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /api/attempts?module_id=&status=&user_id=
// Students only see their own; graders may filter by any user.
func ListAttemptsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		role := rbac.RoleFromContext(r.Context())
		opts := attempt.ListOpts{
			UserID:   r.URL.Query().Get("user_id"),
			ModuleID: r.URL.Query().Get("module_id"),
			ParentID: r.URL.Query().Get("parent_id"),
			Status:   attempt.Status(r.URL.Query().Get("status")),
		}
		if !rbac.Allowed(role, "attempt:view-all") {
			opts.UserID = sub
		}
		out, err := svc.List(r.Context(), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		if out == nil {
			out = []attempt.Attempt{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ownedAttempt loads the routed attempt and requires the caller to own it.
func ownedAttempt(r *http.Request, svc *attempt.Service) (attempt.Attempt, error) {
	a, err := svc.Get(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		return attempt.Attempt{}, err
	}
	if a.UserID != auth.SubjectFromContext(r.Context()) {
		return attempt.Attempt{}, apperr.New(apperr.KindUnauthorized, "not your attempt")
	}
	return a, nil
}

// viewableAttempt allows the owner or anyone holding attempt:view-all.
func viewableAttempt(r *http.Request, svc *attempt.Service) (attempt.Attempt, error) {
	a, err := svc.Get(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		return attempt.Attempt{}, err
	}
	if a.UserID == auth.SubjectFromContext(r.Context()) {
		return a, nil
	}
	if rbac.Allowed(rbac.RoleFromContext(r.Context()), "attempt:view-all") {
		return a, nil
	}
	return attempt.Attempt{}, apperr.New(apperr.KindUnauthorized, "not your attempt")
}
