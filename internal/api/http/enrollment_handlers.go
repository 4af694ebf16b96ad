package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
)

// GET /api/enrollments/{enrollmentID}
func GetEnrollmentHandler(svc *enrollment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enr, err := ownedEnrollment(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enr)
	}
}

// POST /api/enrollments/{enrollmentID}/complete-content  { "content_id": "..." }
func CompleteContentHandler(svc *enrollment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enr, err := ownedEnrollment(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			ContentID string `json:"content_id" validate:"required"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := checkStruct(req); err != nil {
			writeErr(w, err)
			return
		}
		enr, err = svc.CompleteContent(r.Context(), enr.ID, req.ContentID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enr)
	}
}

// POST /api/enrollments/{enrollmentID}/complete-module  { "module_id": "..." }
func CompleteModuleHandler(svc *enrollment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enr, err := ownedEnrollment(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		var req struct {
			ModuleID string `json:"module_id" validate:"required"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := checkStruct(req); err != nil {
			writeErr(w, err)
			return
		}
		enr, err = svc.CompleteModule(r.Context(), enr.ID, req.ModuleID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enr)
	}
}

// POST /api/enrollments/{enrollmentID}/recompute-progress
func RecomputeProgressHandler(svc *enrollment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enr, err := ownedEnrollment(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		enr, err = svc.RecomputeProgress(r.Context(), enr.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enr)
	}
}

func ownedEnrollment(r *http.Request, svc *enrollment.Service) (enrollment.Enrollment, error) {
	enr, err := svc.Get(r.Context(), chi.URLParam(r, "enrollmentID"))
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	if enr.UserID != auth.SubjectFromContext(r.Context()) {
		return enrollment.Enrollment{}, apperr.New(apperr.KindUnauthorized, "not your enrollment")
	}
	return enr, nil
}
