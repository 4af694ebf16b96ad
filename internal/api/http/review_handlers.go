package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
)

// POST /api/attempts/{attemptID}/items/{itemIndex}/review
// Instructor-only (route guarded by attempt:grade).
func ReviewItemHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "itemIndex"))
		if err != nil {
			writeErr(w, apperr.New(apperr.KindValidation, "item index must be an integer"))
			return
		}
		var req struct {
			Points float64 `json:"points"`
			Notes  string  `json:"notes"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		a, err := svc.ReviewItem(r.Context(), chi.URLParam(r, "attemptID"), idx,
			req.Points, req.Notes, auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
