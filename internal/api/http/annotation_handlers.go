package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
)

// PUT /api/attempts/{attemptID}/questions/{questionID}/annotations
// Merge-patch: only the areas present in the body are touched.
func SaveAnnotationsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ownedAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		var patch attempt.QuestionPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeErr(w, err)
			return
		}
		a, err = svc.SaveAnnotations(r.Context(), a.ID, chi.URLParam(r, "questionID"), patch)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.Annotations)
	}
}

// DELETE /api/attempts/{attemptID}/questions/{questionID}/annotations/{area}/{highlightID}
// Idempotent: deleting an absent highlight still returns 200.
func DeleteAnnotationHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := ownedAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		a, err = svc.DeleteAnnotation(r.Context(), a.ID,
			chi.URLParam(r, "questionID"), chi.URLParam(r, "area"), chi.URLParam(r, "highlightID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.Annotations)
	}
}
