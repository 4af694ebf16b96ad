package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

// CatalogWriter is the authoring side of the catalog.
type CatalogWriter interface {
	PutCourse(ctx context.Context, c course.Course) error
	PutQuestion(ctx context.Context, q course.Question) error
}

// GET /api/courses/{courseID}
func GetCourseHandler(catalog course.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		crs, err := catalog.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, crs)
	}
}

// PUT /api/courses/{courseID} — instructor-only (course:publish).
func PutCourseHandler(writer CatalogWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var crs course.Course
		if err := decodeJSON(r, &crs); err != nil {
			writeErr(w, err)
			return
		}
		crs.ID = chi.URLParam(r, "courseID")
		if err := writer.PutCourse(r.Context(), crs); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, crs)
	}
}

// PUT /api/questions/{questionID} — instructor-only (course:publish).
func PutQuestionHandler(writer CatalogWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q course.Question
		if err := decodeJSON(r, &q); err != nil {
			writeErr(w, err)
			return
		}
		q.ID = chi.URLParam(r, "questionID")
		if err := writer.PutQuestion(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// POST /api/modules/{moduleID}/rebuild-snapshot — instructor-only
// (snapshot:rebuild). In-flight attempts keep grading against the old
// payload they loaded; new sessions see the rebuilt one.
func RebuildSnapshotHandler(builder *snapshot.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := builder.Rebuild(r.Context(), chi.URLParam(r, "moduleID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
