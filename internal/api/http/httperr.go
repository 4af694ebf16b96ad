package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
)

// writeErr maps the service error taxonomy onto HTTP statuses. Unknown
// errors become opaque 500s; the detail only goes to the log.
func writeErr(w http.ResponseWriter, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnauthorized:
		status = http.StatusForbidden
	case apperr.KindAlreadyFinalized:
		status = http.StatusConflict
	case apperr.KindInvalidState:
		status = http.StatusUnprocessableEntity
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindDataIntegrity:
		status = http.StatusInternalServerError
	default:
		slog.Error("internal error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, "bad json", err)
	}
	return nil
}
