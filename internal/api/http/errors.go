package http

import (
	"encoding/json"
	"net/http"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

// statusFor maps domain error kinds onto HTTP status codes. Anything
// unrecognized is a 500.
func statusFor(err error) int {
	switch lms.KindOf(err) {
	case lms.KindNotFound:
		return http.StatusNotFound
	case lms.KindPrerequisiteNotMet, lms.KindDeadlinePassed:
		return http.StatusForbidden
	case lms.KindAlreadyAttempted, lms.KindAlreadyExists:
		return http.StatusConflict
	case lms.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeErr renders a domain error as {error, kind}. Internal failures are
// masked so store-specific text never reaches the caller.
func writeErr(w http.ResponseWriter, err error) {
	code := statusFor(err)
	kind := lms.KindOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		if kind == "" {
			kind = "internal"
		}
		msg = "internal error"
	}
	writeJSONStatus(w, code, map[string]string{"error": msg, "kind": string(kind)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
