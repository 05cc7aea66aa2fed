package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avoron/tinychat/internal/common"
)

// response is the uniform API envelope. Exactly one of Result and the
// error pair is populated.
type response struct {
	OK           bool   `json:"ok"`
	Result       any    `json:"result,omitempty"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// errorKind maps a service error to its API kind and HTTP status.
func errorKind(err error) (string, int) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return "InvalidInput", http.StatusBadRequest
	case errors.Is(err, common.ErrorAlreadyExists):
		return "AlreadyExists", http.StatusBadRequest
	case errors.Is(err, common.ErrorAlreadyMember):
		return "AlreadyMember", http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return "Unauthorized", http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return "Forbidden", http.StatusForbidden
	case errors.Is(err, common.ErrorNotMember):
		return "NotMember", http.StatusNotFound
	case errors.Is(err, common.ErrorNotFound):
		return "NotFound", http.StatusNotFound
	default:
		return "StorageFailure", http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeResult sends a 200 envelope. A nil result marshals to {"ok":true}.
func (s *Server) writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, response{OK: true, Result: result})
}

// writeError sends an error envelope. Unexpected errors are logged and
// reported as an opaque internal failure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := errorKind(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", msg)
		msg = "internal server error"
	}
	writeJSON(w, status, response{OK: false, ErrorKind: kind, ErrorMessage: msg})
}

// decodeBody reads a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ErrorValidation
	}
	return nil
}
