package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is a machine-readable code plus a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorKinds maps domain sentinels to status and code, checked in order.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrDirections, http.StatusBadGateway, "directions_unavailable"},
	{domain.ErrWrite, http.StatusBadGateway, "write_failed"},
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// fail maps err to an HTTP error reply. Unclassified errors are logged and
// reported as a bare 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			if k.status >= http.StatusInternalServerError {
				s.Logger.WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "error", err)
			}
			writeErrorBody(w, k.status, k.code, unwrapMessage(err, k.err))
			return
		}
	}
	s.Logger.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
	writeErrorBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// notImplemented answers routes whose optional collaborator is not configured.
func notImplemented(w http.ResponseWriter, feature string) {
	writeErrorBody(w, http.StatusNotImplemented, "not_configured", feature+" is not configured")
}

// unwrapMessage extracts the human-readable part after the sentinel.
// e.g. "service.TripService.Create: validation error: unknown cover color" → "unknown cover color"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

// decode reads a JSON body into v. On failure it writes the error reply
// and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErrorBody(w, http.StatusRequestEntityTooLarge, "body_too_large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body: "+err.Error())
	return false
}
