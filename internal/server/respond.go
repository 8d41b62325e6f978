package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"volunteerhub/pkg/types"
)

const maxJSONBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response body")
	}
}

func (s *Service) writeErrorStatus(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Fields: fields})
}

// statusFor maps workflow errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateApplication),
		errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, types.ErrOpportunityClosed),
		errors.Is(err, types.ErrCapacityExceeded),
		errors.Is(err, types.ErrConstraintViolation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing text for err: the text of the matching
// sentinel, never the wrapped chain. Storage and unknown failures are not
// echoed back.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		types.ErrNotAuthorized,
		types.ErrProfileNotFound,
		types.ErrNGODetailsNotFound,
		types.ErrOpportunityNotFound,
		types.ErrApplicationNotFound,
		types.ErrNotFound,
		types.ErrDuplicateApplication,
		types.ErrInvalidTransition,
		types.ErrOpportunityClosed,
		types.ErrCapacityExceeded,
		types.ErrConstraintViolation,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		s.writeErrorStatus(w, http.StatusBadRequest, types.ErrValidation.Error(), verr.Fields)
		return
	}

	status := statusFor(err)
	entry := s.logger.WithError(err).WithField("path", r.URL.Path)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	s.writeErrorStatus(w, status, publicMessage(err), nil)
}

func (s *Service) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		msg := "request body must be valid JSON"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		s.writeErrorStatus(w, http.StatusBadRequest, msg, map[string]string{"body": err.Error()})
		return false
	}

	return true
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.PathValue(name))
}

// queryLimit parses ?limit=. Invalid values fall back to 0, which lets the
// engine apply its default.
func queryLimit(r *http.Request) uint64 {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func fieldError(field, format string, args ...any) *types.ValidationError {
	return types.NewValidationError(field, fmt.Sprintf(format, args...))
}
