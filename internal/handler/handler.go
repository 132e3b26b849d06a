// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/phoebe/phoebe/internal/access"
	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/middleware"
	"github.com/phoebe/phoebe/internal/service"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the root, 404 and 405 responses.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Root describes the API.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "phoebe",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, middleware.CodeNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	middleware.WriteError(w, status, code, message)
}

// decodeJSON reads a request body into dst and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, middleware.CodePayloadTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "invalid request body")
		return false
	}
	if err := dto.Validate(dst); err != nil {
		writeError(w, http.StatusBadRequest, middleware.CodeValidationFailed, err.Error())
		return false
	}
	return true
}

// pageParams reads the page and size query parameters. Bounds are applied
// by the service.
func pageParams(r *http.Request) (page, size int, err error) {
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.New("page must be an integer")
		}
	}
	if v := q.Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			return 0, 0, errors.New("size must be an integer")
		}
	}
	return page, size, nil
}

// handleServiceError maps service and access errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, access.ErrAccessDenied):
		writeError(w, http.StatusForbidden, middleware.CodeForbidden, "access denied")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, middleware.CodeUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, middleware.CodeNotFound, "resource not found")
	case errors.Is(err, service.ErrStaleVersion):
		writeError(w, http.StatusConflict, middleware.CodeConflict, "resource was modified, reload and retry")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, middleware.CodeConflict, service.Message(err))
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, middleware.CodeValidationFailed, service.Message(err))
	case errors.Is(err, service.ErrBulkNotConfirmed):
		writeError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "bulk action requires confirmed=true")
	default:
		logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, middleware.CodeInternal, "an internal error occurred")
	}
}
