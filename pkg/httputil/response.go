package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type Envelope map[string]any

type APIError struct {
	Code    string `json:"code"` // bad_request, not_found, unauthorized, dependencies_unhealthy
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body any, headers map[string]string) error {
	if body == nil && status == http.StatusNoContent {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		return nil
	}

	var payload any
	switch body.(type) {
	case *APIError, APIError:
		payload = Envelope{"status": "error", "error": body}
	default:
		payload = Envelope{"status": "ok", "data": body}
	}

	// headers before the status line
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return enc.Encode(payload)
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) error {
	return JSON(w, status, APIError{
		Code:    code,
		Message: message,
		Details: details,
		TraceID: middleware.GetReqID(r.Context()),
	}, map[string]string{
		"Cache-Control": "no-store",
	})
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string, details any) error {
	return Error(w, r, http.StatusBadRequest, "bad_request", message, details)
}

func NotFound(w http.ResponseWriter, r *http.Request, message string) error {
	return Error(w, r, http.StatusNotFound, "not_found", message, nil)
}

// Cached JSON of per-day artifacts, rewritten only by a rerun
func Cached(w http.ResponseWriter, body any) error {
	return JSON(w, http.StatusOK, body, map[string]string{"Cache-Control": "public, max-age=300"})
}
