// Package response provides helpers for writing consistent JSON HTTP
// responses and the small error taxonomy handlers use to pick a status.
//
// Every error body has the same shape:
//
//	{ "error": "field account is required" }
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Body is the envelope returned for every error.
type Body struct {
	Error string `json:"error"`
}

// Message is the envelope for write operations that only report success.
type Message struct {
	Message string `json:"message"`
}

// Error is an error that carries the HTTP status it should be reported
// with. Errors without a status are reported as 500.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// BadRequest reports a missing or malformed input (400).
func BadRequest(format string, args ...any) error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that the referenced entity does not exist (404).
func NotFound(format string, args ...any) error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
// Header() → WriteHeader() → body, in that order.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes err with the status StatusOf picks for it.
func WriteError(w http.ResponseWriter, err error) error {
	return WriteJSON(w, StatusOf(err), Body{Error: err.Error()})
}

// ValidationError converts validator failures into a single 400 error.
//
// Example message:
//
//	field account is required, field name is required
func ValidationError(errs validator.ValidationErrors) error {
	var msgs []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return &Error{Status: http.StatusBadRequest, Message: strings.Join(msgs, ", ")}
}
