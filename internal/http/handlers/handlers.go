// Package handlers holds what the resource handlers share: the handler
// signature the router adapts, and JSON body decoding with validation.
//
// Handlers report failures by returning an error instead of writing it.
// The router turns the error into a response exactly once, using
// response.StatusOf to pick 400/404/500.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-tracker/internal/utils/response"
)

// Func is an HTTP handler that returns its failure instead of writing it.
type Func func(w http.ResponseWriter, r *http.Request) error

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so messages match the payload.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// DecodeJSON reads the request body into dst. An empty or malformed body
// is a 400.
func DecodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return response.BadRequest("request body is empty")
	}
	if err != nil {
		return response.BadRequest("invalid JSON body: %s", err.Error())
	}
	return nil
}

// Validate checks the validate:"..." tags on v. Failures are a 400.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return response.ValidationError(verrs)
	}
	return err
}

// DecodeAndValidate is DecodeJSON followed by Validate.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	return Validate(dst)
}
