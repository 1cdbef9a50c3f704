// internal/form/validate.go
//
// Request decoding and validation for the JSON endpoints.
//
// Context
//   Handlers decode a JSON body into a small request struct whose fields
//   carry go-playground/validator tags.  Decode and Validate turn every
//   problem the client can fix (malformed JSON, wrong types, missing or
//   oversize values) into a ValidationError, so handlers can answer 422
//   with a per-field message map and reserve 500 for system failures.
//
// Workflow
//   •  Bind calls Decode then Validate.
//   •  Field names in errors are the JSON names, not the Go names.
//   •  Messages are full sentences, one list per field, so clients can show
//      them verbatim.
//
// Style
//   Full sentences, two space spacing, Oxford comma.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 64 << 10

// BodyField keys errors that concern the whole body rather than a field.
const BodyField = "body"

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// Errors maps a field name to its user-facing messages.
type Errors map[string][]string

// Add appends msg to field.
func (e Errors) Add(field, msg string) { e[field] = append(e[field], msg) }

// ValidationError wraps Errors and satisfies the error interface.
//
// It allows callers to distinguish user input errors from system failures
// via errors.As / IsValidationError.
type ValidationError struct{ Fields Errors }

func (ve *ValidationError) Error() string {
	keys := make([]string, 0, len(ve.Fields))
	for k := range ve.Fields {
		keys = append(keys, k)
	}
	return "validation failed: " + strings.Join(keys, ", ")
}

// Invalid builds a ValidationError for one field.
func Invalid(field, msg string) error {
	return &ValidationError{Fields: Errors{field: {msg}}}
}

// IsValidationError reports whether err came from Decode or Validate.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Bind decodes the JSON body of r into dst and validates it.
func Bind(r *http.Request, dst any) error {
	if err := Decode(r, dst); err != nil {
		return err
	}
	return Validate(dst)
}

// Decode reads the JSON body of r into dst.  An empty body decodes as {}.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	err := dec.Decode(dst)

	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return Invalid(typeErr.Field, fmt.Sprintf("The %s field must be %s.",
			label(typeErr.Field), kindPhrase(typeErr.Type)))
	default:
		return Invalid(BodyField, "The request body must be a valid JSON object.")
	}
}

// Validate runs the struct's validator tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := Errors{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return &ValidationError{Fields: out}
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

func message(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must not have more than %s items.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", name, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must have at least %s items.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", name, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("The %s field is out of range.", name)
	case "ip":
		return fmt.Sprintf("The %s field must be a valid IP address.", name)
	case "url":
		return fmt.Sprintf("The %s field must be a valid URL.", name)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}

// label turns "session_id" into "session id" for messages.
func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func kindPhrase(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Bool:
		return "true or false"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "of type " + t.String()
	}
}
