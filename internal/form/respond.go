// internal/form/respond.go
//
// JSON response helpers shared by the API components.
//
// Context
//   Every JSON error body carries a `message`.  Validation failures add an
//   `errors` object mapping field names to message lists, answered with
//   422 Unprocessable Entity.  Unexpected failures are logged with zap and
//   answered with a generic 500 so internals never leak to clients.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// InvalidMessage is the top-level message of a 422 response.
const InvalidMessage = "The given data was invalid."

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string `json:"message"`
	Errors  Errors `json:"errors,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("json encode failed", zap.Error(err))
	}
}

// Error writes {"message": msg} with status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Message: msg})
}

// Fail maps err to a response: ValidationError → 422, anything else → 500
// (logged with the request path).
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		JSON(w, http.StatusUnprocessableEntity, ErrorBody{Message: InvalidMessage, Errors: ve.Fields})
		return
	}
	zap.L().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	Error(w, http.StatusInternalServerError, "Internal server error.")
}
