// Package helpers holds the JSON request and response plumbing shared by the
// controllers.
package helpers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bookreview_server/logging"
	"bookreview_server/services"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteJSONResponse writes data as JSON with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes {"error": msg} for err. Internal causes are logged and
// replaced by a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logging.Ctx(r.Context()).Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	WriteJSONResponse(w, status, map[string]string{"error": services.PublicMessage(err)})
}

// DecodeJSON reads a JSON body into dst and validates its struct tags. The
// returned error is a validation error ready for WriteError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &services.Error{Kind: services.KindValidation, Op: "decode", Msg: "request body is required"}
		}
		return &services.Error{Kind: services.KindValidation, Op: "decode", Msg: "invalid request payload", Err: err}
	}
	if err := validate.Struct(dst); err != nil {
		return &services.Error{Kind: services.KindValidation, Op: "validate", Msg: describe(err), Err: err}
	}
	return nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request payload"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
