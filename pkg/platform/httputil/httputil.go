// Package httputil holds the JSON response and request-parsing helpers
// shared by every handler package.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	dErrors "orgstructure/pkg/domain-errors"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// TotalCountHeader carries the unpaginated size of a list response.
const TotalCountHeader = "X-Total-Count"

type errorBody struct {
	Detail any    `json:"detail"`
	Error  string `json:"error"`
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvariantViolation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable, dErrors.CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as {"detail": ..., "error": code}. Internal errors
// never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	var detail any = "internal server error"
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		if code != dErrors.CodeInternal {
			detail = de.Message
			if de.Details != nil {
				detail = de.Details
			}
		}
	}
	if code == dErrors.CodeUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	WriteJSON(w, StatusFor(code), errorBody{Detail: detail, Error: string(code)})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteList writes a list body and its total count header.
func WriteList(w http.ResponseWriter, items any, total int) {
	w.Header().Set(TotalCountHeader, strconv.Itoa(total))
	WriteJSON(w, http.StatusOK, items)
}

// DecodeJSON decodes the request body into dst. Malformed bodies are
// validation errors; an empty body decodes to the zero value.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request body: "+err.Error())
	}
	return nil
}
