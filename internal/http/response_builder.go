// Package http exposes the ledger as a JSON API.
//
// This file holds the fluent builder every handler writes its response with.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"maasser/internal/auth"
	"maasser/internal/core"
	applog "maasser/internal/log"
	"maasser/internal/services"
)

// JSONResponseBuilder collects status, headers and body, then writes them once.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes none.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", `Bearer realm="maasser"`)
}

// errMalformedBody marks request bodies that are not valid JSON.
var errMalformedBody = errors.New("malformed request body")

// writeError maps a service error to its status. Unexpected errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errMalformedBody):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, services.ErrInvalidInput):
		UnprocessableEntityError(validationMessage(err)).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("record not found").Write(w)
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
		UnauthorizedError("unauthorized").Write(w)
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP)).
			LogError(r.Context(), "Request failed", err, applog.ErrorTypeInternal, r.Method+" "+r.URL.Path, applog.NewFields())
		InternalServerError("internal error").Write(w)
	}
}

// validationMessage strips the generic prefix so clients see the cause.
func validationMessage(err error) string {
	for _, e := range []error{
		core.ErrInvalidAmount, core.ErrInvalidSource, core.ErrInvalidCategory,
		core.ErrInvalidDate, core.ErrEmptyName, core.ErrMissingBeneficiary,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return err.Error()
}
