package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/hostelkit/pkg/binder"
	"github.com/dmitrymomot/hostelkit/pkg/validator"
	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// JSONResponse is the response envelope. Success mirrors whether Error is
// set; Message repeats the error message for clients that only read it.
type JSONResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j *jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

// WithJSONStatus overrides the status code.
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// WithJSONMessage sets the top-level message.
func WithJSONMessage(msg string) JSONOption {
	return func(r *jsonResponse) { r.body.Message = msg }
}

// WithJSONMeta attaches metadata.
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) { r.body.Meta = meta }
}

// JSON responds 200 with v as data. An error value is rendered as JSONError.
func JSON(v any, opts ...JSONOption) Response {
	if err, ok := v.(error); ok {
		return JSONError(err, opts...)
	}
	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{Success: true, Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError responds with err mapped to a status code and error detail.
func JSONError(err error, opts ...JSONOption) Response {
	status, detail := ErrorToDetail(err)
	r := &jsonResponse{status: status, body: JSONResponse{Message: detail.Message, Error: detail}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type codedError interface {
	HTTPStatus() int
	ErrorCode() string
}

type detailedError interface {
	Details() map[string]any
}

// ErrorToDetail maps err to a status and the detail shown to clients.
// Messages of unclassified errors are not exposed.
func ErrorToDetail(err error) (int, *ErrorDetail) {
	detail := &ErrorDetail{Code: billing.CodeInternal, Message: "internal error"}
	status := http.StatusInternalServerError

	var (
		coded    codedError
		domain   *billing.Error
		detailed detailedError
	)
	switch {
	case errors.As(err, &coded):
		status = coded.HTTPStatus()
		detail.Code = coded.ErrorCode()
		detail.Message = http.StatusText(status)
		if errors.As(err, &domain) {
			detail.Message = domain.Message
		}
	case billing.IsTransient(err):
		status = http.StatusServiceUnavailable
		detail.Code = billing.CodeUnavailable
		detail.Message = "service temporarily unavailable"
	case errors.Is(err, binder.ErrMissingContentType), errors.Is(err, binder.ErrUnsupportedMediaType):
		status = http.StatusUnsupportedMediaType
		detail.Code = billing.CodeValidation
		detail.Message = err.Error()
	case errors.Is(err, binder.ErrBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
		detail.Code = billing.CodeValidation
		detail.Message = err.Error()
	case isBindError(err):
		status = http.StatusBadRequest
		detail.Code = billing.CodeValidation
		detail.Message = err.Error()
	case errors.Is(err, validator.ErrValidationFailed):
		status = http.StatusBadRequest
		detail.Code = billing.CodeValidation
		detail.Message = "validation failed"
	}

	if errors.As(err, &detailed) {
		detail.Details = detailed.Details()
	}
	if fields := validator.Extract(err); len(fields) > 0 {
		if detail.Details == nil {
			detail.Details = make(map[string]any, 1)
		}
		detail.Details["fields"] = fields.Fields()
	}
	return status, detail
}

func isBindError(err error) bool {
	for _, target := range []error{binder.ErrInvalidJSON, binder.ErrInvalidForm, binder.ErrInvalidQuery, binder.ErrInvalidPath} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
