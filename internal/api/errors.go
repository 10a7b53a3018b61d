package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/campus-messaging/internal/service"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Kind       string `json:"kind"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(statusCode int, kind string) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    lower(http.StatusText(statusCode)),
		Kind:       kind,
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest, string(service.KindValidation))
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound, string(service.KindNotFound))
}

func NewInternalServerError(err error) *ApiError {
	e := newApiError(http.StatusInternalServerError, string(service.KindInternal))
	e.Err = err
	return e
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, "unauthorized")
}

func NewForbiddenError() *ApiError {
	return newApiError(http.StatusForbidden, string(service.KindForbidden))
}

// fromServiceError maps a service failure onto its response. Client errors
// carry the service message; internal errors keep theirs out of the body.
func fromServiceError(err error) *ApiError {
	var e *ApiError
	switch service.KindOf(err) {
	case service.KindValidation:
		e = NewBadRequestError()
	case service.KindNotFound:
		e = NewNotFoundError()
	case service.KindForbidden:
		e = NewForbiddenError()
	default:
		return NewInternalServerError(err)
	}

	var serr *service.Error
	if errors.As(err, &serr) && serr.Message != "" {
		e.Message = serr.Message
	}
	return e
}
