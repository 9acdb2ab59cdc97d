package controller

import (
	"errors"
	"fmt"
	"net/http"

	"cloth/service"
	"cloth/validator"

	"github.com/labstack/echo/v4"
)

// ErrorCode is the stable, caller-visible error identifier.
type ErrorCode string

const (
	CodeFlagNotFound     ErrorCode = "FLAG_NOT_FOUND"
	CodeFlagKeyExists    ErrorCode = "FLAG_KEY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeStorageError     ErrorCode = "STORAGE_ERROR"
	CodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
)

const (
	msgFlagNotFound   = "Flag not found"
	msgFlagKeyExists  = "Flag key already exists"
	msgInternal       = "Internal server error"
	msgInvalidBody    = "Invalid request body"
	msgAuthentication = "Authentication required"
)

// ErrUnauthenticated is returned when a request carries no trusted token.
var ErrUnauthenticated = errors.New("authentication required")

// RequestError is structurally malformed caller input. Message is safe to
// return to the caller.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// ErrorResponse is the mapped form of an error: an HTTP status plus the body.
type ErrorResponse struct {
	Status int
	Body   ErrorBody
}

// MapError translates any error into a status, code and a message that never
// carries internal detail.
func MapError(err error) ErrorResponse {
	var (
		reqErr   *RequestError
		httpErr  *echo.HTTPError
		fieldErr validator.ValidationErrors
		valErr   *service.ValidationError
	)

	switch {
	case err == nil:
		return ErrorResponse{Status: http.StatusInternalServerError, Body: ErrorBody{Code: CodeStorageError, Message: msgInternal}}
	case errors.Is(err, ErrUnauthenticated):
		return ErrorResponse{Status: http.StatusUnauthorized, Body: ErrorBody{Code: CodeUnauthorized, Message: msgAuthentication}}
	case errors.As(err, &reqErr):
		return ErrorResponse{Status: http.StatusBadRequest, Body: ErrorBody{Code: CodeInvalidRequest, Message: reqErr.Message}}
	case errors.As(err, &fieldErr):
		msg := "Validation failed"
		if first, ok := fieldErr.First(); ok {
			msg = fmt.Sprintf("Validation failed for %s: %s", first.Field, first.Message)
		}
		return ErrorResponse{Status: http.StatusBadRequest, Body: ErrorBody{Code: CodeValidationFailed, Message: msg}}
	case errors.As(err, &valErr):
		return ErrorResponse{Status: http.StatusBadRequest, Body: ErrorBody{Code: CodeValidationFailed, Message: valErr.Error()}}
	case errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError:
		return ErrorResponse{Status: http.StatusBadRequest, Body: ErrorBody{Code: CodeInvalidRequest, Message: msgInvalidBody}}
	case errors.Is(err, service.ErrFlagNotFound):
		return ErrorResponse{Status: http.StatusNotFound, Body: ErrorBody{Code: CodeFlagNotFound, Message: msgFlagNotFound}}
	case errors.Is(err, service.ErrFlagKeyExists):
		return ErrorResponse{Status: http.StatusConflict, Body: ErrorBody{Code: CodeFlagKeyExists, Message: msgFlagKeyExists}}
	default:
		return ErrorResponse{Status: http.StatusInternalServerError, Body: ErrorBody{Code: CodeStorageError, Message: msgInternal}}
	}
}

// WriteError maps err and writes the error envelope.
func WriteError(c echo.Context, err error) error {
	resp := MapError(err)
	return c.JSON(resp.Status, FailureResponse{Success: false, Error: resp.Body})
}
