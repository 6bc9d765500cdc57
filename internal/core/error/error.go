package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "record not found"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Validation reports a malformed request payload (422, as the front end expects).
func Validation(message string) *AppError {
	return New(nil, http.StatusUnprocessableEntity, message)
}

// BadRequest reports a request the server refuses to process.
func BadRequest(err error) *AppError {
	return New(err, http.StatusBadRequest, "")
}

// NotFound reports a missing resource with a caller supplied message.
func NotFound(err error, message string) *AppError {
	return New(err, http.StatusNotFound, message)
}

// Upstream wraps a failure of a third-party dependency (LLM, search, model server).
func Upstream(err error, service string) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, service+" request failed")
}

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the message shown to API clients for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
