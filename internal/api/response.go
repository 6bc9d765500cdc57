package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	errx "github.com/contentstudio/server/internal/core/error"
	logx "github.com/contentstudio/server/pkg/logger"
)

const maxBodyBytes = 16 << 20

// errorBody is the error shape of every route. detail duplicates message for
// clients written against the previous backend.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// WriteError maps err to its errx status and writes the error body.
// Internal errors are logged with their cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	msg := publicMessage(err)

	evt := logx.Warn()
	if status >= http.StatusInternalServerError {
		evt = logx.Error()
	}
	evt.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")

	WriteJSON(w, status, errorBody{Status: "error", Message: msg, Detail: msg})
}

// publicMessage prefers the AppError message over the wrapped cause.
func publicMessage(err error) string {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if msg := errx.MessageOf(err); msg != "" {
		return msg
	}
	return errx.SystemErrorMessage
}

// decodeJSON reads a JSON object body into dst. Malformed bodies are 400.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errx.New(err, http.StatusBadRequest, "Request body is required")
		}
		return errx.New(err, http.StatusBadRequest, "Invalid JSON body")
	}
	return nil
}
