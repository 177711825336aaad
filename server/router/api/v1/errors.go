package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/angelo/ai/conversation"
	"github.com/hrygo/angelo/ai/speech"
	"github.com/hrygo/angelo/store"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, conversation.ErrSessionNotFound),
		errors.Is(err, conversation.ErrUnknownMember),
		errors.Is(err, store.ErrPreferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidPreference),
		errors.Is(err, speech.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, speech.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, speech.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorFor(c echo.Context, err error) error {
	return jsonError(c, statusFor(err), err.Error())
}
