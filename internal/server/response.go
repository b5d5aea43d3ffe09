package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/julianstephens/restreak/internal/errors"
)

type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c echo.Context, status int, data any) error {
	return c.JSON(status, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func failure(c echo.Context, err error) error {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "An unexpected error occurred"
	}
	return c.JSON(status, Response{
		Success:   false,
		Error:     &ErrorInfo{Code: code, Message: msg},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func statusFor(err error) (int, string) {
	switch errors.KindOf(err) {
	case errors.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case errors.KindInvalidInput:
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.KindWriteRejected:
		return http.StatusBadGateway, "WRITE_REJECTED"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
