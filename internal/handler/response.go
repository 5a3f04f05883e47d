package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stridewear/api/internal/domain"
)

// Response is the envelope every endpoint returns. Data is omitted on
// failures and on responses that only carry a message.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK writes a 200 envelope.
func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

// Created writes a 201 envelope.
func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// Error translates a domain error into the envelope with the matching HTTP
// status. Internal details never reach the client; domain.ErrorMessage
// already hides them.
func Error(c echo.Context, err error) error {
	return c.JSON(statusFromCode(domain.ErrorCode(err)), Response{
		Success: false,
		Message: domain.ErrorMessage(err),
	})
}

func statusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorHandler renders every error that reaches echo through the shared
// envelope, including echo's own HTTPErrors (unknown routes, bind failures),
// so no failure path leaks a different body shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, Response{Success: false, Message: msg})
		return
	}
	_ = Error(c, err)
}

// invalidParam is the shared reply for unparseable path parameters.
func invalidParam(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Message: "invalid " + name,
	})
}
