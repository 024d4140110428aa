package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/logger"
)

type errorBody struct {
	Error *apperrors.AppError `json:"error"`
}

// CustomErrorHandler renders every error as {"error": {"code", "message", "details"}}
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	log := logger.FromContext(c.Request().Context())

	var appErr *apperrors.AppError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &appErr):
	case errors.As(err, &he):
		appErr = fromHTTPError(he)
	default:
		appErr = apperrors.InternalError(err)
	}

	if appErr.HTTPCode >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "code", appErr.Code, "error", err)
	} else {
		log.Debug("request rejected", "path", c.Path(), "code", appErr.Code, "error", err)
	}

	var renderErr error
	if c.Request().Method == http.MethodHead {
		renderErr = c.NoContent(appErr.HTTPCode)
	} else {
		renderErr = c.JSON(appErr.HTTPCode, errorBody{Error: appErr})
	}
	if renderErr != nil {
		log.Error("failed to write error response", "error", renderErr)
	}
}

func fromHTTPError(he *echo.HTTPError) *apperrors.AppError {
	message := http.StatusText(he.Code)
	if msg, ok := he.Message.(string); ok && msg != "" {
		message = msg
	} else if he.Message != nil {
		message = fmt.Sprint(he.Message)
	}

	switch he.Code {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized.WithMessage(message)
	case http.StatusBadRequest:
		return apperrors.ErrValidationFailed.WithMessage(message)
	}

	code := apperrors.CodeInternalError
	switch he.Code {
	case http.StatusNotFound:
		code = apperrors.CodeNotFound
	case http.StatusMethodNotAllowed:
		code = apperrors.CodeMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		code = apperrors.CodePayloadTooLarge
	}
	return apperrors.New(code, message, he.Code).Wrap(he)
}
