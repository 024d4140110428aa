package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/logger"
	"school_fees_echo/internal/services"
)

// ContextKeyUserID is where RequireAuth stores the authenticated user ID (uint)
const ContextKeyUserID = "userID"

// RequireAuth returns a middleware that verifies "Authorization: Bearer <token>"
func RequireAuth(authenticator services.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authenticator == nil {
				return apperrors.ErrUnauthorized.WithMessage("Authentication is not configured")
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return apperrors.ErrUnauthorized
			}

			userID, err := authenticator.Authenticate(c.Request().Context(), strings.TrimSpace(token))
			if err != nil {
				logger.FromContext(c.Request().Context()).Debug("authentication failed", "error", err)
				return apperrors.From(err)
			}

			// Set user info in context for downstream handlers
			c.Set(ContextKeyUserID, userID)
			ctx := logger.WithUserID(c.Request().Context(), userID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequestContext copies the Echo request ID into the request context for logger.FromContext
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				c.SetRequest(c.Request().WithContext(logger.WithRequestID(c.Request().Context(), id)))
			}
			return next(c)
		}
	}
}
