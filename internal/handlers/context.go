package handlers

import (
	"github.com/labstack/echo/v4"
)

// Helper to safely get a uint from context
func getUintFromContext(c echo.Context, key string) uint {
	val := c.Get(key)
	if val == nil {
		return 0
	}
	uintVal, ok := val.(uint)
	if !ok {
		return 0
	}
	return uintVal
}
