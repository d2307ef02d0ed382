package middleware

import (
	"context"

	"adserve/business/serving"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestTrace assigns every request a trace id, propagated through the
// request context so serving logs can be correlated.
func RequestTrace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			traceID := c.Request().Header.Get("X-Trace-Id")
			if traceID == "" {
				traceID = uuid.NewString()
			}

			ctx := context.WithValue(c.Request().Context(), serving.TraceIDKey, traceID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set("X-Trace-Id", traceID)

			return next(c)
		}
	}
}
