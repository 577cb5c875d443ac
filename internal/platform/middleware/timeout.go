package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type TimeoutConfig struct {
	// Timeout of zero or less disables the deadline.
	Timeout time.Duration
	Skipper echomw.Skipper
}

// SkipEventStream exempts the admin event websocket, which stays open for
// the life of the dashboard.
func SkipEventStream(c echo.Context) bool {
	return strings.HasSuffix(c.Request().URL.Path, "/events")
}

// RequestTimeout bounds how long a booking, approval or discharge may hold
// its transaction. The deadline rides on the request context, so pgx
// aborts the query and the transaction rolls back; the caller sees 504.
func RequestTimeout(cfg TimeoutConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = echomw.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if cfg.Timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() { done <- next(c) }()

			select {
			case err := <-done:
				if errors.Is(err, context.DeadlineExceeded) {
					return errTimedOut
				}
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return errTimedOut
				}
				// Client went away.
				return ctx.Err()
			}
		}
	}
}

var errTimedOut = echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
