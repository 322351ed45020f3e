package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one line per request. Handled client errors (4xx) are logged
// at warn; server errors and anything that is not an echo.HTTPError at error.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			status := c.Response().Status
			evt := logger.Info()
			if err != nil {
				var he *echo.HTTPError
				switch {
				case errors.As(err, &he) && he.Code < http.StatusInternalServerError:
					status = he.Code
					evt = logger.Warn().Interface("error", he.Message)
				case errors.As(err, &he):
					status = he.Code
					cause := err
					if he.Internal != nil {
						cause = he.Internal
					}
					evt = logger.Error().Err(cause)
				default:
					status = http.StatusInternalServerError
					evt = logger.Error().Err(err)
				}
			}

			evt.
				Str("request_id", RequestIDFrom(c)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("route", c.Path()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
