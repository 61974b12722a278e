package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/healthsync/internal/platform/fhir"
)

// Recovery turns a handler panic into a 500 OperationOutcome. The panic is
// logged with the same request_id and patient fields the access log uses.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				rid, _ := c.Get("request_id").(string)
				evt := logger.Error().
					Str("request_id", rid).
					Str("route", c.Path()).
					Interface("panic", r).
					Bytes("stack", debug.Stack())
				if p := c.Param("fhir_id"); p != "" {
					evt.Str("patient", p)
				}
				evt.Msg("handler panicked")

				if c.Response().Committed {
					err = echo.NewHTTPError(http.StatusInternalServerError)
					return
				}
				err = c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome("internal server error"))
			}()
			return next(c)
		}
	}
}
