package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/logging"
)

// Health is the liveness endpoint used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// respondError renders err as {"error": msg} with the status of its kind.
// Unclassified failures are logged; their cause never reaches the client.
func respondError(c echo.Context, log zerolog.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, echo.Map{"error": apperr.Message(err)})
}

func handlerLogger(name string) zerolog.Logger {
	return logging.WithComponent("http").With().Str("handler", name).Logger()
}
