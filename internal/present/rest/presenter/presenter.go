package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/officechat/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	slog.Debug("Bad request", slog.String("error", err.Error()), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.Debug("Bad request", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "auth_required"})
}

func Forbidden(c echo.Context, err error) error {
	return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	slog.ErrorContext(
		ctx, "Internal error",
		slog.String("error", err.Error()),
		slog.String("path", c.Path()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal_error"})
}

// Error maps the domain error taxonomy onto HTTP statuses.
func Error(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return BadRequest(c, err)
	case errors.Is(err, domain.ErrForbidden):
		return Forbidden(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, err.Error())
	default:
		return InternalError(c, err)
	}
}
