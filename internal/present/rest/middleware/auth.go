package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/officechat/internal/domain"
	"github.com/totegamma/officechat/internal/present/rest/presenter"
	"github.com/totegamma/officechat/internal/usecase"
)

var tracer = otel.Tracer("auth")

// AuthMiddleware trusts the identity header set by the authenticating proxy
// and resolves it against the directory.
type AuthMiddleware struct {
	directory usecase.Directory
	header    string
}

func NewAuthMiddleware(
	directory usecase.Directory,
	header string,
) *AuthMiddleware {
	if header == "" {
		header = domain.RequesterIdHeader
	}
	return &AuthMiddleware{
		directory: directory,
		header:    header,
	}
}

func (s *AuthMiddleware) RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.RequireIdentity")
		defer span.End()

		id := strings.TrimSpace(c.Request().Header.Get(s.header))
		if id == "" {
			return presenter.Unauthorized(c)
		}

		identity, err := s.directory.Lookup(ctx, id)
		if err != nil {
			span.RecordError(err)
			if errors.Is(err, domain.ErrNotFound) {
				return presenter.Unauthorized(c)
			}
			return presenter.InternalError(c, err)
		}

		ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, identity.ID)
		ctx = context.WithValue(ctx, domain.RequesterRoleCtxKey, identity.Role)
		span.SetAttributes(attribute.String("RequesterId", identity.ID))

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequesterID returns the identity resolved by RequireIdentity.
func RequesterID(ctx context.Context) string {
	id, _ := ctx.Value(domain.RequesterIdCtxKey).(string)
	return id
}
