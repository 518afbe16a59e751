package v1

import (
	"github.com/labstack/echo/v4"

	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
)

const (
	apiKeyHeader = "x-api-key"
	ownerHeader  = "x-owner-id"

	ownerContextKey = "owner"
)

// authMiddleware enforces the shared-secret key when one is configured and
// requires an explicit owner on every request. There is no implicit default
// owner: a request without x-owner-id is a client bug, not a guest session.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.Secret != "" && c.Request().Header.Get(apiKeyHeader) != s.Secret {
			return errorJSON(c, serrors.New(serrors.ErrCodeUnauthorized, "invalid api key"))
		}

		owner := c.Request().Header.Get(ownerHeader)
		if owner == "" {
			return errorJSON(c, serrors.New(serrors.ErrCodeInvalidArgument, "x-owner-id header is required"))
		}
		c.Set(ownerContextKey, owner)
		return next(c)
	}
}

func ownerFrom(c echo.Context) string {
	owner, _ := c.Get(ownerContextKey).(string)
	return owner
}
