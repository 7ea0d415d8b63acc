package http

import (
	"errors"
	"net/http"

	"github.com/alizand/leadwire/internal/http/middleware"
	"github.com/alizand/leadwire/internal/identity"
	"github.com/labstack/gommon/log"
	echo "github.com/labstack/echo/v4"
)

// claimIdentityHandler claims a pooled sender identity for the tenant.
// Idempotent: a tenant that already holds one gets it back unchanged.
func claimIdentityHandler(claims *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		ident, err := claims.Claim(c.Request().Context(), tenantID)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrNoneAvailable):
				return c.JSON(http.StatusConflict, map[string]string{"error": "none_available"})
			case errors.Is(err, identity.ErrContention):
				// retriable
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "contention"})
			}
			log.Errorf("claim failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "claim error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"identity_id": ident.ID,
			"address":     ident.Address,
			"pool_type":   ident.PoolType,
		})
	}
}

func releaseIdentityHandler(claims *identity.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		if err := claims.Release(c.Request().Context(), tenantID); err != nil {
			log.Errorf("release failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "release error"})
		}

		return c.JSON(http.StatusOK, map[string]string{"status": "released"})
	}
}
