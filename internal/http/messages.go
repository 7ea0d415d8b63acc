package http

import (
	"net/http"
	"strings"

	"github.com/alizand/leadwire/internal/http/middleware"
	"github.com/alizand/leadwire/internal/repository"
	echo "github.com/labstack/echo/v4"
)

// getMessageHandler returns the authoritative state of one message, for
// callers polling a dispatch they started.
func getMessageHandler(msgs repository.MessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing id"})
		}

		m, err := msgs.GetByID(c.Request().Context(), id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if m == nil || m.TenantID != tenantID {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		resp := map[string]any{
			"message_id": m.ID,
			"direction":  string(m.Direction),
			"to":         m.ToAddress,
			"status":     m.Status.String(),
			"cost":       m.Cost,
			"dedupe_key": m.DedupeKey,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		}
		if m.ProviderRef != nil {
			resp["provider_ref"] = *m.ProviderRef
		}
		if m.ErrorDetail != nil {
			resp["error_detail"] = *m.ErrorDetail
		}
		return c.JSON(http.StatusOK, resp)
	}
}
