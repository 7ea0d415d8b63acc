package http

import (
	"net/http"
	"strings"

	"github.com/alizand/leadwire/internal/inbound"
	"github.com/labstack/gommon/log"
	echo "github.com/labstack/echo/v4"
)

// inboundWebhookHandler is the transport provider's inbound-message boundary.
// Authenticated with a shared token rather than a tenant API key; the payload
// names the tenant.
func inboundWebhookHandler(h *inbound.Handler, token string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token != "" {
			got := strings.TrimSpace(c.Request().Header.Get("X-Webhook-Token"))
			if got != token {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "bad token"})
			}
		}

		var ev inbound.Event
		if err := c.Bind(&ev); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if ev.TenantID <= 0 || ev.FromAddress == "" || ev.ProviderRef == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "tenant_id, contact_address and provider_ref are required"})
		}

		if err := h.Handle(c.Request().Context(), ev); err != nil {
			log.Errorf("inbound webhook failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "inbound error"})
		}

		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
