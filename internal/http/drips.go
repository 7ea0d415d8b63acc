package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/alizand/leadwire/internal/http/middleware"
	"github.com/alizand/leadwire/internal/repository"
	"github.com/alizand/leadwire/internal/util"
	echo "github.com/labstack/echo/v4"
)

type enrollReq struct {
	Address     string `json:"address"`
	SequenceKey string `json:"sequence_key"`
}

// enrollDripHandler enrolls a contact into a follow-up sequence at day 2 (the
// day-1 message belongs to the intake flow that precedes enrollment).
// Re-enrolling the same contact and sequence is a no-op.
func enrollDripHandler(contacts repository.ContactsRepository, trackers repository.DripTrackersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var req enrollReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.SequenceKey = strings.TrimSpace(req.SequenceKey)
		if req.SequenceKey == "" || len(req.SequenceKey) > 64 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "sequence_key is required"})
		}

		addr := util.NormalizeAddress(req.Address)
		if !util.ValidAddress(addr) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_address"})
		}

		contact, err := contacts.UpsertByAddress(c.Request().Context(), tenantID, addr)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if !contact.Subscribed {
			return c.JSON(http.StatusConflict, map[string]string{"error": "contact_unsubscribed"})
		}

		if err := trackers.Start(c.Request().Context(), tenantID, contact.ID, req.SequenceKey, time.Now()); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"contact_id":   contact.ID,
			"sequence_key": req.SequenceKey,
			"enrolled":     true,
		})
	}
}
