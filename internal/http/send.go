package http

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/alizand/leadwire/internal/dispatch"
	"github.com/alizand/leadwire/internal/http/middleware"
	"github.com/labstack/gommon/log"
	echo "github.com/labstack/echo/v4"
)

type sendReq struct {
	To        string            `json:"to"`
	Body      string            `json:"body"`
	Vars      map[string]string `json:"vars"`
	DedupeKey string            `json:"dedupe_key"`
}

// sendHandler runs one synchronous manual dispatch. Error kinds map to
// distinct HTTP statuses so an interactive caller can react (top-up prompt on
// 402, etc.).
func sendHandler(pipeline *dispatch.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.Body = strings.TrimSpace(req.Body)
		req.DedupeKey = strings.TrimSpace(req.DedupeKey)
		if req.To == "" || req.Body == "" || req.DedupeKey == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "to, body and dedupe_key are required"})
		}
		if utf8.RuneCountInString(req.Body) > 2000 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "body too long"})
		}
		if len(req.DedupeKey) > 128 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "dedupe_key too long"})
		}

		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		out, err := pipeline.Dispatch(c.Request().Context(), dispatch.Request{
			TenantID:  tenantID,
			ToAddress: req.To,
			Template:  req.Body,
			Vars:      req.Vars,
			DedupeKey: req.DedupeKey,
		})

		if err != nil {
			switch {
			case errors.Is(err, dispatch.ErrInvalidAddress):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_address"})
			case errors.Is(err, dispatch.ErrEmptyBody):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty_body"})
			case errors.Is(err, dispatch.ErrNoSender):
				return c.JSON(http.StatusConflict, map[string]any{
					"error":      "no_sender_configured",
					"message_id": out.MessageID,
				})
			case errors.Is(err, dispatch.ErrInsufficientFunds):
				return c.JSON(http.StatusPaymentRequired, map[string]any{
					"error":       "insufficient_funds",
					"description": "wallet balance is not enough to cover the message cost",
					"message_id":  out.MessageID,
				})
			case errors.Is(err, dispatch.ErrTransportFailed):
				return c.JSON(http.StatusBadGateway, map[string]any{
					"error":      "transport_failed",
					"message_id": out.MessageID,
				})
			}

			log.Errorf("dispatch failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "dispatch error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"message_id": out.MessageID,
			"status":     out.Status.String(),
			"duplicate":  out.Duplicate,
		})
	}
}
