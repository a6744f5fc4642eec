package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmarquez/online_store/internal/logging"
	"github.com/dmarquez/online_store/internal/service"
	"github.com/dmarquez/online_store/internal/stripe"
	"github.com/dmarquez/online_store/internal/transport"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 64 << 10

type WebhookHTTP struct {
	Reconciler    *service.PaymentReconciler
	WebhookSecret string
}

// HandleStripeWebhook verifies the provider signature over the raw body
// and hands the event to the reconciler. Handler failures are logged
// but still acknowledged with 200: surfacing them would only make the
// provider retry forever, and reconciliation races are not faults.
func (h *WebhookHTTP) HandleStripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "webhook.stripe")

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "unreadable body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	sig := c.Request().Header.Get(stripe.SignatureHeader)
	event, err := stripe.ConstructEvent(payload, sig, h.WebhookSecret)
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) {
			l.Warn("webhook_error", "status", 400, "reason", "bad signature", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		l.Warn("webhook_error", "status", 400, "reason", "bad payload", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	l.Info("webhook_event_received", "event_id", event.ID, "type", event.Type)

	if err := h.Reconciler.HandleProviderEvent(ctx, event); err != nil {
		l.Error("webhook_event_failed", "event_id", event.ID, "type", event.Type, "error", err)
	}

	return c.JSON(http.StatusOK, transport.WebhookResponse{Received: true})
}
