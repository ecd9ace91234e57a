package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/vinoteca-backend/api/responses"
	mpwebhook "github.com/angelmondragon/vinoteca-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

const maxNotificationBytes = 64 << 10

type MercadoPagoWebhookService interface {
	HandleNotification(ctx context.Context, n mpwebhook.Notification) (*mpwebhook.Result, error)
}

// MercadoPagoWebhook acknowledges malformed or irrelevant deliveries with 200.
// Dependency failures answer 5xx so the gateway redelivers the notification.
func MercadoPagoWebhook(svc MercadoPagoWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		notification, err := mpwebhook.ParseNotification(payload, r.URL.Query())
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "mercadopago.webhook.unparseable")
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		ctx = logg.WithFields(ctx, map[string]any{
			"notification_type": notification.Kind,
			"payment_id":        notification.PaymentID,
		})
		result, err := svc.HandleNotification(ctx, notification)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "mercadopago.webhook.rejected")
				responses.WriteSuccess(w, map[string]bool{"received": true})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
