package mercadopagowebhook

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/multierr"

	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/mercadopago"
	"github.com/angelmondragon/vinoteca-backend/pkg/metrics"
	"github.com/angelmondragon/vinoteca-backend/pkg/pubsub"
)

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type orderStore interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
	RecordPayment(ctx context.Context, id, paymentID string, status enums.PaymentStatus) error
}

type stockDecrementer interface {
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
}

type guard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type ServiceParams struct {
	Payments  paymentFetcher
	Orders    orderStore
	Stock     stockDecrementer
	Guard     guard
	Publisher pubsub.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

type Service struct {
	payments  paymentFetcher
	orders    orderStore
	stock     stockDecrementer
	guard     guard
	publisher pubsub.EventPublisher
	metrics   *metrics.Metrics
	logg      *logger.Logger
}

// Result summarizes what a notification did.
type Result struct {
	Ignored     bool     `json:"ignored,omitempty"`
	Duplicate   bool     `json:"duplicate,omitempty"`
	PaymentID   string   `json:"payment_id,omitempty"`
	Status      string   `json:"status,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
	Decremented []string `json:"decremented,omitempty"`
	Failed      []string `json:"failed,omitempty"`
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment client required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Publisher == nil {
		params.Publisher = pubsub.NoopPublisher{}
	}
	return &Service{
		payments:  params.Payments,
		orders:    params.Orders,
		stock:     params.Stock,
		guard:     params.Guard,
		publisher: params.Publisher,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// HandleNotification fetches the payment behind a notification, records it on
// its order and, once approved, decrements stock one product at a time. Per-product
// failures are logged and never fail the notification.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (*Result, error) {
	if !n.IsPayment() {
		return &Result{Ignored: true}, nil
	}
	if n.PaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
	}
	ctx = s.logg.WithField(ctx, "payment_id", n.PaymentID)

	payment, err := s.payments.GetPayment(ctx, n.PaymentID)
	if err != nil {
		// A 4xx means the gateway does not know the payment; redelivery cannot fix that.
		var apiErr *mercadopago.APIError
		if errors.As(err, &apiErr) && apiErr.ClientError() {
			s.logg.Warn(s.logg.WithField(ctx, "gateway_status", apiErr.StatusCode), "mercadopago.payment_not_found")
			return &Result{Ignored: true, PaymentID: n.PaymentID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch payment")
	}
	status := enums.PaymentStatus(payment.Status)
	result := &Result{
		PaymentID: n.PaymentID,
		Status:    payment.Status,
		OrderID:   payment.ExternalReference,
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"order_id": payment.ExternalReference, "payment_status": payment.Status})

	key := n.PaymentID + ":" + payment.Status
	seen, err := s.guard.CheckAndMark(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency check")
	}
	if seen {
		s.logg.Info(ctx, "mercadopago.webhook_duplicate")
		result.Duplicate = true
		return result, nil
	}

	if err := s.process(ctx, payment, status, result); err != nil {
		if delErr := s.guard.Delete(ctx, key); delErr != nil {
			s.logg.Error(ctx, "mercadopago.idempotency_release_failed", delErr)
		}
		return nil, err
	}
	s.logg.Info(ctx, "mercadopago.webhook_processed")
	return result, nil
}

func (s *Service) process(ctx context.Context, payment *mercadopago.Payment, status enums.PaymentStatus, result *Result) error {
	var order *orders.Order
	if payment.ExternalReference != "" {
		if err := s.orders.RecordPayment(ctx, payment.ExternalReference, strconv.FormatInt(payment.ID, 10), status); err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return err
			}
			s.logg.Warn(ctx, "mercadopago.order_not_found")
		}
	}

	if status != enums.PaymentStatusApproved {
		return nil
	}

	items := payment.Metadata.Items
	if len(items) == 0 && payment.ExternalReference != "" {
		loaded, err := s.orders.Get(ctx, payment.ExternalReference)
		if err == nil {
			order = loaded
			for _, item := range order.Items {
				items = append(items, mercadopago.MetadataItem{ProductID: item.ProductID, Quantity: mercadopago.Quantity(item.Quantity)})
			}
		} else {
			s.logg.Error(ctx, "mercadopago.order_items_unavailable", err)
		}
	}

	var failures error
	for _, item := range items {
		if err := s.decrement(ctx, item); err != nil {
			result.Failed = append(result.Failed, item.ProductID)
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", item.ProductID, err))
			continue
		}
		result.Decremented = append(result.Decremented, item.ProductID)
	}
	if failures != nil {
		s.logg.Error(s.logg.WithField(ctx, "failed_products", result.Failed), "mercadopago.stock_decrement_partial", failures)
	}

	if err := s.publisher.Publish(ctx, pubsub.EventPaymentApproved, map[string]any{
		"payment_id":  result.PaymentID,
		"order_id":    payment.ExternalReference,
		"amount":      payment.TransactionAmount,
		"decremented": result.Decremented,
		"failed":      result.Failed,
	}); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "mercadopago.event_publish_failed")
	}
	return nil
}

// decrement applies one product's stock change as its own atomic unit.
func (s *Service) decrement(ctx context.Context, item mercadopago.MetadataItem) error {
	ctx = s.logg.WithFields(ctx, map[string]any{"product_id": item.ProductID, "quantity": int(item.Quantity)})
	remaining, err := s.stock.DecrementStock(ctx, item.ProductID, int(item.Quantity))
	switch {
	case err == nil:
		s.metrics.IncStockDecrement("success")
		s.logg.Info(s.logg.WithField(ctx, "remaining", remaining), "stock.decremented")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock):
		s.metrics.IncStockDecrement("insufficient")
		s.logg.Warn(ctx, "stock.insufficient")
	default:
		s.metrics.IncStockDecrement("error")
		s.logg.Error(ctx, "stock.decrement_failed", err)
	}
	return err
}
