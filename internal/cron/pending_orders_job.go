package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/pagination"
)

const defaultPendingOrderTTL = 72 * time.Hour

type orderManager interface {
	List(ctx context.Context, params orders.ListParams) (*orders.ListResult, error)
	UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*orders.Order, error)
}

type PendingOrderJobParams struct {
	Orders orderManager
	TTL    time.Duration
	Logger *logger.Logger
	Now    func() time.Time
}

// pendingOrderJob cancels gateway orders whose payment never started or
// ended rejected or cancelled, once they are older than the TTL.
// Custom checkout orders are settled by hand and never expire.
type pendingOrderJob struct {
	orders orderManager
	ttl    time.Duration
	logg   *logger.Logger
	now    func() time.Time
}

func NewPendingOrderJob(params PendingOrderJobParams) (Job, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &pendingOrderJob{orders: params.Orders, ttl: ttl, logg: params.Logger, now: now}, nil
}

func (j *pendingOrderJob) Name() string { return "pending_order_expiry" }

func (j *pendingOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	var (
		errs    error
		expired int
		cursor  string
	)
	for {
		page, err := j.orders.List(ctx, orders.ListParams{
			Status: enums.OrderStatusPending,
			Limit:  pagination.MaxLimit,
			Cursor: cursor,
		})
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list pending orders: %w", err))
		}
		for _, o := range page.Items {
			if !expirable(o, cutoff) {
				continue
			}
			if _, err := j.orders.UpdateStatus(ctx, o.ID, enums.OrderStatusCancelled); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("cancel %s: %w", o.ID, err))
				continue
			}
			expired++
			j.logg.Info(j.logg.WithFields(ctx, map[string]any{"order_id": o.ID, "order_number": o.OrderNumber}), "cron.order_expired")
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "cron.pending_orders_checked")
	return errs
}

func expirable(o orders.Order, cutoff time.Time) bool {
	if o.PaymentMethod != enums.PaymentMethodMercadoPago || !o.CreatedAt.Before(cutoff) {
		return false
	}
	switch o.PaymentStatus {
	case "", enums.PaymentStatusRejected, enums.PaymentStatusCancelled:
		return true
	}
	return false
}
