package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/pagination"
	"github.com/angelmondragon/vinoteca-backend/pkg/pricing"
)

// Service covers order creation for checkout and the back-office operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*Order, error)
	RecordPayment(ctx context.Context, id, paymentID string, status enums.PaymentStatus) error
	Delete(ctx context.Context, id string) error
}

// CreateInput is what a checkout hands over. Totals are derived here.
// ID is optional; checkouts pre-assign it so the gateway can reference the order.
type CreateInput struct {
	ID            string
	Items         []Item
	ShippingCost  float64
	Shipping      Shipping
	PaymentMethod enums.PaymentMethod
	PreferenceID  string
}

type ListParams struct {
	Status enums.OrderStatus
	Limit  int
	Cursor string
}

type ListResult struct {
	Items  []Order `json:"items"`
	Cursor string  `json:"cursor"`
}

type store interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, q listQuery) ([]Order, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo store
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo store, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

// Create persists a pending order with subtotal, shipping and total computed from the items.
func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.ShippingCost < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}

	lines := make([]float64, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		lines = append(lines, pricing.LineTotal(item.UnitPrice, item.Quantity))
	}
	subtotal := pricing.Sum(lines...)
	now := s.now().UTC()

	o := &Order{
		ID:            strings.TrimSpace(input.ID),
		OrderNumber:   NewOrderNumber(now),
		Items:         input.Items,
		Subtotal:      subtotal,
		ShippingCost:  input.ShippingCost,
		Total:         pricing.Sum(subtotal, input.ShippingCost),
		Shipping:      input.Shipping,
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		PreferenceID:  input.PreferenceID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, dependency(err, "create order")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":       o.ID,
		"order_number":   o.OrderNumber,
		"payment_method": string(o.PaymentMethod),
	}), "order.created")
	return o, nil
}

func (s *service) Get(ctx context.Context, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dependency(err, "load order")
	}
	return o, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	query := listQuery{Status: params.Status, Limit: pagination.LimitWithBuffer(params.Limit)}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	cursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		cursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o.ID, map[string]any{"status": string(status)}); err != nil {
		return nil, dependency(err, "update order status")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": o.ID,
		"from":     string(o.Status),
		"to":       string(status),
	}), "order.status_changed")
	o.Status = status
	o.UpdatedAt = s.now().UTC()
	return o, nil
}

// RecordPayment stores the gateway payment id and status. The order status is left as is.
func (s *service) RecordPayment(ctx context.Context, id, paymentID string, status enums.PaymentStatus) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	fields := map[string]any{
		"paymentId":     paymentID,
		"paymentStatus": string(status),
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return dependency(err, "record payment")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, o.ID); err != nil {
		return dependency(err, "delete order")
	}
	s.logg.Info(s.logg.WithOrderID(ctx, o.ID), "order.deleted")
	return nil
}

func dependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
