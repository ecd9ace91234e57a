package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/vinoteca-backend/internal/cart"
	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/internal/settings"
	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/mercadopago"
	"github.com/angelmondragon/vinoteca-backend/pkg/metrics"
	"github.com/angelmondragon/vinoteca-backend/pkg/pubsub"
)

const (
	pathGateway = "mercadopago"
	pathCustom  = "custom"

	shippingItemID    = "shipping"
	shippingItemTitle = "Shipping"
	defaultCurrency   = "ARS"
)

// Service runs the two checkout paths and the gateway return step.
type Service interface {
	GatewayCheckout(ctx context.Context, sessionID string) (*GatewayResult, error)
	CustomCheckout(ctx context.Context, sessionID string) (*CustomResult, error)
	ConfirmReturn(ctx context.Context, sessionID, status string) (*ReturnResult, error)
}

type GatewayResult struct {
	OrderID      string `json:"order_id"`
	OrderNumber  string `json:"order_number"`
	PreferenceID string `json:"preference_id"`
	CheckoutURL  string `json:"checkout_url"`
}

type CustomResult struct {
	OrderID     string  `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	Total       float64 `json:"total"`
}

type ReturnResult struct {
	Status      string `json:"status"`
	CartCleared bool   `json:"cart_cleared"`
}

type cartStore interface {
	Snapshot(ctx context.Context, sessionID string) (cart.State, error)
	ClearAndClose(ctx context.Context, sessionID string) error
}

type gateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	Sandbox() bool
}

type orderCreator interface {
	Create(ctx context.Context, input orders.CreateInput) (*orders.Order, error)
}

type settingsReader interface {
	Get(ctx context.Context) (settings.Settings, error)
}

type Config struct {
	LockTTL             time.Duration
	Currency            string
	BackURLs            mercadopago.BackURLs
	NotificationURL     string
	StatementDescriptor string
}

type Deps struct {
	Carts     cartStore
	Gateway   gateway
	Orders    orderCreator
	Settings  settingsReader
	Locker    Locker
	Publisher pubsub.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

type service struct {
	carts     cartStore
	gateway   gateway
	orders    orderCreator
	settings  settingsReader
	locker    Locker
	publisher pubsub.EventPublisher
	metrics   *metrics.Metrics
	logg      *logger.Logger
	cfg       Config
}

func NewService(deps Deps, cfg Config) (Service, error) {
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if deps.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Publisher == nil {
		deps.Publisher = pubsub.NoopPublisher{}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	return &service{
		carts:     deps.Carts,
		gateway:   deps.Gateway,
		orders:    deps.Orders,
		settings:  deps.Settings,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		cfg:       cfg,
	}, nil
}

// GatewayCheckout creates the payment preference first and only then the
// order. A preference whose order fails to persist is left orphaned and
// logged. The cart is kept until the gateway reports an approved payment.
func (s *service) GatewayCheckout(ctx context.Context, sessionID string) (result *GatewayResult, err error) {
	ctx = s.logg.WithFields(ctx, map[string]any{"cart_session": sessionID, "checkout_path": pathGateway})
	defer func() { s.finish(ctx, pathGateway, err) }()

	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, shippingCost, err := s.prepare(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	orderID := orders.NewID()
	ctx = s.logg.WithOrderID(ctx, orderID)

	pref, err := s.gateway.CreatePreference(ctx, s.preferenceRequest(orderID, state, shippingCost))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment preference")
	}
	ctx = s.logg.WithField(ctx, "preference_id", pref.ID)

	order, err := s.orders.Create(ctx, orders.CreateInput{
		ID:            orderID,
		Items:         orderItems(state.Items),
		ShippingCost:  shippingCost,
		Shipping:      orderShipping(state.ShippingInfo),
		PaymentMethod: enums.PaymentMethodMercadoPago,
		PreferenceID:  pref.ID,
	})
	if err != nil {
		s.logg.Error(ctx, "checkout.preference_orphaned", err)
		return nil, err
	}

	s.publishOrderCreated(ctx, order)
	return &GatewayResult{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		PreferenceID: pref.ID,
		CheckoutURL:  pref.CheckoutURL(s.gateway.Sandbox()),
	}, nil
}

// CustomCheckout records the order without the gateway and empties the cart.
func (s *service) CustomCheckout(ctx context.Context, sessionID string) (result *CustomResult, err error) {
	ctx = s.logg.WithFields(ctx, map[string]any{"cart_session": sessionID, "checkout_path": pathCustom})
	defer func() { s.finish(ctx, pathCustom, err) }()

	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, shippingCost, err := s.prepare(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Create(ctx, orders.CreateInput{
		ID:            orders.NewID(),
		Items:         orderItems(state.Items),
		ShippingCost:  shippingCost,
		Shipping:      orderShipping(state.ShippingInfo),
		PaymentMethod: enums.PaymentMethodCustom,
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	if err := s.carts.ClearAndClose(ctx, sessionID); err != nil {
		s.logg.Error(ctx, "checkout.cart_clear_failed", err)
	}
	s.publishOrderCreated(ctx, order)
	return &CustomResult{OrderID: order.ID, OrderNumber: order.OrderNumber, Total: order.Total}, nil
}

// ConfirmReturn handles the browser coming back from the hosted checkout.
// Only an approved status clears the cart.
func (s *service) ConfirmReturn(ctx context.Context, sessionID, status string) (*ReturnResult, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment status is required")
	}
	result := &ReturnResult{Status: status}
	if enums.PaymentStatus(status) != enums.PaymentStatusApproved {
		return result, nil
	}
	if err := s.carts.ClearAndClose(ctx, sessionID); err != nil {
		return nil, err
	}
	result.CartCleared = true
	return result, nil
}

// prepare loads the cart, checks it can be ordered and prices shipping.
func (s *service) prepare(ctx context.Context, sessionID string) (cart.State, float64, error) {
	state, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return cart.State{}, 0, err
	}
	if len(state.Items) == 0 {
		return cart.State{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := validateShipping(state.ShippingInfo); err != nil {
		return cart.State{}, 0, err
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return cart.State{}, 0, err
	}
	return state, st.ShippingFor(state.TotalAmount), nil
}

func (s *service) preferenceRequest(orderID string, state cart.State, shippingCost float64) mercadopago.PreferenceRequest {
	items := make([]mercadopago.PreferenceItem, 0, len(state.Items)+1)
	meta := make([]mercadopago.MetadataItem, 0, len(state.Items))
	for _, line := range state.Items {
		items = append(items, mercadopago.PreferenceItem{
			ID:          line.Product.ID,
			Title:       line.Product.Name,
			Description: line.Product.Summary,
			PictureURL:  line.Product.ImageURL,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			CurrencyID:  s.cfg.Currency,
		})
		meta = append(meta, mercadopago.MetadataItem{ProductID: line.Product.ID, Quantity: mercadopago.Quantity(line.Quantity)})
	}
	if shippingCost > 0 {
		items = append(items, mercadopago.PreferenceItem{
			ID:         shippingItemID,
			Title:      shippingItemTitle,
			Quantity:   1,
			UnitPrice:  shippingCost,
			CurrencyID: s.cfg.Currency,
		})
	}

	info := state.ShippingInfo
	areaCode, number := ParsePhone(info.Phone)
	return mercadopago.PreferenceRequest{
		Items: items,
		Payer: mercadopago.Payer{
			Name:    info.Name,
			Email:   info.Email,
			Phone:   mercadopago.Phone{AreaCode: areaCode, Number: number},
			Address: mercadopago.Address{StreetName: info.Address, ZipCode: info.PostalCode},
		},
		ExternalReference:   orderID,
		Metadata:            mercadopago.Metadata{OrderID: orderID, Items: meta},
		BackURLs:            s.cfg.BackURLs,
		AutoReturn:          "approved",
		NotificationURL:     s.cfg.NotificationURL,
		StatementDescriptor: s.cfg.StatementDescriptor,
	}
}

func (s *service) publishOrderCreated(ctx context.Context, order *orders.Order) {
	payload := map[string]any{
		"order_id":       order.ID,
		"order_number":   order.OrderNumber,
		"payment_method": string(order.PaymentMethod),
		"total":          order.Total,
	}
	if err := s.publisher.Publish(ctx, pubsub.EventOrderCreated, payload); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.event_publish_failed")
	}
}

// finish records the outcome of a checkout attempt and logs failures.
func (s *service) finish(ctx context.Context, path string, err error) {
	if err == nil {
		s.metrics.IncCheckout(path, "success")
		s.logg.Info(ctx, "checkout.completed")
		return
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeValidation, pkgerrors.CodeConflict:
			s.metrics.IncCheckout(path, "rejected")
			s.logg.Warn(s.logg.WithField(ctx, "reason", typed.Message()), "checkout.rejected")
			return
		}
	}
	s.metrics.IncCheckout(path, "failure")
	s.logg.Error(ctx, "checkout.failed", err)
}

func validateShipping(info cart.ShippingInfo) error {
	details := map[string]string{}
	if strings.TrimSpace(info.Address) == "" {
		details["address"] = "required"
	}
	if strings.TrimSpace(info.Phone) == "" {
		details["phone"] = "required"
	}
	if strings.TrimSpace(info.PostalCode) == "" {
		details["postal_code"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping information incomplete").WithDetails(details)
	}
	return nil
}

func orderItems(lines []cart.LineItem) []orders.Item {
	out := make([]orders.Item, 0, len(lines))
	for _, line := range lines {
		out = append(out, orders.Item{
			ProductID:   line.Product.ID,
			Title:       line.Product.Name,
			Description: line.Product.Summary,
			ImageURL:    line.Product.ImageURL,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return out
}

func orderShipping(info cart.ShippingInfo) orders.Shipping {
	return orders.Shipping{
		Name:       info.Name,
		Email:      info.Email,
		Phone:      info.Phone,
		Address:    info.Address,
		City:       info.City,
		Province:   info.Province,
		PostalCode: info.PostalCode,
		Notes:      info.Notes,
	}
}
