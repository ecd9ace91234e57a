package cart

import (
	"strings"
	"time"

	"github.com/angelmondragon/vinoteca-backend/pkg/pricing"
)

// DefaultNotificationDuration is how long the add-to-cart notice stays visible.
const DefaultNotificationDuration = 3 * time.Second

// Product is the wine data captured on a line when it is added.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Winery   string  `json:"winery"`
	Summary  string  `json:"summary"`
	ImageURL string  `json:"image_url,omitempty"`
	Price    float64 `json:"price"`
	IVA      float64 `json:"iva"`
	Stock    int     `json:"stock"`
}

// LineItem is one product in the cart. UnitPrice is frozen when the line is
// first added and never recomputed from the live product.
type LineItem struct {
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type ShippingInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Notes      string `json:"notes"`
}

// ShippingPatch carries the fields to merge into ShippingInfo; nil fields are kept.
type ShippingPatch struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	City       *string
	Province   *string
	PostalCode *string
	Notes      *string
}

type Notification struct {
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// State is the persisted part of a cart.
type State struct {
	Items        []LineItem   `json:"items"`
	TotalItems   int          `json:"total_items"`
	TotalAmount  float64      `json:"total_amount"`
	ShippingInfo ShippingInfo `json:"shipping_info"`
}

// View is the cart as returned to clients.
type View struct {
	State
	IsOpen       bool          `json:"is_open"`
	Notification *Notification `json:"notification,omitempty"`
}

// Cart holds line items keyed by product id and keeps the derived totals in
// step with every mutation. It is not safe for concurrent use.
type Cart struct {
	items        []LineItem
	isOpen       bool
	totalItems   int
	totalAmount  float64
	shipping     ShippingInfo
	notification *Notification
	notifyFor    time.Duration
	now          func() time.Time
}

type Option func(*Cart)

func WithClock(now func() time.Time) Option {
	return func(c *Cart) { c.now = now }
}

func WithNotificationDuration(d time.Duration) Option {
	return func(c *Cart) {
		if d > 0 {
			c.notifyFor = d
		}
	}
}

func New(opts ...Option) *Cart {
	c := &Cart{
		items:     []LineItem{},
		notifyFor: DefaultNotificationDuration,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem increments the line for p.ID or appends a new line priced at
// p.Price plus tax. Quantities below 1 add a single unit.
func (c *Cart) AddItem(p Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity += quantity
	} else {
		c.items = append(c.items, LineItem{
			Product:   p,
			Quantity:  quantity,
			UnitPrice: pricing.PriceWithTax(p.Price, p.IVA),
		})
	}
	c.recompute()
	c.notification = &Notification{
		ProductName: p.Name,
		Quantity:    quantity,
		ExpiresAt:   c.now().Add(c.notifyFor),
	}
}

// RemoveItem drops the line for productID; absent ids are ignored.
func (c *Cart) RemoveItem(productID string) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.recompute()
}

// UpdateQuantity sets the absolute quantity of a line. Zero or less removes it.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(productID)
		return
	}
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.items[i].Quantity = quantity
	c.recompute()
}

// Clear empties the lines. Shipping info is kept.
func (c *Cart) Clear() {
	c.items = []LineItem{}
	c.recompute()
}

func (c *Cart) Toggle() {
	c.isOpen = !c.isOpen
}

func (c *Cart) Close() {
	c.isOpen = false
}

func (c *Cart) IsOpen() bool {
	return c.isOpen
}

// ItemQuantity returns the quantity for productID, or 0.
func (c *Cart) ItemQuantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// SetShippingInfo shallow-merges patch into the stored shipping info.
func (c *Cart) SetShippingInfo(patch ShippingPatch) {
	merge := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	merge(&c.shipping.Name, patch.Name)
	merge(&c.shipping.Email, patch.Email)
	merge(&c.shipping.Phone, patch.Phone)
	merge(&c.shipping.Address, patch.Address)
	merge(&c.shipping.City, patch.City)
	merge(&c.shipping.Province, patch.Province)
	merge(&c.shipping.PostalCode, patch.PostalCode)
	merge(&c.shipping.Notes, patch.Notes)
}

func (c *Cart) Shipping() ShippingInfo {
	return c.shipping
}

func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) TotalItems() int {
	return c.totalItems
}

func (c *Cart) TotalAmount() float64 {
	return c.totalAmount
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Notification returns the last add-to-cart notice while it is still visible.
func (c *Cart) Notification() *Notification {
	if c.notification == nil || !c.now().Before(c.notification.ExpiresAt) {
		return nil
	}
	n := *c.notification
	return &n
}

func (c *Cart) Snapshot() State {
	return State{
		Items:        c.Items(),
		TotalItems:   c.totalItems,
		TotalAmount:  c.totalAmount,
		ShippingInfo: c.shipping,
	}
}

func (c *Cart) View() View {
	return View{State: c.Snapshot(), IsOpen: c.isOpen, Notification: c.Notification()}
}

// Restore replaces lines and shipping info with a persisted state. Stored
// unit prices are kept; totals are derived again from the lines.
func (c *Cart) Restore(s State) {
	c.items = make([]LineItem, 0, len(s.Items))
	for _, item := range s.Items {
		if item.Quantity < 1 || item.Product.ID == "" || c.index(item.Product.ID) >= 0 {
			continue
		}
		c.items = append(c.items, item)
	}
	c.shipping = s.ShippingInfo
	c.recompute()
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	count := 0
	lines := make([]float64, 0, len(c.items))
	for _, item := range c.items {
		count += item.Quantity
		lines = append(lines, pricing.LineTotal(item.UnitPrice, item.Quantity))
	}
	c.totalItems = count
	c.totalAmount = pricing.Sum(lines...)
}
