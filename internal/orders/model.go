package orders

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
)

// NewID returns a fresh order document id.
func NewID() string {
	return uuid.NewString()
}

// Item is the line snapshot stored on an order.
type Item struct {
	ProductID   string  `firestore:"productId" json:"product_id"`
	Title       string  `firestore:"title" json:"title"`
	Description string  `firestore:"description" json:"description"`
	ImageURL    string  `firestore:"imageUrl" json:"image_url,omitempty"`
	Quantity    int     `firestore:"quantity" json:"quantity"`
	UnitPrice   float64 `firestore:"unitPrice" json:"unit_price"`
}

// Shipping is the delivery and contact record captured at checkout.
type Shipping struct {
	Name       string `firestore:"name" json:"name"`
	Email      string `firestore:"email" json:"email"`
	Phone      string `firestore:"phone" json:"phone"`
	Address    string `firestore:"address" json:"address"`
	City       string `firestore:"city" json:"city"`
	Province   string `firestore:"province" json:"province"`
	PostalCode string `firestore:"postalCode" json:"postal_code"`
	Notes      string `firestore:"notes" json:"notes,omitempty"`
}

type Order struct {
	ID            string              `firestore:"-" json:"id"`
	OrderNumber   string              `firestore:"orderNumber" json:"order_number"`
	Items         []Item              `firestore:"items" json:"items"`
	Subtotal      float64             `firestore:"subtotal" json:"subtotal"`
	ShippingCost  float64             `firestore:"shippingCost" json:"shipping_cost"`
	Total         float64             `firestore:"total" json:"total"`
	Shipping      Shipping            `firestore:"shippingInfo" json:"shipping_info"`
	Status        enums.OrderStatus   `firestore:"status" json:"status"`
	PaymentMethod enums.PaymentMethod `firestore:"paymentMethod" json:"payment_method"`
	PreferenceID  string              `firestore:"preferenceId,omitempty" json:"preference_id,omitempty"`
	PaymentID     string              `firestore:"paymentId,omitempty" json:"payment_id,omitempty"`
	PaymentStatus enums.PaymentStatus `firestore:"paymentStatus,omitempty" json:"payment_status,omitempty"`
	CreatedAt     time.Time           `firestore:"createdAt" json:"created_at"`
	UpdatedAt     time.Time           `firestore:"updatedAt" json:"updated_at"`
}

const (
	numberPrefix   = "VN"
	numberSuffix   = 6
	base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewOrderNumber returns a human-facing number such as VN-20260301-4K9ZQ2.
func NewOrderNumber(now time.Time) string {
	var b strings.Builder
	b.WriteString(numberPrefix)
	b.WriteByte('-')
	b.WriteString(now.UTC().Format("20060102"))
	b.WriteByte('-')
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < numberSuffix; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(now.UnixNano() % int64(len(base36Alphabet)))
		}
		b.WriteByte(base36Alphabet[n.Int64()])
	}
	return b.String()
}
