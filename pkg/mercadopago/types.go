package mercadopago

import (
	"encoding/json"
	"math"
)

type PreferenceItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	PictureURL  string  `json:"picture_url,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	CurrencyID  string  `json:"currency_id,omitempty"`
}

type Phone struct {
	AreaCode string `json:"area_code"`
	Number   string `json:"number"`
}

type Address struct {
	StreetName string `json:"street_name,omitempty"`
	ZipCode    string `json:"zip_code,omitempty"`
}

type Payer struct {
	Name    string  `json:"name,omitempty"`
	Email   string  `json:"email,omitempty"`
	Phone   Phone   `json:"phone"`
	Address Address `json:"address"`
}

type BackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

// MetadataItem travels inside preference metadata and comes back on the payment.
type MetadataItem struct {
	ProductID string   `json:"product_id"`
	Quantity  Quantity `json:"quantity"`
}

type Metadata struct {
	OrderID string         `json:"order_id,omitempty"`
	Items   []MetadataItem `json:"items"`
}

type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	Payer               Payer            `json:"payer"`
	ExternalReference   string           `json:"external_reference"`
	Metadata            Metadata         `json:"metadata"`
	BackURLs            BackURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return,omitempty"`
	NotificationURL     string           `json:"notification_url,omitempty"`
	StatementDescriptor string           `json:"statement_descriptor,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CheckoutURL picks the hosted checkout page for the credential set in use.
func (p Preference) CheckoutURL(sandbox bool) string {
	if sandbox && p.SandboxInitPoint != "" {
		return p.SandboxInitPoint
	}
	return p.InitPoint
}

type Payment struct {
	ID                int64    `json:"id"`
	Status            string   `json:"status"`
	StatusDetail      string   `json:"status_detail"`
	ExternalReference string   `json:"external_reference"`
	TransactionAmount float64  `json:"transaction_amount"`
	Metadata          Metadata `json:"metadata"`
}

// Quantity decodes MercadoPago's metadata numbers, which may come back as floats.
type Quantity int

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*q = Quantity(math.Round(f))
	return nil
}
