package wines

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	"github.com/angelmondragon/vinoteca-backend/pkg/pricing"
)

// Wine is a catalog product as stored in the products collection.
type Wine struct {
	ID          string         `firestore:"-" json:"id"`
	Brand       string         `firestore:"brand" json:"brand"`
	Winery      string         `firestore:"winery" json:"winery"`
	Type        enums.WineType `firestore:"type" json:"type"`
	Varietal    string         `firestore:"varietal" json:"varietal"`
	Vintage     string         `firestore:"vintage" json:"vintage"`
	Region      string         `firestore:"region" json:"region"`
	Description string         `firestore:"description" json:"description"`
	Price       float64        `firestore:"price" json:"price"`
	Cost        float64        `firestore:"cost" json:"cost"`
	IVA         float64        `firestore:"iva" json:"iva"`
	Stock       int            `firestore:"stock" json:"stock"`
	BoxSize     int            `firestore:"boxSize" json:"box_size"`
	ImageURL    string         `firestore:"imageUrl" json:"image_url"`
	Featured    bool           `firestore:"featured" json:"featured"`
	CreatedAt   time.Time      `firestore:"createdAt" json:"created_at"`
	UpdatedAt   time.Time      `firestore:"updatedAt" json:"updated_at"`
}

// PriceWithTax is the customer-facing unit price.
func (w Wine) PriceWithTax() float64 {
	return pricing.PriceWithTax(w.Price, w.IVA)
}

// DisplayName is "brand - winery".
func (w Wine) DisplayName() string {
	return fmt.Sprintf("%s - %s", w.Brand, w.Winery)
}

// Summary is "type vintage - region", skipping empty parts.
func (w Wine) Summary() string {
	head := strings.TrimSpace(strings.Join([]string{string(w.Type), w.Vintage}, " "))
	if w.Region == "" {
		return head
	}
	if head == "" {
		return w.Region
	}
	return head + " - " + w.Region
}

func (w Wine) InStock() bool {
	return w.Stock > 0
}

// CreateInput holds the validated payload to create a wine.
type CreateInput struct {
	Brand       string
	Winery      string
	Type        enums.WineType
	Varietal    string
	Vintage     string
	Region      string
	Description string
	Price       float64
	Cost        float64
	IVA         float64
	Stock       int
	BoxSize     int
	ImageURL    string
	Featured    bool
}

// UpdateInput holds optional mutation values; nil fields are left untouched.
type UpdateInput struct {
	Brand       *string
	Winery      *string
	Type        *enums.WineType
	Varietal    *string
	Vintage     *string
	Region      *string
	Description *string
	Price       *float64
	Cost        *float64
	IVA         *float64
	Stock       *int
	BoxSize     *int
	ImageURL    *string
	Featured    *bool
}

// apply merges the input into w and returns the changed document fields.
func (in UpdateInput) apply(w *Wine) map[string]any {
	fields := map[string]any{}
	if in.Brand != nil {
		w.Brand = strings.TrimSpace(*in.Brand)
		fields["brand"] = w.Brand
	}
	if in.Winery != nil {
		w.Winery = strings.TrimSpace(*in.Winery)
		fields["winery"] = w.Winery
	}
	if in.Type != nil {
		w.Type = *in.Type
		fields["type"] = string(w.Type)
	}
	if in.Varietal != nil {
		w.Varietal = strings.TrimSpace(*in.Varietal)
		fields["varietal"] = w.Varietal
	}
	if in.Vintage != nil {
		w.Vintage = strings.TrimSpace(*in.Vintage)
		fields["vintage"] = w.Vintage
	}
	if in.Region != nil {
		w.Region = strings.TrimSpace(*in.Region)
		fields["region"] = w.Region
	}
	if in.Description != nil {
		w.Description = *in.Description
		fields["description"] = w.Description
	}
	if in.Price != nil {
		w.Price = *in.Price
		fields["price"] = w.Price
	}
	if in.Cost != nil {
		w.Cost = *in.Cost
		fields["cost"] = w.Cost
	}
	if in.IVA != nil {
		w.IVA = *in.IVA
		fields["iva"] = w.IVA
	}
	if in.Stock != nil {
		w.Stock = *in.Stock
		fields["stock"] = w.Stock
	}
	if in.BoxSize != nil {
		w.BoxSize = *in.BoxSize
		fields["boxSize"] = w.BoxSize
	}
	if in.ImageURL != nil {
		w.ImageURL = strings.TrimSpace(*in.ImageURL)
		fields["imageUrl"] = w.ImageURL
	}
	if in.Featured != nil {
		w.Featured = *in.Featured
		fields["featured"] = w.Featured
	}
	return fields
}
