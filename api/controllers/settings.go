package controllers

import (
	"net/http"

	"github.com/angelmondragon/vinoteca-backend/api/responses"
	"github.com/angelmondragon/vinoteca-backend/api/validators"
	"github.com/angelmondragon/vinoteca-backend/internal/settings"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

func SettingsGet(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, current)
	}
}

type settingsRequest struct {
	ShippingCost          *float64 `json:"shipping_cost,omitempty" validate:"omitempty,gte=0"`
	FreeShippingThreshold *float64 `json:"free_shipping_threshold,omitempty" validate:"omitempty,gte=0"`
	WhatsApp              *string  `json:"whatsapp,omitempty" validate:"omitempty,max=30"`
	ContactEmail          *string  `json:"contact_email,omitempty" validate:"omitempty,email"`
	BannerText            *string  `json:"banner_text,omitempty" validate:"omitempty,max=200"`
	LowStockThreshold     *int     `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}

func AdminSettingsUpdate(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload settingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), settings.UpdateInput{
			ShippingCost:          payload.ShippingCost,
			FreeShippingThreshold: payload.FreeShippingThreshold,
			WhatsApp:              payload.WhatsApp,
			ContactEmail:          payload.ContactEmail,
			BannerText:            payload.BannerText,
			LowStockThreshold:     payload.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// LowStockThreshold reads the admin-configured threshold for the low stock report.
func LowStockThreshold(svc settings.Service) func(r *http.Request) (int, error) {
	return func(r *http.Request) (int, error) {
		current, err := svc.Get(r.Context())
		if err != nil {
			return 0, err
		}
		return current.LowStockThreshold, nil
	}
}
