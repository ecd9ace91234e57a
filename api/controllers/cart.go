package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vinoteca-backend/api/middleware"
	"github.com/angelmondragon/vinoteca-backend/api/responses"
	"github.com/angelmondragon/vinoteca-backend/api/validators"
	"github.com/angelmondragon/vinoteca-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

func cartSession(r *http.Request) (string, error) {
	session := middleware.CartSessionFromContext(r.Context())
	if session == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}
	return session, nil
}

// cartAction wraps handlers that only need the session and return a cart view.
func cartAction(logg *logger.Logger, fn func(r *http.Request, session string) (*cart.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := cartSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := fn(r, session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartAction(logg, func(r *http.Request, session string) (*cart.View, error) {
		return svc.Get(r.Context(), session)
	})
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartAction(logg, func(r *http.Request, session string) (*cart.View, error) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		qty := payload.Quantity
		if qty == 0 {
			qty = 1
		}
		return svc.AddItem(r.Context(), session, payload.ProductID, qty)
	})
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartAction(logg, func(r *http.Request, session string) (*cart.View, error) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateQuantity(r.Context(), session, chi.URLParam(r, "productId"), *payload.Quantity)
	})
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartAction(logg, func(r *http.Request, session string) (*cart.View, error) {
		return svc.RemoveItem(r.Context(), session, chi.URLParam(r, "productId"))
	})
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartAction(logg, func(r *http.Request, session string) (*cart.View, error) {
		return svc.Clear(r.Context(), session)
	})
}

func CartToggle(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartAction(logg, func(r *http.Request, session string) (*cart.View, error) {
		return svc.Toggle(r.Context(), session)
	})
}

func CartShipping(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartAction(logg, func(r *http.Request, session string) (*cart.View, error) {
		var payload shippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.SetShippingInfo(r.Context(), session, cart.ShippingPatch{
			Name:       payload.Name,
			Email:      payload.Email,
			Phone:      payload.Phone,
			Address:    payload.Address,
			City:       payload.City,
			Province:   payload.Province,
			PostalCode: payload.PostalCode,
			Notes:      payload.Notes,
		})
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type shippingRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address    *string `json:"address,omitempty" validate:"omitempty,max=200"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=100"`
	Province   *string `json:"province,omitempty" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}
