package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vinoteca-backend/api/responses"
	"github.com/angelmondragon/vinoteca-backend/api/validators"
	"github.com/angelmondragon/vinoteca-backend/internal/combos"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

func ComboList(svc combos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.List(r.Context(), featured)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ComboDetail(svc combos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		combo, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, combo)
	}
}

func AdminComboCreate(svc combos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload comboRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		combo, err := svc.Create(r.Context(), combos.Input{
			Name:      payload.Name,
			Lines:     payload.Lines,
			WineIDs:   payload.WineIDs,
			Price:     payload.Price,
			ImageURLs: payload.ImageURLs,
			Featured:  payload.Featured,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, combo)
	}
}

func AdminComboUpdate(svc combos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload comboPatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		combo, err := svc.Update(r.Context(), chi.URLParam(r, "id"), combos.UpdateInput{
			Name:      payload.Name,
			Lines:     payload.Lines,
			WineIDs:   payload.WineIDs,
			Price:     payload.Price,
			ImageURLs: payload.ImageURLs,
			Featured:  payload.Featured,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, combo)
	}
}

func AdminComboDelete(svc combos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id})
	}
}

type comboRequest struct {
	Name      string   `json:"name" validate:"required"`
	Lines     []string `json:"lines"`
	WineIDs   []string `json:"wine_ids"`
	Price     float64  `json:"price" validate:"gte=0"`
	ImageURLs []string `json:"image_urls" validate:"omitempty,dive,url"`
	Featured  bool     `json:"featured"`
}

type comboPatchRequest struct {
	Name      *string   `json:"name,omitempty"`
	Lines     *[]string `json:"lines,omitempty"`
	WineIDs   *[]string `json:"wine_ids,omitempty"`
	Price     *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	ImageURLs *[]string `json:"image_urls,omitempty"`
	Featured  *bool     `json:"featured,omitempty"`
}
