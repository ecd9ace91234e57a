package controllers

import (
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/vinoteca-backend/api/responses"
	"github.com/angelmondragon/vinoteca-backend/api/validators"
	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/pagination"
)

const maxSearchLen = 100

// WineList serves the filtered, searched and paginated catalog.
func WineList(svc wines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseWineFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, math.MinInt32, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		size, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), filter, pagination.Query{
			Search:   validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLen),
			Page:     page,
			PageSize: size,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseWineFilter(r *http.Request) (wines.FilterState, error) {
	var filter wines.FilterState
	for _, raw := range validators.ParseQueryList(r, "type") {
		t, err := enums.ParseWineType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wine type").WithDetails(map[string]any{"field": "type"})
		}
		filter.Types = append(filter.Types, t)
	}
	filter.Wineries = validators.ParseQueryList(r, "winery")
	filter.Regions = validators.ParseQueryList(r, "region")

	var err error
	if filter.MinPrice, err = validators.ParseQueryFloat(r, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = validators.ParseQueryFloat(r, "max_price"); err != nil {
		return filter, err
	}
	if filter.Featured, err = validators.ParseQueryBool(r, "featured"); err != nil {
		return filter, err
	}
	if filter.InStock, err = validators.ParseQueryBool(r, "in_stock"); err != nil {
		return filter, err
	}
	filter.Sort = wines.ParseSortKey(r.URL.Query().Get("sort"))
	return filter, nil
}

func WineDetail(svc wines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wine, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wine)
	}
}

func WineFeatured(svc wines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListFeatured(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func AdminWineCreate(svc wines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createWineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wine, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, wine)
	}
}

func AdminWineUpdate(svc wines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateWineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wine, err := svc.Update(r.Context(), chi.URLParam(r, "id"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wine)
	}
}

func AdminWineDelete(svc wines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": chi.URLParam(r, "id")})
	}
}

// AdminWineLowStock lists wines at or under the threshold query parameter,
// falling back to the site settings threshold.
func AdminWineLowStock(svc wines.Service, defaultThreshold func(r *http.Request) (int, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fallback, err := defaultThreshold(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		threshold, err := validators.ParseQueryInt(r, "threshold", fallback, 0, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListLowStock(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"threshold": threshold, "items": items})
	}
}

type createWineRequest struct {
	Brand       string  `json:"brand" validate:"required"`
	Winery      string  `json:"winery" validate:"required"`
	Type        string  `json:"type" validate:"required"`
	Varietal    string  `json:"varietal"`
	Vintage     string  `json:"vintage"`
	Region      string  `json:"region"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Cost        float64 `json:"cost" validate:"gte=0"`
	IVA         float64 `json:"iva" validate:"gte=0,lte=100"`
	Stock       int     `json:"stock" validate:"gte=0"`
	BoxSize     int     `json:"box_size" validate:"omitempty,gte=1"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
	Featured    bool    `json:"featured"`
}

func (p createWineRequest) toInput() (wines.CreateInput, error) {
	wineType, err := enums.ParseWineType(strings.TrimSpace(p.Type))
	if err != nil {
		return wines.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wine type").WithDetails(map[string]any{"field": "type"})
	}
	return wines.CreateInput{
		Brand:       p.Brand,
		Winery:      p.Winery,
		Type:        wineType,
		Varietal:    p.Varietal,
		Vintage:     p.Vintage,
		Region:      p.Region,
		Description: p.Description,
		Price:       p.Price,
		Cost:        p.Cost,
		IVA:         p.IVA,
		Stock:       p.Stock,
		BoxSize:     p.BoxSize,
		ImageURL:    p.ImageURL,
		Featured:    p.Featured,
	}, nil
}

type updateWineRequest struct {
	Brand       *string  `json:"brand,omitempty"`
	Winery      *string  `json:"winery,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Varietal    *string  `json:"varietal,omitempty"`
	Vintage     *string  `json:"vintage,omitempty"`
	Region      *string  `json:"region,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	IVA         *float64 `json:"iva,omitempty" validate:"omitempty,gte=0,lte=100"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	BoxSize     *int     `json:"box_size,omitempty" validate:"omitempty,gte=1"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Featured    *bool    `json:"featured,omitempty"`
}

func (p updateWineRequest) toInput() (wines.UpdateInput, error) {
	input := wines.UpdateInput{
		Brand:       p.Brand,
		Winery:      p.Winery,
		Varietal:    p.Varietal,
		Vintage:     p.Vintage,
		Region:      p.Region,
		Description: p.Description,
		Price:       p.Price,
		Cost:        p.Cost,
		IVA:         p.IVA,
		Stock:       p.Stock,
		BoxSize:     p.BoxSize,
		ImageURL:    p.ImageURL,
		Featured:    p.Featured,
	}
	if p.Type != nil {
		wineType, err := enums.ParseWineType(strings.TrimSpace(*p.Type))
		if err != nil {
			return wines.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wine type").WithDetails(map[string]any{"field": "type"})
		}
		input.Type = &wineType
	}
	return input, nil
}
