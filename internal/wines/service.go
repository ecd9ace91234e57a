package wines

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/pagination"
)

// SearchFields are the wine fields matched by free-text search.
var SearchFields = []string{"brand", "winery", "varietal", "region", "type", "vintage"}

// Service exposes catalog reads and admin mutations for wines.
type Service interface {
	List(ctx context.Context, filter FilterState, q pagination.Query) (pagination.Page[Wine], error)
	Get(ctx context.Context, id string) (*Wine, error)
	Create(ctx context.Context, input CreateInput) (*Wine, error)
	Update(ctx context.Context, id string, input UpdateInput) (*Wine, error)
	Delete(ctx context.Context, id string) error
	SetStock(ctx context.Context, id string, stock int) (*Wine, error)
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
	ListFeatured(ctx context.Context) ([]Wine, error)
	ListLowStock(ctx context.Context, threshold int) ([]Wine, error)
}

type store interface {
	List(ctx context.Context) ([]Wine, error)
	ListFeatured(ctx context.Context) ([]Wine, error)
	ListLowStock(ctx context.Context, threshold int) ([]Wine, error)
	FindByID(ctx context.Context, id string) (*Wine, error)
	Create(ctx context.Context, w *Wine) error
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
}

type imageDeleter interface {
	Delete(ctx context.Context, url string) error
}

type service struct {
	repo   store
	images imageDeleter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs the wine service. images may be nil, in which case
// deleting a wine leaves its image in storage.
func NewService(repo store, images imageDeleter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wine repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, images: images, logg: logg, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, filter FilterState, q pagination.Query) (pagination.Page[Wine], error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return pagination.Page[Wine]{}, dependency(err, "list wines")
	}
	if len(q.Fields) == 0 {
		q.Fields = SearchFields
	}
	return pagination.Paginate(filter.Apply(all), q), nil
}

func (s *service) Get(ctx context.Context, id string) (*Wine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wine id is required")
	}
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dependency(err, "load wine")
	}
	return w, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Wine, error) {
	now := s.now().UTC()
	w := &Wine{
		Brand:       strings.TrimSpace(input.Brand),
		Winery:      strings.TrimSpace(input.Winery),
		Type:        input.Type,
		Varietal:    strings.TrimSpace(input.Varietal),
		Vintage:     strings.TrimSpace(input.Vintage),
		Region:      strings.TrimSpace(input.Region),
		Description: input.Description,
		Price:       input.Price,
		Cost:        input.Cost,
		IVA:         input.IVA,
		Stock:       input.Stock,
		BoxSize:     input.BoxSize,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Featured:    input.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if w.BoxSize == 0 {
		w.BoxSize = 1
	}
	if err := Validate(*w); err != nil {
		return nil, err
	}
	w.ID = NewID(w.Brand, w.Winery, now)

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, dependency(err, "create wine")
	}
	s.logg.Info(s.logg.WithField(ctx, "wine_id", w.ID), "wine.created")
	return w, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*Wine, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := input.apply(w)
	if len(fields) == 0 {
		return w, nil
	}
	if err := Validate(*w); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, w.ID, fields); err != nil {
		return nil, dependency(err, "update wine")
	}
	w.UpdatedAt = s.now().UTC()
	return w, nil
}

// Delete removes the wine and then, best-effort, its image.
func (s *service) Delete(ctx context.Context, id string) error {
	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, w.ID); err != nil {
		return dependency(err, "delete wine")
	}
	ctx = s.logg.WithField(ctx, "wine_id", w.ID)
	if s.images != nil && w.ImageURL != "" {
		if err := s.images.Delete(ctx, w.ImageURL); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "image_url", w.ImageURL), "wine.image_delete_failed")
		}
	}
	s.logg.Info(ctx, "wine.deleted")
	return nil
}

// SetStock overwrites the stock count from the admin panel.
func (s *service) SetStock(ctx context.Context, id string, stock int) (*Wine, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	return s.Update(ctx, id, UpdateInput{Stock: &stock})
}

func (s *service) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "wine id is required")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	remaining, err := s.repo.DecrementStock(ctx, id, qty)
	if err != nil {
		return 0, dependency(err, "decrement stock")
	}
	return remaining, nil
}

func (s *service) ListFeatured(ctx context.Context) ([]Wine, error) {
	items, err := s.repo.ListFeatured(ctx)
	if err != nil {
		return nil, dependency(err, "list featured wines")
	}
	return items, nil
}

func (s *service) ListLowStock(ctx context.Context, threshold int) ([]Wine, error) {
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}
	items, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, dependency(err, "list low stock wines")
	}
	return items, nil
}

// Validate checks the admin form rules for a wine.
func Validate(w Wine) error {
	details := map[string]string{}
	if w.Brand == "" {
		details["brand"] = "required"
	}
	if w.Winery == "" {
		details["winery"] = "required"
	}
	if !w.Type.IsValid() {
		details["type"] = "must be one of tinto, blanco, rosado, espumante, dulce"
	}
	if w.Price < 0 {
		details["price"] = "must be >= 0"
	}
	if w.Cost < 0 {
		details["cost"] = "must be >= 0"
	}
	if w.IVA < 0 || w.IVA > 100 {
		details["iva"] = "must be between 0 and 100"
	}
	if w.Stock < 0 {
		details["stock"] = "must be >= 0"
	}
	if w.BoxSize < 1 {
		details["box_size"] = "must be >= 1"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid wine").WithDetails(details)
	}
	return nil
}

func dependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
