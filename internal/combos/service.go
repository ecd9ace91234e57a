package combos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

// Service manages combos.
type Service interface {
	List(ctx context.Context, featuredOnly bool) ([]Combo, error)
	Get(ctx context.Context, id string) (*Combo, error)
	Create(ctx context.Context, input Input) (*Combo, error)
	Update(ctx context.Context, id string, input UpdateInput) (*Combo, error)
	Delete(ctx context.Context, id string) error
}

type store interface {
	List(ctx context.Context) ([]Combo, error)
	FindByID(ctx context.Context, id string) (*Combo, error)
	Create(ctx context.Context, c *Combo) error
	Save(ctx context.Context, c *Combo) error
	Delete(ctx context.Context, id string) error
}

type wineLoader interface {
	Get(ctx context.Context, id string) (*wines.Wine, error)
}

type service struct {
	repo  store
	wines wineLoader
	logg  *logger.Logger
	now   func() time.Time
}

func NewService(repo store, wineLoader wineLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("combo repository required")
	}
	if wineLoader == nil {
		return nil, fmt.Errorf("wine loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, wines: wineLoader, logg: logg, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, featuredOnly bool) ([]Combo, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, dependency(err, "list combos")
	}
	if !featuredOnly {
		return all, nil
	}
	out := make([]Combo, 0, len(all))
	for _, c := range all {
		if c.Featured {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id string) (*Combo, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "combo id is required")
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, dependency(err, "load combo")
	}
	return c, nil
}

func (s *service) Create(ctx context.Context, input Input) (*Combo, error) {
	if err := validate(input.Name, input.Price, input.WineIDs); err != nil {
		return nil, err
	}
	refs, err := s.resolveWines(ctx, input.WineIDs)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &Combo{
		Name:      strings.TrimSpace(input.Name),
		Lines:     cleanLines(input.Lines),
		Wines:     refs,
		Price:     input.Price,
		ImageURLs: cleanLines(input.ImageURLs),
		Featured:  input.Featured,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, dependency(err, "create combo")
	}
	s.logg.Info(s.logg.WithField(ctx, "combo_id", c.ID), "combo.created")
	return c, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*Combo, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		c.Name = strings.TrimSpace(*input.Name)
	}
	if input.Lines != nil {
		c.Lines = cleanLines(*input.Lines)
	}
	if input.Price != nil {
		c.Price = *input.Price
	}
	if input.ImageURLs != nil {
		c.ImageURLs = cleanLines(*input.ImageURLs)
	}
	if input.Featured != nil {
		c.Featured = *input.Featured
	}
	wineIDs := make([]string, len(c.Wines))
	for i, w := range c.Wines {
		wineIDs[i] = w.ID
	}
	if input.WineIDs != nil {
		wineIDs = *input.WineIDs
	}
	if err := validate(c.Name, c.Price, wineIDs); err != nil {
		return nil, err
	}
	if input.WineIDs != nil {
		refs, err := s.resolveWines(ctx, wineIDs)
		if err != nil {
			return nil, err
		}
		c.Wines = refs
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, dependency(err, "update combo")
	}
	return c, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, c.ID); err != nil {
		return dependency(err, "delete combo")
	}
	s.logg.Info(s.logg.WithField(ctx, "combo_id", c.ID), "combo.deleted")
	return nil
}

// resolveWines snapshots brand and winery for each referenced wine.
func (s *service) resolveWines(ctx context.Context, ids []string) ([]WineRef, error) {
	refs := make([]WineRef, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		w, err := s.wines.Get(ctx, id)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown wine in combo").
					WithDetails(map[string]string{"wine_id": id})
			}
			return nil, err
		}
		refs = append(refs, WineRef{ID: w.ID, Brand: w.Brand, Winery: w.Winery})
	}
	return refs, nil
}

func validate(name string, price float64, wineIDs []string) error {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "required"
	}
	if price < 0 {
		details["price"] = "must be >= 0"
	}
	if len(cleanLines(wineIDs)) == 0 {
		details["wine_ids"] = "at least one wine is required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid combo").WithDetails(details)
	}
	return nil
}

func cleanLines(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
