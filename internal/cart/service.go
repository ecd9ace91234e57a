package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

const maxSessionIDLength = 128

// Service binds carts to client sessions and persists them after every mutation.
type Service interface {
	Get(ctx context.Context, sessionID string) (*View, error)
	AddItem(ctx context.Context, sessionID, productID string, quantity int) (*View, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (*View, error)
	UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*View, error)
	Clear(ctx context.Context, sessionID string) (*View, error)
	Toggle(ctx context.Context, sessionID string) (*View, error)
	SetShippingInfo(ctx context.Context, sessionID string, patch ShippingPatch) (*View, error)
	// Snapshot returns the persisted cart state without mutating it.
	Snapshot(ctx context.Context, sessionID string) (State, error)
	// ClearAndClose empties the cart and closes the panel after a completed checkout.
	ClearAndClose(ctx context.Context, sessionID string) error
}

// Storage is the durable key/value store carts persist to.
type Storage interface {
	CartKey(sessionID string) string
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
}

type wineLoader interface {
	Get(ctx context.Context, id string) (*wines.Wine, error)
}

type Config struct {
	TTL                  time.Duration
	NotificationDuration time.Duration
	// IdleEviction drops in-memory sessions unused for this long; the persisted state survives.
	IdleEviction time.Duration
}

type session struct {
	mu       sync.Mutex
	cart     *Cart
	lastUsed time.Time
}

type service struct {
	store Storage
	wines wineLoader
	logg  *logger.Logger
	cfg   Config
	now   func() time.Time

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time
}

func NewService(store Storage, wineLoader wineLoader, logg *logger.Logger, cfg Config) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if wineLoader == nil {
		return nil, fmt.Errorf("wine loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.IdleEviction <= 0 {
		cfg.IdleEviction = time.Hour
	}
	return &service{
		store:    store,
		wines:    wineLoader,
		logg:     logg,
		cfg:      cfg,
		now:      time.Now,
		sessions: map[string]*session{},
	}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*View, error) {
	return s.read(ctx, sessionID)
}

func (s *service) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.mutate(ctx, sessionID, func(ctx context.Context, c *Cart) error {
		w, err := s.wines.Get(ctx, productID)
		if err != nil {
			return err
		}
		if c.ItemQuantity(w.ID)+quantity > w.Stock {
			return outOfStock(w.ID, w.Stock)
		}
		c.AddItem(productFromWine(w), quantity)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"product_id": w.ID, "quantity": quantity}), "cart.item_added")
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, sessionID, productID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(_ context.Context, c *Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

// UpdateQuantity checks the requested quantity against live stock; the line price stays frozen.
func (s *service) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*View, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, c *Cart) error {
		if quantity <= 0 || c.ItemQuantity(productID) == 0 {
			c.UpdateQuantity(productID, quantity)
			return nil
		}
		w, err := s.wines.Get(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > w.Stock {
			return outOfStock(w.ID, w.Stock)
		}
		c.UpdateQuantity(productID, quantity)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(_ context.Context, c *Cart) error {
		c.Clear()
		return nil
	})
}

func (s *service) Toggle(ctx context.Context, sessionID string) (*View, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	sess.cart.Toggle()
	v := sess.cart.View()
	return &v, nil
}

func (s *service) SetShippingInfo(ctx context.Context, sessionID string, patch ShippingPatch) (*View, error) {
	return s.mutate(ctx, sessionID, func(_ context.Context, c *Cart) error {
		c.SetShippingInfo(patch)
		return nil
	})
}

func (s *service) Snapshot(ctx context.Context, sessionID string) (State, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	defer sess.mu.Unlock()
	return sess.cart.Snapshot(), nil
}

func (s *service) ClearAndClose(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(_ context.Context, c *Cart) error {
		c.Clear()
		c.Close()
		return nil
	})
	return err
}

func (s *service) read(ctx context.Context, sessionID string) (*View, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	v := sess.cart.View()
	return &v, nil
}

// mutate applies fn under the session lock and persists the result. A failed
// write restores the previous state so memory and storage do not diverge.
func (s *service) mutate(ctx context.Context, sessionID string, fn func(context.Context, *Cart) error) (*View, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	ctx = s.logg.WithSessionID(ctx, sessionID)
	before := sess.cart.Snapshot()
	if err := fn(ctx, sess.cart); err != nil {
		return nil, err
	}
	if err := s.store.SetJSON(ctx, s.store.CartKey(sessionID), sess.cart.Snapshot(), s.cfg.TTL); err != nil {
		sess.cart.Restore(before)
		s.logg.Error(ctx, "cart.persist_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	v := sess.cart.View()
	return &v, nil
}

// session returns the locked in-memory session refreshed from storage, so
// writes made through another instance are picked up. Only the open flag and
// the notification live solely in memory.
func (s *service) session(ctx context.Context, sessionID string) (*session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart session")
	}

	now := s.now()
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{cart: New(WithClock(s.now), WithNotificationDuration(s.cfg.NotificationDuration))}
		s.sessions[sessionID] = sess
	}
	sess.lastUsed = now
	s.evictIdleLocked(now)
	s.mu.Unlock()

	sess.mu.Lock()
	var state State
	found, err := s.store.GetJSON(ctx, s.store.CartKey(sessionID), &state)
	if err != nil {
		sess.mu.Unlock()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if found {
		sess.cart.Restore(state)
	}
	return sess, nil
}

func (s *service) evictIdleLocked(now time.Time) {
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.cfg.IdleEviction {
			delete(s.sessions, id)
		}
	}
}

func productFromWine(w *wines.Wine) Product {
	return Product{
		ID:       w.ID,
		Name:     w.DisplayName(),
		Brand:    w.Brand,
		Winery:   w.Winery,
		Summary:  w.Summary(),
		ImageURL: w.ImageURL,
		Price:    w.Price,
		IVA:      w.IVA,
		Stock:    w.Stock,
	}
}

func outOfStock(productID string, available int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "not enough stock for this product").
		WithDetails(map[string]any{"product_id": productID, "available": available})
}
