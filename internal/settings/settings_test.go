package settings

import (
	"context"
	"errors"
	"io"
	"testing"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

type memoryStore struct {
	current *Settings
	err     error
}

func (m *memoryStore) Load(context.Context) (*Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.current, nil
}

func (m *memoryStore) Save(_ context.Context, s Settings) error {
	m.current = &s
	return nil
}

func newTestService(t *testing.T, repo *memoryStore) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGetReturnsDefaultsWhenMissing(t *testing.T) {
	svc := newTestService(t, &memoryStore{})
	got, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LowStockThreshold != defaultLowStockThreshold {
		t.Fatalf("expected default threshold, got %d", got.LowStockThreshold)
	}
}

func TestUpdateMergesPartialFields(t *testing.T) {
	repo := &memoryStore{current: &Settings{ShippingCost: 1500, BannerText: "old"}}
	svc := newTestService(t, repo)

	banner := " Envío gratis desde $50.000 "
	threshold := 50000.0
	got, err := svc.Update(context.Background(), UpdateInput{BannerText: &banner, FreeShippingThreshold: &threshold})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ShippingCost != 1500 || got.BannerText != "Envío gratis desde $50.000" || got.FreeShippingThreshold != 50000 {
		t.Fatalf("unexpected merge %+v", got)
	}
	if repo.current.UpdatedAt.IsZero() {
		t.Fatal("expected updatedAt to be stamped")
	}
}

func TestUpdateRejectsNegativeValues(t *testing.T) {
	svc := newTestService(t, &memoryStore{})
	cost := -1.0
	if _, err := svc.Update(context.Background(), UpdateInput{ShippingCost: &cost}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetWrapsStoreFailure(t *testing.T) {
	svc := newTestService(t, &memoryStore{err: errors.New("down")})
	if _, err := svc.Get(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestShippingFor(t *testing.T) {
	s := Settings{ShippingCost: 2000, FreeShippingThreshold: 30000}
	cases := []struct {
		subtotal float64
		want     float64
	}{
		{10000, 2000},
		{30000, 0},
		{45000, 0},
	}
	for _, tc := range cases {
		if got := s.ShippingFor(tc.subtotal); got != tc.want {
			t.Fatalf("ShippingFor(%v) = %v, want %v", tc.subtotal, got, tc.want)
		}
	}
	if got := (Settings{ShippingCost: 900}).ShippingFor(1e9); got != 900 {
		t.Fatalf("zero threshold never waives shipping, got %v", got)
	}
}
