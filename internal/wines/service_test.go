package wines

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/pagination"
)

func newTestService(t *testing.T, repo *memoryStore, images imageDeleter) *service {
	t.Helper()
	svc, err := NewService(repo, images, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func validInput() CreateInput {
	return CreateInput{
		Brand:   "Gran Reserva",
		Winery:  "Bodega Catena",
		Type:    enums.WineTypeTinto,
		Vintage: "2019",
		Region:  "Mendoza",
		Price:   1000,
		IVA:     21,
		Stock:   10,
	}
}

func TestCreateGeneratesIDAndDefaults(t *testing.T) {
	repo := newMemoryStore()
	svc := newTestService(t, repo, nil)

	w, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(w.ID, "gran-reserva-bodega-catena-") {
		t.Fatalf("unexpected id %q", w.ID)
	}
	if w.BoxSize != 1 {
		t.Fatalf("expected default box size 1, got %d", w.BoxSize)
	}
	if repo.creates != 1 {
		t.Fatalf("expected one create, got %d", repo.creates)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	repo := newMemoryStore()
	svc := newTestService(t, repo, nil)

	input := validInput()
	input.Brand = " "
	input.IVA = 120
	input.Type = "malbec"

	_, err := svc.Create(context.Background(), input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	for _, field := range []string{"brand", "iva", "type"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("missing detail for %s: %v", field, details)
		}
	}
	if repo.creates != 0 {
		t.Fatal("invalid wine must not be persisted")
	}
}

func TestUpdateWritesOnlyChangedFields(t *testing.T) {
	repo := newMemoryStore(Wine{ID: "w1", Brand: "A", Winery: "B", Type: enums.WineTypeBlanco, Price: 100, Stock: 3, BoxSize: 6})
	svc := newTestService(t, repo, nil)

	price := 150.0
	w, err := svc.Update(context.Background(), "w1", UpdateInput{Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if w.Price != 150 {
		t.Fatalf("expected price 150, got %v", w.Price)
	}
	if len(repo.updates) != 1 || len(repo.updates[0]) != 1 {
		t.Fatalf("expected a single price update, got %v", repo.updates)
	}
}

func TestUpdateMissingWine(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), nil)
	price := 1.0
	_, err := svc.Update(context.Background(), "nope", UpdateInput{Price: &price})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRemovesImageBestEffort(t *testing.T) {
	repo := newMemoryStore(Wine{ID: "w1", ImageURL: "https://storage.googleapis.com/b/wines/1.png"})
	images := &stubImages{err: errors.New("gone")}
	svc := newTestService(t, repo, images)

	if err := svc.Delete(context.Background(), "w1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(images.deleted) != 1 {
		t.Fatalf("expected image delete attempt, got %v", images.deleted)
	}
	if _, ok := repo.items["w1"]; ok {
		t.Fatal("wine should be removed")
	}
}

func TestSetStockRejectsNegative(t *testing.T) {
	svc := newTestService(t, newMemoryStore(Wine{ID: "w1"}), nil)
	if _, err := svc.SetStock(context.Background(), "w1", -1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecrementStock(t *testing.T) {
	repo := newMemoryStore(
		Wine{ID: "plenty", Stock: 10},
		Wine{ID: "short", Stock: 2},
	)
	svc := newTestService(t, repo, nil)

	remaining, err := svc.DecrementStock(context.Background(), "plenty", 3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if remaining != 7 || repo.items["plenty"].Stock != 7 {
		t.Fatalf("expected stock 7, got %d", repo.items["plenty"].Stock)
	}

	_, err = svc.DecrementStock(context.Background(), "short", 3)
	if !pkgerrors.IsCode(err, pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if repo.items["short"].Stock != 2 {
		t.Fatalf("stock must stay at 2, got %d", repo.items["short"].Stock)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := newMemoryStore(
		Wine{ID: "a", Brand: "Alamos", Winery: "Catena", Type: enums.WineTypeTinto, Price: 100, Stock: 1},
		Wine{ID: "b", Brand: "Bramare", Winery: "Cobos", Type: enums.WineTypeTinto, Price: 300, Stock: 0},
		Wine{ID: "c", Brand: "Crios", Winery: "Susana Balbo", Type: enums.WineTypeBlanco, Price: 200, Stock: 4},
	)
	svc := newTestService(t, repo, nil)

	page, err := svc.List(context.Background(),
		FilterState{Types: []enums.WineType{enums.WineTypeTinto}, Sort: SortPriceDesc},
		pagination.Query{Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 2 || page.TotalPages != 2 || !page.HasNext {
		t.Fatalf("unexpected page meta %+v", page)
	}
	if page.Items[0].ID != "b" {
		t.Fatalf("expected most expensive tinto first, got %s", page.Items[0].ID)
	}

	page, err = svc.List(context.Background(), FilterState{}, pagination.Query{Search: "susana"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.TotalCount != 1 || page.Items[0].ID != "c" {
		t.Fatalf("expected search hit on winery, got %+v", page.Items)
	}
}

func TestListWrapsStoreFailure(t *testing.T) {
	repo := newMemoryStore()
	repo.err = errors.New("unavailable")
	svc := newTestService(t, repo, nil)

	_, err := svc.List(context.Background(), FilterState{}, pagination.Query{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestListLowStock(t *testing.T) {
	repo := newMemoryStore(Wine{ID: "a", Stock: 1}, Wine{ID: "b", Stock: 9})
	svc := newTestService(t, repo, nil)
	items, err := svc.ListLowStock(context.Background(), 5)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("unexpected low stock result %+v", items)
	}
}
