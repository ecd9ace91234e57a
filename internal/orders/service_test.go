package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

type memoryStore struct {
	items     map[string]Order
	seq       int
	createErr error
	lastQuery listQuery
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]Order{}}
}

func (m *memoryStore) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%02d", m.seq)
	}
	m.items[o.ID] = *o
	return nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.items[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return &o, nil
}

func (m *memoryStore) List(_ context.Context, q listQuery) ([]Order, error) {
	m.lastQuery = q
	out := []Order{}
	for _, o := range m.items {
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if q.Cursor != nil {
		for i, o := range out {
			if o.ID == q.Cursor.ID {
				out = out[i+1:]
				break
			}
		}
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memoryStore) Update(_ context.Context, id string, fields map[string]any) error {
	o, ok := m.items[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if v, ok := fields["status"]; ok {
		o.Status = enums.OrderStatus(v.(string))
	}
	if v, ok := fields["paymentId"]; ok {
		o.PaymentID = v.(string)
	}
	if v, ok := fields["paymentStatus"]; ok {
		o.PaymentStatus = enums.PaymentStatus(v.(string))
	}
	m.items[id] = o
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newTestService(t *testing.T, repo *memoryStore) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func sampleInput() CreateInput {
	return CreateInput{
		Items: []Item{
			{ProductID: "w1", Title: "A - B", Quantity: 2, UnitPrice: 1210},
			{ProductID: "w2", Title: "C - D", Quantity: 1, UnitPrice: 605.5},
		},
		ShippingCost:  1500,
		Shipping:      Shipping{Name: "Ana", Phone: "11 5555-0000", Address: "Av. Siempreviva 742", PostalCode: "1414"},
		PaymentMethod: enums.PaymentMethodMercadoPago,
		PreferenceID:  "pref-1",
	}
}

func TestCreateComputesTotals(t *testing.T) {
	repo := newMemoryStore()
	svc := newTestService(t, repo)

	o, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	require.Equal(t, 3025.5, o.Subtotal)
	require.Equal(t, 4525.5, o.Total)
	require.Equal(t, enums.OrderStatusPending, o.Status)
	require.Equal(t, "pref-1", o.PreferenceID)
	require.Regexp(t, regexp.MustCompile(`^VN-20260301-[0-9A-Z]{6}$`), o.OrderNumber)
	require.Contains(t, repo.items, o.ID)
}

func TestCreateKeepsPreassignedID(t *testing.T) {
	repo := newMemoryStore()
	svc := newTestService(t, repo)

	in := sampleInput()
	in.ID = NewID()
	o, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, in.ID, o.ID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t, newMemoryStore())

	in := sampleInput()
	in.Items = nil
	_, err := svc.Create(context.Background(), in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in = sampleInput()
	in.PaymentMethod = "cash"
	_, err = svc.Create(context.Background(), in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in = sampleInput()
	in.Items[0].Quantity = 0
	_, err = svc.Create(context.Background(), in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateWrapsStoreFailure(t *testing.T) {
	repo := newMemoryStore()
	repo.createErr = errors.New("firestore down")
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), sampleInput())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCreateKeepsConflictFromStore(t *testing.T) {
	repo := newMemoryStore()
	repo.createErr = pkgerrors.New(pkgerrors.CodeConflict, "order already exists")
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), sampleInput())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "expected conflict, got %v", err)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	repo := newMemoryStore()
	svc := newTestService(t, repo)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), sampleInput())
		require.NoError(t, err)
	}

	first, err := svc.List(context.Background(), ListParams{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, repo.lastQuery.Limit)
	require.Len(t, first.Items, 2)
	require.Equal(t, "order-03", first.Items[0].ID)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, "order-01", second.Items[0].ID)
	require.Empty(t, second.Cursor)

	_, err = svc.List(context.Background(), ListParams{Status: "lost"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(context.Background(), ListParams{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateStatusAndRecordPayment(t *testing.T) {
	repo := newMemoryStore()
	svc := newTestService(t, repo)
	o, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), o.ID, "teleported")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.RecordPayment(context.Background(), o.ID, "123", enums.PaymentStatusApproved))
	stored := repo.items[o.ID]
	require.Equal(t, "123", stored.PaymentID)
	require.Equal(t, enums.PaymentStatusApproved, stored.PaymentStatus)
	require.Equal(t, enums.OrderStatusShipped, stored.Status)

	err = svc.RecordPayment(context.Background(), "missing", "1", enums.PaymentStatusApproved)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteOrder(t *testing.T) {
	repo := newMemoryStore()
	svc := newTestService(t, repo)
	o, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), o.ID))
	require.Empty(t, repo.items)
	require.True(t, pkgerrors.IsCode(svc.Delete(context.Background(), o.ID), pkgerrors.CodeNotFound))
}

func TestNewOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^VN-20261231-[0-9A-Z]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewOrderNumber(time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC))
		require.Regexp(t, pattern, n)
		seen[n] = true
	}
	require.Greater(t, len(seen), 1)
}
