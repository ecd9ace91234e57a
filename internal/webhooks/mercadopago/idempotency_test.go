package mercadopagowebhook

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
	err  error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	store := newMemoryIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "mercadopago")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	ctx := context.Background()

	dup, err := guard.CheckAndMark(ctx, "1:approved")
	if err != nil || dup {
		t.Fatalf("first check dup=%v err=%v", dup, err)
	}
	dup, err = guard.CheckAndMark(ctx, "1:approved")
	if err != nil || !dup {
		t.Fatalf("second check dup=%v err=%v", dup, err)
	}
	if _, ok := store.keys["idempotency:mercadopago:1:approved"]; !ok {
		t.Fatalf("expected scoped key, got %v", store.keys)
	}

	if err := guard.Delete(ctx, "1:approved"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	dup, err = guard.CheckAndMark(ctx, "1:approved")
	if err != nil || dup {
		t.Fatalf("after delete dup=%v err=%v", dup, err)
	}
}

func TestIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "x"); err == nil {
		t.Fatal("expected nil store error")
	}
	if _, err := NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Hour, ""); err == nil {
		t.Fatal("expected empty scope error")
	}
	guard, _ := NewIdempotencyGuard(newMemoryIdempotencyStore(), 0, "x")
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatal("expected empty key error")
	}
}
