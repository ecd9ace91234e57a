package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vinoteca-backend/api/controllers"
	"github.com/angelmondragon/vinoteca-backend/api/middleware"
	"github.com/angelmondragon/vinoteca-backend/internal/auth"
	"github.com/angelmondragon/vinoteca-backend/internal/cart"
	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	mpwebhook "github.com/angelmondragon/vinoteca-backend/internal/webhooks/mercadopago"
	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/metrics"
	"github.com/angelmondragon/vinoteca-backend/pkg/pagination"
	"github.com/angelmondragon/vinoteca-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct {
	auth.Service
}

func (stubAuthService) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	switch token {
	case "admin-token":
		return &auth.Identity{UID: "admin", Email: "owner@vinoteca.com", Admin: true}, nil
	case "user-token":
		return &auth.Identity{UID: "user", Email: "ana@example.com"}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
}

type stubWineService struct {
	wines.Service
}

func (stubWineService) List(ctx context.Context, filter wines.FilterState, q pagination.Query) (pagination.Page[wines.Wine], error) {
	return pagination.Paginate([]wines.Wine{{ID: "w1", Brand: "Catena"}}, q), nil
}

func (stubWineService) Create(ctx context.Context, input wines.CreateInput) (*wines.Wine, error) {
	return &wines.Wine{ID: "w2", Brand: input.Brand}, nil
}

type stubCartService struct {
	cart.Service
}

func (stubCartService) Get(ctx context.Context, session string) (*cart.View, error) {
	return &cart.View{}, nil
}

type stubOrderService struct {
	orders.Service
}

func (stubOrderService) List(ctx context.Context, params orders.ListParams) (*orders.ListResult, error) {
	return &orders.ListResult{Items: []orders.Order{}}, nil
}

type stubWebhook struct{}

func (stubWebhook) HandleNotification(ctx context.Context, n mpwebhook.Notification) (*mpwebhook.Result, error) {
	return &mpwebhook.Result{Ignored: !n.IsPayment()}, nil
}

type memoryRedis struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App:   config.AppConfig{Env: "test"},
		Media: config.MediaConfig{MaxUploadMB: 1},
		CORS:  config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	reg := prometheus.NewRegistry()
	return NewRouter(cfg, logger.New(logger.Options{Output: io.Discard}), Infra{
		Redis:    newMemoryRedis(),
		Pingers:  map[string]controllers.Pinger{"redis": stubPinger{}},
		Metrics:  metrics.New(reg),
		Gatherer: reg,
	}, Services{
		Auth:    stubAuthService{},
		Wines:   stubWineService{},
		Cart:    stubCartService{},
		Orders:  stubOrderService{},
		Webhook: stubWebhook{},
	})
}

func do(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	router := newTestRouter(t)

	if resp := do(router, http.MethodGet, "/health/live", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := do(router, http.MethodGet, "/health/ready", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}

	do(router, http.MethodGet, "/api/wines", "", nil)
	resp := do(router, http.MethodGet, "/metrics", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "/api/wines") {
		t.Fatalf("expected request metric labelled by route, got %s", resp.Body.String())
	}
}

func TestPublicCatalogIsOpen(t *testing.T) {
	router := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/wines?page=1", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestWineMutationsRequireAdmin(t *testing.T) {
	router := newTestRouter(t)
	body := `{"brand":"Angelica","winery":"Zapata","type":"tinto","price":100}`

	if resp := do(router, http.MethodPost, "/api/wines", body, nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401 got %d", resp.Code)
	}
	if resp := do(router, http.MethodPost, "/api/wines", body, map[string]string{"Authorization": "Bearer user-token"}); resp.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403 got %d", resp.Code)
	}
	if resp := do(router, http.MethodPost, "/api/wines", body, map[string]string{"Authorization": "Bearer admin-token"}); resp.Code != http.StatusCreated {
		t.Fatalf("admin: expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router := newTestRouter(t)
	if resp := do(router, http.MethodGet, "/api/admin/orders", "", map[string]string{"Authorization": "Bearer user-token"}); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if resp := do(router, http.MethodGet, "/api/admin/orders", "", map[string]string{"Authorization": "Bearer admin-token"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartIssuesSessionHeader(t *testing.T) {
	router := newTestRouter(t)
	resp := do(router, http.MethodGet, "/api/cart", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(middleware.CartSessionHeader) == "" {
		t.Fatal("expected a cart session to be issued")
	}
}

func TestWebhookIsPublic(t *testing.T) {
	router := newTestRouter(t)
	resp := do(router, http.MethodPost, "/api/mercadopago/webhook", `{"type":"merchant_order","data":{"id":"1"}}`, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	router := newTestRouter(t)
	if resp := do(router, http.MethodGet, "/api/unknown", "", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
