package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

type stubOrders struct {
	orders.Service
	listFn   func(ctx context.Context, params orders.ListParams) (*orders.ListResult, error)
	statusFn func(ctx context.Context, id string, status enums.OrderStatus) (*orders.Order, error)
	deleteFn func(ctx context.Context, id string) error
}

func (s stubOrders) List(ctx context.Context, params orders.ListParams) (*orders.ListResult, error) {
	return s.listFn(ctx, params)
}

func (s stubOrders) UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*orders.Order, error) {
	return s.statusFn(ctx, id, status)
}

func (s stubOrders) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func TestAdminOrderList(t *testing.T) {
	svc := stubOrders{listFn: func(ctx context.Context, params orders.ListParams) (*orders.ListResult, error) {
		if params.Limit != 5 || params.Status != enums.OrderStatusShipped || params.Cursor != "abc" {
			t.Fatalf("unexpected params %+v", params)
		}
		return &orders.ListResult{Items: []orders.Order{{ID: "o1"}}, Cursor: "next"}, nil
	}}

	resp, env := serve(t, AdminOrderList(svc, testLogger()), newJSONRequest(http.MethodGet, "/api/admin/orders?limit=5&status=shipped&cursor=abc", ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, env.Error)
	}
	var result orders.ListResult
	decodeData(t, env, &result)
	if len(result.Items) != 1 || result.Cursor != "next" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAdminOrderListRejectsUnknownStatus(t *testing.T) {
	svc := stubOrders{}
	resp, _ := serve(t, AdminOrderList(svc, testLogger()), newJSONRequest(http.MethodGet, "/api/admin/orders?status=lost", ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderUpdateStatus(t *testing.T) {
	svc := stubOrders{statusFn: func(ctx context.Context, id string, status enums.OrderStatus) (*orders.Order, error) {
		if id != "o1" || status != enums.OrderStatusDelivered {
			t.Fatalf("unexpected call %s %s", id, status)
		}
		return &orders.Order{ID: id, Status: status}, nil
	}}

	req := withURLParams(newJSONRequest(http.MethodPatch, "/api/admin/orders/o1/status", `{"status":"delivered"}`), map[string]string{"id": "o1"})
	resp, env := serve(t, AdminOrderUpdateStatus(svc, testLogger()), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, env.Error)
	}
	var order orders.Order
	decodeData(t, env, &order)
	if order.Status != enums.OrderStatusDelivered {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestAdminOrderDeleteNotFound(t *testing.T) {
	svc := stubOrders{deleteFn: func(ctx context.Context, id string) error {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}}

	req := withURLParams(newJSONRequest(http.MethodDelete, "/api/admin/orders/o9", ""), map[string]string{"id": "o9"})
	resp, _ := serve(t, AdminOrderDelete(svc, testLogger()), req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
