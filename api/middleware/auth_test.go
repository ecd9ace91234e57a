package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/vinoteca-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

type stubVerifier map[string]*auth.Identity

func (s stubVerifier) Authenticate(_ context.Context, token string) (*auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	return id, nil
}

func adminChain(v stubVerifier, next http.Handler) http.Handler {
	return Auth(v, nil)(RequireAdmin(nil)(next))
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	v := stubVerifier{}
	handler := Auth(v, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Bearer forged"} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAuthSeedsContext(t *testing.T) {
	v := stubVerifier{"tok": {UID: "u1", Email: "buyer@example.com"}}
	var gotUID, gotEmail string
	var gotAdmin bool
	handler := Auth(v, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUID = UserIDFromContext(r.Context())
		gotEmail = UserEmailFromContext(r.Context())
		gotAdmin = IsAdminFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPatch, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "bearer tok")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotUID != "u1" || gotEmail != "buyer@example.com" || gotAdmin {
		t.Fatalf("unexpected context uid=%q email=%q admin=%v", gotUID, gotEmail, gotAdmin)
	}
}

func TestRequireAdmin(t *testing.T) {
	v := stubVerifier{
		"admin": {UID: "a", Admin: true},
		"buyer": {UID: "b"},
	}
	called := 0
	handler := adminChain(v, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer buyer")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non admin, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || called != 1 {
		t.Fatalf("expected admin to pass, code=%d called=%d", rec.Code, called)
	}
}
