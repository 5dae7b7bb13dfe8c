package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequireRole(t *testing.T) {
	h := RequireRole(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u1", Role: RoleUser}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}

	reqOK := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqOK = reqOK.WithContext(WithIdentity(reqOK.Context(), Identity{UserID: "a1", Role: RoleAdmin}))
	rwOK := httptest.NewRecorder()
	h.ServeHTTP(rwOK, reqOK)
	if rwOK.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rwOK.Code)
	}

	rwAnon := httptest.NewRecorder()
	h.ServeHTTP(rwAnon, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	if rwAnon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwAnon.Code)
	}
}

func TestRequireJWT(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(testClaims("user-1", "user", time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	h := NewAuthenticator(ModeJWT, NewVerifier(secret)).Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok || id.UserID != "user-1" || id.Role != RoleUser {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqBad.Header.Set("Authorization", "Bearer badtoken")
	rwBad := httptest.NewRecorder()
	h.ServeHTTP(rwBad, reqBad)
	if rwBad.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwBad.Code)
	}

	// Identity headers are ignored in jwt mode.
	reqSpoof := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqSpoof.Header.Set(HeaderUserID, "user-1")
	reqSpoof.Header.Set(HeaderRole, "Admin")
	rwSpoof := httptest.NewRecorder()
	h.ServeHTTP(rwSpoof, reqSpoof)
	if rwSpoof.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwSpoof.Code)
	}
}

func TestRequireGatewayHeaders(t *testing.T) {
	h := NewAuthenticator(ModeGateway, nil).Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		if !id.IsAdmin() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set(HeaderUserID, "admin-1")
	req.Header.Set(HeaderRole, "ADMIN")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	reqMissing := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqMissing.Header.Set(HeaderUserID, "admin-1")
	rwMissing := httptest.NewRecorder()
	h.ServeHTTP(rwMissing, reqMissing)
	if rwMissing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rwMissing.Code)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" JWT "); err != nil || m != ModeJWT {
		t.Fatalf("expected jwt mode, got %q (%v)", m, err)
	}
	if _, err := ParseMode("none"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
