package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/auth"
	"go.uber.org/zap"
)

func TestRequireRole(t *testing.T) {
	h := requireRole(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "admin")

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("X-Role", "member")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}

	reqOK := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	reqOK.Header.Set("X-Role", "admin")
	rwOK := httptest.NewRecorder()
	h.ServeHTTP(rwOK, reqOK)
	if rwOK.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rwOK.Code)
	}
}

func TestRequireAuthHS256(t *testing.T) {
	secret := "test-secret"
	claims := auth.NewClaims("user-1", "ada@example.com", "member", time.Hour)
	token, err := auth.SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	h := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") != "user-1" ||
			r.Header.Get("X-User-Email") != "ada@example.com" ||
			r.Header.Get("X-Role") != "member" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), auth.NewVerifier(secret, nil))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Role", "admin")
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
}

func TestWebsocketTokenFromQuery(t *testing.T) {
	secret := "test-secret"
	token, err := auth.SignHS256(auth.NewClaims("user-2", "", "member", time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	h := requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("access_token") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), auth.NewVerifier(secret, nil))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/drafts/d1/watch?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}

	plain := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/drafts/d1?access_token="+token, nil)
	rwPlain := httptest.NewRecorder()
	h.ServeHTTP(rwPlain, plain)
	if rwPlain.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token without upgrade, got %d", rwPlain.Code)
	}
}

func TestRoutesForwardIdentity(t *testing.T) {
	var got http.Header
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	target, err := parseUpstream(upstream.URL)
	if err != nil {
		t.Fatalf("parseUpstream failed: %v", err)
	}
	secret := "test-secret"
	mux := http.NewServeMux()
	registerRoutes(mux, newProxy(target, zap.NewNop()), auth.NewVerifier(secret, nil))

	// public route drops spoofed identity
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms/7/availability?date=2026-02-04", nil)
	req.Header.Set("X-User-Id", "spoofed")
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if gotPath != "/api/v1/rooms/7/availability" || got.Get("X-User-Id") != "" {
		t.Fatalf("unexpected upstream request path=%s user=%q", gotPath, got.Get("X-User-Id"))
	}

	// drafts need a token
	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/api/v1/drafts", nil))
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}

	// admin needs the admin role
	token, err := auth.SignHS256(auth.NewClaims("user-1", "", "member", time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	adminReq := httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/invalidate", nil)
	adminReq.Header.Set("Authorization", "Bearer "+token)
	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, adminReq)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rw.Code)
	}
}

func TestProxyUpstreamDown(t *testing.T) {
	target, err := parseUpstream("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("parseUpstream failed: %v", err)
	}
	rw := httptest.NewRecorder()
	newProxy(target, zap.NewNop()).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/1/availability", nil))
	if rw.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rw.Code)
	}
}

func TestParseUpstreamRejectsRelative(t *testing.T) {
	if _, err := parseUpstream("booking-service:8083"); err == nil {
		t.Fatal("expected error for url without scheme")
	}
}
