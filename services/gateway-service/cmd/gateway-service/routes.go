package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/roombook/libs/auth"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Identity headers set for upstream services. Client supplied values are
// always dropped.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
	headerRole      = "X-Role"
)

type tokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

func registerRoutes(mux *http.ServeMux, booking http.Handler, verifier tokenVerifier) {
	public := stripIdentity(booking)
	registerProxy(mux, "/api/v1/rooms", public)
	registerProxy(mux, "/api/v1/availability", public)
	registerProxy(mux, "/api/v1/slots", public)
	registerProxy(mux, "/api/v1/recurrence", public)

	registerProxy(mux, "/api/v1/drafts", requireAuth(booking, verifier))
	registerProxy(mux, "/api/v1/submissions", requireAuth(booking, verifier))
	registerProxy(mux, "/api/v1/admin", requireAuth(requireRole(booking, "admin"), verifier))

	mux.HandleFunc("/openapi", func(w http.ResponseWriter, _ *http.Request) {
		data, err := openAPISpec.ReadFile("assets/gateway.v1.yaml")
		if err != nil {
			http.Error(w, "openapi not available", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}

func parseUpstream(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q needs a scheme and host", raw)
	}
	return u, nil
}

// newProxy forwards to target; websocket upgrades pass through the reverse
// proxy unchanged.
func newProxy(target *url.URL, logger *zap.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = otelhttp.NewTransport(http.DefaultTransport)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream request failed",
			zap.String("upstream", target.Host),
			zap.String("path", r.URL.Path),
			zap.String("request_id", httpx.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
	}
	return proxy
}

func stripIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(headerUserID)
		r.Header.Del(headerUserEmail)
		r.Header.Del(headerRole)
		next.ServeHTTP(w, r)
	})
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket handshakes, so upgrades may pass access_token in the query.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return ""
}

func requireAuth(next http.Handler, verifier tokenVerifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if r.URL.Query().Has("access_token") {
			q := r.URL.Query()
			q.Del("access_token")
			r.URL.RawQuery = q.Encode()
		}
		r.Header.Del(headerUserID)
		r.Header.Del(headerUserEmail)
		r.Header.Del(headerRole)
		r.Header.Set(headerUserID, claims.UserID())
		if claims.Email != "" {
			r.Header.Set(headerUserEmail, claims.Email)
		}
		if claims.Role != "" {
			r.Header.Set(headerRole, claims.Role)
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(next http.Handler, roles ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := allowed[r.Header.Get(headerRole)]; !ok {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
