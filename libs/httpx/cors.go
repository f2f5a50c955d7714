package httpx

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// OriginMatcher matches browser origins against a list of exact origins
// ("https://app.example.com"), subdomain wildcards ("https://*.example.com")
// or "*".
type OriginMatcher struct {
	any       bool
	exact     map[string]struct{}
	wildcards []wildcardOrigin
}

type wildcardOrigin struct {
	scheme string
	suffix string
}

func NewOriginMatcher(allowed []string) *OriginMatcher {
	m := &OriginMatcher{exact: map[string]struct{}{}}
	for _, a := range normalizeList(allowed) {
		a = strings.ToLower(strings.TrimRight(a, "/"))
		switch {
		case a == "*":
			m.any = true
		case strings.Contains(a, "://*."):
			scheme, host, _ := strings.Cut(a, "://")
			m.wildcards = append(m.wildcards, wildcardOrigin{scheme: scheme, suffix: strings.TrimPrefix(host, "*")})
		default:
			m.exact[a] = struct{}{}
		}
	}
	return m
}

func (m *OriginMatcher) Empty() bool {
	return !m.any && len(m.exact) == 0 && len(m.wildcards) == 0
}

func (m *OriginMatcher) Match(origin string) bool {
	if m.any {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := m.exact[origin]; ok {
		return true
	}
	if len(m.wildcards) == 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	for _, w := range m.wildcards {
		if u.Scheme == w.scheme && strings.HasSuffix(u.Host, w.suffix) && len(u.Host) > len(w.suffix) {
			return true
		}
	}
	return false
}

// WithCORS answers preflights and decorates responses for matching origins.
// With no allowed origins it is a no-op.
func WithCORS(cfg CORSPolicy) Middleware {
	origins := NewOriginMatcher(cfg.AllowedOrigins)
	if origins.Empty() {
		return func(next http.Handler) http.Handler { return next }
	}

	allowedMethods := strings.Join(normalizeList(cfg.AllowedMethods), ", ")
	allowedHeaders := strings.Join(normalizeList(cfg.AllowedHeaders), ", ")
	exposedHeaders := strings.Join(normalizeList(cfg.ExposedHeaders), ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))
	// A literal "*" cannot be combined with credentials, so the origin is echoed.
	wildcardValue := origins.any && !cfg.AllowCredentials

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			headers.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" || !origins.Match(origin) {
				next.ServeHTTP(w, r)
				return
			}

			if wildcardValue {
				headers.Set("Access-Control-Allow-Origin", "*")
			} else {
				headers.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.AllowCredentials {
				headers.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposedHeaders != "" {
				headers.Set("Access-Control-Expose-Headers", exposedHeaders)
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			headers.Add("Vary", "Access-Control-Request-Method")
			headers.Add("Vary", "Access-Control-Request-Headers")
			if allowedMethods != "" {
				headers.Set("Access-Control-Allow-Methods", allowedMethods)
			}
			if allowedHeaders != "" {
				headers.Set("Access-Control-Allow-Headers", allowedHeaders)
			} else if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				headers.Set("Access-Control-Allow-Headers", requested)
			}
			if cfg.MaxAge > 0 {
				headers.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
