package auth

import (
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// JWKS is a background-refreshed key set fetched from an identity provider.
type JWKS struct {
	set *keyfunc.JWKS
}

// NewJWKS fetches url once and refreshes it every refresh interval, and
// immediately when a token names an unknown kid.
func NewJWKS(url string, refresh time.Duration, logger *zap.Logger) (*JWKS, error) {
	if refresh <= 0 {
		refresh = 5 * time.Minute
	}
	set, err := keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   refresh,
		RefreshRateLimit:  30 * time.Second,
		RefreshTimeout:    5 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh failed", zap.String("url", url), zap.Error(err))
		},
	})
	if err != nil {
		return nil, err
	}
	return &JWKS{set: set}, nil
}

func (j *JWKS) Keyfunc(token *jwt.Token) (interface{}, error) {
	return j.set.Keyfunc(token)
}

// Close stops the background refresh goroutine.
func (j *JWKS) Close() {
	if j != nil && j.set != nil {
		j.set.EndBackground()
	}
}
