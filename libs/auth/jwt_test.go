package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := NewClaims("user-1", "ada@example.com", "admin", time.Hour)
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := NewVerifier(secret, nil).Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if parsed.UserID() != "user-1" || parsed.Email != claims.Email || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := NewVerifier("wrong-secret", nil).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	claims := NewClaims("user-1", "", "user", -time.Minute)
	token, err := SignHS256(claims, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := NewVerifier("s", nil).Verify(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRS256RejectedWithoutJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, NewClaims("user-2", "", "user", time.Hour)).SignedString(key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := NewVerifier("secret", nil).Verify(token); err == nil {
		t.Fatal("expected rs256 token to be rejected without jwks")
	}
}

func TestRS256VerifyWithJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "kid-1",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	defer srv.Close()

	jwks, err := NewJWKS(srv.URL, time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewJWKS failed: %v", err)
	}
	defer jwks.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, NewClaims("user-3", "", "admin", time.Hour))
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	parsed, err := NewVerifier("", jwks).Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if parsed.UserID() != "user-3" || parsed.Role != "admin" {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
}
