package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jwt "github.com/golang-jwt/jwt/v5"
)

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	s := NewMemorySessionStore(time.Hour)
	token, err := s.NewSession("root")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	subject, ok, err := s.GetSubjectByToken(token)
	if err != nil || !ok || subject != "root" {
		t.Fatalf("lookup = %q, %v, %v", subject, ok, err)
	}
	if _, ok, _ := s.GetSubjectByToken("unknown"); ok {
		t.Fatalf("unknown token must not resolve")
	}
	if _, ok, _ := s.GetSubjectByToken(""); ok {
		t.Fatalf("empty token must not resolve")
	}
}

func TestMemorySessionStoreExpires(t *testing.T) {
	s := NewMemorySessionStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	token, err := s.NewSession("root")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.GetSubjectByToken(token); ok {
		t.Fatalf("expired session must not resolve")
	}
}

func TestMemorySessionStoreTokensAreUnique(t *testing.T) {
	s := NewMemorySessionStore(0)
	a, _ := s.NewSession("root")
	b, _ := s.NewSession("root")
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
}

func TestRedisSessionStoreRoundTripAndTTL(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	token, err := s.NewSession("root")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if !redis.Exists("shelf:session:" + token) {
		t.Fatalf("expected prefixed session key in redis")
	}
	subject, ok, err := s.GetSubjectByToken(token)
	if err != nil || !ok || subject != "root" {
		t.Fatalf("lookup = %q, %v, %v", subject, ok, err)
	}

	redis.FastForward(2 * time.Minute)
	if _, ok, err := s.GetSubjectByToken(token); err != nil || ok {
		t.Fatalf("expired session resolved: ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreSurfacesErrors(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)
	redis.Close()
	if _, err := s.NewSession("root"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
	if _, _, err := s.GetSubjectByToken("token"); err == nil {
		t.Fatalf("expected lookup error when redis is down")
	}
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	token, err := s.NewSession("root")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	subject, ok, err := s.GetSubjectByToken(token)
	if err != nil || !ok || subject != "root" {
		t.Fatalf("lookup = %q, %v, %v", subject, ok, err)
	}
}

func TestJWTSessionStoreRejectsForeignTokens(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	other, err := NewJWTSessionStore("other-secret", time.Minute)
	if err != nil {
		t.Fatalf("new other store: %v", err)
	}
	foreign, _ := other.NewSession("root")

	expired := signClaims(t, "test-secret", jwt.RegisteredClaims{
		Subject:   "root",
		Issuer:    defaultJWTIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	noExpiry := signClaims(t, "test-secret", jwt.RegisteredClaims{
		Subject: "root",
		Issuer:  defaultJWTIssuer,
	})
	wrongIssuer := signClaims(t, "test-secret", jwt.RegisteredClaims{
		Subject:   "root",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "root",
		Issuer:    defaultJWTIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	for name, token := range map[string]string{
		"foreign secret": foreign,
		"expired":        expired,
		"no expiry":      noExpiry,
		"wrong issuer":   wrongIssuer,
		"alg none":       unsigned,
		"garbage":        "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.GetSubjectByToken(token); err != nil || ok {
				t.Fatalf("token accepted: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestNewJWTSessionStoreValidatesInput(t *testing.T) {
	if _, err := NewJWTSessionStore("", time.Minute); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
	if _, err := NewJWTSessionStore("secret", 0); err == nil {
		t.Fatalf("expected zero ttl to fail")
	}
}

func signClaims(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
