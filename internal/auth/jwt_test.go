package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-jwt-secret-that-is-32-chars-!"

func newTestVerifier(t *testing.T, audience string) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, audience)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	if _, err := NewVerifier("", ""); err == nil {
		t.Error("NewVerifier(\"\") expected error")
	}
	if _, err := NewVerifier("short", ""); err != nil {
		t.Errorf("NewVerifier(short) unexpected error: %v", err)
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	v := newTestVerifier(t, "authenticated")
	token, err := v.Sign("user-123", "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID() != "user-123" {
		t.Errorf("UserID() = %q, want user-123", claims.UserID())
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", claims.Email)
	}
	if claims.Role != "authenticated" {
		t.Errorf("Role = %q, want authenticated", claims.Role)
	}
}

func TestVerify_Rejects(t *testing.T) {
	v := newTestVerifier(t, "authenticated")
	now := time.Now()

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString: %v", err)
		}
		return s
	}
	valid := func() *Claims {
		return &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))

	noExp := valid()
	noExp.ExpiresAt = nil

	wrongAud := valid()
	wrongAud.Audience = jwt.ClaimStrings{"anon"}

	noSub := valid()
	noSub.Subject = ""

	cases := map[string]string{
		"garbage":        "not.a.jwt",
		"empty":          "",
		"wrong secret":   sign(jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), valid()),
		"hs512":          sign(jwt.SigningMethodHS512, []byte(testSecret), valid()),
		"alg none":       sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid()),
		"expired":        sign(jwt.SigningMethodHS256, []byte(testSecret), expired),
		"no expiry":      sign(jwt.SigningMethodHS256, []byte(testSecret), noExp),
		"wrong audience": sign(jwt.SigningMethodHS256, []byte(testSecret), wrongAud),
		"no subject":     sign(jwt.SigningMethodHS256, []byte(testSecret), noSub),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(token); err == nil {
				t.Errorf("Verify(%s) expected error", name)
			}
		})
	}

	t.Run("tampered payload", func(t *testing.T) {
		token, _ := v.Sign("user-1", "a@example.com", time.Hour)
		parts := strings.Split(token, ".")
		parts[1] = parts[1][:len(parts[1])-2] + "AA"
		if _, err := v.Verify(strings.Join(parts, ".")); err == nil {
			t.Error("Verify(tampered) expected error")
		}
	})
}

func TestVerify_NoAudienceConfigured(t *testing.T) {
	v := newTestVerifier(t, "")
	token, err := v.Sign("user-1", "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := v.Verify(token); err != nil {
		t.Errorf("Verify() unexpected error: %v", err)
	}
}
