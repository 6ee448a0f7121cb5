package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret123"); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "admin", RoleName: RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != "admin" || claims.RoleName != RoleAdmin || claims.Subject != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatal("expected signature mismatch")
	}

	expired, err := GenerateToken("secret", Claims{UserID: "admin"}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestNewAuthenticatorRequiresSecrets(t *testing.T) {
	if _, err := NewAuthenticator(Options{Password: "pw"}); err == nil {
		t.Fatal("expected error without jwt secret")
	}
	if _, err := NewAuthenticator(Options{Secret: "s"}); err == nil {
		t.Fatal("expected error without password")
	}
	a, err := NewAuthenticator(Options{Secret: "s", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.TTL() != DefaultTTL {
		t.Fatalf("expected default ttl, got %v", a.TTL())
	}
}

func TestAuthenticatorLogin(t *testing.T) {
	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := NewAuthenticator(Options{Secret: "s", PasswordHash: hash, TTL: time.Hour})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	if _, _, err := a.Login("nope", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	token, expires, err := a.Login("admin123", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if time.Until(expires) > time.Hour || time.Until(expires) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expires)
	}
	user, err := a.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.RoleName != RoleAdmin || user.SessionID == "" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestAuthenticatorLoginWithTOTP(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "staffhub", AccountName: "admin"})
	if err != nil {
		t.Fatalf("generate totp: %v", err)
	}
	a, err := NewAuthenticator(Options{Secret: "s", Password: "pw", TOTPSecret: key.Secret()})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	if _, _, err := a.Login("pw", ""); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected mfa required, got %v", err)
	}
	if _, _, err := a.Login("pw", "000000x"); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected invalid mfa, got %v", err)
	}

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if _, _, err := a.Login("pw", code); err != nil {
		t.Fatalf("expected login with valid code, got %v", err)
	}
}
