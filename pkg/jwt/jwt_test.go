package jwt

import (
	"errors"
	"testing"
	"time"

	apperrors "liveness_survey/pkg/errors"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken("secret", "liveness-survey", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	claims, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %q, want admin", claims.Role)
	}
	if claims.Issuer != "liveness-survey" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("jti must be set")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := GenerateAdminToken("secret", "liveness-survey", time.Hour)

	if _, err := ValidateToken(token, "other"); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, _ := GenerateAdminToken("secret", "liveness-survey", -time.Minute)

	if _, err := ValidateToken(token, "secret"); !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token", "secret"); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
