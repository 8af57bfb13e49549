package jwtPkg

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignRequiresSecret(t *testing.T) {
	t.Setenv(AccessTokenSecretEnv, "")

	if _, _, err := Sign(map[string]interface{}{"id": "op-1"}, time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Expected ErrMissingSecret, got %v", err)
	}
}

func TestSignedTokenCarriesOperator(t *testing.T) {
	t.Setenv(AccessTokenSecretEnv, "test-secret")

	signed, exp, err := Sign(map[string]interface{}{
		"id":    "op-1",
		"name":  "night shift",
		"fleet": "north",
	}, time.Hour)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if exp <= time.Now().Unix() {
		t.Errorf("Expected expiry in the future, got %d", exp)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	operator, err := OperatorFromClaims(token.Claims.(jwt.MapClaims))
	if err != nil {
		t.Fatalf("OperatorFromClaims failed: %v", err)
	}
	if operator.ID != "op-1" || operator.Name != "night shift" || operator.Fleet != "north" {
		t.Errorf("Unexpected operator %+v", operator)
	}
}

func TestOperatorFromClaimsRejectsIncomplete(t *testing.T) {
	if _, err := OperatorFromClaims(jwt.MapClaims{"id": "op-1"}); err == nil {
		t.Error("Expected error for claims without a name")
	}
}
