package auth

import (
	"testing"
	"time"
)

func TestBuildAndParseJWT(t *testing.T) {
	secret := []byte("test-secret-min-32-chars!!")
	tok, err := BuildJWT(secret, 42, TipoAdmin, time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	claims, err := ParseJWT(secret, tok)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 42 || claims.Tipo != TipoAdmin {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	tok, err := BuildJWT([]byte("secret-one-min-32-chars-aaaaaaaa"), 1, TipoDefault, time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT([]byte("secret-two-min-32-chars-bbbbbbbb"), tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseJWTExpired(t *testing.T) {
	secret := []byte("test-secret-min-32-chars!!")
	tok, err := BuildJWT(secret, 7, TipoDefault, -time.Minute)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	if _, err := ParseJWT(secret, tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidTipo(t *testing.T) {
	if !ValidTipo("admin") || !ValidTipo("default") {
		t.Fatal("admin and default must be valid")
	}
	if ValidTipo("") || ValidTipo("root") || ValidTipo("Admin") {
		t.Fatal("unknown roles must be invalid")
	}
}
