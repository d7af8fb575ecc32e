package auth

import "testing"

func TestHashPasswordAndCheck(t *testing.T) {
	plain := "MinhaSenha123!"
	hash, err := HashPassword(plain)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == plain {
		t.Fatal("hash must not equal plaintext")
	}
	if !CheckPassword(hash, plain) {
		t.Fatal("CheckPassword should succeed for correct password")
	}
	if CheckPassword(hash, "errada") {
		t.Fatal("CheckPassword should fail for wrong password")
	}
}

func TestCheckPasswordGarbageHash(t *testing.T) {
	if CheckPassword("not-a-bcrypt-hash", "qualquer") {
		t.Fatal("garbage hash must never match")
	}
}
