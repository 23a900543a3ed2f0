package security

import (
	"strings"
	"testing"
)

var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithParams("correct-horse", fastParams)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !strings.HasPrefix(string(hash), "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := VerifyPassword("correct-horse", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword = %v, %v; want true, nil", ok, err)
	}

	ok, err = VerifyPassword("wrong-horse", hash)
	if err != nil || ok {
		t.Fatalf("VerifyPassword(wrong) = %v, %v; want false, nil", ok, err)
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	if _, err := VerifyPassword("x", []byte("$2a$10$bcrypt")); err == nil {
		t.Fatal("expected error for non-argon2 hash")
	}
}

func TestResetTokenDigest(t *testing.T) {
	token, digest, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken error: %v", err)
	}
	if len(token) != 40 {
		t.Fatalf("token length = %d, want 40 hex chars", len(token))
	}
	if digest == token || HashResetToken(token) != digest {
		t.Fatal("digest must be the sha256 of the token")
	}
}

func TestSignResource(t *testing.T) {
	sig := SignResource("secret", "stores", "1", "logo.png")
	if !VerifyResource("secret", sig, "stores", "1", "logo.png") {
		t.Fatal("expected signature to verify")
	}
	if VerifyResource("secret", sig, "stores", "2", "logo.png") {
		t.Fatal("expected signature mismatch for different parts")
	}
}
