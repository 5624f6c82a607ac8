package token

import (
	"strings"
	"testing"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("GenerateOpaqueToken err: %v", err)
	}
	b, err := GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("GenerateOpaqueToken err: %v", err)
	}
	if a == b {
		t.Fatalf("two tokens should never collide")
	}
	// base64url sin padding: 32 bytes -> 43 chars, sin '=' ni '+'.
	if len(a) != 43 {
		t.Fatalf("unexpected length %d", len(a))
	}
	if strings.ContainsAny(a, "=+/") {
		t.Fatalf("token is not raw base64url: %q", a)
	}
}

func TestSHA256Base64URL_Stable(t *testing.T) {
	h1 := SHA256Base64URL("hola")
	h2 := SHA256Base64URL("hola")
	if h1 != h2 {
		t.Fatalf("hash must be deterministic")
	}
	if h1 == SHA256Base64URL("hole") {
		t.Fatalf("different inputs should not collide")
	}
	if strings.ContainsAny(h1, "=+/") {
		t.Fatalf("hash is not raw base64url: %q", h1)
	}
}

func TestHashSecret_Algorithms(t *testing.T) {
	seen := map[string]string{}
	for _, alg := range []string{"sha256", "sha512", "blake2b"} {
		h, err := HashSecret("s3cret", alg)
		if err != nil {
			t.Fatalf("HashSecret(%s) err: %v", alg, err)
		}
		for prev, ph := range seen {
			if ph == h {
				t.Fatalf("%s and %s produced the same hash", prev, alg)
			}
		}
		seen[alg] = h
	}

	// Algoritmo vacío es sha256.
	def, err := HashSecret("s3cret", "")
	if err != nil {
		t.Fatalf("HashSecret default err: %v", err)
	}
	if def != seen["sha256"] {
		t.Fatalf("empty algorithm should default to sha256")
	}

	if _, err := HashSecret("s3cret", "md5"); err == nil {
		t.Fatalf("unknown algorithm should fail")
	}
}

func TestVerifyPKCE_S256(t *testing.T) {
	verifier := GenerateRandomString(32)
	challenge := SHA256Base64URL(verifier)

	if !VerifyPKCE(verifier, MethodS256, challenge) {
		t.Fatalf("valid verifier rejected")
	}

	// Un solo carácter distinto debe fallar.
	mutated := []byte(verifier)
	if mutated[0] == 'A' {
		mutated[0] = 'B'
	} else {
		mutated[0] = 'A'
	}
	if VerifyPKCE(string(mutated), MethodS256, challenge) {
		t.Fatalf("mutated verifier accepted")
	}

	if VerifyPKCE(verifier, MethodS256, "not-base64!!") {
		t.Fatalf("undecodable challenge accepted")
	}
}

func TestVerifyPKCE_Plain(t *testing.T) {
	if !VerifyPKCE("abc", MethodPlain, "abc") {
		t.Fatalf("plain match rejected")
	}
	if VerifyPKCE("abc", MethodPlain, "abd") {
		t.Fatalf("plain mismatch accepted")
	}
	if VerifyPKCE("abc", "S512", "abc") {
		t.Fatalf("unknown method must fail closed")
	}
}

func TestBase64Decode_Fallbacks(t *testing.T) {
	// Con y sin padding deben decodificar los dos.
	for _, s := range []string{"aGVsbG8", "aGVsbG8="} {
		b, err := Base64Decode(s)
		if err != nil {
			t.Fatalf("Base64Decode(%q) err: %v", s, err)
		}
		if string(b) != "hello" {
			t.Fatalf("Base64Decode(%q): got %q", s, b)
		}
	}
}
