// Package token agrupa las primitivas criptográficas del ciclo de vida de
// tokens: generación de valores opacos, hashing para persistencia y la
// verificación PKCE. Nunca se persisten plaintexts: solo los hashes que
// producen estas funciones.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateRandomString genera un string aleatorio de n bytes de entropía.
// Entra en pánico si el RNG del sistema falla: no hay degradación segura.
func GenerateRandomString(nBytes int) string {
	s, err := GenerateOpaqueToken(nBytes)
	if err != nil {
		panic("token: system RNG failed: " + err.Error())
	}
	return s
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para
// guardar en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Base64Decode decodifica base64url sin padding, con fallback a estándar.
func Base64Decode(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// HashSecret hashea un secret con el algoritmo nombrado. El algoritmo es
// dato, no código compilado: el esquema puede evolucionar por configuración
// sin tocar el core. Algoritmos soportados: "sha256", "sha512", "blake2b".
func HashSecret(plain, algorithm string) (string, error) {
	switch algorithm {
	case "", "sha256":
		sum := sha256.Sum256([]byte(plain))
		return base64.RawURLEncoding.EncodeToString(sum[:]), nil
	case "sha512":
		sum := sha512.Sum512([]byte(plain))
		return base64.RawURLEncoding.EncodeToString(sum[:]), nil
	case "blake2b":
		sum := blake2b.Sum256([]byte(plain))
		return base64.RawURLEncoding.EncodeToString(sum[:]), nil
	}
	return "", fmt.Errorf("token: unknown hash algorithm %q", algorithm)
}

// PKCE code challenge methods.
const (
	MethodS256  = "S256"
	MethodPlain = "plain"
)

// VerifyPKCE verifica que el code verifier corresponda al challenge
// almacenado. Para S256 compara sha256(verifier) contra el challenge
// decodificado; para plain compara los valores directo. La comparación es
// de tiempo constante.
func VerifyPKCE(verifier, method, challenge string) bool {
	switch method {
	case MethodS256:
		want, err := Base64Decode(challenge)
		if err != nil {
			return false
		}
		sum := sha256.Sum256([]byte(verifier))
		return subtle.ConstantTimeCompare(sum[:], want) == 1
	case MethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	}
	return false
}
