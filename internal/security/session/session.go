// Package session is the boundary to the external session authenticator.
// Minting the user's login JWT happens outside this service; here we only
// verify a presented session token and resolve the acting user identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated indica que el token de sesión no es válido.
var ErrUnauthenticated = errors.New("session: unauthenticated")

// Authenticator resuelve la identidad del usuario humano detrás de un
// request. Las fallas se reportan como fallas de autenticación, nunca como
// errores de dominio.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionToken string) (userID string, err error)
}

// JWTAuthenticator verifica session tokens HS256 emitidos por el
// autenticador externo con un secreto compartido.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTAuthenticator construye el verificador. issuer es opcional: vacío
// desactiva el chequeo de emisor.
func NewJWTAuthenticator(secret []byte, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret, issuer: issuer, leeway: 30 * time.Second}
}

// Authenticate valida firma, expiración y emisor, y retorna el subject.
func (a *JWTAuthenticator) Authenticate(_ context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	tok, err := jwt.Parse(sessionToken, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrUnauthenticated
	}
	return sub, nil
}
