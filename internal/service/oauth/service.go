// Package oauth implements the token lifecycle: Authorize issues a PKCE-bound
// authorization code, Token exchanges it atomically for an access/refresh
// token pair plus client-scoped permissions, ReToken re-issues the access
// token from a still-valid refresh token. Refresh tokens are deliberately not
// rotated on ReToken.
package oauth

import (
	"context"
	"crypto/subtle"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/grantjohn/internal/clients"
	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/observability/logger"
	"github.com/dropDatabas3/grantjohn/internal/permission"
	"github.com/dropDatabas3/grantjohn/internal/security/session"
	"github.com/dropDatabas3/grantjohn/internal/security/token"
)

const (
	CodeExpiration               = 10 * time.Minute
	TokenExpirationMonths        = 1
	RefreshTokenExpirationMonths = 6

	codeBytes  = 32
	tokenBytes = 32
)

type Service struct {
	users   repository.UserRepository
	clients *clients.Registry
	auth    session.Authenticator
	eng     *permission.Engine
	now     func() time.Time
	log     *zap.Logger
}

func NewService(users repository.UserRepository, reg *clients.Registry, auth session.Authenticator, eng *permission.Engine) *Service {
	return &Service{
		users:   users,
		clients: reg,
		auth:    auth,
		eng:     eng,
		now:     time.Now,
		log:     logger.Named("oauth"),
	}
}

// Authorize validates the acting user's session and privileges, then issues a
// single-use authorization code bound to the client and the PKCE challenge.
// A new call replaces any prior pending grant for the user.
func (s *Service) Authorize(ctx context.Context, sessionToken, clientID, redirectURL, codeChallenge, codeChallengeMethod string, scope repository.TokenPrivileges) (string, error) {
	userID, err := s.auth.Authenticate(ctx, sessionToken)
	if err != nil {
		return "", err
	}

	client, err := s.clients.ResolveByRedirect(ctx, clientID, redirectURL)
	if err != nil {
		return "", err
	}

	// Un método desconocido recién fallaría en Token como verifier inválido,
	// cobrándole una exposición al client por un error de input del caller.
	if codeChallengeMethod != token.MethodS256 && codeChallengeMethod != token.MethodPlain {
		return "", repository.ErrInvalidInput
	}

	if err := s.eng.ValidateScope(scope); err != nil {
		return "", err
	}

	user, err := s.users.RetrieveByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !s.eng.ScopeWithinPrivileges(scope, user.Privileges) {
		s.log.Warn("authorize_scope_exceeds_privileges",
			logger.UserID(userID), logger.ClientID(client.ID))
		return "", repository.ErrUnauthorized
	}

	code, err := token.GenerateOpaqueToken(codeBytes)
	if err != nil {
		return "", err
	}

	ac := &repository.AuthorizingClient{
		ClientID:            client.ID,
		Code:                code,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		CodeExpiresAt:       s.now().Add(CodeExpiration),
		TokenPrivileges:     scope.Clone(),
	}
	if err := s.users.UpdateAuthorizingClient(ctx, userID, ac); err != nil {
		return "", err
	}

	s.log.Info("authorization_code_issued",
		logger.UserID(userID), logger.ClientID(client.ID))
	return code, nil
}

// Token exchanges a valid (client, code, verifier) triple for a fresh token
// pair. The grant write is transactional: scoped permissions, the new
// AuthorizedClient entry and the consumption of the pending grant become
// visible together or not at all. Returns the unhashed token values; only
// hashes are persisted.
func (s *Service) Token(ctx context.Context, clientID, code, codeVerifier, redirectURL string) (accessToken, refreshToken string, err error) {
	client, err := s.clients.ResolveByRedirect(ctx, clientID, redirectURL)
	if err != nil {
		return "", "", err
	}

	user, err := s.users.RetrieveByClientIDAndCode(ctx, client.ID, code)
	if err != nil {
		return "", "", err
	}
	grant := user.AuthorizingClient
	if grant == nil {
		return "", "", repository.NotFound("authorizingClient")
	}

	if s.now().After(grant.CodeExpiresAt) {
		return "", "", repository.ErrCodeExpired
	}

	if !token.VerifyPKCE(codeVerifier, grant.CodeChallengeMethod, grant.CodeChallenge) {
		// A wrong verifier against a real code means someone intercepted the
		// code without the verifier. Count it toward the ban threshold.
		s.markExposed(ctx, client.ID)
		return "", "", repository.ErrInvalidCodeVerifier
	}

	accessToken, err = token.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = token.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return "", "", err
	}

	now := s.now()
	authorized := repository.AuthorizedClient{
		ClientID: client.ID,
		RefreshToken: repository.RefreshToken{
			Value:           token.SHA256Base64URL(refreshToken),
			ExpiresAt:       now.AddDate(0, RefreshTokenExpirationMonths, 0),
			TokenPrivileges: grant.TokenPrivileges.Clone(),
			IsVerified:      true,
		},
		Token: repository.Token{
			Value:     token.SHA256Base64URL(accessToken),
			ExpiresAt: now.AddDate(0, TokenExpirationMonths, 0),
			IsRevoked: false,
		},
	}

	tx, err := s.users.StartTransaction(ctx)
	if err != nil {
		return "", "", err
	}
	if err := s.users.AddTokenPrivilegesToUser(ctx, tx, user.ID, client.ID, grant.TokenPrivileges); err != nil {
		_ = tx.Abort(ctx)
		return "", "", err
	}
	if err := s.users.AddAuthorizedClient(ctx, tx, user.ID, authorized); err != nil {
		_ = tx.Abort(ctx)
		return "", "", err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Abort(ctx)
		return "", "", err
	}

	s.log.Info("token_issued",
		logger.UserID(user.ID), logger.ClientID(client.ID))
	return accessToken, refreshToken, nil
}

// ReToken re-issues the access token for an authorized client. The refresh
// token stays as is: concurrent calls with the same refresh token both
// succeed and each replaces the access token.
func (s *Service) ReToken(ctx context.Context, clientID, clientSecret, refreshToken string) (string, error) {
	client, err := s.clients.ResolveBySecret(ctx, clientID, clientSecret)
	if err != nil {
		return "", err
	}

	hash := token.SHA256Base64URL(refreshToken)
	user, err := s.users.RetrieveByRefreshTokenValue(ctx, hash)
	if err != nil {
		return "", err
	}
	authorized, ok := user.AuthorizedClientFor(client.ID)
	if !ok {
		return "", repository.NotFound("userClient")
	}

	if s.now().After(authorized.RefreshToken.ExpiresAt) {
		return "", repository.ErrRefreshTokenExpired
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(authorized.RefreshToken.Value)) != 1 {
		// The lookup matched another client's entry: the supplied token does
		// not belong to this client.
		s.markExposed(ctx, client.ID)
		return "", repository.ErrInvalidRefreshToken
	}

	accessToken, err := token.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return "", err
	}
	fresh := repository.Token{
		Value:     token.SHA256Base64URL(accessToken),
		ExpiresAt: s.now().AddDate(0, TokenExpirationMonths, 0),
		IsRevoked: false,
	}
	if err := s.users.UpdateToken(ctx, user.ID, client.ID, fresh); err != nil {
		return "", err
	}

	s.log.Info("token_refreshed",
		logger.UserID(user.ID), logger.ClientID(client.ID))
	return accessToken, nil
}

// Revoke lets the session owner mark the access token of one of their
// authorized clients as revoked. The refresh token survives: the client can
// mint a replacement via ReToken.
func (s *Service) Revoke(ctx context.Context, sessionToken, clientID string) error {
	userID, err := s.auth.Authenticate(ctx, sessionToken)
	if err != nil {
		return err
	}
	user, err := s.users.RetrieveByID(ctx, userID)
	if err != nil {
		return err
	}
	authorized, ok := user.AuthorizedClientFor(clientID)
	if !ok {
		return repository.NotFound("userClient")
	}

	revoked := authorized.Token
	revoked.IsRevoked = true
	if err := s.users.UpdateToken(ctx, userID, clientID, revoked); err != nil {
		return err
	}

	s.log.Info("token_revoked",
		logger.UserID(userID), logger.ClientID(clientID))
	return nil
}

func (s *Service) markExposed(ctx context.Context, clientID string) {
	if err := s.clients.MarkExposed(ctx, clientID); err != nil {
		s.log.Warn("mark_exposed_failed", logger.ClientID(clientID), logger.Err(err))
	}
}
