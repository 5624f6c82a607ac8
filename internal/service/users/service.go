// Package users exposes the permission-scoped user surface: single get,
// filtered listing, bulk update, delete and ACL editing. Every operation is
// gated per record and per field; a denied record is reported as not found so
// existence never leaks to unauthorized actors.
package users

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/observability/logger"
	"github.com/dropDatabas3/grantjohn/internal/permission"
	"github.com/dropDatabas3/grantjohn/internal/security/token"
	"github.com/dropDatabas3/grantjohn/internal/store/core"
)

// Actor is the authenticated identity performing an operation: a user
// session or a client credential. Resolution happens at the transport layer.
type Actor struct {
	ID       string
	IsClient bool
}

type Service struct {
	repo repository.UserRepository
	gate *core.Gate
	eng  *permission.Engine
	now  func() time.Time
	log  *zap.Logger
}

func NewService(repo repository.UserRepository, gate *core.Gate, eng *permission.Engine) *Service {
	return &Service{
		repo: repo,
		gate: gate,
		eng:  eng,
		now:  time.Now,
		log:  logger.Named("users"),
	}
}

// NewUser carries the caller-supplied fields of a registration.
type NewUser struct {
	Email       string
	Username    string
	FirstName   string
	LastName    string
	MiddleName  *string
	PhoneNumber string
	AvatarURL   string
	Privileges  []string
}

// Register creates a user record. The new user starts with no ACL entries:
// only the user themself (and blanket grants they later configure) can see
// the record.
func (s *Service) Register(ctx context.Context, in NewUser) (*repository.User, error) {
	if strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Username) == "" {
		return nil, repository.ErrInvalidInput
	}

	now := s.now().UTC()
	u := &repository.User{
		ID:          uuid.NewString(),
		Email:       in.Email,
		Username:    in.Username,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		MiddleName:  in.MiddleName,
		PhoneNumber: in.PhoneNumber,
		AvatarURL:   in.AvatarURL,
		Privileges:  append([]string(nil), in.Privileges...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("user_registered", logger.UserID(u.ID))
	return u, nil
}

// Get returns the fields of one user visible to the actor. An actor that can
// see nothing of the record gets not-found, same as a missing record.
func (s *Service) Get(ctx context.Context, actor Actor, userID string) (repository.PartialUser, error) {
	u, err := s.repo.RetrieveByID(ctx, userID)
	if err != nil {
		return repository.PartialUser{}, err
	}

	view := s.gate.PartialView(u, actor.ID, actor.IsClient)
	if len(view.Fields) == 0 {
		return repository.PartialUser{}, repository.NotFound("user")
	}
	return view, nil
}

// List runs a filtered, sorted, paged query. Records the actor cannot read
// all filter fields of are silently excluded; surviving records are trimmed
// to the actor's readable fields.
func (s *Service) List(ctx context.Context, actor Actor, opts repository.RetrieveOptions) ([]repository.PartialUser, error) {
	return s.repo.Retrieve(ctx, actor.ID, actor.IsClient, opts)
}

// BulkUpdate applies the update list to every matching record the actor may
// update. Returns the number of records changed; unauthorized records are
// excluded from the match set, never reported as errors.
func (s *Service) BulkUpdate(ctx context.Context, actor Actor, f *repository.Filter, ups []repository.Update) (int64, error) {
	n, err := s.repo.Update(ctx, actor.ID, actor.IsClient, f, ups)
	if err != nil {
		return 0, err
	}
	s.log.Info("bulk_update",
		logger.ActorID(actor.ID), zap.Bool("for_client", actor.IsClient),
		logger.Count(int(n)))
	return n, nil
}

// Delete removes a user record if the actor holds a Deleter entry on it.
func (s *Service) Delete(ctx context.Context, actor Actor, userID string) error {
	if err := s.repo.Delete(ctx, actor.ID, actor.IsClient, userID); err != nil {
		return err
	}
	s.log.Info("user_deleted",
		logger.ActorID(actor.ID), logger.UserID(userID))
	return nil
}

// UpdatePermissions replaces a user's ACL lists. Only the user themself may
// edit their own lists; client actors are refused as not-found.
func (s *Service) UpdatePermissions(ctx context.Context, actor Actor, userID string, perms repository.UserPermissions) error {
	if actor.IsClient {
		return repository.NotFound("user")
	}
	if err := s.eng.ValidatePermissions(perms); err != nil {
		return err
	}
	return s.repo.UpdateUserPrivileges(ctx, actor.ID, userID, perms)
}

// VerifyAccessToken checks a client's bearer access token against the target
// user's grant for that client: hash match, not revoked, not expired.
func (s *Service) VerifyAccessToken(ctx context.Context, userID, clientID, accessToken string) error {
	u, err := s.repo.RetrieveByID(ctx, userID)
	if err != nil {
		return err
	}
	authorized, ok := u.AuthorizedClientFor(clientID)
	if !ok {
		return repository.NotFound("userClient")
	}

	hash := token.SHA256Base64URL(accessToken)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(authorized.Token.Value)) != 1 {
		return repository.ErrUnauthorized
	}
	if authorized.Token.IsRevoked || s.now().After(authorized.Token.ExpiresAt) {
		return repository.ErrUnauthorized
	}
	return nil
}
