package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
)

// Clients expone la vista ClientRepository del mismo store.
func (s *Store) Clients() *ClientStore {
	return &ClientStore{s: s}
}

// ClientStore opera sobre la tabla relacional clients.
type ClientStore struct {
	s *Store
}

const (
	qSelectClientByRedirect = `
		SELECT id, name, secret, redirect_url, exposed_count
		FROM clients WHERE id = $1 AND redirect_url = $2`

	qSelectClientBySecret = `
		SELECT id, name, secret, redirect_url, exposed_count
		FROM clients WHERE id = $1 AND secret = $2`

	qInsertClient = `
		INSERT INTO clients (id, name, secret, redirect_url, exposed_count)
		VALUES ($1, $2, $3, $4, $5)`

	qIncrementExposed = `
		UPDATE clients SET exposed_count = exposed_count + 1 WHERE id = $1`
)

func scanClient(row pgx.Row) (*repository.Client, error) {
	var c repository.Client
	err := row.Scan(&c.ID, &c.Name, &c.Secret, &c.RedirectURL, &c.ExposedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.NotFound("client")
		}
		return nil, repository.Storagef("scan client", err)
	}
	return &c, nil
}

func (cs *ClientStore) RetrieveByIDAndRedirectURL(ctx context.Context, clientID, redirectURL string) (*repository.Client, error) {
	return scanClient(cs.s.pool.QueryRow(ctx, qSelectClientByRedirect, clientID, redirectURL))
}

func (cs *ClientStore) RetrieveByIDAndSecret(ctx context.Context, clientID, secretHash string) (*repository.Client, error) {
	return scanClient(cs.s.pool.QueryRow(ctx, qSelectClientBySecret, clientID, secretHash))
}

func (cs *ClientStore) IncrementExposedCount(ctx context.Context, clientID string) error {
	tag, err := cs.s.pool.Exec(ctx, qIncrementExposed, clientID)
	if err != nil {
		return repository.Storagef("increment exposed_count", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.NotFound("client")
	}
	return nil
}

func (cs *ClientStore) Create(ctx context.Context, c *repository.Client) error {
	_, err := cs.s.pool.Exec(ctx, qInsertClient, c.ID, c.Name, c.Secret, c.RedirectURL, c.ExposedCount)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return repository.Storagef("insert client", err)
	}
	return nil
}
