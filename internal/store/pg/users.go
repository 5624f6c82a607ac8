package pg

import (
	"context"
	"encoding/json"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
)

// Los lookups por code y por refresh token navegan el documento JSONB; el
// resto carga el doc completo, decide en memoria y lo escribe de vuelta.

const (
	qSelectByID = `SELECT doc FROM users WHERE id = $1`

	qSelectByIDForUpdate = `SELECT doc FROM users WHERE id = $1 FOR UPDATE`

	qSelectByClientCode = `
		SELECT doc FROM users
		WHERE doc->'authorizing_client'->>'client_id' = $1
		  AND doc->'authorizing_client'->>'code' = $2
		LIMIT 1`

	qSelectByRefreshToken = `
		SELECT doc FROM users
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(doc->'authorized_clients') ac
			WHERE ac->'refresh_token'->>'value' = $1
		)
		LIMIT 1`

	qInsertUser = `INSERT INTO users (id, doc) VALUES ($1, $2)`

	qUpdateDoc = `UPDATE users SET doc = $2 WHERE id = $1`

	qDeleteUser = `DELETE FROM users WHERE id = $1`

	qSelectAll = `SELECT doc FROM users`

	qSelectAllForUpdate = `SELECT doc FROM users FOR UPDATE`
)

func (s *Store) Create(ctx context.Context, u *repository.User) error {
	raw, err := encodeDoc(u)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, qInsertUser, u.ID, raw); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return repository.Storagef("insert user", err)
	}
	return nil
}

func (s *Store) RetrieveByID(ctx context.Context, userID string) (*repository.User, error) {
	return scanDoc(s.pool.QueryRow(ctx, qSelectByID, userID))
}

func (s *Store) RetrieveByClientIDAndCode(ctx context.Context, clientID, code string) (*repository.User, error) {
	return scanDoc(s.pool.QueryRow(ctx, qSelectByClientCode, clientID, code))
}

func (s *Store) RetrieveByRefreshTokenValue(ctx context.Context, refreshTokenHash string) (*repository.User, error) {
	return scanDoc(s.pool.QueryRow(ctx, qSelectByRefreshToken, refreshTokenHash))
}

// writeDoc persiste el documento completo. Retorna ErrNotFound si el usuario
// desapareció entre la carga y la escritura.
func (s *Store) writeDoc(ctx context.Context, q querier, u *repository.User) error {
	raw, err := encodeDoc(u)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, qUpdateDoc, u.ID, raw)
	if err != nil {
		return repository.Storagef("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.NotFound("user")
	}
	return nil
}

// mutateDoc corre fn sobre el documento en una transacción corta con el row
// lockeado: dos escritores sobre el mismo usuario serializan en vez de
// pisarse el documento mutuamente.
func (s *Store) mutateDoc(ctx context.Context, userID string, fn func(*repository.User) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return repository.Storagef("begin", err)
	}
	defer tx.Rollback(ctx)

	u, err := scanDoc(tx.QueryRow(ctx, qSelectByIDForUpdate, userID))
	if err != nil {
		return err
	}
	if err := fn(u); err != nil {
		return err
	}
	if err := s.writeDoc(ctx, tx, u); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return repository.Storagef("commit", err)
	}
	return nil
}

func (s *Store) UpdateAuthorizingClient(ctx context.Context, userID string, ac *repository.AuthorizingClient) error {
	return s.mutateDoc(ctx, userID, func(u *repository.User) error {
		u.AuthorizingClient = ac
		return nil
	})
}

func (s *Store) AddTokenPrivilegesToUser(ctx context.Context, tx repository.Tx, userID, clientID string, tp repository.TokenPrivileges) error {
	q := s.q(tx)
	u, err := scanDoc(q.QueryRow(ctx, qSelectByIDForUpdate, userID))
	if err != nil {
		return err
	}
	s.gate.Eng.ApplyGrant(&u.Permissions, clientID, tp)
	return s.writeDoc(ctx, q, u)
}

func (s *Store) AddAuthorizedClient(ctx context.Context, tx repository.Tx, userID string, ac repository.AuthorizedClient) error {
	q := s.q(tx)
	u, err := scanDoc(q.QueryRow(ctx, qSelectByIDForUpdate, userID))
	if err != nil {
		return err
	}
	u.PutAuthorizedClient(ac)
	// Consumir el grant pendiente: el code no puede canjearse dos veces.
	u.AuthorizingClient = nil
	return s.writeDoc(ctx, q, u)
}

func (s *Store) UpdateToken(ctx context.Context, userID, clientID string, t repository.Token) error {
	return s.mutateDoc(ctx, userID, func(u *repository.User) error {
		acl, ok := u.AuthorizedClientFor(clientID)
		if !ok {
			return repository.NotFound("userClient")
		}
		acl.Token = t
		return nil
	})
}

func (s *Store) UpdateUserPrivileges(ctx context.Context, actorID, userID string, perms repository.UserPermissions) error {
	return s.mutateDoc(ctx, userID, func(u *repository.User) error {
		if !s.gate.CanUpdatePermissions(u, actorID, false) {
			return repository.NotFound("user")
		}
		u.Permissions = perms.Clone()
		return nil
	})
}

// loadAll carga todos los documentos. El gating por ACL es por registro y se
// decide en memoria, igual que el driver memory.
func loadAll(ctx context.Context, q querier, sql string) ([]*repository.User, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, repository.Storagef("select users", err)
	}
	defer rows.Close()

	var out []*repository.User
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, repository.Storagef("scan", err)
		}
		var u repository.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, repository.Storagef("decode", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.Storagef("select users", err)
	}
	return out, nil
}

func (s *Store) Retrieve(ctx context.Context, actorID string, forClient bool, opts repository.RetrieveOptions) ([]repository.PartialUser, error) {
	cq, err := s.gate.CompileRetrieve(opts)
	if err != nil {
		return nil, err
	}
	users, err := loadAll(ctx, s.pool, qSelectAll)
	if err != nil {
		return nil, err
	}
	return cq.Run(users, actorID, forClient), nil
}

func (s *Store) Update(ctx context.Context, actorID string, forClient bool, f *repository.Filter, ups []repository.Update) (int64, error) {
	m, err := s.gate.CompileUpdate(f, ups)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, repository.Storagef("begin", err)
	}
	defer tx.Rollback(ctx)

	users, err := loadAll(ctx, tx, qSelectAllForUpdate)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, u := range users {
		mutated, ok, err := m.Apply(u, actorID, forClient)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		raw, err := encodeDoc(mutated)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, qUpdateDoc, mutated.ID, raw); err != nil {
			return 0, repository.Storagef("update user", err)
		}
		n++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, repository.Storagef("commit", err)
	}
	return n, nil
}

func (s *Store) Delete(ctx context.Context, actorID string, forClient bool, userID string) error {
	u, err := scanDoc(s.pool.QueryRow(ctx, qSelectByID, userID))
	if err != nil {
		return err
	}
	if !s.gate.CanDelete(u, actorID, forClient) {
		return repository.NotFound("user")
	}
	tag, err := s.pool.Exec(ctx, qDeleteUser, userID)
	if err != nil {
		return repository.Storagef("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.NotFound("user")
	}
	return nil
}
