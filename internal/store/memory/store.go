// Package memory implementa los repositorios sobre maps en proceso.
// Útil para desarrollo y tests; replica la semántica del driver pg,
// incluyendo la transacción del token exchange (escrituras staged que se
// aplican en Commit).
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/store/core"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]*repository.User
	clients map[string]*repository.Client
	gate    *core.Gate
}

var (
	_ repository.UserRepository   = (*Store)(nil)
	_ repository.ClientRepository = (*ClientStore)(nil)
)

// New crea el store vacío.
func New(gate *core.Gate) *Store {
	return &Store{
		users:   map[string]*repository.User{},
		clients: map[string]*repository.Client{},
		gate:    gate,
	}
}

// ─── Transacción ───

// memTx acumula escrituras sobre copias privadas de los usuarios tocados y
// recién las aplica al map vivo en Commit: ningún lector concurrente ve el
// estado intermedio de un grant a medio emitir. Abort descarta lo staged.
type memTx struct {
	s      *Store
	staged map[string]*repository.User
	done   bool
}

func (s *Store) StartTransaction(ctx context.Context) (repository.Tx, error) {
	return &memTx{s: s, staged: map[string]*repository.User{}}, nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, u := range t.staged {
		// Un usuario borrado mientras la tx corría no se resucita.
		if _, ok := t.s.users[id]; ok {
			t.s.users[id] = u
		}
	}
	t.staged = nil
	return nil
}

func (t *memTx) Abort(ctx context.Context) error {
	t.done = true
	t.staged = nil
	return nil
}

// stage devuelve la copia privada del usuario dentro de la tx, cargándola
// del map vivo la primera vez.
func (t *memTx) stage(userID string) (*repository.User, error) {
	if u, ok := t.staged[userID]; ok {
		return u, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	u, ok := t.s.users[userID]
	if !ok {
		return nil, repository.NotFound("user")
	}
	c := u.Clone()
	t.staged[userID] = c
	return c, nil
}

func asMemTx(tx repository.Tx) *memTx {
	if tx == nil {
		return nil
	}
	t, _ := tx.(*memTx)
	return t
}

// ─── Usuarios ───

func (s *Store) Create(ctx context.Context, u *repository.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return repository.ErrConflict
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) RetrieveByID(ctx context.Context, userID string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, repository.NotFound("user")
	}
	return u.Clone(), nil
}

func (s *Store) RetrieveByClientIDAndCode(ctx context.Context, clientID, code string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		ac := u.AuthorizingClient
		if ac != nil && ac.ClientID == clientID && ac.Code == code {
			return u.Clone(), nil
		}
	}
	return nil, repository.NotFound("user")
}

func (s *Store) RetrieveByRefreshTokenValue(ctx context.Context, refreshTokenHash string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		for i := range u.AuthorizedClients {
			if u.AuthorizedClients[i].RefreshToken.Value == refreshTokenHash {
				return u.Clone(), nil
			}
		}
	}
	return nil, repository.NotFound("user")
}

func (s *Store) UpdateAuthorizingClient(ctx context.Context, userID string, ac *repository.AuthorizingClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.NotFound("user")
	}
	u.AuthorizingClient = ac
	return nil
}

func (s *Store) AddTokenPrivilegesToUser(ctx context.Context, tx repository.Tx, userID, clientID string, tp repository.TokenPrivileges) error {
	if t := asMemTx(tx); t != nil {
		u, err := t.stage(userID)
		if err != nil {
			return err
		}
		s.gate.Eng.ApplyGrant(&u.Permissions, clientID, tp)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.NotFound("user")
	}
	s.gate.Eng.ApplyGrant(&u.Permissions, clientID, tp)
	return nil
}

func (s *Store) AddAuthorizedClient(ctx context.Context, tx repository.Tx, userID string, ac repository.AuthorizedClient) error {
	if t := asMemTx(tx); t != nil {
		u, err := t.stage(userID)
		if err != nil {
			return err
		}
		u.PutAuthorizedClient(ac)
		// Consumir el grant pendiente: el code no puede canjearse dos veces.
		u.AuthorizingClient = nil
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.NotFound("user")
	}
	u.PutAuthorizedClient(ac)
	u.AuthorizingClient = nil
	return nil
}

func (s *Store) UpdateToken(ctx context.Context, userID, clientID string, t repository.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.NotFound("user")
	}
	ac, ok := u.AuthorizedClientFor(clientID)
	if !ok {
		return repository.NotFound("userClient")
	}
	ac.Token = t
	return nil
}

func (s *Store) UpdateUserPrivileges(ctx context.Context, actorID, userID string, perms repository.UserPermissions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.NotFound("user")
	}
	if !s.gate.CanUpdatePermissions(u, actorID, false) {
		return repository.NotFound("user")
	}
	u.Permissions = perms.Clone()
	return nil
}

func (s *Store) Retrieve(ctx context.Context, actorID string, forClient bool, opts repository.RetrieveOptions) ([]repository.PartialUser, error) {
	q, err := s.gate.CompileRetrieve(opts)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	candidates := make([]*repository.User, 0, len(s.users))
	for _, u := range s.users {
		candidates = append(candidates, u.Clone())
	}
	s.mu.RUnlock()
	return q.Run(candidates, actorID, forClient), nil
}

func (s *Store) Update(ctx context.Context, actorID string, forClient bool, f *repository.Filter, ups []repository.Update) (int64, error) {
	m, err := s.gate.CompileUpdate(f, ups)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, u := range s.users {
		mutated, ok, err := m.Apply(u, actorID, forClient)
		if err != nil {
			return n, err
		}
		if ok {
			s.users[id] = mutated
			n++
		}
	}
	return n, nil
}

func (s *Store) Delete(ctx context.Context, actorID string, forClient bool, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.NotFound("user")
	}
	if !s.gate.CanDelete(u, actorID, forClient) {
		return repository.NotFound("user")
	}
	delete(s.users, userID)
	return nil
}

// ─── Clients ───

// Clients expone la vista ClientRepository del mismo store.
func (s *Store) Clients() *ClientStore {
	return &ClientStore{s: s}
}

// ClientStore comparte el estado y el mutex del Store.
type ClientStore struct {
	s *Store
}

func (cs *ClientStore) Create(ctx context.Context, c *repository.Client) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	if _, ok := cs.s.clients[c.ID]; ok {
		return repository.ErrConflict
	}
	cc := *c
	cs.s.clients[c.ID] = &cc
	return nil
}

func (cs *ClientStore) RetrieveByIDAndRedirectURL(ctx context.Context, clientID, redirectURL string) (*repository.Client, error) {
	cs.s.mu.RLock()
	defer cs.s.mu.RUnlock()
	c, ok := cs.s.clients[clientID]
	if !ok || c.RedirectURL != redirectURL {
		return nil, repository.NotFound("client")
	}
	cc := *c
	return &cc, nil
}

func (cs *ClientStore) RetrieveByIDAndSecret(ctx context.Context, clientID, secretHash string) (*repository.Client, error) {
	cs.s.mu.RLock()
	defer cs.s.mu.RUnlock()
	c, ok := cs.s.clients[clientID]
	if !ok || c.Secret != secretHash {
		return nil, repository.NotFound("client")
	}
	cc := *c
	return &cc, nil
}

func (cs *ClientStore) IncrementExposedCount(ctx context.Context, clientID string) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.clients[clientID]
	if !ok {
		return repository.NotFound("client")
	}
	c.ExposedCount++
	return nil
}
