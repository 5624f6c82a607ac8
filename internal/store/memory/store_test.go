package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
	"github.com/dropDatabas3/grantjohn/internal/permission"
	"github.com/dropDatabas3/grantjohn/internal/store/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	reg := fields.MustUserRegistry()
	eng := permission.NewEngine(reg, permission.DefaultCatalog())
	return New(&core.Gate{Reg: reg, Eng: eng})
}

func seedUser(t *testing.T, s *Store, u *repository.User) {
	t.Helper()
	if err := s.Create(context.Background(), u); err != nil {
		t.Fatalf("Create(%s) err: %v", u.ID, err)
	}
}

func readerFor(actorID string, fieldNames ...string) repository.Reader {
	r := repository.Reader{Author: repository.AuthorUser, AuthorID: actorID, IsPermitted: true}
	for _, n := range fieldNames {
		r.Fields = append(r.Fields, repository.PermissionField{Name: n, IsPermitted: true})
	}
	return r
}

func updaterFor(actorID string, fieldNames ...string) repository.Updater {
	u := repository.Updater{Author: repository.AuthorUser, AuthorID: actorID, IsPermitted: true}
	for _, n := range fieldNames {
		u.Fields = append(u.Fields, repository.PermissionField{Name: n, IsPermitted: true})
	}
	return u
}

func TestCreateRetrieve(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedUser(t, s, &repository.User{ID: "u-1", Email: "a@b.c", Username: "ana"})

	got, err := s.RetrieveByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("RetrieveByID err: %v", err)
	}
	if got.Username != "ana" {
		t.Fatalf("username: got %q", got.Username)
	}
	// El store entrega copias: mutar el resultado no toca el estado.
	got.Username = "hackeado"
	again, _ := s.RetrieveByID(ctx, "u-1")
	if again.Username != "ana" {
		t.Fatalf("store state leaked through the returned copy")
	}

	if err := s.Create(ctx, &repository.User{ID: "u-1"}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate id should be ErrConflict, got %v", err)
	}
	if _, err := s.RetrieveByID(ctx, "nope"); !repository.IsNotFound(err) {
		t.Fatalf("missing user should be not found, got %v", err)
	}
}

func TestRetrieveByClientIDAndCode(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedUser(t, s, &repository.User{ID: "u-1"})
	ac := &repository.AuthorizingClient{ClientID: "cli-1", Code: "c0de", CodeExpiresAt: time.Now().Add(time.Minute)}
	if err := s.UpdateAuthorizingClient(ctx, "u-1", ac); err != nil {
		t.Fatalf("UpdateAuthorizingClient err: %v", err)
	}

	got, err := s.RetrieveByClientIDAndCode(ctx, "cli-1", "c0de")
	if err != nil {
		t.Fatalf("RetrieveByClientIDAndCode err: %v", err)
	}
	if got.ID != "u-1" {
		t.Fatalf("got user %q", got.ID)
	}
	if _, err := s.RetrieveByClientIDAndCode(ctx, "cli-1", "otro"); !repository.IsNotFound(err) {
		t.Fatalf("wrong code should be indistinguishable from missing, got %v", err)
	}
	if _, err := s.RetrieveByClientIDAndCode(ctx, "cli-2", "c0de"); !repository.IsNotFound(err) {
		t.Fatalf("wrong client should be indistinguishable from missing, got %v", err)
	}
}

// El canje del code es transaccional: Abort deja el agregado como estaba.
func TestTransaction_AbortRestores(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedUser(t, s, &repository.User{ID: "u-1"})
	pending := &repository.AuthorizingClient{ClientID: "cli-1", Code: "c0de"}
	if err := s.UpdateAuthorizingClient(ctx, "u-1", pending); err != nil {
		t.Fatalf("UpdateAuthorizingClient err: %v", err)
	}

	tx, err := s.StartTransaction(ctx)
	if err != nil {
		t.Fatalf("StartTransaction err: %v", err)
	}
	tp := repository.TokenPrivileges{
		ReadsFields: []repository.PermissionField{{Name: "email", IsPermitted: true}},
	}
	if err := s.AddTokenPrivilegesToUser(ctx, tx, "u-1", "cli-1", tp); err != nil {
		t.Fatalf("AddTokenPrivilegesToUser err: %v", err)
	}
	if err := s.AddAuthorizedClient(ctx, tx, "u-1", repository.AuthorizedClient{ClientID: "cli-1"}); err != nil {
		t.Fatalf("AddAuthorizedClient err: %v", err)
	}
	if err := tx.Abort(ctx); err != nil {
		t.Fatalf("Abort err: %v", err)
	}

	u, _ := s.RetrieveByID(ctx, "u-1")
	if u.AuthorizingClient == nil || u.AuthorizingClient.Code != "c0de" {
		t.Fatalf("pending grant should be restored after abort")
	}
	if len(u.AuthorizedClients) != 0 {
		t.Fatalf("authorized client should be rolled back")
	}
	if len(u.Permissions.Readers) != 0 {
		t.Fatalf("granted permissions should be rolled back")
	}
}

func TestTransaction_CommitConsumesPendingGrant(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedUser(t, s, &repository.User{ID: "u-1"})
	if err := s.UpdateAuthorizingClient(ctx, "u-1", &repository.AuthorizingClient{ClientID: "cli-1", Code: "c0de"}); err != nil {
		t.Fatalf("UpdateAuthorizingClient err: %v", err)
	}

	tx, _ := s.StartTransaction(ctx)
	tp := repository.TokenPrivileges{
		ReadsFields: []repository.PermissionField{{Name: "email", IsPermitted: true}},
	}
	if err := s.AddTokenPrivilegesToUser(ctx, tx, "u-1", "cli-1", tp); err != nil {
		t.Fatalf("AddTokenPrivilegesToUser err: %v", err)
	}
	if err := s.AddAuthorizedClient(ctx, tx, "u-1", repository.AuthorizedClient{ClientID: "cli-1"}); err != nil {
		t.Fatalf("AddAuthorizedClient err: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit err: %v", err)
	}
	// Abort después de Commit es un no-op seguro.
	if err := tx.Abort(ctx); err != nil {
		t.Fatalf("Abort after Commit err: %v", err)
	}

	u, _ := s.RetrieveByID(ctx, "u-1")
	if u.AuthorizingClient != nil {
		t.Fatalf("pending grant must be consumed exactly once")
	}
	if _, ok := u.AuthorizedClientFor("cli-1"); !ok {
		t.Fatalf("authorized client missing after commit")
	}
	if len(u.Permissions.Readers) != 1 {
		t.Fatalf("reader grant missing after commit")
	}
}

func TestRetrieve_GatesPerRecordAndTrimsFields(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	visible := &repository.User{ID: "u-1", Email: "a@b.c", Username: "ana"}
	visible.Permissions.PutReader(readerFor("actor", "username"))
	hidden := &repository.User{ID: "u-2", Email: "x@y.z", Username: "ana"}
	seedUser(t, s, visible)
	seedUser(t, s, hidden)

	f := &repository.Filter{
		Op: repository.OpEq, Field: "username",
		Type: repository.KindString, Value: repository.String("ana"),
	}
	out, err := s.Retrieve(ctx, "actor", false, repository.RetrieveOptions{Filter: f})
	if err != nil {
		t.Fatalf("Retrieve err: %v", err)
	}
	// u-2 matchea el filtro pero el actor no puede leer username ahí:
	// queda excluido en silencio.
	if len(out) != 1 || out[0].ID != "u-1" {
		t.Fatalf("expected only the readable record, got %+v", out)
	}
	// La vista se recorta a los campos legibles: username sí, email no.
	if _, ok := out[0].Fields["username"]; !ok {
		t.Fatalf("username should be visible")
	}
	if _, ok := out[0].Fields["email"]; ok {
		t.Fatalf("email must be trimmed from the view")
	}
}

func TestRetrieve_SortAndPaging(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, u := range []*repository.User{
		{ID: "u-1", Username: "ana", LoginCount: 3},
		{ID: "u-2", Username: "ana", LoginCount: 1},
		{ID: "u-3", Username: "ana", LoginCount: 2},
	} {
		u.Permissions.AllReaders = repository.AllReaders{
			ArePermitted: true,
			Fields: []repository.PermissionField{
				{Name: "username", IsPermitted: true},
				{Name: "login_count", IsPermitted: true},
			},
		}
		seedUser(t, s, u)
	}

	opts := repository.RetrieveOptions{
		Filter: &repository.Filter{
			Op: repository.OpEq, Field: "username",
			Type: repository.KindString, Value: repository.String("ana"),
		},
		SortBy: "login_count", Ascending: true, Limit: 2,
	}
	page0, err := s.Retrieve(ctx, "anon", false, opts)
	if err != nil {
		t.Fatalf("Retrieve err: %v", err)
	}
	if len(page0) != 2 || page0[0].ID != "u-2" || page0[1].ID != "u-3" {
		t.Fatalf("page 0: got %+v", page0)
	}

	opts.Iteration = 1
	page1, err := s.Retrieve(ctx, "anon", false, opts)
	if err != nil {
		t.Fatalf("Retrieve err: %v", err)
	}
	if len(page1) != 1 || page1[0].ID != "u-1" {
		t.Fatalf("page 1: got %+v", page1)
	}
}

func TestUpdate_GatesOnUpdateFields(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	granted := &repository.User{ID: "u-1", Username: "ana", FirstName: "Ana"}
	granted.Permissions.PutUpdater(updaterFor("actor", "first_name"))
	denied := &repository.User{ID: "u-2", Username: "ana", FirstName: "Ana"}
	seedUser(t, s, granted)
	seedUser(t, s, denied)

	f := &repository.Filter{
		Op: repository.OpEq, Field: "username",
		Type: repository.KindString, Value: repository.String("ana"),
	}
	ups := []repository.Update{
		{Field: "first_name", Op: repository.OpSet, Type: repository.KindString, Value: repository.String("Anne")},
	}
	n, err := s.Update(ctx, "actor", false, f, ups)
	if err != nil {
		t.Fatalf("Update err: %v", err)
	}
	if n != 1 {
		t.Fatalf("matched: got %d want 1", n)
	}

	u1, _ := s.RetrieveByID(ctx, "u-1")
	if u1.FirstName != "Anne" {
		t.Fatalf("granted record not updated: %q", u1.FirstName)
	}
	u2, _ := s.RetrieveByID(ctx, "u-2")
	if u2.FirstName != "Ana" {
		t.Fatalf("denied record must stay untouched: %q", u2.FirstName)
	}
}

func TestUpdate_CompileErrorTouchesNothing(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedUser(t, s, &repository.User{ID: "u-1", Username: "ana"})

	_, err := s.Update(ctx, "actor", false, nil, []repository.Update{
		{Field: "id", Op: repository.OpSet, Type: repository.KindString, Value: repository.String("x")},
	})
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("immutable target should fail at compile, got %v", err)
	}
}

func TestDelete_RequiresDeleterEntry(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &repository.User{ID: "u-1"}
	u.Permissions.PutDeleter(repository.Deleter{
		Author: repository.AuthorClient, AuthorID: "cli-1", IsPermitted: true,
	})
	seedUser(t, s, u)

	if err := s.Delete(ctx, "cli-2", true, "u-1"); !repository.IsNotFound(err) {
		t.Fatalf("actor without deleter entry should get not-found, got %v", err)
	}
	if err := s.Delete(ctx, "cli-1", true, "u-1"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, err := s.RetrieveByID(ctx, "u-1"); !repository.IsNotFound(err) {
		t.Fatalf("user should be gone, got %v", err)
	}
}

func TestUpdateUserPrivileges_SelfOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedUser(t, s, &repository.User{ID: "u-1"})

	perms := repository.UserPermissions{
		AllReaders: repository.AllReaders{
			ArePermitted: true,
			Fields:       []repository.PermissionField{{Name: "username", IsPermitted: true}},
		},
	}
	if err := s.UpdateUserPrivileges(ctx, "u-2", "u-1", perms); !repository.IsNotFound(err) {
		t.Fatalf("other actors must not edit the ACLs, got %v", err)
	}
	if err := s.UpdateUserPrivileges(ctx, "u-1", "u-1", perms); err != nil {
		t.Fatalf("UpdateUserPrivileges err: %v", err)
	}
	u, _ := s.RetrieveByID(ctx, "u-1")
	if !u.Permissions.AllReaders.ArePermitted {
		t.Fatalf("permissions not replaced")
	}
}

func TestUpdateToken(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &repository.User{ID: "u-1"}
	u.PutAuthorizedClient(repository.AuthorizedClient{
		ClientID: "cli-1",
		Token:    repository.Token{Value: "old-hash"},
	})
	seedUser(t, s, u)

	fresh := repository.Token{Value: "new-hash", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.UpdateToken(ctx, "u-1", "cli-1", fresh); err != nil {
		t.Fatalf("UpdateToken err: %v", err)
	}
	got, _ := s.RetrieveByID(ctx, "u-1")
	ac, _ := got.AuthorizedClientFor("cli-1")
	if ac.Token.Value != "new-hash" {
		t.Fatalf("token not replaced: %q", ac.Token.Value)
	}

	if err := s.UpdateToken(ctx, "u-1", "cli-9", fresh); !repository.IsNotFound(err) {
		t.Fatalf("missing grant should be not-found, got %v", err)
	}
}

func TestClientStore(t *testing.T) {
	s := newStore(t)
	cs := s.Clients()
	ctx := context.Background()

	c := &repository.Client{ID: "cli-1", Name: "app", Secret: "hash", RedirectURL: "https://app/cb"}
	if err := cs.Create(ctx, c); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if err := cs.Create(ctx, c); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("duplicate client should be ErrConflict, got %v", err)
	}

	if _, err := cs.RetrieveByIDAndRedirectURL(ctx, "cli-1", "https://app/cb"); err != nil {
		t.Fatalf("RetrieveByIDAndRedirectURL err: %v", err)
	}
	if _, err := cs.RetrieveByIDAndRedirectURL(ctx, "cli-1", "https://evil/cb"); !repository.IsNotFound(err) {
		t.Fatalf("redirect mismatch should be not-found, got %v", err)
	}
	if _, err := cs.RetrieveByIDAndSecret(ctx, "cli-1", "hash"); err != nil {
		t.Fatalf("RetrieveByIDAndSecret err: %v", err)
	}
	if _, err := cs.RetrieveByIDAndSecret(ctx, "cli-1", "otro"); !repository.IsNotFound(err) {
		t.Fatalf("secret mismatch should be not-found, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := cs.IncrementExposedCount(ctx, "cli-1"); err != nil {
			t.Fatalf("IncrementExposedCount err: %v", err)
		}
	}
	got, _ := cs.RetrieveByIDAndSecret(ctx, "cli-1", "hash")
	if got.ExposedCount != 2 {
		t.Fatalf("exposed count: got %d want 2", got.ExposedCount)
	}
}

func TestRetrieve_HugeIterationIsRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedUser(t, s, &repository.User{ID: "u-1"})

	// Iteration*Limit desbordaría int y el offset negativo pincharía el
	// slice: tiene que rebotar como input inválido antes de tocar registros.
	_, err := s.Retrieve(ctx, "actor", false, repository.RetrieveOptions{
		Iteration: 1 << 60,
		Limit:     200,
	})
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("huge iteration: got %v, want ErrInvalidInput", err)
	}
}

func TestTransaction_PartialGrantNotVisibleBeforeCommit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seedUser(t, s, &repository.User{ID: "u-1"})
	if err := s.UpdateAuthorizingClient(ctx, "u-1", &repository.AuthorizingClient{ClientID: "cli-1", Code: "c0de"}); err != nil {
		t.Fatalf("UpdateAuthorizingClient err: %v", err)
	}

	tx, _ := s.StartTransaction(ctx)
	tp := repository.TokenPrivileges{
		ReadsFields: []repository.PermissionField{{Name: "email", IsPermitted: true}},
	}
	if err := s.AddTokenPrivilegesToUser(ctx, tx, "u-1", "cli-1", tp); err != nil {
		t.Fatalf("AddTokenPrivilegesToUser err: %v", err)
	}
	if err := s.AddAuthorizedClient(ctx, tx, "u-1", repository.AuthorizedClient{ClientID: "cli-1"}); err != nil {
		t.Fatalf("AddAuthorizedClient err: %v", err)
	}

	// Un lector concurrente al exchange no ve el grant a medias.
	mid, _ := s.RetrieveByID(ctx, "u-1")
	if len(mid.Permissions.Readers) != 0 {
		t.Fatalf("reader grant leaked before commit")
	}
	if len(mid.AuthorizedClients) != 0 {
		t.Fatalf("authorized client leaked before commit")
	}
	if mid.AuthorizingClient == nil || mid.AuthorizingClient.Code != "c0de" {
		t.Fatalf("pending grant must stay intact until commit")
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit err: %v", err)
	}
	u, _ := s.RetrieveByID(ctx, "u-1")
	if u.AuthorizingClient != nil {
		t.Fatalf("pending grant must be consumed on commit")
	}
	if len(u.Permissions.Readers) != 1 {
		t.Fatalf("reader grant missing after commit")
	}
}
