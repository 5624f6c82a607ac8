package permission

import (
	"errors"
	"testing"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(fields.MustUserRegistry(), DefaultCatalog())
}

func TestCanAccess_ReaderScopedByField(t *testing.T) {
	e := newEngine(t)
	perms := repository.UserPermissions{
		Readers: []repository.Reader{{
			Author: repository.AuthorUser, AuthorID: "actor-1", IsPermitted: true,
			Fields: []repository.PermissionField{
				{Name: "email", IsPermitted: true},
				{Name: "first_name", IsPermitted: true},
			},
		}},
	}

	if !e.CanAccess(Read, "actor-1", false, []string{"email"}, perms) {
		t.Fatalf("actor with reader entry should read email")
	}
	if !e.CanAccess(Read, "actor-1", false, []string{"email", "first_name"}, perms) {
		t.Fatalf("entry should cover both granted fields")
	}
	if e.CanAccess(Read, "actor-1", false, []string{"email", "last_name"}, perms) {
		t.Fatalf("entry must cover every requested field")
	}
	if e.CanAccess(Read, "actor-2", false, []string{"email"}, perms) {
		t.Fatalf("a different actor must not match the entry")
	}
	// La identidad del actor es (Author, AuthorID): un client con el mismo
	// id no matchea la entrada de usuario.
	if e.CanAccess(Read, "actor-1", true, []string{"email"}, perms) {
		t.Fatalf("client actor must not match a USER-authored entry")
	}
}

func TestCanAccess_IsPermittedFalseNeverGrants(t *testing.T) {
	e := newEngine(t)
	perms := repository.UserPermissions{
		Readers: []repository.Reader{{
			Author: repository.AuthorUser, AuthorID: "actor-1", IsPermitted: false,
			Fields: []repository.PermissionField{{Name: "email", IsPermitted: true}},
		}},
		Updaters: []repository.Updater{{
			Author: repository.AuthorUser, AuthorID: "actor-1", IsPermitted: true,
			Fields: []repository.PermissionField{{Name: "email", IsPermitted: false}},
		}},
	}

	if e.CanAccess(Read, "actor-1", false, []string{"email"}, perms) {
		t.Fatalf("entry with IsPermitted=false must not grant")
	}
	if e.CanAccess(Update, "actor-1", false, []string{"email"}, perms) {
		t.Fatalf("field with IsPermitted=false must not grant")
	}
}

func TestCanAccess_EmptyFieldSet(t *testing.T) {
	e := newEngine(t)
	perms := repository.UserPermissions{
		Readers: []repository.Reader{{
			Author: repository.AuthorUser, AuthorID: "actor-1", IsPermitted: true,
		}},
	}
	// Un pedido sin campos (chequeo de existencia) se satisface con
	// cualquier entrada permitida, aun sin Fields.
	if !e.CanAccess(Read, "actor-1", false, nil, perms) {
		t.Fatalf("empty field set should be satisfied by a permitted entry")
	}
	if e.CanAccess(Read, "actor-2", false, nil, perms) {
		t.Fatalf("empty field set still requires a matching entry")
	}
}

func TestCanAccess_BlanketGrants(t *testing.T) {
	e := newEngine(t)
	perms := repository.UserPermissions{
		AllReaders: repository.AllReaders{
			ArePermitted: true,
			Fields:       []repository.PermissionField{{Name: "username", IsPermitted: true}},
		},
	}

	if !e.CanAccess(Read, "anyone", false, []string{"username"}, perms) {
		t.Fatalf("blanket reader should grant regardless of identity")
	}
	if !e.CanAccess(Read, "cli-1", true, []string{"username"}, perms) {
		t.Fatalf("blanket reader applies to clients too")
	}
	if e.CanAccess(Read, "anyone", false, []string{"email"}, perms) {
		t.Fatalf("blanket reader is still field-scoped")
	}
	if e.CanAccess(Update, "anyone", false, []string{"username"}, perms) {
		t.Fatalf("blanket reader must not grant updates")
	}
}

func TestCanAccess_DeleteAllOrNothing(t *testing.T) {
	e := newEngine(t)
	perms := repository.UserPermissions{
		Deleters: []repository.Deleter{{
			Author: repository.AuthorClient, AuthorID: "cli-1", IsPermitted: true,
		}},
	}

	if !e.CanAccess(Delete, "cli-1", true, nil, perms) {
		t.Fatalf("deleter entry should grant delete")
	}
	if e.CanAccess(Delete, "cli-2", true, nil, perms) {
		t.Fatalf("delete requires the actor's own entry")
	}
	if e.CanAccess(Delete, "cli-1", false, nil, perms) {
		t.Fatalf("user actor must not match a CLIENT-authored entry")
	}
}

func TestValidateScope(t *testing.T) {
	e := newEngine(t)

	ok := repository.TokenPrivileges{
		ReadsFields:   []repository.PermissionField{{Name: "email", IsPermitted: true}},
		UpdatesFields: []repository.PermissionField{{Name: "first_name", IsPermitted: true}},
	}
	if err := e.ValidateScope(ok); err != nil {
		t.Fatalf("valid scope rejected: %v", err)
	}

	bad := repository.TokenPrivileges{
		ReadsFields: []repository.PermissionField{{Name: "ghost", IsPermitted: true}},
	}
	if err := e.ValidateScope(bad); !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("unknown scope field should be ErrInvalidInput, got %v", err)
	}
}

func TestScopeWithinPrivileges(t *testing.T) {
	e := newEngine(t)
	privileges := []string{"read:email", "read:first_name", "update:first_name", "delete"}

	within := repository.TokenPrivileges{
		ReadsFields:   []repository.PermissionField{{Name: "email", IsPermitted: true}},
		UpdatesFields: []repository.PermissionField{{Name: "first_name", IsPermitted: true}},
		DeletesUser:   true,
	}
	if !e.ScopeWithinPrivileges(within, privileges) {
		t.Fatalf("scope within privileges rejected")
	}

	readBeyond := repository.TokenPrivileges{
		ReadsFields: []repository.PermissionField{{Name: "last_name", IsPermitted: true}},
	}
	if e.ScopeWithinPrivileges(readBeyond, privileges) {
		t.Fatalf("read scope beyond privileges should be rejected")
	}

	deleteBeyond := repository.TokenPrivileges{DeletesUser: true}
	if e.ScopeWithinPrivileges(deleteBeyond, []string{"read:email"}) {
		t.Fatalf("delete scope without the delete privilege should be rejected")
	}

	if !e.ScopeWithinPrivileges(repository.TokenPrivileges{}, nil) {
		t.Fatalf("empty scope is always within privileges")
	}
}

func TestApplyGrant(t *testing.T) {
	e := newEngine(t)
	var perms repository.UserPermissions

	e.ApplyGrant(&perms, "cli-1", repository.TokenPrivileges{
		ReadsFields: []repository.PermissionField{{Name: "email", IsPermitted: true}},
		DeletesUser: true,
	})

	if len(perms.Readers) != 1 || !perms.Readers[0].IsPermitted {
		t.Fatalf("reader entry missing or not permitted: %+v", perms.Readers)
	}
	if perms.Readers[0].Author != repository.AuthorClient || perms.Readers[0].AuthorID != "cli-1" {
		t.Fatalf("reader entry must be authored by the client")
	}
	// Sin campos de escritura el Updater queda presente pero no permitido.
	if len(perms.Updaters) != 1 || perms.Updaters[0].IsPermitted {
		t.Fatalf("updater entry should exist and be unpermitted: %+v", perms.Updaters)
	}
	if len(perms.Deleters) != 1 {
		t.Fatalf("deleter entry missing")
	}
}

// Re-otorgar reemplaza en su lugar: nunca acumula entradas del mismo client.
func TestApplyGrant_ReplacesInPlace(t *testing.T) {
	e := newEngine(t)
	var perms repository.UserPermissions

	e.ApplyGrant(&perms, "cli-1", repository.TokenPrivileges{
		ReadsFields: []repository.PermissionField{{Name: "email", IsPermitted: true}},
		DeletesUser: true,
	})
	e.ApplyGrant(&perms, "cli-1", repository.TokenPrivileges{
		UpdatesFields: []repository.PermissionField{{Name: "first_name", IsPermitted: true}},
	})

	if len(perms.Readers) != 1 || len(perms.Updaters) != 1 {
		t.Fatalf("entries must be replaced, not appended: %d readers, %d updaters",
			len(perms.Readers), len(perms.Updaters))
	}
	if perms.Readers[0].IsPermitted {
		t.Fatalf("narrowed re-grant should leave the reader unpermitted")
	}
	if !perms.Updaters[0].IsPermitted {
		t.Fatalf("updater should be permitted after re-grant")
	}
	// El nuevo scope no borra al usuario: la entrada Deleter previa se quita.
	if len(perms.Deleters) != 0 {
		t.Fatalf("deleter entry should have been removed: %+v", perms.Deleters)
	}
}

func TestValidatePermissions(t *testing.T) {
	e := newEngine(t)

	bad := repository.UserPermissions{
		AllUpdaters: repository.AllUpdaters{
			ArePermitted: true,
			Fields:       []repository.PermissionField{{Name: "ghost", IsPermitted: true}},
		},
	}
	if err := e.ValidatePermissions(bad); !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("unknown field in blanket list should fail, got %v", err)
	}

	good := repository.UserPermissions{
		Readers: []repository.Reader{{
			Author: repository.AuthorUser, AuthorID: "a", IsPermitted: true,
			Fields: []repository.PermissionField{{Name: "tags", IsPermitted: true}},
		}},
	}
	if err := e.ValidatePermissions(good); err != nil {
		t.Fatalf("valid permissions rejected: %v", err)
	}
}
