// Package permission implementa el motor de permisos por campo: decide si
// un actor (usuario o client) puede leer, actualizar o borrar un registro
// según las listas de permisos del usuario objetivo. CanAccess es puro y
// sin efectos: nunca muta su entrada. Un false se traduce aguas arriba en
// not-found, no en forbidden: el diseño oculta existencia a actores no
// autorizados.
package permission

import (
	"fmt"
	"strings"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
)

// AccessKind es la clase de acceso a autorizar.
type AccessKind uint8

const (
	Read AccessKind = iota
	Update
	Delete
)

func (k AccessKind) String() string {
	switch k {
	case Read:
		return "read"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Catalog define cómo se nombran los privilegios delegables del usuario
// (User.Privileges). Se inyecta en la construcción: no hay catálogo global.
type Catalog struct {
	ReadPrefix   string
	UpdatePrefix string
	DeleteName   string
}

// DefaultCatalog es la convención estándar: "read:<campo>",
// "update:<campo>", "delete".
func DefaultCatalog() Catalog {
	return Catalog{ReadPrefix: "read:", UpdatePrefix: "update:", DeleteName: "delete"}
}

// Engine evalúa permisos contra el field registry y el catálogo inyectados.
type Engine struct {
	reg *fields.Registry
	cat Catalog
}

// NewEngine construye el motor.
func NewEngine(reg *fields.Registry, cat Catalog) *Engine {
	return &Engine{reg: reg, cat: cat}
}

// CanAccess decide si el actor puede ejecutar la clase de acceso sobre los
// campos pedidos, dadas las listas de permisos del usuario objetivo.
//
// Delete: alcanza con una entrada Deleter permitida del actor; no hay
// scoping por campo. Read/Update: alcanza con (a) una entrada propia del
// actor permitida que cubra todos los campos pedidos, o (b) el grant
// blanket correspondiente permitido y cubriendo todos los campos. Un set
// de campos vacío (chequeo de existencia) se satisface con cualquier
// entrada permitida, sin mirar sus Fields.
func (e *Engine) CanAccess(kind AccessKind, actorID string, actorIsClient bool, fieldNames []string, perms repository.UserPermissions) bool {
	author := repository.AuthorUser
	if actorIsClient {
		author = repository.AuthorClient
	}

	switch kind {
	case Delete:
		for _, d := range perms.Deleters {
			if d.Author == author && d.AuthorID == actorID && d.IsPermitted {
				return true
			}
		}
		return false

	case Read:
		for _, r := range perms.Readers {
			if r.Author == author && r.AuthorID == actorID && r.IsPermitted && coversAll(r.Fields, fieldNames) {
				return true
			}
		}
		return perms.AllReaders.ArePermitted && coversAll(perms.AllReaders.Fields, fieldNames)

	case Update:
		for _, u := range perms.Updaters {
			if u.Author == author && u.AuthorID == actorID && u.IsPermitted && coversAll(u.Fields, fieldNames) {
				return true
			}
		}
		return perms.AllUpdaters.ArePermitted && coversAll(perms.AllUpdaters.Fields, fieldNames)
	}
	return false
}

// coversAll reporta si cada nombre pedido figura permitido en la lista.
// Con pedido vacío siempre es true: la entrada que matchea alcanza.
func coversAll(granted []repository.PermissionField, requested []string) bool {
	for _, name := range requested {
		ok := false
		for _, g := range granted {
			if g.Name == name && g.IsPermitted {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// ValidateScope verifica que cada campo del scope resuelva en el registry.
// La invariante del modelo: un Fields con nombre no resoluble no se persiste.
func (e *Engine) ValidateScope(tp repository.TokenPrivileges) error {
	for _, f := range tp.ReadsFields {
		if !e.reg.Has(f.Name) {
			return fmt.Errorf("%w: unknown read field %q", repository.ErrInvalidInput, f.Name)
		}
	}
	for _, f := range tp.UpdatesFields {
		if !e.reg.Has(f.Name) {
			return fmt.Errorf("%w: unknown update field %q", repository.ErrInvalidInput, f.Name)
		}
	}
	return nil
}

// ValidatePermissions verifica nombres de campo de todas las listas.
func (e *Engine) ValidatePermissions(perms repository.UserPermissions) error {
	check := func(fs []repository.PermissionField) error {
		for _, f := range fs {
			if !e.reg.Has(f.Name) {
				return fmt.Errorf("%w: unknown field %q", repository.ErrInvalidInput, f.Name)
			}
		}
		return nil
	}
	for _, r := range perms.Readers {
		if err := check(r.Fields); err != nil {
			return err
		}
	}
	for _, u := range perms.Updaters {
		if err := check(u.Fields); err != nil {
			return err
		}
	}
	if err := check(perms.AllReaders.Fields); err != nil {
		return err
	}
	return check(perms.AllUpdaters.Fields)
}

// ScopeWithinPrivileges reporta si el scope pedido es subconjunto de los
// privilegios delegables del usuario que autoriza.
func (e *Engine) ScopeWithinPrivileges(tp repository.TokenPrivileges, privileges []string) bool {
	has := make(map[string]struct{}, len(privileges))
	for _, p := range privileges {
		has[strings.TrimSpace(p)] = struct{}{}
	}
	for _, f := range tp.ReadsFields {
		if _, ok := has[e.cat.ReadPrefix+f.Name]; !ok {
			return false
		}
	}
	for _, f := range tp.UpdatesFields {
		if _, ok := has[e.cat.UpdatePrefix+f.Name]; !ok {
			return false
		}
	}
	if tp.DeletesUser {
		if _, ok := has[e.cat.DeleteName]; !ok {
			return false
		}
	}
	return true
}

// ApplyGrant traduce el scope en las entradas autoradas por el client y las
// reemplaza en su lugar (re-otorgar es idempotente). Un scope sin campos de
// lectura deja una entrada Reader no permitida; un scope sin DeletesUser
// quita la entrada Deleter previa del client, si existía.
func (e *Engine) ApplyGrant(perms *repository.UserPermissions, clientID string, tp repository.TokenPrivileges) {
	perms.PutReader(repository.Reader{
		Author:      repository.AuthorClient,
		AuthorID:    clientID,
		IsPermitted: len(tp.ReadsFields) > 0,
		Fields:      append([]repository.PermissionField(nil), tp.ReadsFields...),
	})
	perms.PutUpdater(repository.Updater{
		Author:      repository.AuthorClient,
		AuthorID:    clientID,
		IsPermitted: len(tp.UpdatesFields) > 0,
		Fields:      append([]repository.PermissionField(nil), tp.UpdatesFields...),
	})
	if tp.DeletesUser {
		perms.PutDeleter(repository.Deleter{
			Author:      repository.AuthorClient,
			AuthorID:    clientID,
			IsPermitted: true,
		})
	} else {
		perms.RemoveDeleter(repository.AuthorClient, clientID)
	}
}
