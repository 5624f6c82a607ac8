// Package core contiene la lógica de consulta compartida por los stores:
// compilación de expresiones, gating por permisos por registro y por campo,
// orden y paginado. Los drivers (pg, memory) cargan candidatos y delegan
// acá, así la semántica de autorización es una sola.
package core

import (
	"math"
	"sort"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
	"github.com/dropDatabas3/grantjohn/internal/permission"
	"github.com/dropDatabas3/grantjohn/internal/query"
)

// DefaultLimit es el tamaño de página cuando el caller no lo acota.
const DefaultLimit = 50

// MaxLimit acota el tamaño de página.
const MaxLimit = 200

// Gate evalúa consultas en bloque con la semántica de permisos del dominio.
type Gate struct {
	Reg *fields.Registry
	Eng *permission.Engine
}

// CompiledQuery es una consulta de lectura lista para correr por registro.
type CompiledQuery struct {
	pred         query.Predicate
	filterFields []string
	opts         repository.RetrieveOptions
	gate         *Gate
}

// CompileRetrieve valida y compila la consulta. Errores acá son de
// expresión: se reportan antes de tocar registros.
func (g *Gate) CompileRetrieve(opts repository.RetrieveOptions) (*CompiledQuery, error) {
	pred, err := query.CompileFilter(opts.Filter, g.Reg)
	if err != nil {
		return nil, err
	}
	if opts.SortBy != "" {
		if _, ok := g.Reg.Resolve(opts.SortBy); !ok {
			return nil, repository.ErrInvalidInput
		}
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}
	if opts.Iteration < 0 {
		opts.Iteration = 0
	}
	// El offset es Iteration*Limit: un Iteration desmedido desbordaría y
	// pasaría el guard de rango como negativo.
	if opts.Iteration > math.MaxInt/opts.Limit {
		return nil, repository.ErrInvalidInput
	}
	return &CompiledQuery{
		pred:         pred,
		filterFields: query.FilterFields(opts.Filter),
		opts:         opts,
		gate:         g,
	}, nil
}

// Run corre la consulta sobre los candidatos: excluye registros que el
// actor no puede leer en los campos del filtro, evalúa el predicado,
// ordena, pagina y recorta cada usuario a su vista permitida.
func (q *CompiledQuery) Run(users []*repository.User, actorID string, forClient bool) []repository.PartialUser {
	matched := make([]*repository.User, 0, len(users))
	for _, u := range users {
		if !q.gate.Eng.CanAccess(permission.Read, actorID, forClient, q.filterFields, u.Permissions) {
			continue
		}
		if !q.pred(u) {
			continue
		}
		matched = append(matched, u)
	}

	q.sortUsers(matched)

	offset := q.opts.Iteration * q.opts.Limit
	if offset >= len(matched) {
		return []repository.PartialUser{}
	}
	end := offset + q.opts.Limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]repository.PartialUser, 0, end-offset)
	for _, u := range matched[offset:end] {
		out = append(out, q.gate.partialView(u, actorID, forClient))
	}
	return out
}

func (q *CompiledQuery) sortUsers(users []*repository.User) {
	sortBy := q.opts.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	acc, ok := q.gate.Reg.Resolve(sortBy)
	if !ok {
		return
	}
	asc := q.opts.Ascending
	sort.SliceStable(users, func(i, j int) bool {
		cmp, ok := query.Compare(acc.Kind, acc.Get(users[i]), acc.Get(users[j]))
		if !ok {
			return false
		}
		if asc {
			return cmp < 0
		}
		return cmp > 0
	})
}

// partialView recorta el usuario a los campos que el actor puede leer,
// campo por campo. Los nulls no se incluyen.
func (g *Gate) partialView(u *repository.User, actorID string, forClient bool) repository.PartialUser {
	pu := repository.PartialUser{ID: u.ID, Fields: map[string]repository.Value{}}
	for _, name := range g.Reg.Names() {
		if !g.Eng.CanAccess(permission.Read, actorID, forClient, []string{name}, u.Permissions) {
			continue
		}
		acc, _ := g.Reg.Resolve(name)
		v := acc.Get(u)
		if v.IsNull() {
			continue
		}
		pu.Fields[name] = v
	}
	return pu
}

// PartialView expone la vista recortada para lecturas de un solo registro.
func (g *Gate) PartialView(u *repository.User, actorID string, forClient bool) repository.PartialUser {
	return g.partialView(u, actorID, forClient)
}

// CompiledMutation es una mutación en bloque lista para correr por registro.
type CompiledMutation struct {
	pred         query.Predicate
	transform    query.Transform
	updateFields []string
	gate         *Gate
}

// CompileUpdate valida y compila la mutación.
func (g *Gate) CompileUpdate(f *repository.Filter, ups []repository.Update) (*CompiledMutation, error) {
	pred, err := query.CompileFilter(f, g.Reg)
	if err != nil {
		return nil, err
	}
	transform, err := query.CompileUpdate(ups, g.Reg)
	if err != nil {
		return nil, err
	}
	return &CompiledMutation{
		pred:         pred,
		transform:    transform,
		updateFields: query.UpdateFields(ups),
		gate:         g,
	}, nil
}

// Apply decide si el registro participa de la mutación y la aplica sobre
// una copia. Retorna (copia mutada, true) si hubo cambio; (nil, false) si
// el registro queda excluido del match (sin permiso o sin match de filtro).
// La exclusión es silenciosa: no se distingue de un no-match.
func (m *CompiledMutation) Apply(u *repository.User, actorID string, forClient bool) (*repository.User, bool, error) {
	if !m.gate.Eng.CanAccess(permission.Update, actorID, forClient, m.updateFields, u.Permissions) {
		return nil, false, nil
	}
	if !m.pred(u) {
		return nil, false, nil
	}
	c := u.Clone()
	if err := m.transform(c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// CanDelete decide si el actor puede borrar al usuario.
func (g *Gate) CanDelete(u *repository.User, actorID string, forClient bool) bool {
	return g.Eng.CanAccess(permission.Delete, actorID, forClient, nil, u.Permissions)
}

// CanUpdatePermissions decide si el actor puede editar las listas de
// permisos del usuario: solo el propio usuario sobre su registro. Las ACLs
// no son un campo del registry y no se delegan vía scope.
func (g *Gate) CanUpdatePermissions(u *repository.User, actorID string, forClient bool) bool {
	return !forClient && actorID == u.ID
}
