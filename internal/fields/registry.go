// Package fields implementa el field registry: la tabla estática que
// traduce un nombre de campo (el identificador estable de wire, ej:
// "first_name") a un accessor tipado sobre el agregado User. Es el único
// punto de traducción nombre→ubicación; reemplaza el lookup por reflection
// del diseño original. Un nombre desconocido falla cerrado.
package fields

import (
	"fmt"
	"sort"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
)

// Accessor expone lectura y escritura tipadas de un campo del usuario.
type Accessor struct {
	Name string
	Kind repository.Kind
	// Elem es el kind de los elementos cuando Kind == KindList.
	Elem repository.Kind
	// Nullable permite SET null.
	Nullable bool
	// Immutable rechaza cualquier escritura (id, created_at).
	Immutable bool

	Get func(u *repository.User) repository.Value
	Set func(u *repository.User, v repository.Value) error
}

// Registry resuelve nombres de campo a accessors. Se construye una vez al
// armar el proceso, no por llamada.
type Registry struct {
	byName map[string]Accessor
	names  []string
}

// NewUserRegistry construye el registry del agregado User. Si catalog no es
// vacío, solo expone los nombres listados (el catálogo de campos es
// configuración inyectada, no estado global); un nombre de catálogo que no
// existe en la tabla es un error de configuración.
func NewUserRegistry(catalog ...string) (*Registry, error) {
	all := userAccessors()
	m := make(map[string]Accessor, len(all))
	for _, a := range all {
		m[a.Name] = a
	}

	if len(catalog) > 0 {
		filtered := make(map[string]Accessor, len(catalog))
		for _, name := range catalog {
			a, ok := m[name]
			if !ok {
				return nil, fmt.Errorf("%w: unknown field %q in catalog", repository.ErrInvalidInput, name)
			}
			filtered[name] = a
		}
		m = filtered
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{byName: m, names: names}, nil
}

// MustUserRegistry es NewUserRegistry que entra en pánico ante catálogo
// inválido. Para wiring en main y tests.
func MustUserRegistry(catalog ...string) *Registry {
	r, err := NewUserRegistry(catalog...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve retorna el accessor del campo. Ok es false si el nombre no existe.
func (r *Registry) Resolve(name string) (Accessor, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names retorna los nombres registrados, ordenados.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Has reporta si el nombre resuelve.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}
