package query

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
)

// Predicate decide si un usuario matchea un filtro compilado.
type Predicate func(u *repository.User) bool

// MatchAll matchea cualquier registro (filtro nil).
func MatchAll(*repository.User) bool { return true }

// CompileFilter compila el árbol de filtro a un Predicate. Un filtro nil
// matchea todo. Los errores son de expresión (campo desconocido, operador
// no soportado para el tipo, regex inválida): se detectan acá, antes de
// evaluar ningún registro.
func CompileFilter(f *repository.Filter, reg *fields.Registry) (Predicate, error) {
	if f == nil {
		return MatchAll, nil
	}
	return compileNode(f, reg)
}

func compileNode(f *repository.Filter, reg *fields.Registry) (Predicate, error) {
	switch f.Op {
	case repository.OpAnd:
		children, err := compileChildren(f, reg)
		if err != nil {
			return nil, err
		}
		return func(u *repository.User) bool {
			for _, p := range children {
				if !p(u) {
					return false
				}
			}
			return true
		}, nil
	case repository.OpOr:
		children, err := compileChildren(f, reg)
		if err != nil {
			return nil, err
		}
		return func(u *repository.User) bool {
			for _, p := range children {
				if p(u) {
					return true
				}
			}
			return false
		}, nil
	}
	return compileLeaf(f, reg)
}

func compileChildren(f *repository.Filter, reg *fields.Registry) ([]Predicate, error) {
	if len(f.Filters) == 0 {
		return nil, fmt.Errorf("%w: %s node without children", repository.ErrInvalidInput, f.Op)
	}
	out := make([]Predicate, len(f.Filters))
	for i := range f.Filters {
		p, err := compileNode(&f.Filters[i], reg)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func compileLeaf(f *repository.Filter, reg *fields.Registry) (Predicate, error) {
	acc, ok := reg.Resolve(f.Field)
	if !ok {
		// Nombre desconocido: EXISTS falla cerrado, el resto es error.
		if f.Op == repository.OpExists {
			return func(*repository.User) bool { return false }, nil
		}
		return nil, fmt.Errorf("%w: unknown field %q", repository.ErrInvalidInput, f.Field)
	}

	switch f.Op {
	case repository.OpExists:
		expected := true
		if b, ok := f.Value.B(); ok {
			expected = b
		}
		return func(u *repository.User) bool {
			return !acc.Get(u).IsNull() == expected
		}, nil

	case repository.OpEq, repository.OpNe:
		if !kindCompatible(f.Type, acc.Kind) {
			return nil, unsupported(f.Op, f.Type)
		}
		want := f.Value
		negate := f.Op == repository.OpNe
		return func(u *repository.User) bool {
			return acc.Get(u).Equal(want) != negate
		}, nil

	case repository.OpGt, repository.OpLt, repository.OpGte, repository.OpLte:
		if !orderable(f.Type) || !kindCompatible(f.Type, acc.Kind) {
			return nil, unsupported(f.Op, f.Type)
		}
		op, want, kind := f.Op, f.Value, acc.Kind
		return func(u *repository.User) bool {
			cmp, ok := Compare(kind, acc.Get(u), want)
			return ok && ordMatches(op, cmp)
		}, nil

	case repository.OpRegex:
		if acc.Kind != repository.KindString || f.Type != repository.KindString {
			return nil, unsupported(f.Op, f.Type)
		}
		pattern, ok := f.Value.Str()
		if !ok {
			return nil, unsupported(f.Op, f.Value.Kind())
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: regex %q: %v", repository.ErrInvalidInput, pattern, err)
		}
		return func(u *repository.User) bool {
			s, ok := acc.Get(u).Str()
			return ok && re.MatchString(s)
		}, nil

	case repository.OpIn:
		// Campo escalar, valor colección: el valor del campo debe estar
		// entre los elementos dados.
		if acc.Kind == repository.KindList {
			return nil, unsupported(f.Op, repository.KindList)
		}
		items, elem, ok := f.Value.Items()
		if !ok || !kindCompatible(elem, acc.Kind) {
			return nil, unsupported(f.Op, f.Value.Kind())
		}
		return func(u *repository.User) bool {
			got := acc.Get(u)
			for _, it := range items {
				if got.Equal(it) {
					return true
				}
			}
			return false
		}, nil

	case repository.OpAll:
		// Campo colección, valor colección: todos los elementos dados
		// deben estar presentes en el campo.
		if acc.Kind != repository.KindList {
			return nil, unsupported(f.Op, acc.Kind)
		}
		want, elem, ok := f.Value.Items()
		if !ok || !kindCompatible(elem, acc.Elem) {
			return nil, unsupported(f.Op, f.Value.Kind())
		}
		return func(u *repository.User) bool {
			got, _, ok := acc.Get(u).Items()
			if !ok {
				return false
			}
			for _, w := range want {
				found := false
				for _, g := range got {
					if g.Equal(w) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		}, nil

	case repository.OpAnyEq, repository.OpAnyNe:
		if acc.Kind != repository.KindList || !kindCompatible(f.Type, acc.Elem) {
			return nil, unsupported(f.Op, f.Type)
		}
		want, negate := f.Value, f.Op == repository.OpAnyNe
		return func(u *repository.User) bool {
			got, _, ok := acc.Get(u).Items()
			if !ok {
				return false
			}
			for _, g := range got {
				if g.Equal(want) != negate {
					return true
				}
			}
			return false
		}, nil

	case repository.OpAnyGt, repository.OpAnyLt, repository.OpAnyGte, repository.OpAnyLte:
		if acc.Kind != repository.KindList || !orderable(f.Type) || !kindCompatible(f.Type, acc.Elem) {
			return nil, unsupported(f.Op, f.Type)
		}
		op, want, elem := f.Op, f.Value, acc.Elem
		return func(u *repository.User) bool {
			got, _, ok := acc.Get(u).Items()
			if !ok {
				return false
			}
			for _, g := range got {
				if cmp, ok := Compare(elem, g, want); ok && ordMatches(op, cmp) {
					return true
				}
			}
			return false
		}, nil

	case repository.OpSizeEq, repository.OpSizeGt, repository.OpSizeLt,
		repository.OpSizeGte, repository.OpSizeLte:
		// SIZE* aplica a colecciones y, para strings, al largo en runas.
		if acc.Kind != repository.KindList && acc.Kind != repository.KindString {
			return nil, unsupported(f.Op, acc.Kind)
		}
		want, ok := f.Value.I64()
		if !ok {
			return nil, unsupported(f.Op, f.Value.Kind())
		}
		op := f.Op
		return func(u *repository.User) bool {
			got := acc.Get(u)
			var size int64
			if items, _, ok := got.Items(); ok {
				size = int64(len(items))
			} else if s, ok := got.Str(); ok {
				size = int64(utf8.RuneCountInString(s))
			} else {
				return false
			}
			switch {
			case size < want:
				return ordMatches(op, -1)
			case size > want:
				return ordMatches(op, 1)
			}
			return ordMatches(op, 0)
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown filter operator %q", repository.ErrInvalidInput, f.Op)
}

// kindCompatible reporta si el kind declarado de la hoja puede evaluarse
// contra el kind del campo. int/long y float/double comparten representación
// y comparan entre sí.
func kindCompatible(declared, field repository.Kind) bool {
	if declared == field {
		return true
	}
	intish := func(k repository.Kind) bool {
		return k == repository.KindInt || k == repository.KindLong
	}
	floatish := func(k repository.Kind) bool {
		return k == repository.KindFloat || k == repository.KindDouble
	}
	return (intish(declared) && intish(field)) || (floatish(declared) && floatish(field))
}

// FilterFields recorre el árbol y retorna el set ordenado de nombres de
// campo referidos por las hojas. El permission engine usa este set para
// autorizar una operación en bloque antes de tocar ningún registro.
func FilterFields(f *repository.Filter) []string {
	if f == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var walk func(node *repository.Filter)
	walk = func(node *repository.Filter) {
		if node.IsNode() {
			for i := range node.Filters {
				walk(&node.Filters[i])
			}
			return
		}
		if node.Field != "" {
			seen[node.Field] = struct{}{}
		}
	}
	walk(f)
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
