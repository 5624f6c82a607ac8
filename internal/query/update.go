package query

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
)

// Transform aplica una lista de updates compilada sobre un usuario. Las
// operaciones corren en orden de lista sobre la misma instancia; el primer
// error aborta el transform completo.
type Transform func(u *repository.User) error

type step func(u *repository.User) error

func unsupportedUpdate(op repository.UpdateOp, kind repository.Kind) error {
	return fmt.Errorf("%w: update %s is not supported for type %s", repository.ErrInvalidInput, op, kind)
}

// CompileUpdate compila la lista de updates a un Transform. Valida campos,
// operadores y tipos acá: una expresión malformada nunca llega a tocar un
// registro.
func CompileUpdate(ups []repository.Update, reg *fields.Registry) (Transform, error) {
	if len(ups) == 0 {
		return nil, fmt.Errorf("%w: empty update list", repository.ErrInvalidInput)
	}
	steps := make([]step, len(ups))
	for i := range ups {
		s, err := compileStep(&ups[i], reg)
		if err != nil {
			return nil, err
		}
		steps[i] = s
	}
	return func(u *repository.User) error {
		for _, s := range steps {
			if err := s(u); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

func compileStep(up *repository.Update, reg *fields.Registry) (step, error) {
	acc, ok := reg.Resolve(up.Field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", repository.ErrInvalidInput, up.Field)
	}
	if acc.Immutable {
		return nil, fmt.Errorf("%w: field %q is immutable", repository.ErrInvalidInput, up.Field)
	}

	switch up.Op {
	case repository.OpSet:
		if up.Value.IsNull() {
			if !acc.Nullable {
				return nil, fmt.Errorf("%w: field %q is not nullable", repository.ErrInvalidInput, up.Field)
			}
			return func(u *repository.User) error {
				return acc.Set(u, repository.Null())
			}, nil
		}
		if !kindCompatible(up.Type, acc.Kind) {
			return nil, unsupportedUpdate(up.Op, up.Type)
		}
		val := up.Value
		return func(u *repository.User) error {
			return acc.Set(u, val)
		}, nil

	case repository.OpInc, repository.OpMul, repository.OpMax, repository.OpMin:
		if !acc.Kind.IsNumeric() || !kindCompatible(up.Type, acc.Kind) {
			return nil, unsupportedUpdate(up.Op, up.Type)
		}
		return compileNumeric(up.Op, acc, up.Value)

	case repository.OpPush:
		if acc.Kind != repository.KindList || !kindCompatible(up.Type, acc.Elem) {
			return nil, unsupportedUpdate(up.Op, up.Type)
		}
		val := up.Value
		return listStep(acc, func(items []repository.Value) []repository.Value {
			return append(items, val)
		}), nil

	case repository.OpPushEach:
		if acc.Kind != repository.KindList {
			return nil, unsupportedUpdate(up.Op, acc.Kind)
		}
		more, elem, ok := up.Value.Items()
		if !ok || !kindCompatible(elem, acc.Elem) {
			return nil, unsupportedUpdate(up.Op, up.Value.Kind())
		}
		return listStep(acc, func(items []repository.Value) []repository.Value {
			return append(items, more...)
		}), nil

	case repository.OpPopFirst:
		if acc.Kind != repository.KindList {
			return nil, unsupportedUpdate(up.Op, acc.Kind)
		}
		return listStep(acc, func(items []repository.Value) []repository.Value {
			if len(items) == 0 {
				return items
			}
			return items[1:]
		}), nil

	case repository.OpPopLast:
		if acc.Kind != repository.KindList {
			return nil, unsupportedUpdate(up.Op, acc.Kind)
		}
		return listStep(acc, func(items []repository.Value) []repository.Value {
			if len(items) == 0 {
				return items
			}
			return items[:len(items)-1]
		}), nil

	case repository.OpPull:
		// Quita todos los elementos iguales al escalar dado.
		if acc.Kind != repository.KindList || !kindCompatible(up.Type, acc.Elem) {
			return nil, unsupportedUpdate(up.Op, up.Type)
		}
		val := up.Value
		return listStep(acc, func(items []repository.Value) []repository.Value {
			out := items[:0]
			for _, it := range items {
				if !it.Equal(val) {
					out = append(out, it)
				}
			}
			return out
		}), nil

	case repository.OpPullAll:
		// Quita todos los elementos presentes en el set dado.
		if acc.Kind != repository.KindList {
			return nil, unsupportedUpdate(up.Op, acc.Kind)
		}
		drop, elem, ok := up.Value.Items()
		if !ok || !kindCompatible(elem, acc.Elem) {
			return nil, unsupportedUpdate(up.Op, up.Value.Kind())
		}
		return listStep(acc, func(items []repository.Value) []repository.Value {
			out := items[:0]
			for _, it := range items {
				found := false
				for _, d := range drop {
					if it.Equal(d) {
						found = true
						break
					}
				}
				if !found {
					out = append(out, it)
				}
			}
			return out
		}), nil
	}

	return nil, fmt.Errorf("%w: unknown update operator %q", repository.ErrInvalidInput, up.Op)
}

func listStep(acc fields.Accessor, fn func([]repository.Value) []repository.Value) step {
	return func(u *repository.User) error {
		items, elem, ok := acc.Get(u).Items()
		if !ok {
			items, elem = nil, acc.Elem
		}
		return acc.Set(u, repository.List(elem, fn(items)...))
	}
}

// compileNumeric arma el paso de una operación aritmética. Semántica
// parse-then-recompute: se lee el valor actual del campo, se recalcula y
// se reescribe. MAX/MIN solo sobreescriben cuando el operando mejora el
// valor actual (nunca bajan un MAX, nunca suben un MIN).
func compileNumeric(op repository.UpdateOp, acc fields.Accessor, operand repository.Value) (step, error) {
	switch acc.Kind {
	case repository.KindInt, repository.KindLong:
		arg, ok := operand.I64()
		if !ok {
			return nil, unsupportedUpdate(op, operand.Kind())
		}
		return func(u *repository.User) error {
			cur, ok := acc.Get(u).I64()
			if !ok {
				return unsupportedUpdate(op, acc.Kind)
			}
			next := applyI64(op, cur, arg)
			if next == cur {
				return nil
			}
			return acc.Set(u, repository.Long(next))
		}, nil

	case repository.KindFloat, repository.KindDouble:
		arg, ok := operand.F64()
		if !ok {
			return nil, unsupportedUpdate(op, operand.Kind())
		}
		return func(u *repository.User) error {
			cur, ok := acc.Get(u).F64()
			if !ok {
				return unsupportedUpdate(op, acc.Kind)
			}
			next := applyF64(op, cur, arg)
			if next == cur {
				return nil
			}
			return acc.Set(u, repository.Double(next))
		}, nil

	case repository.KindDecimal:
		arg, ok := operand.Dec()
		if !ok || arg == nil {
			return nil, unsupportedUpdate(op, operand.Kind())
		}
		return func(u *repository.User) error {
			cur, ok := acc.Get(u).Dec()
			if !ok || cur == nil {
				return unsupportedUpdate(op, acc.Kind)
			}
			next := new(big.Float).SetPrec(cur.Prec())
			switch op {
			case repository.OpInc:
				next.Add(cur, arg)
			case repository.OpMul:
				next.Mul(cur, arg)
			case repository.OpMax:
				if arg.Cmp(cur) <= 0 {
					return nil
				}
				next.Set(arg)
			case repository.OpMin:
				if arg.Cmp(cur) >= 0 {
					return nil
				}
				next.Set(arg)
			}
			v, err := repository.Decimal(next.Text('f', -1))
			if err != nil {
				return err
			}
			return acc.Set(u, v)
		}, nil
	}
	return nil, unsupportedUpdate(op, acc.Kind)
}

func applyI64(op repository.UpdateOp, cur, arg int64) int64 {
	switch op {
	case repository.OpInc:
		return cur + arg
	case repository.OpMul:
		return cur * arg
	case repository.OpMax:
		if arg > cur {
			return arg
		}
	case repository.OpMin:
		if arg < cur {
			return arg
		}
	}
	return cur
}

func applyF64(op repository.UpdateOp, cur, arg float64) float64 {
	switch op {
	case repository.OpInc:
		return cur + arg
	case repository.OpMul:
		return cur * arg
	case repository.OpMax:
		if arg > cur {
			return arg
		}
	case repository.OpMin:
		if arg < cur {
			return arg
		}
	}
	return cur
}

// UpdateFields retorna el set ordenado de campos tocados por la lista.
func UpdateFields(ups []repository.Update) []string {
	seen := map[string]struct{}{}
	for i := range ups {
		if ups[i].Field != "" {
			seen[ups[i].Field] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
