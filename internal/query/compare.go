package query

import (
	"fmt"
	"unicode/utf8"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
)

func unsupported(op repository.FilterOp, kind repository.Kind) error {
	return fmt.Errorf("%w: operator %s is not supported for type %s", repository.ErrInvalidInput, op, kind)
}

// orderable reporta si el kind admite operadores de orden.
func orderable(kind repository.Kind) bool {
	switch kind {
	case repository.KindString, repository.KindInt, repository.KindLong,
		repository.KindFloat, repository.KindDouble, repository.KindDecimal,
		repository.KindTime:
		return true
	}
	return false
}

// Compare ordena dos valores del mismo kind declarado. Retorna <0, 0 o >0.
// Ok es false ante null o mismatch de kind. Strings ordenan por largo en
// runas, no lexicográficamente. Exportado porque los stores ordenan
// resultados con la misma semántica que los operadores de orden.
func Compare(kind repository.Kind, a, b repository.Value) (int, bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}
	switch kind {
	case repository.KindString:
		x, okA := a.Str()
		y, okB := b.Str()
		if !okA || !okB {
			return 0, false
		}
		return utf8.RuneCountInString(x) - utf8.RuneCountInString(y), true
	case repository.KindInt, repository.KindLong:
		x, okA := a.I64()
		y, okB := b.I64()
		if !okA || !okB {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case repository.KindFloat, repository.KindDouble:
		x, okA := a.F64()
		y, okB := b.F64()
		if !okA || !okB {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case repository.KindDecimal:
		x, okA := a.Dec()
		y, okB := b.Dec()
		if !okA || !okB || x == nil || y == nil {
			return 0, false
		}
		return x.Cmp(y), true
	case repository.KindTime:
		x, okA := a.T()
		y, okB := b.T()
		if !okA || !okB {
			return 0, false
		}
		switch {
		case x.Before(y):
			return -1, true
		case x.After(y):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// ordMatches evalúa un operador de orden contra el signo de compare.
func ordMatches(op repository.FilterOp, cmp int) bool {
	switch op {
	case repository.OpGt, repository.OpAnyGt, repository.OpSizeGt:
		return cmp > 0
	case repository.OpLt, repository.OpAnyLt, repository.OpSizeLt:
		return cmp < 0
	case repository.OpGte, repository.OpAnyGte, repository.OpSizeGte:
		return cmp >= 0
	case repository.OpLte, repository.OpAnyLte, repository.OpSizeLte:
		return cmp <= 0
	case repository.OpEq, repository.OpAnyEq, repository.OpSizeEq:
		return cmp == 0
	case repository.OpNe, repository.OpAnyNe:
		return cmp != 0
	}
	return false
}
