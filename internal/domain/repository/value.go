package repository

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Kind discrimina el tipo de un Value y el tipo declarado de una hoja de
// Filter/Update. Reemplaza el boxing dinámico del diseño original: el
// despacho de operadores es un switch sobre (Operation, Kind) y una
// combinación no soportada es un error tipado, no un cast fallido.
type Kind string

const (
	KindNull    Kind = "null"
	KindString  Kind = "string"
	KindInt     Kind = "int"
	KindLong    Kind = "long"
	KindFloat   Kind = "float"
	KindDouble  Kind = "double"
	KindDecimal Kind = "decimal"
	KindBool    Kind = "bool"
	KindTime    Kind = "time"
	KindList    Kind = "list"
)

// IsNumeric reporta si el kind es uno de los cinco numéricos.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt, KindLong, KindFloat, KindDouble, KindDecimal:
		return true
	}
	return false
}

// Value es una unión etiquetada: un discriminante Kind y un payload tipado
// por caso. Los constructores de abajo son la única forma de crear valores
// consistentes.
type Value struct {
	kind Kind
	str  string
	i64  int64
	f64  float64
	dec  *big.Float
	b    bool
	t    time.Time
	list []Value
	elem Kind // kind de los elementos cuando kind == KindList
}

// Null construye el valor nulo (solo asignable a campos nullable).
func Null() Value { return Value{kind: KindNull} }

// String construye un Value string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int construye un Value int (32 bits).
func Int(i int32) Value { return Value{kind: KindInt, i64: int64(i)} }

// Long construye un Value long (64 bits).
func Long(i int64) Value { return Value{kind: KindLong, i64: i} }

// Float construye un Value float (32 bits).
func Float(f float32) Value { return Value{kind: KindFloat, f64: float64(f)} }

// Double construye un Value double (64 bits).
func Double(f float64) Value { return Value{kind: KindDouble, f64: f} }

// Decimal construye un Value decimal desde su representación textual.
// Retorna error si el texto no parsea.
func Decimal(s string) (Value, error) {
	d, _, err := big.ParseFloat(strings.TrimSpace(s), 10, decimalPrecision, big.ToNearestEven)
	if err != nil {
		return Value{}, fmt.Errorf("%w: decimal %q", ErrInvalidInput, s)
	}
	return Value{kind: KindDecimal, dec: d}, nil
}

// Bool construye un Value bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time construye un Value datetime.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// List construye un Value colección con elementos del kind dado.
func List(elem Kind, items ...Value) Value {
	return Value{kind: KindList, elem: elem, list: items}
}

// Strings construye una colección de strings.
func Strings(items ...string) Value {
	vs := make([]Value, len(items))
	for i, s := range items {
		vs[i] = String(s)
	}
	return List(KindString, vs...)
}

// decimalPrecision es la precisión de mantisa para el kind decimal.
const decimalPrecision = 128

// Kind retorna el discriminante del valor.
func (v Value) Kind() Kind { return v.kind }

// IsNull reporta si el valor es nulo.
func (v Value) IsNull() bool { return v.kind == KindNull || v.kind == "" }

// Str retorna el payload string. Ok es false si el kind no es string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// I64 retorna el payload entero (int y long comparten representación).
func (v Value) I64() (int64, bool) {
	return v.i64, v.kind == KindInt || v.kind == KindLong
}

// F64 retorna el payload flotante (float y double comparten representación).
func (v Value) F64() (float64, bool) {
	return v.f64, v.kind == KindFloat || v.kind == KindDouble
}

// Dec retorna el payload decimal.
func (v Value) Dec() (*big.Float, bool) { return v.dec, v.kind == KindDecimal }

// B retorna el payload bool.
func (v Value) B() (bool, bool) { return v.b, v.kind == KindBool }

// T retorna el payload datetime.
func (v Value) T() (time.Time, bool) { return v.t, v.kind == KindTime }

// Items retorna los elementos de una colección y su kind de elemento.
func (v Value) Items() ([]Value, Kind, bool) {
	return v.list, v.elem, v.kind == KindList
}

// Equal compara dos valores del mismo kind. Valores de kinds distintos
// nunca son iguales (int y long sí comparan entre sí, igual que
// float/double: comparten representación).
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	switch v.kind {
	case KindString:
		return o.kind == KindString && v.str == o.str
	case KindInt, KindLong:
		return (o.kind == KindInt || o.kind == KindLong) && v.i64 == o.i64
	case KindFloat, KindDouble:
		return (o.kind == KindFloat || o.kind == KindDouble) && v.f64 == o.f64
	case KindDecimal:
		if o.kind != KindDecimal || v.dec == nil || o.dec == nil {
			return false
		}
		return v.dec.Cmp(o.dec) == 0
	case KindBool:
		return o.kind == KindBool && v.b == o.b
	case KindTime:
		return o.kind == KindTime && v.t.Equal(o.t)
	case KindList:
		items, _, _ := o.Items()
		if o.kind != KindList || len(v.list) != len(items) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface retorna el payload como any, para serialización.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt, KindLong:
		return v.i64
	case KindFloat, KindDouble:
		return v.f64
	case KindDecimal:
		if v.dec == nil {
			return nil
		}
		return v.dec.Text('f', -1)
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, it := range v.list {
			out[i] = it.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON serializa el payload plano (sin el discriminante).
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.kind, v.Interface())
}

// ParseValue construye un Value del kind dado desde un payload plano
// (el resultado de decodificar JSON: string, float64, bool, []any, nil).
// Es el punto de entrada para los DTOs de la capa HTTP.
func ParseValue(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	switch kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected string, got %T", ErrInvalidInput, raw)
		}
		return String(s), nil
	case KindInt:
		f, ok := rawNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected int, got %T", ErrInvalidInput, raw)
		}
		return Int(int32(f)), nil
	case KindLong:
		f, ok := rawNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected long, got %T", ErrInvalidInput, raw)
		}
		return Long(int64(f)), nil
	case KindFloat:
		f, ok := rawNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected float, got %T", ErrInvalidInput, raw)
		}
		return Float(float32(f)), nil
	case KindDouble:
		f, ok := rawNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected double, got %T", ErrInvalidInput, raw)
		}
		return Double(f), nil
	case KindDecimal:
		switch t := raw.(type) {
		case string:
			return Decimal(t)
		case float64:
			return Decimal(fmt.Sprintf("%v", t))
		}
		return Value{}, fmt.Errorf("%w: expected decimal, got %T", ErrInvalidInput, raw)
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected bool, got %T", ErrInvalidInput, raw)
		}
		return Bool(b), nil
	case KindTime:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected RFC3339 time, got %T", ErrInvalidInput, raw)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: time %q", ErrInvalidInput, s)
		}
		return Time(t), nil
	}
	return Value{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
}

// ParseList construye una colección de elementos del kind dado.
func ParseList(elem Kind, raw []any) (Value, error) {
	items := make([]Value, len(raw))
	for i, r := range raw {
		v, err := ParseValue(elem, r)
		if err != nil {
			return Value{}, err
		}
		items[i] = v
	}
	return List(elem, items...), nil
}

func rawNumber(raw any) (float64, bool) {
	switch t := raw.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
