package repository

// FilterOp identifica el operador de un nodo de Filter.
type FilterOp string

const (
	// Nodos internos.
	OpAnd FilterOp = "AND"
	OpOr  FilterOp = "OR"

	// Operadores escalares.
	OpEq     FilterOp = "EQ"
	OpNe     FilterOp = "NE"
	OpGt     FilterOp = "GT"
	OpLt     FilterOp = "LT"
	OpGte    FilterOp = "GTE"
	OpLte    FilterOp = "LTE"
	OpExists FilterOp = "EXISTS"
	OpRegex  FilterOp = "REGEX"

	// Operadores de colección. ANY* comparan contra cada elemento; SIZE*
	// comparan el tamaño (y para strings, el largo en runas).
	OpAll     FilterOp = "ALL"
	OpIn      FilterOp = "IN"
	OpAnyEq   FilterOp = "ANYEQ"
	OpAnyNe   FilterOp = "ANYNE"
	OpAnyGt   FilterOp = "ANYGT"
	OpAnyLt   FilterOp = "ANYLT"
	OpAnyGte  FilterOp = "ANYGTE"
	OpAnyLte  FilterOp = "ANYLTE"
	OpSizeEq  FilterOp = "SIZEEQ"
	OpSizeGt  FilterOp = "SIZEGT"
	OpSizeLt  FilterOp = "SIZELT"
	OpSizeGte FilterOp = "SIZEGTE"
	OpSizeLte FilterOp = "SIZELTE"
)

// Filter es un árbol binario de predicados. Una hoja lleva
// (Field, Op, Type, Value); un nodo interno lleva Op AND/OR y sus hijos.
type Filter struct {
	Op      FilterOp `json:"op"`
	Field   string   `json:"field,omitempty"`
	Type    Kind     `json:"type,omitempty"`
	Value   Value    `json:"value,omitempty"`
	Filters []Filter `json:"filters,omitempty"`
}

// IsNode reporta si el filtro es un nodo interno AND/OR.
func (f *Filter) IsNode() bool {
	return f.Op == OpAnd || f.Op == OpOr
}

// UpdateOp identifica la operación de una entrada de Update.
type UpdateOp string

const (
	OpSet      UpdateOp = "SET"
	OpInc      UpdateOp = "INC"
	OpMul      UpdateOp = "MUL"
	OpMax      UpdateOp = "MAX"
	OpMin      UpdateOp = "MIN"
	OpPush     UpdateOp = "PUSH"
	OpPushEach UpdateOp = "PUSHEACH"
	OpPopFirst UpdateOp = "POPFIRST"
	OpPopLast  UpdateOp = "POPLAST"
	OpPull     UpdateOp = "PULL"
	OpPullAll  UpdateOp = "PULLALL"
)

// Update es una operación de mutación sobre un campo. Una lista de Updates
// se aplica en orden sobre el mismo registro.
type Update struct {
	Field string   `json:"field"`
	Op    UpdateOp `json:"op"`
	Type  Kind     `json:"type"`
	Value Value    `json:"value,omitempty"`
}
