package query

import (
	"errors"
	"testing"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
)

func testUser() *repository.User {
	mid := "Ariel"
	return &repository.User{
		ID:         "u-1",
		Email:      "ana@example.com",
		Username:   "ana",
		FirstName:  "Ana",
		LastName:   "García",
		MiddleName: &mid,
		LoginCount: 7,
		Reputation: 4.5,
		Tags:       []string{"beta", "early-adopter"},
	}
}

func mustCompile(t *testing.T, f *repository.Filter) Predicate {
	t.Helper()
	p, err := CompileFilter(f, fields.MustUserRegistry())
	if err != nil {
		t.Fatalf("CompileFilter err: %v", err)
	}
	return p
}

func TestCompileFilter_NilMatchesAll(t *testing.T) {
	p := mustCompile(t, nil)
	if !p(testUser()) {
		t.Fatalf("nil filter should match everything")
	}
}

func TestCompileFilter_EqNe(t *testing.T) {
	u := testUser()

	eq := mustCompile(t, &repository.Filter{
		Op: repository.OpEq, Field: "username",
		Type: repository.KindString, Value: repository.String("ana"),
	})
	if !eq(u) {
		t.Fatalf("EQ username=ana should match")
	}

	ne := mustCompile(t, &repository.Filter{
		Op: repository.OpNe, Field: "username",
		Type: repository.KindString, Value: repository.String("ana"),
	})
	if ne(u) {
		t.Fatalf("NE username=ana should not match")
	}
}

// Los strings ordenan por largo en runas, no lexicográficamente.
func TestCompileFilter_StringOrderingByRuneCount(t *testing.T) {
	u := testUser() // last_name "García": 6 runas (no 7 bytes)

	cases := []struct {
		op    repository.FilterOp
		value string
		want  bool
	}{
		{repository.OpGt, "corto", true},    // 5 runas < 6
		{repository.OpGt, "exacto", false},  // 6 runas
		{repository.OpGte, "exacto", true},  // empate de largo
		{repository.OpLt, "larguísimo", true},
		{repository.OpLt, "zz", false}, // "zz" es menor en largo aunque mayor léxico
	}
	for _, c := range cases {
		p := mustCompile(t, &repository.Filter{
			Op: c.op, Field: "last_name",
			Type: repository.KindString, Value: repository.String(c.value),
		})
		if got := p(u); got != c.want {
			t.Fatalf("%s %q: got %v want %v", c.op, c.value, got, c.want)
		}
	}
}

func TestCompileFilter_NumericKindsInterchange(t *testing.T) {
	u := testUser()

	// login_count es long; una hoja declarada int compara igual.
	p := mustCompile(t, &repository.Filter{
		Op: repository.OpGte, Field: "login_count",
		Type: repository.KindInt, Value: repository.Int(7),
	})
	if !p(u) {
		t.Fatalf("int leaf against long field should match")
	}

	// reputation es double; una hoja float compara igual.
	p = mustCompile(t, &repository.Filter{
		Op: repository.OpGt, Field: "reputation",
		Type: repository.KindFloat, Value: repository.Float(4.0),
	})
	if !p(u) {
		t.Fatalf("float leaf against double field should match")
	}

	// string contra long es incompatible: error de expresión.
	_, err := CompileFilter(&repository.Filter{
		Op: repository.OpEq, Field: "login_count",
		Type: repository.KindString, Value: repository.String("7"),
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCompileFilter_AndOr(t *testing.T) {
	u := testUser()

	and := mustCompile(t, &repository.Filter{
		Op: repository.OpAnd,
		Filters: []repository.Filter{
			{Op: repository.OpEq, Field: "username", Type: repository.KindString, Value: repository.String("ana")},
			{Op: repository.OpGt, Field: "login_count", Type: repository.KindLong, Value: repository.Long(5)},
		},
	})
	if !and(u) {
		t.Fatalf("AND of two true leaves should match")
	}

	or := mustCompile(t, &repository.Filter{
		Op: repository.OpOr,
		Filters: []repository.Filter{
			{Op: repository.OpEq, Field: "username", Type: repository.KindString, Value: repository.String("otro")},
			{Op: repository.OpEq, Field: "first_name", Type: repository.KindString, Value: repository.String("Ana")},
		},
	})
	if !or(u) {
		t.Fatalf("OR with one true leaf should match")
	}

	_, err := CompileFilter(&repository.Filter{Op: repository.OpAnd}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("AND without children should be ErrInvalidInput, got %v", err)
	}
}

func TestCompileFilter_Regex(t *testing.T) {
	u := testUser()

	p := mustCompile(t, &repository.Filter{
		Op: repository.OpRegex, Field: "email",
		Type: repository.KindString, Value: repository.String(`@example\.com$`),
	})
	if !p(u) {
		t.Fatalf("regex should match email domain")
	}

	_, err := CompileFilter(&repository.Filter{
		Op: repository.OpRegex, Field: "email",
		Type: repository.KindString, Value: repository.String(`([`),
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("invalid regex should be ErrInvalidInput, got %v", err)
	}
}

func TestCompileFilter_Exists(t *testing.T) {
	withMiddle := testUser()
	noMiddle := testUser()
	noMiddle.MiddleName = nil

	p := mustCompile(t, &repository.Filter{Op: repository.OpExists, Field: "middle_name"})
	if !p(withMiddle) {
		t.Fatalf("EXISTS should match user with middle_name")
	}
	if p(noMiddle) {
		t.Fatalf("EXISTS should not match user without middle_name")
	}

	notExists := mustCompile(t, &repository.Filter{
		Op: repository.OpExists, Field: "middle_name", Value: repository.Bool(false),
	})
	if !notExists(noMiddle) {
		t.Fatalf("EXISTS=false should match user without middle_name")
	}
}

func TestCompileFilter_UnknownField(t *testing.T) {
	// EXISTS sobre campo desconocido falla cerrado: compila y nunca matchea.
	p := mustCompile(t, &repository.Filter{Op: repository.OpExists, Field: "no_such_field"})
	if p(testUser()) {
		t.Fatalf("EXISTS on unknown field should never match")
	}

	// Cualquier otro operador es error de expresión.
	_, err := CompileFilter(&repository.Filter{
		Op: repository.OpEq, Field: "no_such_field",
		Type: repository.KindString, Value: repository.String("x"),
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCompileFilter_In(t *testing.T) {
	u := testUser()

	p := mustCompile(t, &repository.Filter{
		Op: repository.OpIn, Field: "username",
		Type: repository.KindList, Value: repository.Strings("pedro", "ana", "lu"),
	})
	if !p(u) {
		t.Fatalf("IN should match when the field value is listed")
	}

	p = mustCompile(t, &repository.Filter{
		Op: repository.OpIn, Field: "username",
		Type: repository.KindList, Value: repository.Strings("pedro", "lu"),
	})
	if p(u) {
		t.Fatalf("IN should not match when the field value is absent")
	}

	// IN aplica a campos escalares, no a colecciones.
	_, err := CompileFilter(&repository.Filter{
		Op: repository.OpIn, Field: "tags",
		Type: repository.KindList, Value: repository.Strings("beta"),
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("IN on a list field should be ErrInvalidInput, got %v", err)
	}
}

func TestCompileFilter_CollectionOps(t *testing.T) {
	u := testUser() // tags: beta, early-adopter

	all := mustCompile(t, &repository.Filter{
		Op: repository.OpAll, Field: "tags",
		Value: repository.Strings("beta", "early-adopter"),
	})
	if !all(u) {
		t.Fatalf("ALL should match when every element is present")
	}

	allMissing := mustCompile(t, &repository.Filter{
		Op: repository.OpAll, Field: "tags",
		Value: repository.Strings("beta", "vip"),
	})
	if allMissing(u) {
		t.Fatalf("ALL should not match when an element is missing")
	}

	anyEq := mustCompile(t, &repository.Filter{
		Op: repository.OpAnyEq, Field: "tags",
		Type: repository.KindString, Value: repository.String("beta"),
	})
	if !anyEq(u) {
		t.Fatalf("ANYEQ should match an existing element")
	}

	// ANYGT sobre strings compara largos en runas: algún tag más largo que 4.
	anyGt := mustCompile(t, &repository.Filter{
		Op: repository.OpAnyGt, Field: "tags",
		Type: repository.KindString, Value: repository.String("abcd"),
	})
	if !anyGt(u) {
		t.Fatalf("ANYGT should match: early-adopter is longer than 4 runes")
	}
}

func TestCompileFilter_Size(t *testing.T) {
	u := testUser()

	cases := []struct {
		field string
		op    repository.FilterOp
		size  int64
		want  bool
	}{
		{"tags", repository.OpSizeEq, 2, true},
		{"tags", repository.OpSizeGt, 2, false},
		{"tags", repository.OpSizeGte, 2, true},
		{"username", repository.OpSizeEq, 3, true}, // "ana"
		{"last_name", repository.OpSizeEq, 6, true}, // "García" en runas
		{"last_name", repository.OpSizeEq, 7, false},
	}
	for _, c := range cases {
		p := mustCompile(t, &repository.Filter{
			Op: c.op, Field: c.field,
			Type: repository.KindLong, Value: repository.Long(c.size),
		})
		if got := p(u); got != c.want {
			t.Fatalf("%s %s %d: got %v want %v", c.field, c.op, c.size, got, c.want)
		}
	}

	// SIZE* no aplica a campos numéricos.
	_, err := CompileFilter(&repository.Filter{
		Op: repository.OpSizeEq, Field: "login_count",
		Type: repository.KindLong, Value: repository.Long(1),
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("SIZEEQ on a numeric field should be ErrInvalidInput, got %v", err)
	}
}

func TestFilterFields(t *testing.T) {
	f := &repository.Filter{
		Op: repository.OpAnd,
		Filters: []repository.Filter{
			{Op: repository.OpEq, Field: "username", Type: repository.KindString, Value: repository.String("ana")},
			{
				Op: repository.OpOr,
				Filters: []repository.Filter{
					{Op: repository.OpGt, Field: "login_count", Type: repository.KindLong, Value: repository.Long(1)},
					{Op: repository.OpEq, Field: "username", Type: repository.KindString, Value: repository.String("lu")},
				},
			},
		},
	}
	got := FilterFields(f)
	want := []string{"login_count", "username"}
	if len(got) != len(want) {
		t.Fatalf("FilterFields: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FilterFields: got %v want %v", got, want)
		}
	}

	if fs := FilterFields(nil); fs != nil {
		t.Fatalf("FilterFields(nil): got %v want nil", fs)
	}
}
