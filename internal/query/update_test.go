package query

import (
	"errors"
	"testing"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
)

func mustTransform(t *testing.T, ups []repository.Update) Transform {
	t.Helper()
	tr, err := CompileUpdate(ups, fields.MustUserRegistry())
	if err != nil {
		t.Fatalf("CompileUpdate err: %v", err)
	}
	return tr
}

func TestCompileUpdate_EmptyList(t *testing.T) {
	_, err := CompileUpdate(nil, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("empty update list should be ErrInvalidInput, got %v", err)
	}
}

func TestCompileUpdate_Set(t *testing.T) {
	u := testUser()
	tr := mustTransform(t, []repository.Update{
		{Field: "first_name", Op: repository.OpSet, Type: repository.KindString, Value: repository.String("Lucía")},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	if u.FirstName != "Lucía" {
		t.Fatalf("first_name: got %q want %q", u.FirstName, "Lucía")
	}
}

func TestCompileUpdate_Immutable(t *testing.T) {
	for _, field := range []string{"id", "created_at"} {
		_, err := CompileUpdate([]repository.Update{
			{Field: field, Op: repository.OpSet, Type: repository.KindString, Value: repository.String("x")},
		}, fields.MustUserRegistry())
		if !errors.Is(err, repository.ErrInvalidInput) {
			t.Fatalf("SET %s should fail at compile, got %v", field, err)
		}
	}
}

func TestCompileUpdate_SetNull(t *testing.T) {
	u := testUser()
	tr := mustTransform(t, []repository.Update{
		{Field: "middle_name", Op: repository.OpSet, Type: repository.KindString, Value: repository.Null()},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	if u.MiddleName != nil {
		t.Fatalf("middle_name should be nil after SET null")
	}

	// email no es nullable: error de compilación, no de ejecución.
	_, err := CompileUpdate([]repository.Update{
		{Field: "email", Op: repository.OpSet, Type: repository.KindString, Value: repository.Null()},
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("SET null on non-nullable field should fail, got %v", err)
	}
}

func TestCompileUpdate_Numeric(t *testing.T) {
	u := testUser() // login_count 7, reputation 4.5

	tr := mustTransform(t, []repository.Update{
		{Field: "login_count", Op: repository.OpInc, Type: repository.KindLong, Value: repository.Long(3)},
		{Field: "reputation", Op: repository.OpMul, Type: repository.KindDouble, Value: repository.Double(2)},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	if u.LoginCount != 10 {
		t.Fatalf("login_count: got %d want 10", u.LoginCount)
	}
	if u.Reputation != 9.0 {
		t.Fatalf("reputation: got %v want 9.0", u.Reputation)
	}

	// INC no aplica a strings.
	_, err := CompileUpdate([]repository.Update{
		{Field: "username", Op: repository.OpInc, Type: repository.KindString, Value: repository.String("x")},
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("INC on string field should fail, got %v", err)
	}
}

// MAX nunca baja el valor actual; MIN nunca lo sube.
func TestCompileUpdate_MaxMinOneSided(t *testing.T) {
	u := testUser()
	u.LoginCount = 10

	tr := mustTransform(t, []repository.Update{
		{Field: "login_count", Op: repository.OpMax, Type: repository.KindLong, Value: repository.Long(4)},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	if u.LoginCount != 10 {
		t.Fatalf("MAX with a lower arg must be a no-op: got %d", u.LoginCount)
	}

	tr = mustTransform(t, []repository.Update{
		{Field: "login_count", Op: repository.OpMax, Type: repository.KindLong, Value: repository.Long(25)},
		{Field: "login_count", Op: repository.OpMin, Type: repository.KindLong, Value: repository.Long(100)},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	if u.LoginCount != 25 {
		t.Fatalf("got %d want 25", u.LoginCount)
	}
}

// Las operaciones corren en orden de lista sobre la misma instancia.
func TestCompileUpdate_AppliesInOrder(t *testing.T) {
	u := testUser()
	tr := mustTransform(t, []repository.Update{
		{Field: "login_count", Op: repository.OpSet, Type: repository.KindLong, Value: repository.Long(100)},
		{Field: "login_count", Op: repository.OpInc, Type: repository.KindLong, Value: repository.Long(5)},
		{Field: "login_count", Op: repository.OpMul, Type: repository.KindLong, Value: repository.Long(2)},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	if u.LoginCount != 210 {
		t.Fatalf("got %d want 210", u.LoginCount)
	}
}

func TestCompileUpdate_ListOps(t *testing.T) {
	u := testUser() // tags: beta, early-adopter

	tr := mustTransform(t, []repository.Update{
		{Field: "tags", Op: repository.OpPush, Type: repository.KindString, Value: repository.String("vip")},
		{Field: "tags", Op: repository.OpPushEach, Value: repository.Strings("a", "b")},
		{Field: "tags", Op: repository.OpPopFirst},
		{Field: "tags", Op: repository.OpPull, Type: repository.KindString, Value: repository.String("a")},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	want := []string{"early-adopter", "vip", "b"}
	if len(u.Tags) != len(want) {
		t.Fatalf("tags: got %v want %v", u.Tags, want)
	}
	for i := range want {
		if u.Tags[i] != want[i] {
			t.Fatalf("tags: got %v want %v", u.Tags, want)
		}
	}
}

func TestCompileUpdate_PullAllAndPops(t *testing.T) {
	u := testUser()
	u.Tags = []string{"a", "b", "c", "b", "d"}

	tr := mustTransform(t, []repository.Update{
		{Field: "tags", Op: repository.OpPullAll, Value: repository.Strings("b", "d")},
		{Field: "tags", Op: repository.OpPopLast},
	})
	if err := tr(u); err != nil {
		t.Fatalf("transform err: %v", err)
	}
	if len(u.Tags) != 2 || u.Tags[0] != "a" || u.Tags[1] != "c" {
		t.Fatalf("tags: got %v want [a c]", u.Tags)
	}

	// POPFIRST sobre lista vacía es un no-op, no un error.
	u.Tags = nil
	tr = mustTransform(t, []repository.Update{{Field: "tags", Op: repository.OpPopFirst}})
	if err := tr(u); err != nil {
		t.Fatalf("POPFIRST on empty list: %v", err)
	}
	if len(u.Tags) != 0 {
		t.Fatalf("tags should stay empty, got %v", u.Tags)
	}
}

func TestCompileUpdate_UnknownField(t *testing.T) {
	_, err := CompileUpdate([]repository.Update{
		{Field: "nope", Op: repository.OpSet, Type: repository.KindString, Value: repository.String("x")},
	}, fields.MustUserRegistry())
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("unknown field should be ErrInvalidInput, got %v", err)
	}
}

func TestUpdateFields(t *testing.T) {
	got := UpdateFields([]repository.Update{
		{Field: "username", Op: repository.OpSet},
		{Field: "login_count", Op: repository.OpInc},
		{Field: "username", Op: repository.OpSet},
	})
	want := []string{"login_count", "username"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("UpdateFields: got %v want %v", got, want)
	}
}
