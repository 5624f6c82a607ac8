package fields

import (
	"fmt"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
)

func typeMismatch(name string, want, got repository.Kind) error {
	return fmt.Errorf("%w: field %q expects %s, got %s", repository.ErrInvalidInput, name, want, got)
}

func immutable(name string) error {
	return fmt.Errorf("%w: field %q is immutable", repository.ErrInvalidInput, name)
}

// stringField arma el accessor de un campo string plano.
func stringField(name string, get func(*repository.User) string, set func(*repository.User, string)) Accessor {
	return Accessor{
		Name: name,
		Kind: repository.KindString,
		Get: func(u *repository.User) repository.Value {
			return repository.String(get(u))
		},
		Set: func(u *repository.User, v repository.Value) error {
			s, ok := v.Str()
			if !ok {
				return typeMismatch(name, repository.KindString, v.Kind())
			}
			set(u, s)
			return nil
		},
	}
}

// stringsField arma el accessor de una colección de strings.
func stringsField(name string, get func(*repository.User) []string, set func(*repository.User, []string)) Accessor {
	return Accessor{
		Name: name,
		Kind: repository.KindList,
		Elem: repository.KindString,
		Get: func(u *repository.User) repository.Value {
			return repository.Strings(get(u)...)
		},
		Set: func(u *repository.User, v repository.Value) error {
			items, elem, ok := v.Items()
			if !ok || (elem != repository.KindString && len(items) > 0) {
				return typeMismatch(name, repository.KindList, v.Kind())
			}
			out := make([]string, len(items))
			for i, it := range items {
				s, ok := it.Str()
				if !ok {
					return typeMismatch(name, repository.KindString, it.Kind())
				}
				out[i] = s
			}
			set(u, out)
			return nil
		},
	}
}

// userAccessors es la tabla completa de campos del agregado User. Un campo
// nuevo se agrega acá y queda disponible para filtros, updates y permisos.
func userAccessors() []Accessor {
	return []Accessor{
		{
			Name:      "id",
			Kind:      repository.KindString,
			Immutable: true,
			Get: func(u *repository.User) repository.Value {
				return repository.String(u.ID)
			},
			Set: func(u *repository.User, v repository.Value) error {
				return immutable("id")
			},
		},
		stringField("email",
			func(u *repository.User) string { return u.Email },
			func(u *repository.User, s string) { u.Email = s }),
		stringField("username",
			func(u *repository.User) string { return u.Username },
			func(u *repository.User, s string) { u.Username = s }),
		stringField("first_name",
			func(u *repository.User) string { return u.FirstName },
			func(u *repository.User, s string) { u.FirstName = s }),
		stringField("last_name",
			func(u *repository.User) string { return u.LastName },
			func(u *repository.User, s string) { u.LastName = s }),
		{
			Name:     "middle_name",
			Kind:     repository.KindString,
			Nullable: true,
			Get: func(u *repository.User) repository.Value {
				if u.MiddleName == nil {
					return repository.Null()
				}
				return repository.String(*u.MiddleName)
			},
			Set: func(u *repository.User, v repository.Value) error {
				if v.IsNull() {
					u.MiddleName = nil
					return nil
				}
				s, ok := v.Str()
				if !ok {
					return typeMismatch("middle_name", repository.KindString, v.Kind())
				}
				u.MiddleName = &s
				return nil
			},
		},
		stringField("phone_number",
			func(u *repository.User) string { return u.PhoneNumber },
			func(u *repository.User, s string) { u.PhoneNumber = s }),
		stringField("avatar_url",
			func(u *repository.User) string { return u.AvatarURL },
			func(u *repository.User, s string) { u.AvatarURL = s }),
		{
			Name: "login_count",
			Kind: repository.KindLong,
			Get: func(u *repository.User) repository.Value {
				return repository.Long(u.LoginCount)
			},
			Set: func(u *repository.User, v repository.Value) error {
				i, ok := v.I64()
				if !ok {
					return typeMismatch("login_count", repository.KindLong, v.Kind())
				}
				u.LoginCount = i
				return nil
			},
		},
		{
			Name: "reputation",
			Kind: repository.KindDouble,
			Get: func(u *repository.User) repository.Value {
				return repository.Double(u.Reputation)
			},
			Set: func(u *repository.User, v repository.Value) error {
				f, ok := v.F64()
				if !ok {
					return typeMismatch("reputation", repository.KindDouble, v.Kind())
				}
				u.Reputation = f
				return nil
			},
		},
		stringsField("tags",
			func(u *repository.User) []string { return u.Tags },
			func(u *repository.User, s []string) { u.Tags = s }),
		stringsField("privileges",
			func(u *repository.User) []string { return u.Privileges },
			func(u *repository.User, s []string) { u.Privileges = s }),
		{
			Name:      "created_at",
			Kind:      repository.KindTime,
			Immutable: true,
			Get: func(u *repository.User) repository.Value {
				return repository.Time(u.CreatedAt)
			},
			Set: func(u *repository.User, v repository.Value) error {
				return immutable("created_at")
			},
		},
		{
			Name: "updated_at",
			Kind: repository.KindTime,
			Get: func(u *repository.User) repository.Value {
				return repository.Time(u.UpdatedAt)
			},
			Set: func(u *repository.User, v repository.Value) error {
				t, ok := v.T()
				if !ok {
					return typeMismatch("updated_at", repository.KindTime, v.Kind())
				}
				u.UpdatedAt = t
				return nil
			},
		},
	}
}
