package repository

import (
	"time"
)

// User es la raíz de identidad del sistema. Además del perfil, el agregado
// lleva las listas de control de acceso por campo (Permissions), los
// privilegios que la sesión humana del propio usuario puede delegar a
// clients (Privileges), el grant pendiente (AuthorizingClient, a lo sumo
// uno) y un AuthorizedClient por cada client con grant completado.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	MiddleName  *string    `json:"middle_name,omitempty"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	LoginCount  int64      `json:"login_count"`
	Reputation  float64    `json:"reputation"`
	Tags        []string   `json:"tags,omitempty"`
	Privileges  []string   `json:"privileges,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Permissions       UserPermissions    `json:"permissions"`
	AuthorizingClient *AuthorizingClient `json:"authorizing_client,omitempty"`
	AuthorizedClients []AuthorizedClient `json:"authorized_clients,omitempty"`
}

// Clone devuelve una copia profunda del agregado. Los stores la usan para
// no exponer sus instancias internas a los transforms del intérprete.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.MiddleName != nil {
		m := *u.MiddleName
		c.MiddleName = &m
	}
	c.Tags = append([]string(nil), u.Tags...)
	c.Privileges = append([]string(nil), u.Privileges...)
	c.Permissions = u.Permissions.Clone()
	if u.AuthorizingClient != nil {
		ac := *u.AuthorizingClient
		ac.TokenPrivileges = u.AuthorizingClient.TokenPrivileges.Clone()
		c.AuthorizingClient = &ac
	}
	c.AuthorizedClients = make([]AuthorizedClient, len(u.AuthorizedClients))
	for i, a := range u.AuthorizedClients {
		a.RefreshToken.TokenPrivileges = a.RefreshToken.TokenPrivileges.Clone()
		c.AuthorizedClients[i] = a
	}
	return &c
}

// AuthorizedClientFor busca el grant completado para un client.
func (u *User) AuthorizedClientFor(clientID string) (*AuthorizedClient, bool) {
	for i := range u.AuthorizedClients {
		if u.AuthorizedClients[i].ClientID == clientID {
			return &u.AuthorizedClients[i], true
		}
	}
	return nil, false
}

// PutAuthorizedClient agrega o reemplaza el grant del client (keyed por
// ClientID: re-otorgar es idempotente).
func (u *User) PutAuthorizedClient(ac AuthorizedClient) {
	for i := range u.AuthorizedClients {
		if u.AuthorizedClients[i].ClientID == ac.ClientID {
			u.AuthorizedClients[i] = ac
			return
		}
	}
	u.AuthorizedClients = append(u.AuthorizedClients, ac)
}

// PartialUser es la vista de un usuario recortada a los campos que el actor
// puede leer. Fields mapea nombre de campo a su valor tipado.
type PartialUser struct {
	ID     string           `json:"id"`
	Fields map[string]Value `json:"fields"`
}
