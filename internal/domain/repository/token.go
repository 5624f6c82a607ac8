package repository

import "time"

// TokenPrivileges es el scope de un grant: qué campos puede leer y
// actualizar el client, y si puede borrar al usuario. El permission engine
// lo traduce a una entrada Reader/Updater/Deleter autorada por el client.
type TokenPrivileges struct {
	ReadsFields   []PermissionField `json:"reads_fields,omitempty"`
	UpdatesFields []PermissionField `json:"updates_fields,omitempty"`
	DeletesUser   bool              `json:"deletes_user"`
}

// Clone devuelve una copia profunda.
func (tp TokenPrivileges) Clone() TokenPrivileges {
	c := tp
	c.ReadsFields = append([]PermissionField(nil), tp.ReadsFields...)
	c.UpdatesFields = append([]PermissionField(nil), tp.UpdatesFields...)
	return c
}

// IsEmpty reporta si el scope no otorga nada.
func (tp TokenPrivileges) IsEmpty() bool {
	return len(tp.ReadsFields) == 0 && len(tp.UpdatesFields) == 0 && !tp.DeletesUser
}

// AuthorizingClient es el estado pendiente de un grant: entre "code emitido"
// y "code canjeado". A lo sumo uno por usuario; un nuevo Authorize lo
// sobreescribe, y un Token exitoso lo consume exactamente una vez.
type AuthorizingClient struct {
	ClientID            string          `json:"client_id"`
	Code                string          `json:"code"`
	CodeChallenge       string          `json:"code_challenge"`
	CodeChallengeMethod string          `json:"code_challenge_method"`
	CodeExpiresAt       time.Time       `json:"code_expires_at"`
	TokenPrivileges     TokenPrivileges `json:"token_privileges"`
}

// RefreshToken es el token de refresco de un grant completado. Value es el
// hash, nunca el plaintext. No rota en ReToken: solo el access token se
// reemplaza (decisión de diseño preservada del original).
type RefreshToken struct {
	Value           string          `json:"value"`
	ExpiresAt       time.Time       `json:"expires_at"`
	TokenPrivileges TokenPrivileges `json:"token_privileges"`
	IsVerified      bool            `json:"is_verified"`
}

// Token es el access token vigente de un grant. Value es el hash.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
}

// AuthorizedClient es el estado post-grant de un client: refresh token de
// larga vida y el access token vigente, que se reemplaza en cada ReToken.
type AuthorizedClient struct {
	ClientID     string       `json:"client_id"`
	RefreshToken RefreshToken `json:"refresh_token"`
	Token        Token        `json:"token"`
}
