package repository

import "context"

// Tx es el valor de unidad de trabajo que delimita una transacción del
// store. Solo el camino de Token exchange lo usa: otorgar privilegios,
// crear el AuthorizedClient y consumir el AuthorizingClient deben ser
// visibles todos o ninguno. El resto de las operaciones son de un solo
// documento y dependen de la atomicidad nativa del store.
type Tx interface {
	// Commit confirma la transacción.
	Commit(ctx context.Context) error
	// Abort la aborta. Es seguro llamarlo después de Commit (no-op).
	Abort(ctx context.Context) error
}

// RetrieveOptions parametriza una consulta en bloque.
type RetrieveOptions struct {
	// Filter puede ser nil: matchea todo.
	Filter *Filter
	// Limit acota la página; Iteration es el número de página (offset =
	// Iteration * Limit). Limit <= 0 usa el default del store.
	Limit     int
	Iteration int
	// SortBy es un nombre de campo del registry; vacío ordena por
	// created_at. Ascending controla la dirección.
	SortBy    string
	Ascending bool
}

// UserRepository define las operaciones de persistencia sobre el agregado
// User, incluyendo las consultas y mutaciones en bloque acotadas por
// permisos. En Retrieve/Update/Delete el actor se identifica con
// (actorID, forClient): forClient=true significa que actúa un client.
type UserRepository interface {
	// RetrieveByID busca un usuario por id. Retorna ErrNotFound si no existe.
	RetrieveByID(ctx context.Context, userID string) (*User, error)

	// RetrieveByClientIDAndCode busca el usuario cuyo AuthorizingClient
	// matchea (clientID, code). Retorna ErrNotFound si no hay ninguno:
	// un code ya consumido es indistinguible de uno nunca emitido.
	RetrieveByClientIDAndCode(ctx context.Context, clientID, code string) (*User, error)

	// RetrieveByRefreshTokenValue busca el usuario que tiene un
	// AuthorizedClient con ese hash de refresh token.
	RetrieveByRefreshTokenValue(ctx context.Context, refreshTokenHash string) (*User, error)

	// UpdateAuthorizingClient fija (o limpia, con nil) el grant pendiente.
	UpdateAuthorizingClient(ctx context.Context, userID string, ac *AuthorizingClient) error

	// AddTokenPrivilegesToUser traduce el scope en entradas
	// Reader/Updater/Deleter autoradas por el client, reemplazando en su
	// lugar cualquier entrada previa del mismo client. tx puede ser nil.
	AddTokenPrivilegesToUser(ctx context.Context, tx Tx, userID, clientID string, tp TokenPrivileges) error

	// AddAuthorizedClient agrega (o reemplaza, keyed por ClientID) el grant
	// completado y consume el AuthorizingClient pendiente. tx puede ser nil.
	AddAuthorizedClient(ctx context.Context, tx Tx, userID string, ac AuthorizedClient) error

	// UpdateToken reemplaza el access token del AuthorizedClient del client.
	// Retorna ErrNotFound si el usuario o el grant no existen.
	UpdateToken(ctx context.Context, userID, clientID string, t Token) error

	// UpdateUserPrivileges reemplaza las listas de permisos del usuario.
	// El actor debe poder actualizar el campo "permissions"; si no,
	// ErrNotFound (no se filtra existencia).
	UpdateUserPrivileges(ctx context.Context, actorID, userID string, perms UserPermissions) error

	// Retrieve corre una consulta en bloque. Por registro: el actor debe
	// poder leer todos los campos referidos por el filtro (si no, el
	// registro se excluye en silencio); el resultado recorta cada usuario
	// a los campos que el actor puede leer.
	Retrieve(ctx context.Context, actorID string, forClient bool, opts RetrieveOptions) ([]PartialUser, error)

	// Update corre una mutación en bloque. Por registro: el actor debe
	// poder actualizar todos los campos tocados por los updates; los
	// registros no autorizados se excluyen del match en silencio.
	// Retorna la cantidad de registros modificados.
	Update(ctx context.Context, actorID string, forClient bool, f *Filter, ups []Update) (int64, error)

	// Delete borra un usuario si el actor tiene una entrada Deleter
	// permitida. Si no la tiene, ErrNotFound.
	Delete(ctx context.Context, actorID string, forClient bool, userID string) error

	// Create persiste un usuario nuevo. Retorna ErrConflict si el id existe.
	Create(ctx context.Context, u *User) error

	// StartTransaction abre la unidad de trabajo para el Token exchange.
	StartTransaction(ctx context.Context) (Tx, error)
}
