package repository

import "context"

// Client representa una aplicación de terceros que actúa en nombre de un
// usuario. Secret es el hash del secret, nunca el plaintext. ExposedCount
// cuenta sospechas de exposición del secret; es monotónico y nunca se
// resetea: al alcanzar el umbral el client queda baneado para siempre.
type Client struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Secret       string `json:"secret"`
	RedirectURL  string `json:"redirect_url"`
	ExposedCount int    `json:"exposed_count"`
}

// ClientRepository define las operaciones de persistencia sobre clients.
type ClientRepository interface {
	// RetrieveByIDAndRedirectURL busca un client cuyo redirect URL coincide
	// exactamente. Retorna ErrNotFound si no existe o no coincide.
	RetrieveByIDAndRedirectURL(ctx context.Context, clientID, redirectURL string) (*Client, error)

	// RetrieveByIDAndSecret busca un client por id y hash de secret.
	// Retorna ErrNotFound si no existe o el hash no coincide.
	RetrieveByIDAndSecret(ctx context.Context, clientID, secretHash string) (*Client, error)

	// IncrementExposedCount incrementa el contador de exposición.
	// Retorna ErrNotFound si el client no existe.
	IncrementExposedCount(ctx context.Context, clientID string) error

	// Create registra un client nuevo. Retorna ErrConflict si el id existe.
	Create(ctx context.Context, c *Client) error
}
