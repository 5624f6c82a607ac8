// Package clients implementa el client registry: resolución de clients por
// redirect URL o por secret, y la regla de baneo por exposición. El secret
// se hashea con un algoritmo configurado por nombre, así el esquema puede
// rotar sin tocar el resto del core.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dropDatabas3/grantjohn/internal/cache"
	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/security/token"
)

// DefaultBanThreshold es el umbral de exposición que banea un client.
const DefaultBanThreshold = 3

// Registry resuelve y valida clients para el token path.
type Registry struct {
	repo         repository.ClientRepository
	cache        cache.Cache
	algorithm    string
	banThreshold int
	cacheTTL     time.Duration
}

// NewRegistry construye el registry. cache puede ser nil (sin cacheo);
// banThreshold <= 0 usa el default.
func NewRegistry(repo repository.ClientRepository, c cache.Cache, algorithm string, banThreshold int) *Registry {
	if banThreshold <= 0 {
		banThreshold = DefaultBanThreshold
	}
	return &Registry{
		repo:         repo,
		cache:        c,
		algorithm:    algorithm,
		banThreshold: banThreshold,
		cacheTTL:     time.Minute,
	}
}

// IsBanned reporta si el client superó el umbral de exposición. El contador
// es monotónico: un client baneado lo es para siempre.
func (r *Registry) IsBanned(c *repository.Client) bool {
	return c.ExposedCount >= r.banThreshold
}

// ResolveByRedirect busca el client por (id, redirect URL exacta) y aplica
// la regla de baneo. Retorna ErrNotFound("client") o ErrBannedClient.
func (r *Registry) ResolveByRedirect(ctx context.Context, clientID, redirectURL string) (*repository.Client, error) {
	key := "client:redirect:" + clientID + ":" + redirectURL

	if c := r.fromCache(key); c != nil {
		return r.checkBan(c)
	}

	c, err := r.repo.RetrieveByIDAndRedirectURL(ctx, clientID, redirectURL)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, repository.NotFound("client")
		}
		return nil, err
	}
	r.toCache(key, c)
	return r.checkBan(c)
}

// ResolveBySecret busca el client por (id, secret) validando el hash del
// secret presentado. Los secrets no se cachean.
func (r *Registry) ResolveBySecret(ctx context.Context, clientID, plainSecret string) (*repository.Client, error) {
	hash, err := token.HashSecret(plainSecret, r.algorithm)
	if err != nil {
		return nil, err
	}
	c, err := r.repo.RetrieveByIDAndSecret(ctx, clientID, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, repository.NotFound("client")
		}
		return nil, err
	}
	return r.checkBan(c)
}

// MarkExposed incrementa el contador de exposición e invalida el cache del
// client. Se llama ante pruebas criptográficas fallidas (PKCE o refresh
// token inválidos): señales de que el secret o el code circulan expuestos.
func (r *Registry) MarkExposed(ctx context.Context, clientID string) error {
	err := r.repo.IncrementExposedCount(ctx, clientID)
	if err != nil && !repository.IsNotFound(err) {
		return err
	}
	// El cache se invalida solo por TTL (1m): el contador cacheado puede
	// quedar viejo esa ventana, pero el baneo es permanente una vez visto.
	return nil
}

// HashSecret expone el hashing con el algoritmo configurado.
func (r *Registry) HashSecret(plain string) (string, error) {
	return token.HashSecret(plain, r.algorithm)
}

func (r *Registry) checkBan(c *repository.Client) (*repository.Client, error) {
	if r.IsBanned(c) {
		return nil, repository.ErrBannedClient
	}
	return c, nil
}

func (r *Registry) fromCache(key string) *repository.Client {
	if r.cache == nil {
		return nil
	}
	b, ok := r.cache.Get(key)
	if !ok {
		return nil
	}
	var c repository.Client
	if err := json.Unmarshal(b, &c); err != nil {
		r.cache.Delete(key)
		return nil
	}
	return &c
}

func (r *Registry) toCache(key string, c *repository.Client) {
	if r.cache == nil {
		return
	}
	if b, err := json.Marshal(c); err == nil {
		r.cache.Set(key, b, r.cacheTTL)
	}
}

// IsAuthFailure reporta si el error es una falla de credenciales del
// client (not-found o baneo), distinto de una falla de infraestructura.
func IsAuthFailure(err error) bool {
	return repository.IsNotFound(err) || errors.Is(err, repository.ErrBannedClient)
}
