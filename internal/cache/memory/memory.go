// Package memory implementa el cache en proceso sobre go-cache.
package memory

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/grantjohn/internal/cache"
)

// sweepInterval marca cada cuánto go-cache purga entradas expiradas.
const sweepInterval = time.Minute

type Mem struct {
	c      *gocache.Cache
	prefix string
}

// New crea el cache en memoria con el TTL default dado. El prefix separa
// namespaces cuando varios consumidores comparten la instancia; vacío no
// prefija, igual que el backend redis.
func New(defaultTTL time.Duration, prefix string) cache.Cache {
	return &Mem{c: gocache.New(defaultTTL, sweepInterval), prefix: prefix}
}

func (m *Mem) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func (m *Mem) Get(k string) ([]byte, bool) {
	v, ok := m.c.Get(m.key(k))
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	return b, true
}

func (m *Mem) Set(k string, v []byte, ttl time.Duration) { m.c.Set(m.key(k), v, ttl) }

func (m *Mem) Delete(k string) { m.c.Delete(m.key(k)) }
