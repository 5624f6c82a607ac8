// Package cache define la abstracción de cache del servicio. El token path
// la usa para cachear lookups de clients; los backends disponibles son
// memoria (desarrollo/tests) y Redis (producción).
package cache

import "time"

// Cache es un KV simple de bytes con TTL.
type Cache interface {
	// Get retorna el valor y true si la key existe y no expiró.
	Get(key string) ([]byte, bool)

	// Set guarda el valor con el TTL dado (0 usa el default del backend).
	Set(key string, value []byte, ttl time.Duration)

	// Delete elimina la key. No-op si no existe.
	Delete(key string)
}
