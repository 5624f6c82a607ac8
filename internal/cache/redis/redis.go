// Package redis implementa el cache distribuido sobre go-redis.
package redis

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/grantjohn/internal/cache"
)

type Redis struct {
	c      *rdb.Client
	prefix string
}

// New crea el cliente Redis. No verifica la conexión: el primer Get/Set
// la establece, y un Redis caído degrada a cache-miss.
func New(addr string, db int, prefix string) cache.Cache {
	return &Redis{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix: prefix}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) Get(k string) ([]byte, bool) {
	b, err := r.c.Get(context.Background(), r.key(k)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(k string, v []byte, ttl time.Duration) {
	_ = r.c.Set(context.Background(), r.key(k), v, ttl).Err()
}

func (r *Redis) Delete(k string) {
	_ = r.c.Del(context.Background(), r.key(k)).Err()
}
