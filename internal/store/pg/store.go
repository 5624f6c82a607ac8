// Package pg implementa los repositorios sobre PostgreSQL con pgx.
//
// Los usuarios se persisten como documento JSONB completo (ACLs, grants y
// tokens incluidos): cada operación gated carga el documento, decide en
// memoria con store/core y escribe de vuelta. Los clients son relacionales.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/observability/logger"
	"github.com/dropDatabas3/grantjohn/internal/store/core"
)

// Config ajusta el pool. Cero valores usan los defaults de pgxpool.
type Config struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

type Store struct {
	pool *pgxpool.Pool
	gate *core.Gate
}

var (
	_ repository.UserRepository   = (*Store)(nil)
	_ repository.ClientRepository = (*ClientStore)(nil)
)

func New(ctx context.Context, dsn string, cfg Config, gate *core.Gate) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Arranque no bloqueante: si la DB está caída igual levantamos y el
	// primer request real reporta el error.
	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg_pool_startup_ping_failed", logger.Err(err))
	} else {
		logger.L().Info("pg_pool_ready", zap.Int32("max_conns", pcfg.MaxConns))
	}

	return &Store{pool: pool, gate: gate}, nil
}

// Pool expone el pool interno (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// ─── Transacción ───

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }
func (t *pgTx) Abort(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (s *Store) StartTransaction(ctx context.Context) (repository.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, repository.Storagef("begin", err)
	}
	return &pgTx{tx: tx}, nil
}

// querier abstrae pool y tx para las operaciones que aceptan ambos.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) q(tx repository.Tx) querier {
	if t, ok := tx.(*pgTx); ok && t != nil {
		return t.tx
	}
	return s.pool
}

// ─── Helpers de documento ───

func scanDoc(row pgx.Row) (*repository.User, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.NotFound("user")
		}
		return nil, repository.Storagef("scan", err)
	}
	var u repository.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, repository.Storagef("decode", err)
	}
	return &u, nil
}

func encodeDoc(u *repository.User) ([]byte, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, repository.Storagef("encode", err)
	}
	return raw, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
