package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/grantjohn/internal/cache"
	memcache "github.com/dropDatabas3/grantjohn/internal/cache/memory"
	redcache "github.com/dropDatabas3/grantjohn/internal/cache/redis"
	"github.com/dropDatabas3/grantjohn/internal/clients"
	"github.com/dropDatabas3/grantjohn/internal/config"
	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/fields"
	httpx "github.com/dropDatabas3/grantjohn/internal/http"
	"github.com/dropDatabas3/grantjohn/internal/observability/logger"
	"github.com/dropDatabas3/grantjohn/internal/permission"
	"github.com/dropDatabas3/grantjohn/internal/security/session"
	oauthsvc "github.com/dropDatabas3/grantjohn/internal/service/oauth"
	userssvc "github.com/dropDatabas3/grantjohn/internal/service/users"
	"github.com/dropDatabas3/grantjohn/internal/store/core"
	memstore "github.com/dropDatabas3/grantjohn/internal/store/memory"
	pgstore "github.com/dropDatabas3/grantjohn/internal/store/pg"
	migrations "github.com/dropDatabas3/grantjohn/migrations/postgres"
)

func main() {
	// .env es opcional; en prod la config llega por YAML + env reales.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "grantjohn",
		Short: "Servicio de emisión de credenciales y control de acceso por campo",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "ruta del config YAML")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas (storage.driver=pg)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("serve")

	// Registry de campos + motor de permisos: el corazón del gating.
	reg := fields.MustUserRegistry()
	eng := permission.NewEngine(reg, permission.DefaultCatalog())
	gate := &core.Gate{Reg: reg, Eng: eng}

	// Cache para el registry de clients.
	var cch cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		cch = redcache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
	default:
		cch = memcache.New(cfg.MemoryCacheTTL(), "")
	}

	// Storage.
	var (
		userRepo   repository.UserRepository
		clientRepo repository.ClientRepository
		ping       func(context.Context) error
		closeStore func()
	)
	switch cfg.Storage.Driver {
	case "pg":
		var lifetime time.Duration
		if cfg.Storage.Postgres.ConnMaxLifetime != "" {
			lifetime, _ = time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		}
		st, err := pgstore.New(ctx, cfg.Storage.DSN, pgstore.Config{
			MaxConns:        int32(cfg.Storage.Postgres.MaxOpenConns),
			MinConns:        int32(cfg.Storage.Postgres.MaxIdleConns),
			ConnMaxLifetime: lifetime,
		}, gate)
		if err != nil {
			return err
		}
		userRepo, clientRepo = st, st.Clients()
		ping = st.Ping
		closeStore = st.Close
	default:
		st := memstore.New(gate)
		userRepo, clientRepo = st, st.Clients()
	}
	if closeStore != nil {
		defer closeStore()
	}

	registry := clients.NewRegistry(clientRepo, cch, cfg.OAuth.SecretHashAlgorithm, cfg.OAuth.BanThreshold)
	auth := session.NewJWTAuthenticator([]byte(cfg.Session.Secret), cfg.Session.Issuer)

	oauthService := oauthsvc.NewService(userRepo, registry, auth, eng)
	usersService := userssvc.NewService(userRepo, gate, eng)

	handler, err := httpx.NewRouter(httpx.Deps{
		OAuth:   oauthService,
		Users:   usersService,
		Auth:    auth,
		Clients: registry,
		Ping:    ping,
		Metrics: nil,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shCtx)
	})
	return g.Wait()
}

// migrate aplica los .sql embebidos en orden lexicográfico.
func migrate(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("migrate")

	if cfg.Storage.Driver != "pg" {
		return fmt.Errorf("migrate requiere storage.driver=pg")
	}

	reg := fields.MustUserRegistry()
	eng := permission.NewEngine(reg, permission.DefaultCatalog())
	st, err := pgstore.New(ctx, cfg.Storage.DSN, pgstore.Config{}, &core.Gate{Reg: reg, Eng: eng})
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		b, err := migrations.FS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := st.Pool().Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("migración %s: %w", name, err)
		}
		log.Info("applied", zap.String("file", name))
	}
	return nil
}
