package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		// pg | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Session struct {
		// Secreto HMAC del JWT de sesión (lo emite el autenticador externo).
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
	} `yaml:"session"`

	OAuth struct {
		// sha256 | sha512 | blake2b
		SecretHashAlgorithm string `yaml:"secret_hash_algorithm"`
		BanThreshold        int    `yaml:"ban_threshold"`
	} `yaml:"oauth"`

	Log struct {
		// debug | info | warn | error
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.OAuth.SecretHashAlgorithm == "" {
		c.OAuth.SecretHashAlgorithm = "sha256"
	}
	if c.OAuth.BanThreshold == 0 {
		c.OAuth.BanThreshold = 3
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// validate string durations
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return nil, err
	}
	if _, err := time.ParseDuration(c.Cache.Memory.DefaultTTL); err != nil {
		return nil, err
	}

	// Overrides por env + validación
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvStr("SESSION_ISSUER"); ok {
		c.Session.Issuer = v
	}
	if v, ok := getEnvInt("OAUTH_BAN_THRESHOLD"); ok {
		c.OAuth.BanThreshold = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate rechaza combinaciones imposibles antes de arrancar.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "pg":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config: storage.driver=pg requiere storage.dsn")
		}
	case "memory":
	default:
		return fmt.Errorf("config: storage.driver desconocido %q", c.Storage.Driver)
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return fmt.Errorf("config: cache.kind=redis requiere cache.redis.addr")
		}
	default:
		return fmt.Errorf("config: cache.kind desconocido %q", c.Cache.Kind)
	}

	switch c.OAuth.SecretHashAlgorithm {
	case "sha256", "sha512", "blake2b":
	default:
		return fmt.Errorf("config: oauth.secret_hash_algorithm desconocido %q", c.OAuth.SecretHashAlgorithm)
	}

	if strings.EqualFold(c.App.Env, "prod") && strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("config: session.secret es obligatorio en prod")
	}
	return nil
}

// ShutdownTimeout ya viene validado por Load.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}

// MemoryCacheTTL ya viene validado por Load.
func (c *Config) MemoryCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.Memory.DefaultTTL)
	return d
}
