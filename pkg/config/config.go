package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "studia"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STUDIA_APP_ENV"
	EnvPort     = "STUDIA_APP_PORT"
	EnvDBDSN    = "STUDIA_DB_DSN"
	EnvDBHost   = "STUDIA_DB_HOST"
	EnvDBUser   = "STUDIA_DB_USER"
	EnvDBName   = "STUDIA_DB_NAME"
	EnvRedisURL = "STUDIA_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Billing      BillingConfig
	Idempotency  IdempotencyConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STUDIA_APP_ENV" required:"true"`
	Port         string `envconfig:"STUDIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STUDIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STUDIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"STUDIA_SERVICE_KIND" default:"api"`
	MetricsPort string `envconfig:"STUDIA_SERVICE_METRICS_PORT" default:"9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"STUDIA_DB_DSN"`
	Driver string `envconfig:"STUDIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STUDIA_DB_HOST"`
	LegacyPort     int    `envconfig:"STUDIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STUDIA_DB_USER"`
	LegacyPassword string `envconfig:"STUDIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"STUDIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"STUDIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STUDIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STUDIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STUDIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STUDIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STUDIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STUDIA_REDIS_ADDR"`
	Password     string        `envconfig:"STUDIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"STUDIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STUDIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STUDIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STUDIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STUDIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STUDIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type BillingConfig struct {
	// DefaultSessionPrice is used when an attendance request omits the
	// per-session amount. Currency units, decimal string.
	DefaultSessionPrice string `envconfig:"STUDIA_BILLING_DEFAULT_SESSION_PRICE" default:"40"`
	// ReconcileBatchSize bounds how many ledgers a reconcile pass loads at once.
	ReconcileBatchSize int `envconfig:"STUDIA_BILLING_RECONCILE_BATCH_SIZE" default:"200"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"STUDIA_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STUDIA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
