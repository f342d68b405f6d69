package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Reconciler   ReconcilerConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validateIsolation(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"WAVEPICK_APP_ENV" required:"true"`
	Port         string   `envconfig:"WAVEPICK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"WAVEPICK_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"WAVEPICK_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"WAVEPICK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"WAVEPICK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"WAVEPICK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WAVEPICK_DB_DSN"`
	Driver string `envconfig:"WAVEPICK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WAVEPICK_DB_HOST"`
	LegacyPort     int    `envconfig:"WAVEPICK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WAVEPICK_DB_USER"`
	LegacyPassword string `envconfig:"WAVEPICK_DB_PASSWORD"`
	LegacyName     string `envconfig:"WAVEPICK_DB_NAME"`
	LegacySSLMode  string `envconfig:"WAVEPICK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WAVEPICK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WAVEPICK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WAVEPICK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WAVEPICK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// Every transaction gets a deadline and a bounded number of retries on
	// serialization failures, deadlocks and lock timeouts.
	TxTimeout     time.Duration `envconfig:"WAVEPICK_DB_TX_TIMEOUT" default:"5s"`
	TxMaxAttempts int           `envconfig:"WAVEPICK_DB_TX_MAX_ATTEMPTS" default:"3"`
	LockTimeout   time.Duration `envconfig:"WAVEPICK_DB_LOCK_TIMEOUT" default:"2s"`
	Isolation     string        `envconfig:"WAVEPICK_DB_ISOLATION" default:"repeatable_read"`
}

// IsSQLite reports whether the sqlite dialect is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"WAVEPICK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WAVEPICK_REDIS_ADDR"`
	Password     string        `envconfig:"WAVEPICK_REDIS_PASSWORD"`
	DB           int           `envconfig:"WAVEPICK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WAVEPICK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WAVEPICK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WAVEPICK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WAVEPICK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WAVEPICK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WAVEPICK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WAVEPICK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WAVEPICK_JWT_EXPIRATION_MINUTES" default:"480"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WAVEPICK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WAVEPICK_AUTO_MIGRATE" default:"false"`
}

type ReconcilerConfig struct {
	Interval  time.Duration `envconfig:"WAVEPICK_RECONCILER_INTERVAL" default:"15m"`
	LockTTL   time.Duration `envconfig:"WAVEPICK_RECONCILER_LOCK_TTL" default:"10m"`
	QueueSize int           `envconfig:"WAVEPICK_RECONCILER_QUEUE_SIZE" default:"256"`
}

// RateLimitConfig bounds mutating calls per tenant in a fixed window.
type RateLimitConfig struct {
	Window time.Duration `envconfig:"WAVEPICK_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"WAVEPICK_RATE_LIMIT_WRITES" default:"600"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"WAVEPICK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	WarehouseEventsTopic string `envconfig:"WAVEPICK_PUBSUB_WAREHOUSE_EVENTS_TOPIC" default:"warehouse-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WAVEPICK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WAVEPICK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WAVEPICK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"WAVEPICK_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:wavepick.db?_txlock=immediate&_busy_timeout=5000"
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

func (db *DBConfig) validateIsolation() error {
	switch strings.ToLower(strings.TrimSpace(db.Isolation)) {
	case "", IsolationRepeatableRead, IsolationSerializable, IsolationReadCommitted:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvDBIsolation, IsolationReadCommitted, IsolationRepeatableRead, IsolationSerializable)
	}
}
