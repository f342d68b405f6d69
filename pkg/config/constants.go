package config

const (
	EnvPrefix = "WAVEPICK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "WAVEPICK_APP_ENV"
	EnvPort         = "WAVEPICK_APP_PORT"
	EnvLogLevel     = "WAVEPICK_LOG_LEVEL"
	EnvLogFormat    = "WAVEPICK_LOG_FORMAT"
	EnvLogWarnStack = "WAVEPICK_LOG_WARN_STACK"
	EnvServiceKind  = "WAVEPICK_SERVICE_KIND"

	EnvDBDSN           = "WAVEPICK_DB_DSN"
	EnvDBDriver        = "WAVEPICK_DB_DRIVER"
	EnvDBHost          = "WAVEPICK_DB_HOST"
	EnvDBPort          = "WAVEPICK_DB_PORT"
	EnvDBUser          = "WAVEPICK_DB_USER"
	EnvDBPassword      = "WAVEPICK_DB_PASSWORD"
	EnvDBName          = "WAVEPICK_DB_NAME"
	EnvDBSSLMode       = "WAVEPICK_DB_SSLMODE"
	EnvDBTxTimeout     = "WAVEPICK_DB_TX_TIMEOUT"
	EnvDBTxMaxAttempts = "WAVEPICK_DB_TX_MAX_ATTEMPTS"
	EnvDBLockTimeout   = "WAVEPICK_DB_LOCK_TIMEOUT"
	EnvDBIsolation     = "WAVEPICK_DB_ISOLATION"

	EnvRedisURL = "WAVEPICK_REDIS_URL"

	EnvJWTSecret  = "WAVEPICK_JWT_SECRET"
	EnvJWTIssuer  = "WAVEPICK_JWT_ISSUER"
	EnvJWTExpMins = "WAVEPICK_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "WAVEPICK_USE_SQLITE"
	EnvAutoMigrate = "WAVEPICK_AUTO_MIGRATE"

	EnvReconcilerInterval  = "WAVEPICK_RECONCILER_INTERVAL"
	EnvReconcilerLockTTL   = "WAVEPICK_RECONCILER_LOCK_TTL"
	EnvReconcilerQueueSize = "WAVEPICK_RECONCILER_QUEUE_SIZE"

	EnvGCPProjectID      = "WAVEPICK_GCP_PROJECT_ID"
	EnvPubSubEventsTopic = "WAVEPICK_PUBSUB_WAREHOUSE_EVENTS_TOPIC"

	EnvOutboxBatchSize     = "WAVEPICK_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxRetentionDays = "WAVEPICK_OUTBOX_RETENTION_DAYS"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	IsolationRepeatableRead = "repeatable_read"
	IsolationSerializable   = "serializable"
	IsolationReadCommitted  = "read_committed"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
