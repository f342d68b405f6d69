package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/angelmondragon/wavepick-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wavepick-backend/pkg/errors"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultTxAttempts = 1
	retryBackoffStep  = 20 * time.Millisecond
)

// Client wraps the shared GORM connection.
type Client struct {
	conn        *gorm.DB
	postgres    bool
	txOptions   *sql.TxOptions
	txTimeout   time.Duration
	lockTimeout time.Duration
	maxAttempts int
	logg        *logger.Logger
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	if cfg.IsSQLite() {
		dialector = sqlite.Open(cfg.DSN)
	} else {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	gormCfg := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	applyPoolSettings(sqlDB, cfg)

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}

	client := NewWithConn(conn, cfg)
	client.logg = logg
	return client, nil
}

// NewWithConn wraps an already opened connection, applying the transaction
// settings from cfg. Tests use it with sqlite handles.
func NewWithConn(conn *gorm.DB, cfg config.DBConfig) *Client {
	client := &Client{
		conn:        conn,
		postgres:    conn != nil && conn.Dialector != nil && conn.Dialector.Name() == "postgres",
		txTimeout:   cfg.TxTimeout,
		lockTimeout: cfg.LockTimeout,
		maxAttempts: cfg.TxMaxAttempts,
	}
	if client.maxAttempts <= 0 {
		client.maxAttempts = defaultTxAttempts
	}
	if client.postgres {
		client.txOptions = &sql.TxOptions{Isolation: isolationLevel(cfg.Isolation)}
	}
	return client
}

func isolationLevel(value string) sql.IsolationLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case config.IsolationSerializable:
		return sql.LevelSerializable
	case config.IsolationReadCommitted:
		return sql.LevelReadCommitted
	default:
		return sql.LevelRepeatableRead
	}
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
// Serialization failures, deadlocks and lock timeouts re-run fn from the
// start up to the configured attempt count; fn must not keep state across
// attempts. Exhausted retries surface as CONCURRENCY_CONFLICT.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": err.Error()})
			c.logg.Warn(logCtx, "transaction conflict, retrying")
		}
		if attempt < c.maxAttempts {
			if sleepErr := sleep(ctx, time.Duration(attempt)*retryBackoffStep); sleepErr != nil {
				break
			}
		}
	}
	if pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "transaction conflict")
}

func (c *Client) runTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	txCtx := ctx
	if c.txTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, c.txTimeout)
		defer cancel()
	}

	var tx *gorm.DB
	if c.txOptions != nil {
		tx = c.conn.WithContext(txCtx).Begin(c.txOptions)
	} else {
		tx = c.conn.WithContext(txCtx).Begin()
	}
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if c.postgres && c.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", c.lockTimeout.Milliseconds())
		if err := tx.Exec(stmt).Error; err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(txCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return pkgerrors.Wrap(pkgerrors.CodeConcurrencyConflict, err, "transaction timed out")
		}
		return err
	}

	return tx.Commit().Error
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
