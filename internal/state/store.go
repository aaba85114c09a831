// Package state owns the durable local storage for the storefront client:
// cart lines for every identity scope plus a small keyed record space for
// session and pending-intent blobs. It survives restarts the way browser
// local storage survives reloads. No business rules live here.
package state

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aduboahen/juicekart/pkg/config"
	"github.com/aduboahen/juicekart/pkg/logger"
)

// Store wraps the local sqlite-backed state file.
type Store struct {
	conn *gorm.DB
}

// Open boots the local state database and migrates its schema.
func Open(ctx context.Context, cfg config.StateConfig, logg *logger.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("state path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	if err := conn.AutoMigrate(&CartLineRecord{}, &KVRecord{}); err != nil {
		return nil, fmt.Errorf("migrating state db: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "local state opened")
	}

	return &Store{conn: conn}, nil
}

// OpenMemory opens a throwaway in-memory state database. Used by tests. The
// shared cache keeps every pooled connection on the same database; the uuid
// name isolates stores from each other.
func OpenMemory(ctx context.Context) (*Store, error) {
	dsn := "file:state_" + uuid.NewString() + "?mode=memory&cache=shared"
	return Open(ctx, config.StateConfig{Path: dsn}, nil)
}

// DB returns the underlying GORM connection.
func (s *Store) DB() *gorm.DB {
	return s.conn
}

// Close shuts down the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := s.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
