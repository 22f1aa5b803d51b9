// Package sqlstore persists the ledger in PostgreSQL or MySQL through gorm.
//
// Every Update runs in one database transaction that row-locks the revision
// counter, so writers are serialized and each commit gets a new revision.
// View runs in a read-only repeatable-read transaction. MySQL DSNs must set
// parseTime=true.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cleared-dev/ledger/internal/store"
)

// Drivers supported by Open.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const revisionKey = 1

// Store is a store.Store backed by a SQL database.
type Store struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

var _ store.Store = (*Store)(nil)

// Open connects to the database and migrates the schema.
func Open(ctx context.Context, driver, dsn string, log logrus.FieldLogger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown sql driver %q", driver)
	}

	log = log.WithField("component", "sqlstore")
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, store.Wrap("connect", err)
	}

	s := &Store{db: db, log: log}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.WithField("driver", driver).Debug("database ready")
	return s, nil
}

// Migrate creates or updates the ledger tables.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&headerRow{}, &accountRow{}, &entryRow{}, &lineRow{}, &revisionRow{}); err != nil {
		return store.Wrap("migrate", err)
	}
	rev := revisionRow{ID: revisionKey}
	if err := db.Where(revisionRow{ID: revisionKey}).FirstOrCreate(&rev).Error; err != nil {
		return store.Wrap("migrate", err)
	}
	return nil
}

// View runs fn in a read-only repeatable-read transaction.
func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rev revisionRow
		if err := tx.First(&rev, revisionKey).Error; err != nil {
			return store.Wrap("read revision", err)
		}
		fnErr = fn(&reader{db: tx, rev: rev.Revision})
		return fnErr
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if fnErr != nil {
		return fnErr
	}
	return store.Wrap("view", err)
}

// Update runs fn in a transaction holding the revision row lock.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rev revisionRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rev, revisionKey).Error; err != nil {
			return store.Wrap("lock revision", err)
		}

		w := &writer{reader: reader{db: tx, rev: rev.Revision + 1}}
		if fnErr = fn(w); fnErr != nil {
			return fnErr
		}
		if !w.dirty {
			return nil
		}
		err := tx.Model(&revisionRow{}).Where("id = ?", revisionKey).Update("revision", w.rev).Error
		return store.Wrap("bump revision", err)
	})
	if fnErr != nil {
		return fnErr
	}
	return store.Wrap("commit", err)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return store.Wrap("close", err)
	}
	return store.Wrap("close", sqlDB.Close())
}

// DropAll removes every ledger table. Tests use it to start clean.
func (s *Store) DropAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Migrator().DropTable(&lineRow{}, &entryRow{}, &accountRow{}, &headerRow{}, &revisionRow{})
	return store.Wrap("drop tables", err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
