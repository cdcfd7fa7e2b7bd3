// Package store persists invoices in a relational database through gorm.
// The unique index on the fingerprint is what guarantees at most one record
// per document, also across processes.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/denysvitali/fatture/pkg/models"
)

var log = logrus.StandardLogger().WithField("package", "store")

var ErrNotFound = errors.New("invoice not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	DSN    string
	// LogSQL logs every statement at debug level.
	LogSQL bool
}

type Store struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn is required")
		}
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if db.Dialector.Name() == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// a single writer avoids "database is locked" on concurrent transactions
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}

func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&models.Invoice{},
		&models.LineItem{},
		&models.TaxSummary{},
		&models.Payment{},
		&models.Attachment{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withChildren(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	return db.
		Preload("Lines", byID).
		Preload("TaxSummaries", byID).
		Preload("Payments", byID).
		Preload("Attachments", byID)
}

// Persist stores inv together with its children in one transaction, unless a
// record with the same fingerprint exists already: then the stored record is
// returned and created is false.
func (s *Store) Persist(ctx context.Context, inv *models.Invoice) (stored *models.Invoice, created bool, err error) {
	if inv.Fingerprint == "" {
		return nil, false, fmt.Errorf("invoice has no fingerprint")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Invoice
		err := withChildren(tx).Where("fingerprint = ?", inv.Fingerprint).First(&existing).Error
		if err == nil {
			stored = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		stored, created = inv, true
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another writer inserted the same document between lookup and insert
		log.Debugf("concurrent insert of %s, loading the stored record", inv.Fingerprint)
		existing, ferr := s.FindByFingerprint(ctx, inv.Fingerprint)
		if ferr != nil {
			return nil, false, fmt.Errorf("load after duplicate insert: %w", ferr)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persist invoice %s: %w", inv.Fingerprint, err)
	}
	return stored, created, nil
}

func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*models.Invoice, error) {
	return s.first(ctx, "fingerprint = ?", fingerprint)
}

func (s *Store) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Store) first(ctx context.Context, query string, args ...any) (*models.Invoice, error) {
	var inv models.Invoice
	err := withChildren(s.db.WithContext(ctx)).Where(query, args...).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).Count(&n).Error
	return n, err
}

// Delete removes an invoice and everything it owns.
func (s *Store) Delete(ctx context.Context, id uint) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Select(
		"Lines", "TaxSummaries", "Payments", "Attachments",
	).Delete(inv).Error
}
