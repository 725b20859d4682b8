package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/medtrack-cli/internal/config"
	apperrors "github.com/gmsas95/medtrack-cli/internal/errors"
	"github.com/gmsas95/medtrack-cli/internal/medication"
)

// documentVersion is bumped when the persisted document shape changes.
const documentVersion = 1

const medKeyPrefix = "med:"

// envelope wraps a persisted document with its schema version so old data
// can be migrated on load.
type envelope struct {
	Version    int                 `json:"version"`
	Medication medication.Document `json:"medication"`
}

// Store persists medications to SQLite for durable rows and BadgerDB for the
// fast-load document snapshot. Badger is preferred on load; SQLite is the
// fallback when the snapshot is missing or unreadable.
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	logger *zap.Logger
}

// New opens both databases and migrates the schema.
func New(cfg *config.Config, log *zap.Logger) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "medtrack.db")
	}

	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&MedicationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}
	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{db: db, badger: badgerDB, logger: log}, nil
}

// Close closes both databases.
func (s *Store) Close() error {
	return s.badger.Close()
}

// SaveEntry writes a document to both backends. The SQLite row is the
// durable record; the badger envelope is the load-path copy.
func (s *Store) SaveEntry(ctx context.Context, doc medication.Document) error {
	row, err := rowFromDocument(doc)
	if err != nil {
		return apperrors.Persistence("failed to serialize medication", err)
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error; err != nil {
		return apperrors.Persistence("failed to save medication row", err)
	}

	raw, err := json.Marshal(envelope{Version: documentVersion, Medication: doc})
	if err != nil {
		return apperrors.Persistence("failed to marshal document", err)
	}
	if err := s.badger.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(medKeyPrefix+doc.ID), raw)
	}); err != nil {
		// The SQLite write already landed; the snapshot self-heals on the
		// next save or rebuilds from rows on load.
		s.logger.Warn("Failed to write badger snapshot",
			zap.String("id", doc.ID), zap.Error(err))
	}
	return nil
}

// DeleteEntry removes a medication from both backends.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&MedicationRow{}, "id = ?", id).Error; err != nil {
		return apperrors.Persistence("failed to delete medication row", err)
	}
	if err := s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(medKeyPrefix + id))
	}); err != nil {
		s.logger.Warn("Failed to delete badger snapshot",
			zap.String("id", id), zap.Error(err))
	}
	return nil
}

// LoadAll returns every persisted document. Badger first; when the snapshot
// is empty or any envelope is unreadable, SQLite rows rebuild the set.
func (s *Store) LoadAll(ctx context.Context) ([]medication.Document, error) {
	docs, err := s.loadFromBadger()
	if err == nil && len(docs) > 0 {
		return docs, nil
	}
	if err != nil {
		s.logger.Warn("Badger snapshot unreadable, falling back to sqlite", zap.Error(err))
	}
	return s.loadFromRows(ctx)
}

func (s *Store) loadFromBadger() ([]medication.Document, error) {
	var docs []medication.Document
	err := s.badger.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(medKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var env envelope
				if err := json.Unmarshal(v, &env); err != nil {
					return err
				}
				if env.Version != documentVersion {
					return fmt.Errorf("unsupported document version %d", env.Version)
				}
				docs = append(docs, env.Medication)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) loadFromRows(ctx context.Context) ([]medication.Document, error) {
	var rows []MedicationRow
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Persistence("failed to load medication rows", err)
	}

	docs := make([]medication.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.document()
		if err != nil {
			s.logger.Error("Skipping unreadable medication row",
				zap.String("id", row.ID), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
