// Package storage implements audit persistence using GORM and SQLite.
package storage

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rangelab/rangectl/internal/core/domain"
)

// SQLiteAdapter implements ports.AuditRepository.
type SQLiteAdapter struct {
	db *gorm.DB
}

// AuditModel is the GORM model for audit entries. Kept separate from the
// domain entity so persistence tags never leak into the core.
type AuditModel struct {
	ID        uint   `gorm:"primaryKey"`
	ClientID  string `gorm:"index"`
	Actor     string
	Action    string `gorm:"index"`
	Target    string
	Details   string
	Timestamp time.Time `gorm:"index"`
}

// NewSQLiteAdapter initializes the database and migrates the schema.
// Path ":memory:" gives an ephemeral store for tests and mock mode.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&AuditModel{}); err != nil {
		return nil, err
	}

	return &SQLiteAdapter{db: db}, nil
}

// SaveAuditLog persists a single audit entry.
func (a *SQLiteAdapter) SaveAuditLog(ctx context.Context, entry domain.AuditLog) error {
	model := AuditModel{
		ClientID:  entry.ClientID,
		Actor:     entry.Actor,
		Action:    string(entry.Action),
		Target:    entry.Target,
		Details:   entry.Details,
		Timestamp: entry.Timestamp,
	}
	return a.db.WithContext(ctx).Create(&model).Error
}

// ListAuditLogs retrieves the most recent entries, newest first.
func (a *SQLiteAdapter) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var models []AuditModel
	q := a.db.WithContext(ctx).Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	logs := make([]domain.AuditLog, 0, len(models))
	for _, m := range models {
		logs = append(logs, domain.AuditLog{
			ID:        m.ID,
			ClientID:  m.ClientID,
			Actor:     m.Actor,
			Action:    domain.AuditAction(m.Action),
			Target:    m.Target,
			Details:   m.Details,
			Timestamp: m.Timestamp,
		})
	}
	return logs, nil
}

// Close closes the underlying database connection.
func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
