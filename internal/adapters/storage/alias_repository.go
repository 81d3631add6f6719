// Package storage persists changelist aliases in a SQLite database under
// the workspace metadata directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"p4son/internal/domain"
	"p4son/internal/logging"
	"p4son/internal/ports"
)

// AliasRepository implements ports.AliasStore using GORM
type AliasRepository struct {
	db *gorm.DB
}

// Verify interface compliance at compile time
var _ ports.AliasStore = (*AliasRepository)(nil)

// gormLogger bridges GORM logging into the structured logger
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else if elapsed > 200*time.Millisecond {
		logging.Logger.Warn("slow query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else {
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

func newGormLogger() logger.Interface {
	if os.Getenv("GIT_P4SON_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// NewAliasRepository creates a new AliasRepository
func NewAliasRepository(dbPath string) (*AliasRepository, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database with WAL mode
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		PrepareStmt: false,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for concurrent access
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&AliasModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate alias schema: %w", err)
	}

	return &AliasRepository{db: db}, nil
}

// Resolve returns the changelist an alias points at
func (r *AliasRepository) Resolve(ctx context.Context, name string) (domain.ChangelistPosition, error) {
	var model AliasModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("alias %q: %w", name, domain.ErrAliasNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve alias %q: %w", name, err)
	}
	return domain.ChangelistPosition(model.Changelist), nil
}

// Save stores name -> pos, refusing to overwrite unless force is set
func (r *AliasRepository) Save(ctx context.Context, name string, pos domain.ChangelistPosition, force bool) error {
	return withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing AliasModel
			err := tx.Where("name = ?", name).First(&existing).Error
			switch {
			case err == nil:
				if !force {
					return fmt.Errorf("alias %q: %w", name, domain.ErrAliasExists)
				}
				existing.Changelist = int64(pos)
				if err := tx.Save(&existing).Error; err != nil {
					return fmt.Errorf("failed to update alias %q: %w", name, err)
				}
				return nil
			case errors.Is(err, gorm.ErrRecordNotFound):
				model := AliasModel{Name: name, Changelist: int64(pos)}
				if err := tx.Create(&model).Error; err != nil {
					return fmt.Errorf("failed to create alias %q: %w", name, err)
				}
				return nil
			default:
				return fmt.Errorf("failed to look up alias %q: %w", name, err)
			}
		})
	}, 3)
}

// List returns all aliases ordered by name
func (r *AliasRepository) List(ctx context.Context) ([]domain.Alias, error) {
	var models []AliasModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}

	aliases := make([]domain.Alias, 0, len(models))
	for _, m := range models {
		aliases = append(aliases, aliasModelToDomain(m))
	}
	return aliases, nil
}

// Delete removes an alias
func (r *AliasRepository) Delete(ctx context.Context, name string) error {
	return withRetry(func() error {
		result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&AliasModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete alias %q: %w", name, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("alias %q: %w", name, domain.ErrAliasNotFound)
		}
		return nil
	}, 3)
}

// Close closes the underlying database connection
func (r *AliasRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// withRetry retries operations on SQLITE_BUSY with exponential backoff
func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
