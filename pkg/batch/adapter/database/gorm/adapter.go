package gorm

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

// GormConnection is a DBConnection that exposes its GORM handle.
type GormConnection interface {
	database.DBConnection
	GetGormDB() *gorm.DB
}

// GormDBAdapter implements GormConnection.
type GormDBAdapter struct {
	db   *gorm.DB
	cfg  dbconfig.DatabaseConfig
	name string
}

var _ GormConnection = (*GormDBAdapter)(nil)

// NewGormDBAdapter wraps an open GORM handle.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	return &GormDBAdapter{db: db, cfg: cfg, name: name}
}

func (a *GormDBAdapter) GetGormDB() *gorm.DB             { return a.db }
func (a *GormDBAdapter) Type() string                    { return a.cfg.Type }
func (a *GormDBAdapter) Name() string                    { return a.name }
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig { return a.cfg }

func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	return a.db.DB()
}

func (a *GormDBAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsTableNotExistError matches the "missing table" messages of SQLite, PostgreSQL and MySQL.
func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table:") ||
		(strings.Contains(msg, "relation \"") && strings.Contains(msg, "does not exist")) ||
		(strings.Contains(msg, "Error 1146") && strings.Contains(msg, "doesn't exist"))
}

// NewGormLogger routes GORM output to the digestor logger at the given level
// ("silent" when empty or unknown).
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch strings.ToLower(level) {
	case "error":
		gormLevel = gormlogger.Error
	case "warn":
		gormLevel = gormlogger.Warn
	case "info":
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}
	return gormlogger.New(GormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// GormWriter implements gormlogger.Writer. Statement traces go to DEBUG, everything else to WARN.
type GormWriter struct{}

func (GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatement(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Warnf("[GORM] %s", msg)
}

func isStatement(msg string) bool {
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}
