package db

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

const (
	DefaultSqlitePath = "records.db"

	// applied per connection by the driver, so every pooled connection
	// carries them
	fileDSNParams   = "_journal_mode=WAL&_busy_timeout=5000"
	memoryDSNParams = "mode=memory&cache=shared"
)

// DB is the storage handle. Statements check a connection out of the pool
// and hand it back when the statement or transaction finishes.
type DB struct {
	Conn *gorm.DB
}

// Open connects through dialector and migrates the schema. The sensor_data
// table is created only when missing; an existing one is left untouched.
func Open(dialector gorm.Dialector) (*DB, error) {
	logger := common.GetLoggerWith(common.LoggerNameStorage)

	conn, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, Wrap("open", err)
	}

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	if isMemoryDialector(dialector) {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, Wrap("open", err)
		}
		// shared-cache memory databases fail fast on table locks instead of
		// waiting, so serialize access through one connection
		sqlDB.SetMaxOpenConns(1)
	}

	instance := &DB{Conn: conn}
	if err := instance.Migrate(); err != nil {
		_ = instance.Close()
		return nil, err
	}

	logger.Info("Database migration completed")
	return instance, nil
}

func (d *DB) Migrate() error {
	if err := d.Conn.AutoMigrate(&models.Household{}, &models.ActiveHousehold{}); err != nil {
		return Wrap("migrate", err)
	}

	migrator := d.Conn.Migrator()
	if !migrator.HasTable(&models.SensorReading{}) {
		if err := migrator.CreateTable(&models.SensorReading{}); err != nil {
			return Wrap("migrate", err)
		}
	}
	return nil
}

func (d *DB) Ping() error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return Wrap("ping", err)
	}
	return Wrap("ping", sqlDB.Ping())
}

func (d *DB) Close() error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return Wrap("close", err)
	}
	return Wrap("close", sqlDB.Close())
}

func UseSqliteDialector(path string) gorm.Dialector {
	if path == "" {
		path = DefaultSqlitePath
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return sqlite.Open(path + sep + fileDSNParams)
}

// UseMemorySqliteDialector returns a dialector for a fresh in-memory database;
// two calls never share data.
func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?%s", uuid.NewString(), memoryDSNParams))
}

func isMemoryDialector(dialector gorm.Dialector) bool {
	sd, ok := dialector.(*sqlite.Dialector)
	if !ok {
		return false
	}
	return strings.Contains(sd.DSN, "mode=memory") || strings.Contains(sd.DSN, ":memory:")
}
