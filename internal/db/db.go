package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"portlink-backend/config"
	"portlink-backend/internal/model"
)

// Models lists every table managed by this service, in migration order.
func Models() []any {
	return []any{
		&model.Project{},
		&model.PortType{},
		&model.DeviceTemplate{},
		&model.PortTemplateRule{},
		&model.Device{},
		&model.Port{},
		&model.Link{},
		&model.AttributeDef{},
		&model.AttributeOption{},
		&model.DeviceAttrValue{},
		&model.PortAttrValue{},
	}
}

// Open connects to the configured database without migrating it.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
	case "sqlite-pure":
		// cgo-free driver registered by modernc.org/sqlite
		dialector = &sqlite.Dialector{DriverName: "sqlite", DSN: cfg.DSN}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		if err := applyPostgresDDL(db); err != nil {
			return err
		}
	}
	return nil
}

// applyPostgresDDL adds constraints that gorm tags cannot express.
func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// 1) a link never joins a port to itself
		"ALTER TABLE links DROP CONSTRAINT IF EXISTS links_distinct_ports;",
		"ALTER TABLE links ADD CONSTRAINT links_distinct_ports CHECK (port_low_id < port_high_id);",

		// 2) capacity is always positive
		"ALTER TABLE ports DROP CONSTRAINT IF EXISTS ports_max_links_positive;",
		"ALTER TABLE ports ADD CONSTRAINT ports_max_links_positive CHECK (max_links >= 1);",

		// 3) occupancy lookups by either end
		"CREATE INDEX IF NOT EXISTS idx_links_a_status ON links (a_port_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_links_b_status ON links (b_port_id, status);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
