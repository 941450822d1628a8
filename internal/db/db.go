// internal/db/db.go
package db

import (
    "database/sql"
    _ "embed"
    "errors"
    "fmt"
    "log"

    "github.com/lib/pq"
    "github.com/mattn/go-sqlite3"

    "github.com/unclebandit/crowdfund-backend/internal/config"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

var DB *sql.DB

// Init opens the configured database, applies the schema and stores the handle in DB.
func Init(cfg *config.Config) {
    log.Println("DB_DRIVER:", cfg.DBDriver)
    if cfg.DBDriver == config.DriverPostgres {
        log.Println("DB_USER:", cfg.DBUser)
        log.Println("DB_NAME:", cfg.DBName)
        log.Println("DB_HOST:", cfg.DBHost)
    }

    var err error
    DB, err = Open(cfg.DBDriver, cfg.DSN())
    if err != nil {
        log.Fatalf("failed to connect to DB: %v", err)
    }

    if err = Migrate(DB, cfg.DBDriver); err != nil {
        log.Fatalf("failed to apply schema: %v", err)
    }

    log.Println("✅ Connected to database")
}

// Open connects and pings. SQLite handles are limited to one connection so that
// ":memory:" databases are shared and writers never see SQLITE_BUSY.
func Open(driver, dsn string) (*sql.DB, error) {
    conn, err := sql.Open(driver, dsn)
    if err != nil {
        return nil, fmt.Errorf("failed to open database: %w", err)
    }

    if driver == config.DriverSQLite {
        conn.SetMaxOpenConns(1)
        conn.SetMaxIdleConns(1)
        if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
            conn.Close()
            return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
        }
    }

    if err := conn.Ping(); err != nil {
        conn.Close()
        return nil, fmt.Errorf("failed to ping database: %w", err)
    }
    return conn, nil
}

// SchemaSQL returns the authoritative schema for a driver.
func SchemaSQL(driver string) string {
    if driver == config.DriverSQLite {
        return sqliteSchema
    }
    return postgresSchema
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(conn *sql.DB, driver string) error {
    if _, err := conn.Exec(SchemaSQL(driver)); err != nil {
        return fmt.Errorf("failed to execute schema: %w", err)
    }
    return nil
}

// IsUniqueViolation reports whether err is a unique constraint failure on either driver.
func IsUniqueViolation(err error) bool {
    var pqErr *pq.Error
    if errors.As(err, &pqErr) {
        return pqErr.Code == "23505"
    }
    var liteErr sqlite3.Error
    if errors.As(err, &liteErr) {
        return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
            liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
    }
    return false
}
