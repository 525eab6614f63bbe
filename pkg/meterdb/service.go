// MeterDB stores the measurements received from the meters and their
// hourly aggregates. Timestamps are unix seconds.
package meterdb

import (
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/pathing"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open opens the database at path and applies pending migrations.
func Open(path string) (*sql.DB, error) {
	if err := pathing.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	// Create DB before migrations
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)
	return db, nil
}
