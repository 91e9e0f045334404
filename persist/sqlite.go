//go:build !js

package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS entries (
	origin TEXT NOT NULL,
	path   TEXT NOT NULL,
	data   BLOB,
	PRIMARY KEY (origin, path)
)`

// SQLiteDurable is a Durable backed by a SQLite database. Several origins
// can share one database file; each only sees its own entries.
type SQLiteDurable struct {
	db     *sql.DB
	origin string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path, origin string) (*SQLiteDurable, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteDurable{db: db, origin: origin}, nil
}

func (d *SQLiteDurable) Load(ctx context.Context) (Snapshot, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT path, data FROM entries WHERE origin = ?`, d.origin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := make(Snapshot)
	for rows.Next() {
		var name string
		var data []byte
		if err := rows.Scan(&name, &data); err != nil {
			return nil, err
		}
		snap[name] = data
	}
	return snap, rows.Err()
}

// Save replaces the origin's entries with snap in one transaction.
func (d *SQLiteDurable) Save(ctx context.Context, snap Snapshot) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE origin = ?`, d.origin); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (origin, path, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for name, data := range snap {
		if _, err := stmt.ExecContext(ctx, d.origin, name, data); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (d *SQLiteDurable) Close() error {
	return d.db.Close()
}

func openDefaultDurable(origin, dataDir string) (Durable, error) {
	return OpenSQLite(dataDir+".db", origin)
}
