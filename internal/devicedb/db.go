// Package devicedb is the device database: devices, their classes and
// their properties, kept in sqlite. It answers the topology lookups the
// panels use to find related devices.
package devicedb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/maxlab/magnetpanel/internal/tango"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Device is one row of the devices table.
type Device struct {
	Name  tango.ModelID
	Class string
}

type DB struct {
	db *sql.DB
}

// Open opens the database at path and applies pending migrations.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	// m.Close would close db as well; only the source is released here.
	defer src.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func (d *DB) Close() error { return d.db.Close() }

// WithTx runs fn in a transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *DB) UpsertDevice(ctx context.Context, dev Device) error {
	if err := dev.Name.Validate(); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, `
	INSERT INTO devices(name, class) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET class=excluded.class;
	`, string(dev.Name), dev.Class)
	return err
}

// SetProperty replaces every value of a device property.
func (d *DB) SetProperty(ctx context.Context, device tango.ModelID, name string, values []string) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		return setProperty(ctx, tx, device, name, values)
	})
}

func setProperty(ctx context.Context, tx *sql.Tx, device tango.ModelID, name string, values []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM properties WHERE device = ? AND name = ?`, string(device), name); err != nil {
		return err
	}
	for i, v := range values {
		if _, err := tx.ExecContext(ctx, `INSERT INTO properties(device, name, position, value) VALUES (?, ?, ?, ?)`,
			string(device), name, i, v); err != nil {
			return fmt.Errorf("property %s of %s: %w", name, device, err)
		}
	}
	return nil
}

// GetProperty returns the values of a device property in order. A device
// without the property yields an empty slice; an unknown device yields
// tango.ErrNotFound.
func (d *DB) GetProperty(ctx context.Context, device tango.ModelID, name string) ([]string, error) {
	if _, err := d.ClassOf(ctx, device); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT value FROM properties WHERE device = ? AND name = ? ORDER BY position`, string(device), name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Properties returns every property of a device.
func (d *DB) Properties(ctx context.Context, device tango.ModelID) (map[string][]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, value FROM properties WHERE device = ? ORDER BY name, position`, string(device))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var name, v string
		if err := rows.Scan(&name, &v); err != nil {
			return nil, err
		}
		out[name] = append(out[name], v)
	}
	return out, rows.Err()
}

func (d *DB) ClassOf(ctx context.Context, device tango.ModelID) (string, error) {
	var class string
	err := d.db.QueryRowContext(ctx, `SELECT class FROM devices WHERE name = ?`, string(device)).Scan(&class)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("device %s: %w", device, tango.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return class, nil
}

// Devices lists every device, optionally restricted to one class.
func (d *DB) Devices(ctx context.Context, class string) ([]Device, error) {
	query := `SELECT name, class FROM devices ORDER BY name`
	args := []any{}
	if class != "" {
		query = `SELECT name, class FROM devices WHERE class = ? ORDER BY name`
		args = append(args, class)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Device
	for rows.Next() {
		var dev Device
		var name string
		if err := rows.Scan(&name, &dev.Class); err != nil {
			return nil, err
		}
		dev.Name = tango.ModelID(name)
		out = append(out, dev)
	}
	return out, rows.Err()
}

// Names returns every device name, for suggestions.
func (d *DB) Names(ctx context.Context) ([]string, error) {
	devs, err := d.Devices(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]string, len(devs))
	for i, dev := range devs {
		out[i] = string(dev.Name)
	}
	return out, nil
}

func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&n)
	return n, err
}
