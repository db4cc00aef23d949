/* Copyright 2025 OliWorks Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package database provides connection to the local SQLite database
// and the key-value storage primitives built on it.
package database

import (
	"database/sql"
	"encoding/json"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DB is a database handle. It wraps either a connection or a transaction
// so that query helpers can run inside and outside a transaction alike.
type DB struct {
	conn *sql.DB
	tx   *sql.Tx
}

// Open opens a connection to the database at the given path
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening the database")
	}

	return &DB{conn: conn}, nil
}

// Close closes the underlying connection. It is a no-op on a transaction handle.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}

	return d.conn.Close()
}

// Begin starts a transaction and returns a handle scoped to it
func (d *DB) Begin() (*DB, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "beginning a transaction")
	}

	return &DB{conn: d.conn, tx: tx}, nil
}

// Commit commits the transaction
func (d *DB) Commit() error {
	if d.tx == nil {
		return errors.New("not in a transaction")
	}

	return d.tx.Commit()
}

// Rollback aborts the transaction
func (d *DB) Rollback() error {
	if d.tx == nil {
		return errors.New("not in a transaction")
	}

	return d.tx.Rollback()
}

// Exec executes the given query
func (d *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	if d.tx != nil {
		return d.tx.Exec(query, args...)
	}

	return d.conn.Exec(query, args...)
}

// Query runs the given query and returns the resulting rows
func (d *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	if d.tx != nil {
		return d.tx.Query(query, args...)
	}

	return d.conn.Query(query, args...)
}

// QueryRow runs the given query and returns at most one row
func (d *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	if d.tx != nil {
		return d.tx.QueryRow(query, args...)
	}

	return d.conn.QueryRow(query, args...)
}

// InitSchema creates the tables if they are missing
func InitSchema(db *DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections
		(
			key text PRIMARY KEY,
			value text NOT NULL
		)`)
	if err != nil {
		return errors.Wrap(err, "creating collections table")
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS system
		(
			key text NOT NULL,
			value text NOT NULL
		)`)
	if err != nil {
		return errors.Wrap(err, "creating system table")
	}

	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_system_key ON system(key)`)
	if err != nil {
		return errors.Wrap(err, "creating indices")
	}

	return nil
}

// GetJSON reads the collection stored under the given key and unmarshals it
// into dest. A missing key leaves dest untouched.
func GetJSON(db *DB, key string, dest interface{}) error {
	var raw string

	err := db.QueryRow("SELECT value FROM collections WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "finding collection %s", key)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return errors.Wrapf(err, "unmarshalling collection %s", key)
	}

	return nil
}

// SetJSON marshals the given value and stores it under the given key,
// replacing any previous value.
func SetJSON(db *DB, key string, val interface{}) error {
	b, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "marshalling collection %s", key)
	}

	_, err = db.Exec(`INSERT INTO collections (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(b))
	if err != nil {
		return errors.Wrapf(err, "upserting collection %s", key)
	}

	return nil
}

// GetSystem scans the system configuration value with the given key into dest
func GetSystem(db *DB, key string, dest interface{}) error {
	err := db.QueryRow("SELECT value FROM system WHERE key = ?", key).Scan(dest)
	if err != nil {
		return errors.Wrapf(err, "finding system config %s", key)
	}

	return nil
}

// UpsertSystem sets the system configuration value with the given key
func UpsertSystem(db *DB, key string, val interface{}) error {
	_, err := db.Exec(`INSERT INTO system (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, val)
	if err != nil {
		return errors.Wrapf(err, "upserting system config %s", key)
	}

	return nil
}

// UpdateSystem updates the system configuration value with the given key.
// The key must exist.
func UpdateSystem(db *DB, key string, val interface{}) error {
	_, err := db.Exec("UPDATE system SET value = ? WHERE key = ?", val, key)
	if err != nil {
		return errors.Wrapf(err, "updating system config %s", key)
	}

	return nil
}

// DeleteSystem removes the system configuration value with the given key
func DeleteSystem(db *DB, key string) error {
	_, err := db.Exec("DELETE FROM system WHERE key = ?", key)
	if err != nil {
		return errors.Wrapf(err, "deleting system config %s", key)
	}

	return nil
}
