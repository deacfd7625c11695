// Package schema menyimpan DDL tabel yang sama untuk MariaDB dan SQLite.
package schema

import (
	"context"
	"database/sql"
	"fmt"
)

type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		name_key VARCHAR(120) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		username VARCHAR(80) NOT NULL UNIQUE,
		name VARCHAR(160) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		role VARCHAR(20) NOT NULL,
		professional_type VARCHAR(40) NOT NULL,
		facility_id VARCHAR(36) NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(160) NOT NULL,
		document VARCHAR(20) NULL,
		birth_date VARCHAR(10) NULL,
		contact VARCHAR(120) NULL,
		complaint TEXT NULL,
		classification VARCHAR(10) NOT NULL,
		created_at BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL,
		facility_id VARCHAR(36) NULL
	)`,
}

var indexes = map[Dialect][]string{
	MySQL: {
		`CREATE INDEX idx_patients_status ON patients (status, facility_id, created_at)`,
	},
	SQLite: {
		`CREATE INDEX IF NOT EXISTS idx_patients_status ON patients (status, facility_id, created_at)`,
	},
}

// Statements mengembalikan DDL berurutan untuk dialect yang diminta.
func Statements(d Dialect) []string {
	out := make([]string, 0, len(tables)+len(indexes[d]))
	out = append(out, tables...)
	return append(out, indexes[d]...)
}

// Migrate menjalankan semua DDL. Di MySQL index yang sudah ada (error 1061) diabaikan.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range Statements(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if d == MySQL && isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
