package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bematende/bematende-backend/config"
	"github.com/go-sql-driver/mysql"
)

// DSN menyusun connection string dari konfigurasi.
// Format: username:password@tcp(host:port)/dbname?parseTime=true&loc=America%2FSao_Paulo
func DSN(cfg *config.Config) string {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.UTC
	}
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = loc
	return mc.FormatDSN()
}

// Connect membuka koneksi ke MariaDB/MySQL dan memastikan server bisa di-ping.
// Semua kredensial diambil dari .env melalui config.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("gagal membuka koneksi ke database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("gagal melakukan ping ke database: %w", err)
	}
	return db, nil
}
