package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Config struct {
	// Name identifies the in-memory database. Connections opened with the
	// same name share data for as long as one of them stays open.
	Name string
}

// DSN builds the modernc.org/sqlite connection string. The database only
// ever lives in memory; nothing is written to disk.
func DSN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "visitrack"
	}
	return fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", DSN(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// A shared-cache memory database disappears when its last connection
	// closes, so the single connection is never recycled.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}
