package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// register the postgres and sqlite drivers with the database/sql package.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type Storage struct {
	Connection *sql.DB
	Driver     string
}

func New(driver, dsn string) (*Storage, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		conn.SetMaxOpenConns(1)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn, Driver: driver}, nil
}

// Init creates the tables when they do not exist yet.
func (that *Storage) Init(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if that.Driver == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			rank_points INTEGER NOT NULL DEFAULT 0,
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			updated_at TIMESTAMP NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS match_history (
			id %s,
			room_id TEXT NOT NULL,
			player1_id TEXT NOT NULL,
			player2_id TEXT NOT NULL,
			winner_id TEXT,
			game_type TEXT NOT NULL,
			mode TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL,
			moves TEXT NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`, serial),
		`CREATE INDEX IF NOT EXISTS idx_match_history_player1 ON match_history (player1_id)`,
		`CREATE INDEX IF NOT EXISTS idx_match_history_player2 ON match_history (player2_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS level_history (
			id %s,
			player_id TEXT NOT NULL,
			old_level INTEGER NOT NULL,
			new_level INTEGER NOT NULL,
			xp INTEGER NOT NULL,
			changed_at TIMESTAMP NOT NULL
		)`, serial),
	}

	for _, query := range queries {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *Storage) Close() error {
	return that.Connection.Close()
}
