// Package store persists named games in a SQLite database. Games are kept
// per ruleset family, see rules.Ruleset.Key, and each family has a current
// game.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/domino14/rummikub/game"
	"github.com/domino14/rummikub/rules"
	"github.com/domino14/rummikub/tilemapping"
)

const DBName = "games.db"

var (
	ErrNotFound = errors.New("game not found")
	ErrExists   = errors.New("a game with that name already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	ruleset    TEXT NOT NULL,
	name       TEXT NOT NULL,
	rack       TEXT NOT NULL DEFAULT '',
	tbl        TEXT NOT NULL DEFAULT '',
	initial    INTEGER NOT NULL DEFAULT 1,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (ruleset, name)
);
CREATE TABLE IF NOT EXISTS current_game (
	ruleset TEXT PRIMARY KEY,
	name    TEXT NOT NULL
);`

type Store struct {
	db *sql.DB
}

// Open opens or creates the database in dir.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, DBName)
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("opened-store")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// List returns the names of the games of the ruleset family, sorted.
func (s *Store) List(ctx context.Context, rs *rules.Ruleset) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM games WHERE ruleset = ? ORDER BY name`, rs.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) Load(ctx context.Context, rs *rules.Ruleset, name string) (*game.State, error) {
	var rack, table string
	var initial bool
	err := s.db.QueryRowContext(ctx,
		`SELECT rack, tbl, initial FROM games WHERE ruleset = ? AND name = ?`,
		rs.Key(), name).Scan(&rack, &table, &initial)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	rackTiles, err := tilemapping.ParseTiles(rack)
	if err != nil {
		return nil, fmt.Errorf("game %s rack: %w", name, err)
	}
	tableTiles, err := tilemapping.ParseTiles(table)
	if err != nil {
		return nil, fmt.Errorf("game %s table: %w", name, err)
	}
	return game.Restore(rs, name, rackTiles, tableTiles, initial)
}

// Save stores g, replacing a game with the same name.
func (s *Store) Save(ctx context.Context, g *game.State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (ruleset, name, rack, tbl, initial, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (ruleset, name) DO UPDATE SET
			rack = excluded.rack,
			tbl = excluded.tbl,
			initial = excluded.initial,
			updated_at = excluded.updated_at`,
		g.Ruleset().Key(), g.Name(), g.Rack().String(), g.Table().String(), g.Initial())
	return err
}

func (s *Store) Delete(ctx context.Context, rs *rules.Ruleset, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM games WHERE ruleset = ? AND name = ?`, rs.Key(), name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM current_game WHERE ruleset = ? AND name = ?`, rs.Key(), name)
	return err
}

// Rename renames a game, keeping it current if it was.
func (s *Store) Rename(ctx context.Context, rs *rules.Ruleset, from, to string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM games WHERE ruleset = ? AND name = ?`, rs.Key(), to).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrExists, to)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE games SET name = ? WHERE ruleset = ? AND name = ?`, to, rs.Key(), from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE current_game SET name = ? WHERE ruleset = ? AND name = ?`, to, rs.Key(), from); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SetCurrent(ctx context.Context, rs *rules.Ruleset, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO current_game (ruleset, name) VALUES (?, ?)
		ON CONFLICT (ruleset) DO UPDATE SET name = excluded.name`,
		rs.Key(), name)
	return err
}

// Current loads the current game of the ruleset family. Without one, the
// first stored game becomes current, and a family without games gets a
// fresh default game.
func (s *Store) Current(ctx context.Context, rs *rules.Ruleset) (*game.State, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM current_game WHERE ruleset = ?`, rs.Key()).Scan(&name)
	switch {
	case err == nil:
		g, err := s.Load(ctx, rs, name)
		if !errors.Is(err, ErrNotFound) {
			return g, err
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	names, err := s.List(ctx, rs)
	if err != nil {
		return nil, err
	}
	var g *game.State
	if len(names) > 0 {
		g, err = s.Load(ctx, rs, names[0])
	} else {
		g = game.New(rs, game.DefaultName)
		err = s.Save(ctx, g)
	}
	if err != nil {
		return nil, err
	}
	return g, s.SetCurrent(ctx, rs, g.Name())
}
