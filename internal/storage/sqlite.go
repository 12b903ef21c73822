// Package storage keeps a SQLite history of concluded battles.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle"
	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// ErrNotFound is returned when a history record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// Store manages the SQLite connection for battle history.
type Store struct {
	db *sql.DB
}

// Record is one stored battle outcome.
type Record struct {
	ID        string
	BattleID  string
	Scenario  string
	Seed      int64
	Winner    core.Faction // empty when nobody won
	Stalemate bool
	Reason    string
	Ticks     int
	Duration  time.Duration
	Factions  []FactionResult // in faction order
	CreatedAt time.Time
}

// FactionResult is one side's tally in a stored battle.
type FactionResult struct {
	Faction    core.Faction
	Casualties int
	Survivors  int
}

// FactionSummary aggregates every stored battle a faction fought in.
type FactionSummary struct {
	Faction    core.Faction
	Battles    int
	Wins       int
	Losses     int
	Draws      int
	Casualties int
}

// Open creates or opens a SQLite database at the given path, creating
// parent directories and the schema as needed.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS battles (
			id TEXT PRIMARY KEY,
			battle_id TEXT NOT NULL,
			scenario TEXT NOT NULL,
			seed INTEGER NOT NULL,
			winner TEXT NOT NULL DEFAULT '',
			stalemate INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL,
			ticks INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_battles_scenario ON battles(scenario);

		CREATE TABLE IF NOT EXISTS battle_factions (
			record_id TEXT NOT NULL REFERENCES battles(id) ON DELETE CASCADE,
			faction TEXT NOT NULL,
			casualties INTEGER NOT NULL DEFAULT 0,
			survivors INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (record_id, faction)
		);
		CREATE INDEX IF NOT EXISTS idx_battle_factions_faction ON battle_factions(faction);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveOutcome records a concluded battle under a fresh record id.
func (s *Store) SaveOutcome(ctx context.Context, scenario string, o *battle.Outcome) (Record, error) {
	if o == nil {
		return Record{}, errors.New("storage: cannot save a nil outcome")
	}
	rec := recordFromOutcome(scenario, o)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO battles
		 (id, battle_id, scenario, seed, winner, stalemate, reason, ticks, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BattleID, rec.Scenario, rec.Seed, string(rec.Winner),
		rec.Stalemate, rec.Reason, rec.Ticks, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("storage: cannot save battle: %w", err)
	}

	for _, f := range rec.Factions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO battle_factions (record_id, faction, casualties, survivors)
			 VALUES (?, ?, ?, ?)`,
			rec.ID, string(f.Faction), f.Casualties, f.Survivors,
		)
		if err != nil {
			return Record{}, fmt.Errorf("storage: cannot save faction %s: %w", f.Faction, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("storage: cannot commit battle: %w", err)
	}
	return rec, nil
}

func recordFromOutcome(scenario string, o *battle.Outcome) Record {
	rec := Record{
		ID:        uuid.NewString(),
		BattleID:  o.BattleID,
		Scenario:  scenario,
		Seed:      o.Seed,
		Winner:    o.Winner,
		Stalemate: o.Stalemate,
		Reason:    o.Reason.String(),
		Ticks:     o.Ticks,
		Duration:  o.Duration,
	}

	survivors := make(map[core.Faction]int)
	for _, sv := range o.Survivors {
		survivors[sv.Faction]++
	}
	for f, n := range o.Casualties {
		rec.Factions = append(rec.Factions, FactionResult{Faction: f, Casualties: n, Survivors: survivors[f]})
	}
	sort.Slice(rec.Factions, func(i, j int) bool { return rec.Factions[i].Faction < rec.Factions[j].Faction })
	return rec
}

const recordColumns = `id, battle_id, scenario, seed, winner, stalemate, reason, ticks, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec        Record
		winner     string
		durationMS int64
		createdAt  any
	)
	err := row.Scan(&rec.ID, &rec.BattleID, &rec.Scenario, &rec.Seed, &winner,
		&rec.Stalemate, &rec.Reason, &rec.Ticks, &durationMS, &createdAt)
	if err != nil {
		return Record{}, err
	}
	rec.Winner = core.Faction(winner)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// parseTime handles both driver-decoded and raw-string timestamps.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM battles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("storage: cannot query battle: %w", err)
	}
	if rec.Factions, err = s.factions(ctx, rec.ID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Recent returns the newest records first. An empty scenario matches all.
func (s *Store) Recent(ctx context.Context, scenario string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`
		 FROM battles
		 WHERE ? = '' OR scenario = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		scenario, scenario, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query battles: %w", err)
	}

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	// The single pooled connection must be free before the faction queries.
	rows.Close()

	for i := range records {
		if records[i].Factions, err = s.factions(ctx, records[i].ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) factions(ctx context.Context, recordID string) ([]FactionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT faction, casualties, survivors
		 FROM battle_factions
		 WHERE record_id = ?
		 ORDER BY faction`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query factions: %w", err)
	}
	defer rows.Close()

	var out []FactionResult
	for rows.Next() {
		var f FactionResult
		var faction string
		if err := rows.Scan(&faction, &f.Casualties, &f.Survivors); err != nil {
			return nil, fmt.Errorf("storage: cannot scan faction row: %w", err)
		}
		f.Faction = core.Faction(faction)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

// Summary tallies wins, losses and draws per faction over every stored
// battle. A battle nobody won counts as a draw for each side in it.
func (s *Store) Summary(ctx context.Context) ([]FactionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.faction,
		        COUNT(*),
		        COALESCE(SUM(CASE WHEN b.winner = f.faction THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN b.winner <> '' AND b.winner <> f.faction THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN b.winner = '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(f.casualties), 0)
		 FROM battle_factions f
		 JOIN battles b ON b.id = f.record_id
		 GROUP BY f.faction
		 ORDER BY f.faction`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot summarise factions: %w", err)
	}
	defer rows.Close()

	var out []FactionSummary
	for rows.Next() {
		var fs FactionSummary
		var faction string
		if err := rows.Scan(&faction, &fs.Battles, &fs.Wins, &fs.Losses, &fs.Draws, &fs.Casualties); err != nil {
			return nil, fmt.Errorf("storage: cannot scan summary row: %w", err)
		}
		fs.Faction = core.Faction(faction)
		out = append(out, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

// Clear deletes every stored battle.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM battle_factions`); err != nil {
		return fmt.Errorf("storage: cannot clear factions: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM battles`); err != nil {
		return fmt.Errorf("storage: cannot clear battles: %w", err)
	}
	return nil
}
