package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"settlers-lite/apps/server/internal/sqldb"
)

const queryTimeout = 5 * time.Second

// Store keeps match history in SQLite or Postgres. The database handle may be
// shared with other stores and is not closed by Close.
type Store struct {
	db          *sqldb.DB
	recentLimit int
}

func NewStore(ctx context.Context, db *sqldb.DB, recentLimit int) (*Store, error) {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	if err := db.Migrate(ctx, ledgerSchema(db.Dialect)); err != nil {
		return nil, err
	}
	return &Store{db: db, recentLimit: recentLimit}, nil
}

// NewService returns a database-backed ledger, or a MemoryService when db is nil.
func NewService(ctx context.Context, db *sqldb.DB, recentLimit int) (Service, string, error) {
	if db == nil {
		return NewMemoryService(recentLimit), "memory", nil
	}
	store, err := NewStore(ctx, db, recentLimit)
	if err != nil {
		return nil, "", err
	}
	return store, string(db.Dialect), nil
}

func (s *Store) Close() error { return nil }

type summary struct {
	Winners []uint64 `json:"winners,omitempty"`
}

func (s *Store) RecordMatch(ctx context.Context, rec MatchRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("match id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	summaryJSON, err := json.Marshal(summary{Winners: rec.Winners})
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.db.Rebind(`
INSERT INTO matches (
    id, table_id, seed, started_at_ms, ended_at_ms, outcome, rounds, steps, winner, journal, summary_json
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`), rec.ID, rec.TableID, rec.Seed, rec.StartedAt.UTC().UnixMilli(), rec.EndedAt.UTC().UnixMilli(),
		string(rec.Outcome), rec.Rounds, rec.Steps, int64(rec.Winner), rec.Journal, string(summaryJSON))
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return fmt.Errorf("match %s already recorded", rec.ID)
		}
		return err
	}
	for seat, p := range rec.Players {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
INSERT INTO match_players (match_id, seat, player_id, name, color, robot, score)
VALUES (?, ?, ?, ?, ?, ?, ?)
`), rec.ID, seat, int64(p.ID), p.Name, p.Color, p.Robot, p.Score); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, s.db.Rebind(`
DELETE FROM matches
WHERE id NOT IN (
    SELECT id FROM matches ORDER BY ended_at_ms DESC, id DESC LIMIT ?
)
`), s.recentLimit); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]MatchRecord, error) {
	return s.list(ctx, `
SELECT id, table_id, seed, started_at_ms, ended_at_ms, outcome, rounds, steps, winner, journal, summary_json
FROM matches
ORDER BY ended_at_ms DESC, id DESC
LIMIT ?
`, clampLimit(limit))
}

func (s *Store) ListForPlayer(ctx context.Context, playerID uint64, limit int) ([]MatchRecord, error) {
	return s.list(ctx, `
SELECT m.id, m.table_id, m.seed, m.started_at_ms, m.ended_at_ms, m.outcome, m.rounds, m.steps, m.winner, m.journal, m.summary_json
FROM matches AS m
JOIN match_players AS p ON p.match_id = m.id
WHERE p.player_id = ?
ORDER BY m.ended_at_ms DESC, m.id DESC
LIMIT ?
`, int64(playerID), clampLimit(limit))
}

func (s *Store) GetMatch(ctx context.Context, id string) (MatchRecord, error) {
	items, err := s.list(ctx, `
SELECT id, table_id, seed, started_at_ms, ended_at_ms, outcome, rounds, steps, winner, journal, summary_json
FROM matches
WHERE id = ?
`, id)
	if err != nil {
		return MatchRecord{}, err
	}
	if len(items) == 0 {
		return MatchRecord{}, ErrNotFound
	}
	return items[0], nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	var items []MatchRecord
	for rows.Next() {
		var (
			rec                 MatchRecord
			outcome, summaryRaw string
			startedMs, endedMs  int64
			winner              int64
		)
		if err := rows.Scan(&rec.ID, &rec.TableID, &rec.Seed, &startedMs, &endedMs, &outcome,
			&rec.Rounds, &rec.Steps, &winner, &rec.Journal, &summaryRaw); err != nil {
			rows.Close()
			return nil, err
		}
		rec.Outcome = Outcome(outcome)
		rec.StartedAt = time.UnixMilli(startedMs).UTC()
		rec.EndedAt = time.UnixMilli(endedMs).UTC()
		rec.Winner = uint64(winner)
		var sum summary
		if err := json.Unmarshal([]byte(summaryRaw), &sum); err != nil {
			log.Printf("[Ledger] bad summary for match %s: %v", rec.ID, err)
		}
		rec.Winners = sum.Winners
		items = append(items, rec)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// players are loaded after the cursor closes; sqlite runs on a single connection
	for i := range items {
		players, err := s.players(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Players = players
	}
	if items == nil {
		items = []MatchRecord{}
	}
	return items, nil
}

func (s *Store) players(ctx context.Context, matchID string) ([]PlayerResult, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
SELECT player_id, name, color, robot, score
FROM match_players
WHERE match_id = ?
ORDER BY seat ASC
`), matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlayerResult
	for rows.Next() {
		var (
			p  PlayerResult
			id int64
		)
		if err := rows.Scan(&id, &p.Name, &p.Color, &p.Robot, &p.Score); err != nil {
			return nil, err
		}
		p.ID = uint64(id)
		out = append(out, p)
	}
	return out, rows.Err()
}

func ledgerSchema(d sqldb.Dialect) []string {
	boolean := "INTEGER NOT NULL DEFAULT 0"
	if d == sqldb.Postgres {
		boolean = "BOOLEAN NOT NULL DEFAULT FALSE"
	}
	return []string{
		`
CREATE TABLE IF NOT EXISTS matches (
    id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    seed BIGINT NOT NULL,
    started_at_ms BIGINT NOT NULL,
    ended_at_ms BIGINT NOT NULL,
    outcome TEXT NOT NULL,
    rounds INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    winner BIGINT NOT NULL DEFAULT 0,
    journal TEXT NOT NULL DEFAULT '',
    summary_json TEXT NOT NULL DEFAULT '{}'
)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ended ON matches(ended_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS match_players (
    match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    seat INTEGER NOT NULL,
    player_id BIGINT NOT NULL,
    name TEXT NOT NULL,
    color TEXT NOT NULL,
    robot ` + boolean + `,
    score INTEGER NOT NULL,
    PRIMARY KEY (match_id, player_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_player ON match_players(player_id)`,
	}
}
