package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"voice-relay/internal/domain"
)

// SQLiteStore keeps windows in a SQLite database so local conversations
// survive restarts.
type SQLiteStore struct {
	db       *sql.DB
	maxTurns int
	ttl      time.Duration
	now      func() time.Time
}

func NewSQLiteStore(dsn string, maxTurns int, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" opens its own empty database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if maxTurns <= 0 {
		maxTurns = domain.DefaultHistoryCap
	}

	store := &SQLiteStore{db: db, maxTurns: maxTurns, ttl: ttl, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Turns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var (
		turns  []domain.Turn
		latest int64
	)
	for rows.Next() {
		var (
			turn    domain.Turn
			role    string
			created int64
		)
		if err := rows.Scan(&role, &turn.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning history turn: %w", err)
		}
		turn.Role = domain.Role(role)
		turns = append(turns, turn)
		if created > latest {
			latest = created
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	if s.ttl > 0 && len(turns) > 0 && s.now().Sub(time.Unix(0, latest)) > s.ttl {
		if err := s.Clear(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return turns, nil
}

// Append inserts the turns and evicts the oldest rows beyond the cap inside
// one transaction.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning history transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	if s.ttl > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM turns WHERE session_id = ? AND (
				SELECT MAX(created_at) FROM turns WHERE session_id = ?
			) < ?`,
			sessionID, sessionID, now-int64(s.ttl),
		); err != nil {
			return fmt.Errorf("expiring history: %w", err)
		}
	}

	for _, turn := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			sessionID, string(turn.Role), turn.Content, now,
		); err != nil {
			return fmt.Errorf("inserting history turn: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE session_id = ? AND id NOT IN (
			SELECT id FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`,
		sessionID, sessionID, s.maxTurns,
	); err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
