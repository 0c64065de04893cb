package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/maestro-sh/maestro/internal/history"
)

// DB implements history.Sink on SQLite (modernc.org/sqlite driver, CGO-free).
// path must be a filesystem path: an in-memory database does not survive the
// sql pool handing out a second connection.
type DB struct {
	db *sql.DB
}

func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	s := &DB{db: d}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS service_events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			group_id TEXT NOT NULL,
			pid INTEGER NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			detail TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_service_events_name ON service_events(name);`,
		`CREATE INDEX IF NOT EXISTS idx_service_events_occurred ON service_events(occurred_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Send(ctx context.Context, evt history.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_events(type, name, group_id, pid, occurred_at, detail)
		VALUES(?, ?, ?, ?, ?, ?);`,
		string(evt.Type), evt.Name, evt.GroupID, evt.PID, evt.OccurredAt.UTC(), evt.Detail)
	return err
}

func (s *DB) Recent(ctx context.Context, name string, limit int) ([]history.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT type, name, group_id, pid, occurred_at, detail
		FROM service_events`
	args := make([]any, 0, 2)
	if name != "" {
		q += ` WHERE name = ?`
		args = append(args, name)
	}
	q += ` ORDER BY id DESC LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []history.Event
	for rows.Next() {
		var evt history.Event
		var typ string
		var detail sql.NullString
		if err := rows.Scan(&typ, &evt.Name, &evt.GroupID, &evt.PID, &evt.OccurredAt, &detail); err != nil {
			return nil, err
		}
		evt.Type = history.EventType(typ)
		evt.Detail = detail.String
		out = append(out, evt)
	}
	return out, rows.Err()
}
