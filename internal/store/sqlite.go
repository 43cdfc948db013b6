package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"

	"github.com/avelesov/neyra/internal/model/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	user_id        TEXT PRIMARY KEY,
	active_model   TEXT NOT NULL,
	active_persona TEXT NOT NULL,
	turn_count     INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL,
	last_active_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exchanges (
	user_id      TEXT NOT NULL,
	turn_index   INTEGER NOT NULL,
	id           TEXT NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL,
	model_used   TEXT NOT NULL,
	persona_used TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (user_id, turn_index)
);
`

// SQLite implements Store on a local SQLite file via the pure-Go driver.
type SQLite struct {
	db *sql.DB
	// retention caps stored exchanges per user; 0 keeps everything.
	retention int
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. retention limits stored exchanges per user, 0 for unlimited.
func OpenSQLite(path string, retention int) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// Serialized access keeps the single-writer driver happy; per-user
	// serialization above this layer keeps contention negligible.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database ping")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	return &SQLite{db: db, retention: retention}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Append implements Store. The next turn index is allocated and the row
// committed in one transaction, so an acknowledged exchange is always
// recoverable and indexes are strictly increasing with no gaps on failure.
func (s *SQLite) Append(ctx context.Context, ex chat.Exchange) (chat.Exchange, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Exchange{}, unavailable("begin append", err)
	}
	defer tx.Rollback()

	var next int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(turn_index)+1, 0) FROM exchanges WHERE user_id = ?`, ex.UserID)
	if err := row.Scan(&next); err != nil {
		return chat.Exchange{}, unavailable("allocate turn index", err)
	}

	ex.TurnIndex = next
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO exchanges (user_id, turn_index, id, role, content, model_used, persona_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.UserID, ex.TurnIndex, ex.ID, ex.Role, ex.Content, ex.ModelUsed, ex.PersonaUsed,
		ex.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return chat.Exchange{}, unavailable("insert exchange", err)
	}

	if s.retention > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM exchanges WHERE user_id = ? AND turn_index <= ? - ?`,
			ex.UserID, ex.TurnIndex, s.retention)
		if err != nil {
			return chat.Exchange{}, unavailable("trim retention", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return chat.Exchange{}, unavailable("commit append", err)
	}
	return ex, nil
}

// Window implements Store.
func (s *SQLite) Window(ctx context.Context, userID string, limit int) ([]chat.Exchange, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, turn_index, id, role, content, model_used, persona_used, created_at
		 FROM exchanges WHERE user_id = ?
		 ORDER BY turn_index DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, unavailable("query window", err)
	}
	defer rows.Close()

	exchanges, err := scanExchanges(rows)
	if err != nil {
		return nil, err
	}

	// Newest-first from the query; callers want turn order.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}

// All implements Store.
func (s *SQLite) All(ctx context.Context, userID string) ([]chat.Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, turn_index, id, role, content, model_used, persona_used, created_at
		 FROM exchanges WHERE user_id = ?
		 ORDER BY turn_index ASC`, userID)
	if err != nil {
		return nil, unavailable("query all", err)
	}
	defer rows.Close()

	return scanExchanges(rows)
}

// Clear implements Store.
func (s *SQLite) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM exchanges WHERE user_id = ?`, userID); err != nil {
		return unavailable("clear exchanges", err)
	}
	return nil
}

// Session implements Store.
func (s *SQLite) Session(ctx context.Context, userID string) (chat.Session, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, active_model, active_persona, turn_count, created_at, last_active_at
		 FROM sessions WHERE user_id = ?`, userID)

	var sess chat.Session
	var createdAt, lastActiveAt string
	err := row.Scan(&sess.UserID, &sess.ActiveModel, &sess.ActivePersona,
		&sess.TurnCount, &createdAt, &lastActiveAt)
	if err == sql.ErrNoRows {
		return chat.Session{}, false, nil
	}
	if err != nil {
		return chat.Session{}, false, unavailable("query session", err)
	}

	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return chat.Session{}, false, unavailable("parse created_at", err)
	}
	if sess.LastActiveAt, err = time.Parse(time.RFC3339Nano, lastActiveAt); err != nil {
		return chat.Session{}, false, unavailable("parse last_active_at", err)
	}
	return sess, true, nil
}

// SaveSession implements Store.
func (s *SQLite) SaveSession(ctx context.Context, sess chat.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, active_model, active_persona, turn_count, created_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			active_model = excluded.active_model,
			active_persona = excluded.active_persona,
			turn_count = excluded.turn_count,
			last_active_at = excluded.last_active_at`,
		sess.UserID, sess.ActiveModel, sess.ActivePersona, sess.TurnCount,
		sess.CreatedAt.Format(time.RFC3339Nano), sess.LastActiveAt.Format(time.RFC3339Nano))
	if err != nil {
		return unavailable("save session", err)
	}
	return nil
}

func scanExchanges(rows *sql.Rows) ([]chat.Exchange, error) {
	var exchanges []chat.Exchange
	for rows.Next() {
		var ex chat.Exchange
		var createdAt string
		if err := rows.Scan(&ex.UserID, &ex.TurnIndex, &ex.ID, &ex.Role, &ex.Content,
			&ex.ModelUsed, &ex.PersonaUsed, &createdAt); err != nil {
			return nil, unavailable("scan exchange", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, unavailable("parse exchange timestamp", err)
		}
		ex.CreatedAt = ts
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate exchanges", err)
	}
	return exchanges, nil
}
