package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

const sessionColumns = `id, title, provider, model, created_at, updated_at`

// GetSessionByID retrieves a session by its ID. A missing session returns
// nil, nil.
func GetSessionByID(ctx context.Context, db sqlscan.Querier, sessionID string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	var s Session
	err := sqlscan.Get(ctx, db, &s, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// LatestSessionID names the most recently updated session wherever a
// session ID is accepted.
const LatestSessionID = "latest"

// FindSession resolves a full ID, a unique ID prefix, or LatestSessionID.
// Prefixes match literally.
func FindSession(ctx context.Context, db sqlscan.Querier, idOrPrefix string) (*Session, error) {
	if s, err := GetSessionByID(ctx, db, idOrPrefix); err != nil || s != nil {
		return s, err
	}
	switch idOrPrefix {
	case "":
		return nil, nil
	case LatestSessionID:
		return GetLatestSession(ctx, db)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE substr(id, 1, length(?)) = ? LIMIT 2`
	var matches []Session
	if err := sqlscan.Select(ctx, db, &matches, query, idOrPrefix, idOrPrefix); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, ErrAmbiguousID
	}
}

// GetLatestSession retrieves the most recently updated session
func GetLatestSession(ctx context.Context, db sqlscan.Querier) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC LIMIT 1`
	var s Session
	err := sqlscan.Get(ctx, db, &s, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListSessions returns sessions, most recently updated first. A limit of
// zero or less returns all of them.
func ListSessions(ctx context.Context, db sqlscan.Querier, limit int) ([]SessionSummary, error) {
	query := `SELECT s.id, s.title, s.provider, s.model, s.created_at, s.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id) AS message_count
		FROM sessions s ORDER BY s.updated_at DESC, s.created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var sessions []SessionSummary
	if err := sqlscan.Select(ctx, db, &sessions, query, args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession creates a new session in the database
func CreateSession(ctx context.Context, db Execer, session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, session.ID, session.Title, session.Provider, session.Model, session.CreatedAt, session.UpdatedAt)
	return err
}

// UpdateSession updates the title, model and timestamp of a session
func UpdateSession(ctx context.Context, db Execer, session *Session) error {
	session.UpdatedAt = time.Now().UTC()

	query := `UPDATE sessions SET title = ?, model = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, session.Title, session.Model, session.UpdatedAt, session.ID)
	return err
}

// DeleteSession removes a session and its messages. It reports whether a
// session was deleted.
func DeleteSession(ctx context.Context, db Execer, sessionID string) (bool, error) {
	if _, err := db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetMessagesBySessionID retrieves all messages for a session in order
func GetMessagesBySessionID(ctx context.Context, db sqlscan.Querier, sessionID string) ([]Message, error) {
	query := `SELECT id, session_id, seq, role, model, content, created_at FROM messages WHERE session_id = ? ORDER BY seq`
	var messages []Message
	err := sqlscan.Select(ctx, db, &messages, query, sessionID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// NextSeq returns the sequence number for the next message of a session.
func NextSeq(ctx context.Context, db sqlscan.Querier, sessionID string) (int, error) {
	var last int
	err := sqlscan.Get(ctx, db, &last, `SELECT COALESCE(MAX(seq), 0) FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// CreateMessage creates a new message in the database
func CreateMessage(ctx context.Context, db Execer, message *Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO messages (id, session_id, seq, role, model, content, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, message.ID, message.SessionID, message.Seq, message.Role, message.Model, message.Content, message.CreatedAt)
	return err
}
