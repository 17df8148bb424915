package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/elee1766/agent007/src/aisdk"
)

const maxTitleRunes = 60

// Recorder archives completed turns of a single chat into one session. The
// session row is only written once the first turn is recorded.
type Recorder struct {
	db     *DB
	logger *slog.Logger

	provider string
	model    string
	session  *Session
}

// NewRecorder returns a recorder for a fresh session.
func NewRecorder(db *DB, provider, model string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		db:       db,
		logger:   logger.With("component", "recorder"),
		provider: provider,
		model:    model,
	}
}

// Resume attaches the recorder to an existing session and returns its
// messages so the chat can continue where it stopped.
func (r *Recorder) Resume(ctx context.Context, idOrPrefix string) ([]aisdk.Message, error) {
	session, err := FindSession(ctx, r.db.DB(), idOrPrefix)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, idOrPrefix)
	}

	rows, err := GetMessagesBySessionID(ctx, r.db.DB(), session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	r.session = session
	r.logger.Info("resumed session", "session_id", session.ID, "messages", len(rows))
	return ToConversation(rows), nil
}

// Session returns the session being recorded, or nil before the first turn.
func (r *Recorder) Session() *Session {
	return r.session
}

// RecordTurn stores a user message and its reply atomically.
func (r *Recorder) RecordTurn(ctx context.Context, user, reply aisdk.Message) error {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq := 1
	session := r.session
	if session == nil {
		session = &Session{Provider: r.provider, Model: r.model, Title: titleFrom(user.Content)}
		if err := CreateSession(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	} else {
		updated := *session
		updated.Model = r.model
		if err := UpdateSession(ctx, tx, &updated); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		session = &updated
		if seq, err = NextSeq(ctx, tx, session.ID); err != nil {
			return fmt.Errorf("failed to number messages: %w", err)
		}
	}

	for _, m := range []aisdk.Message{user, reply} {
		row := &Message{SessionID: session.ID, Seq: seq, Role: m.Role.String(), Content: m.Content}
		if m.Role == aisdk.RoleAssistant {
			row.Model = r.model
		}
		if err := CreateMessage(ctx, tx, row); err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	if r.session == nil {
		r.logger.Info("started session", "session_id", session.ID)
	}
	r.session = session
	return nil
}

// ToConversation converts archived rows to messages, skipping rows with an
// unknown role.
func ToConversation(rows []Message) []aisdk.Message {
	out := make([]aisdk.Message, 0, len(rows))
	for _, row := range rows {
		role, err := aisdk.ParseRole(row.Role)
		if err != nil || role == aisdk.RoleSystem {
			continue
		}
		out = append(out, aisdk.Message{Role: role, Content: row.Content})
	}
	return out
}

func titleFrom(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleRunes-3]) + "..."
}
