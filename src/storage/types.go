package storage

import "time"

// Session is one recorded chat. Messages belong to exactly one session.
type Session struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Provider  string    `json:"provider" db:"provider"`
	Model     string    `json:"model" db:"model"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SessionSummary is a Session with its message count, as listed by
// ListSessions.
type SessionSummary struct {
	Session
	MessageCount int `json:"message_count" db:"message_count"`
}

// Message is one archived turn half. Seq orders messages within a session
// starting at 1.
type Message struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Seq       int       `json:"seq" db:"seq"`
	Role      string    `json:"role" db:"role"`
	Model     string    `json:"model,omitempty" db:"model"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
