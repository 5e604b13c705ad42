package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the activity log.
const (
	ActionLogin      = "login"
	ActionLogout     = "logout"
	ActionAttendance = "attendance"
)

// Event is the queue payload describing one user action. CourseID is set on
// attendance events so the worker knows which stats cache to drop.
type Event struct {
	UserID   string    `json:"userId"`
	UserType string    `json:"userType"`
	FullName string    `json:"fullName"`
	Action   string    `json:"action"`
	CourseID string    `json:"courseId,omitempty"`
	At       time.Time `json:"at"`
}

// Marshal encodes the event for the queue body.
func (e Event) Marshal() []byte {
	data, _ := json.Marshal(e)
	return data
}

// Unmarshal decodes a queue body.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// LogEntry is a persisted activity record.
type LogEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	UserType   string    `json:"userType"`
	FullName   string    `json:"fullName"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Repository persists activity logs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes one log row.
func (r *Repository) Insert(ctx context.Context, e Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, user_type, full_name, action, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, uuid.NewString(), e.UserID, e.UserType, e.FullName, e.Action, at)
	return err
}

// List returns the newest log entries.
func (r *Repository) List(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, user_type, full_name, action, occurred_at
		FROM activity_logs ORDER BY occurred_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserType, &e.FullName, &e.Action, &e.OccurredAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
