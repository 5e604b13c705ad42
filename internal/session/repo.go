package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence surface the service depends on. Insert and
// InsertEntry report whether a row was actually created so the service can
// tell "already exists" apart from success without a read-modify-write race.
type Repository interface {
	Insert(ctx context.Context, s Session) (bool, error)
	Get(ctx context.Context, id string) (Session, error)
	ByCourseDate(ctx context.Context, courseID string, date time.Time) (Session, error)
	LatestByCourse(ctx context.Context, courseID string) (Session, error)
	UpdateCode(ctx context.Context, id, code string, generatedAt, expiresAt time.Time) error
	InsertEntry(ctx context.Context, sessionID string, e Entry) (bool, error)
	Entries(ctx context.Context, sessionID string) ([]Entry, error)
	ListByCourse(ctx context.Context, courseID string) ([]Session, error)
	StudentHistory(ctx context.Context, studentID string) ([]HistoryEntry, error)
	CourseStats(ctx context.Context, courseID string) (CourseStats, error)
}

// PGRepository persists sessions and attendance entries in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const sessColumns = `id, course_id, session_date, day, start_time, end_time, room, code, code_generated_at, code_expires_at, created_at`

func scanSession(row interface{ Scan(...any) error }) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.CourseID, &s.Date, &s.Day, &s.StartTime, &s.EndTime, &s.Room,
		&s.Code, &s.CodeGeneratedAt, &s.CodeExpiresAt, &s.CreatedAt)
	return s, err
}

// Insert writes a session unless one already exists for the same course and
// calendar date. The unique index on (course_id, session_date) makes this
// safe under concurrent first-of-the-day requests.
func (r *PGRepository) Insert(ctx context.Context, s Session) (bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, course_id, session_date, day, start_time, end_time, room, code, code_generated_at, code_expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (course_id, session_date) DO NOTHING
	`, s.ID, s.CourseID, NormalizeDate(s.Date), s.Day, s.StartTime, s.EndTime, s.Room,
		s.Code, s.CodeGeneratedAt, s.CodeExpiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Get returns a session by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

// ByCourseDate returns the session for a course on a calendar date.
func (r *PGRepository) ByCourseDate(ctx context.Context, courseID string, date time.Time) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessColumns+` FROM sessions WHERE course_id = $1 AND session_date = $2
	`, courseID, NormalizeDate(date))
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

// LatestByCourse returns the most recent session for a course.
func (r *PGRepository) LatestByCourse(ctx context.Context, courseID string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessColumns+` FROM sessions WHERE course_id = $1 ORDER BY session_date DESC LIMIT 1
	`, courseID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return s, err
}

// UpdateCode swaps the session's attendance code and expiry window.
func (r *PGRepository) UpdateCode(ctx context.Context, id, code string, generatedAt, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET code = $2, code_generated_at = $3, code_expires_at = $4 WHERE id = $1
	`, id, code, generatedAt, expiresAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// InsertEntry appends an attendance entry. Returns false when the student
// already has one; the primary key on (session_id, student_id) keeps the
// duplicate check linearizable with the append.
func (r *PGRepository) InsertEntry(ctx context.Context, sessionID string, e Entry) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_entries (session_id, student_id, student_name, status, recorded_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (session_id, student_id) DO NOTHING
	`, sessionID, e.StudentID, e.StudentName, e.Status, e.RecordedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Entries lists a session's roster in recorded order.
func (r *PGRepository) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, student_name, status, recorded_at
		FROM attendance_entries WHERE session_id = $1 ORDER BY recorded_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.Status, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListByCourse returns a course's sessions, newest first.
func (r *PGRepository) ListByCourse(ctx context.Context, courseID string) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessColumns+` FROM sessions WHERE course_id = $1 ORDER BY session_date DESC
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// StudentHistory returns a student's attendance entries across all courses.
func (r *PGRepository) StudentHistory(ctx context.Context, studentID string) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.session_id, s.course_id, c.course_code, s.session_date, e.status, e.recorded_at
		FROM attendance_entries e
		JOIN sessions s ON s.id = e.session_id
		JOIN courses c ON c.id = s.course_id
		WHERE e.student_id = $1
		ORDER BY s.session_date DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.SessionID, &h.CourseID, &h.CourseCode, &h.Date, &h.Status, &h.RecordedAt); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

// CourseStats aggregates per-session and per-student counts for a course.
func (r *PGRepository) CourseStats(ctx context.Context, courseID string) (CourseStats, error) {
	stats := CourseStats{CourseID: courseID}

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.session_date,
			COUNT(*) FILTER (WHERE e.status = 'present'),
			COUNT(*) FILTER (WHERE e.status = 'late'),
			COUNT(e.student_id)
		FROM sessions s
		LEFT JOIN attendance_entries e ON e.session_id = s.id
		WHERE s.course_id = $1
		GROUP BY s.id, s.session_date
		ORDER BY s.session_date DESC
	`, courseID)
	if err != nil {
		return CourseStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var st SessionStat
		if err := rows.Scan(&st.SessionID, &st.Date, &st.Present, &st.Late, &st.Total); err != nil {
			return CourseStats{}, err
		}
		stats.Sessions = append(stats.Sessions, st)
	}
	if err := rows.Err(); err != nil {
		return CourseStats{}, err
	}
	stats.TotalSessions = len(stats.Sessions)

	srows, err := r.db.QueryContext(ctx, `
		SELECT e.student_id, MAX(e.student_name),
			COUNT(*) FILTER (WHERE e.status = 'present'),
			COUNT(*) FILTER (WHERE e.status = 'late'),
			COUNT(*)
		FROM attendance_entries e
		JOIN sessions s ON s.id = e.session_id
		WHERE s.course_id = $1
		GROUP BY e.student_id
		ORDER BY e.student_id
	`, courseID)
	if err != nil {
		return CourseStats{}, err
	}
	defer srows.Close()
	for srows.Next() {
		var st StudentStat
		if err := srows.Scan(&st.StudentID, &st.StudentName, &st.Present, &st.Late, &st.Attended); err != nil {
			return CourseStats{}, err
		}
		stats.Students = append(stats.Students, st)
	}
	return stats, srows.Err()
}
