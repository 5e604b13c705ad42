package store

import "database/sql"

// Migrate creates the schema if it does not exist yet.
//
// The unique indexes on sessions(course_id, session_date) and
// attendance_entries(session_id, student_id) are load-bearing: session
// creation and attendance recording rely on ON CONFLICT to stay correct under
// concurrent requests.
func Migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id            UUID PRIMARY KEY,
		id_number     TEXT UNIQUE NOT NULL,
		full_name     TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('student','instructor','admin')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS courses (
		id              UUID PRIMARY KEY,
		course_code     TEXT UNIQUE NOT NULL,
		course_name     TEXT NOT NULL,
		instructor      TEXT NOT NULL,
		enrollment_code TEXT UNIQUE NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS course_schedule (
		course_id  UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		position   INT NOT NULL,
		weekday    TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time   TEXT NOT NULL DEFAULT '',
		room       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (course_id, position)
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		course_id   UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		student_id  TEXT NOT NULL,
		enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (course_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id                UUID PRIMARY KEY,
		course_id         UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		session_date      DATE NOT NULL,
		day               TEXT NOT NULL,
		start_time        TEXT NOT NULL DEFAULT '',
		end_time          TEXT NOT NULL DEFAULT '',
		room              TEXT NOT NULL DEFAULT '',
		code              TEXT NOT NULL,
		code_generated_at TIMESTAMPTZ NOT NULL,
		code_expires_at   TIMESTAMPTZ NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (course_id, session_date)
	);

	CREATE TABLE IF NOT EXISTS attendance_entries (
		session_id   UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		student_id   TEXT NOT NULL,
		student_name TEXT NOT NULL,
		status       TEXT NOT NULL CHECK (status IN ('present','late','absent')),
		recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (session_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS activity_logs (
		id          UUID PRIMARY KEY,
		user_id     TEXT NOT NULL,
		user_type   TEXT NOT NULL,
		full_name   TEXT NOT NULL,
		action      TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_course       ON sessions(course_id, session_date DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_student       ON attendance_entries(student_id);
	CREATE INDEX IF NOT EXISTS idx_activity_logs_occurred ON activity_logs(occurred_at DESC);
	`
	_, err := db.Exec(schema)
	return err
}
