package course

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the persistence surface the service depends on.
type Repository interface {
	Insert(ctx context.Context, c Course) (Course, error)
	Get(ctx context.Context, id string) (Course, error)
	ByCode(ctx context.Context, courseCode string) (Course, error)
	ByEnrollmentCode(ctx context.Context, code string) (Course, error)
	List(ctx context.Context) ([]Course, error)
	ListByInstructor(ctx context.Context, instructor string) ([]Course, error)
	Update(ctx context.Context, c Course) (Course, error)
	Delete(ctx context.Context, id string) error
	Enroll(ctx context.Context, courseID, studentID string) (bool, error)
	Unenroll(ctx context.Context, courseID, studentID string) (bool, error)
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
	Roster(ctx context.Context, courseID string) ([]RosterEntry, error)
	EnrollmentCodeExists(ctx context.Context, code string) (bool, error)
}

// PGRepository persists courses, schedules and enrollments in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

// Insert writes a course and its weekly schedule in one transaction.
func (r *PGRepository) Insert(ctx context.Context, c Course) (Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Course{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO courses (id, course_code, course_name, instructor, enrollment_code)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, c.ID, c.CourseCode, c.CourseName, c.Instructor, c.EnrollmentCode)
	if err := row.Scan(&c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Course{}, ErrDuplicateCode
		}
		return Course{}, err
	}
	for i, slot := range c.Schedule {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO course_schedule (course_id, position, weekday, start_time, end_time, room)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, c.ID, i, slot.Weekday, slot.StartTime, slot.EndTime, slot.Room); err != nil {
			return Course{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Course{}, err
	}
	return c, nil
}

// Get returns a course with its schedule.
func (r *PGRepository) Get(ctx context.Context, id string) (Course, error) {
	return r.one(ctx, `WHERE id = $1`, id)
}

// ByCode returns a course by its unique course code.
func (r *PGRepository) ByCode(ctx context.Context, courseCode string) (Course, error) {
	return r.one(ctx, `WHERE course_code = $1`, courseCode)
}

// ByEnrollmentCode returns a course by its enrollment code.
func (r *PGRepository) ByEnrollmentCode(ctx context.Context, code string) (Course, error) {
	return r.one(ctx, `WHERE enrollment_code = $1`, code)
}

func (r *PGRepository) one(ctx context.Context, where string, arg any) (Course, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, course_code, course_name, instructor, enrollment_code, created_at
		FROM courses `+where, arg)
	var c Course
	if err := row.Scan(&c.ID, &c.CourseCode, &c.CourseName, &c.Instructor, &c.EnrollmentCode, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrNotFound
		}
		return Course{}, err
	}
	schedule, err := r.schedule(ctx, c.ID)
	if err != nil {
		return Course{}, err
	}
	c.Schedule = schedule
	return c, nil
}

func (r *PGRepository) schedule(ctx context.Context, courseID string) ([]ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT weekday, start_time, end_time, room
		FROM course_schedule WHERE course_id = $1 ORDER BY position
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(&e.Weekday, &e.StartTime, &e.EndTime, &e.Room); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List returns all courses without schedules.
func (r *PGRepository) List(ctx context.Context) ([]Course, error) {
	return r.query(ctx, `SELECT id, course_code, course_name, instructor, enrollment_code, created_at FROM courses ORDER BY course_code`)
}

// ListByInstructor returns the courses taught by an instructor ID number.
func (r *PGRepository) ListByInstructor(ctx context.Context, instructor string) ([]Course, error) {
	return r.query(ctx, `SELECT id, course_code, course_name, instructor, enrollment_code, created_at FROM courses WHERE instructor = $1 ORDER BY course_code`, instructor)
}

func (r *PGRepository) query(ctx context.Context, q string, args ...any) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.CourseCode, &c.CourseName, &c.Instructor, &c.EnrollmentCode, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Update rewrites course code, name and instructor.
func (r *PGRepository) Update(ctx context.Context, c Course) (Course, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE courses SET course_code = $2, course_name = $3, instructor = $4 WHERE id = $1
	`, c.ID, c.CourseCode, c.CourseName, c.Instructor)
	if err != nil {
		if isUniqueViolation(err) {
			return Course{}, ErrDuplicateCode
		}
		return Course{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Course{}, ErrNotFound
	}
	return r.Get(ctx, c.ID)
}

// Delete removes a course; schedules, enrollments, sessions and entries
// cascade.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Enroll adds a student to the roster. Returns false when already enrolled.
func (r *PGRepository) Enroll(ctx context.Context, courseID, studentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (course_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (course_id, student_id) DO NOTHING
	`, courseID, studentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Unenroll removes a student from the roster. Returns false when not enrolled.
func (r *PGRepository) Unenroll(ctx context.Context, courseID, studentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM enrollments WHERE course_id = $1 AND student_id = $2
	`, courseID, studentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// IsEnrolled reports roster membership.
func (r *PGRepository) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2)
	`, courseID, studentID)
	var enrolled bool
	err := row.Scan(&enrolled)
	return enrolled, err
}

// Roster lists enrolled students with display names.
func (r *PGRepository) Roster(ctx context.Context, courseID string) ([]RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.student_id, COALESCE(a.full_name, '')
		FROM enrollments e
		LEFT JOIN accounts a ON a.id_number = e.student_id
		WHERE e.course_id = $1
		ORDER BY e.student_id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roster []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.IDNumber, &e.FullName); err != nil {
			return nil, err
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

// EnrollmentCodeExists reports whether a code is already assigned.
func (r *PGRepository) EnrollmentCodeExists(ctx context.Context, code string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE enrollment_code = $1)`, code)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
