package session

import (
	"errors"
	"time"
)

// Attendance entry statuses. Scanning the QR within the code window yields
// "present"; the typed manual-code fallback always yields "late".
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
)

var (
	// ErrSessionNotFound means no session resolves for the request.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStudentNotFound means the student identifier is unknown.
	ErrStudentNotFound = errors.New("student not found")
	// ErrNotEnrolled means the student is not on the course roster.
	ErrNotEnrolled = errors.New("student not enrolled in this course")
	// ErrCodeExpired means the attendance code is past its expiry.
	ErrCodeExpired = errors.New("attendance code expired")
	// ErrInvalidCode means the presented code does not match the session's.
	ErrInvalidCode = errors.New("invalid attendance code")
	// ErrAlreadyRecorded means the student already has attendance for the
	// session. Soft rejection; the client shows an info message, not an error.
	ErrAlreadyRecorded = errors.New("attendance already recorded for this session")
	// ErrUnavailable wraps transient storage or gateway failures. Safe for
	// the caller to retry with backoff.
	ErrUnavailable = errors.New("service unavailable")
)

// Session is one dated occurrence of a course meeting. At most one session
// exists per (course, calendar date); the date carries day granularity only.
type Session struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"courseId"`
	Date            time.Time `json:"date"`
	Day             string    `json:"day"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	Room            string    `json:"room"`
	Code            string    `json:"uniqueCode"`
	CodeGeneratedAt time.Time `json:"codeGeneratedAt"`
	CodeExpiresAt   time.Time `json:"codeExpiresAt"`
	CreatedAt       time.Time `json:"createdAt"`
	Students        []Entry   `json:"students,omitempty"`
}

// Entry is one student's recorded attendance within a session. At most one
// entry exists per (session, student); later submissions are rejected, never
// overwritten.
type Entry struct {
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Status      string    `json:"status"`
	RecordedAt  time.Time `json:"timeRecorded"`
}

// HistoryEntry is an attendance entry joined with its session for the
// per-student history view.
type HistoryEntry struct {
	SessionID  string    `json:"sessionId"`
	CourseID   string    `json:"courseId"`
	CourseCode string    `json:"courseCode"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"timeRecorded"`
}

// SessionStat aggregates one session for reporting.
type SessionStat struct {
	SessionID string    `json:"sessionId"`
	Date      time.Time `json:"date"`
	Present   int       `json:"present"`
	Late      int       `json:"late"`
	Total     int       `json:"total"`
}

// StudentStat aggregates one student across a course's sessions.
type StudentStat struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Present     int    `json:"present"`
	Late        int    `json:"late"`
	Attended    int    `json:"attended"`
}

// CourseStats is the reporting payload for one course.
type CourseStats struct {
	CourseID      string        `json:"courseId"`
	TotalSessions int           `json:"totalSessions"`
	Sessions      []SessionStat `json:"sessions"`
	Students      []StudentStat `json:"students"`
}

// StatsCacheKey is the redis key caching a course's stats payload. The worker
// deletes it when new attendance lands.
func StatsCacheKey(courseID string) string {
	return "rollcall:stats:" + courseID
}

// NormalizeDate truncates a timestamp to its UTC calendar day.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
