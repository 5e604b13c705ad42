package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/account"
	"rollcall/internal/course"
)

// CourseDirectory resolves courses for session creation and code payloads.
type CourseDirectory interface {
	Get(ctx context.Context, id string) (course.Course, error)
	ByCode(ctx context.Context, courseCode string) (course.Course, error)
}

// StudentDirectory resolves student identities at validation time.
type StudentDirectory interface {
	ByIDNumber(ctx context.Context, idNumber string) (account.Account, error)
}

// EnrollmentGateway answers the roster-membership question the validator
// depends on. Backed by the course service, or by an external registrar when
// one is configured.
type EnrollmentGateway interface {
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

// Service is the session manager and attendance validator.
type Service struct {
	repo       Repository
	courses    CourseDirectory
	students   StudentDirectory
	enrollment EnrollmentGateway
	codeTTL    time.Duration
	displayTTL time.Duration
	now        func() time.Time
}

// NewService wires the session manager. codeTTL is the validity window of the
// code minted at session creation; displayTTL is the shorter window used by
// the instructor's refreshing QR display.
func NewService(repo Repository, courses CourseDirectory, students StudentDirectory, enrollment EnrollmentGateway, codeTTL, displayTTL time.Duration) *Service {
	if codeTTL <= 0 {
		codeTTL = 30 * time.Minute
	}
	if displayTTL <= 0 {
		displayTTL = 2 * time.Minute
	}
	return &Service{
		repo:       repo,
		courses:    courses,
		students:   students,
		enrollment: enrollment,
		codeTTL:    codeTTL,
		displayTTL: displayTTL,
		now:        time.Now,
	}
}

// GetOrCreateSession returns the course's session for the calendar date of
// the given moment, creating it on first request of the day. Re-requesting on
// the same date returns the existing session unchanged; the code is not
// reset. The second return reports whether a session was created.
func (s *Service) GetOrCreateSession(ctx context.Context, courseID string, date time.Time, dayLabel string) (Session, bool, error) {
	c, err := s.courses.Get(ctx, courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Session{}, false, err
		}
		return Session{}, false, fmt.Errorf("%w: course lookup: %v", ErrUnavailable, err)
	}

	existing, err := s.repo.ByCourseDate(ctx, courseID, date)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return Session{}, false, fmt.Errorf("%w: session lookup: %v", ErrUnavailable, err)
	}

	day := NormalizeDate(date)
	if dayLabel == "" {
		dayLabel = day.Weekday().String()
	}
	sess := Session{
		ID:       uuid.NewString(),
		CourseID: courseID,
		Date:     day,
		Day:      dayLabel,
	}
	if slot := c.ScheduleFor(day.Weekday()); slot != nil {
		sess.StartTime = slot.StartTime
		sess.EndTime = slot.EndTime
		sess.Room = slot.Room
	}
	now := s.now()
	sess.Code = GenerateCode()
	sess.CodeGeneratedAt = now
	sess.CodeExpiresAt = now.Add(s.codeTTL)

	created, err := s.repo.Insert(ctx, sess)
	if err != nil {
		return Session{}, false, fmt.Errorf("%w: session create: %v", ErrUnavailable, err)
	}
	if !created {
		// Lost the race to a concurrent first request; theirs wins.
		existing, err := s.repo.ByCourseDate(ctx, courseID, date)
		if err != nil {
			return Session{}, false, fmt.Errorf("%w: session refetch: %v", ErrUnavailable, err)
		}
		return existing, false, nil
	}
	sess.CreatedAt = now
	return sess, true, nil
}

// GetSession returns a session with its roster.
func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: session lookup: %v", ErrUnavailable, err)
	}
	entries, err := s.repo.Entries(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("%w: roster lookup: %v", ErrUnavailable, err)
	}
	sess.Students = entries
	return sess, nil
}

// RefreshDisplayCode rotates the session's code using the short display
// window and returns the QR payload for it.
func (s *Service) RefreshDisplayCode(ctx context.Context, sessionID string) (Session, CodePayload, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Session{}, CodePayload{}, err
		}
		return Session{}, CodePayload{}, fmt.Errorf("%w: session lookup: %v", ErrUnavailable, err)
	}
	c, err := s.courses.Get(ctx, sess.CourseID)
	if err != nil {
		return Session{}, CodePayload{}, fmt.Errorf("%w: course lookup: %v", ErrUnavailable, err)
	}

	now := s.now()
	code := GenerateCode()
	expires := now.Add(s.displayTTL)
	if err := s.repo.UpdateCode(ctx, sess.ID, code, now, expires); err != nil {
		return Session{}, CodePayload{}, fmt.Errorf("%w: code rotate: %v", ErrUnavailable, err)
	}
	sess.Code = code
	sess.CodeGeneratedAt = now
	sess.CodeExpiresAt = expires

	payload := CodePayload{
		SessionID:  sess.ID,
		CourseID:   c.ID,
		CourseCode: c.CourseCode,
		UniqueCode: code,
		Timestamp:  now,
		ExpiresAt:  expires,
	}
	return sess, payload, nil
}

// RecordInput carries one attendance submission.
type RecordInput struct {
	StudentID  string
	CourseCode string
	SessionID  string
	Code       string
	Manual     bool
	ExpiresAt  *time.Time
}

// RecordResult reports the recorded status and moment.
type RecordResult struct {
	StudentID   string    `json:"idNumber"`
	StudentName string    `json:"fullName"`
	Status      string    `json:"status"`
	RecordedAt  time.Time `json:"timeRecorded"`
}

// RecordAttendance validates a scan or manual submission and appends the
// attendance entry. States per (student, session) pair go Unrecorded to
// Recorded once; a second submission fails with ErrAlreadyRecorded.
func (s *Service) RecordAttendance(ctx context.Context, in RecordInput) (RecordResult, error) {
	sess, err := s.resolveSession(ctx, in)
	if err != nil {
		return RecordResult{}, err
	}

	student, err := s.students.ByIDNumber(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return RecordResult{}, ErrStudentNotFound
		}
		return RecordResult{}, fmt.Errorf("%w: student lookup: %v", ErrUnavailable, err)
	}

	enrolled, err := s.enrollment.IsEnrolled(ctx, sess.CourseID, student.IDNumber)
	if err != nil {
		return RecordResult{}, fmt.Errorf("%w: enrollment check: %v", ErrUnavailable, err)
	}
	if !enrolled {
		return RecordResult{}, ErrNotEnrolled
	}

	// The payload's expiresAt may only tighten the window. A forged later
	// timestamp never extends past the session's own expiry.
	expiry := sess.CodeExpiresAt
	if in.ExpiresAt != nil && in.ExpiresAt.Before(expiry) {
		expiry = *in.ExpiresAt
	}
	now := s.now()
	if now.After(expiry) {
		return RecordResult{}, ErrCodeExpired
	}

	if in.Code != sess.Code {
		return RecordResult{}, ErrInvalidCode
	}

	status := StatusPresent
	if in.Manual {
		status = StatusLate
	}
	inserted, err := s.repo.InsertEntry(ctx, sess.ID, Entry{
		StudentID:   student.IDNumber,
		StudentName: student.FullName,
		Status:      status,
		RecordedAt:  now,
	})
	if err != nil {
		return RecordResult{}, fmt.Errorf("%w: record attendance: %v", ErrUnavailable, err)
	}
	if !inserted {
		return RecordResult{}, ErrAlreadyRecorded
	}
	return RecordResult{
		StudentID:   student.IDNumber,
		StudentName: student.FullName,
		Status:      status,
		RecordedAt:  now,
	}, nil
}

// resolveSession prefers an explicit session id, then falls back to the
// course code: today's session if one exists, otherwise the most recent.
func (s *Service) resolveSession(ctx context.Context, in RecordInput) (Session, error) {
	if in.SessionID != "" {
		sess, err := s.repo.Get(ctx, in.SessionID)
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			return Session{}, fmt.Errorf("%w: session lookup: %v", ErrUnavailable, err)
		}
		return sess, err
	}
	if in.CourseCode == "" {
		return Session{}, ErrSessionNotFound
	}
	c, err := s.courses.ByCode(ctx, in.CourseCode)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("%w: course lookup: %v", ErrUnavailable, err)
	}
	sess, err := s.repo.ByCourseDate(ctx, c.ID, s.now())
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return Session{}, fmt.Errorf("%w: session lookup: %v", ErrUnavailable, err)
	}
	sess, err = s.repo.LatestByCourse(ctx, c.ID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return Session{}, fmt.Errorf("%w: session lookup: %v", ErrUnavailable, err)
	}
	return sess, err
}

// ListCourseSessions returns a course's sessions, newest first.
func (s *Service) ListCourseSessions(ctx context.Context, courseID string) ([]Session, error) {
	sessions, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%w: session list: %v", ErrUnavailable, err)
	}
	return sessions, nil
}

// StudentHistory returns a student's attendance entries across courses.
func (s *Service) StudentHistory(ctx context.Context, studentID string) ([]HistoryEntry, error) {
	history, err := s.repo.StudentHistory(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("%w: history lookup: %v", ErrUnavailable, err)
	}
	return history, nil
}

// CourseStats aggregates attendance for reporting.
func (s *Service) CourseStats(ctx context.Context, courseID string) (CourseStats, error) {
	stats, err := s.repo.CourseStats(ctx, courseID)
	if err != nil {
		return CourseStats{}, fmt.Errorf("%w: stats query: %v", ErrUnavailable, err)
	}
	return stats, nil
}
