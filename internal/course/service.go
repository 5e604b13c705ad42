package course

import (
	"context"
	"errors"
	"strings"
)

// Service manages courses and the enrollment relation.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// enrollmentCodeAttempts bounds the retry loop when minting a unique code.
const enrollmentCodeAttempts = 5

// Create registers a course with a fresh unique enrollment code.
func (s *Service) Create(ctx context.Context, courseCode, courseName, instructor string, schedule []ScheduleEntry) (Course, error) {
	courseCode = strings.TrimSpace(courseCode)
	courseName = strings.TrimSpace(courseName)
	if courseCode == "" || courseName == "" || instructor == "" {
		return Course{}, errors.New("course code, name and instructor required")
	}

	var enrollCode string
	for i := 0; i < enrollmentCodeAttempts; i++ {
		candidate := NewEnrollmentCode()
		exists, err := s.repo.EnrollmentCodeExists(ctx, candidate)
		if err != nil {
			return Course{}, err
		}
		if !exists {
			enrollCode = candidate
			break
		}
	}
	if enrollCode == "" {
		return Course{}, errors.New("could not generate unique enrollment code")
	}

	return s.repo.Insert(ctx, Course{
		CourseCode:     courseCode,
		CourseName:     courseName,
		Instructor:     instructor,
		EnrollmentCode: enrollCode,
		Schedule:       schedule,
	})
}

// Get returns a course by id, schedule included.
func (s *Service) Get(ctx context.Context, id string) (Course, error) {
	return s.repo.Get(ctx, id)
}

// ByCode returns a course by its unique course code.
func (s *Service) ByCode(ctx context.Context, courseCode string) (Course, error) {
	return s.repo.ByCode(ctx, courseCode)
}

// List returns all courses.
func (s *Service) List(ctx context.Context) ([]Course, error) {
	return s.repo.List(ctx)
}

// ListByInstructor returns the courses taught by an instructor.
func (s *Service) ListByInstructor(ctx context.Context, instructor string) ([]Course, error) {
	return s.repo.ListByInstructor(ctx, instructor)
}

// Update changes course code, name and instructor.
func (s *Service) Update(ctx context.Context, id, courseCode, courseName, instructor string) (Course, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if courseCode != "" {
		c.CourseCode = courseCode
	}
	if courseName != "" {
		c.CourseName = courseName
	}
	if instructor != "" {
		c.Instructor = instructor
	}
	return s.repo.Update(ctx, c)
}

// Delete removes a course and everything hanging off it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Enroll adds a student to the course roster.
func (s *Service) Enroll(ctx context.Context, courseID, studentID string) error {
	if studentID == "" {
		return errors.New("student id required")
	}
	if _, err := s.repo.Get(ctx, courseID); err != nil {
		return err
	}
	added, err := s.repo.Enroll(ctx, courseID, studentID)
	if err != nil {
		return err
	}
	if !added {
		return ErrAlreadyEnrolled
	}
	return nil
}

// EnrollByCode resolves the enrollment code and adds the student.
func (s *Service) EnrollByCode(ctx context.Context, enrollmentCode, studentID string) (Course, error) {
	c, err := s.repo.ByEnrollmentCode(ctx, enrollmentCode)
	if err != nil {
		return Course{}, err
	}
	return c, s.Enroll(ctx, c.ID, studentID)
}

// Unenroll removes a student from the course roster.
func (s *Service) Unenroll(ctx context.Context, courseID, studentID string) error {
	if _, err := s.repo.Get(ctx, courseID); err != nil {
		return err
	}
	removed, err := s.repo.Unenroll(ctx, courseID, studentID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotEnrolled
	}
	return nil
}

// IsEnrolled reports roster membership. This is the read the attendance
// validator depends on.
func (s *Service) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	return s.repo.IsEnrolled(ctx, courseID, studentID)
}

// Roster lists enrolled students with display names.
func (s *Service) Roster(ctx context.Context, courseID string) ([]RosterEntry, error) {
	if _, err := s.repo.Get(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.Roster(ctx, courseID)
}
