package course

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound means no course matches the identifier.
	ErrNotFound = errors.New("course not found")
	// ErrDuplicateCode means the course code is already taken.
	ErrDuplicateCode = errors.New("course code already exists")
	// ErrAlreadyEnrolled means the student is already on the course roster.
	ErrAlreadyEnrolled = errors.New("student already enrolled")
	// ErrNotEnrolled means the student is not on the course roster.
	ErrNotEnrolled = errors.New("student not enrolled")
)

// ScheduleEntry is one weekly meeting slot of a course.
type ScheduleEntry struct {
	Weekday   string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Room      string `json:"room"`
}

// Course is a taught class students enroll in. Instructor holds the
// instructor's ID number. EnrollmentCode is the short code students type to
// join the course.
type Course struct {
	ID             string          `json:"id"`
	CourseCode     string          `json:"courseCode"`
	CourseName     string          `json:"courseName"`
	Instructor     string          `json:"instructor"`
	EnrollmentCode string          `json:"enrollmentCode"`
	Schedule       []ScheduleEntry `json:"schedule,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ScheduleFor returns the meeting slot for the given weekday, or nil.
func (c Course) ScheduleFor(weekday time.Weekday) *ScheduleEntry {
	for i := range c.Schedule {
		if strings.EqualFold(c.Schedule[i].Weekday, weekday.String()) {
			return &c.Schedule[i]
		}
	}
	return nil
}

// RosterEntry is one enrolled student with display data.
type RosterEntry struct {
	IDNumber string `json:"idNumber"`
	FullName string `json:"fullName"`
}

// NewEnrollmentCode produces an 8-character uppercase hex code.
func NewEnrollmentCode() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return strings.ToUpper(hex.EncodeToString(buf))
}
