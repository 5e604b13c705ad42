package course_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/course"
	"rollcall/internal/memstore"
)

var enrollmentCodeRe = regexp.MustCompile(`^[0-9A-F]{8}$`)

func newService(t *testing.T) (*course.Service, *memstore.CourseRepo) {
	t.Helper()
	repo := memstore.NewCourseRepo()
	return course.NewService(repo), repo
}

func TestCreate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	schedule := []course.ScheduleEntry{{Weekday: "Monday", StartTime: "09:00", EndTime: "10:30", Room: "B204"}}
	c, err := svc.Create(ctx, "CS101", "Intro to Computer Science", "INS-1", schedule)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Regexp(t, enrollmentCodeRe, c.EnrollmentCode)
	assert.Equal(t, schedule, c.Schedule)

	// Course codes are unique.
	_, err = svc.Create(ctx, "CS101", "Another Name", "INS-2", nil)
	assert.ErrorIs(t, err, course.ErrDuplicateCode)

	// Enrollment codes stay distinct across courses.
	other, err := svc.Create(ctx, "CS202", "Data Structures", "INS-1", nil)
	require.NoError(t, err)
	assert.NotEqual(t, c.EnrollmentCode, other.EnrollmentCode)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	tests := []struct {
		name             string
		code, title, ins string
	}{
		{"missing code", "", "Name", "INS-1"},
		{"missing name", "CS101", "  ", "INS-1"},
		{"missing instructor", "CS101", "Name", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.code, tt.title, tt.ins, nil)
			assert.Error(t, err)
		})
	}
}

func TestEnroll(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, "CS101", "Intro to Computer Science", "INS-1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Enroll(ctx, c.ID, "S-100"))

	enrolled, err := svc.IsEnrolled(ctx, c.ID, "S-100")
	require.NoError(t, err)
	assert.True(t, enrolled)

	assert.ErrorIs(t, svc.Enroll(ctx, c.ID, "S-100"), course.ErrAlreadyEnrolled)
	assert.ErrorIs(t, svc.Enroll(ctx, "no-such-course", "S-100"), course.ErrNotFound)
}

func TestEnrollByCode(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, "CS101", "Intro to Computer Science", "INS-1", nil)
	require.NoError(t, err)

	got, err := svc.EnrollByCode(ctx, c.EnrollmentCode, "S-100")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	enrolled, err := svc.IsEnrolled(ctx, c.ID, "S-100")
	require.NoError(t, err)
	assert.True(t, enrolled)

	_, err = svc.EnrollByCode(ctx, "FFFFFFFF", "S-100")
	assert.ErrorIs(t, err, course.ErrNotFound)
}

func TestUnenroll(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, "CS101", "Intro to Computer Science", "INS-1", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Unenroll(ctx, c.ID, "S-100"), course.ErrNotEnrolled)

	require.NoError(t, svc.Enroll(ctx, c.ID, "S-100"))
	require.NoError(t, svc.Unenroll(ctx, c.ID, "S-100"))

	enrolled, err := svc.IsEnrolled(ctx, c.ID, "S-100")
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestScheduleFor(t *testing.T) {
	c := course.Course{Schedule: []course.ScheduleEntry{
		{Weekday: "monday", StartTime: "09:00"},
		{Weekday: "Wednesday", StartTime: "14:00"},
	}}

	slot := c.ScheduleFor(time.Monday)
	require.NotNil(t, slot)
	assert.Equal(t, "09:00", slot.StartTime)

	assert.Nil(t, c.ScheduleFor(time.Friday))
}

func TestUpdate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, "CS101", "Intro to Computer Science", "INS-1", nil)
	require.NoError(t, err)

	got, err := svc.Update(ctx, c.ID, "CS102", "", "INS-2")
	require.NoError(t, err)
	assert.Equal(t, "CS102", got.CourseCode)
	assert.Equal(t, "Intro to Computer Science", got.CourseName)
	assert.Equal(t, "INS-2", got.Instructor)
}
