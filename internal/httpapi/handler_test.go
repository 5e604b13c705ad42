package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/account"
	"rollcall/internal/activity"
	"rollcall/internal/auth"
	"rollcall/internal/course"
	"rollcall/internal/httpapi"
	"rollcall/internal/memstore"
	"rollcall/internal/queue"
	"rollcall/internal/session"
)

const (
	testAdminID = "admin123"
	testAdminPW = "pass123"
)

type env struct {
	router   *gin.Engine
	accounts *memstore.AccountRepo
	courses  *memstore.CourseRepo
	sessions *memstore.SessionRepo
	queue    *queue.InMemory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accounts := memstore.NewAccountRepo()
	courses := memstore.NewCourseRepo()
	courses.Accounts = accounts
	sessions := memstore.NewSessionRepo()
	sessions.Courses = courses

	acctSvc := account.NewService(accounts)
	courseSvc := course.NewService(courses)
	sessSvc := session.NewService(sessions, courseSvc, acctSvc, courseSvc, 30*time.Minute, 2*time.Minute)
	q := queue.NewInMemory(64)

	h := httpapi.New(acctSvc, courseSvc, sessSvc, activity.NewRepository(nil), nil, q,
		"rollcall", "test-signing-key", time.Hour, 24*time.Hour, time.Minute)
	r := gin.New()
	h.Register(r, auth.AdminAuth(auth.AdminCredentials{ID: testAdminID, Password: testAdminPW}))

	return &env{router: r, accounts: accounts, courses: courses, sessions: sessions, queue: q}
}

func (e *env) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("admin-id", testAdminID)
		req.Header.Set("admin-password", testAdminPW)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func (e *env) seedStudent(t *testing.T, idNumber, name string) {
	t.Helper()
	_, err := e.accounts.Insert(context.Background(), account.Account{
		IDNumber: idNumber, FullName: name, Role: account.RoleStudent,
	})
	require.NoError(t, err)
}

func (e *env) seedCourse(t *testing.T, code string, enrolled ...string) course.Course {
	t.Helper()
	ctx := context.Background()
	c, err := e.courses.Insert(ctx, course.Course{
		CourseCode: code, CourseName: code + " name", Instructor: "INS-1", EnrollmentCode: "AAAA1111",
	})
	require.NoError(t, err)
	for _, id := range enrolled {
		_, err := e.courses.Enroll(ctx, c.ID, id)
		require.NoError(t, err)
	}
	return c
}

func TestCreateSession(t *testing.T) {
	e := newEnv(t)
	c := e.seedCourse(t, "CS101")

	w := e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": c.ID}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	sess := body["session"].(map[string]any)
	assert.NotEmpty(t, sess["id"])
	assert.Len(t, sess["uniqueCode"], 6)

	// Same day again: the existing session comes back, not a fresh code.
	w = e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": c.ID}, false)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Session already exists for today", body["message"])
	again := body["session"].(map[string]any)
	assert.Equal(t, sess["id"], again["id"])
	assert.Equal(t, sess["uniqueCode"], again["uniqueCode"])
}

func TestCreateSessionUnknownCourse(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": "missing"}, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordAttendanceFlow(t *testing.T) {
	e := newEnv(t)
	e.seedStudent(t, "S-100", "Ada Lovelace")
	e.seedStudent(t, "S-200", "Grace Hopper")
	c := e.seedCourse(t, "CS101", "S-100", "S-200")

	w := e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": c.ID}, false)
	require.Equal(t, http.StatusCreated, w.Code)
	sess := decode(t, w)["session"].(map[string]any)
	sessionID, code := sess["id"].(string), sess["uniqueCode"].(string)

	// Scan path records "present".
	w = e.do(t, http.MethodPost, "/api/session-attendance/record", gin.H{
		"studentId": "S-100", "sessionId": sessionID, "uniqueCode": code,
	}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Attendance recorded successfully", body["message"])
	student := body["student"].(map[string]any)
	assert.Equal(t, "S-100", student["idNumber"])
	assert.Equal(t, "Ada Lovelace", student["fullName"])
	assert.Equal(t, session.StatusPresent, student["status"])

	// Duplicate submission is a soft conflict.
	w = e.do(t, http.MethodPost, "/api/session-attendance/record", gin.H{
		"studentId": "S-100", "sessionId": sessionID, "uniqueCode": code,
	}, false)
	require.Equal(t, http.StatusConflict, w.Code)
	body = decode(t, w)
	assert.Equal(t, true, body["alreadyRecorded"])
	assert.Equal(t, "Attendance already recorded for this session", body["message"])

	// Manual entry records "late", resolved by course code.
	w = e.do(t, http.MethodPost, "/api/session-attendance/record", gin.H{
		"studentId": "S-200", "courseCode": "CS101", "uniqueCode": code, "isManualCode": true,
	}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	student = decode(t, w)["student"].(map[string]any)
	assert.Equal(t, session.StatusLate, student["status"])
}

func TestRecordAttendanceErrors(t *testing.T) {
	e := newEnv(t)
	e.seedStudent(t, "S-100", "Ada Lovelace")
	e.seedStudent(t, "S-300", "Not Enrolled")
	c := e.seedCourse(t, "CS101", "S-100")

	w := e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": c.ID}, false)
	require.Equal(t, http.StatusCreated, w.Code)
	sess := decode(t, w)["session"].(map[string]any)
	sessionID, code := sess["id"].(string), sess["uniqueCode"].(string)

	tests := []struct {
		name     string
		payload  gin.H
		wantCode int
		wantMsg  string
	}{
		{"missing fields", gin.H{"studentId": "S-100"}, http.StatusBadRequest, "Missing required fields"},
		{"unknown student", gin.H{"studentId": "S-999", "sessionId": sessionID, "uniqueCode": code},
			http.StatusNotFound, "Student not found"},
		{"not enrolled", gin.H{"studentId": "S-300", "sessionId": sessionID, "uniqueCode": code},
			http.StatusForbidden, "Student is not enrolled in this course"},
		{"wrong code", gin.H{"studentId": "S-100", "sessionId": sessionID, "uniqueCode": "ZZZZZZ"},
			http.StatusBadRequest, "Invalid attendance code"},
		{"no session for course", gin.H{"studentId": "S-100", "courseCode": "NOPE", "uniqueCode": code},
			http.StatusNotFound, "No session found for this course"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/session-attendance/record", tt.payload, false)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantMsg, decode(t, w)["message"])
		})
	}
}

func TestRecordAttendanceExpired(t *testing.T) {
	e := newEnv(t)
	e.seedStudent(t, "S-100", "Ada Lovelace")
	c := e.seedCourse(t, "CS101", "S-100")

	created, err := e.sessions.Insert(context.Background(), session.Session{
		ID: "sess-old", CourseID: c.ID, Date: session.NormalizeDate(time.Now()),
		Code: "AB12CD", CodeExpiresAt: time.Now().Add(-5 * time.Minute),
	})
	require.NoError(t, err)
	require.True(t, created)

	w := e.do(t, http.MethodPost, "/api/session-attendance/record", gin.H{
		"studentId": "S-100", "sessionId": "sess-old", "uniqueCode": "AB12CD",
	}, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "QR code has expired", decode(t, w)["message"])
}

func TestSessionQR(t *testing.T) {
	e := newEnv(t)
	c := e.seedCourse(t, "CS101")

	w := e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": c.ID}, false)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, w)["session"].(map[string]any)["id"].(string)

	w = e.do(t, http.MethodGet, "/api/sessions/"+sessionID+"/qr.png?size=128", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	// The QR endpoint rotates the code to the short display window.
	stored, err := e.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, stored.CodeExpiresAt.Before(time.Now().Add(3*time.Minute)))
}

func TestAdminGuard(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/students", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set("admin-id", testAdminID)
	req.Header.Set("admin-password", "wrong")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w = e.do(t, http.MethodGet, "/api/students", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/students/create", gin.H{
		"idNumber": "S-100", "fullName": "Ada Lovelace", "password": "secret",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/students/login", gin.H{
		"studentId": "S-100", "password": "secret",
	}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["accessToken"])
	student := body["student"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", student["fullName"])

	// The login lands on the activity queue for the worker.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := e.queue.Consume(ctx)
	require.NoError(t, err)
	select {
	case msg := <-out:
		assert.Equal(t, activity.ActionLogin, msg.Type)
		evt, err := activity.Unmarshal(msg.Body)
		require.NoError(t, err)
		assert.Equal(t, "S-100", evt.UserID)
	case <-ctx.Done():
		t.Fatal("no login event published")
	}

	w = e.do(t, http.MethodPost, "/api/students/login", gin.H{
		"studentId": "S-100", "password": "wrong",
	}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshToken(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/students/create", gin.H{
		"idNumber": "S-100", "fullName": "Ada Lovelace", "password": "secret",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/api/students/login", gin.H{
		"studentId": "S-100", "password": "secret",
	}, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	accessToken := body["accessToken"].(string)
	refreshToken := body["refreshToken"].(string)

	w = e.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": refreshToken}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])

	// Access tokens are not exchangeable.
	w = e.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": accessToken}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": "garbage"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/refresh", gin.H{}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollByCode(t *testing.T) {
	e := newEnv(t)
	e.seedStudent(t, "S-100", "Ada Lovelace")
	c := e.seedCourse(t, "CS101")

	w := e.do(t, http.MethodPost, "/api/courses/verify-code", gin.H{
		"enrollmentCode": c.EnrollmentCode, "studentId": "S-100",
	}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])

	enrolled, err := e.courses.IsEnrolled(context.Background(), c.ID, "S-100")
	require.NoError(t, err)
	assert.True(t, enrolled)

	w = e.do(t, http.MethodPost, "/api/courses/verify-code", gin.H{
		"enrollmentCode": "FFFFFFFF", "studentId": "S-100",
	}, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Invalid enrollment code", decode(t, w)["message"])
}

func TestGetCourseWithRoster(t *testing.T) {
	e := newEnv(t)
	e.seedStudent(t, "S-100", "Ada Lovelace")
	c := e.seedCourse(t, "CS101", "S-100")

	w := e.do(t, http.MethodGet, "/api/courses/"+c.ID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "CS101", body["courseCode"])
	assert.Equal(t, float64(1), body["totalStudents"])
	students := body["students"].([]any)
	require.Len(t, students, 1)
	assert.Equal(t, "Ada Lovelace", students[0].(map[string]any)["fullName"])
}

func TestStudentHistoryEndpoint(t *testing.T) {
	e := newEnv(t)
	e.seedStudent(t, "S-100", "Ada Lovelace")
	c := e.seedCourse(t, "CS101", "S-100")

	w := e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": c.ID}, false)
	require.Equal(t, http.StatusCreated, w.Code)
	sess := decode(t, w)["session"].(map[string]any)

	w = e.do(t, http.MethodPost, "/api/session-attendance/record", gin.H{
		"studentId": "S-100", "sessionId": sess["id"], "uniqueCode": sess["uniqueCode"],
	}, false)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodGet, "/api/sessions/student/S-100", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	history := body["attendance"].([]any)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	assert.Equal(t, "CS101", entry["courseCode"])
	assert.Equal(t, session.StatusPresent, entry["status"])
}

func TestCourseStatsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.seedStudent(t, "S-100", "Ada Lovelace")
	c := e.seedCourse(t, "CS101", "S-100")

	w := e.do(t, http.MethodPost, "/api/sessions/create", gin.H{"courseId": c.ID}, false)
	require.Equal(t, http.StatusCreated, w.Code)
	sess := decode(t, w)["session"].(map[string]any)

	w = e.do(t, http.MethodPost, "/api/session-attendance/record", gin.H{
		"studentId": "S-100", "sessionId": sess["id"], "uniqueCode": sess["uniqueCode"],
	}, false)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodGet, "/api/sessions/stats/course/"+c.ID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["totalSessions"])

	w = e.do(t, http.MethodGet, "/api/sessions/stats/course/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
