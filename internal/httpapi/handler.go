package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/account"
	"rollcall/internal/activity"
	"rollcall/internal/auth"
	"rollcall/internal/course"
	"rollcall/internal/metrics"
	"rollcall/internal/queue"
	"rollcall/internal/session"
	"rollcall/internal/store"
)

// Handler owns the HTTP surface: account and course management, session
// creation and the attendance recording flow.
type Handler struct {
	accounts      *account.Service
	courses       *course.Service
	sessions      *session.Service
	logs          *activity.Repository
	cache         *store.Redis
	q             queue.Queue
	jwtIssuer     string
	jwtKey        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	statsCacheTTL time.Duration
}

// New wires a handler.
func New(accounts *account.Service, courses *course.Service, sessions *session.Service,
	logs *activity.Repository, cache *store.Redis, q queue.Queue,
	jwtIssuer, jwtKey string, accessTTL, refreshTTL, statsCacheTTL time.Duration) *Handler {
	return &Handler{
		accounts:      accounts,
		courses:       courses,
		sessions:      sessions,
		logs:          logs,
		cache:         cache,
		q:             q,
		jwtIssuer:     jwtIssuer,
		jwtKey:        jwtKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		statsCacheTTL: statsCacheTTL,
	}
}

// Register mounts all routes under /api. adminMW guards the management
// endpoints.
func (h *Handler) Register(r *gin.Engine, adminMW gin.HandlerFunc) {
	api := r.Group("/api")

	students := api.Group("/students")
	students.GET("/search", h.searchAccounts(account.RoleStudent))
	students.GET("", adminMW, h.listAccounts(account.RoleStudent))
	students.GET("/:id", adminMW, h.getAccount)
	students.PUT("/:id", adminMW, h.updateAccount)
	students.DELETE("/:id", adminMW, h.deleteAccount)
	students.POST("/create", adminMW, h.createAccount(account.RoleStudent))
	students.POST("/login", h.login(account.RoleStudent, "studentId", "student"))
	students.POST("/logout", h.logout(account.RoleStudent, "studentId"))

	instructors := api.Group("/instructors")
	instructors.GET("", adminMW, h.listAccounts(account.RoleInstructor))
	instructors.GET("/:id", adminMW, h.getAccount)
	instructors.PUT("/:id", adminMW, h.updateAccount)
	instructors.DELETE("/:id", adminMW, h.deleteAccount)
	instructors.POST("/create", adminMW, h.createAccount(account.RoleInstructor))
	instructors.POST("/login", h.login(account.RoleInstructor, "instructorId", "instructor"))
	instructors.POST("/logout", h.logout(account.RoleInstructor, "instructorId"))

	api.POST("/auth/refresh", h.refreshToken)

	courses := api.Group("/courses")
	courses.GET("", adminMW, h.listCourses)
	courses.POST("", adminMW, h.createCourse)
	courses.GET("/instructor/:id", h.instructorCourses)
	courses.GET("/:id", h.getCourse)
	courses.GET("/:id/students", h.courseRoster)
	courses.POST("/:id/enroll-student", h.enrollStudent)
	courses.DELETE("/:id/students/:studentId", adminMW, h.unenrollStudent)
	courses.POST("/verify-code", h.enrollByCode)
	courses.PUT("/update/:id", adminMW, h.updateCourse)
	courses.DELETE("/delete/:id", adminMW, h.deleteCourse)

	sessions := api.Group("/sessions")
	sessions.POST("/create", h.createSession)
	sessions.GET("/:id", h.getSession)
	sessions.GET("/:id/qr.png", h.sessionQR)
	sessions.GET("/student/:studentId", h.studentHistory)
	sessions.GET("/stats/course/:courseId", h.courseStats)

	api.POST("/session-attendance/record", h.recordAttendance)

	api.GET("/logs", adminMW, h.listLogs)
}

// ---------- Accounts ----------

type createAccountRequest struct {
	IDNumber string `json:"idNumber" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) createAccount(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
			return
		}
		acct, err := h.accounts.Create(c.Request.Context(), req.IDNumber, req.FullName, req.Password, role)
		if err != nil {
			if errors.Is(err, account.ErrDuplicateID) {
				c.JSON(http.StatusBadRequest, gin.H{"message": "ID number already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Account created successfully",
			"account": gin.H{"idNumber": acct.IDNumber, "fullName": acct.FullName},
		})
	}
}

func (h *Handler) listAccounts(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accts, err := h.accounts.List(c.Request.Context(), role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}
		c.JSON(http.StatusOK, accts)
	}
}

func (h *Handler) searchAccounts(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accts, err := h.accounts.Search(c.Request.Context(), role, c.Query("search"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}
		c.JSON(http.StatusOK, accts)
	}
}

func (h *Handler) getAccount(c *gin.Context) {
	acct, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, acct)
}

type updateAccountRequest struct {
	IDNumber string `json:"idNumber" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
}

func (h *Handler) updateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	acct, err := h.accounts.Update(c.Request.Context(), c.Param("id"), req.IDNumber, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Account not found"})
		case errors.Is(err, account.ErrDuplicateID):
			c.JSON(http.StatusBadRequest, gin.H{"message": "ID Number is already taken"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account updated successfully", "account": acct})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func (h *Handler) login(role, idField, respField string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req map[string]string
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}
		idNumber, password := req[idField], req["password"]
		if idNumber == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": idField + " and password required"})
			return
		}
		acct, err := h.accounts.Authenticate(c.Request.Context(), idNumber, password)
		if err != nil || acct.Role != role {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid ID or password"})
			return
		}
		tokens, err := auth.Issue(acct.IDNumber, acct.Role, h.jwtIssuer, h.jwtKey, h.accessTTL, h.refreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "token issue failed"})
			return
		}
		h.publishActivity(c.Request.Context(), acct, activity.ActionLogin, "")
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			respField: gin.H{"id": acct.ID, "idNumber": acct.IDNumber, "fullName": acct.FullName},
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"expiresAt":    tokens.AccessExp.Unix(),
		})
	}
}

func (h *Handler) logout(role, idField string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req map[string]string
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}
		acct, err := h.accounts.ByIDNumber(c.Request.Context(), req[idField])
		if err != nil || acct.Role != role {
			c.JSON(http.StatusNotFound, gin.H{"message": "Account not found"})
			return
		}
		h.publishActivity(c.Request.Context(), acct, activity.ActionLogout, "")
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// refreshToken exchanges a valid refresh token for a fresh pair. The account
// must still exist with the role the token was issued for.
func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Refresh token required"})
		return
	}
	claims, err := auth.ParseRefresh(req.RefreshToken, h.jwtKey, h.jwtIssuer)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		return
	}
	acct, err := h.accounts.ByIDNumber(c.Request.Context(), claims.Subject)
	if err != nil || acct.Role != claims.Role {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
		return
	}
	tokens, err := auth.Issue(acct.IDNumber, acct.Role, h.jwtIssuer, h.jwtKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"expiresAt":    tokens.AccessExp.Unix(),
	})
}

func (h *Handler) publishActivity(ctx context.Context, acct account.Account, action, courseID string) {
	evt := activity.Event{
		UserID:   acct.IDNumber,
		UserType: acct.Role,
		FullName: acct.FullName,
		Action:   action,
		CourseID: courseID,
		At:       time.Now().UTC(),
	}
	if err := h.q.Publish(ctx, queue.Message{Type: action, Body: evt.Marshal()}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

// ---------- Courses ----------

type createCourseRequest struct {
	CourseCode string                 `json:"courseCode" binding:"required"`
	CourseName string                 `json:"courseName" binding:"required"`
	Instructor string                 `json:"instructor" binding:"required"`
	Schedule   []course.ScheduleEntry `json:"schedule"`
}

func (h *Handler) createCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	crs, err := h.courses.Create(c.Request.Context(), req.CourseCode, req.CourseName, req.Instructor, req.Schedule)
	if err != nil {
		if errors.Is(err, course.ErrDuplicateCode) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Course code already exists"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, crs)
}

func (h *Handler) listCourses(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *Handler) instructorCourses(c *gin.Context) {
	courses, err := h.courses.ListByInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching courses"})
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *Handler) getCourse(c *gin.Context) {
	crs, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.courseError(c, err)
		return
	}
	roster, err := h.courses.Roster(c.Request.Context(), crs.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":             crs.ID,
		"courseCode":     crs.CourseCode,
		"courseName":     crs.CourseName,
		"instructor":     crs.Instructor,
		"enrollmentCode": crs.EnrollmentCode,
		"schedule":       crs.Schedule,
		"students":       roster,
		"totalStudents":  len(roster),
	})
}

func (h *Handler) courseRoster(c *gin.Context) {
	roster, err := h.courses.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.courseError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

type enrollRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

func (h *Handler) enrollStudent(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Student ID is required"})
		return
	}
	acct, err := h.accounts.ByIDNumber(c.Request.Context(), req.StudentID)
	if err != nil || acct.Role != account.RoleStudent {
		c.JSON(http.StatusNotFound, gin.H{"message": "Student not found"})
		return
	}
	if err := h.courses.Enroll(c.Request.Context(), c.Param("id"), acct.IDNumber); err != nil {
		switch {
		case errors.Is(err, course.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
		case errors.Is(err, course.ErrAlreadyEnrolled):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Student is already enrolled in this course"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error enrolling student"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student enrolled successfully"})
}

type verifyCodeRequest struct {
	EnrollmentCode string `json:"enrollmentCode" binding:"required"`
	StudentID      string `json:"studentId" binding:"required"`
}

func (h *Handler) enrollByCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	acct, err := h.accounts.ByIDNumber(c.Request.Context(), req.StudentID)
	if err != nil || acct.Role != account.RoleStudent {
		c.JSON(http.StatusNotFound, gin.H{"message": "Student not found"})
		return
	}
	crs, err := h.courses.EnrollByCode(c.Request.Context(), req.EnrollmentCode, acct.IDNumber)
	if err != nil {
		switch {
		case errors.Is(err, course.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Invalid enrollment code"})
		case errors.Is(err, course.ErrAlreadyEnrolled):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Student is already enrolled in this course"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error enrolling student"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Enrolled successfully",
		"course":  gin.H{"id": crs.ID, "courseCode": crs.CourseCode, "courseName": crs.CourseName},
	})
}

func (h *Handler) unenrollStudent(c *gin.Context) {
	err := h.courses.Unenroll(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		switch {
		case errors.Is(err, course.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
		case errors.Is(err, course.ErrNotEnrolled):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Student is not enrolled in this course"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student removed successfully"})
}

type updateCourseRequest struct {
	CourseCode string `json:"courseCode"`
	CourseName string `json:"courseName"`
	Instructor string `json:"instructor"`
}

func (h *Handler) updateCourse(c *gin.Context) {
	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	crs, err := h.courses.Update(c.Request.Context(), c.Param("id"), req.CourseCode, req.CourseName, req.Instructor)
	if err != nil {
		h.courseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course updated successfully", "course": crs})
}

func (h *Handler) deleteCourse(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.courseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}

func (h *Handler) courseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, course.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
	case errors.Is(err, course.ErrDuplicateCode):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Course code already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}

// ---------- Sessions & attendance ----------

type createSessionRequest struct {
	CourseID string `json:"courseId" binding:"required"`
	Date     string `json:"date"`
	Day      string `json:"day"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format"})
			return
		}
		date = parsed
	}
	sess, created, err := h.sessions.GetOrCreateSession(c.Request.Context(), req.CourseID, date, req.Day)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Failed to create session"})
		return
	}
	if !created {
		// Existing session comes back so the caller can proceed with it.
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Session already exists for today",
			"session": sess,
		})
		return
	}
	metrics.SessionsCreated.Inc()
	c.JSON(http.StatusCreated, gin.H{"success": true, "session": sess})
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (h *Handler) getSession(c *gin.Context) {
	sess, err := h.sessions.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Session not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": sess})
}

func (h *Handler) sessionQR(c *gin.Context) {
	_, payload, err := h.sessions.RefreshDisplayCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Server error"})
		return
	}
	size := 256
	if v := c.Query("size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 1024 {
			size = parsed
		}
	}
	png, err := session.QRImage(payload, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "QR render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

type recordRequest struct {
	StudentID    string     `json:"studentId" binding:"required"`
	CourseCode   string     `json:"courseCode"`
	SessionID    string     `json:"sessionId"`
	UniqueCode   string     `json:"uniqueCode" binding:"required"`
	IsManualCode bool       `json:"isManualCode"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

func (h *Handler) recordAttendance(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		return
	}
	result, err := h.sessions.RecordAttendance(c.Request.Context(), session.RecordInput{
		StudentID:  req.StudentID,
		CourseCode: req.CourseCode,
		SessionID:  req.SessionID,
		Code:       req.UniqueCode,
		Manual:     req.IsManualCode,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		h.recordError(c, err)
		return
	}

	metrics.AttendanceRecorded.WithLabelValues(result.Status).Inc()
	if acct, aerr := h.accounts.ByIDNumber(c.Request.Context(), result.StudentID); aerr == nil {
		h.publishActivity(c.Request.Context(), acct, activity.ActionAttendance, h.courseIDForEvent(c.Request.Context(), req))
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Attendance recorded successfully",
		"student": result,
	})
}

// courseIDForEvent finds the course id for cache invalidation; best effort.
func (h *Handler) courseIDForEvent(ctx context.Context, req recordRequest) string {
	if req.SessionID != "" {
		if sess, err := h.sessions.GetSession(ctx, req.SessionID); err == nil {
			return sess.CourseID
		}
	}
	if req.CourseCode != "" {
		if crs, err := h.courses.ByCode(ctx, req.CourseCode); err == nil {
			return crs.ID
		}
	}
	return ""
}

func (h *Handler) recordError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		metrics.AttendanceRejected.WithLabelValues("session_not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No session found for this course"})
	case errors.Is(err, session.ErrStudentNotFound):
		metrics.AttendanceRejected.WithLabelValues("student_not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Student not found"})
	case errors.Is(err, session.ErrNotEnrolled):
		metrics.AttendanceRejected.WithLabelValues("not_enrolled").Inc()
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Student is not enrolled in this course"})
	case errors.Is(err, session.ErrCodeExpired):
		// The client special-cases this message to offer the manual-code path.
		metrics.AttendanceRejected.WithLabelValues("expired").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "QR code has expired"})
	case errors.Is(err, session.ErrInvalidCode):
		metrics.AttendanceRejected.WithLabelValues("invalid_code").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid attendance code"})
	case errors.Is(err, session.ErrAlreadyRecorded):
		metrics.AttendanceRejected.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusConflict, gin.H{
			"success":         false,
			"alreadyRecorded": true,
			"message":         "Attendance already recorded for this session",
		})
	case errors.Is(err, session.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Service temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to record attendance"})
	}
}

func (h *Handler) studentHistory(c *gin.Context) {
	history, err := h.sessions.StudentHistory(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": history})
}

func (h *Handler) courseStats(c *gin.Context) {
	ctx := c.Request.Context()
	courseID := c.Param("courseId")

	if h.cache != nil && h.cache.Client != nil {
		if cached, err := h.cache.Client.Get(ctx, session.StatsCacheKey(courseID)).Result(); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	if _, err := h.courses.Get(ctx, courseID); err != nil {
		h.courseError(c, err)
		return
	}
	stats, err := h.sessions.CourseStats(ctx, courseID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Server error"})
		return
	}
	body, err := json.Marshal(stats)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if h.cache != nil && h.cache.Client != nil {
		if err := h.cache.Client.Set(ctx, session.StatsCacheKey(courseID), body, h.statsCacheTTL).Err(); err != nil {
			log.Printf("stats cache set failed: %v", err)
		}
	}
	c.Data(http.StatusOK, "application/json", body)
}

// ---------- Logs ----------

func (h *Handler) listLogs(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	logs, err := h.logs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
