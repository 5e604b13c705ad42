// Package memstore provides in-memory repository implementations for tests
// and local development without Postgres.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/account"
	"rollcall/internal/course"
	"rollcall/internal/session"
)

// AccountRepo is an in-memory account.Repository.
type AccountRepo struct {
	mu   sync.RWMutex
	byID map[string]account.Account
}

// NewAccountRepo creates an empty repo.
func NewAccountRepo() *AccountRepo {
	return &AccountRepo{byID: make(map[string]account.Account)}
}

func (r *AccountRepo) Insert(_ context.Context, acct account.Account) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.IDNumber == acct.IDNumber {
			return account.Account{}, account.ErrDuplicateID
		}
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	r.byID[acct.ID] = acct
	return acct, nil
}

func (r *AccountRepo) Get(_ context.Context, id string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.byID[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

func (r *AccountRepo) ByIDNumber(_ context.Context, idNumber string) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.byID {
		if acct.IDNumber == idNumber {
			return acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (r *AccountRepo) List(_ context.Context, role string) ([]account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []account.Account
	for _, acct := range r.byID {
		if role == "" || acct.Role == role {
			res = append(res, acct)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].IDNumber < res[j].IDNumber })
	return res, nil
}

func (r *AccountRepo) Search(_ context.Context, role, query string) ([]account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(query)
	var res []account.Account
	for _, acct := range r.byID {
		if role != "" && acct.Role != role {
			continue
		}
		if strings.Contains(strings.ToLower(acct.FullName), q) ||
			strings.Contains(strings.ToLower(acct.IDNumber), q) {
			res = append(res, acct)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].FullName < res[j].FullName })
	return res, nil
}

func (r *AccountRepo) Update(_ context.Context, acct account.Account) (account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[acct.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	for id, other := range r.byID {
		if id != acct.ID && other.IDNumber == acct.IDNumber {
			return account.Account{}, account.ErrDuplicateID
		}
	}
	existing.IDNumber = acct.IDNumber
	existing.FullName = acct.FullName
	existing.UpdatedAt = time.Now().UTC()
	r.byID[acct.ID] = existing
	return existing, nil
}

func (r *AccountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return account.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// CourseRepo is an in-memory course.Repository. Accounts, when set, supplies
// roster display names.
type CourseRepo struct {
	mu       sync.RWMutex
	byID     map[string]course.Course
	enrolled map[string]map[string]bool
	Accounts *AccountRepo
}

// NewCourseRepo creates an empty repo.
func NewCourseRepo() *CourseRepo {
	return &CourseRepo{
		byID:     make(map[string]course.Course),
		enrolled: make(map[string]map[string]bool),
	}
}

func (r *CourseRepo) Insert(_ context.Context, c course.Course) (course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.CourseCode == c.CourseCode {
			return course.Course{}, course.ErrDuplicateCode
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	r.byID[c.ID] = c
	r.enrolled[c.ID] = make(map[string]bool)
	return c, nil
}

func (r *CourseRepo) Get(_ context.Context, id string) (course.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (r *CourseRepo) ByCode(_ context.Context, courseCode string) (course.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byID {
		if c.CourseCode == courseCode {
			return c, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (r *CourseRepo) ByEnrollmentCode(_ context.Context, code string) (course.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byID {
		if c.EnrollmentCode == code {
			return c, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (r *CourseRepo) List(_ context.Context) ([]course.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []course.Course
	for _, c := range r.byID {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CourseCode < res[j].CourseCode })
	return res, nil
}

func (r *CourseRepo) ListByInstructor(_ context.Context, instructor string) ([]course.Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []course.Course
	for _, c := range r.byID {
		if c.Instructor == instructor {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CourseCode < res[j].CourseCode })
	return res, nil
}

func (r *CourseRepo) Update(_ context.Context, c course.Course) (course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	for id, other := range r.byID {
		if id != c.ID && other.CourseCode == c.CourseCode {
			return course.Course{}, course.ErrDuplicateCode
		}
	}
	existing.CourseCode = c.CourseCode
	existing.CourseName = c.CourseName
	existing.Instructor = c.Instructor
	r.byID[c.ID] = existing
	return existing, nil
}

func (r *CourseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return course.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.enrolled, id)
	return nil
}

func (r *CourseRepo) Enroll(_ context.Context, courseID, studentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.enrolled[courseID]
	if !ok {
		set = make(map[string]bool)
		r.enrolled[courseID] = set
	}
	if set[studentID] {
		return false, nil
	}
	set[studentID] = true
	return true, nil
}

func (r *CourseRepo) Unenroll(_ context.Context, courseID, studentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.enrolled[courseID]
	if !set[studentID] {
		return false, nil
	}
	delete(set, studentID)
	return true, nil
}

func (r *CourseRepo) IsEnrolled(_ context.Context, courseID, studentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enrolled[courseID][studentID], nil
}

func (r *CourseRepo) Roster(ctx context.Context, courseID string) ([]course.RosterEntry, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.enrolled[courseID]))
	for id := range r.enrolled[courseID] {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	roster := make([]course.RosterEntry, 0, len(ids))
	for _, id := range ids {
		entry := course.RosterEntry{IDNumber: id}
		if r.Accounts != nil {
			if acct, err := r.Accounts.ByIDNumber(ctx, id); err == nil {
				entry.FullName = acct.FullName
			}
		}
		roster = append(roster, entry)
	}
	return roster, nil
}

func (r *CourseRepo) EnrollmentCodeExists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byID {
		if c.EnrollmentCode == code {
			return true, nil
		}
	}
	return false, nil
}

// SessionRepo is an in-memory session.Repository. Courses, when set, supplies
// course codes for history entries.
type SessionRepo struct {
	mu           sync.Mutex
	byID         map[string]session.Session
	byCourseDate map[string]string
	entries      map[string][]session.Entry
	entryIndex   map[string]map[string]bool
	Courses      *CourseRepo
}

// NewSessionRepo creates an empty repo.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		byID:         make(map[string]session.Session),
		byCourseDate: make(map[string]string),
		entries:      make(map[string][]session.Entry),
		entryIndex:   make(map[string]map[string]bool),
	}
}

func dateKey(courseID string, date time.Time) string {
	return courseID + "|" + session.NormalizeDate(date).Format("2006-01-02")
}

func (r *SessionRepo) Insert(_ context.Context, s session.Session) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dateKey(s.CourseID, s.Date)
	if _, exists := r.byCourseDate[key]; exists {
		return false, nil
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Date = session.NormalizeDate(s.Date)
	s.CreatedAt = time.Now().UTC()
	r.byID[s.ID] = s
	r.byCourseDate[key] = s.ID
	r.entryIndex[s.ID] = make(map[string]bool)
	return true, nil
}

func (r *SessionRepo) Get(_ context.Context, id string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	return s, nil
}

func (r *SessionRepo) ByCourseDate(_ context.Context, courseID string, date time.Time) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byCourseDate[dateKey(courseID, date)]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}
	return r.byID[id], nil
}

func (r *SessionRepo) LatestByCourse(_ context.Context, courseID string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest session.Session
	found := false
	for _, s := range r.byID {
		if s.CourseID != courseID {
			continue
		}
		if !found || s.Date.After(latest.Date) {
			latest = s
			found = true
		}
	}
	if !found {
		return session.Session{}, session.ErrSessionNotFound
	}
	return latest, nil
}

func (r *SessionRepo) UpdateCode(_ context.Context, id, code string, generatedAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return session.ErrSessionNotFound
	}
	s.Code = code
	s.CodeGeneratedAt = generatedAt
	s.CodeExpiresAt = expiresAt
	r.byID[id] = s
	return nil
}

func (r *SessionRepo) InsertEntry(_ context.Context, sessionID string, e session.Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[sessionID]; !ok {
		return false, session.ErrSessionNotFound
	}
	idx := r.entryIndex[sessionID]
	if idx == nil {
		idx = make(map[string]bool)
		r.entryIndex[sessionID] = idx
	}
	if idx[e.StudentID] {
		return false, nil
	}
	idx[e.StudentID] = true
	r.entries[sessionID] = append(r.entries[sessionID], e)
	return true, nil
}

func (r *SessionRepo) Entries(_ context.Context, sessionID string) ([]session.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]session.Entry, len(r.entries[sessionID]))
	copy(entries, r.entries[sessionID])
	return entries, nil
}

func (r *SessionRepo) ListByCourse(_ context.Context, courseID string) ([]session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []session.Session
	for _, s := range r.byID {
		if s.CourseID == courseID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.After(res[j].Date) })
	return res, nil
}

func (r *SessionRepo) StudentHistory(ctx context.Context, studentID string) ([]session.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []session.HistoryEntry
	for sessID, entries := range r.entries {
		for _, e := range entries {
			if e.StudentID != studentID {
				continue
			}
			s := r.byID[sessID]
			h := session.HistoryEntry{
				SessionID:  sessID,
				CourseID:   s.CourseID,
				Date:       s.Date,
				Status:     e.Status,
				RecordedAt: e.RecordedAt,
			}
			if r.Courses != nil {
				if c, err := r.Courses.Get(ctx, s.CourseID); err == nil {
					h.CourseCode = c.CourseCode
				}
			}
			res = append(res, h)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.After(res[j].Date) })
	return res, nil
}

func (r *SessionRepo) CourseStats(_ context.Context, courseID string) (session.CourseStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := session.CourseStats{CourseID: courseID}
	perStudent := make(map[string]*session.StudentStat)
	for _, s := range r.byID {
		if s.CourseID != courseID {
			continue
		}
		st := session.SessionStat{SessionID: s.ID, Date: s.Date}
		for _, e := range r.entries[s.ID] {
			st.Total++
			switch e.Status {
			case session.StatusPresent:
				st.Present++
			case session.StatusLate:
				st.Late++
			}
			ss := perStudent[e.StudentID]
			if ss == nil {
				ss = &session.StudentStat{StudentID: e.StudentID, StudentName: e.StudentName}
				perStudent[e.StudentID] = ss
			}
			ss.Attended++
			switch e.Status {
			case session.StatusPresent:
				ss.Present++
			case session.StatusLate:
				ss.Late++
			}
		}
		stats.Sessions = append(stats.Sessions, st)
	}
	sort.Slice(stats.Sessions, func(i, j int) bool { return stats.Sessions[i].Date.After(stats.Sessions[j].Date) })
	stats.TotalSessions = len(stats.Sessions)
	for _, ss := range perStudent {
		stats.Students = append(stats.Students, *ss)
	}
	sort.Slice(stats.Students, func(i, j int) bool { return stats.Students[i].StudentID < stats.Students[j].StudentID })
	return stats, nil
}
