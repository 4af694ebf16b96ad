package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
	"github.com/pathlight-learning/pathlight-lms/internal/eventlog"
	"github.com/pathlight-learning/pathlight-lms/internal/practicetest"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

// Memory is the in-process variant of the store, mirroring SQL semantics
// (including the atomicity of compound writes, which a single mutex gives
// for free). Tests and seed tooling use it.
type Memory struct {
	mu          sync.RWMutex
	courses     map[string]course.Course
	questions   map[string]course.Question
	snapshots   map[string]snapshot.Snapshot // by module id
	attempts    map[string]attempt.Attempt
	tests       map[string]practicetest.TestAttempt
	enrollments map[string]enrollment.Enrollment
	users       map[string]auth.User // by username
	events      []eventlog.Event
}

func NewMemory() *Memory {
	return &Memory{
		courses:     map[string]course.Course{},
		questions:   map[string]course.Question{},
		snapshots:   map[string]snapshot.Snapshot{},
		attempts:    map[string]attempt.Attempt{},
		tests:       map[string]practicetest.TestAttempt{},
		enrollments: map[string]enrollment.Enrollment{},
		users:       map[string]auth.User{},
	}
}

// clone round-trips through JSON so callers never alias stored state.
func clone[T any](v T) T {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(buf, &out); err != nil {
		panic(err)
	}
	return out
}

/* ------------------------------ catalog ------------------------------ */

func (m *Memory) PutCourse(_ context.Context, c course.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = clone(c)
	return nil
}

func (m *Memory) PutQuestion(_ context.Context, q course.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = clone(q)
	return nil
}

func (m *Memory) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.questions, id)
	return nil
}

func (m *Memory) GetCourse(_ context.Context, id string) (course.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return course.Course{}, apperr.Newf(apperr.KindNotFound, "course %s not found", id)
	}
	return clone(c), nil
}

func (m *Memory) CourseForSection(_ context.Context, sectionID string) (course.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		for _, sec := range c.Sections {
			if sec.ID == sectionID {
				return clone(c), nil
			}
		}
	}
	return course.Course{}, apperr.Newf(apperr.KindNotFound, "section %s not found", sectionID)
}

func (m *Memory) GetModule(_ context.Context, moduleID string) (course.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		for _, sec := range c.Sections {
			for _, mod := range sec.Modules {
				if mod.ID == moduleID {
					mod.SectionID = sec.ID
					return clone(mod), nil
				}
			}
		}
	}
	return course.Module{}, apperr.Newf(apperr.KindNotFound, "module %s not found", moduleID)
}

func (m *Memory) GetQuestions(_ context.Context, ids []string) (map[string]course.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]course.Question, len(ids))
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out[id] = clone(q)
		}
	}
	return out, nil
}

/* ----------------------------- snapshots ----------------------------- */

func (m *Memory) GetSnapshot(_ context.Context, id string) (snapshot.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.snapshots {
		if s.ID == id {
			return clone(s), nil
		}
	}
	return snapshot.Snapshot{}, apperr.Newf(apperr.KindNotFound, "snapshot %s not found", id)
}

func (m *Memory) GetSnapshotByModule(_ context.Context, moduleID string) (snapshot.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[moduleID]
	if !ok {
		return snapshot.Snapshot{}, apperr.Newf(apperr.KindNotFound, "no snapshot for module %s", moduleID)
	}
	return clone(s), nil
}

func (m *Memory) PutSnapshot(_ context.Context, s snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.ModuleID] = clone(s)
	return nil
}

/* ------------------------------ attempts ------------------------------ */

func (m *Memory) GetAttempt(_ context.Context, id string) (attempt.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return attempt.Attempt{}, apperr.Newf(apperr.KindNotFound, "attempt %s not found", id)
	}
	return clone(a), nil
}

func (m *Memory) FindResumableAttempt(_ context.Context, userID, moduleID, parentID string) (attempt.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *attempt.Attempt
	for id := range m.attempts {
		a := m.attempts[id]
		if a.UserID != userID || a.ModuleID != moduleID || a.ParentID != parentID {
			continue
		}
		if a.Status == attempt.StatusGraded {
			continue
		}
		if best == nil || a.CreatedAt > best.CreatedAt {
			copied := a
			best = &copied
		}
	}
	if best == nil {
		return attempt.Attempt{}, apperr.New(apperr.KindNotFound, "no resumable attempt")
	}
	return clone(*best), nil
}

func (m *Memory) ListAttempts(_ context.Context, opts attempt.ListOpts) ([]attempt.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []attempt.Attempt
	for _, a := range m.attempts {
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.ModuleID != "" && a.ModuleID != opts.ModuleID {
			continue
		}
		if opts.ParentID != "" && a.ParentID != opts.ParentID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *Memory) GetParentRef(_ context.Context, parentID string) (attempt.ParentRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ta, ok := m.tests[parentID]
	if !ok {
		return attempt.ParentRef{}, apperr.Newf(apperr.KindNotFound, "practice test attempt %s not found", parentID)
	}
	return attempt.ParentRef{ID: ta.ID, UserID: ta.UserID, CourseID: ta.CourseID}, nil
}

func (m *Memory) CreateAttempt(_ context.Context, a attempt.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ParentID != "" {
		ta, ok := m.tests[a.ParentID]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "practice test attempt %s not found", a.ParentID)
		}
		ta.QuizAttemptIDs = appendUnique(ta.QuizAttemptIDs, a.ID)
		ta.NextModuleID = a.ModuleID
		ta.NextAttemptID = a.ID
		m.tests[a.ParentID] = ta
	} else {
		enr, ok := m.enrollments[a.EnrollmentID]
		if !ok {
			return apperr.Newf(apperr.KindNotFound, "enrollment %s not found", a.EnrollmentID)
		}
		enr.AddQuizAttempt(a.ID)
		m.enrollments[a.EnrollmentID] = enr
	}
	m.attempts[a.ID] = clone(a)
	return nil
}

func (m *Memory) StartClock(_ context.Context, id string, start int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return false, apperr.Newf(apperr.KindNotFound, "attempt %s not found", id)
	}
	if a.StartTime != nil {
		return false, nil
	}
	a.StartTime = &start
	m.attempts[id] = a
	return true, nil
}

func (m *Memory) SaveAttempt(_ context.Context, a attempt.Attempt, parent *attempt.ParentProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "attempt %s not found", a.ID)
	}
	if parent != nil {
		if err := m.advanceParentLocked(*parent); err != nil {
			return err
		}
	}
	m.attempts[a.ID] = clone(a)
	return nil
}

func (m *Memory) FinalizeAttempt(_ context.Context, a attempt.Attempt, parent *attempt.ParentProgress, enr *enrollment.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.ID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "attempt %s not found", a.ID)
	}
	if parent != nil {
		if err := m.advanceParentLocked(*parent); err != nil {
			return err
		}
	}
	if enr != nil {
		if _, ok := m.enrollments[enr.ID]; !ok {
			return apperr.Newf(apperr.KindNotFound, "enrollment %s not found", enr.ID)
		}
		m.enrollments[enr.ID] = clone(*enr)
	}
	m.attempts[a.ID] = clone(a)
	return nil
}

func (m *Memory) advanceParentLocked(pp attempt.ParentProgress) error {
	ta, ok := m.tests[pp.ParentID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "practice test attempt %s not found", pp.ParentID)
	}
	if ta.Status == attempt.StatusGraded {
		return nil
	}
	if pp.Clear {
		ta.NextModuleID, ta.NextAttemptID = "", ""
	} else {
		ta.NextModuleID, ta.NextAttemptID = pp.NextModuleID, pp.NextAttemptID
	}
	m.tests[pp.ParentID] = ta
	return nil
}

/* --------------------------- practice tests --------------------------- */

func (m *Memory) GetTestAttempt(_ context.Context, id string) (practicetest.TestAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ta, ok := m.tests[id]
	if !ok {
		return practicetest.TestAttempt{}, apperr.Newf(apperr.KindNotFound, "practice test attempt %s not found", id)
	}
	return clone(ta), nil
}

func (m *Memory) FindResumableTestAttempt(_ context.Context, userID, courseID string) (practicetest.TestAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *practicetest.TestAttempt
	for id := range m.tests {
		ta := m.tests[id]
		if ta.UserID != userID || ta.CourseID != courseID || ta.Status == attempt.StatusGraded {
			continue
		}
		if best == nil || ta.AttemptNumber > best.AttemptNumber {
			copied := ta
			best = &copied
		}
	}
	if best == nil {
		return practicetest.TestAttempt{}, apperr.New(apperr.KindNotFound, "no resumable practice test")
	}
	return clone(*best), nil
}

func (m *Memory) CountTestAttempts(_ context.Context, userID, courseID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, ta := range m.tests {
		if ta.UserID == userID && ta.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SaveTestAttempt(_ context.Context, ta practicetest.TestAttempt, enr *enrollment.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enr != nil {
		m.enrollments[enr.ID] = clone(*enr)
	}
	m.tests[ta.ID] = clone(ta)
	return nil
}

func (m *Memory) ListChildAttempts(ctx context.Context, parentID string) ([]attempt.Attempt, error) {
	return m.ListAttempts(ctx, attempt.ListOpts{ParentID: parentID})
}

/* ----------------------------- enrollments ----------------------------- */

func (m *Memory) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, apperr.Newf(apperr.KindNotFound, "enrollment %s not found", id)
	}
	return clone(e), nil
}

func (m *Memory) GetEnrollmentByUserCourse(_ context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return clone(e), nil
		}
	}
	return enrollment.Enrollment{}, apperr.New(apperr.KindNotFound, "enrollment not found")
}

func (m *Memory) CreateEnrollment(_ context.Context, e enrollment.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[e.ID] = clone(e)
	return nil
}

func (m *Memory) UpdateEnrollment(_ context.Context, e enrollment.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.enrollments[e.ID]; !ok {
		return apperr.Newf(apperr.KindNotFound, "enrollment %s not found", e.ID)
	}
	m.enrollments[e.ID] = clone(e)
	return nil
}

/* -------------------------------- users -------------------------------- */

func (m *Memory) GetUserByUsername(_ context.Context, username string) (auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return auth.User{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	return u, nil
}

func (m *Memory) CreateUser(_ context.Context, u auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
	return nil
}

/* ------------------------------- events ------------------------------- */

func (m *Memory) Append(_ context.Context, typ, key string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventlog.Event{
		Offset:    int64(len(m.events) + 1),
		Type:      typ,
		Key:       key,
		DataJSON:  mustJSON(data),
		CreatedAt: time.Now().Unix(),
	})
	return nil
}

// Events returns a copy of the appended events, oldest first.
func (m *Memory) Events() []eventlog.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]eventlog.Event, len(m.events))
	copy(out, m.events)
	return out
}
