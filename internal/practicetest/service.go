package practicetest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
	"github.com/pathlight-learning/pathlight-lms/internal/eventlog"
	"github.com/pathlight-learning/pathlight-lms/internal/scale"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

// DefaultScaleProfile selects the raw→scaled conversion tables.
const DefaultScaleProfile = "sat.v1"

// Service owns composite practice test sessions: snapshot provisioning for
// every module in the course, the resume pointer, and final scaled scoring
// across all child quiz attempts.
type Service struct {
	store        Store
	builder      *snapshot.Builder
	catalog      course.Catalog
	enrollments  enrollment.Store
	events       eventlog.Sink
	log          *slog.Logger
	scaleProfile string
	now          func() time.Time
}

func NewService(store Store, builder *snapshot.Builder, catalog course.Catalog,
	enrollments enrollment.Store, events eventlog.Sink, log *slog.Logger) *Service {
	if events == nil {
		events = eventlog.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:        store,
		builder:      builder,
		catalog:      catalog,
		enrollments:  enrollments,
		events:       events,
		log:          log,
		scaleProfile: DefaultScaleProfile,
		now:          time.Now,
	}
}

// Start begins or resumes the user's practice test for the course owning
// sectionID. A non-graded attempt is reused; otherwise a new one is created
// with the next ordinal number. Snapshots for every quiz module are built on
// first start and the attempt registers itself on the enrollment.
func (s *Service) Start(ctx context.Context, userID, sectionID string) (TestAttempt, error) {
	crs, err := s.catalog.CourseForSection(ctx, sectionID)
	if err != nil {
		return TestAttempt{}, err
	}
	modules := course.QuizModulesInOrder(crs)
	if len(modules) == 0 {
		return TestAttempt{}, apperr.Newf(apperr.KindDataIntegrity, "course %s has no quiz modules", crs.ID)
	}

	enr, err := s.enrollmentFor(ctx, userID, crs.ID)
	if err != nil {
		return TestAttempt{}, err
	}

	now := s.now().Unix()
	ta, err := s.store.FindResumableTestAttempt(ctx, userID, crs.ID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		prior, err := s.store.CountTestAttempts(ctx, userID, crs.ID)
		if err != nil {
			return TestAttempt{}, err
		}
		maxPoints, err := s.liveMaxPoints(ctx, modules)
		if err != nil {
			return TestAttempt{}, err
		}
		ta = TestAttempt{
			ID:            uuid.NewString(),
			UserID:        userID,
			CourseID:      crs.ID,
			AttemptNumber: prior + 1,
			SectionIDs:    coveredSectionIDs(crs),
			MaxPoints:     maxPoints,
			Status:        attempt.StatusInProgress,
			NextModuleID:  modules[0].ID,
			StartedAt:     now,
			UpdatedAt:     now,
		}
	} else if err != nil {
		return TestAttempt{}, err
	}

	if len(ta.SnapshotIDs) == 0 {
		ids := make([]string, 0, len(modules))
		for _, mod := range modules {
			snap, err := s.builder.Ensure(ctx, mod.ID)
			if err != nil {
				return TestAttempt{}, err
			}
			ids = append(ids, snap.ID)
		}
		ta.SnapshotIDs = ids
	}
	ta.UpdatedAt = now

	enr.AddTestAttempt(ta.ID)
	if enr.Status == enrollment.StatusEnrolled {
		enr.Status = enrollment.StatusInProgress
	}
	enr.UpdatedAt = now

	if err := s.store.SaveTestAttempt(ctx, ta, &enr); err != nil {
		return TestAttempt{}, err
	}
	s.append(ctx, eventlog.TypeTestStarted, ta.ID, map[string]any{
		"user_id": userID, "course_id": crs.ID, "attempt_number": ta.AttemptNumber,
	})
	return ta, nil
}

// SaveProgress records the resume pointers. Calling it on a graded attempt
// is a friendly no-op so stale clients don't error out.
func (s *Service) SaveProgress(ctx context.Context, id, nextModuleID, nextAttemptID string) (TestAttempt, string, error) {
	ta, err := s.store.GetTestAttempt(ctx, id)
	if err != nil {
		return TestAttempt{}, "", err
	}
	if ta.Status == attempt.StatusGraded {
		return ta, "practice test already submitted", nil
	}
	ta.NextModuleID = nextModuleID
	ta.NextAttemptID = nextAttemptID
	if ta.Status != attempt.StatusPartiallyGraded {
		ta.Status = attempt.StatusInProgress
	}
	ta.UpdatedAt = s.now().Unix()
	if err := s.store.SaveTestAttempt(ctx, ta, nil); err != nil {
		return TestAttempt{}, "", err
	}
	return ta, "", nil
}

// Submit performs final scoring. Raw correct-counts are aggregated per scored
// group from the child attempts — a literal count of correct answers, not a
// point sum, because the conversion tables index by raw count. Max points are
// recounted from the live module definitions since point values may have been
// edited since the snapshots were taken. The enrollment completes alongside.
func (s *Service) Submit(ctx context.Context, id string) (TestAttempt, error) {
	ta, err := s.store.GetTestAttempt(ctx, id)
	if err != nil {
		return TestAttempt{}, err
	}
	if ta.Status == attempt.StatusGraded {
		return TestAttempt{}, apperr.New(apperr.KindAlreadyFinalized, "practice test already submitted")
	}
	crs, err := s.catalog.GetCourse(ctx, ta.CourseID)
	if err != nil {
		return TestAttempt{}, err
	}
	children, err := s.store.ListChildAttempts(ctx, ta.ID)
	if err != nil {
		return TestAttempt{}, err
	}
	correctByModule := map[string]int{}
	childIDs := make([]string, 0, len(children))
	for _, child := range children {
		correctByModule[child.ModuleID] += child.CorrectCount()
		childIDs = append(childIDs, child.ID)
	}

	raw := map[string]int{scale.GroupReadingWriting: 0, scale.GroupMath: 0}
	maxPoints := 0.0
	for _, sec := range course.SectionsInOrder(crs) {
		group := scoredGroup(sec)
		for _, mod := range course.ModulesInOrder(sec) {
			if mod.Type != course.ModuleQuiz && mod.Type != course.ModuleQuizSAT {
				continue
			}
			pts, err := s.modulePoints(ctx, mod)
			if err != nil {
				return TestAttempt{}, err
			}
			maxPoints += pts
			if group == "" {
				s.log.Warn("section not classified for scaled scoring", "section_id", sec.ID, "title", sec.Title)
				continue
			}
			raw[group] += correctByModule[mod.ID]
		}
	}

	tables, ok := scale.Lookup(s.scaleProfile)
	if !ok {
		return TestAttempt{}, apperr.Newf(apperr.KindDataIntegrity, "unknown scale profile %s", s.scaleProfile)
	}
	breakdown := scale.Convert(tables, raw)

	now := s.now().Unix()
	ta.QuizAttemptIDs = childIDs
	ta.Scaled = &breakdown
	ta.Score = float64(breakdown.Total)
	ta.MaxPoints = maxPoints
	ta.Status = attempt.StatusGraded
	ta.NextModuleID = ""
	ta.NextAttemptID = ""
	ta.EndedAt = &now
	ta.UpdatedAt = now

	enr, err := s.enrollments.GetEnrollmentByUserCourse(ctx, ta.UserID, ta.CourseID)
	var enrPtr *enrollment.Enrollment
	if err == nil {
		enr.Status = enrollment.StatusCompleted
		enr.Progress = 100
		enr.Grade = float64(breakdown.Total)
		enr.UpdatedAt = now
		enrPtr = &enr
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return TestAttempt{}, err
	}

	if err := s.store.SaveTestAttempt(ctx, ta, enrPtr); err != nil {
		return TestAttempt{}, err
	}
	s.append(ctx, eventlog.TypeTestSubmitted, ta.ID, map[string]any{
		"total": breakdown.Total, "groups": breakdown.Groups,
	})
	return ta, nil
}

func (s *Service) Get(ctx context.Context, id string) (TestAttempt, error) {
	return s.store.GetTestAttempt(ctx, id)
}

/* ---------------------------- internals ---------------------------- */

func (s *Service) enrollmentFor(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	enr, err := s.enrollments.GetEnrollmentByUserCourse(ctx, userID, courseID)
	if err == nil {
		return enr, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return enrollment.Enrollment{}, err
	}
	s.log.Warn("no enrollment for user, creating one", "user_id", userID, "course_id", courseID)
	now := s.now().Unix()
	enr = enrollment.Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		Status:    enrollment.StatusEnrolled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.enrollments.CreateEnrollment(ctx, enr); err != nil {
		return enrollment.Enrollment{}, err
	}
	return enr, nil
}

// liveMaxPoints sums the current point values of every question across the
// given quiz modules, strand groups included.
func (s *Service) liveMaxPoints(ctx context.Context, modules []course.Module) (float64, error) {
	total := 0.0
	for _, mod := range modules {
		pts, err := s.modulePoints(ctx, mod)
		if err != nil {
			return 0, err
		}
		total += pts
	}
	return total, nil
}

func (s *Service) modulePoints(ctx context.Context, mod course.Module) (float64, error) {
	if mod.Quiz == nil {
		return 0, nil
	}
	ids := mod.Quiz.AllQuestionIDs()
	bank, err := s.catalog.GetQuestions(ctx, ids)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, id := range ids {
		if q, ok := bank[id]; ok {
			total += q.Points
		}
	}
	return total, nil
}

func coveredSectionIDs(crs course.Course) []string {
	var out []string
	for _, sec := range course.SectionsInOrder(crs) {
		for _, mod := range sec.Modules {
			if mod.Type == course.ModuleQuiz || mod.Type == course.ModuleQuizSAT {
				out = append(out, sec.ID)
				break
			}
		}
	}
	return out
}

// scoredGroup classifies a section for scaled scoring. An explicit tag wins;
// otherwise fall back to title keywords, the legacy behavior.
func scoredGroup(sec course.Section) string {
	if sec.ScoredGroup != "" {
		return sec.ScoredGroup
	}
	title := strings.ToLower(sec.Title)
	switch {
	case strings.Contains(title, "reading"), strings.Contains(title, "writing"):
		return scale.GroupReadingWriting
	case strings.Contains(title, "math"):
		return scale.GroupMath
	default:
		return ""
	}
}

func (s *Service) append(ctx context.Context, typ, key string, data any) {
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		s.log.Warn("event append failed", "type", typ, "key", key, "err", err)
	}
}
