package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
	"github.com/pathlight-learning/pathlight-lms/internal/eventlog"
	"github.com/pathlight-learning/pathlight-lms/internal/grading"
	"github.com/pathlight-learning/pathlight-lms/internal/progress"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

// Service owns the quiz attempt state machine:
//
//	in_progress → graded
//	in_progress → partially_graded → graded
//
// Any other transition is rejected.
type Service struct {
	store       Store
	snapshots   snapshot.Store
	builder     *snapshot.Builder
	catalog     course.Catalog
	enrollments enrollment.Store
	events      eventlog.Sink
	log         *slog.Logger
	rnd         *rand.Rand
	now         func() time.Time
}

func NewService(store Store, snapshots snapshot.Store, builder *snapshot.Builder,
	catalog course.Catalog, enrollments enrollment.Store, events eventlog.Sink, log *slog.Logger) *Service {
	if events == nil {
		events = eventlog.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:       store,
		snapshots:   snapshots,
		builder:     builder,
		catalog:     catalog,
		enrollments: enrollments,
		events:      events,
		log:         log,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// Start begins or resumes a session. At most one non-terminal attempt exists
// per (user, module, parent); finding one returns it unchanged, annotations
// and all. A fresh attempt is created paused with its full time budget. A
// child session may only register on the caller's own practice test attempt,
// and only for a module of that test's course.
func (s *Service) Start(ctx context.Context, userID, moduleID, parentID string) (Attempt, error) {
	if existing, err := s.store.FindResumableAttempt(ctx, userID, moduleID, parentID); err == nil {
		return existing, nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return Attempt{}, err
	}

	mod, err := s.catalog.GetModule(ctx, moduleID)
	if err != nil {
		return Attempt{}, err
	}
	crs, err := s.catalog.CourseForSection(ctx, mod.SectionID)
	if err != nil {
		return Attempt{}, err
	}
	if parentID != "" {
		parent, err := s.store.GetParentRef(ctx, parentID)
		if err != nil {
			return Attempt{}, err
		}
		if parent.UserID != userID {
			return Attempt{}, apperr.New(apperr.KindUnauthorized, "not your practice test")
		}
		if parent.CourseID != crs.ID {
			return Attempt{}, apperr.Newf(apperr.KindInvalidState,
				"module %s is not part of the practice test's course", moduleID)
		}
	}

	snap, err := s.builder.Ensure(ctx, moduleID)
	if err != nil {
		return Attempt{}, err
	}

	enr, err := s.enrollmentForCourse(ctx, userID, crs.ID)
	if err != nil {
		return Attempt{}, err
	}

	order := make([]int, len(snap.Questions))
	for i := range order {
		order[i] = i
	}
	if snap.ShuffleQuestions {
		s.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	details := make([]Detail, len(snap.Questions))
	for i, q := range snap.Questions {
		details[i] = Detail{
			QuestionID:           q.QuestionID,
			PointsPossible:       q.Points,
			RequiresManualReview: q.RequiresManual,
		}
	}

	now := s.now().Unix()
	budget := snap.TimeLimitMin * 60
	a := Attempt{
		ID:            uuid.NewString(),
		UserID:        userID,
		ModuleID:      moduleID,
		EnrollmentID:  enr.ID,
		ParentID:      parentID,
		SnapshotID:    snap.ID,
		QuestionOrder: order,
		Details:       details,
		TimeLimitSec:  budget,
		RemainingSec:  budget,
		MaxPoints:     snap.MaxPoints(),
		Status:        StatusInProgress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	s.append(ctx, eventlog.TypeAttemptStarted, a.ID, map[string]string{
		"user_id": userID, "module_id": moduleID, "parent_id": parentID,
	})
	return a, nil
}

// StartTimedSession resumes the clock. The start time is back-dated by the
// time already consumed so the countdown continues from where it paused. Two
// concurrent calls race on a conditional update; the loser re-reads the
// winner's value.
func (s *Service) StartTimedSession(ctx context.Context, attemptID string) (Attempt, int, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, 0, err
	}
	if a.Status != StatusInProgress {
		return Attempt{}, 0, apperr.New(apperr.KindAlreadyFinalized, "attempt is no longer in progress")
	}
	now := s.now().Unix()
	if a.StartTime == nil {
		start := now - int64(a.TimeLimitSec-a.RemainingSec)
		won, err := s.store.StartClock(ctx, attemptID, start)
		if err != nil {
			return Attempt{}, 0, err
		}
		if won {
			a.StartTime = &start
		} else {
			if a, err = s.store.GetAttempt(ctx, attemptID); err != nil {
				return Attempt{}, 0, err
			}
		}
	}
	remaining := a.RemainingSec
	if a.StartTime != nil {
		remaining = a.TimeLimitSec - int(now-*a.StartTime)
		if remaining < 0 {
			remaining = 0
		}
	}
	return a, remaining, nil
}

// SaveRequest carries an in-progress save. Answers absent from the map keep
// their prior values; the marked-for-review set is replaced wholesale.
type SaveRequest struct {
	Answers         map[string]any `json:"answers"`
	CurrentIndex    int            `json:"current_index"`
	RemainingSec    int            `json:"remaining_sec"`
	MarkedForReview []string       `json:"marked_for_review"`
}

// SaveAnswers persists in-progress work and pauses the clock. For a child of
// a practice test it also moves the composite's resume pointer here.
func (s *Service) SaveAnswers(ctx context.Context, attemptID string, req SaveRequest) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusInProgress {
		return Attempt{}, apperr.New(apperr.KindAlreadyFinalized, "attempt is no longer in progress")
	}
	snap, err := s.snapshots.GetSnapshot(ctx, a.SnapshotID)
	if err != nil {
		return Attempt{}, apperr.Wrap(apperr.KindDataIntegrity, "attempt snapshot missing", err)
	}

	byID, err := detailsByQuestion(&a, snap)
	if err != nil {
		return Attempt{}, err
	}
	applyAnswers(byID, snap, req.Answers)
	marked := make(map[string]bool, len(req.MarkedForReview))
	for _, id := range req.MarkedForReview {
		marked[id] = true
	}
	for i := range a.Details {
		a.Details[i].MarkedForReview = marked[a.Details[i].QuestionID]
	}
	a.CurrentIndex = req.CurrentIndex
	a.RemainingSec = clampRemaining(req.RemainingSec, a.TimeLimitSec)
	a.StartTime = nil // every save pauses the clock
	a.UpdatedAt = s.now().Unix()

	var parent *ParentProgress
	if a.ParentID != "" {
		parent = &ParentProgress{ParentID: a.ParentID, NextModuleID: a.ModuleID, NextAttemptID: a.ID}
	}
	if err := s.store.SaveAttempt(ctx, a, parent); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// Submit grades the attempt. Auto-gradable items are scored through the
// answer checker; manual items contribute zero and leave the attempt in
// partially_graded until reviewed. A terminal grade flows into the
// enrollment's completion set, point totals and derived grade, all in one
// transaction.
func (s *Service) Submit(ctx context.Context, attemptID string, answers map[string]any, autoSubmitted bool) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusInProgress {
		return Attempt{}, apperr.New(apperr.KindAlreadyFinalized, "attempt already submitted")
	}
	snap, err := s.snapshots.GetSnapshot(ctx, a.SnapshotID)
	if err != nil {
		return Attempt{}, apperr.Wrap(apperr.KindDataIntegrity, "attempt snapshot missing", err)
	}

	byID, err := detailsByQuestion(&a, snap)
	if err != nil {
		return Attempt{}, err
	}
	applyAnswers(byID, snap, answers)

	score := 0.0
	for _, q := range snap.Questions {
		d := byID[q.QuestionID]
		d.PointsPossible = q.Points
		if q.RequiresManual || !grading.AutoGradable(q.Type) {
			d.RequiresManualReview = true
			d.Correct = false
			d.PointsAwarded = 0
			continue
		}
		correct, _ := grading.Check(q, answerValue(*d, q.Type))
		d.Correct = correct
		if correct {
			d.PointsAwarded = q.Points
		} else {
			d.PointsAwarded = 0
		}
		score += d.PointsAwarded
	}

	zeroed := snap.ZeroOnAutoSubmit && autoSubmitted
	if zeroed {
		score = 0
	}
	a.Score = score
	a.MaxPoints = snap.MaxPoints()
	a.Passed = !zeroed && passed(score, a.MaxPoints, snap.PassPercent)
	if a.PendingReview() {
		a.Status = StatusPartiallyGraded
	} else {
		a.Status = StatusGraded
	}
	a.StartTime = nil
	a.UpdatedAt = s.now().Unix()

	parent, err := s.parentAdvance(ctx, a)
	if err != nil {
		return Attempt{}, err
	}
	var enr *enrollment.Enrollment
	if a.Status == StatusGraded {
		if enr, err = s.completedEnrollment(ctx, a); err != nil {
			return Attempt{}, err
		}
	}
	if err := s.store.FinalizeAttempt(ctx, a, parent, enr); err != nil {
		return Attempt{}, err
	}
	s.append(ctx, eventlog.TypeAttemptSubmitted, a.ID, map[string]any{
		"status": a.Status, "score": a.Score, "auto_submitted": autoSubmitted,
	})
	return a, nil
}

// ReviewItem applies a manual grade to one item. Only valid on a
// partially_graded attempt, for an item flagged for review and not yet
// graded, with a score within the item's possible points. Once nothing is
// pending the attempt transitions to graded and pass/fail is recomputed.
func (s *Service) ReviewItem(ctx context.Context, attemptID string, itemIndex int, points float64, notes, reviewerID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	switch a.Status {
	case StatusPartiallyGraded:
	case StatusGraded:
		return Attempt{}, apperr.New(apperr.KindAlreadyFinalized, "attempt already graded")
	default:
		return Attempt{}, apperr.New(apperr.KindInvalidState, "attempt is not awaiting review")
	}
	if itemIndex < 0 || itemIndex >= len(a.Details) {
		return Attempt{}, apperr.Newf(apperr.KindValidation, "item index %d out of range", itemIndex)
	}
	d := &a.Details[itemIndex]
	if !d.RequiresManualReview {
		return Attempt{}, apperr.New(apperr.KindInvalidState, "item does not require manual review")
	}
	if d.ManuallyGraded {
		return Attempt{}, apperr.New(apperr.KindInvalidState, "item already reviewed")
	}
	if points < 0 || points > d.PointsPossible {
		return Attempt{}, apperr.Newf(apperr.KindInvalidState,
			"manual score %.2f exceeds possible points %.2f", points, d.PointsPossible)
	}

	d.PointsAwarded = points
	d.Correct = points > 0
	d.ManuallyGraded = true
	d.ReviewerID = reviewerID
	d.ReviewerNotes = notes

	total := 0.0
	for _, det := range a.Details {
		total += det.PointsAwarded
	}
	a.Score = total
	a.UpdatedAt = s.now().Unix()

	var enr *enrollment.Enrollment
	if !a.PendingReview() {
		a.Status = StatusGraded
		snap, err := s.snapshots.GetSnapshot(ctx, a.SnapshotID)
		if err != nil {
			return Attempt{}, apperr.Wrap(apperr.KindDataIntegrity, "attempt snapshot missing", err)
		}
		a.Passed = passed(a.Score, a.MaxPoints, snap.PassPercent)
		if enr, err = s.completedEnrollment(ctx, a); err != nil {
			return Attempt{}, err
		}
	}
	if err := s.store.FinalizeAttempt(ctx, a, nil, enr); err != nil {
		return Attempt{}, err
	}
	s.append(ctx, eventlog.TypeAttemptReviewed, a.ID, map[string]any{
		"item": itemIndex, "points": points, "status": a.Status,
	})
	return a, nil
}

// SaveAnnotations merge-patches one question's highlights and notes. Like
// every other student-side mutation it is rejected once the attempt leaves
// in_progress.
func (s *Service) SaveAnnotations(ctx context.Context, attemptID, questionID string, patch QuestionPatch) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusInProgress {
		return Attempt{}, apperr.New(apperr.KindAlreadyFinalized, "attempt is no longer in progress")
	}
	a.Annotations = ApplyAnnotationPatch(a.Annotations, questionID, patch)
	a.UpdatedAt = s.now().Unix()
	if err := s.store.SaveAttempt(ctx, a, nil); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// DeleteAnnotation removes one highlight+note pair. Idempotent: deleting an
// absent highlight succeeds and changes nothing.
func (s *Service) DeleteAnnotation(ctx context.Context, attemptID, questionID, area, highlightID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusInProgress {
		return Attempt{}, apperr.New(apperr.KindAlreadyFinalized, "attempt is no longer in progress")
	}
	a.Annotations = DeleteHighlight(a.Annotations, questionID, area, highlightID)
	a.UpdatedAt = s.now().Unix()
	if err := s.store.SaveAttempt(ctx, a, nil); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, attemptID string) (Attempt, error) {
	return s.store.GetAttempt(ctx, attemptID)
}

// Questions returns the attempt's frozen questions in presentation order.
// Callers must strip answer-key fields before rendering to students.
func (s *Service) Questions(ctx context.Context, attemptID string) ([]snapshot.Question, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.GetSnapshot(ctx, a.SnapshotID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDataIntegrity, "attempt snapshot missing", err)
	}
	if _, err := detailsByQuestion(&a, snap); err != nil {
		return nil, err
	}
	out := make([]snapshot.Question, 0, len(a.QuestionOrder))
	for _, idx := range a.QuestionOrder {
		if idx < 0 || idx >= len(snap.Questions) {
			return nil, apperr.Newf(apperr.KindDataIntegrity, "question order index %d out of range", idx)
		}
		out = append(out, snap.Questions[idx])
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

/* ---------------------------- internals ---------------------------- */

// enrollmentForCourse resolves (creating if missing) the caller's enrollment
// in the course. A missing enrollment degrades to a fresh one with a warning
// rather than blocking the session.
func (s *Service) enrollmentForCourse(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error) {
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

// parentAdvance computes the composite resume pointer after this module
// submits: the next quiz module in section order, or a cleared pointer after
// the last one.
func (s *Service) parentAdvance(ctx context.Context, a Attempt) (*ParentProgress, error) {
	if a.ParentID == "" {
		return nil, nil
	}
	mod, err := s.catalog.GetModule(ctx, a.ModuleID)
	if err != nil {
		return nil, err
	}
	crs, err := s.catalog.CourseForSection(ctx, mod.SectionID)
	if err != nil {
		return nil, err
	}
	ordered := course.QuizModulesInOrder(crs)
	for i, m := range ordered {
		if m.ID == a.ModuleID {
			if i+1 < len(ordered) {
				return &ParentProgress{ParentID: a.ParentID, NextModuleID: ordered[i+1].ID}, nil
			}
			return &ParentProgress{ParentID: a.ParentID, Clear: true}, nil
		}
	}
	s.log.Warn("submitted module not found in course order", "module_id", a.ModuleID, "course_id", crs.ID)
	return &ParentProgress{ParentID: a.ParentID, Clear: true}, nil
}

// completedEnrollment folds a terminal grade into the enrollment: module
// completion, cumulative point totals, derived grade and recomputed progress.
func (s *Service) completedEnrollment(ctx context.Context, a Attempt) (*enrollment.Enrollment, error) {
	enr, err := s.enrollments.GetEnrollment(ctx, a.EnrollmentID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			s.log.Warn("graded attempt has no enrollment", "attempt_id", a.ID)
			return nil, nil
		}
		return nil, err
	}
	now := s.now().Unix()
	enr.MarkModuleComplete(a.ModuleID, now)
	enr.QuizPoints += a.Score
	enr.QuizMaxPoints += a.MaxPoints
	enr.Grade = enr.DerivedGrade()
	if enr.Status == enrollment.StatusEnrolled {
		enr.Status = enrollment.StatusInProgress
	}
	if crs, err := s.catalog.GetCourse(ctx, enr.CourseID); err == nil {
		enr.Progress = progress.Percent(crs, enr.CompletedContent, enr.CompletedModules)
	} else {
		s.log.Warn("progress recompute skipped", "course_id", enr.CourseID, "err", err)
	}
	enr.UpdatedAt = now
	return &enr, nil
}

func (s *Service) append(ctx context.Context, typ, key string, data any) {
	if err := s.events.Append(ctx, typ, key, data); err != nil {
		s.log.Warn("event append failed", "type", typ, "key", key, "err", err)
	}
}

// detailsByQuestion pairs the attempt's detail records with the loaded
// snapshot. The pairing breaks when the module's snapshot was rebuilt with a
// different question set after the attempt began; saving and grading then
// refuse rather than score against a key the student never saw.
func detailsByQuestion(a *Attempt, snap snapshot.Snapshot) (map[string]*Detail, error) {
	if len(snap.Questions) != len(a.Details) {
		return nil, apperr.Newf(apperr.KindDataIntegrity,
			"snapshot %s has %d questions but the attempt recorded %d",
			snap.ID, len(snap.Questions), len(a.Details))
	}
	byID := make(map[string]*Detail, len(a.Details))
	for i := range a.Details {
		byID[a.Details[i].QuestionID] = &a.Details[i]
	}
	for _, q := range snap.Questions {
		if _, ok := byID[q.QuestionID]; !ok {
			return nil, apperr.Newf(apperr.KindDataIntegrity,
				"snapshot question %s is not part of the attempt", q.QuestionID)
		}
	}
	return byID, nil
}

// applyAnswers upserts the type-appropriate answer field per question.
// Questions absent from the payload keep their previous answer.
func applyAnswers(byID map[string]*Detail, snap snapshot.Snapshot, answers map[string]any) {
	if len(answers) == 0 {
		return
	}
	for _, q := range snap.Questions {
		raw, ok := answers[q.QuestionID]
		if !ok {
			continue
		}
		d := byID[q.QuestionID]
		switch q.Type {
		case course.QuestionMultipleChoice:
			if text, ok := raw.(string); ok {
				d.ChoiceAnswer = text
			}
		case course.QuestionTrueFalse:
			if b, ok := coerceAnswerBool(raw); ok {
				d.BoolAnswer = &b
			}
		case course.QuestionNumerical:
			d.TextAnswer = fmt.Sprint(raw)
			if f, ok := coerceAnswerFloat(raw); ok {
				d.NumberAnswer = &f
			} else {
				d.NumberAnswer = nil
			}
		default:
			d.TextAnswer = fmt.Sprint(raw)
		}
	}
}

// answerValue extracts the stored answer in the form the checker expects.
func answerValue(d Detail, t course.QuestionType) any {
	switch t {
	case course.QuestionMultipleChoice:
		return d.ChoiceAnswer
	case course.QuestionTrueFalse:
		if d.BoolAnswer == nil {
			return nil
		}
		return *d.BoolAnswer
	case course.QuestionNumerical:
		if d.NumberAnswer != nil {
			return *d.NumberAnswer
		}
		return d.TextAnswer
	default:
		return d.TextAnswer
	}
}

func coerceAnswerBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		if t == "true" {
			return true, true
		}
		if t == "false" {
			return false, true
		}
	}
	return false, false
}

func coerceAnswerFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func clampRemaining(v, budget int) int {
	if v < 0 {
		return 0
	}
	if budget > 0 && v > budget {
		return budget
	}
	return v
}

func passed(score, max, passPercent float64) bool {
	if score <= 0 {
		return false
	}
	if max <= 0 {
		return false
	}
	pct := 100 * score / max
	return pct >= passPercent || math.Abs(pct-passPercent) < 1e-9
}
