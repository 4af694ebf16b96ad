package attempt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
	"github.com/pathlight-learning/pathlight-lms/internal/store"
)

// fixture: one course, a lesson, a mixed quiz (two auto items plus an essay)
// and a strict quiz that zeroes expired sessions.
func newFixture(t *testing.T) (*store.Memory, *attempt.Service) {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()

	crs := course.Course{
		ID: "c1",
		Sections: []course.Section{{
			ID: "s1", Order: 1, Title: "Unit One",
			Modules: []course.Module{
				{
					ID: "m-lesson", Type: course.ModuleLesson, Order: 1,
					Lesson: &course.LessonSpec{ContentIDs: []string{"c-1"}},
				},
				{
					ID: "m-mixed", Type: course.ModuleQuiz, Order: 2,
					Quiz: &course.QuizSpec{
						QuestionIDs:  []string{"q-choice", "q-num", "q-essay"},
						TimeLimitMin: 10,
						PassPercent:  50,
					},
				},
				{
					ID: "m-strict", Type: course.ModuleQuiz, Order: 3,
					Quiz: &course.QuizSpec{
						QuestionIDs:      []string{"q-choice"},
						TimeLimitMin:     5,
						PassPercent:      50,
						ZeroOnAutoSubmit: true,
					},
				},
			},
		}},
	}
	require.NoError(t, m.PutCourse(ctx, crs))
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q-choice", Type: course.QuestionMultipleChoice, Points: 1,
		Options: []course.Option{{Text: "A", Correct: true}, {Text: "B"}},
	}))
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q-num", Type: course.QuestionNumerical, Points: 1, NumericAnswer: 7, Tolerance: 0.01,
	}))
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q-essay", Type: course.QuestionEssay, Points: 2,
	}))

	builder := snapshot.NewBuilder(m, m, nil)
	svc := attempt.NewService(m, m, builder, m, m, m, nil)
	return m, svc
}

func TestStartIsIdempotent(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	first, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)
	assert.Equal(t, attempt.StatusInProgress, first.Status)
	assert.Nil(t, first.StartTime, "created paused")
	assert.Equal(t, 600, first.TimeLimitSec)
	assert.Equal(t, 600, first.RemainingSec)
	assert.Len(t, first.Details, 3)
	assert.Equal(t, []int{0, 1, 2}, first.QuestionOrder, "no shuffle requested")
	assert.Equal(t, 4.0, first.MaxPoints)

	again, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "resumable attempt is returned as-is")

	other, err := svc.Start(ctx, "bob", "m-mixed", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "attempts are per user")
}

func TestStartCreatesEnrollmentWhenMissing(t *testing.T) {
	m, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)
	require.NotEmpty(t, a.EnrollmentID)

	enr, err := m.GetEnrollment(ctx, a.EnrollmentID)
	require.NoError(t, err)
	assert.Equal(t, "c1", enr.CourseID)
	assert.Contains(t, enr.QuizAttemptIDs, a.ID)
}

func TestStartTimedSession(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)

	armed, remaining, err := svc.StartTimedSession(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, armed.StartTime)
	assert.GreaterOrEqual(t, remaining, 598)
	assert.LessOrEqual(t, remaining, 600)

	// Second call does not rearm; it reads the running clock.
	rearmed, _, err := svc.StartTimedSession(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, *armed.StartTime, *rearmed.StartTime)
}

func TestSaveAnswersPausesClock(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)
	_, _, err = svc.StartTimedSession(ctx, a.ID)
	require.NoError(t, err)

	saved, err := svc.SaveAnswers(ctx, a.ID, attempt.SaveRequest{
		Answers:         map[string]any{"q-choice": "A", "q-num": "7"},
		CurrentIndex:    2,
		RemainingSec:    540,
		MarkedForReview: []string{"q-num"},
	})
	require.NoError(t, err)

	assert.Nil(t, saved.StartTime, "saving pauses the countdown")
	assert.Equal(t, 540, saved.RemainingSec)
	assert.Equal(t, 2, saved.CurrentIndex)
	assert.Equal(t, "A", saved.Details[0].ChoiceAnswer)
	require.NotNil(t, saved.Details[1].NumberAnswer)
	assert.Equal(t, 7.0, *saved.Details[1].NumberAnswer)
	assert.True(t, saved.Details[1].MarkedForReview)
	assert.False(t, saved.Details[0].MarkedForReview)
}

func TestSaveAnswersClampsRemaining(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)

	saved, err := svc.SaveAnswers(ctx, a.ID, attempt.SaveRequest{RemainingSec: -5})
	require.NoError(t, err)
	assert.Equal(t, 0, saved.RemainingSec)

	saved, err = svc.SaveAnswers(ctx, a.ID, attempt.SaveRequest{RemainingSec: 9999})
	require.NoError(t, err)
	assert.Equal(t, 600, saved.RemainingSec)
}

func TestSubmitWithManualItemsPartiallyGrades(t *testing.T) {
	m, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)

	graded, err := svc.Submit(ctx, a.ID, map[string]any{
		"q-choice": "A",
		"q-num":    7.0,
		"q-essay":  "my considered view",
	}, false)
	require.NoError(t, err)

	assert.Equal(t, attempt.StatusPartiallyGraded, graded.Status)
	assert.Equal(t, 2.0, graded.Score, "essay contributes zero until reviewed")
	assert.True(t, graded.Details[0].Correct)
	assert.True(t, graded.Details[1].Correct)
	assert.True(t, graded.Details[2].RequiresManualReview)
	assert.False(t, graded.Details[2].ManuallyGraded)

	// Not yet terminal: the enrollment has no module completion.
	enr, err := m.GetEnrollment(ctx, a.EnrollmentID)
	require.NoError(t, err)
	assert.NotContains(t, enr.CompletedModules, "m-mixed")

	_, err = svc.Submit(ctx, a.ID, nil, false)
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadyFinalized), "double submit: %v", err)
}

func TestReviewItemCompletesGrading(t *testing.T) {
	m, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, a.ID, map[string]any{"q-choice": "A", "q-num": 7.0, "q-essay": "essay"}, false)
	require.NoError(t, err)

	// Bounds and state guards.
	_, err = svc.ReviewItem(ctx, a.ID, 7, 1, "", "grader")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "index out of range: %v", err)
	_, err = svc.ReviewItem(ctx, a.ID, 0, 1, "", "grader")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "auto-graded item: %v", err)
	_, err = svc.ReviewItem(ctx, a.ID, 2, 3, "", "grader")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "score above possible: %v", err)

	reviewed, err := svc.ReviewItem(ctx, a.ID, 2, 2, "well argued", "grader")
	require.NoError(t, err)
	assert.Equal(t, attempt.StatusGraded, reviewed.Status)
	assert.Equal(t, 4.0, reviewed.Score)
	assert.True(t, reviewed.Passed)
	assert.Equal(t, "grader", reviewed.Details[2].ReviewerID)
	assert.Equal(t, "well argued", reviewed.Details[2].ReviewerNotes)

	// Terminal grade flowed into the enrollment.
	enr, err := m.GetEnrollment(ctx, a.EnrollmentID)
	require.NoError(t, err)
	assert.Contains(t, enr.CompletedModules, "m-mixed")
	assert.Equal(t, 4.0, enr.QuizPoints)
	assert.Equal(t, 4.0, enr.QuizMaxPoints)
	assert.Equal(t, 100.0, enr.Grade)
	// 1 content item + 2 quiz modules, one quiz done → 33%.
	assert.Equal(t, 33, enr.Progress)

	_, err = svc.ReviewItem(ctx, a.ID, 2, 1, "", "grader")
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadyFinalized), "review after graded: %v", err)
}

func TestZeroOnAutoSubmit(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-strict", "")
	require.NoError(t, err)

	graded, err := svc.Submit(ctx, a.ID, map[string]any{"q-choice": "A"}, true)
	require.NoError(t, err)
	assert.Equal(t, attempt.StatusGraded, graded.Status)
	assert.Equal(t, 0.0, graded.Score, "expired strict session scores zero despite correct answers")
	assert.False(t, graded.Passed)

	// A fresh attempt is possible afterwards.
	next, err := svc.Start(ctx, "alice", "m-strict", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, next.ID)
}

func TestRebuildWhileInFlightRefusesToGrade(t *testing.T) {
	m, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)

	// An instructor adds a question to the module and rebuilds the snapshot
	// in place while alice's session is open.
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q-extra", Type: course.QuestionMultipleChoice, Points: 1,
		Options: []course.Option{{Text: "X", Correct: true}},
	}))
	crs, err := m.GetCourse(ctx, "c1")
	require.NoError(t, err)
	crs.Sections[0].Modules[1].Quiz.QuestionIDs = append(
		crs.Sections[0].Modules[1].Quiz.QuestionIDs, "q-extra")
	require.NoError(t, m.PutCourse(ctx, crs))
	builder := snapshot.NewBuilder(m, m, nil)
	rebuilt, err := builder.Rebuild(ctx, "m-mixed")
	require.NoError(t, err)
	require.Equal(t, a.SnapshotID, rebuilt.ID, "rebuild keeps the snapshot id")

	_, err = svc.SaveAnswers(ctx, a.ID, attempt.SaveRequest{Answers: map[string]any{"q-choice": "A"}})
	assert.True(t, apperr.IsKind(err, apperr.KindDataIntegrity), "save against changed key: %v", err)

	_, err = svc.Submit(ctx, a.ID, map[string]any{"q-choice": "A"}, false)
	assert.True(t, apperr.IsKind(err, apperr.KindDataIntegrity), "grade against changed key: %v", err)
}

func TestAnnotationsLockAfterGrading(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-strict", "")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, a.ID, map[string]any{"q-choice": "A"}, false)
	require.NoError(t, err)

	serialized := "hl-1:0-4"
	_, err = svc.SaveAnnotations(ctx, a.ID, "q-choice", attempt.QuestionPatch{
		attempt.AreaText: {Serialized: &serialized},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadyFinalized), "annotate after graded: %v", err)

	_, err = svc.DeleteAnnotation(ctx, a.ID, "q-choice", attempt.AreaText, "hl-1")
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadyFinalized), "delete after graded: %v", err)
}

func TestSaveAndDeleteAnnotations(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	a, err := svc.Start(ctx, "alice", "m-mixed", "")
	require.NoError(t, err)

	serialized := "hl-1:10-24"
	a, err = svc.SaveAnnotations(ctx, a.ID, "q-choice", attempt.QuestionPatch{
		attempt.AreaText: {Serialized: &serialized, Notes: map[string]string{"hl-1": "tricky"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "tricky", a.Annotations["q-choice"][attempt.AreaText].Notes["hl-1"])

	a, err = svc.DeleteAnnotation(ctx, a.ID, "q-choice", attempt.AreaText, "hl-1")
	require.NoError(t, err)
	assert.Empty(t, a.Annotations)

	// Deleting again is fine.
	a, err = svc.DeleteAnnotation(ctx, a.ID, "q-choice", attempt.AreaText, "hl-1")
	require.NoError(t, err)
	assert.Empty(t, a.Annotations)
}
