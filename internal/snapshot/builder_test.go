package snapshot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
	"github.com/pathlight-learning/pathlight-lms/internal/store"
)

func seedCatalog(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()

	crs := course.Course{
		ID: "c1",
		Sections: []course.Section{{
			ID: "s1", Order: 1,
			Modules: []course.Module{
				{
					ID: "m-quiz", Type: course.ModuleQuiz, Order: 1,
					Quiz: &course.QuizSpec{
						QuestionIDs:  []string{"q1", "q2", "q-gone"},
						TimeLimitMin: 30,
						PassPercent:  60,
					},
				},
				{
					ID: "m-sat", Type: course.ModuleQuizSAT, Order: 2,
					Quiz: &course.QuizSpec{
						Strands: []course.Strand{
							{Name: "algebra", QuestionIDs: []string{"q2", "q1"}},
							{Name: "geometry", QuestionIDs: []string{"q3"}},
						},
					},
				},
				{
					ID: "m-lesson", Type: course.ModuleLesson, Order: 3,
					Lesson: &course.LessonSpec{ContentIDs: []string{"c-1"}},
				},
				{
					ID: "m-empty", Type: course.ModuleQuiz, Order: 4,
					Quiz: &course.QuizSpec{QuestionIDs: []string{"q-gone"}},
				},
			},
		}},
	}
	require.NoError(t, m.PutCourse(ctx, crs))
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q1", Type: course.QuestionMultipleChoice, Points: 1,
		Options: []course.Option{{Text: "A", Correct: true}, {Text: "B"}},
	}))
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q2", Type: course.QuestionNumerical, Points: 2, NumericAnswer: 7,
	}))
	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q3", Type: course.QuestionEssay, Points: 4,
	}))
	return m
}

func TestEnsureBuildsOnceThenReuses(t *testing.T) {
	m := seedCatalog(t)
	b := snapshot.NewBuilder(m, m, nil)
	ctx := context.Background()

	first, err := b.Ensure(ctx, "m-quiz")
	require.NoError(t, err)
	assert.Equal(t, "m-quiz", first.ModuleID)
	assert.Equal(t, 30, first.TimeLimitMin)
	assert.Equal(t, 60.0, first.PassPercent)

	second, err := b.Ensure(ctx, "m-quiz")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "existing snapshot is reused, not rebuilt")
	assert.Equal(t, first.Questions, second.Questions)
}

func TestRebuildSkipsDanglingQuestions(t *testing.T) {
	m := seedCatalog(t)
	b := snapshot.NewBuilder(m, m, nil)

	snap, err := b.Rebuild(context.Background(), "m-quiz")
	require.NoError(t, err)

	ids := make([]string, len(snap.Questions))
	for i, q := range snap.Questions {
		ids[i] = q.QuestionID
	}
	assert.Equal(t, []string{"q1", "q2"}, ids, "q-gone is silently dropped")
	assert.Equal(t, 3.0, snap.MaxPoints())
}

func TestRebuildKeepsIDAndSeesEdits(t *testing.T) {
	m := seedCatalog(t)
	b := snapshot.NewBuilder(m, m, nil)
	ctx := context.Background()

	first, err := b.Ensure(ctx, "m-quiz")
	require.NoError(t, err)

	require.NoError(t, m.PutQuestion(ctx, course.Question{
		ID: "q1", Type: course.QuestionMultipleChoice, Points: 5,
		Options: []course.Option{{Text: "A", Correct: true}},
	}))
	rebuilt, err := b.Rebuild(ctx, "m-quiz")
	require.NoError(t, err)

	assert.Equal(t, first.ID, rebuilt.ID, "rebuild overwrites in place")
	assert.Equal(t, 7.0, rebuilt.MaxPoints())
}

func TestRebuildFlattensStrands(t *testing.T) {
	m := seedCatalog(t)
	b := snapshot.NewBuilder(m, m, nil)

	snap, err := b.Rebuild(context.Background(), "m-sat")
	require.NoError(t, err)

	ids := make([]string, len(snap.Questions))
	for i, q := range snap.Questions {
		ids[i] = q.QuestionID
	}
	assert.Equal(t, []string{"q2", "q1", "q3"}, ids, "strand order, strands concatenated")
	assert.True(t, snap.Questions[2].RequiresManual, "essay is flagged for manual review")
	assert.False(t, snap.Questions[0].RequiresManual)
}

func TestRebuildErrors(t *testing.T) {
	m := seedCatalog(t)
	b := snapshot.NewBuilder(m, m, nil)
	ctx := context.Background()

	_, err := b.Rebuild(ctx, "m-empty")
	assert.True(t, apperr.IsKind(err, apperr.KindDataIntegrity), "all questions dangling: %v", err)

	_, err = b.Rebuild(ctx, "m-lesson")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "lesson module: %v", err)

	_, err = b.Rebuild(ctx, "m-missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "unknown module: %v", err)
}
