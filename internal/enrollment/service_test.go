package enrollment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
	"github.com/pathlight-learning/pathlight-lms/internal/store"
)

func newFixture(t *testing.T) (*store.Memory, *enrollment.Service) {
	t.Helper()
	m := store.NewMemory()
	ctx := context.Background()

	crs := course.Course{
		ID: "c1",
		Sections: []course.Section{{
			ID: "s1", Order: 1,
			Modules: []course.Module{
				{
					ID: "m-lesson", Type: course.ModuleLesson, Order: 1,
					Lesson: &course.LessonSpec{ContentIDs: []string{"c-1", "c-2"}},
				},
				{ID: "m-quiz", Type: course.ModuleQuiz, Order: 2, Quiz: &course.QuizSpec{QuestionIDs: []string{"q1"}}},
			},
		}},
	}
	require.NoError(t, m.PutCourse(ctx, crs))
	require.NoError(t, m.CreateEnrollment(ctx, enrollment.Enrollment{
		ID: "e1", UserID: "alice", CourseID: "c1", Status: enrollment.StatusEnrolled,
	}))
	return m, enrollment.NewService(m, m, nil)
}

func TestCompleteContentUpdatesProgress(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	// 2 content items + 1 quiz module = 3 units.
	enr, err := svc.CompleteContent(ctx, "e1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusInProgress, enr.Status)
	assert.Equal(t, 33, enr.Progress)

	enr, err = svc.CompleteContent(ctx, "e1", "c-2")
	require.NoError(t, err)
	assert.Equal(t, 67, enr.Progress)

	// Completing the same item again changes nothing.
	enr, err = svc.CompleteContent(ctx, "e1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, 67, enr.Progress)
}

func TestCompleteModuleRequiresAllContent(t *testing.T) {
	_, svc := newFixture(t)
	ctx := context.Background()

	_, err := svc.CompleteModule(ctx, "e1", "m-lesson")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "content still open: %v", err)

	_, err = svc.CompleteContent(ctx, "e1", "c-1")
	require.NoError(t, err)
	_, err = svc.CompleteContent(ctx, "e1", "c-2")
	require.NoError(t, err)

	enr, err := svc.CompleteModule(ctx, "e1", "m-lesson")
	require.NoError(t, err)
	assert.Contains(t, enr.CompletedModules, "m-lesson")
}

func TestCompleteModuleRejectsQuizModules(t *testing.T) {
	_, svc := newFixture(t)

	_, err := svc.CompleteModule(context.Background(), "e1", "m-quiz")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), "quiz completion is grading's job: %v", err)
}

func TestRecomputeProgress(t *testing.T) {
	m, svc := newFixture(t)
	ctx := context.Background()

	_, err := svc.CompleteContent(ctx, "e1", "c-1")
	require.NoError(t, err)

	// Simulate a course edit that removed c-2: recompute re-derives from the
	// current graph without touching completion state.
	crs, err := m.GetCourse(ctx, "c1")
	require.NoError(t, err)
	crs.Sections[0].Modules[0].Lesson.ContentIDs = []string{"c-1"}
	require.NoError(t, m.PutCourse(ctx, crs))

	enr, err := svc.RecomputeProgress(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 50, enr.Progress, "1 content + 1 quiz unit, content done")
}
