package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pathlight-learning/pathlight-lms/internal/course"
)

func fixtureCourse() course.Course {
	return course.Course{
		ID: "c1",
		Sections: []course.Section{
			{
				ID: "s1",
				Modules: []course.Module{
					{
						ID: "m-lesson", Type: course.ModuleLesson,
						Lesson: &course.LessonSpec{ContentIDs: []string{"c-1", "c-2", "c-3"}},
					},
					{ID: "m-quiz", Type: course.ModuleQuiz, Quiz: &course.QuizSpec{}},
				},
			},
		},
	}
}

func TestPercentCountsContentAndQuizUnits(t *testing.T) {
	crs := fixtureCourse()

	// 3 content items + 1 quiz module = 4 units
	assert.Equal(t, 0, Percent(crs, nil, nil))
	assert.Equal(t, 25, Percent(crs, map[string]int64{"c-1": 1}, nil))
	assert.Equal(t, 50, Percent(crs, map[string]int64{"c-1": 1, "c-2": 1}, nil))
	assert.Equal(t, 75, Percent(crs, map[string]int64{"c-1": 1, "c-2": 1}, map[string]int64{"m-quiz": 1}))
	assert.Equal(t, 100, Percent(crs,
		map[string]int64{"c-1": 1, "c-2": 1, "c-3": 1},
		map[string]int64{"m-quiz": 1}))
}

func TestPercentRounds(t *testing.T) {
	crs := course.Course{Sections: []course.Section{{Modules: []course.Module{
		{ID: "a", Type: course.ModuleQuiz, Quiz: &course.QuizSpec{}},
		{ID: "b", Type: course.ModuleQuiz, Quiz: &course.QuizSpec{}},
		{ID: "c", Type: course.ModuleQuizSAT, Quiz: &course.QuizSpec{}},
	}}}}

	// 1/3 → 33, 2/3 → 67
	assert.Equal(t, 33, Percent(crs, nil, map[string]int64{"a": 1}))
	assert.Equal(t, 67, Percent(crs, nil, map[string]int64{"a": 1, "b": 1}))
}

func TestPercentEmptyCourse(t *testing.T) {
	assert.Equal(t, 0, Percent(course.Course{}, nil, nil))
}

func TestPercentIgnoresStaleCompletions(t *testing.T) {
	crs := fixtureCourse()

	// Completions referencing removed content must not inflate the result.
	done := map[string]int64{"c-1": 1, "deleted-content": 1}
	assert.Equal(t, 25, Percent(crs, done, map[string]int64{"deleted-module": 1}))
}
