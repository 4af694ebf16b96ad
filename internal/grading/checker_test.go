package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

func TestCheckMultipleChoice(t *testing.T) {
	q := snapshot.Question{
		Type: course.QuestionMultipleChoice,
		Options: []snapshot.Option{
			{Text: "Paris", Correct: true},
			{Text: "London"},
			{Text: "Berlin"},
		},
	}

	correct, auto := Check(q, "Paris")
	assert.True(t, auto)
	assert.True(t, correct)

	correct, _ = Check(q, "London")
	assert.False(t, correct)

	correct, _ = Check(q, "paris") // option text match is exact
	assert.False(t, correct)
}

func TestCheckTrueFalse(t *testing.T) {
	byOption := snapshot.Question{
		Type:    course.QuestionTrueFalse,
		Options: []snapshot.Option{{Text: "true", Correct: true}, {Text: "false"}},
	}
	byAnswer := snapshot.Question{
		Type:    course.QuestionTrueFalse,
		Answers: []string{"false"},
	}

	correct, _ := Check(byOption, true)
	assert.True(t, correct)
	correct, _ = Check(byOption, "True")
	assert.True(t, correct)
	correct, _ = Check(byOption, false)
	assert.False(t, correct)

	correct, _ = Check(byAnswer, false)
	assert.True(t, correct)
	correct, _ = Check(byAnswer, "maybe")
	assert.False(t, correct)
}

func TestCheckShortAnswer(t *testing.T) {
	q := snapshot.Question{
		Type:    course.QuestionShortAnswer,
		Answers: []string{"mitochondria", "the mitochondria"},
	}

	for _, ans := range []string{"mitochondria", "  Mitochondria ", "THE MITOCHONDRIA"} {
		correct, _ := Check(q, ans)
		assert.True(t, correct, "answer %q", ans)
	}
	correct, _ := Check(q, "ribosome")
	assert.False(t, correct)

	q.CaseSensitive = true
	correct, _ = Check(q, "Mitochondria")
	assert.False(t, correct)
	correct, _ = Check(q, "mitochondria")
	assert.True(t, correct)
}

func TestCheckNumerical(t *testing.T) {
	q := snapshot.Question{
		Type:          course.QuestionNumerical,
		NumericAnswer: 5.0,
		Tolerance:     0.1,
	}

	cases := []struct {
		answer any
		want   bool
	}{
		{5.0, true},
		{5.05, true},
		{4.9, true},
		{5.2, false},
		{"5.05", true},
		{"5.0 cm", true}, // trailing unit tolerated
		{"five", false},
	}
	for _, tc := range cases {
		correct, auto := Check(q, tc.answer)
		assert.True(t, auto)
		assert.Equal(t, tc.want, correct, "answer %v", tc.answer)
	}
}

func TestCheckEmptyAnswerIsIncorrect(t *testing.T) {
	q := snapshot.Question{Type: course.QuestionShortAnswer, Answers: []string{""}}

	correct, auto := Check(q, "")
	assert.True(t, auto)
	assert.False(t, correct, "blank answers never earn points, even for blank keys")

	correct, _ = Check(q, nil)
	assert.False(t, correct)
}

func TestCheckEssayNotAutoGradable(t *testing.T) {
	q := snapshot.Question{Type: course.QuestionEssay}

	_, auto := Check(q, "a thoughtful response")
	assert.False(t, auto)
	assert.False(t, AutoGradable(course.QuestionEssay))
	assert.False(t, AutoGradable(course.QuestionType("drag_and_drop")))
}
