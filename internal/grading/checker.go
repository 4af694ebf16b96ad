package grading

import (
	"strconv"
	"strings"

	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

// strategy checks one question type. Implementations are pure.
type strategy interface {
	check(q snapshot.Question, answer any) bool
}

var strategies = map[course.QuestionType]strategy{
	course.QuestionMultipleChoice: choiceStrategy{},
	course.QuestionTrueFalse:      trueFalseStrategy{},
	course.QuestionShortAnswer:    textStrategy{},
	course.QuestionNumerical:      numericStrategy{},
}

// AutoGradable reports whether the engine can grade this question type
// without a human. Unknown types route to manual review.
func AutoGradable(t course.QuestionType) bool {
	_, ok := strategies[t]
	return ok
}

// Check grades a single raw answer against the snapshot question. The second
// return value is false when the type is not auto-gradable; the caller must
// then flag the item for manual review instead of trusting the first value.
func Check(q snapshot.Question, answer any) (correct bool, autoGradable bool) {
	s, ok := strategies[q.Type]
	if !ok {
		return false, false
	}
	if isEmpty(answer) {
		return false, true
	}
	return s.check(q, answer), true
}

func isEmpty(answer any) bool {
	switch v := answer.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

type choiceStrategy struct{}

func (choiceStrategy) check(q snapshot.Question, answer any) bool {
	text, ok := answer.(string)
	if !ok {
		return false
	}
	for _, opt := range q.Options {
		if opt.Correct && opt.Text == text {
			return true
		}
	}
	return false
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) check(q snapshot.Question, answer any) bool {
	user, ok := coerceBool(answer)
	if !ok {
		return false
	}
	want, ok := correctBool(q)
	if !ok {
		return false
	}
	return user == want
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// correctBool reads the expected value from either the option list or the
// accepted-answer list, whichever the question was authored with.
func correctBool(q snapshot.Question) (bool, bool) {
	for _, opt := range q.Options {
		if opt.Correct {
			return coerceBool(opt.Text)
		}
	}
	if len(q.Answers) > 0 {
		return coerceBool(q.Answers[0])
	}
	return false, false
}

type textStrategy struct{}

func (textStrategy) check(q snapshot.Question, answer any) bool {
	text, ok := answer.(string)
	if !ok {
		return false
	}
	text = strings.TrimSpace(text)
	for _, accepted := range q.Answers {
		accepted = strings.TrimSpace(accepted)
		if q.CaseSensitive {
			if text == accepted {
				return true
			}
		} else if strings.EqualFold(text, accepted) {
			return true
		}
	}
	return false
}

type numericStrategy struct{}

func (numericStrategy) check(q snapshot.Question, answer any) bool {
	user, ok := coerceFloat(answer)
	if !ok {
		return false
	}
	diff := user - q.NumericAnswer
	if diff < 0 {
		diff = -diff
	}
	return diff <= q.Tolerance
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
		// tolerate trailing units, e.g. "5.0 cm"
		if fields := strings.Fields(s); len(fields) > 0 {
			if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
