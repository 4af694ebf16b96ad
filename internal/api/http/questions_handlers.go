package http

import (
	"net/http"

	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/snapshot"
)

// questionView is the student-facing rendering of a frozen question: no
// correct flags, no accepted answers, no tolerance.
type questionView struct {
	QuestionID     string              `json:"question_id"`
	Type           course.QuestionType `json:"type"`
	Text           string              `json:"text"`
	TextDisplay    string              `json:"text_display,omitempty"`
	Context        string              `json:"context,omitempty"`
	ContextDisplay string              `json:"context_display,omitempty"`
	Options        []string            `json:"options,omitempty"`
	Points         float64             `json:"points"`
}

func sanitize(q snapshot.Question) questionView {
	v := questionView{
		QuestionID:     q.QuestionID,
		Type:           q.Type,
		Text:           q.Text,
		TextDisplay:    q.TextDisplay,
		Context:        q.Context,
		ContextDisplay: q.ContextDisplay,
		Points:         q.Points,
	}
	for _, opt := range q.Options {
		v.Options = append(v.Options, opt.Text)
	}
	return v
}

// GET /api/attempts/{attemptID}/questions — the attempt's frozen questions in
// presentation order, answer keys stripped.
func AttemptQuestionsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := viewableAttempt(r, svc)
		if err != nil {
			writeErr(w, err)
			return
		}
		questions, err := svc.Questions(r.Context(), a.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		views := make([]questionView, len(questions))
		for i, q := range questions {
			views[i] = sanitize(q)
		}
		writeJSON(w, http.StatusOK, views)
	}
}
