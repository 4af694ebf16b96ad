package snapshot

import (
	"context"

	"github.com/pathlight-learning/pathlight-lms/internal/course"
)

// Snapshot freezes a quiz module's questions and settings at attempt-creation
// time. One snapshot exists per module; every attempt of that module pins it
// by id. Only the builder writes snapshots.
type Snapshot struct {
	ID               string     `json:"id"`
	ModuleID         string     `json:"module_id"`
	Questions        []Question `json:"questions"`
	TimeLimitMin     int        `json:"time_limit_min"`
	PassPercent      float64    `json:"pass_percent"`
	ShuffleQuestions bool       `json:"shuffle_questions"`
	ZeroOnAutoSubmit bool       `json:"zero_on_auto_submit"`
	CreatedAt        int64      `json:"created_at"`
	UpdatedAt        int64      `json:"updated_at"`
}

// Question is the frozen copy of a bank question, including the answer key.
// It is never served to students with the key attached; the API layer strips
// key fields before rendering.
type Question struct {
	QuestionID     string              `json:"question_id"`
	Type           course.QuestionType `json:"type"`
	Text           string              `json:"text"`
	TextDisplay    string              `json:"text_display,omitempty"`
	Context        string              `json:"context,omitempty"`
	ContextDisplay string              `json:"context_display,omitempty"`
	Options        []Option            `json:"options,omitempty"`
	Answers        []string            `json:"answers,omitempty"`
	NumericAnswer  float64             `json:"numeric_answer,omitempty"`
	Tolerance      float64             `json:"tolerance,omitempty"`
	CaseSensitive  bool                `json:"case_sensitive,omitempty"`
	RequiresManual bool                `json:"requires_manual"`
	Points         float64             `json:"points"`
	Feedback       string              `json:"feedback,omitempty"`
}

type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Store persists snapshots keyed by module id.
type Store interface {
	GetSnapshot(ctx context.Context, id string) (Snapshot, error)
	GetSnapshotByModule(ctx context.Context, moduleID string) (Snapshot, error)
	PutSnapshot(ctx context.Context, s Snapshot) error
}

// MaxPoints sums the point values of all questions in the snapshot.
func (s Snapshot) MaxPoints() float64 {
	total := 0.0
	for _, q := range s.Questions {
		total += q.Points
	}
	return total
}
