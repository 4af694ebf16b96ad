package attempt

import (
	"context"

	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
)

type Status string

const (
	StatusInProgress      Status = "in_progress"
	StatusPartiallyGraded Status = "partially_graded"
	StatusGraded          Status = "graded"
)

// Terminal reports whether no further mutation of the attempt is allowed.
// partially_graded looks final to the student but still accepts manual review.
func (s Status) Terminal() bool { return s == StatusGraded }

// Detail is the per-question record of one attempt. Details are created
// parallel to the snapshot's question list and re-paired by QuestionID on
// every save and grade; QuestionOrder holds the presentation order.
type Detail struct {
	QuestionID string `json:"question_id"`
	// The user's answer lives in the field matching the question type.
	TextAnswer   string   `json:"text_answer,omitempty"`
	ChoiceAnswer string   `json:"choice_answer,omitempty"`
	BoolAnswer   *bool    `json:"bool_answer,omitempty"`
	NumberAnswer *float64 `json:"number_answer,omitempty"`

	Correct              bool    `json:"correct"`
	PointsAwarded        float64 `json:"points_awarded"`
	PointsPossible       float64 `json:"points_possible"`
	RequiresManualReview bool    `json:"requires_manual_review,omitempty"`
	ManuallyGraded       bool    `json:"manually_graded,omitempty"`
	ReviewerID           string  `json:"reviewer_id,omitempty"`
	ReviewerNotes        string  `json:"reviewer_notes,omitempty"`
	MarkedForReview      bool    `json:"marked_for_review,omitempty"`
}

// Attempt is one student's session against a single quiz module.
type Attempt struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	ModuleID     string `json:"module_id"`
	EnrollmentID string `json:"enrollment_id"`
	// ParentID links a child session to its practice test attempt.
	ParentID   string `json:"parent_id,omitempty"`
	SnapshotID string `json:"snapshot_id"`
	// QuestionOrder is the (possibly shuffled) presentation order: indices
	// into the snapshot's question list.
	QuestionOrder []int    `json:"question_order"`
	Details       []Detail `json:"details"`
	// StartTime is nil while the clock is paused.
	StartTime    *int64        `json:"start_time,omitempty"`
	TimeLimitSec int           `json:"time_limit_sec"`
	RemainingSec int           `json:"remaining_sec"`
	Score        float64       `json:"score"`
	MaxPoints    float64       `json:"max_points"`
	Passed       bool          `json:"passed"`
	Status       Status        `json:"status"`
	CurrentIndex int           `json:"current_index"`
	Annotations  AnnotationMap `json:"annotations,omitempty"`
	CreatedAt    int64         `json:"created_at"`
	UpdatedAt    int64         `json:"updated_at"`
}

// CorrectCount is the raw count of correctly answered questions, independent
// of point weight. Scaled-score tables index by this.
func (a Attempt) CorrectCount() int {
	n := 0
	for _, d := range a.Details {
		if d.PointsAwarded > 0 {
			n++
		}
	}
	return n
}

// PendingReview reports whether any item still awaits manual grading.
func (a Attempt) PendingReview() bool {
	for _, d := range a.Details {
		if d.RequiresManualReview && !d.ManuallyGraded {
			return true
		}
	}
	return false
}

// ParentProgress describes a resume-pointer update on the owning practice
// test attempt, written in the same transaction as the attempt itself.
type ParentProgress struct {
	ParentID      string
	NextModuleID  string
	NextAttemptID string
	// Clear wipes the pointer after the last module submits.
	Clear bool
}

// ParentRef is the slice of a practice test attempt that Start needs to
// verify a child session registers on the caller's own test, in the right
// course.
type ParentRef struct {
	ID       string
	UserID   string
	CourseID string
}

type ListOpts struct {
	UserID   string
	ModuleID string
	ParentID string
	Status   Status
	Limit    int
	Offset   int
}

// Store persists attempts. Compound methods are atomic: an attempt row is
// never written without its parent registration or enrollment side effect.
type Store interface {
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// FindResumableAttempt returns the non-terminal attempt for the
	// (user, module, parent) key, or a NotFound error.
	FindResumableAttempt(ctx context.Context, userID, moduleID, parentID string) (Attempt, error)
	ListAttempts(ctx context.Context, opts ListOpts) ([]Attempt, error)
	// GetParentRef resolves the owning practice test attempt of a child
	// session, or a NotFound error.
	GetParentRef(ctx context.Context, parentID string) (ParentRef, error)
	// CreateAttempt inserts the attempt and registers its id on the parent
	// practice test attempt (or the enrollment) in one transaction.
	CreateAttempt(ctx context.Context, a Attempt) error
	// StartClock sets start_time only if it is still null and reports
	// whether this caller's write won.
	StartClock(ctx context.Context, id string, start int64) (bool, error)
	// SaveAttempt persists the attempt plus, when parent is non-nil, the
	// composite resume pointer in one transaction.
	SaveAttempt(ctx context.Context, a Attempt, parent *ParentProgress) error
	// FinalizeAttempt persists the attempt, the optional parent pointer and
	// the optional enrollment update atomically.
	FinalizeAttempt(ctx context.Context, a Attempt, parent *ParentProgress, enr *enrollment.Enrollment) error
}
