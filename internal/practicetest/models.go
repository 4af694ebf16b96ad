package practicetest

import (
	"context"

	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
	"github.com/pathlight-learning/pathlight-lms/internal/scale"
)

// TestAttempt is one multi-module composite session: a full practice test
// spanning every quiz module of a course, played section by section.
type TestAttempt struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	CourseID      string   `json:"course_id"`
	AttemptNumber int      `json:"attempt_number"`
	SectionIDs    []string `json:"section_ids"`
	// Child quiz attempt ids, appended as modules are started.
	QuizAttemptIDs []string `json:"quiz_attempt_ids"`
	// One snapshot per covered quiz module, built at test start.
	SnapshotIDs []string       `json:"snapshot_ids"`
	Score       float64        `json:"score"`
	MaxPoints   float64        `json:"max_points"`
	Status      attempt.Status `json:"status"`
	// Resume pointers: the module to play next and, when mid-module, the
	// child attempt to reopen.
	NextModuleID  string            `json:"next_module_id,omitempty"`
	NextAttemptID string            `json:"next_attempt_id,omitempty"`
	Scaled        *scale.Breakdown  `json:"scaled,omitempty"`
	StartedAt     int64             `json:"started_at"`
	EndedAt       *int64            `json:"ended_at,omitempty"`
	UpdatedAt     int64             `json:"updated_at"`
}

type Store interface {
	GetTestAttempt(ctx context.Context, id string) (TestAttempt, error)
	// FindResumableTestAttempt returns the user's non-graded attempt for the
	// course, or a NotFound error.
	FindResumableTestAttempt(ctx context.Context, userID, courseID string) (TestAttempt, error)
	CountTestAttempts(ctx context.Context, userID, courseID string) (int, error)
	// SaveTestAttempt upserts the attempt and, when enr is non-nil, the
	// enrollment row in the same transaction.
	SaveTestAttempt(ctx context.Context, ta TestAttempt, enr *enrollment.Enrollment) error
	// ListChildAttempts returns the quiz attempts whose parent is this test.
	ListChildAttempts(ctx context.Context, parentID string) ([]attempt.Attempt, error)
}
