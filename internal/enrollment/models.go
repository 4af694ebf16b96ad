package enrollment

import "context"

type Status string

const (
	StatusEnrolled   Status = "enrolled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDropped    Status = "dropped"
)

// Enrollment is one learner's membership in a course. Progress is always
// derived by the progress aggregator, never hand-edited.
type Enrollment struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Grade    float64 `json:"grade"`
	// CompletedModules maps module id to completion unix time.
	CompletedModules map[string]int64 `json:"completed_modules"`
	// CompletedContent maps content id to completion unix time.
	CompletedContent map[string]int64 `json:"completed_content"`
	QuizPoints       float64          `json:"quiz_points"`
	QuizMaxPoints    float64          `json:"quiz_max_points"`
	QuizAttemptIDs   []string         `json:"quiz_attempt_ids"`
	TestAttemptIDs   []string         `json:"test_attempt_ids"`
	CreatedAt        int64            `json:"created_at"`
	UpdatedAt        int64            `json:"updated_at"`
}

type Store interface {
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	GetEnrollmentByUserCourse(ctx context.Context, userID, courseID string) (Enrollment, error)
	CreateEnrollment(ctx context.Context, e Enrollment) error
	UpdateEnrollment(ctx context.Context, e Enrollment) error
}

// MarkModuleComplete records the module id with a completion time. Repeat
// calls keep the first date.
func (e *Enrollment) MarkModuleComplete(moduleID string, now int64) {
	if e.CompletedModules == nil {
		e.CompletedModules = map[string]int64{}
	}
	if _, done := e.CompletedModules[moduleID]; !done {
		e.CompletedModules[moduleID] = now
	}
}

func (e *Enrollment) MarkContentComplete(contentID string, now int64) {
	if e.CompletedContent == nil {
		e.CompletedContent = map[string]int64{}
	}
	if _, done := e.CompletedContent[contentID]; !done {
		e.CompletedContent[contentID] = now
	}
}

// AddQuizAttempt registers an attempt id, set-style.
func (e *Enrollment) AddQuizAttempt(id string) {
	for _, have := range e.QuizAttemptIDs {
		if have == id {
			return
		}
	}
	e.QuizAttemptIDs = append(e.QuizAttemptIDs, id)
}

// AddTestAttempt registers a practice test attempt id, set-style.
func (e *Enrollment) AddTestAttempt(id string) {
	for _, have := range e.TestAttemptIDs {
		if have == id {
			return
		}
	}
	e.TestAttemptIDs = append(e.TestAttemptIDs, id)
}

// DerivedGrade is the point-weighted percentage across graded quiz work.
func (e *Enrollment) DerivedGrade() float64 {
	if e.QuizMaxPoints <= 0 {
		return 0
	}
	return float64(int(100*e.QuizPoints/e.QuizMaxPoints*100+0.5)) / 100
}
