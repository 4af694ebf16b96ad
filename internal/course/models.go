package course

import (
	"context"
	"sort"
)

// ModuleType is the discriminator of the module tagged union. Lesson modules
// carry content items, quiz modules carry a flat question list, SAT-style
// modules carry strand groups.
type ModuleType string

const (
	ModuleLesson  ModuleType = "lesson"
	ModuleQuiz    ModuleType = "quiz"
	ModuleQuizSAT ModuleType = "quiz_sat"
)

// QuestionType values understood by the grading engine. Anything else routes
// to manual review.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionNumerical      QuestionType = "numerical"
	QuestionEssay          QuestionType = "essay"
)

type Course struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
	// ScoredGroup tags the section for scaled scoring ("rw" or "math").
	// Empty means classify by title keywords.
	ScoredGroup string   `json:"scored_group,omitempty"`
	Modules     []Module `json:"modules"`
}

type Module struct {
	ID        string      `json:"id"`
	SectionID string      `json:"section_id"`
	Title     string      `json:"title"`
	Type      ModuleType  `json:"type"`
	Order     int         `json:"order"`
	Lesson    *LessonSpec `json:"lesson,omitempty"`
	Quiz      *QuizSpec   `json:"quiz,omitempty"`
}

type LessonSpec struct {
	ContentIDs []string `json:"content_ids"`
}

type QuizSpec struct {
	QuestionIDs      []string `json:"question_ids,omitempty"`
	Strands          []Strand `json:"strands,omitempty"` // quiz_sat only
	TimeLimitMin     int      `json:"time_limit_min"`
	PassPercent      float64  `json:"pass_percent"`
	ShuffleQuestions bool     `json:"shuffle_questions"`
	// ZeroOnAutoSubmit forces score 0 when the clock expires and the client
	// auto-submits.
	ZeroOnAutoSubmit bool `json:"zero_on_auto_submit"`
}

// Strand is a named sub-group of questions within an SAT-style module.
type Strand struct {
	Name        string   `json:"name"`
	QuestionIDs []string `json:"question_ids"`
	Shuffle     bool     `json:"shuffle"`
}

// Question is the live, editable bank entry. The snapshot builder copies the
// fields it needs; attempts never read the bank directly.
type Question struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Text           string       `json:"text"`
	TextDisplay    string       `json:"text_display,omitempty"`
	Context        string       `json:"context,omitempty"`
	ContextDisplay string       `json:"context_display,omitempty"`
	Options        []Option     `json:"options,omitempty"`
	Answers        []string     `json:"answers,omitempty"`
	NumericAnswer  float64      `json:"numeric_answer,omitempty"`
	Tolerance      float64      `json:"tolerance,omitempty"`
	CaseSensitive  bool         `json:"case_sensitive,omitempty"`
	Points         float64      `json:"points"`
	Feedback       string       `json:"feedback,omitempty"`
}

type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// AllQuestionIDs returns the module's question ids in definition order,
// strands flattened.
func (q *QuizSpec) AllQuestionIDs() []string {
	if len(q.Strands) == 0 {
		return q.QuestionIDs
	}
	var out []string
	for _, s := range q.Strands {
		out = append(out, s.QuestionIDs...)
	}
	return out
}

// Catalog is the boundary to the course/content CRUD collaborator. The
// grading engine only reads from it.
type Catalog interface {
	GetCourse(ctx context.Context, id string) (Course, error)
	// CourseForSection resolves the course owning a section.
	CourseForSection(ctx context.Context, sectionID string) (Course, error)
	GetModule(ctx context.Context, moduleID string) (Module, error)
	// GetQuestions returns the bank entries found for ids; dangling ids are
	// simply absent from the result.
	GetQuestions(ctx context.Context, ids []string) (map[string]Question, error)
}

// QuizModulesInOrder returns the course's quiz-type modules ordered by
// section order then module order. This is the play order of a practice test.
func QuizModulesInOrder(c Course) []Module {
	var out []Module
	for _, s := range SectionsInOrder(c) {
		for _, m := range ModulesInOrder(s) {
			if m.Type == ModuleQuiz || m.Type == ModuleQuizSAT {
				out = append(out, m)
			}
		}
	}
	return out
}

func SectionsInOrder(c Course) []Section {
	out := make([]Section, len(c.Sections))
	copy(out, c.Sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func ModulesInOrder(s Section) []Module {
	out := make([]Module, len(s.Modules))
	copy(out, s.Modules)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
