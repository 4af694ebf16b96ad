package snapshot

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
)

// Builder creates and reuses per-module question snapshots.
type Builder struct {
	catalog course.Catalog
	store   Store
	log     *slog.Logger
	rnd     *rand.Rand
}

func NewBuilder(catalog course.Catalog, store Store, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		catalog: catalog,
		store:   store,
		log:     log,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Ensure returns the module's snapshot, building and persisting one if none
// exists yet. Running attempts keep referencing whatever snapshot id they
// were created against.
func (b *Builder) Ensure(ctx context.Context, moduleID string) (Snapshot, error) {
	snap, err := b.store.GetSnapshotByModule(ctx, moduleID)
	if err == nil {
		return snap, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return Snapshot{}, err
	}
	return b.Rebuild(ctx, moduleID)
}

// Rebuild constructs a fresh snapshot from the module's live question list
// and persists it. If a snapshot already exists for the module its id is
// kept and the content is overwritten in place.
func (b *Builder) Rebuild(ctx context.Context, moduleID string) (Snapshot, error) {
	mod, err := b.catalog.GetModule(ctx, moduleID)
	if err != nil {
		return Snapshot{}, err
	}
	if mod.Quiz == nil {
		return Snapshot{}, apperr.Newf(apperr.KindInvalidState, "module %s is not a quiz", moduleID)
	}

	ids := b.orderedQuestionIDs(mod)
	bank, err := b.catalog.GetQuestions(ctx, ids)
	if err != nil {
		return Snapshot{}, err
	}

	questions := make([]Question, 0, len(ids))
	for _, id := range ids {
		q, ok := bank[id]
		if !ok {
			b.log.Warn("skipping deleted question", "module_id", moduleID, "question_id", id)
			continue
		}
		questions = append(questions, freeze(q))
	}
	if len(questions) == 0 {
		return Snapshot{}, apperr.Newf(apperr.KindDataIntegrity, "module %s has no gradable questions", moduleID)
	}

	now := time.Now().Unix()
	snap := Snapshot{
		ID:               uuid.NewString(),
		ModuleID:         moduleID,
		Questions:        questions,
		TimeLimitMin:     mod.Quiz.TimeLimitMin,
		PassPercent:      mod.Quiz.PassPercent,
		ShuffleQuestions: mod.Quiz.ShuffleQuestions,
		ZeroOnAutoSubmit: mod.Quiz.ZeroOnAutoSubmit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if prev, err := b.store.GetSnapshotByModule(ctx, moduleID); err == nil {
		snap.ID = prev.ID
		snap.CreatedAt = prev.CreatedAt
	}
	if err := b.store.PutSnapshot(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// orderedQuestionIDs flattens strand groups for SAT-style modules, shuffling
// within a strand when that strand asks for it. Standard modules keep their
// definition order; per-attempt shuffling happens when the attempt is
// created, not here.
func (b *Builder) orderedQuestionIDs(mod course.Module) []string {
	if mod.Type == course.ModuleQuizSAT && len(mod.Quiz.Strands) > 0 {
		var out []string
		for _, strand := range mod.Quiz.Strands {
			ids := make([]string, len(strand.QuestionIDs))
			copy(ids, strand.QuestionIDs)
			if strand.Shuffle {
				b.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			}
			out = append(out, ids...)
		}
		return out
	}
	return mod.Quiz.QuestionIDs
}

func freeze(q course.Question) Question {
	opts := make([]Option, len(q.Options))
	for i, o := range q.Options {
		opts[i] = Option{Text: o.Text, Correct: o.Correct}
	}
	return Question{
		QuestionID:     q.ID,
		Type:           q.Type,
		Text:           q.Text,
		TextDisplay:    q.TextDisplay,
		Context:        q.Context,
		ContextDisplay: q.ContextDisplay,
		Options:        opts,
		Answers:        append([]string(nil), q.Answers...),
		NumericAnswer:  q.NumericAnswer,
		Tolerance:      q.Tolerance,
		CaseSensitive:  q.CaseSensitive,
		RequiresManual: requiresManual(q.Type),
		Points:         q.Points,
		Feedback:       q.Feedback,
	}
}

func requiresManual(t course.QuestionType) bool {
	switch t {
	case course.QuestionMultipleChoice, course.QuestionTrueFalse,
		course.QuestionShortAnswer, course.QuestionNumerical:
		return false
	default:
		// essay and unknown types need a human
		return true
	}
}
