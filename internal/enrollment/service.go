package enrollment

import (
	"context"
	"log/slog"
	"time"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/progress"
)

// Service handles learner-driven completion bookkeeping. Progress is always
// recomputed from the course graph after any completion change.
type Service struct {
	store   Store
	catalog course.Catalog
	log     *slog.Logger
	now     func() time.Time
}

func NewService(store Store, catalog course.Catalog, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, catalog: catalog, log: log, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (Enrollment, error) {
	return s.store.GetEnrollment(ctx, id)
}

// CompleteContent marks one lesson content item done and recomputes progress.
func (s *Service) CompleteContent(ctx context.Context, enrollmentID, contentID string) (Enrollment, error) {
	enr, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	now := s.now().Unix()
	enr.MarkContentComplete(contentID, now)
	if enr.Status == StatusEnrolled {
		enr.Status = StatusInProgress
	}
	return s.finish(ctx, enr, now)
}

// CompleteModule marks a lesson module done. Every content item of the
// module must already be complete; quiz modules complete through grading,
// not through this call.
func (s *Service) CompleteModule(ctx context.Context, enrollmentID, moduleID string) (Enrollment, error) {
	enr, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	mod, err := s.catalog.GetModule(ctx, moduleID)
	if err != nil {
		return Enrollment{}, err
	}
	switch mod.Type {
	case course.ModuleLesson:
		if mod.Lesson != nil {
			for _, contentID := range mod.Lesson.ContentIDs {
				if _, done := enr.CompletedContent[contentID]; !done {
					return Enrollment{}, apperr.Newf(apperr.KindInvalidState,
						"content %s of module %s is not complete", contentID, moduleID)
				}
			}
		}
	default:
		return Enrollment{}, apperr.New(apperr.KindInvalidState,
			"quiz modules are completed by grading, not manually")
	}
	now := s.now().Unix()
	enr.MarkModuleComplete(moduleID, now)
	if enr.Status == StatusEnrolled {
		enr.Status = StatusInProgress
	}
	return s.finish(ctx, enr, now)
}

// RecomputeProgress re-derives the percentage without changing completion
// state, e.g. after a course's structure was edited.
func (s *Service) RecomputeProgress(ctx context.Context, enrollmentID string) (Enrollment, error) {
	enr, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	return s.finish(ctx, enr, s.now().Unix())
}

func (s *Service) finish(ctx context.Context, enr Enrollment, now int64) (Enrollment, error) {
	crs, err := s.catalog.GetCourse(ctx, enr.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	enr.Progress = progress.Percent(crs, enr.CompletedContent, enr.CompletedModules)
	enr.UpdatedAt = now
	if err := s.store.UpdateEnrollment(ctx, enr); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}
