// Package progress derives an enrollment's completion percentage from the
// course graph. It is recomputed from scratch on every completion change;
// nothing here is incremental.
package progress

import (
	"math"

	"github.com/pathlight-learning/pathlight-lms/internal/course"
)

// Percent walks the course's section→module→content graph. Each lesson
// content item counts once in the denominator; each quiz-type module counts
// exactly once and is earned iff its id is in completedModules. Returns
// round(100*num/den) clamped to 100, or 0 for an empty course.
func Percent(c course.Course, completedContent map[string]int64, completedModules map[string]int64) int {
	num, den := 0, 0
	for _, sec := range c.Sections {
		for _, mod := range sec.Modules {
			switch mod.Type {
			case course.ModuleLesson:
				if mod.Lesson == nil {
					continue
				}
				for _, contentID := range mod.Lesson.ContentIDs {
					den++
					if _, done := completedContent[contentID]; done {
						num++
					}
				}
			case course.ModuleQuiz, course.ModuleQuizSAT:
				den++
				if _, done := completedModules[mod.ID]; done {
					num++
				}
			}
		}
	}
	if den == 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(num) / float64(den)))
	if pct > 100 {
		pct = 100
	}
	return pct
}
