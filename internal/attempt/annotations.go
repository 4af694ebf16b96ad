package attempt

import "strings"

// Annotation areas within a question.
const (
	AreaText    = "text"
	AreaContext = "context"
)

// segmentSep joins serialized highlight-range tokens. Each token is prefixed
// with its highlight id, "hl-3:120-164" style.
const segmentSep = "|"

// AreaAnnotation holds one area's highlights: the serialized range string,
// notes keyed by highlight id, and the saved text snippet per highlight.
type AreaAnnotation struct {
	Serialized string            `json:"serialized,omitempty"`
	Notes      map[string]string `json:"notes,omitempty"`
	Snippets   map[string]string `json:"snippets,omitempty"`
}

func (a AreaAnnotation) empty() bool {
	return a.Serialized == "" && len(a.Notes) == 0
}

// QuestionAnnotations maps area name to its annotation record.
type QuestionAnnotations map[string]AreaAnnotation

// AnnotationMap maps question id to its per-area annotations.
type AnnotationMap map[string]QuestionAnnotations

// AreaPatch is a merge-patch for one area: nil fields are left untouched,
// present fields are set wholesale.
type AreaPatch struct {
	Serialized *string           `json:"serialized,omitempty"`
	Notes      map[string]string `json:"notes,omitempty"`
	Snippets   map[string]string `json:"snippets,omitempty"`
}

// QuestionPatch maps area name to its patch.
type QuestionPatch map[string]AreaPatch

// ApplyAnnotationPatch merges the patch into the map. An area whose merged
// content ends up empty (no serialized string, no notes) is removed outright
// rather than stored hollow; a question left with no areas is removed too.
func ApplyAnnotationPatch(m AnnotationMap, questionID string, patch QuestionPatch) AnnotationMap {
	if m == nil {
		m = AnnotationMap{}
	}
	areas := m[questionID]
	if areas == nil {
		areas = QuestionAnnotations{}
	}
	for area, p := range patch {
		cur := areas[area]
		if p.Serialized != nil {
			cur.Serialized = *p.Serialized
		}
		if p.Notes != nil {
			cur.Notes = p.Notes
		}
		if p.Snippets != nil {
			cur.Snippets = p.Snippets
		}
		if cur.empty() {
			delete(areas, area)
			continue
		}
		areas[area] = cur
	}
	if len(areas) == 0 {
		delete(m, questionID)
		return m
	}
	m[questionID] = areas
	return m
}

// DeleteHighlight removes one highlight's note, snippet and serialized
// segment from an area. Deleting a highlight that is already gone is a no-op;
// the call never fails.
func DeleteHighlight(m AnnotationMap, questionID, area, highlightID string) AnnotationMap {
	areas, ok := m[questionID]
	if !ok {
		return m
	}
	cur, ok := areas[area]
	if !ok {
		return m
	}
	delete(cur.Notes, highlightID)
	delete(cur.Snippets, highlightID)
	cur.Serialized = stripSegment(cur.Serialized, highlightID)
	if cur.empty() {
		delete(areas, area)
	} else {
		areas[area] = cur
	}
	if len(areas) == 0 {
		delete(m, questionID)
	}
	return m
}

// stripSegment drops every token belonging to the highlight and collapses
// the duplicate or boundary separators that removal leaves behind.
func stripSegment(serialized, highlightID string) string {
	if serialized == "" {
		return ""
	}
	parts := strings.Split(serialized, segmentSep)
	kept := parts[:0]
	for _, p := range parts {
		if p == "" || p == highlightID || strings.HasPrefix(p, highlightID+":") {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, segmentSep)
}
