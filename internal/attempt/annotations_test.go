package attempt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestApplyAnnotationPatchMerges(t *testing.T) {
	m := AnnotationMap{}

	m = ApplyAnnotationPatch(m, "q1", QuestionPatch{
		AreaText: {Serialized: strptr("hl-1:0-10"), Notes: map[string]string{"hl-1": "key idea"}},
	})
	m = ApplyAnnotationPatch(m, "q1", QuestionPatch{
		AreaContext: {Serialized: strptr("hl-2:5-9")},
	})

	assert.Equal(t, "hl-1:0-10", m["q1"][AreaText].Serialized)
	assert.Equal(t, "key idea", m["q1"][AreaText].Notes["hl-1"])
	assert.Equal(t, "hl-2:5-9", m["q1"][AreaContext].Serialized)
}

func TestApplyAnnotationPatchLeavesAbsentFields(t *testing.T) {
	m := AnnotationMap{"q1": {AreaText: {
		Serialized: "hl-1:0-10",
		Notes:      map[string]string{"hl-1": "keep me"},
	}}}

	// Patch only the serialized string; notes stay.
	m = ApplyAnnotationPatch(m, "q1", QuestionPatch{
		AreaText: {Serialized: strptr("hl-1:0-12")},
	})

	assert.Equal(t, "hl-1:0-12", m["q1"][AreaText].Serialized)
	assert.Equal(t, "keep me", m["q1"][AreaText].Notes["hl-1"])
}

func TestApplyAnnotationPatchRemovesEmptiedArea(t *testing.T) {
	m := AnnotationMap{"q1": {AreaText: {Serialized: "hl-1:0-10"}}}

	m = ApplyAnnotationPatch(m, "q1", QuestionPatch{
		AreaText: {Serialized: strptr(""), Notes: map[string]string{}},
	})

	assert.NotContains(t, m, "q1", "question with no live areas is dropped")
}

func TestDeleteHighlightRemovesSegmentAndNote(t *testing.T) {
	m := AnnotationMap{"q1": {AreaText: {
		Serialized: "hl-1:0-10|hl-2:20-30|hl-3:40-44",
		Notes:      map[string]string{"hl-1": "a", "hl-2": "b"},
		Snippets:   map[string]string{"hl-2": "quoted text"},
	}}}

	m = DeleteHighlight(m, "q1", AreaText, "hl-2")

	area := m["q1"][AreaText]
	assert.Equal(t, "hl-1:0-10|hl-3:40-44", area.Serialized)
	assert.NotContains(t, area.Notes, "hl-2")
	assert.NotContains(t, area.Snippets, "hl-2")
	assert.Equal(t, "a", area.Notes["hl-1"])
}

func TestDeleteHighlightIsIdempotent(t *testing.T) {
	m := AnnotationMap{"q1": {AreaText: {
		Serialized: "hl-1:0-10",
		Notes:      map[string]string{"hl-1": "a"},
	}}}

	m = DeleteHighlight(m, "q1", AreaText, "hl-1")
	assert.NotContains(t, m, "q1")

	// Second delete of the same highlight, and deletes against unknown
	// questions or areas, all succeed without change.
	m = DeleteHighlight(m, "q1", AreaText, "hl-1")
	m = DeleteHighlight(m, "nope", AreaText, "hl-1")
	m = DeleteHighlight(m, "q1", "margins", "hl-1")
	assert.Empty(t, m)
}

func TestStripSegmentCollapsesSeparators(t *testing.T) {
	assert.Equal(t, "hl-2:5-9", stripSegment("hl-1:0-10|hl-2:5-9", "hl-1"))
	assert.Equal(t, "hl-1:0-10", stripSegment("hl-1:0-10|hl-2:5-9", "hl-2"))
	assert.Equal(t, "", stripSegment("hl-1:0-10", "hl-1"))
	// bare token without ranges
	assert.Equal(t, "hl-2:5-9", stripSegment("hl-1|hl-2:5-9", "hl-1"))
	// unknown id leaves the string alone
	assert.Equal(t, "hl-1:0-10", stripSegment("hl-1:0-10", "hl-9"))
}
