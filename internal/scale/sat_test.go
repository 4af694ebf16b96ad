package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSATProfileKnownPoints(t *testing.T) {
	tables, ok := Lookup("sat.v1")
	require.True(t, ok)

	assert.Equal(t, 620, tables[GroupReadingWriting].Score(40))
	assert.Equal(t, 560, tables[GroupMath].Score(30))
	assert.Equal(t, 800, tables[GroupReadingWriting].Score(54))
	assert.Equal(t, 800, tables[GroupMath].Score(44))
	assert.Equal(t, 200, tables[GroupMath].Score(0))
}

func TestScoreFallsBackToFloor(t *testing.T) {
	tables, _ := Lookup("sat.v1")

	// 99 is outside the table; the floor applies rather than an error.
	assert.Equal(t, SATFloor, tables[GroupReadingWriting].Score(99))
	assert.Equal(t, SATFloor, tables[GroupMath].Score(-1))
}

func TestConvertSumsGroups(t *testing.T) {
	tables, _ := Lookup("sat.v1")

	bd := Convert(tables, map[string]int{GroupReadingWriting: 40, GroupMath: 30})
	assert.Equal(t, 1180, bd.Total)
	assert.Equal(t, GroupScore{Raw: 40, Scaled: 620}, bd.Groups[GroupReadingWriting])
	assert.Equal(t, GroupScore{Raw: 30, Scaled: 560}, bd.Groups[GroupMath])
}

func TestConvertIgnoresUnknownGroups(t *testing.T) {
	tables, _ := Lookup("sat.v1")

	bd := Convert(tables, map[string]int{GroupMath: 10, "science": 50})
	assert.Equal(t, 360, bd.Total)
	assert.NotContains(t, bd.Groups, "science")
}

func TestConvertZeroRawStillScoresFloor(t *testing.T) {
	tables, _ := Lookup("sat.v1")

	bd := Convert(tables, map[string]int{GroupReadingWriting: 0, GroupMath: 0})
	assert.Equal(t, 400, bd.Total, "an all-wrong test still scores 200 per group")
}
