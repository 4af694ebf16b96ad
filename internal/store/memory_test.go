package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
)

func seedAttempt(t *testing.T, m *Memory, id string, createdAt int64, status attempt.Status) {
	t.Helper()
	require.NoError(t, m.CreateEnrollment(context.Background(), enrollment.Enrollment{
		ID: "e-" + id, UserID: "alice", CourseID: "c1",
	}))
	require.NoError(t, m.CreateAttempt(context.Background(), attempt.Attempt{
		ID: id, UserID: "alice", ModuleID: "m1", EnrollmentID: "e-" + id,
		Status: status, CreatedAt: createdAt,
	}))
}

func TestStartClockIsConditional(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAttempt(t, m, "a1", 1, attempt.StatusInProgress)

	won, err := m.StartClock(ctx, "a1", 1000)
	require.NoError(t, err)
	assert.True(t, won)

	// Second racer loses and must re-read the winner's value.
	won, err = m.StartClock(ctx, "a1", 2000)
	require.NoError(t, err)
	assert.False(t, won)

	a, err := m.GetAttempt(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, a.StartTime)
	assert.Equal(t, int64(1000), *a.StartTime)
}

func TestFindResumableAttemptPicksNewestOpen(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAttempt(t, m, "old", 10, attempt.StatusGraded)
	seedAttempt(t, m, "mid", 20, attempt.StatusPartiallyGraded)
	seedAttempt(t, m, "new", 30, attempt.StatusInProgress)

	a, err := m.FindResumableAttempt(ctx, "alice", "m1", "")
	require.NoError(t, err)
	assert.Equal(t, "new", a.ID)

	_, err = m.FindResumableAttempt(ctx, "bob", "m1", "")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListAttemptsFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAttempt(t, m, "a1", 10, attempt.StatusGraded)
	seedAttempt(t, m, "a2", 20, attempt.StatusInProgress)
	seedAttempt(t, m, "a3", 30, attempt.StatusGraded)

	out, err := m.ListAttempts(ctx, attempt.ListOpts{UserID: "alice", Status: attempt.StatusGraded})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a3", out[0].ID, "newest first")

	out, err = m.ListAttempts(ctx, attempt.ListOpts{UserID: "alice", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a2", out[0].ID)
}

func TestCreateAttemptRequiresRegistrationTarget(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.CreateAttempt(ctx, attempt.Attempt{ID: "a1", EnrollmentID: "missing"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "no enrollment: %v", err)

	err = m.CreateAttempt(ctx, attempt.Attempt{ID: "a1", ParentID: "missing"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "no parent: %v", err)

	_, err = m.GetAttempt(ctx, "a1")
	assert.Error(t, err, "failed registration leaves no attempt behind")
}

func TestClonePreventsAliasing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedAttempt(t, m, "a1", 1, attempt.StatusInProgress)

	a, err := m.GetAttempt(ctx, "a1")
	require.NoError(t, err)
	a.Status = attempt.StatusGraded

	again, err := m.GetAttempt(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, attempt.StatusInProgress, again.Status, "callers mutate copies, not the store")
}
