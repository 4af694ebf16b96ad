package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	"github.com/pathlight-learning/pathlight-lms/internal/db"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
	"github.com/pathlight-learning/pathlight-lms/internal/practicetest"
	"github.com/pathlight-learning/pathlight-lms/internal/scale"
)

const practiceCols = `id, user_id, course_id, attempt_number, status, score, max_points,
	next_module_id, next_attempt_id, section_ids_json, quiz_attempt_ids_json,
	snapshot_ids_json, scaled_json, started_at, ended_at, updated_at`

func (s *SQL) GetTestAttempt(ctx context.Context, id string) (practicetest.TestAttempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+practiceCols+` FROM practice_test_attempts WHERE id=$1`, id)
	return scanTestAttempt(row)
}

func (s *SQL) FindResumableTestAttempt(ctx context.Context, userID, courseID string) (practicetest.TestAttempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+practiceCols+` FROM practice_test_attempts
		 WHERE user_id=$1 AND course_id=$2 AND status<>$3
		 ORDER BY attempt_number DESC LIMIT 1`,
		userID, courseID, attempt.StatusGraded)
	return scanTestAttempt(row)
}

func (s *SQL) CountTestAttempts(ctx context.Context, userID, courseID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM practice_test_attempts WHERE user_id=$1 AND course_id=$2`,
		userID, courseID).Scan(&n)
	return n, err
}

// SaveTestAttempt upserts the composite attempt and, when enr is non-nil,
// the enrollment row in the same transaction.
func (s *SQL) SaveTestAttempt(ctx context.Context, ta practicetest.TestAttempt, enr *enrollment.Enrollment) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var scaled any
		if ta.Scaled != nil {
			scaled = mustJSON(ta.Scaled)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO practice_test_attempts (`+practiceCols+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			 ON CONFLICT (id) DO UPDATE SET
			   status=EXCLUDED.status, score=EXCLUDED.score, max_points=EXCLUDED.max_points,
			   next_module_id=EXCLUDED.next_module_id, next_attempt_id=EXCLUDED.next_attempt_id,
			   quiz_attempt_ids_json=EXCLUDED.quiz_attempt_ids_json,
			   snapshot_ids_json=EXCLUDED.snapshot_ids_json, scaled_json=EXCLUDED.scaled_json,
			   ended_at=EXCLUDED.ended_at, updated_at=EXCLUDED.updated_at`,
			ta.ID, ta.UserID, ta.CourseID, ta.AttemptNumber, string(ta.Status), ta.Score, ta.MaxPoints,
			ta.NextModuleID, ta.NextAttemptID, mustJSON(ta.SectionIDs), mustJSON(ta.QuizAttemptIDs),
			mustJSON(ta.SnapshotIDs), scaled, ta.StartedAt, nullableInt64(ta.EndedAt), ta.UpdatedAt)
		if err != nil {
			return err
		}
		if enr != nil {
			return upsertEnrollmentRow(ctx, tx, *enr)
		}
		return nil
	})
}

func (s *SQL) ListChildAttempts(ctx context.Context, parentID string) ([]attempt.Attempt, error) {
	return s.ListAttempts(ctx, attempt.ListOpts{ParentID: parentID})
}

func scanTestAttempt(row rowScanner) (practicetest.TestAttempt, error) {
	var ta practicetest.TestAttempt
	var status string
	var scaled sql.NullString
	var ended sql.NullInt64
	var sectionsJSON, attemptsJSON, snapshotsJSON string
	err := row.Scan(&ta.ID, &ta.UserID, &ta.CourseID, &ta.AttemptNumber, &status, &ta.Score,
		&ta.MaxPoints, &ta.NextModuleID, &ta.NextAttemptID, &sectionsJSON, &attemptsJSON,
		&snapshotsJSON, &scaled, &ta.StartedAt, &ended, &ta.UpdatedAt)
	if err != nil {
		return practicetest.TestAttempt{}, notFound(err, "practice test attempt not found")
	}
	ta.Status = attempt.Status(status)
	if ended.Valid {
		ta.EndedAt = &ended.Int64
	}
	if err := json.Unmarshal([]byte(sectionsJSON), &ta.SectionIDs); err != nil {
		return practicetest.TestAttempt{}, err
	}
	if err := json.Unmarshal([]byte(attemptsJSON), &ta.QuizAttemptIDs); err != nil {
		return practicetest.TestAttempt{}, err
	}
	if err := json.Unmarshal([]byte(snapshotsJSON), &ta.SnapshotIDs); err != nil {
		return practicetest.TestAttempt{}, err
	}
	if scaled.Valid && scaled.String != "" {
		var bd scale.Breakdown
		if err := json.Unmarshal([]byte(scaled.String), &bd); err != nil {
			return practicetest.TestAttempt{}, err
		}
		ta.Scaled = &bd
	}
	return ta, nil
}
