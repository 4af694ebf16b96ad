package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/attempt"
	"github.com/pathlight-learning/pathlight-lms/internal/db"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
)

const attemptCols = `id, user_id, module_id, enrollment_id, parent_id, snapshot_id, status,
	start_time, time_limit_sec, remaining_sec, score, max_points, passed, current_index,
	order_json, details_json, annotations_json, created_at, updated_at`

func (s *SQL) GetAttempt(ctx context.Context, id string) (attempt.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM quiz_attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQL) FindResumableAttempt(ctx context.Context, userID, moduleID, parentID string) (attempt.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM quiz_attempts
		 WHERE user_id=$1 AND module_id=$2 AND parent_id=$3 AND status<>$4
		 ORDER BY created_at DESC LIMIT 1`,
		userID, moduleID, parentID, attempt.StatusGraded)
	return scanAttempt(row)
}

func (s *SQL) ListAttempts(ctx context.Context, opts attempt.ListOpts) ([]attempt.Attempt, error) {
	q := `SELECT ` + attemptCols + ` FROM quiz_attempts WHERE 1=1`
	args := []any{}
	n := 0
	add := func(cond string, v any) {
		n++
		q += fmt.Sprintf(" AND %s=$%d", cond, n)
		args = append(args, v)
	}
	if opts.UserID != "" {
		add("user_id", opts.UserID)
	}
	if opts.ModuleID != "" {
		add("module_id", opts.ModuleID)
	}
	if opts.ParentID != "" {
		add("parent_id", opts.ParentID)
	}
	if opts.Status != "" {
		add("status", string(opts.Status))
	}
	q += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		n++
		q += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		n++
		q += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []attempt.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQL) GetParentRef(ctx context.Context, parentID string) (attempt.ParentRef, error) {
	var ref attempt.ParentRef
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, course_id FROM practice_test_attempts WHERE id=$1`, parentID).
		Scan(&ref.ID, &ref.UserID, &ref.CourseID)
	if err != nil {
		return attempt.ParentRef{}, notFound(err, "practice test attempt not found")
	}
	return ref, nil
}

// CreateAttempt inserts the attempt and registers its id on the parent
// practice test (or, for direct course quizzes, the enrollment) in one
// transaction, so a crash cannot leave a half-registered session.
func (s *SQL) CreateAttempt(ctx context.Context, a attempt.Attempt) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_attempts (`+attemptCols+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
			attemptArgs(a)...)
		if err != nil {
			return err
		}
		if a.ParentID != "" {
			return registerOnParent(ctx, tx, a.ParentID, a.ModuleID, a.ID)
		}
		return registerOnEnrollment(ctx, tx, a.EnrollmentID, a.ID)
	})
}

// StartClock is the conditional write behind "begin timed session": it only
// succeeds while start_time is still null, so the second of two racing tabs
// becomes a no-op and re-reads the winner's value.
func (s *SQL) StartClock(ctx context.Context, id string, start int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_attempts SET start_time=$1 WHERE id=$2 AND start_time IS NULL`,
		start, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQL) SaveAttempt(ctx context.Context, a attempt.Attempt, parent *attempt.ParentProgress) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := updateAttempt(ctx, tx, a); err != nil {
			return err
		}
		if parent != nil {
			return advanceParent(ctx, tx, *parent)
		}
		return nil
	})
}

func (s *SQL) FinalizeAttempt(ctx context.Context, a attempt.Attempt, parent *attempt.ParentProgress, enr *enrollment.Enrollment) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := updateAttempt(ctx, tx, a); err != nil {
			return err
		}
		if parent != nil {
			if err := advanceParent(ctx, tx, *parent); err != nil {
				return err
			}
		}
		if enr != nil {
			return updateEnrollmentRow(ctx, tx, *enr)
		}
		return nil
	})
}

/* ---------------------------- row plumbing ---------------------------- */

func attemptArgs(a attempt.Attempt) []any {
	return []any{
		a.ID, a.UserID, a.ModuleID, a.EnrollmentID, a.ParentID, a.SnapshotID, string(a.Status),
		nullableInt64(a.StartTime), a.TimeLimitSec, a.RemainingSec, a.Score, a.MaxPoints,
		a.Passed, a.CurrentIndex,
		mustJSON(a.QuestionOrder), mustJSON(a.Details), mustJSON(a.Annotations),
		a.CreatedAt, a.UpdatedAt,
	}
}

func updateAttempt(ctx context.Context, q querier, a attempt.Attempt) error {
	res, err := q.ExecContext(ctx,
		`UPDATE quiz_attempts SET status=$1, start_time=$2, remaining_sec=$3, score=$4,
		   max_points=$5, passed=$6, current_index=$7, order_json=$8, details_json=$9,
		   annotations_json=$10, updated_at=$11
		 WHERE id=$12`,
		string(a.Status), nullableInt64(a.StartTime), a.RemainingSec, a.Score,
		a.MaxPoints, a.Passed, a.CurrentIndex, mustJSON(a.QuestionOrder), mustJSON(a.Details),
		mustJSON(a.Annotations), a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.KindNotFound, "attempt %s not found", a.ID)
	}
	return nil
}

func registerOnParent(ctx context.Context, tx *sql.Tx, parentID, moduleID, attemptID string) error {
	var idsJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT quiz_attempt_ids_json FROM practice_test_attempts WHERE id=$1`, parentID).Scan(&idsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Newf(apperr.KindNotFound, "practice test attempt %s not found", parentID)
	}
	if err != nil {
		return err
	}
	var ids []string
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return err
	}
	ids = appendUnique(ids, attemptID)
	_, err = tx.ExecContext(ctx,
		`UPDATE practice_test_attempts
		 SET quiz_attempt_ids_json=$1, next_module_id=$2, next_attempt_id=$3
		 WHERE id=$4`,
		mustJSON(ids), moduleID, attemptID, parentID)
	return err
}

func registerOnEnrollment(ctx context.Context, tx *sql.Tx, enrollmentID, attemptID string) error {
	var idsJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT quiz_attempt_ids_json FROM enrollments WHERE id=$1`, enrollmentID).Scan(&idsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Newf(apperr.KindNotFound, "enrollment %s not found", enrollmentID)
	}
	if err != nil {
		return err
	}
	var ids []string
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return err
	}
	ids = appendUnique(ids, attemptID)
	_, err = tx.ExecContext(ctx,
		`UPDATE enrollments SET quiz_attempt_ids_json=$1 WHERE id=$2`,
		mustJSON(ids), enrollmentID)
	return err
}

// advanceParent moves (or clears) the composite attempt's resume pointer.
// A parent that already graded is left untouched.
func advanceParent(ctx context.Context, tx *sql.Tx, pp attempt.ParentProgress) error {
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM practice_test_attempts WHERE id=$1`, pp.ParentID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Newf(apperr.KindNotFound, "practice test attempt %s not found", pp.ParentID)
	}
	if err != nil {
		return err
	}
	if status == string(attempt.StatusGraded) {
		return nil
	}
	next, nextAttempt := pp.NextModuleID, pp.NextAttemptID
	if pp.Clear {
		next, nextAttempt = "", ""
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE practice_test_attempts SET next_module_id=$1, next_attempt_id=$2 WHERE id=$3`,
		next, nextAttempt, pp.ParentID)
	return err
}

func scanAttempt(row rowScanner) (attempt.Attempt, error) {
	var a attempt.Attempt
	var status string
	var start sql.NullInt64
	var orderJSON, detailsJSON, annotationsJSON string
	err := row.Scan(&a.ID, &a.UserID, &a.ModuleID, &a.EnrollmentID, &a.ParentID, &a.SnapshotID,
		&status, &start, &a.TimeLimitSec, &a.RemainingSec, &a.Score, &a.MaxPoints, &a.Passed,
		&a.CurrentIndex, &orderJSON, &detailsJSON, &annotationsJSON, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return attempt.Attempt{}, notFound(err, "attempt not found")
	}
	a.Status = attempt.Status(status)
	if start.Valid {
		a.StartTime = &start.Int64
	}
	if err := json.Unmarshal([]byte(orderJSON), &a.QuestionOrder); err != nil {
		return attempt.Attempt{}, err
	}
	if err := json.Unmarshal([]byte(detailsJSON), &a.Details); err != nil {
		return attempt.Attempt{}, err
	}
	if err := json.Unmarshal([]byte(annotationsJSON), &a.Annotations); err != nil {
		return attempt.Attempt{}, err
	}
	return a, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func appendUnique(ids []string, id string) []string {
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}
