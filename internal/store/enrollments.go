package store

import (
	"context"
	"encoding/json"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/enrollment"
)

const enrollmentCols = `id, user_id, course_id, status, progress, grade, quiz_points,
	quiz_max_points, completed_modules_json, completed_content_json,
	quiz_attempt_ids_json, test_attempt_ids_json, created_at, updated_at`

func (s *SQL) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+enrollmentCols+` FROM enrollments WHERE id=$1`, id)
	return scanEnrollment(row)
}

func (s *SQL) GetEnrollmentByUserCourse(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+enrollmentCols+` FROM enrollments WHERE user_id=$1 AND course_id=$2`,
		userID, courseID)
	return scanEnrollment(row)
}

func (s *SQL) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollments (`+enrollmentCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		enrollmentArgs(e)...)
	return err
}

func (s *SQL) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment) error {
	return updateEnrollmentRow(ctx, s.db, e)
}

func updateEnrollmentRow(ctx context.Context, q querier, e enrollment.Enrollment) error {
	res, err := q.ExecContext(ctx,
		`UPDATE enrollments SET status=$1, progress=$2, grade=$3, quiz_points=$4,
		   quiz_max_points=$5, completed_modules_json=$6, completed_content_json=$7,
		   quiz_attempt_ids_json=$8, test_attempt_ids_json=$9, updated_at=$10
		 WHERE id=$11`,
		string(e.Status), e.Progress, e.Grade, e.QuizPoints, e.QuizMaxPoints,
		mustJSON(e.CompletedModules), mustJSON(e.CompletedContent),
		mustJSON(e.QuizAttemptIDs), mustJSON(e.TestAttemptIDs), e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.KindNotFound, "enrollment %s not found", e.ID)
	}
	return nil
}

func upsertEnrollmentRow(ctx context.Context, q querier, e enrollment.Enrollment) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO enrollments (`+enrollmentCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		 ON CONFLICT (user_id, course_id) DO UPDATE SET
		   status=EXCLUDED.status, progress=EXCLUDED.progress, grade=EXCLUDED.grade,
		   quiz_points=EXCLUDED.quiz_points, quiz_max_points=EXCLUDED.quiz_max_points,
		   completed_modules_json=EXCLUDED.completed_modules_json,
		   completed_content_json=EXCLUDED.completed_content_json,
		   quiz_attempt_ids_json=EXCLUDED.quiz_attempt_ids_json,
		   test_attempt_ids_json=EXCLUDED.test_attempt_ids_json,
		   updated_at=EXCLUDED.updated_at`,
		enrollmentArgs(e)...)
	return err
}

func enrollmentArgs(e enrollment.Enrollment) []any {
	if e.CompletedModules == nil {
		e.CompletedModules = map[string]int64{}
	}
	if e.CompletedContent == nil {
		e.CompletedContent = map[string]int64{}
	}
	if e.QuizAttemptIDs == nil {
		e.QuizAttemptIDs = []string{}
	}
	if e.TestAttemptIDs == nil {
		e.TestAttemptIDs = []string{}
	}
	return []any{
		e.ID, e.UserID, e.CourseID, string(e.Status), e.Progress, e.Grade, e.QuizPoints,
		e.QuizMaxPoints, mustJSON(e.CompletedModules), mustJSON(e.CompletedContent),
		mustJSON(e.QuizAttemptIDs), mustJSON(e.TestAttemptIDs), e.CreatedAt, e.UpdatedAt,
	}
}

func scanEnrollment(row rowScanner) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	var status string
	var modsJSON, contentJSON, quizIDsJSON, testIDsJSON string
	err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &status, &e.Progress, &e.Grade,
		&e.QuizPoints, &e.QuizMaxPoints, &modsJSON, &contentJSON, &quizIDsJSON, &testIDsJSON,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return enrollment.Enrollment{}, notFound(err, "enrollment not found")
	}
	e.Status = enrollment.Status(status)
	if err := json.Unmarshal([]byte(modsJSON), &e.CompletedModules); err != nil {
		return enrollment.Enrollment{}, err
	}
	if err := json.Unmarshal([]byte(contentJSON), &e.CompletedContent); err != nil {
		return enrollment.Enrollment{}, err
	}
	if err := json.Unmarshal([]byte(quizIDsJSON), &e.QuizAttemptIDs); err != nil {
		return enrollment.Enrollment{}, err
	}
	if err := json.Unmarshal([]byte(testIDsJSON), &e.TestAttemptIDs); err != nil {
		return enrollment.Enrollment{}, err
	}
	return e, nil
}
