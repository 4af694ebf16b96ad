package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/pathlight-learning/pathlight-lms/internal/apperr"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
)

// The catalog side is read-mostly: the grading engine consumes the course
// graph and the live question bank, the CRUD layer writes them.

func (s *SQL) GetCourse(ctx context.Context, id string) (course.Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, sections_json FROM courses WHERE id=$1`, id)
	return scanCourse(row)
}

func (s *SQL) CourseForSection(ctx context.Context, sectionID string) (course.Course, error) {
	courses, err := s.allCourses(ctx)
	if err != nil {
		return course.Course{}, err
	}
	for _, c := range courses {
		for _, sec := range c.Sections {
			if sec.ID == sectionID {
				return c, nil
			}
		}
	}
	return course.Course{}, apperr.Newf(apperr.KindNotFound, "section %s not found", sectionID)
}

func (s *SQL) GetModule(ctx context.Context, moduleID string) (course.Module, error) {
	courses, err := s.allCourses(ctx)
	if err != nil {
		return course.Module{}, err
	}
	for _, c := range courses {
		for _, sec := range c.Sections {
			for _, mod := range sec.Modules {
				if mod.ID == moduleID {
					mod.SectionID = sec.ID
					return mod, nil
				}
			}
		}
	}
	return course.Module{}, apperr.Newf(apperr.KindNotFound, "module %s not found", moduleID)
}

func (s *SQL) GetQuestions(ctx context.Context, ids []string) (map[string]course.Question, error) {
	out := make(map[string]course.Question, len(ids))
	for _, id := range ids {
		var payload string
		err := s.db.QueryRowContext(ctx, `SELECT payload_json FROM questions WHERE id=$1`, id).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			continue // dangling link; builder warns and skips
		}
		if err != nil {
			return nil, err
		}
		var q course.Question
		if err := json.Unmarshal([]byte(payload), &q); err != nil {
			return nil, err
		}
		out[id] = q
	}
	return out, nil
}

// PutCourse and PutQuestion exist for seeding and for the CRUD layer.

func (s *SQL) PutCourse(ctx context.Context, c course.Course) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id, title, sections_json, created_at) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, sections_json=EXCLUDED.sections_json`,
		c.ID, c.Title, mustJSON(c.Sections), time.Now().Unix())
	return err
}

func (s *SQL) PutQuestion(ctx context.Context, q course.Question) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, payload_json, updated_at) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO UPDATE SET payload_json=EXCLUDED.payload_json, updated_at=EXCLUDED.updated_at`,
		q.ID, mustJSON(q), time.Now().Unix())
	return err
}

func (s *SQL) allCourses(ctx context.Context) ([]course.Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, sections_json FROM courses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []course.Course
	for rows.Next() {
		var c course.Course
		var sections string
		if err := rows.Scan(&c.ID, &c.Title, &sections); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sections), &c.Sections); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanCourse(row rowScanner) (course.Course, error) {
	var c course.Course
	var sections string
	if err := row.Scan(&c.ID, &c.Title, &sections); err != nil {
		return course.Course{}, notFound(err, "course not found")
	}
	if err := json.Unmarshal([]byte(sections), &c.Sections); err != nil {
		return course.Course{}, err
	}
	return c, nil
}
