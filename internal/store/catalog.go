package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/learngauge/learngauge/internal/model"
)

// CreateCourse inserts a course. Codes are stored as given and compared
// case-insensitively by the ingestion pipeline.
func (s *Store) CreateCourse(ctx context.Context, code, name string) (model.Course, error) {
	c := model.Course{Code: strings.TrimSpace(code), Name: name, CreatedAt: time.Now().UTC()}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO courses (code, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		c.Code, c.Name, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		slog.Error("failed to create course", "code", c.Code, "error", err)
		return model.Course{}, err
	}
	slog.Info("created course", "id", c.ID, "code", c.Code)
	return c, nil
}

// ListCourses returns courses that are not soft-deleted.
func (s *Store) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, created_at FROM courses WHERE deleted_at IS NULL ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCourse soft-deletes a course.
func (s *Store) DeleteCourse(ctx context.Context, id int64) error {
	return s.softDelete(ctx, `UPDATE courses SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, id)
}

// CreateCourseClass inserts a class under an active course.
func (s *Store) CreateCourseClass(ctx context.Context, courseID int64, code, name string) (model.CourseClass, error) {
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT deleted_at IS NULL FROM courses WHERE id = $1`, courseID,
	).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return model.CourseClass{}, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	if err != nil {
		return model.CourseClass{}, err
	}

	cc := model.CourseClass{CourseID: courseID, Code: strings.TrimSpace(code), Name: name, CreatedAt: time.Now().UTC()}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO course_classes (course_id, code, name, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		cc.CourseID, cc.Code, cc.Name, cc.CreatedAt,
	).Scan(&cc.ID)
	if err != nil {
		slog.Error("failed to create course class", "code", cc.Code, "error", err)
		return model.CourseClass{}, err
	}
	slog.Info("created course class", "id", cc.ID, "code", cc.Code, "course_id", courseID)
	return cc, nil
}

// ListCourseClasses returns active classes, optionally limited to one course
// when courseID is non-zero.
func (s *Store) ListCourseClasses(ctx context.Context, courseID int64) ([]model.CourseClass, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_id, code, name, created_at FROM course_classes
		 WHERE deleted_at IS NULL AND ($1 = 0 OR course_id = $1)
		 ORDER BY code`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CourseClass
	for rows.Next() {
		var cc model.CourseClass
		if err := rows.Scan(&cc.ID, &cc.CourseID, &cc.Code, &cc.Name, &cc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// DeleteCourseClass soft-deletes a class.
func (s *Store) DeleteCourseClass(ctx context.Context, id int64) error {
	return s.softDelete(ctx, `UPDATE course_classes SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, id)
}

// CourseForClass returns the course owning an active class. A missing or
// soft-deleted class or course yields ErrNotFound.
func (s *Store) CourseForClass(ctx context.Context, classID int64) (model.Course, error) {
	var c model.Course
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.code, c.name, c.created_at
		 FROM course_classes cc JOIN courses c ON c.id = cc.course_id
		 WHERE cc.id = $1 AND cc.deleted_at IS NULL AND c.deleted_at IS NULL`, classID,
	).Scan(&c.ID, &c.Code, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Course{}, fmt.Errorf("course class %d: %w", classID, ErrNotFound)
	}
	return c, err
}

// UpsertCLOType creates a CLO type or updates it in place, undeleting it.
func (s *Store) UpsertCLOType(ctx context.Context, t model.CLOType) (model.CLOType, error) {
	t.Code = strings.TrimSpace(t.Code)
	t.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clo_types (code, name, description, weight, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (code) DO UPDATE SET name = excluded.name, description = excluded.description,
		 weight = excluded.weight, deleted_at = NULL`,
		t.Code, t.Name, t.Description, t.Weight, t.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to save CLO type", "code", t.Code, "error", err)
		return model.CLOType{}, err
	}
	slog.Info("saved CLO type", "code", t.Code, "weight", t.Weight)
	return s.GetCLOType(ctx, t.Code)
}

// GetCLOType returns an active CLO type.
func (s *Store) GetCLOType(ctx context.Context, code string) (model.CLOType, error) {
	return s.getCLOType(ctx, code, false)
}

// getCLOType also returns soft-deleted types when withDeleted is set, so
// exams keep grading after their type is retired.
func (s *Store) getCLOType(ctx context.Context, code string, withDeleted bool) (model.CLOType, error) {
	var t model.CLOType
	err := s.db.QueryRowContext(ctx,
		`SELECT code, name, description, weight, created_at, deleted_at
		 FROM clo_types WHERE code = $1 AND ($2 OR deleted_at IS NULL)`, code, withDeleted,
	).Scan(&t.Code, &t.Name, &t.Description, &t.Weight, &t.CreatedAt, &t.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CLOType{}, fmt.Errorf("CLO type %s: %w", code, ErrNotFound)
	}
	return t, err
}

// ListCLOTypes returns active CLO types.
func (s *Store) ListCLOTypes(ctx context.Context) ([]model.CLOType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, description, weight, created_at FROM clo_types
		 WHERE deleted_at IS NULL ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CLOType
	for rows.Next() {
		var t model.CLOType
		if err := rows.Scan(&t.Code, &t.Name, &t.Description, &t.Weight, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteCLOType soft-deletes a CLO type.
func (s *Store) DeleteCLOType(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clo_types SET deleted_at = $1 WHERE code = $2 AND deleted_at IS NULL`, time.Now().UTC(), code)
	if err != nil {
		return err
	}
	return affectedOne(res, "CLO type "+code)
}

func (s *Store) softDelete(ctx context.Context, query string, id int64) error {
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affectedOne(res, fmt.Sprintf("id %d", id))
}

func affectedOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
