package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/learngauge/learngauge/internal/model"
)

// Paging defaults for ListExams.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

const examColumns = `id, upload_id, course_class_id, name, description, clo_type, exam_format,
	chapters_json, pass_expectation_rate, clo_pass_threshold, max_score, created_at`

const resultColumns = `id, exam_id, student_code, student_name, version, total_questions,
	total_easy_questions, total_medium_questions, total_hard_questions,
	total_correct_easy_questions, total_correct_medium_questions, total_correct_hard_questions, created_at`

// CreateExamWithResults inserts an exam and all of its result rows in one
// transaction. Either everything is stored or nothing is.
func (s *Store) CreateExamWithResults(ctx context.Context, exam model.Exam, results []model.ExamResult) (model.Exam, error) {
	chapters, err := json.Marshal(exam.Chapters)
	if err != nil {
		return model.Exam{}, fmt.Errorf("encode chapters: %w", err)
	}
	exam.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Exam{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO exams (upload_id, course_class_id, name, description, clo_type, exam_format,
		 chapters_json, pass_expectation_rate, clo_pass_threshold, max_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		exam.UploadID, exam.CourseClassID, exam.Name, exam.Description, exam.CLOType, string(exam.ExamFormat),
		string(chapters), exam.PassExpectationRate, exam.CLOPassThreshold, exam.MaxScore, exam.CreatedAt,
	).Scan(&exam.ID)
	if err != nil {
		slog.Error("failed to create exam", "upload_id", exam.UploadID, "error", err)
		return model.Exam{}, fmt.Errorf("insert exam: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO exam_results (exam_id, student_code, student_name, version, total_questions,
		 total_easy_questions, total_medium_questions, total_hard_questions,
		 total_correct_easy_questions, total_correct_medium_questions, total_correct_hard_questions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return model.Exam{}, err
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			exam.ID, r.StudentCode, r.StudentName, r.Version, r.TotalQuestions,
			r.TotalEasyQuestions, r.TotalMediumQuestions, r.TotalHardQuestions,
			r.TotalCorrectEasyQuestions, r.TotalCorrectMediumQuestions, r.TotalCorrectHardQuestions, exam.CreatedAt,
		)
		if err != nil {
			slog.Error("failed to insert exam result", "upload_id", exam.UploadID, "student", r.StudentCode, "error", err)
			return model.Exam{}, fmt.Errorf("insert result for %s: %w", r.StudentCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Exam{}, fmt.Errorf("commit: %w", err)
	}
	slog.Info("created exam", "id", exam.ID, "upload_id", exam.UploadID, "results", len(results))
	return exam, nil
}

// GetExam returns one exam.
func (s *Store) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id)
	e, err := scanExam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, fmt.Errorf("exam %d: %w", id, ErrNotFound)
	}
	return e, err
}

// ListExams returns exams, newest first.
func (s *Store) ListExams(ctx context.Context, opts model.ListOpts) ([]model.Exam, error) {
	limit, offset := pageBounds(opts)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+examColumns+` FROM exams ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExam removes an exam. Its results go with it.
func (s *Store) DeleteExam(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := affectedOne(res, fmt.Sprintf("exam %d", id)); err != nil {
		return err
	}
	slog.Info("deleted exam", "id", id)
	return nil
}

// ListExamResults returns the results of an exam in insertion order.
func (s *Store) ListExamResults(ctx context.Context, examID int64) ([]model.ExamResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM exam_results WHERE exam_id = $1 ORDER BY id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ExamResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetExamResult returns one result.
func (s *Store) GetExamResult(ctx context.Context, id int64) (model.ExamResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE id = $1`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ExamResult{}, fmt.Errorf("exam result %d: %w", id, ErrNotFound)
	}
	return r, err
}

// CountExamResults returns how many results an exam has.
func (s *Store) CountExamResults(ctx context.Context, examID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exam_results WHERE exam_id = $1`, examID).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExam(sc scanner) (model.Exam, error) {
	var (
		e        model.Exam
		format   string
		chapters string
	)
	err := sc.Scan(&e.ID, &e.UploadID, &e.CourseClassID, &e.Name, &e.Description, &e.CLOType, &format,
		&chapters, &e.PassExpectationRate, &e.CLOPassThreshold, &e.MaxScore, &e.CreatedAt)
	if err != nil {
		return model.Exam{}, err
	}
	e.ExamFormat = model.ExamFormat(format)
	if err := json.Unmarshal([]byte(chapters), &e.Chapters); err != nil {
		return model.Exam{}, fmt.Errorf("decode chapters of exam %d: %w", e.ID, err)
	}
	return e, nil
}

func scanResult(sc scanner) (model.ExamResult, error) {
	var r model.ExamResult
	err := sc.Scan(&r.ID, &r.ExamID, &r.StudentCode, &r.StudentName, &r.Version, &r.TotalQuestions,
		&r.TotalEasyQuestions, &r.TotalMediumQuestions, &r.TotalHardQuestions,
		&r.TotalCorrectEasyQuestions, &r.TotalCorrectMediumQuestions, &r.TotalCorrectHardQuestions, &r.CreatedAt)
	return r, err
}

func pageBounds(opts model.ListOpts) (limit, offset int) {
	limit, offset = opts.Limit, opts.Offset
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
