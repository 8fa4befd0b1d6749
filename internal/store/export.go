package store

import (
	"context"
	"fmt"
	"time"

	"github.com/learngauge/learngauge/internal/grading"
	"github.com/learngauge/learngauge/internal/model"
)

// GradedResults returns an exam with every result graded against its CLO type.
func (s *Store) GradedResults(ctx context.Context, examID int64) (model.Exam, []model.GradedResult, error) {
	exam, _, graded, err := s.gradedResults(ctx, examID)
	return exam, graded, err
}

func (s *Store) gradedResults(ctx context.Context, examID int64) (model.Exam, model.CLOType, []model.GradedResult, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return model.Exam{}, model.CLOType{}, nil, err
	}
	clo, err := s.getCLOType(ctx, exam.CLOType, true)
	if err != nil {
		return model.Exam{}, model.CLOType{}, nil, fmt.Errorf("exam %d: %w", examID, err)
	}
	results, err := s.ListExamResults(ctx, examID)
	if err != nil {
		return model.Exam{}, model.CLOType{}, nil, fmt.Errorf("list results: %w", err)
	}
	return exam, clo, grading.GradeAll(results, exam, clo), nil
}

// GradedResult returns one result with its grade.
func (s *Store) GradedResult(ctx context.Context, resultID int64) (model.GradedResult, error) {
	r, err := s.GetExamResult(ctx, resultID)
	if err != nil {
		return model.GradedResult{}, err
	}
	exam, err := s.GetExam(ctx, r.ExamID)
	if err != nil {
		return model.GradedResult{}, err
	}
	clo, err := s.getCLOType(ctx, exam.CLOType, true)
	if err != nil {
		return model.GradedResult{}, err
	}
	return model.GradedResult{ExamResult: r, Grade: grading.Grade(r, exam, clo.Weight)}, nil
}

// ExportExam builds the graded export of one exam.
func (s *Store) ExportExam(ctx context.Context, examID int64) (*model.ExamExport, error) {
	exam, clo, graded, err := s.gradedResults(ctx, examID)
	if err != nil {
		return nil, err
	}
	course, err := s.courseForClassAny(ctx, exam.CourseClassID)
	if err != nil {
		return nil, fmt.Errorf("course of exam %d: %w", examID, err)
	}

	exp := &model.ExamExport{
		Exam:        exam,
		CourseCode:  course,
		CLOType:     clo,
		ExportedAt:  time.Now().UTC(),
		NumStudents: len(graded),
		Results:     graded,
	}
	for _, g := range graded {
		if g.Grade.IsPassed {
			exp.NumPassed++
		}
	}
	if exp.NumStudents > 0 {
		exp.PassRate = float64(exp.NumPassed) / float64(exp.NumStudents) * 100
	}
	exp.MeetsExpectation = exp.PassRate >= exam.PassExpectationRate
	return exp, nil
}

// courseForClassAny resolves the course code even for retired classes.
func (s *Store) courseForClassAny(ctx context.Context, classID int64) (string, error) {
	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT c.code FROM course_classes cc JOIN courses c ON c.id = cc.course_id WHERE cc.id = $1`,
		classID).Scan(&code)
	return code, err
}
