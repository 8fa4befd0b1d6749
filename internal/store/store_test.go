package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/learngauge/learngauge/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCatalog creates one course, one class and one CLO type (weight 50).
func seedCatalog(t *testing.T, s *Store) (model.Course, model.CourseClass) {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCourse(ctx, "MATH101", "Calculus")
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	cc, err := s.CreateCourseClass(ctx, c.ID, "MATH101-01", "Morning group")
	if err != nil {
		t.Fatalf("CreateCourseClass: %v", err)
	}
	if _, err := s.UpsertCLOType(ctx, model.CLOType{Code: "CLO1", Name: "Knowledge", Weight: 50}); err != nil {
		t.Fatalf("UpsertCLOType: %v", err)
	}
	return c, cc
}

func testExam(classID int64) model.Exam {
	return model.Exam{
		UploadID:            fmt.Sprintf("upload-%d", classID),
		CourseClassID:       classID,
		Name:                "Midterm",
		CLOType:             "CLO1",
		ExamFormat:          model.ExamFormatMCQ,
		Chapters:            []int{1, 3},
		PassExpectationRate: 50,
		CLOPassThreshold:    5,
		MaxScore:            100,
	}
}

func testResults(n int) []model.ExamResult {
	out := make([]model.ExamResult, n)
	for i := range out {
		out[i] = model.ExamResult{
			StudentCode:                 fmt.Sprintf("s%02d", i+1),
			StudentName:                 fmt.Sprintf("Student %d", i+1),
			Version:                     "001",
			TotalQuestions:              12,
			TotalEasyQuestions:          5,
			TotalMediumQuestions:        5,
			TotalHardQuestions:          2,
			TotalCorrectEasyQuestions:   i % 6,
			TotalCorrectMediumQuestions: 3,
			TotalCorrectHardQuestions:   1,
		}
	}
	return out
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	course, class := seedCatalog(t, s)

	got, err := s.CourseForClass(ctx, class.ID)
	if err != nil {
		t.Fatalf("CourseForClass: %v", err)
	}
	if got.Code != "MATH101" || got.ID != course.ID {
		t.Errorf("course = %+v", got)
	}

	classes, err := s.ListCourseClasses(ctx, course.ID)
	if err != nil || len(classes) != 1 {
		t.Fatalf("ListCourseClasses = %v, %v", classes, err)
	}
	all, err := s.ListCourseClasses(ctx, 0)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListCourseClasses(0) = %v, %v", all, err)
	}

	clo, err := s.GetCLOType(ctx, "CLO1")
	if err != nil {
		t.Fatalf("GetCLOType: %v", err)
	}
	if clo.Weight != 50 || clo.DeletedAt != nil {
		t.Errorf("clo = %+v", clo)
	}

	if _, err := s.GetCLOType(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown CLO type, got %v", err)
	}
	if _, err := s.CourseForClass(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown class, got %v", err)
	}
	if _, err := s.CreateCourseClass(ctx, 999, "X", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for class of unknown course, got %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	course, class := seedCatalog(t, s)

	if err := s.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	if _, err := s.CourseForClass(ctx, class.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after course soft-delete, got %v", err)
	}
	if err := s.DeleteCourse(ctx, course.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	courses, err := s.ListCourses(ctx)
	if err != nil || len(courses) != 0 {
		t.Errorf("ListCourses = %v, %v", courses, err)
	}

	if err := s.DeleteCLOType(ctx, "CLO1"); err != nil {
		t.Fatalf("DeleteCLOType: %v", err)
	}
	if _, err := s.GetCLOType(ctx, "CLO1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted CLO type, got %v", err)
	}
	// upsert brings it back
	if _, err := s.UpsertCLOType(ctx, model.CLOType{Code: "CLO1", Name: "Knowledge", Weight: 40}); err != nil {
		t.Fatalf("UpsertCLOType: %v", err)
	}
	clo, err := s.GetCLOType(ctx, "CLO1")
	if err != nil || clo.Weight != 40 {
		t.Errorf("GetCLOType = %+v, %v", clo, err)
	}
}

func TestCreateExamWithResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, class := seedCatalog(t, s)

	exam, err := s.CreateExamWithResults(ctx, testExam(class.ID), testResults(10))
	if err != nil {
		t.Fatalf("CreateExamWithResults: %v", err)
	}
	if exam.ID == 0 || exam.CreatedAt.IsZero() {
		t.Fatalf("exam = %+v", exam)
	}

	got, err := s.GetExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Name != "Midterm" || got.ExamFormat != model.ExamFormatMCQ || len(got.Chapters) != 2 || got.Chapters[1] != 3 {
		t.Errorf("exam = %+v", got)
	}

	results, err := s.ListExamResults(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ListExamResults: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	if results[0].StudentCode != "s01" || results[9].StudentCode != "s10" {
		t.Errorf("results out of order: %s .. %s", results[0].StudentCode, results[9].StudentCode)
	}
	if results[0].TotalCorrectHardQuestions != 1 || results[0].TotalHardQuestions != 2 {
		t.Errorf("hard tallies = %d/%d", results[0].TotalCorrectHardQuestions, results[0].TotalHardQuestions)
	}

	one, err := s.GetExamResult(ctx, results[3].ID)
	if err != nil || one.StudentCode != "s04" {
		t.Errorf("GetExamResult = %+v, %v", one, err)
	}
	n, err := s.CountExamResults(ctx, exam.ID)
	if err != nil || n != 10 {
		t.Errorf("CountExamResults = %d, %v", n, err)
	}
}

func TestCreateExamWithResultsRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, class := seedCatalog(t, s)

	// fail the fourth result insert of any exam
	_, err := s.db.Exec(`
		CREATE TRIGGER fail_fourth_result BEFORE INSERT ON exam_results
		WHEN (SELECT COUNT(*) FROM exam_results WHERE exam_id = NEW.exam_id) >= 3
		BEGIN SELECT RAISE(ABORT, 'disk full'); END;`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, err := s.CreateExamWithResults(ctx, testExam(class.ID), testResults(10)); err == nil {
		t.Fatal("expected error from failing insert")
	}
	if n := countRows(t, s, "exam_results"); n != 0 {
		t.Errorf("expected 0 result rows after rollback, got %d", n)
	}
	if n := countRows(t, s, "exams"); n != 0 {
		t.Errorf("expected 0 exam rows after rollback, got %d", n)
	}
}

func TestCreateExamDuplicateStudentRollsBack(t *testing.T) {
	s := newTestStore(t)
	_, class := seedCatalog(t, s)
	results := testResults(3)
	results[2].StudentCode = results[0].StudentCode

	if _, err := s.CreateExamWithResults(context.Background(), testExam(class.ID), results); err == nil {
		t.Fatal("expected unique constraint error")
	}
	if n := countRows(t, s, "exams"); n != 0 {
		t.Errorf("expected 0 exam rows, got %d", n)
	}
}

func TestDeleteExamCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, class := seedCatalog(t, s)

	exam, err := s.CreateExamWithResults(ctx, testExam(class.ID), testResults(4))
	if err != nil {
		t.Fatalf("CreateExamWithResults: %v", err)
	}
	if err := s.DeleteExam(ctx, exam.ID); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	if n := countRows(t, s, "exam_results"); n != 0 {
		t.Errorf("expected results to cascade, %d left", n)
	}
	if _, err := s.GetExam(ctx, exam.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteExam(ctx, exam.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListExamsPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, class := seedCatalog(t, s)

	for i := 0; i < 3; i++ {
		e := testExam(class.ID)
		e.UploadID = fmt.Sprintf("u%d", i)
		e.Name = fmt.Sprintf("Exam %d", i)
		if _, err := s.CreateExamWithResults(ctx, e, nil); err != nil {
			t.Fatalf("CreateExamWithResults: %v", err)
		}
	}

	tests := []struct {
		opts model.ListOpts
		want int
	}{
		{model.ListOpts{}, 3},
		{model.ListOpts{Limit: 2}, 2},
		{model.ListOpts{Limit: 2, Offset: 2}, 1},
		{model.ListOpts{Offset: 5}, 0},
	}
	for _, tt := range tests {
		got, err := s.ListExams(ctx, tt.opts)
		if err != nil {
			t.Fatalf("ListExams(%+v): %v", tt.opts, err)
		}
		if len(got) != tt.want {
			t.Errorf("ListExams(%+v) returned %d, want %d", tt.opts, len(got), tt.want)
		}
	}

	first, _ := s.ListExams(ctx, model.ListOpts{Limit: 1})
	if first[0].Name != "Exam 2" {
		t.Errorf("expected newest first, got %s", first[0].Name)
	}
}

func TestExportExam(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, class := seedCatalog(t, s)

	// correct easy = i%6, medium 3: scale-10 scores 3, 4, 5, 6 for four students
	exam, err := s.CreateExamWithResults(ctx, testExam(class.ID), testResults(4))
	if err != nil {
		t.Fatalf("CreateExamWithResults: %v", err)
	}

	// retiring the CLO type must not break grading of existing exams
	if err := s.DeleteCLOType(ctx, "CLO1"); err != nil {
		t.Fatalf("DeleteCLOType: %v", err)
	}

	exp, err := s.ExportExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ExportExam: %v", err)
	}
	if exp.CourseCode != "MATH101" || exp.NumStudents != 4 || exp.NumPassed != 2 {
		t.Errorf("export = %+v", exp)
	}
	if math.Abs(exp.PassRate-50) > 1e-9 || !exp.MeetsExpectation {
		t.Errorf("pass rate = %v, meets = %v", exp.PassRate, exp.MeetsExpectation)
	}
	g := exp.Results[0].Grade
	if math.Abs(g.MaxScore-50) > 1e-9 || math.Abs(g.ScoreOnScale10-3) > 1e-9 || g.LetterGrade != "F" || g.IsPassed {
		t.Errorf("grade of s01 = %+v", g)
	}

	one, err := s.GradedResult(ctx, exp.Results[2].ID)
	if err != nil {
		t.Fatalf("GradedResult: %v", err)
	}
	if one.Grade != exp.Results[2].Grade {
		t.Errorf("GradedResult grade %+v differs from export %+v", one.Grade, exp.Results[2].Grade)
	}

	if _, err := s.ExportExam(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
