package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned by the store when a row is missing or soft-deleted.
var ErrNotFound = errors.New("not found")

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ExamFormat is the delivery format of an exam.
type ExamFormat string

const (
	ExamFormatEssay    ExamFormat = "ESSAY"
	ExamFormatPractice ExamFormat = "PRACTICE"
	ExamFormatWritten  ExamFormat = "WRITTEN"
	ExamFormatMCQ      ExamFormat = "MCQ"
)

// ExamFormats lists every accepted exam format.
func ExamFormats() []ExamFormat {
	return []ExamFormat{ExamFormatEssay, ExamFormatPractice, ExamFormatWritten, ExamFormatMCQ}
}

// Course is a subject whose code prefixes every question code of its exams.
type Course struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// CourseClass is one teaching group of a course.
type CourseClass struct {
	ID        int64      `json:"id"`
	CourseID  int64      `json:"course_id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// CLOType is a course learning outcome category. Weight (percent) scales
// the maximum score of every exam that references it.
type CLOType struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Weight      float64    `json:"weight"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Exam is created once per result upload and owns its ExamResult rows.
type Exam struct {
	ID                  int64      `json:"id"`
	UploadID            string     `json:"upload_id"`
	CourseClassID       int64      `json:"course_class_id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	CLOType             string     `json:"clo_type"`
	ExamFormat          ExamFormat `json:"exam_format"`
	Chapters            []int      `json:"chapters"`
	PassExpectationRate float64    `json:"pass_expectation_rate"`
	CLOPassThreshold    float64    `json:"clo_pass_threshold"`
	MaxScore            float64    `json:"max_score"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ExamResult holds one student's correctness tallies for an exam.
type ExamResult struct {
	ID                          int64     `json:"id"`
	ExamID                      int64     `json:"exam_id"`
	StudentCode                 string    `json:"student_code"`
	StudentName                 string    `json:"student_name"`
	Version                     string    `json:"version"`
	TotalQuestions              int       `json:"total_questions"`
	TotalEasyQuestions          int       `json:"total_easy_questions"`
	TotalMediumQuestions        int       `json:"total_medium_questions"`
	TotalHardQuestions          int       `json:"total_hard_questions"`
	TotalCorrectEasyQuestions   int       `json:"total_correct_easy_questions"`
	TotalCorrectMediumQuestions int       `json:"total_correct_medium_questions"`
	TotalCorrectHardQuestions   int       `json:"total_correct_hard_questions"`
	CreatedAt                   time.Time `json:"created_at"`
}

// ExamMetadata is the caller-supplied description of the exam being ingested.
type ExamMetadata struct {
	CourseClassID       int64      `json:"course_class_id" validate:"required,gt=0"`
	Name                string     `json:"name" validate:"required,max=255"`
	Description         string     `json:"description"`
	CLOType             string     `json:"clo_type" validate:"required"`
	ExamFormat          ExamFormat `json:"exam_format" validate:"required,oneof=ESSAY PRACTICE WRITTEN MCQ"`
	Chapters            []int      `json:"chapters" validate:"required,min=1,dive,gte=1"`
	PassExpectationRate float64    `json:"pass_expectation_rate" validate:"finite,gte=0,lte=100"`
	CLOPassThreshold    float64    `json:"clo_pass_threshold" validate:"finite,gte=0,lte=10"`
	MaxScore            float64    `json:"max_score" validate:"finite,gte=0"`
}

// Grade is the read-time derivation of an ExamResult. It is never stored.
type Grade struct {
	MaxScore       float64 `json:"max_score"`
	ActualScore    float64 `json:"actual_score"`
	ScoreOnScale10 float64 `json:"score_on_scale_10"`
	LetterGrade    string  `json:"letter_grade"`
	IsPassed       bool    `json:"is_passed"`
}

// GradedResult pairs a stored result with its derived grade for display.
type GradedResult struct {
	ExamResult
	Grade Grade `json:"grade"`
}

// ListOpts pages through list queries.
type ListOpts struct {
	Limit  int
	Offset int
}
