package model

import "time"

// ExamExport is the top-level JSON structure for graded result export.
type ExamExport struct {
	Exam        Exam      `json:"exam"`
	CourseCode  string    `json:"course_code"`
	CLOType     CLOType   `json:"clo_type"`
	ExportedAt  time.Time `json:"exported_at"`
	NumStudents int       `json:"num_students"`
	NumPassed   int       `json:"num_passed"`
	PassRate    float64   `json:"pass_rate"`

	// MeetsExpectation reports PassRate >= Exam.PassExpectationRate.
	MeetsExpectation bool           `json:"meets_expectation"`
	Results          []GradedResult `json:"results"`
}
