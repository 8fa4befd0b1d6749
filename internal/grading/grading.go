// Package grading derives scores from stored exam results. Nothing here is
// persisted: grades are recomputed on every read.
package grading

import "github.com/learngauge/learngauge/internal/model"

// Letter grade thresholds on the 10-point scale.
const (
	thresholdA = 8.5
	thresholdB = 7.0
	thresholdC = 5.5
	thresholdD = 4.0
)

// Grade computes the score of one result. weight is the CLO type weight in
// percent and scales the exam's max score.
//
// Only easy and medium questions count toward the score; hard questions are
// tallied on the result but excluded here.
func Grade(r model.ExamResult, exam model.Exam, weight float64) model.Grade {
	maxScore := exam.MaxScore * weight / 100

	denominator := r.TotalEasyQuestions + r.TotalMediumQuestions
	numerator := r.TotalCorrectEasyQuestions + r.TotalCorrectMediumQuestions

	var actual float64
	if denominator != 0 {
		actual = float64(numerator) / float64(denominator) * maxScore
	}

	var scale10 float64
	if maxScore != 0 {
		scale10 = actual / maxScore * 10
	}

	return model.Grade{
		MaxScore:       maxScore,
		ActualScore:    actual,
		ScoreOnScale10: scale10,
		LetterGrade:    Letter(scale10),
		IsPassed:       scale10 >= exam.CLOPassThreshold,
	}
}

// Letter maps a 10-point score to A..F.
func Letter(score float64) string {
	switch {
	case score >= thresholdA:
		return "A"
	case score >= thresholdB:
		return "B"
	case score >= thresholdC:
		return "C"
	case score >= thresholdD:
		return "D"
	default:
		return "F"
	}
}

// GradeAll grades every result of one exam, preserving order.
func GradeAll(results []model.ExamResult, exam model.Exam, clo model.CLOType) []model.GradedResult {
	out := make([]model.GradedResult, 0, len(results))
	for _, r := range results {
		out = append(out, model.GradedResult{
			ExamResult: r,
			Grade:      Grade(r, exam, clo.Weight),
		})
	}
	return out
}
