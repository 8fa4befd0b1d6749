package ingest

import "github.com/learngauge/learngauge/internal/model"

// Tally counts answered and correctly answered questions of one difficulty.
type Tally struct {
	Total   int
	Correct int
}

// ConsolidatedStudentResult is the per-student outcome of comparing
// responses against the answer key.
type ConsolidatedStudentResult struct {
	StudentCode  string
	StudentName  string
	Version      string
	Easy         Tally
	Medium       Tally
	Hard         Tally
	Total        int
	TotalCorrect int
}

// ExamResult converts c into the row stored for examID.
func (c ConsolidatedStudentResult) ExamResult(examID int64) model.ExamResult {
	return model.ExamResult{
		ExamID:                      examID,
		StudentCode:                 c.StudentCode,
		StudentName:                 c.StudentName,
		Version:                     c.Version,
		TotalQuestions:              c.Total,
		TotalEasyQuestions:          c.Easy.Total,
		TotalMediumQuestions:        c.Medium.Total,
		TotalHardQuestions:          c.Hard.Total,
		TotalCorrectEasyQuestions:   c.Easy.Correct,
		TotalCorrectMediumQuestions: c.Medium.Correct,
		TotalCorrectHardQuestions:   c.Hard.Correct,
	}
}

// Consolidate folds each student's answers into difficulty tallies. It
// expects input that passed Validate; codes missing from key are skipped.
// Output order follows responses.
func Consolidate(key AnswerKey, responses []StudentResponseRecord) []ConsolidatedStudentResult {
	out := make([]ConsolidatedStudentResult, 0, len(responses))
	for _, r := range responses {
		res := ConsolidatedStudentResult{StudentCode: r.StudentCode, StudentName: r.StudentName}
		for code, answer := range r.Answers {
			entry, ok := key[code]
			if !ok {
				continue
			}
			res.Version = entry.Code.Version
			correct := answer == entry.CorrectAnswer

			var t *Tally
			switch entry.Code.Difficulty {
			case model.DifficultyEasy:
				t = &res.Easy
			case model.DifficultyMedium:
				t = &res.Medium
			default:
				t = &res.Hard
			}
			t.Total++
			res.Total++
			if correct {
				t.Correct++
				res.TotalCorrect++
			}
		}
		out = append(out, res)
	}
	return out
}
