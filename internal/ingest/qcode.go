package ingest

import (
	"github.com/learngauge/learngauge/internal/model"
	"github.com/learngauge/learngauge/internal/sheet"
)

// suffix layout: version(3) + sequence(3) + difficulty(1)
const codeSuffixLen = 7

var difficultyByLetter = map[rune]model.Difficulty{
	'd': model.DifficultyEasy,
	't': model.DifficultyMedium,
	'k': model.DifficultyHard,
}

// QuestionCode is a decoded `<course><version:3><sequence:3><difficulty:1>`
// identifier. All parts are lower-cased.
type QuestionCode struct {
	Raw        string
	CourseCode string
	Version    string
	Sequence   string
	Difficulty model.Difficulty
}

// Decode splits a question code into its parts. The code is normalised
// with sheet.Normalize first and split by characters, not bytes.
func Decode(code string) (QuestionCode, error) {
	c := sheet.Normalize(code)
	r := []rune(c)
	n := len(r)
	if n < codeSuffixLen {
		return QuestionCode{}, &MalformedCodeError{Code: code, Reason: "shorter than 7 characters"}
	}
	d, ok := difficultyByLetter[r[n-1]]
	if !ok {
		return QuestionCode{}, &MalformedCodeError{Code: code, Reason: "difficulty must be one of d, t, k"}
	}
	return QuestionCode{
		Raw:        c,
		CourseCode: string(r[:n-7]),
		Version:    string(r[n-7 : n-4]),
		Sequence:   string(r[n-4 : n-1]),
		Difficulty: d,
	}, nil
}
