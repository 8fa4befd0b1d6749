package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/learngauge/learngauge/internal/sheet"
)

// Accepted header names, already normalised.
var (
	answerKeyCodeHeaders   = []string{"mã", "mã câu hỏi", "question code", "question_code", "code"}
	answerKeyAnswerHeaders = []string{"đáp án đúng", "đáp án", "correct answer", "correct_answer", "answer"}
)

var errNoRows = errors.New("no data rows")

// AnswerKeyEntry is one row of the answer key.
type AnswerKeyEntry struct {
	Code          QuestionCode
	CorrectAnswer string
}

// AnswerKey maps a lower-cased question code to its entry.
type AnswerKey map[string]AnswerKeyEntry

// NewAnswerKey indexes validated entries by code.
func NewAnswerKey(entries []AnswerKeyEntry) AnswerKey {
	k := make(AnswerKey, len(entries))
	for _, e := range entries {
		k[e.Code.Raw] = e
	}
	return k
}

// LoadAnswerKey reads every row of an answer key table. Duplicates are kept
// so that Validate can report them.
func LoadAnswerKey(t *sheet.Table) ([]AnswerKeyEntry, error) {
	codeCol, err := requireColumn(t, answerKeyCodeHeaders)
	if err != nil {
		return nil, &FileFormatError{File: AnswerKeyFile, Err: err}
	}
	ansCol, err := requireColumn(t, answerKeyAnswerHeaders)
	if err != nil {
		return nil, &FileFormatError{File: AnswerKeyFile, Err: err}
	}
	if len(t.Rows) == 0 {
		return nil, &FileFormatError{File: AnswerKeyFile, Err: errNoRows}
	}

	out := make([]AnswerKeyEntry, 0, len(t.Rows))
	for i, row := range t.Rows {
		raw, ans := row[codeCol], sheet.Normalize(row[ansCol])
		if raw == "" {
			return nil, &FileFormatError{File: AnswerKeyFile, Err: fmt.Errorf("row %d: missing question code", i+2)}
		}
		if ans == "" {
			return nil, &FileFormatError{File: AnswerKeyFile, Err: fmt.Errorf("row %d: missing correct answer for %s", i+2, raw)}
		}
		code, err := Decode(raw)
		if err != nil {
			return nil, &FileFormatError{File: AnswerKeyFile, Err: fmt.Errorf("row %d: %w", i+2, err)}
		}
		out = append(out, AnswerKeyEntry{Code: code, CorrectAnswer: ans})
	}
	return out, nil
}

func requireColumn(t *sheet.Table, names []string) (int, error) {
	if i := t.Column(names...); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("missing column %q (accepted: %s)", names[0], strings.Join(names, ", "))
}
