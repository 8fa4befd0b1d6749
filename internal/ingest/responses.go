package ingest

import (
	"fmt"

	"github.com/learngauge/learngauge/internal/sheet"
)

var (
	studentCodeHeaders = []string{"mssv", "student id", "student_code", "student code"}
	sequenceHeaders    = []string{"stt", "no", "sequence"}
	studentNameHeaders = []string{"họ tên", "student name", "student_name", "name"}
)

// StudentResponseRecord is one student's row. Answers maps a lower-cased
// question code to the chosen option; unanswered questions are absent.
type StudentResponseRecord struct {
	StudentCode string
	StudentName string
	Sequence    string
	Answers     map[string]string
}

// LoadResponses reads the wide student responses table: three identity
// columns and one column per question code.
func LoadResponses(t *sheet.Table) ([]StudentResponseRecord, error) {
	fail := func(err error) error { return &FileFormatError{File: ResponseFile, Err: err} }

	codeCol, err := requireColumn(t, studentCodeHeaders)
	if err != nil {
		return nil, fail(err)
	}
	nameCol, err := requireColumn(t, studentNameHeaders)
	if err != nil {
		return nil, fail(err)
	}
	seqCol := t.Column(sequenceHeaders...)
	if len(t.Rows) == 0 {
		return nil, fail(errNoRows)
	}

	type qcol struct {
		idx  int
		code string
	}
	var questions []qcol
	seen := map[string]bool{}
	for i, h := range t.Header {
		if i == codeCol || i == nameCol || i == seqCol {
			continue
		}
		if h == "" {
			if nonEmptyColumn(t, i) {
				return nil, fail(fmt.Errorf("column %d has answers but no question code", i+1))
			}
			continue
		}
		qc, err := Decode(h)
		if err != nil {
			return nil, fail(fmt.Errorf("column %d: %w", i+1, err))
		}
		if seen[qc.Raw] {
			return nil, fail(fmt.Errorf("question code %s appears in more than one column", qc.Raw))
		}
		seen[qc.Raw] = true
		questions = append(questions, qcol{idx: i, code: qc.Raw})
	}

	out := make([]StudentResponseRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		sc := sheet.Normalize(row[codeCol])
		if sc == "" {
			return nil, fail(fmt.Errorf("row %d: missing student code", i+2))
		}
		rec := StudentResponseRecord{
			StudentCode: sc,
			StudentName: row[nameCol],
			Answers:     make(map[string]string, len(questions)),
		}
		if seqCol >= 0 {
			rec.Sequence = row[seqCol]
		}
		for _, q := range questions {
			if a := sheet.Normalize(row[q.idx]); a != "" {
				rec.Answers[q.code] = a
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func nonEmptyColumn(t *sheet.Table, col int) bool {
	for _, row := range t.Rows {
		if row[col] != "" {
			return true
		}
	}
	return false
}
