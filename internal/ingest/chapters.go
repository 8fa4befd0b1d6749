package ingest

import (
	"fmt"
	"math"
	"strconv"

	"github.com/learngauge/learngauge/internal/sheet"
)

var (
	chapterCodeHeaders    = []string{"mã đề", "mã", "question code", "question_code", "code"}
	chapterChapterHeaders = []string{"chương", "chapter"}
)

// ChapterAssignment maps a question to the chapter it examines.
type ChapterAssignment struct {
	Code    QuestionCode
	Chapter int
}

// LoadChapters reads every row of a chapter map table.
func LoadChapters(t *sheet.Table) ([]ChapterAssignment, error) {
	codeCol, err := requireColumn(t, chapterCodeHeaders)
	if err != nil {
		return nil, &FileFormatError{File: ChapterFile, Err: err}
	}
	chCol, err := requireColumn(t, chapterChapterHeaders)
	if err != nil {
		return nil, &FileFormatError{File: ChapterFile, Err: err}
	}
	if len(t.Rows) == 0 {
		return nil, &FileFormatError{File: ChapterFile, Err: errNoRows}
	}

	out := make([]ChapterAssignment, 0, len(t.Rows))
	for i, row := range t.Rows {
		raw := row[codeCol]
		if raw == "" {
			return nil, &FileFormatError{File: ChapterFile, Err: fmt.Errorf("row %d: missing question code", i+2)}
		}
		code, err := Decode(raw)
		if err != nil {
			return nil, &FileFormatError{File: ChapterFile, Err: fmt.Errorf("row %d: %w", i+2, err)}
		}
		ch, err := parseChapter(row[chCol])
		if err != nil {
			return nil, &FileFormatError{File: ChapterFile, Err: fmt.Errorf("row %d: %w", i+2, err)}
		}
		out = append(out, ChapterAssignment{Code: code, Chapter: ch})
	}
	return out, nil
}

// parseChapter accepts "3" as well as "3.0", which spreadsheets emit for
// numeric cells.
func parseChapter(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing chapter")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, fmt.Errorf("chapter %q is not a positive whole number", s)
	}
	return int(f), nil
}
