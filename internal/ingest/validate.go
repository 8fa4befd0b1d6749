package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/learngauge/learngauge/internal/sheet"
)

// Validate checks the three loaded files against each other and the target
// course. Rules run in a fixed order. Each rule collects every violation of
// its kind before failing, and the first failing rule stops the rest.
func Validate(course string, key []AnswerKeyEntry, chapters []ChapterAssignment, responses []StudentResponseRecord) error {
	course = sheet.Normalize(course)
	rules := []func() error{
		func() error { return checkAnswerKeyShape(key) },
		func() error { return checkForeignCourse(AnswerKeyForeignCourse, course, answerKeyCodes(key)) },
		func() error { return checkMixedCourses(AnswerKeyMixedCourses, answerKeyCodes(key)) },
		func() error { return checkChapters(course, key, chapters) },
		func() error { return checkUnknownCodes(key, responses) },
		func() error { return checkAnswerCounts(responses) },
		func() error { return checkStudentVersions(key, responses) },
		func() error { return checkDuplicateStudents(responses) },
	}
	for _, rule := range rules {
		if err := rule(); err != nil {
			if ve, ok := err.(*ValidationError); ok && ve.Course == "" {
				ve.Course = course
			}
			return err
		}
	}
	return nil
}

func answerKeyCodes(key []AnswerKeyEntry) []QuestionCode {
	out := make([]QuestionCode, len(key))
	for i, e := range key {
		out[i] = e.Code
	}
	return out
}

func chapterCodes(chapters []ChapterAssignment) []QuestionCode {
	out := make([]QuestionCode, len(chapters))
	for i, c := range chapters {
		out[i] = c.Code
	}
	return out
}

func checkAnswerKeyShape(key []AnswerKeyEntry) error {
	if dups := duplicates(answerKeyCodes(key)); len(dups) > 0 {
		return &ValidationError{Kind: DuplicateAnswerKeyCodes, Items: dups}
	}
	perVersion := map[string]int{}
	for _, e := range key {
		perVersion[e.Code.Version]++
	}
	if len(perVersion) < 2 {
		return nil
	}
	counts := map[int]bool{}
	for _, n := range perVersion {
		counts[n] = true
	}
	if len(counts) == 1 {
		return nil
	}
	items := make([]string, 0, len(perVersion))
	for v, n := range perVersion {
		items = append(items, fmt.Sprintf("%s=%d", v, n))
	}
	sort.Strings(items)
	return &ValidationError{Kind: UnequalVersionLengths, Items: items}
}

func checkForeignCourse(kind ValidationKind, course string, codes []QuestionCode) error {
	set := map[string]struct{}{}
	for _, c := range codes {
		if c.CourseCode != course {
			set[c.Raw] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return &ValidationError{Kind: kind, Items: sortedKeys(set)}
}

func checkMixedCourses(kind ValidationKind, codes []QuestionCode) error {
	set := map[string]struct{}{}
	for _, c := range codes {
		set[c.CourseCode] = struct{}{}
	}
	if len(set) <= 1 {
		return nil
	}
	return &ValidationError{Kind: kind, Items: sortedKeys(set)}
}

func checkChapters(course string, key []AnswerKeyEntry, chapters []ChapterAssignment) error {
	if len(chapters) != len(key) {
		return &ValidationError{Kind: ChapterCountMismatch, Items: []string{
			fmt.Sprintf("answer key=%d", len(key)),
			fmt.Sprintf("chapter map=%d", len(chapters)),
		}}
	}
	codes := chapterCodes(chapters)
	if dups := duplicates(codes); len(dups) > 0 {
		return &ValidationError{Kind: DuplicateChapterCodes, Items: dups}
	}
	if err := checkForeignCourse(ChapterForeignCourse, course, codes); err != nil {
		return err
	}
	return checkMixedCourses(ChapterMixedCourses, codes)
}

func checkUnknownCodes(key []AnswerKeyEntry, responses []StudentResponseRecord) error {
	known := make(map[string]struct{}, len(key))
	for _, e := range key {
		known[e.Code.Raw] = struct{}{}
	}
	unknown := map[string]struct{}{}
	for _, r := range responses {
		for code := range r.Answers {
			if _, ok := known[code]; !ok {
				unknown[code] = struct{}{}
			}
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return &ValidationError{Kind: UnknownQuestionCodes, Items: sortedKeys(unknown)}
}

func checkAnswerCounts(responses []StudentResponseRecord) error {
	counts := map[int]bool{}
	for _, r := range responses {
		counts[len(r.Answers)] = true
	}
	if len(counts) <= 1 {
		return nil
	}
	items := make([]string, len(responses))
	for i, r := range responses {
		items[i] = fmt.Sprintf("%s=%d", r.StudentCode, len(r.Answers))
	}
	sort.Strings(items)
	return &ValidationError{Kind: UnequalStudentAnswerCounts, Items: items}
}

func checkStudentVersions(key []AnswerKeyEntry, responses []StudentResponseRecord) error {
	version := make(map[string]string, len(key))
	for _, e := range key {
		version[e.Code.Raw] = e.Code.Version
	}
	var items []string
	for _, r := range responses {
		set := map[string]struct{}{}
		for code := range r.Answers {
			set[version[code]] = struct{}{}
		}
		if len(set) > 1 {
			items = append(items, fmt.Sprintf("%s: %s", r.StudentCode, strings.Join(sortedKeys(set), ", ")))
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.Strings(items)
	return &ValidationError{Kind: MixedStudentVersions, Items: items}
}

func checkDuplicateStudents(responses []StudentResponseRecord) error {
	seen := map[string]int{}
	for _, r := range responses {
		seen[r.StudentCode]++
	}
	dups := map[string]struct{}{}
	for code, n := range seen {
		if n > 1 {
			dups[code] = struct{}{}
		}
	}
	if len(dups) == 0 {
		return nil
	}
	return &ValidationError{Kind: DuplicateStudentCodes, Items: sortedKeys(dups)}
}

func duplicates(codes []QuestionCode) []string {
	seen := map[string]int{}
	for _, c := range codes {
		seen[c.Raw]++
	}
	dups := map[string]struct{}{}
	for code, n := range seen {
		if n > 1 {
			dups[code] = struct{}{}
		}
	}
	return sortedKeys(dups)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
