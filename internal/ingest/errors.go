package ingest

import (
	"fmt"
	"strings"
)

// FileKind names one of the three uploaded files.
type FileKind string

const (
	AnswerKeyFile FileKind = "answer key"
	ChapterFile   FileKind = "chapter map"
	ResponseFile  FileKind = "student responses"
)

// FileFormatError reports a file that could not be parsed as the expected table.
type FileFormatError struct {
	File FileKind
	Err  error
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("%s file: %v", e.File, e.Err)
}

func (e *FileFormatError) Unwrap() error { return e.Err }

// MalformedCodeError reports a question code that cannot be decoded.
type MalformedCodeError struct {
	Code   string
	Reason string
}

func (e *MalformedCodeError) Error() string {
	return fmt.Sprintf("malformed question code %q: %s", e.Code, e.Reason)
}

// ValidationKind identifies which consistency rule failed. Values double as
// translation message IDs.
type ValidationKind string

const (
	InvalidExamMetadata        ValidationKind = "InvalidExamMetadata"
	DuplicateAnswerKeyCodes    ValidationKind = "DuplicateAnswerKeyCodes"
	UnequalVersionLengths      ValidationKind = "UnequalVersionLengths"
	AnswerKeyForeignCourse     ValidationKind = "AnswerKeyForeignCourse"
	AnswerKeyMixedCourses      ValidationKind = "AnswerKeyMixedCourses"
	ChapterCountMismatch       ValidationKind = "ChapterCountMismatch"
	DuplicateChapterCodes      ValidationKind = "DuplicateChapterCodes"
	ChapterForeignCourse       ValidationKind = "ChapterForeignCourse"
	ChapterMixedCourses        ValidationKind = "ChapterMixedCourses"
	UnknownQuestionCodes       ValidationKind = "UnknownQuestionCodes"
	UnequalStudentAnswerCounts ValidationKind = "UnequalStudentAnswerCounts"
	MixedStudentVersions       ValidationKind = "MixedStudentVersions"
	DuplicateStudentCodes      ValidationKind = "DuplicateStudentCodes"
)

var validationMessages = map[ValidationKind]string{
	InvalidExamMetadata:        "invalid exam metadata",
	DuplicateAnswerKeyCodes:    "answer key has duplicate question codes",
	UnequalVersionLengths:      "exam versions in the answer key have different question counts",
	AnswerKeyForeignCourse:     "answer key has questions not belonging to course %s",
	AnswerKeyMixedCourses:      "answer key mixes questions from several courses",
	ChapterCountMismatch:       "chapter map and answer key have different question counts",
	DuplicateChapterCodes:      "chapter map has duplicate question codes",
	ChapterForeignCourse:       "chapter map has questions not belonging to course %s",
	ChapterMixedCourses:        "chapter map mixes questions from several courses",
	UnknownQuestionCodes:       "student responses contain question codes missing from the answer key",
	UnequalStudentAnswerCounts: "students answered different numbers of questions",
	MixedStudentVersions:       "students answered questions from more than one exam version",
	DuplicateStudentCodes:      "student responses have duplicate student codes",
}

// ValidationError reports well-formed input that is inconsistent. Items
// lists every offending code or student found by the failing rule.
type ValidationError struct {
	Kind   ValidationKind
	Course string
	Items  []string
}

func (e *ValidationError) Error() string {
	msg, ok := validationMessages[e.Kind]
	if !ok {
		msg = string(e.Kind)
	}
	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, e.Course)
	}
	if len(e.Items) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(e.Items, ", "))
}

// NotFoundError reports a referenced record that is missing or soft-deleted.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// PersistenceError reports a failed write. The transaction has been rolled back.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist exam: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
