package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appI18n "github.com/learngauge/learngauge/internal/i18n"
	"github.com/learngauge/learngauge/internal/ingest"
	"github.com/learngauge/learngauge/internal/model"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Validate and store one exam from local files",
		Long: `Reads an answer key, a chapter map and a student response sheet
(CSV or XLSX), cross-validates them and stores the exam with one result
row per student. Nothing is written when any check fails.`,
		RunE: runIngest,
	}
	f := cmd.Flags()
	f.Int64("class-id", 0, "Course class ID")
	f.String("name", "", "Exam name")
	f.String("description", "", "Exam description")
	f.String("clo-type", "", "CLO type code")
	f.String("exam-format", string(model.ExamFormatMCQ), "Exam format (ESSAY, PRACTICE, WRITTEN, MCQ)")
	f.IntSlice("chapters", nil, "Chapters covered by the exam")
	f.Float64("pass-expectation-rate", 50, "Expected pass rate in percent")
	f.Float64("clo-pass-threshold", 5, "Passing score on the 10-point scale")
	f.Float64("max-score", 10, "Maximum score of the exam")
	f.String("answer-file", "", "Answer key file")
	f.String("chapter-file", "", "Chapter map file")
	f.String("responses-file", "", "Student response file")
	addLimitFlags(cmd)
	for _, name := range []string{"class-id", "name", "clo-type", "chapters", "answer-file", "chapter-file", "responses-file"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	meta := model.ExamMetadata{
		CourseClassID:       v.GetInt64("class-id"),
		Name:                v.GetString("name"),
		Description:         v.GetString("description"),
		CLOType:             v.GetString("clo-type"),
		ExamFormat:          model.ExamFormat(strings.ToUpper(v.GetString("exam-format"))),
		Chapters:            v.GetIntSlice("chapters"),
		PassExpectationRate: v.GetFloat64("pass-expectation-rate"),
		CLOPassThreshold:    v.GetFloat64("clo-pass-threshold"),
		MaxScore:            v.GetFloat64("max-score"),
	}

	up := ingest.Upload{Meta: meta}
	for _, f := range []struct {
		flag string
		dst  *ingest.File
	}{
		{"answer-file", &up.AnswerKey},
		{"chapter-file", &up.Chapters},
		{"responses-file", &up.Responses},
	} {
		path := v.GetString(f.flag)
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%s: %w", f.flag, err)
		}
		defer file.Close()
		*f.dst = ingest.File{Name: path, Reader: file}
	}

	pipeline := ingest.New(db, ingest.Options{
		Limits:       sheetLimits(v),
		ParseTimeout: v.GetDuration("parse-timeout"),
	})
	exam, results, err := pipeline.Ingest(ctx, up)
	if err != nil {
		return describe(ctx, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exam %d (%s): %s\n", exam.ID, exam.Name, appI18n.Tp(ctx, "ResultsStored", len(results)))
	return nil
}

// describe localizes validation failures. Other errors are returned unchanged.
func describe(ctx context.Context, err error) error {
	var ve *ingest.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	return errors.New(appI18n.Td(ctx, string(ve.Kind), map[string]any{
		"Items":  strings.Join(ve.Items, ", "),
		"Course": ve.Course,
	}))
}
