// Package ingest turns an uploaded answer key, chapter map and student
// response sheet into one exam with per-student result rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/learngauge/learngauge/internal/model"
	"github.com/learngauge/learngauge/internal/sheet"
)

// DefaultParseTimeout bounds reading the three files when Options leaves it zero.
const DefaultParseTimeout = 30 * time.Second

// Store is the persistence the pipeline needs.
type Store interface {
	CourseForClass(ctx context.Context, classID int64) (model.Course, error)
	GetCLOType(ctx context.Context, code string) (model.CLOType, error)
	CreateExamWithResults(ctx context.Context, exam model.Exam, results []model.ExamResult) (model.Exam, error)
}

// Options tunes resource bounds.
type Options struct {
	Limits       sheet.Limits
	ParseTimeout time.Duration
}

// File is one uploaded file. Name decides the format by extension.
type File struct {
	Name   string
	Reader io.Reader
}

// Upload is everything a caller submits for one exam.
type Upload struct {
	Meta      model.ExamMetadata
	AnswerKey File
	Chapters  File
	Responses File
}

// Pipeline validates, consolidates and persists uploads.
type Pipeline struct {
	store    Store
	opts     Options
	validate *validator.Validate
}

// New returns a Pipeline writing to s.
func New(s Store, opts Options) *Pipeline {
	if opts.ParseTimeout <= 0 {
		opts.ParseTimeout = DefaultParseTimeout
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// gte and lte alone let +Inf through
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})
	return &Pipeline{store: s, opts: opts, validate: v}
}

// Ingest runs one upload end to end. Every error except PersistenceError is
// returned before anything is written.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (model.Exam, []model.ExamResult, error) {
	uploadID := uuid.NewString()
	log := slog.With("upload_id", uploadID, "class_id", up.Meta.CourseClassID)
	start := time.Now()

	if err := p.checkMetadata(up.Meta); err != nil {
		log.Info("metadata rejected", "error", err)
		return model.Exam{}, nil, err
	}

	course, err := p.store.CourseForClass(ctx, up.Meta.CourseClassID)
	if err != nil {
		return model.Exam{}, nil, lookupErr(err, "course class", strconv.FormatInt(up.Meta.CourseClassID, 10))
	}
	if _, err := p.store.GetCLOType(ctx, up.Meta.CLOType); err != nil {
		return model.Exam{}, nil, lookupErr(err, "CLO type", up.Meta.CLOType)
	}

	key, chapters, responses, err := p.load(ctx, up)
	if err != nil {
		log.Info("files rejected", "error", err)
		return model.Exam{}, nil, err
	}
	log.Debug("files loaded", "questions", len(key), "chapters", len(chapters), "students", len(responses))

	if err := Validate(course.Code, key, chapters, responses); err != nil {
		log.Info("validation failed", "course", course.Code, "error", err)
		return model.Exam{}, nil, err
	}

	consolidated := Consolidate(NewAnswerKey(key), responses)
	results := make([]model.ExamResult, len(consolidated))
	for i, c := range consolidated {
		results[i] = c.ExamResult(0)
	}

	exam := model.Exam{
		UploadID:            uploadID,
		CourseClassID:       up.Meta.CourseClassID,
		Name:                up.Meta.Name,
		Description:         up.Meta.Description,
		CLOType:             up.Meta.CLOType,
		ExamFormat:          up.Meta.ExamFormat,
		Chapters:            up.Meta.Chapters,
		PassExpectationRate: up.Meta.PassExpectationRate,
		CLOPassThreshold:    up.Meta.CLOPassThreshold,
		MaxScore:            up.Meta.MaxScore,
	}
	exam, err = p.store.CreateExamWithResults(ctx, exam, results)
	if err != nil {
		log.Error("persist failed", "error", err)
		return model.Exam{}, nil, &PersistenceError{Err: err}
	}
	for i := range results {
		results[i].ExamID = exam.ID
		results[i].CreatedAt = exam.CreatedAt
	}

	log.Info("exam ingested", "exam_id", exam.ID, "course", course.Code,
		"results", len(results), "duration", time.Since(start))
	return exam, results, nil
}

func (p *Pipeline) checkMetadata(meta model.ExamMetadata) error {
	err := p.validate.Struct(meta)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate metadata: %w", err)
	}
	items := make([]string, len(ve))
	for i, fe := range ve {
		items[i] = fe.Field() + ": " + fe.Tag()
	}
	return &ValidationError{Kind: InvalidExamMetadata, Items: items}
}

func lookupErr(err error, entity, key string) error {
	if errors.Is(err, model.ErrNotFound) {
		return &NotFoundError{Entity: entity, Key: key}
	}
	return fmt.Errorf("look up %s %s: %w", entity, key, err)
}

// load parses the three files concurrently. When several fail, the error of
// the first file in upload order wins.
func (p *Pipeline) load(ctx context.Context, up Upload) ([]AnswerKeyEntry, []ChapterAssignment, []StudentResponseRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ParseTimeout)
	defer cancel()

	var (
		key       []AnswerKeyEntry
		chapters  []ChapterAssignment
		responses []StudentResponseRecord
		errs      [3]error
		g         errgroup.Group
	)
	g.Go(func() error {
		t, err := p.read(ctx, AnswerKeyFile, up.AnswerKey)
		if err == nil {
			key, err = LoadAnswerKey(t)
		}
		errs[0] = err
		return err
	})
	g.Go(func() error {
		t, err := p.read(ctx, ChapterFile, up.Chapters)
		if err == nil {
			chapters, err = LoadChapters(t)
		}
		errs[1] = err
		return err
	})
	g.Go(func() error {
		t, err := p.read(ctx, ResponseFile, up.Responses)
		if err == nil {
			responses, err = LoadResponses(t)
		}
		errs[2] = err
		return err
	})
	if g.Wait() != nil {
		for _, err := range errs {
			if err != nil {
				return nil, nil, nil, err
			}
		}
	}
	return key, chapters, responses, nil
}

func (p *Pipeline) read(ctx context.Context, kind FileKind, f File) (*sheet.Table, error) {
	if f.Reader == nil {
		return nil, &FileFormatError{File: kind, Err: errors.New("file is missing")}
	}
	t, err := sheet.Read(ctx, f.Name, f.Reader, p.opts.Limits)
	if err != nil {
		return nil, &FileFormatError{File: kind, Err: err}
	}
	return t, nil
}
