package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/learngauge/learngauge/internal/i18n"
	"github.com/learngauge/learngauge/internal/ingest"
	"github.com/learngauge/learngauge/internal/model"
)

// multipart parts above this size spill to temporary files
const memoryLimit = 8 << 20

// Upload form file fields.
const (
	fieldAnswerFile    = "answer_file"
	fieldChapterFile   = "classification_file"
	fieldResponsesFile = "student_answer_file"
)

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, apiError{
				Error:   "UploadTooLarge",
				Message: i18n.Td(r.Context(), "UploadTooLarge", map[string]any{"Limit": h.config.MaxUploadBytes >> 20}),
			})
			return
		}
		h.writeBadRequest(w, r, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	meta, err := parseMetadata(r.MultipartForm)
	if err != nil {
		h.writeBadRequest(w, r, err.Error())
		return
	}

	up := ingest.Upload{Meta: meta}
	for _, f := range []struct {
		field string
		dst   *ingest.File
	}{
		{fieldAnswerFile, &up.AnswerKey},
		{fieldChapterFile, &up.Chapters},
		{fieldResponsesFile, &up.Responses},
	} {
		file, hdr, err := r.FormFile(f.field)
		if errors.Is(err, http.ErrMissingFile) {
			// the pipeline reports a missing file against its kind
			continue
		}
		if err != nil {
			h.writeBadRequest(w, r, fmt.Sprintf("%s: %v", f.field, err))
			return
		}
		defer file.Close()
		*f.dst = ingest.File{Name: hdr.Filename, Reader: file}
	}

	exam, results, err := h.pipeline.Ingest(r.Context(), up)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, examResponse{Exam: exam, ResultCount: len(results)})
}

// parseMetadata reads the exam fields of the upload form. Range checks are
// left to the pipeline.
func parseMetadata(form *multipart.Form) (model.ExamMetadata, error) {
	get := func(k string) string {
		if v := form.Value[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	var (
		meta model.ExamMetadata
		err  error
	)
	if s := get("course_class_id"); s != "" {
		if meta.CourseClassID, err = strconv.ParseInt(s, 10, 64); err != nil {
			return meta, fmt.Errorf("course_class_id: %q is not a number", s)
		}
	}
	meta.Name = get("name")
	meta.Description = get("description")
	meta.CLOType = get("clo_type")
	meta.ExamFormat = model.ExamFormat(strings.ToUpper(get("exam_format")))

	if meta.Chapters, err = parseChapters(form.Value["chapters"]); err != nil {
		return meta, err
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"pass_expectation_rate", &meta.PassExpectationRate},
		{"clo_pass_threshold", &meta.CLOPassThreshold},
		{"max_score", &meta.MaxScore},
	} {
		s := get(f.key)
		if s == "" {
			continue
		}
		if *f.dst, err = strconv.ParseFloat(s, 64); err != nil {
			return meta, fmt.Errorf("%s: %q is not a number", f.key, s)
		}
	}
	return meta, nil
}

// parseChapters accepts repeated values, comma-separated lists, or both.
func parseChapters(values []string) ([]int, error) {
	var out []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("chapters: %q is not a number", part)
			}
			out = append(out, n)
		}
	}
	return out, nil
}
