package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/learngauge/learngauge/internal/i18n"
	"github.com/learngauge/learngauge/internal/ingest"
	"github.com/learngauge/learngauge/internal/model"
	"github.com/learngauge/learngauge/internal/store"
)

// DefaultMaxUploadBytes caps a multipart upload when Config leaves it zero.
const DefaultMaxUploadBytes = 32 << 20

// Config holds HTTP-level limits.
type Config struct {
	MaxUploadBytes int64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	pipeline *ingest.Pipeline
	config   Config
}

// New creates a new Handler.
func New(s *store.Store, p *ingest.Pipeline, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{store: s, pipeline: p, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/exams/upload", h.handleUpload)
		r.Get("/exams", h.handleListExams)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.Delete("/exams/{examID}", h.handleDeleteExam)
		r.Get("/exams/{examID}/results", h.handleExamResults)
		r.Get("/exams/{examID}/export", h.handleExport)
		r.Get("/results/{resultID}", h.handleGetResult)
	})
}

type examResponse struct {
	Exam        model.Exam `json:"exam"`
	ResultCount int        `json:"result_count"`
}

type resultsResponse struct {
	Exam    model.Exam           `json:"exam"`
	Results []model.GradedResult `json:"results"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	opts := model.ListOpts{
		Limit:  parseIntDefault(r.URL.Query().Get("limit"), store.DefaultListLimit),
		Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
	}
	exams, err := h.store.ListExams(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exams": exams, "limit": opts.Limit, "offset": opts.Offset})
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "examID")
	if !ok {
		return
	}
	exam, err := h.store.GetExam(r.Context(), id)
	if err != nil {
		h.writeNotFoundOr(w, r, err, "EntityExam", id)
		return
	}
	n, err := h.store.CountExamResults(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, examResponse{Exam: exam, ResultCount: n})
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "examID")
	if !ok {
		return
	}
	if err := h.store.DeleteExam(r.Context(), id); err != nil {
		h.writeNotFoundOr(w, r, err, "EntityExam", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExamResults(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "examID")
	if !ok {
		return
	}
	exam, results, err := h.store.GradedResults(r.Context(), id)
	if err != nil {
		h.writeNotFoundOr(w, r, err, "EntityExam", id)
		return
	}
	if results == nil {
		results = []model.GradedResult{}
	}
	writeJSON(w, http.StatusOK, resultsResponse{Exam: exam, Results: results})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "examID")
	if !ok {
		return
	}
	exp, err := h.store.ExportExam(r.Context(), id)
	if err != nil {
		h.writeNotFoundOr(w, r, err, "EntityExam", id)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="exam-`+strconv.FormatInt(id, 10)+`.json"`)
	writeJSON(w, http.StatusOK, exp)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "resultID")
	if !ok {
		return
	}
	res, err := h.store.GradedResult(r.Context(), id)
	if err != nil {
		h.writeNotFoundOr(w, r, err, "EntityResult", id)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.writeBadRequest(w, r, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeNotFoundOr(w http.ResponseWriter, r *http.Request, err error, entityMsgID string, id int64) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, apiError{
			Error: "NotFound",
			Message: i18n.Td(r.Context(), "NotFound", map[string]any{
				"Entity": i18n.T(r.Context(), entityMsgID),
				"Key":    id,
			}),
		})
		return
	}
	h.writeError(w, r, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
