package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/learngauge/learngauge/internal/i18n"
	"github.com/learngauge/learngauge/internal/ingest"
)

type apiError struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Items   []string `json:"items,omitempty"`
}

var fileMsgIDs = map[ingest.FileKind]string{
	ingest.AnswerKeyFile: "FileAnswerKey",
	ingest.ChapterFile:   "FileChapters",
	ingest.ResponseFile:  "FileResponses",
}

var entityMsgIDs = map[string]string{
	"course class": "EntityCourseClass",
	"CLO type":     "EntityCLOType",
}

// writeError maps pipeline and store errors to a localized JSON response.
// Anything unrecognised is logged and reported as a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var (
		ve  *ingest.ValidationError
		ffe *ingest.FileFormatError
		nfe *ingest.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, apiError{
			Error: string(ve.Kind),
			Message: i18n.Td(ctx, string(ve.Kind), map[string]any{
				"Items":  strings.Join(ve.Items, ", "),
				"Course": ve.Course,
			}),
			Items: ve.Items,
		})
	case errors.As(err, &ffe):
		writeJSON(w, http.StatusBadRequest, apiError{
			Error: "FileFormatError",
			Message: i18n.Td(ctx, "FileFormatError", map[string]any{
				"File":   i18n.T(ctx, fileMsgIDs[ffe.File]),
				"Detail": ffe.Err.Error(),
			}),
		})
	case errors.As(err, &nfe):
		entity := nfe.Entity
		if id, ok := entityMsgIDs[nfe.Entity]; ok {
			entity = i18n.T(ctx, id)
		}
		writeJSON(w, http.StatusNotFound, apiError{
			Error:   "NotFound",
			Message: i18n.Td(ctx, "NotFound", map[string]any{"Entity": entity, "Key": nfe.Key}),
		})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{
			Error:   "InternalError",
			Message: i18n.T(ctx, "InternalError"),
		})
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeJSON(w, http.StatusBadRequest, apiError{
		Error:   "BadRequest",
		Message: i18n.Td(r.Context(), "BadRequest", map[string]any{"Detail": detail}),
	})
}
