package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/service"
)

// SourceCodeHandler serves direct access to source code records. Creation is
// absent on purpose — records come into existence through snippet
// composition only.
type SourceCodeHandler struct {
	sources  *service.SourceCodeService
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSourceCodeHandler(sources *service.SourceCodeService, snippets *service.SnippetService, logger *slog.Logger) *SourceCodeHandler {
	return &SourceCodeHandler{sources: sources, snippets: snippets, logger: logger}
}

// HandleList returns the caller's source code records in brief form, each
// with a back-reference to the snippet rendering it (if any).
//
// HTTP: GET /api/snippet/source_codes
func (h *SourceCodeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	limit, offset := parsePagination(r)
	sources, err := h.sources.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	briefs := make([]sourceCodeBrief, 0, len(sources))
	for _, sc := range sources {
		snippetID, err := h.snippets.SnippetIDForSource(r.Context(), sc.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		briefs = append(briefs, sourceCodeBrief{
			ID:          sc.ID,
			Title:       sc.Title,
			CodeSummary: summarizeCode(sc.Code),
			SnippetID:   snippetID,
		})
	}

	writeJSON(w, http.StatusOK, briefs)
}

// HandleGet returns one record in full.
//
// HTTP: GET /api/snippet/source_codes/{id}
func (h *SourceCodeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	sc, err := h.sources.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// HandleUpdate applies a partial update. Every save, however small, bumps
// the record's update counter.
//
// HTTP: PATCH /api/snippet/source_codes/{id}, PUT /api/snippet/source_codes/{id}
func (h *SourceCodeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req service.SourceCodeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON payload"))
		return
	}

	sc, err := h.sources.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// HandleDelete removes a record. The snippet that rendered it survives with
// its source reference cleared.
//
// HTTP: DELETE /api/snippet/source_codes/{id}
func (h *SourceCodeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	if err := h.sources.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
