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

// TagHandler serves the tag CRUD endpoints.
type TagHandler struct {
	tags   *service.TagService
	logger *slog.Logger
}

func NewTagHandler(tags *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

type tagRequest struct {
	Name string `json:"name"`
}

// HandleCreate resolves a tag by name for the caller — creating it if new,
// returning the existing one otherwise. Both outcomes are 201; the response
// carries the tag either way.
//
// HTTP: POST /api/snippet/tags
func (h *TagHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON payload"))
		return
	}

	tag, err := h.tags.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tag)
}

// HandleList returns the caller's tags. ?assigned_only=1 narrows to tags
// attached to at least one snippet.
//
// HTTP: GET /api/snippet/tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	assignedOnly := r.URL.Query().Get("assigned_only") == "1"
	limit, offset := parsePagination(r)

	tags, err := h.tags.List(r.Context(), userID, assignedOnly, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

// HandleGet returns one tag.
//
// HTTP: GET /api/snippet/tags/{id}
func (h *TagHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	tag, err := h.tags.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// HandleUpdate renames a tag.
//
// HTTP: PATCH /api/snippet/tags/{id}, PUT /api/snippet/tags/{id}
func (h *TagHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON payload"))
		return
	}

	tag, err := h.tags.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// HandleDelete removes a tag and its snippet links.
//
// HTTP: DELETE /api/snippet/tags/{id}
func (h *TagHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	if err := h.tags.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
