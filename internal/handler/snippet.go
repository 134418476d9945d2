package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/service"
)

// codeSummaryLength is how many characters of code the brief listings show
// before truncating with an ellipsis.
const codeSummaryLength = 50

// SnippetHandler serves the snippet CRUD endpoints.
type SnippetHandler struct {
	snippets *service.SnippetService
	sources  *service.SourceCodeService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, sources *service.SourceCodeService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, sources: sources, logger: logger}
}

// snippetDetail is the full representation: the source code record nested
// in whole, tags included.
type snippetDetail struct {
	ID           string            `json:"id"`
	LanguageName string            `json:"language_name"`
	Style        string            `json:"style"`
	Linenos      bool              `json:"linenos"`
	Highlighted  string            `json:"highlighted"`
	SourceCode   *model.SourceCode `json:"source_code"`
	Tags         []model.Tag       `json:"tags"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// snippetBrief is the list representation: no highlighted markup, and the
// source shrunk to a summary.
type snippetBrief struct {
	ID           string           `json:"id"`
	LanguageName string           `json:"language_name"`
	Style        string           `json:"style"`
	Linenos      bool             `json:"linenos"`
	SourceCode   *sourceCodeBrief `json:"source_code"`
	Tags         []model.Tag      `json:"tags"`
	CreatedAt    time.Time        `json:"created_at"`
}

// sourceCodeBrief is the trimmed source representation used in listings.
// SnippetID points back at the snippet rendering this record, when one does.
type sourceCodeBrief struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CodeSummary string `json:"code_summary"`
	SnippetID   string `json:"snippet_id,omitempty"`
}

// HandleCreate composes a new snippet. The whole payload is optional — an
// empty body yields defaults over a generated placeholder source.
//
// HTTP: POST /api/snippet/snippets
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req service.CreateSnippetInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		// An entirely empty body is fine; malformed JSON is not.
		writeError(w, apperror.ValidationFailed("body", "invalid JSON payload"))
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toDetail(r, userID, snippet))
}

// HandleList returns the caller's snippets in brief form. ?tags=id1,id2
// restricts to snippets carrying any of the given tags.
//
// HTTP: GET /api/snippet/snippets
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	limit, offset := parsePagination(r)
	tagIDs := splitCommaParam(r.URL.Query().Get("tags"))

	snippets, err := h.snippets.List(r.Context(), userID, tagIDs, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	briefs := make([]snippetBrief, 0, len(snippets))
	for i := range snippets {
		briefs = append(briefs, h.toBrief(r, userID, &snippets[i]))
	}

	writeJSON(w, http.StatusOK, briefs)
}

// HandleGet returns one snippet in full.
//
// HTTP: GET /api/snippet/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	snippet, err := h.snippets.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toDetail(r, userID, snippet))
}

// HandleUpdate applies a partial update and returns the re-rendered snippet.
// PUT and PATCH share the semantics: absent fields stay untouched.
//
// HTTP: PATCH /api/snippet/snippets/{id}, PUT /api/snippet/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req service.UpdateSnippetInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON payload"))
		return
	}

	snippet, err := h.snippets.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toDetail(r, userID, snippet))
}

// HandleDelete removes a snippet together with its source code record.
//
// HTTP: DELETE /api/snippet/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	if err := h.snippets.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SnippetHandler) toDetail(r *http.Request, userID string, s *model.Snippet) snippetDetail {
	detail := snippetDetail{
		ID:           s.ID,
		LanguageName: s.LanguageName,
		Style:        s.Style,
		Linenos:      s.Linenos,
		Highlighted:  s.Highlighted,
		Tags:         tagsOrEmpty(s.Tags),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.SourceCodeID != nil {
		// A vanished record just leaves source_code null.
		if source, err := h.sources.GetByID(r.Context(), userID, *s.SourceCodeID); err == nil {
			detail.SourceCode = source
		}
	}
	return detail
}

func (h *SnippetHandler) toBrief(r *http.Request, userID string, s *model.Snippet) snippetBrief {
	brief := snippetBrief{
		ID:           s.ID,
		LanguageName: s.LanguageName,
		Style:        s.Style,
		Linenos:      s.Linenos,
		Tags:         tagsOrEmpty(s.Tags),
		CreatedAt:    s.CreatedAt,
	}
	if s.SourceCodeID != nil {
		if source, err := h.sources.GetByID(r.Context(), userID, *s.SourceCodeID); err == nil {
			brief.SourceCode = &sourceCodeBrief{
				ID:          source.ID,
				Title:       source.Title,
				CodeSummary: summarizeCode(source.Code),
				SnippetID:   s.ID,
			}
		}
	}
	return brief
}

// summarizeCode truncates code to codeSummaryLength characters, appending an
// ellipsis when something was cut. Counted in runes so multibyte code never
// splits mid-character.
func summarizeCode(code string) string {
	runes := []rune(code)
	if len(runes) <= codeSummaryLength {
		return code
	}
	return string(runes[:codeSummaryLength]) + " ..."
}

// tagsOrEmpty keeps the JSON field an array, never null.
func tagsOrEmpty(tags []model.Tag) []model.Tag {
	if tags == nil {
		return []model.Tag{}
	}
	return tags
}

// splitCommaParam turns "a,b,,c" into ["a","b","c"].
func splitCommaParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
