package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// Highlighter renders syntax-highlighted markup (implemented by
// highlight.Engine). The language must already be validated via the Catalog.
type Highlighter interface {
	Render(code, language, style string, linenos bool, title string) (string, error)
}

// Catalog answers whether a language or style name is known.
type Catalog interface {
	HasLanguage(name string) bool
	HasStyle(name string) bool
}

// SnippetService is the composition core: a snippet ties together rendering
// options, an optional source code record (found or created on the fly), and
// a set of the owner's tags (likewise resolved by name).
type SnippetService struct {
	snippets    repository.SnippetRepository
	sources     repository.SourceCodeRepository
	tags        repository.TagRepository
	highlighter Highlighter
	catalog     Catalog
	logger      *slog.Logger
}

func NewSnippetService(
	snippets repository.SnippetRepository,
	sources repository.SourceCodeRepository,
	tags repository.TagRepository,
	highlighter Highlighter,
	catalog Catalog,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		snippets:    snippets,
		sources:     sources,
		tags:        tags,
		highlighter: highlighter,
		catalog:     catalog,
		logger:      logger,
	}
}

// TagInput names a tag in a snippet payload.
type TagInput struct {
	Name string `json:"name"`
}

// CreateSnippetInput is the full snippet creation payload. Everything is
// optional: an empty body produces a snippet with default language and style
// over an auto-generated placeholder source.
type CreateSnippetInput struct {
	LanguageName string           `json:"language_name"`
	Style        string           `json:"style"`
	Linenos      *bool            `json:"linenos"`
	SourceCode   *SourceCodeInput `json:"source_code"`
	Tags         []TagInput       `json:"tags"`
}

// UpdateSnippetInput is the partial update payload. Nil means "leave alone";
// for Tags, a present (even empty) list replaces the attached set, and a
// present SourceCode resolves a record and repoints the snippet at it.
type UpdateSnippetInput struct {
	LanguageName *string          `json:"language_name"`
	Style        *string          `json:"style"`
	Linenos      *bool            `json:"linenos"`
	SourceCode   *SourceCodeInput `json:"source_code"`
	Tags         *[]TagInput      `json:"tags"`
}

// Create builds a snippet for userID: validate the rendering options against
// the catalog, resolve (or fabricate) the source code record, render the
// highlighted markup, persist, and attach tags.
func (s *SnippetService) Create(ctx context.Context, userID string, in CreateSnippetInput) (*model.Snippet, error) {
	lang := strings.ToLower(strings.TrimSpace(in.LanguageName))
	if lang == "" {
		lang = model.DefaultLanguage
	}
	style := strings.TrimSpace(in.Style)
	if style == "" {
		style = model.DefaultStyle
	}
	if !s.catalog.HasLanguage(lang) {
		return nil, apperror.ValidationFailed("language_name", "language not set correctly")
	}
	if !s.catalog.HasStyle(style) {
		return nil, apperror.ValidationFailed("style", "style not set correctly")
	}
	linenos := in.Linenos != nil && *in.Linenos

	source, err := s.resolveSourceCode(ctx, userID, in.SourceCode)
	if err != nil {
		return nil, err
	}

	highlighted, err := s.highlighter.Render(source.Code, lang, style, linenos, source.Title)
	if err != nil {
		return nil, fmt.Errorf("service/snippet: rendering highlight: %w", err)
	}

	snippet := &model.Snippet{
		UserID:       userID,
		LanguageName: lang,
		Style:        style,
		Linenos:      linenos,
		Highlighted:  highlighted,
		SourceCodeID: &source.ID,
	}
	if err := s.snippets.CreateSnippet(ctx, snippet); err != nil {
		return nil, err
	}

	if snippet.Tags, err = s.applyTags(ctx, userID, snippet.ID, in.Tags); err != nil {
		return nil, err
	}

	s.logger.Info("snippet created",
		slog.String("snippetID", snippet.ID),
		slog.String("language", lang),
		slog.String("sourceCodeID", source.ID),
	)
	return snippet, nil
}

func (s *SnippetService) GetByID(ctx context.Context, userID, id string) (*model.Snippet, error) {
	return s.snippets.GetSnippetByID(ctx, userID, id)
}

// List returns the owner's snippets, optionally restricted to those carrying
// any of the given tag IDs.
func (s *SnippetService) List(ctx context.Context, userID string, tagIDs []string, limit, offset int) ([]model.Snippet, error) {
	return s.snippets.ListSnippets(ctx, userID, tagIDs, repository.ListOptions{Limit: limit, Offset: offset})
}

// Update applies a partial update and re-renders the highlighted markup from
// whatever source the snippet points at afterwards. The owner never changes,
// whatever the payload says.
func (s *SnippetService) Update(ctx context.Context, userID, id string, in UpdateSnippetInput) (*model.Snippet, error) {
	snippet, err := s.snippets.GetSnippetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.LanguageName != nil {
		lang := strings.ToLower(strings.TrimSpace(*in.LanguageName))
		if lang == "" {
			lang = model.DefaultLanguage
		}
		snippet.LanguageName = lang
	}
	if in.Style != nil {
		style := strings.TrimSpace(*in.Style)
		if style == "" {
			style = model.DefaultStyle
		}
		snippet.Style = style
	}
	if in.Linenos != nil {
		snippet.Linenos = *in.Linenos
	}

	// Revalidate on every save, not just when the field changed: a record
	// written before a catalog change must not slip through untouched fields.
	if !s.catalog.HasLanguage(snippet.LanguageName) {
		return nil, apperror.ValidationFailed("language_name", "language not set correctly")
	}
	if !s.catalog.HasStyle(snippet.Style) {
		return nil, apperror.ValidationFailed("style", "style not set correctly")
	}

	if in.SourceCode != nil {
		source, err := s.resolveSourceCode(ctx, userID, in.SourceCode)
		if err != nil {
			return nil, err
		}
		snippet.SourceCodeID = &source.ID
	}

	if in.Tags != nil {
		if err := s.snippets.ClearSnippetTags(ctx, snippet.ID); err != nil {
			return nil, err
		}
		if snippet.Tags, err = s.applyTags(ctx, userID, snippet.ID, *in.Tags); err != nil {
			return nil, err
		}
	}

	code, title := "", ""
	if snippet.SourceCodeID != nil {
		source, err := s.sources.GetSourceCodeByID(ctx, userID, *snippet.SourceCodeID)
		if err != nil {
			// The record can vanish between the repoint and here; render
			// empty rather than failing the whole update.
			if !errors.Is(err, apperror.ErrNotFound) {
				return nil, err
			}
		} else {
			code, title = source.Code, source.Title
		}
	}

	if snippet.Highlighted, err = s.highlighter.Render(code, snippet.LanguageName, snippet.Style, snippet.Linenos, title); err != nil {
		return nil, fmt.Errorf("service/snippet: rendering highlight: %w", err)
	}

	if err := s.snippets.UpdateSnippet(ctx, snippet); err != nil {
		return nil, err
	}

	s.logger.Info("snippet updated", slog.String("snippetID", snippet.ID))
	return snippet, nil
}

// Delete removes the snippet together with its source code record.
func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	if err := s.snippets.DeleteSnippet(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.String("snippetID", id))
	return nil
}

// SnippetIDForSource exposes the reverse snippet lookup for the source code
// listing.
func (s *SnippetService) SnippetIDForSource(ctx context.Context, sourceCodeID string) (string, error) {
	return s.snippets.GetSnippetIDBySource(ctx, sourceCodeID)
}

// resolveSourceCode turns the optional nested payload into a concrete owned
// record.
//
// With no payload at all, a placeholder record is fabricated: auto-title
// "snippet no {n}" from the owner's snippet-scope sequence, and a code body
// made unique with a random ID so the global code uniqueness constraint
// never trips on placeholders.
//
// With a payload, defaults are filled in, a blank title is auto-numbered
// from the source-code-scope sequence, and get-or-create runs against the
// owner's records on the full field set. A match is reused (and still counts
// as a save); no match inserts a fresh record.
func (s *SnippetService) resolveSourceCode(ctx context.Context, userID string, in *SourceCodeInput) (*model.SourceCode, error) {
	if in == nil {
		sc := &model.SourceCode{
			UserID: userID,
			Title:  fmt.Sprintf("snippet no %d", s.nextNumber(ctx, userID, repository.ScopeSnippet)),
			Code:   fmt.Sprintf("# placeholder %s", xid.New().String()),
			Status: model.StatusUnchecked,
			Rating: model.DefaultRating,
		}
		if err := s.sources.CreateSourceCode(ctx, sc); err != nil {
			return nil, err
		}
		return sc, nil
	}

	if in.Code == nil || strings.TrimSpace(*in.Code) == "" {
		return nil, apperror.ValidationFailed("code", "code content is required")
	}

	sc := &model.SourceCode{
		UserID: userID,
		Status: model.StatusUnchecked,
		Rating: model.DefaultRating,
	}
	if err := applySourceCodeInput(sc, *in); err != nil {
		return nil, err
	}

	// Number the title before the match lookup: an explicit title can match
	// an existing record, a generated one is fresh by construction.
	if sc.Title == "" {
		sc.Title = fmt.Sprintf("title %d", s.nextNumber(ctx, userID, repository.ScopeSourceCode))
	}

	existing, err := s.sources.FindSourceCodeMatch(ctx, sc)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Reuse still counts as a save: bump the counter, refresh modified.
		if err := s.sources.TouchSourceCode(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err := s.sources.CreateSourceCode(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// applyTags resolves each named tag (get-or-create, owner-scoped) and links
// it to the snippet. Names are de-duplicated preserving first occurrence;
// blank names are skipped.
func (s *SnippetService) applyTags(ctx context.Context, userID, snippetID string, inputs []TagInput) ([]model.Tag, error) {
	seen := make(map[string]bool, len(inputs))
	tags := []model.Tag{}

	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := s.tags.GetOrCreateTag(ctx, userID, name)
		if err != nil {
			return nil, err
		}
		if err := s.snippets.AttachTag(ctx, snippetID, tag.ID); err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}

	return tags, nil
}

// nextNumber advances the owner's auto-title sequence. Numbering is best
// effort: if the counter cannot be read the title falls back to 1 rather
// than failing the create.
func (s *SnippetService) nextNumber(ctx context.Context, userID, scope string) int {
	n, err := s.sources.NextTitleNumber(ctx, userID, scope)
	if err != nil {
		s.logger.Warn("title counter unavailable, defaulting to 1",
			slog.String("scope", scope),
			slog.String("error", err.Error()),
		)
		return 1
	}
	return n
}
