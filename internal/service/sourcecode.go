package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// SourceCodeService handles direct reads and edits of source code records.
// There is deliberately no Create here — new records only come into existence
// through snippet composition (see SnippetService).
type SourceCodeService struct {
	sources repository.SourceCodeRepository
	logger  *slog.Logger
}

func NewSourceCodeService(sources repository.SourceCodeRepository, logger *slog.Logger) *SourceCodeService {
	return &SourceCodeService{sources: sources, logger: logger}
}

func (s *SourceCodeService) GetByID(ctx context.Context, userID, id string) (*model.SourceCode, error) {
	return s.sources.GetSourceCodeByID(ctx, userID, id)
}

func (s *SourceCodeService) List(ctx context.Context, userID string, limit, offset int) ([]model.SourceCode, error) {
	return s.sources.ListSourceCodes(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
}

// SourceCodeInput is the partial payload for creating (via snippet
// composition) or updating a source code record. Nil fields keep their
// current (or default) values.
type SourceCodeInput struct {
	Title      *string `json:"title"`
	Author     *string `json:"author"`
	Code       *string `json:"code"`
	Notes      *string `json:"notes"`
	URL        *string `json:"url"`
	Status     *string `json:"status"`
	Rating     *int    `json:"rating"`
	IsFavorite *bool   `json:"is_favorite"`
}

// Update applies a partial update to one of the owner's records. Every save
// bumps the update counter. Changing the code text to something another
// record already holds is a conflict.
func (s *SourceCodeService) Update(ctx context.Context, userID, id string, in SourceCodeInput) (*model.SourceCode, error) {
	sc, err := s.sources.GetSourceCodeByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := applySourceCodeInput(sc, in); err != nil {
		return nil, err
	}

	if err := s.sources.UpdateSourceCode(ctx, sc); err != nil {
		return nil, err
	}

	s.logger.Info("source code updated",
		slog.String("sourceCodeID", sc.ID),
		slog.Int("updateCounter", sc.UpdateCounter),
	)
	return sc, nil
}

// Delete removes one of the owner's records. Snippets that referenced it
// survive with the reference cleared.
func (s *SourceCodeService) Delete(ctx context.Context, userID, id string) error {
	if err := s.sources.DeleteSourceCode(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("source code deleted", slog.String("sourceCodeID", id))
	return nil
}

// applySourceCodeInput copies the provided fields onto sc and validates the
// result. Shared by the direct update path and snippet composition.
func applySourceCodeInput(sc *model.SourceCode, in SourceCodeInput) error {
	if in.Title != nil {
		sc.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		sc.Author = strings.TrimSpace(*in.Author)
	}
	if in.Code != nil {
		sc.Code = *in.Code
	}
	if in.Notes != nil {
		sc.Notes = *in.Notes
	}
	if in.URL != nil {
		sc.URL = strings.TrimSpace(*in.URL)
	}
	if in.Status != nil {
		sc.Status = *in.Status
	}
	if in.Rating != nil {
		sc.Rating = *in.Rating
	}
	if in.IsFavorite != nil {
		sc.IsFavorite = *in.IsFavorite
	}

	if strings.TrimSpace(sc.Code) == "" {
		return apperror.ValidationFailed("code", "code content is required")
	}
	if !model.ValidStatus(sc.Status) {
		return apperror.ValidationFailed("status",
			fmt.Sprintf("status must be %q (checked) or %q (unchecked)", model.StatusChecked, model.StatusUnchecked))
	}
	if !model.ValidRating(sc.Rating) {
		return apperror.ValidationFailed("rating",
			fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	return nil
}
