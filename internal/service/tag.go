package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/repository"
)

// TagService handles the tag CRUD. Tags are scoped to their owner; creating
// one that already exists by name returns the existing record instead of a
// duplicate.
type TagService struct {
	tags   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(tags repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, logger: logger}
}

// Create returns the owner's tag with the given name, creating it if needed.
func (s *TagService) Create(ctx context.Context, userID, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}

	tag, err := s.tags.GetOrCreateTag(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tag resolved",
		slog.String("tagID", tag.ID),
		slog.String("name", tag.Name),
	)
	return tag, nil
}

func (s *TagService) GetByID(ctx context.Context, userID, id string) (*model.Tag, error) {
	return s.tags.GetTagByID(ctx, userID, id)
}

// List returns the owner's tags. With assignedOnly, only tags attached to at
// least one of the owner's snippets come back.
func (s *TagService) List(ctx context.Context, userID string, assignedOnly bool, limit, offset int) ([]model.Tag, error) {
	return s.tags.ListTags(ctx, userID, assignedOnly, repository.ListOptions{Limit: limit, Offset: offset})
}

// Update renames one of the owner's tags.
func (s *TagService) Update(ctx context.Context, userID, id, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}

	tag, err := s.tags.GetTagByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	tag.Name = name
	if err := s.tags.UpdateTag(ctx, userID, tag); err != nil {
		return nil, err
	}

	return tag, nil
}

// Delete removes one of the owner's tags; links to snippets go with it.
func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	if err := s.tags.DeleteTag(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("tag deleted", slog.String("tagID", id))
	return nil
}
