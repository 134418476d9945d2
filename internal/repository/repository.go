// Package repository defines the storage contracts consumed by the service
// layer. The sqlite subpackage provides the real implementation; tests use
// in-memory mocks.
//
// OWNERSHIP SCOPING, CENTRALIZED:
// Every read/write on a user-owned entity takes the owner's userID and the
// implementation filters on it in the query itself. A row that exists but
// belongs to someone else is indistinguishable from a row that doesn't exist —
// both come back as apperror.ErrNotFound. Handlers and services never add
// their own ownership checks on top.
package repository

import (
	"context"

	"github.com/sakif/snippet-hub/internal/model"
)

// ListOptions carries pagination for list operations.
type ListOptions struct {
	Limit  int
	Offset int
}

// Title sequence scopes for NextTitleNumber. Each owner has an independent,
// transactionally incremented counter per scope, which replaces the racy
// "count rows + 1" auto-numbering scheme.
const (
	ScopeSourceCode = "source_code"
	ScopeSnippet    = "snippet"
)

type UserRepository interface {
	// CreateUser inserts a new user. A duplicate email surfaces as
	// apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHubUser inserts or updates a user keyed on GitHubID,
	// preserving the internal ID on update.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
}

type TagRepository interface {
	// GetOrCreateTag finds the tag named name owned by userID, inserting it
	// if absent. The lookup key is (owner, name).
	GetOrCreateTag(ctx context.Context, userID, name string) (*model.Tag, error)
	GetTagByID(ctx context.Context, userID, id string) (*model.Tag, error)
	// ListTags returns the owner's tags, newest first. With assignedOnly,
	// only tags attached to at least one of the owner's snippets are
	// returned, de-duplicated.
	ListTags(ctx context.Context, userID string, assignedOnly bool, opts ListOptions) ([]model.Tag, error)
	UpdateTag(ctx context.Context, userID string, tag *model.Tag) error
	DeleteTag(ctx context.Context, userID, id string) error
}

type SourceCodeRepository interface {
	// CreateSourceCode inserts a row, generating ID and timestamps and
	// starting UpdateCounter at 1. Duplicate code text (global, cross-user)
	// surfaces as apperror.ErrConflict.
	CreateSourceCode(ctx context.Context, sc *model.SourceCode) error
	// FindSourceCodeMatch looks for an existing row of this owner matching
	// the full field set (title, author, code, notes, url, status, rating,
	// favorite). Returns (nil, nil) when no row matches.
	FindSourceCodeMatch(ctx context.Context, sc *model.SourceCode) (*model.SourceCode, error)
	GetSourceCodeByID(ctx context.Context, userID, id string) (*model.SourceCode, error)
	ListSourceCodes(ctx context.Context, userID string, opts ListOptions) ([]model.SourceCode, error)
	// UpdateSourceCode saves the row, bumping UpdateCounter and ModifiedAt.
	UpdateSourceCode(ctx context.Context, sc *model.SourceCode) error
	// TouchSourceCode re-saves an existing row without changing content:
	// UpdateCounter increments and ModifiedAt refreshes, mirroring the
	// "every save" side effect for get-or-create reuse.
	TouchSourceCode(ctx context.Context, sc *model.SourceCode) error
	DeleteSourceCode(ctx context.Context, userID, id string) error
	// NextTitleNumber atomically increments and returns the owner's counter
	// for the given scope (ScopeSourceCode or ScopeSnippet).
	NextTitleNumber(ctx context.Context, userID, scope string) (int, error)
}

type SnippetRepository interface {
	CreateSnippet(ctx context.Context, snippet *model.Snippet) error
	// GetSnippetByID returns the snippet with its Tags populated.
	GetSnippetByID(ctx context.Context, userID, id string) (*model.Snippet, error)
	// ListSnippets returns the owner's snippets newest first, Tags
	// populated. A non-empty tagIDs filters to snippets carrying ANY of the
	// given tag IDs (OR match).
	ListSnippets(ctx context.Context, userID string, tagIDs []string, opts ListOptions) ([]model.Snippet, error)
	UpdateSnippet(ctx context.Context, snippet *model.Snippet) error
	// DeleteSnippet removes the snippet AND its referenced source code row
	// in one transaction. A referenced row that is already gone is not an
	// error.
	DeleteSnippet(ctx context.Context, userID, id string) error
	// AttachTag links a tag to a snippet; attaching twice is a no-op.
	AttachTag(ctx context.Context, snippetID, tagID string) error
	// ClearSnippetTags removes every tag link from the snippet.
	ClearSnippetTags(ctx context.Context, snippetID string) error
	// GetSnippetIDBySource returns the ID of the snippet referencing the
	// given source code row, or "" if none does.
	GetSnippetIDBySource(ctx context.Context, sourceCodeID string) (string, error)
}
