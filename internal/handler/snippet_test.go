package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/handler"
	"github.com/sakif/snippet-hub/internal/highlight"
	"github.com/sakif/snippet-hub/internal/repository/sqlite"
	"github.com/sakif/snippet-hub/internal/service"
)

// testEnv wires the real stack — in-memory SQLite, real highlighting engine,
// real JWT auth — behind a router mirroring the production route tree. The
// handlers are exercised exactly the way a client would.
type testEnv struct {
	router *chi.Mux
	auth   *service.AuthService
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-0123456789abcdef")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)
	engine := highlight.New()

	authService := service.NewAuthService(db, tokens, passwords, logger)
	snippetService := service.NewSnippetService(db, db, db, engine, engine, logger)
	sourceService := service.NewSourceCodeService(db, logger)
	tagService := service.NewTagService(db, logger)

	userHandler := handler.NewUserHandler(authService, logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, sourceService, logger)
	sourceHandler := handler.NewSourceCodeHandler(sourceService, snippetService, logger)
	tagHandler := handler.NewTagHandler(tagService, logger)

	r := chi.NewRouter()
	r.Route("/api/user", func(r chi.Router) {
		r.Post("/create", userHandler.HandleRegister)
		r.Post("/token", userHandler.HandleToken)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/", userHandler.HandleListUsers)
			r.Get("/me", userHandler.HandleMe)
			r.Patch("/me", userHandler.HandleUpdateMe)
		})
	})
	r.Route("/api/snippet", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippetHandler.HandleList)
			r.Post("/", snippetHandler.HandleCreate)
			r.Get("/{id}", snippetHandler.HandleGet)
			r.Patch("/{id}", snippetHandler.HandleUpdate)
			r.Delete("/{id}", snippetHandler.HandleDelete)
		})
		r.Route("/source_codes", func(r chi.Router) {
			r.Get("/", sourceHandler.HandleList)
			r.Get("/{id}", sourceHandler.HandleGet)
			r.Patch("/{id}", sourceHandler.HandleUpdate)
			r.Delete("/{id}", sourceHandler.HandleDelete)
		})
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.HandleList)
			r.Post("/", tagHandler.HandleCreate)
			r.Get("/{id}", tagHandler.HandleGet)
			r.Patch("/{id}", tagHandler.HandleUpdate)
			r.Delete("/{id}", tagHandler.HandleDelete)
		})
	})

	return &testEnv{router: r, auth: authService, tokens: tokens}
}

// registerUser creates an account directly through the service and returns a
// bearer token for it.
func (e *testEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	user, err := e.auth.Register(context.Background(), email, "hunter22", "Test User")
	require.NoError(t, err)
	token, err := e.tokens.Generate(user.ID)
	require.NoError(t, err)
	return token
}

// do sends a JSON request (body may be nil) and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

// --- user endpoints ---

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("register then duplicate", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/user/create", "", map[string]string{
			"email": "dev@example.com", "password": "hunter22", "name": "Dev",
		})
		assert.Equal(t, http.StatusCreated, rr.Code)
		body := decode(t, rr)
		assert.Equal(t, "dev@example.com", body["email"])
		assert.NotContains(t, body, "password_hash")

		rr = env.do(t, http.MethodPost, "/api/user/create", "", map[string]string{
			"email": "dev@example.com", "password": "hunter22",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "conflict", decode(t, rr)["error"])
	})

	t.Run("token issuance", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/user/token", "", map[string]string{
			"email": "dev@example.com", "password": "hunter22",
		})
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, decode(t, rr)["token"])

		rr = env.do(t, http.MethodPost, "/api/user/token", "", map[string]string{
			"email": "dev@example.com", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("me requires auth", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/user/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		token := env.registerUser(t, "me@example.com")
		rr = env.do(t, http.MethodGet, "/api/user/me", token, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "me@example.com", decode(t, rr)["email"])
	})

	t.Run("profile update", func(t *testing.T) {
		token := env.registerUser(t, "rename@example.com")
		rr := env.do(t, http.MethodPatch, "/api/user/me", token, map[string]string{"name": "Renamed"})
		assert.Equal(t, http.StatusOK, rr.Code)
		body := decode(t, rr)
		assert.Equal(t, "Renamed", body["name"])
		assert.Equal(t, "rename@example.com", body["email"])
	})

	t.Run("user list is staff only", func(t *testing.T) {
		token := env.registerUser(t, "pleb@example.com")
		rr := env.do(t, http.MethodGet, "/api/user/", token, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

// --- snippet endpoints ---

func TestSnippetEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "snip@example.com")

	t.Run("create with empty body", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, nil)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		body := decode(t, rr)
		assert.Equal(t, "python", body["language_name"])
		assert.Equal(t, "friendly", body["style"])
		assert.Contains(t, body["highlighted"], "<figure")

		source := body["source_code"].(map[string]any)
		assert.Equal(t, "snippet no 1", source["title"])
		assert.Equal(t, "U", source["status"])
		assert.Equal(t, float64(3), source["rating"])
	})

	t.Run("create with source and tags", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
			"language_name": "go",
			"style":         "monokai",
			"linenos":       true,
			"source_code": map[string]any{
				"title": "hello",
				"code":  `fmt.Println("hello")`,
			},
			"tags": []map[string]string{{"name": "go"}, {"name": "demo"}},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		body := decode(t, rr)
		assert.Equal(t, "go", body["language_name"])
		assert.Len(t, body["tags"], 2)
		assert.Contains(t, body["highlighted"], "hello")
		// Line numbers render as a table.
		assert.Contains(t, body["highlighted"], "<table")
	})

	t.Run("unknown language is a 400", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
			"language_name": "klingon",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		body := decode(t, rr)
		assert.Equal(t, "validation_error", body["error"])
		assert.Contains(t, body["message"], "language not set correctly")
	})

	t.Run("list is brief with code summary", func(t *testing.T) {
		longCode := "# " + strings.Repeat("x", 100)
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
			"source_code": map[string]any{"title": "long", "code": longCode},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = env.do(t, http.MethodGet, "/api/snippet/snippets/", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		listed := decodeList(t, rr)
		require.NotEmpty(t, listed)
		for _, item := range listed {
			assert.NotContains(t, item, "highlighted")
		}
		var found bool
		for _, item := range listed {
			source, ok := item["source_code"].(map[string]any)
			if !ok {
				continue
			}
			if source["title"] == "long" {
				found = true
				summary := source["code_summary"].(string)
				assert.True(t, strings.HasSuffix(summary, " ..."), "summary %q should end with ellipsis", summary)
				assert.Equal(t, item["id"], source["snippet_id"])
			}
		}
		assert.True(t, found, "expected the long snippet in the listing")
	})

	t.Run("tag filter", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
			"tags": []map[string]string{{"name": "filterme"}},
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		created := decode(t, rr)
		tagID := created["tags"].([]any)[0].(map[string]any)["id"].(string)

		rr = env.do(t, http.MethodGet, "/api/snippet/snippets/?tags="+tagID, token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		listed := decodeList(t, rr)
		require.Len(t, listed, 1)
		assert.Equal(t, created["id"], listed[0]["id"])
	})

	t.Run("partial update re-renders", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
			"source_code": map[string]any{"title": "upd", "code": "y = 2"},
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		id := decode(t, rr)["id"].(string)

		rr = env.do(t, http.MethodPatch, "/api/snippet/snippets/"+id, token, map[string]any{
			"linenos": true,
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body := decode(t, rr)
		assert.Equal(t, true, body["linenos"])
		assert.Contains(t, body["highlighted"], "<table")
		source := body["source_code"].(map[string]any)
		assert.Equal(t, "upd", source["title"])
	})

	t.Run("delete removes snippet and source", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
			"source_code": map[string]any{"title": "doomed", "code": "z = 3"},
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		body := decode(t, rr)
		id := body["id"].(string)
		sourceID := body["source_code"].(map[string]any)["id"].(string)

		rr = env.do(t, http.MethodDelete, "/api/snippet/snippets/"+id, token, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, http.MethodGet, "/api/snippet/snippets/"+id, token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		rr = env.do(t, http.MethodGet, "/api/snippet/source_codes/"+sourceID, token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("foreign snippet is invisible", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
		id := decode(t, rr)["id"].(string)

		other := env.registerUser(t, "other@example.com")
		rr = env.do(t, http.MethodGet, "/api/snippet/snippets/"+id, other, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		rr = env.do(t, http.MethodDelete, "/api/snippet/snippets/"+id, other, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

// --- source code endpoints ---

func TestSourceCodeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "src@example.com")

	rr := env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
		"source_code": map[string]any{"title": "mine", "code": "a = 1"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode(t, rr)
	snippetID := created["id"].(string)
	sourceID := created["source_code"].(map[string]any)["id"].(string)

	t.Run("list is brief with snippet back-reference", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/snippet/source_codes/", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		listed := decodeList(t, rr)
		require.Len(t, listed, 1)
		assert.Equal(t, "mine", listed[0]["title"])
		assert.Equal(t, snippetID, listed[0]["snippet_id"])
		assert.NotContains(t, listed[0], "notes")
	})

	t.Run("update bumps counter", func(t *testing.T) {
		rr := env.do(t, http.MethodPatch, "/api/snippet/source_codes/"+sourceID, token, map[string]any{
			"rating": 5,
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body := decode(t, rr)
		assert.Equal(t, float64(5), body["rating"])
		assert.Equal(t, float64(2), body["count_updated"])
	})

	t.Run("invalid rating is a 400", func(t *testing.T) {
		rr := env.do(t, http.MethodPatch, "/api/snippet/source_codes/"+sourceID, token, map[string]any{
			"rating": 9,
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("delete leaves the snippet orphaned", func(t *testing.T) {
		rr := env.do(t, http.MethodDelete, "/api/snippet/source_codes/"+sourceID, token, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, http.MethodGet, "/api/snippet/snippets/"+snippetID, token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, decode(t, rr)["source_code"])
	})
}

// --- tag endpoints ---

func TestTagEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerUser(t, "tag@example.com")

	t.Run("create twice returns the same tag", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/tags/", token, map[string]string{"name": "go"})
		require.Equal(t, http.StatusCreated, rr.Code)
		first := decode(t, rr)["id"]

		rr = env.do(t, http.MethodPost, "/api/snippet/tags/", token, map[string]string{"name": "go"})
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, first, decode(t, rr)["id"])
	})

	t.Run("assigned_only filter", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/tags/", token, map[string]string{"name": "idle"})
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = env.do(t, http.MethodPost, "/api/snippet/snippets/", token, map[string]any{
			"tags": []map[string]string{{"name": "attached"}},
		})
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = env.do(t, http.MethodGet, "/api/snippet/tags/?assigned_only=1", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		listed := decodeList(t, rr)
		require.Len(t, listed, 1)
		assert.Equal(t, "attached", listed[0]["name"])
	})

	t.Run("rename and delete", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/snippet/tags/", token, map[string]string{"name": "temp"})
		require.Equal(t, http.StatusCreated, rr.Code)
		id := decode(t, rr)["id"].(string)

		rr = env.do(t, http.MethodPatch, "/api/snippet/tags/"+id, token, map[string]string{"name": "renamed"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "renamed", decode(t, rr)["name"])

		rr = env.do(t, http.MethodDelete, "/api/snippet/tags/"+id, token, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = env.do(t, http.MethodGet, fmt.Sprintf("/api/snippet/tags/%s", id), token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
