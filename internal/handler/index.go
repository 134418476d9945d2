// Package handler contains the HTTP layer: request parsing, response
// shaping, and the translation of domain errors into status codes. Business
// rules live in the service package — handlers are glue.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-hub/internal/highlight"
)

// IndexHandler serves the unauthenticated API root.
type IndexHandler struct {
	engine *highlight.Engine
	logger *slog.Logger
}

func NewIndexHandler(engine *highlight.Engine, logger *slog.Logger) *IndexHandler {
	return &IndexHandler{engine: engine, logger: logger}
}

type indexResponse struct {
	Name      string            `json:"name"`
	Routes    map[string]string `json:"routes"`
	Languages []string          `json:"languages"`
	Styles    []string          `json:"styles"`
}

// HandleIndex describes the API and advertises the highlighting catalogs, so
// clients can populate language/style pickers without guessing.
//
// HTTP: GET /
func (h *IndexHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Name: "snippet-hub",
		Routes: map[string]string{
			"register":     "/api/user/create",
			"token":        "/api/user/token",
			"profile":      "/api/user/me",
			"snippets":     "/api/snippet/snippets",
			"source_codes": "/api/snippet/source_codes",
			"tags":         "/api/snippet/tags",
		},
		Languages: h.engine.Languages(),
		Styles:    h.engine.Styles(),
	})
}
