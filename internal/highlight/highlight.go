// Package highlight wraps the chroma syntax-highlighting engine.
//
// Chroma plays the role Pygments plays in Python land: it ships a registry of
// lexers (languages) and styles, and renders code to styled HTML. This package
// exposes exactly two things to the rest of the app:
//
//  1. A read-only CATALOG of supported language and style names, loaded once
//     at process start. The service layer validates snippet payloads against
//     it; it is never mutated after New() returns.
//  2. Render(), the highlighting function itself: (code, language, style,
//     linenos, title) → HTML markup.
//
// Nothing else imports chroma — if the engine is ever swapped, this is the
// only package that changes.
package highlight

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Engine holds the immutable language/style catalogs and renders highlighted
// markup. Safe for concurrent use — all fields are read-only after New().
type Engine struct {
	languages map[string]struct{} // lower-cased lexer names and aliases
	styleSet  map[string]struct{} // style names, exact
	langNames []string
	styNames  []string
}

// New loads the language and style catalogs from chroma's registries.
// Call once at startup and share the instance.
func New() *Engine {
	e := &Engine{
		languages: make(map[string]struct{}),
		styleSet:  make(map[string]struct{}),
	}

	// lexers.Names(true) includes aliases ("python", "py", "python3", ...),
	// which is what clients actually send. Language matching is
	// case-insensitive, mirroring chroma's own lexers.Get behaviour.
	for _, name := range lexers.Names(true) {
		e.languages[strings.ToLower(name)] = struct{}{}
		e.langNames = append(e.langNames, name)
	}

	// Style names are exact — chroma registers them lower-case already.
	for _, name := range styles.Names() {
		e.styleSet[name] = struct{}{}
		e.styNames = append(e.styNames, name)
	}

	sort.Strings(e.langNames)
	sort.Strings(e.styNames)
	return e
}

// HasLanguage reports whether name is a known lexer name or alias.
func (e *Engine) HasLanguage(name string) bool {
	_, ok := e.languages[strings.ToLower(name)]
	return ok
}

// HasStyle reports whether name is a registered style.
func (e *Engine) HasStyle(name string) bool {
	_, ok := e.styleSet[name]
	return ok
}

// Languages returns the sorted catalog of supported language names.
func (e *Engine) Languages() []string {
	return e.langNames
}

// Styles returns the sorted catalog of supported style names.
func (e *Engine) Styles() []string {
	return e.styNames
}

// Render highlights code as HTML.
//
// linenos is effectively tri-state at the formatter level, but callers only
// get two: false (no numbers) or a table-layout gutter when true.
// A non-empty title is rendered as a <figcaption> above the code.
//
// Returns an error for an unknown language. Callers are expected to have
// validated language and style against the catalog already, so an error here
// indicates a programming mistake rather than bad user input.
func (e *Engine) Render(code, language, style string, linenos bool, title string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		return "", fmt.Errorf("highlight: unknown language %q", language)
	}
	lexer = chroma.Coalesce(lexer)

	// styles.Get falls back to a default style for unknown names, which is
	// fine here — validation happened upstream.
	sty := styles.Get(style)

	formatter := html.New(
		html.WithLineNumbers(linenos),
		html.LineNumbersInTable(linenos),
		html.TabWidth(4),
	)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("highlight: tokenising: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<figure class=\"highlight\">\n")
	if title != "" {
		buf.WriteString("<figcaption>")
		buf.WriteString(stdhtml.EscapeString(title))
		buf.WriteString("</figcaption>\n")
	}
	if err := formatter.Format(&buf, sty, iterator); err != nil {
		return "", fmt.Errorf("highlight: formatting: %w", err)
	}
	buf.WriteString("\n</figure>")

	return buf.String(), nil
}
