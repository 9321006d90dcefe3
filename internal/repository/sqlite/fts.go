package sqlite

import (
	"html"
	"regexp"
	"strings"

	"github.com/sakif/notebook/internal/model"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// plainText flattens editor HTML into whitespace-separated words for the
// full-text index. Entities are decoded so "&amp;" is indexed as "&".
func plainText(markup string) string {
	text := tagPattern.ReplaceAllString(markup, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// indexBody is what goes into notes_fts.body. Locked notes contribute their
// title and tags only.
func indexBody(n *model.Note) string {
	if n.Locked {
		return ""
	}
	return plainText(n.Content)
}

// ftsQuery turns free text into an FTS5 MATCH expression where every word is
// a quoted prefix term: `go conc` → `"go"* "conc"*`.
// Quoting neutralises FTS5 operators (AND, NEAR, column filters) in user input.
// Returns "" when nothing searchable is left.
func ftsQuery(term string) string {
	var parts []string
	for _, word := range strings.Fields(term) {
		word = strings.ReplaceAll(word, `"`, "")
		if word == "" {
			continue
		}
		parts = append(parts, `"`+word+`"*`)
	}
	return strings.Join(parts, " ")
}

// likePattern builds a lower-cased `%term%` pattern for LIKE ... ESCAPE '\'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
