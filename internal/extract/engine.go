// Package extract mines downloaded PDF documents for link-like strings and
// resolves each to a registrable domain plus subdomain.
package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/securezeron/SubPDF/internal/observability"
)

// urlPattern matches the link schemes that appear in document text layers.
var urlPattern = regexp.MustCompile(`(mailto:[^\s<>()\[\]{}"']+|ftp://[^\s<>()\[\]{}"']+|file://[^\s<>()\[\]{}"']+|https?://[^\s<>()\[\]{}"']+)`)

// Engine parses fetched documents for embedded links. Extraction unions two
// sources per document: clickable annotation targets and free-text URL
// matches in the readable text layer.
type Engine struct {
	logger *observability.Logger
}

// NewEngine creates an extraction engine.
func NewEngine(logger *observability.Logger) *Engine {
	return &Engine{logger: logger}
}

// Extract returns the deduplicated raw URL strings found in the document at
// path. A document that cannot be opened as a PDF is a parse failure; a
// well-formed document with no links returns an empty slice, which is valid
// data, not an error.
func (e *Engine) Extract(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	seen := make(map[string]struct{})
	var found []string
	add := func(raw string) {
		raw = trimLink(raw)
		if raw == "" {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}
		found = append(found, raw)
	}

	// Clickable annotation targets. Failure here is tolerated: a document
	// whose annotation tree is broken can still yield text-layer links.
	uris, err := annotationURIs(path)
	if err != nil {
		e.logger.Debug().Str("path", path).Err(err).Msg("annotation link scan failed")
	}
	for _, uri := range uris {
		add(uri)
	}

	// Free-text matches over the readable text layer.
	for n := 0; n < pageCount; n++ {
		text, err := doc.Text(n)
		if err != nil {
			e.logger.Debug().Str("path", path).Int("page", n+1).Err(err).Msg("text extraction failed for page")
			continue
		}
		for _, match := range urlPattern.FindAllString(text, -1) {
			add(match)
		}
	}

	return found, nil
}

// annotationURIs walks each page's /Annots array for link actions with a /URI
// target. The reader panics on some malformed object trees, so the walk is
// wrapped in a recover.
func annotationURIs(path string) (uris []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("annotation tree walk panicked: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document for annotation scan: %w", err)
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		annots := page.V.Key("Annots")
		if annots.Kind() != pdf.Array {
			continue
		}
		for j := 0; j < annots.Len(); j++ {
			uri := annots.Index(j).Key("A").Key("URI")
			if uri.Kind() == pdf.String {
				uris = append(uris, uri.Text())
			}
		}
	}
	return uris, nil
}

// trimLink strips the trailing punctuation that text extraction drags in
// after a URL, e.g. a sentence period or a closing bracket.
func trimLink(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), ".,;:!?)]}>'\"")
}
