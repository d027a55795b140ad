// Package source normalizes every input mode (crawl URL, direct document URL,
// newline-delimited list, structured batch file) into one deduplicated,
// order-preserving sequence of acquisition tasks.
package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/securezeron/SubPDF/internal/config"
	"github.com/securezeron/SubPDF/internal/fetch"
	"github.com/securezeron/SubPDF/internal/observability"
)

// AcquisitionTask is one URL-to-document unit of work. Identity is SourceURL;
// duplicates collapse before submission. Immutable once created.
type AcquisitionTask struct {
	SourceURL string
	Headers   map[string]string
}

// Source resolves the run's input modes into acquisition tasks.
type Source struct {
	cfg    *config.RunConfig
	client *fetch.Client
	logger *observability.Logger
}

// New creates a task source.
func New(cfg *config.RunConfig, client *fetch.Client, logger *observability.Logger) *Source {
	return &Source{cfg: cfg, client: client, logger: logger}
}

// Resolve produces the task sequence. Input URLs that already point at a
// document become tasks directly; everything else is treated as a crawl seed
// and scraped once, non-recursively, for document links. Malformed list or
// batch input is a fatal configuration error since no tasks exist yet.
func (s *Source) Resolve(ctx context.Context) ([]AcquisitionTask, error) {
	var inputs []string
	inputs = append(inputs, s.cfg.CrawlURLs...)

	if s.cfg.ListPath != "" {
		urls, err := readList(s.cfg.ListPath)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, urls...)
	}
	if s.cfg.BatchPath != "" {
		urls, err := readBatch(s.cfg.BatchPath)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, urls...)
	}

	dedup := newTaskSet(s.cfg.Headers)

	// Direct document URLs skip discovery even without a .pdf extension.
	for _, raw := range s.cfg.PDFURLs {
		dedup.add(raw)
	}

	for _, raw := range inputs {
		if looksLikeDocument(raw) {
			dedup.add(raw)
			continue
		}
		found, err := s.discover(ctx, raw)
		if err != nil {
			// A dead seed page is not fatal; the run may still have tasks
			// from other modes.
			s.logger.Warn().Str("seed", raw).Err(err).Msg("seed page discovery failed")
			continue
		}
		s.logger.Debug().Str("seed", raw).Int("links", len(found)).Msg("seed page discovered document links")
		for _, u := range found {
			dedup.add(u)
		}
	}

	tasks := dedup.tasks()
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no document URLs resolved from the given inputs")
	}
	return tasks, nil
}

// discover performs the single bounded HTML fetch of a seed page and extracts
// href references that point at documents. This is one hop; discovered pages
// are never crawled further.
func (s *Source) discover(ctx context.Context, seedURL string) ([]string, error) {
	base, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("parse seed url: %w", err)
	}

	// Seed pages get a shorter deadline than document downloads.
	if s.cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CrawlTimeout)
		defer cancel()
	}

	body, err := s.client.Get(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse seed page: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}

		switch {
		case looksLikeDocument(abs):
			seen[abs] = struct{}{}
			links = append(links, abs)
		case worthSniffing(abs):
			ct, err := s.client.ContentType(ctx, abs)
			if err == nil && strings.HasPrefix(strings.ToLower(ct), "application/pdf") {
				seen[abs] = struct{}{}
				links = append(links, abs)
			}
		}
	})

	return links, nil
}

// looksLikeDocument reports whether a URL's path names a PDF document.
func looksLikeDocument(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(rawURL), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// worthSniffing limits Content-Type HEAD probes to hrefs that mention pdf
// somewhere else than the path suffix, e.g. /download?file=report.pdf.
func worthSniffing(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), ".pdf")
}

// taskSet preserves first-occurrence order while collapsing duplicate URLs.
type taskSet struct {
	headers map[string]string
	seen    map[string]struct{}
	ordered []AcquisitionTask
}

func newTaskSet(headers map[string]string) *taskSet {
	return &taskSet{
		headers: headers,
		seen:    make(map[string]struct{}),
	}
}

func (t *taskSet) add(rawURL string) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return
	}
	if _, dup := t.seen[rawURL]; dup {
		return
	}
	t.seen[rawURL] = struct{}{}
	t.ordered = append(t.ordered, AcquisitionTask{SourceURL: rawURL, Headers: t.headers})
}

func (t *taskSet) tasks() []AcquisitionTask { return t.ordered }
