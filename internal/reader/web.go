package reader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"caseforge/internal/core"
	"caseforge/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// boilerplateSelectors are stripped from the page before text extraction.
const boilerplateSelectors = "script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .cookie-banner"

// mainContentSelectors are tried in order; the first one that yields text wins.
var mainContentSelectors = []string{
	"article", "main", "[role='main']",
	".main-content", ".entry-content", ".post-content", ".article-body",
	".content", "#content",
}

// blockSelector lists the block-level elements whose text is collected.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre"

// processWeb fetches and parses a web page. Failures never return an error:
// the document comes back with an error status and detail so callers can
// still route it through the fallback generator.
func (s *Service) processWeb(ctx context.Context, pageURL string) (*core.ExtractedDocument, error) {
	doc := &core.ExtractedDocument{
		ID: uuid.NewString(),
		Metadata: core.DocMetadata{
			SourceType: core.SourceWeb,
			Source:     pageURL,
			Status:     core.StatusSuccess,
		},
	}

	text, title, date, err := s.fetchPage(ctx, pageURL)
	if err != nil {
		logger.Warn("Web extraction failed", "url", pageURL, "error", err.Error())
		doc.Metadata.Status = core.StatusError
		doc.Metadata.ErrorDetail = err.Error()
		doc.ProcessedAt = time.Now().UTC()
		return doc, nil
	}

	doc.Text = text
	doc.Metadata.Title = title
	doc.Metadata.Date = date
	s.finish(doc, 0)

	logger.Info("Document processed",
		"source", pageURL, "type", core.SourceWeb, "chars", len(doc.Text))
	return doc, nil
}

// fetchPage retrieves the page and extracts main content text, title, and
// publication date.
func (s *Service) fetchPage(ctx context.Context, pageURL string) (text, title, date string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", "", fmt.Errorf("build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", "", fmt.Errorf("fetch %s: status code %d", pageURL, resp.StatusCode)
	}

	gq, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", "", fmt.Errorf("parse %s: %w", pageURL, err)
	}

	gq.Find(boilerplateSelectors).Remove()

	text = extractMainText(gq)
	title = extractTitle(gq)
	date = extractDate(gq)
	return text, title, date, nil
}

// extractMainText collects block-level text from the first matching content
// container, falling back to the whole body.
func extractMainText(gq *goquery.Document) string {
	var builder strings.Builder

	collect := func(sel *goquery.Selection) {
		sel.Find(blockSelector).Each(func(_ int, item *goquery.Selection) {
			t := strings.TrimSpace(item.Text())
			if t == "" {
				return
			}
			builder.WriteString(t)
			builder.WriteString("\n\n")
		})
	}

	for _, selector := range mainContentSelectors {
		found := gq.Find(selector)
		if found.Length() == 0 {
			continue
		}
		collect(found.First())
		if builder.Len() > 0 {
			break
		}
	}

	if builder.Len() == 0 {
		collect(gq.Find("body"))
	}

	return strings.TrimSpace(builder.String())
}

// extractTitle tries the document title, then OpenGraph, then the first h1.
func extractTitle(gq *goquery.Document) string {
	if title := strings.TrimSpace(gq.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := gq.Find("meta[property='og:title']").Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	return strings.TrimSpace(gq.Find("h1").First().Text())
}

// extractDate looks for a machine-readable publication date.
func extractDate(gq *goquery.Document) string {
	if published, ok := gq.Find("meta[property='article:published_time']").Attr("content"); ok {
		if published = strings.TrimSpace(published); published != "" {
			return published
		}
	}
	if dt, ok := gq.Find("time[datetime]").First().Attr("datetime"); ok {
		return strings.TrimSpace(dt)
	}
	return ""
}
