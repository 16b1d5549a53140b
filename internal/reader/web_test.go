package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"caseforge/internal/core"

	"github.com/PuerkitoBio/goquery"
)

const webArticleHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Platform Migration Retrospective</title>
    <meta property="og:title" content="OG Migration Title">
    <meta property="article:published_time" content="2024-03-10T08:00:00Z">
</head>
<body>
    <nav>Site navigation</nav>
    <header>Masthead</header>
    <script>console.log("tracking");</script>
    <article>
        <h1>Platform Migration Retrospective</h1>
        <p>The first paragraph describes the legacy system.</p>
        <p>The second paragraph covers the migration plan.</p>
        <ul>
            <li>Zero downtime during cutover</li>
            <li>Costs reduced by a third</li>
        </ul>
    </article>
    <aside>Related links</aside>
    <footer>Subscribe to the newsletter</footer>
</body>
</html>`

func TestProcessDocumentWeb(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(webArticleHTML))
	}))
	defer server.Close()

	s := NewService(Options{})
	doc, err := s.ProcessDocument(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if doc.Metadata.SourceType != core.SourceWeb {
		t.Errorf("Expected source type %s, got %s", core.SourceWeb, doc.Metadata.SourceType)
	}
	if doc.Metadata.Status != core.StatusSuccess {
		t.Errorf("Expected status %s, got %s", core.StatusSuccess, doc.Metadata.Status)
	}
	if doc.Metadata.Title != "Platform Migration Retrospective" {
		t.Errorf("Expected title from title tag, got %q", doc.Metadata.Title)
	}
	if doc.Metadata.Date != "2024-03-10T08:00:00Z" {
		t.Errorf("Expected published date, got %q", doc.Metadata.Date)
	}

	if !strings.Contains(doc.Text, "first paragraph describes the legacy system") {
		t.Errorf("Expected article paragraphs, got %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Zero downtime during cutover") {
		t.Errorf("Expected list items, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "Site navigation") {
		t.Error("Extracted text should not contain navigation")
	}
	if strings.Contains(doc.Text, "tracking") {
		t.Error("Extracted text should not contain script content")
	}
	if strings.Contains(doc.Text, "Subscribe to the newsletter") {
		t.Error("Extracted text should not contain footer content")
	}
	if !strings.Contains(doc.Text, "\n\n") {
		t.Error("Expected blocks separated by blank lines")
	}
}

func TestProcessDocumentWebError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewService(Options{})
	doc, err := s.ProcessDocument(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Web failures should not return an error, got: %v", err)
	}

	if doc.Metadata.Status != core.StatusError {
		t.Errorf("Expected status %s, got %s", core.StatusError, doc.Metadata.Status)
	}
	if !strings.Contains(doc.Metadata.ErrorDetail, "status code 500") {
		t.Errorf("Expected error detail to mention status code 500, got %q", doc.Metadata.ErrorDetail)
	}
	if doc.Text != "" {
		t.Errorf("Expected empty text on fetch failure, got %q", doc.Text)
	}
	if doc.ProcessedAt.IsZero() {
		t.Error("ProcessedAt should be stamped even on failure")
	}
}

func TestProcessDocumentWebUnreachable(t *testing.T) {
	s := NewService(Options{})
	doc, err := s.ProcessDocument(context.Background(), "http://127.0.0.1:1/nothing")
	if err != nil {
		t.Fatalf("Connection failures should not return an error, got: %v", err)
	}

	if doc.Metadata.Status != core.StatusError {
		t.Errorf("Expected status %s, got %s", core.StatusError, doc.Metadata.Status)
	}
	if doc.Metadata.ErrorDetail == "" {
		t.Error("Expected error detail for unreachable host")
	}
}

func TestExtractTitle(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "Title tag wins",
			html:     `<html><head><title>Doc Title</title><meta property="og:title" content="OG Title"></head><body><h1>H1 Title</h1></body></html>`,
			expected: "Doc Title",
		},
		{
			name:     "OpenGraph fallback",
			html:     `<html><head><meta property="og:title" content="OG Title"></head><body><h1>H1 Title</h1></body></html>`,
			expected: "OG Title",
		},
		{
			name:     "H1 fallback",
			html:     `<html><head></head><body><h1>H1 Title</h1></body></html>`,
			expected: "H1 Title",
		},
		{
			name:     "No title",
			html:     `<html><head></head><body><p>Nothing here</p></body></html>`,
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gq, err := goquery.NewDocumentFromReader(strings.NewReader(tc.html))
			if err != nil {
				t.Fatalf("Failed to parse fixture: %v", err)
			}
			if got := extractTitle(gq); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestExtractMainTextBodyFallback(t *testing.T) {
	html := `<html><body><div><p>General content outside any known container.</p></div></body></html>`
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}

	got := extractMainText(gq)
	if !strings.Contains(got, "General content outside any known container.") {
		t.Errorf("Expected body fallback extraction, got %q", got)
	}
}

func TestExtractDate(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "Meta property",
			html:     `<html><head><meta property="article:published_time" content="2024-06-01T12:00:00Z"></head><body></body></html>`,
			expected: "2024-06-01T12:00:00Z",
		},
		{
			name:     "Time element fallback",
			html:     `<html><body><time datetime="2024-05-20">May 20</time></body></html>`,
			expected: "2024-05-20",
		},
		{
			name:     "No date",
			html:     `<html><body><p>Undated</p></body></html>`,
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gq, err := goquery.NewDocumentFromReader(strings.NewReader(tc.html))
			if err != nil {
				t.Fatalf("Failed to parse fixture: %v", err)
			}
			if got := extractDate(gq); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}
