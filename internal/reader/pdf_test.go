package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"caseforge/internal/core"
)

func TestProcessDocumentPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.pdf")
	raw := buildTextPDF("Acme Corp cut deployment time in half")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	s := NewService(Options{})
	doc, err := s.ProcessDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}

	if doc.Metadata.SourceType != core.SourcePDF {
		t.Errorf("Expected source type %s, got %s", core.SourcePDF, doc.Metadata.SourceType)
	}
	if doc.Structured.PageCount != 1 {
		t.Errorf("Expected page count 1, got %d", doc.Structured.PageCount)
	}
	if !strings.Contains(doc.Text, "Acme Corp cut deployment time in half") {
		t.Errorf("Expected extracted page text, got %q", doc.Text)
	}
}

func TestProcessDocumentPDFCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 this is not really a pdf"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	s := NewService(Options{})
	_, err := s.ProcessDocument(context.Background(), path)
	if err == nil {
		t.Fatal("Expected error for corrupt pdf")
	}
	if !errors.Is(err, ErrCorruptInput) {
		t.Errorf("Expected ErrCorruptInput, got %v", err)
	}
}

func TestStreamToText(t *testing.T) {
	testCases := []struct {
		name     string
		stream   string
		expected string
	}{
		{
			name:     "Show operator",
			stream:   "BT\n/F1 12 Tf\n72 720 Td\n(Hello World) Tj\nET",
			expected: "Hello World",
		},
		{
			name:     "Array show operator joins literals",
			stream:   "BT\n[(Hel) -250 (lo)] TJ\nET",
			expected: "Hello",
		},
		{
			name:     "Positioning inserts a space",
			stream:   "(First) Tj\n100 0 Td\n(Second) Tj",
			expected: "First Second",
		},
		{
			name:     "Next-line show operator breaks the line",
			stream:   "(Heading) Tj\n(Body text) '",
			expected: "Heading\nBody text",
		},
		{
			name:     "Star operator breaks the line",
			stream:   "(One) Tj\nT*\n(Two) Tj",
			expected: "One\nTwo",
		},
		{
			name:     "Non-text operators are ignored",
			stream:   "q 1 0 0 1 0 0 cm\n/Im1 Do\nQ",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := streamToText([]byte(tc.stream))
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestUnescapePDFString(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain", "no escapes here", "no escapes here"},
		{"Escaped parens", `a \(quoted\) phrase`, "a (quoted) phrase"},
		{"Escaped backslash", `path\\to\\file`, `path\to\file`},
		{"Newline and tab", `line\none\ttab`, "line\none\ttab"},
		{"Octal code", `\101\102\103`, "ABC"},
		{"Short octal", `\53`, "+"},
		{"Trailing backslash kept", `abc\`, `abc\`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := unescapePDFString([]byte(tc.input))
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestTidyPDFText(t *testing.T) {
	input := "  spaced   out  line \n\n\x00control\x01chars\nlast line  "
	got := tidyPDFText(input)
	expected := "spaced out line\ncontrol chars\nlast line"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

// --- PDF fixture helper ---

// buildTextPDF produces a minimal but structurally valid single-page PDF
// whose content stream draws the given text, including a correct xref table.
func buildTextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)

	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n")
	b.WriteString(stream)
	b.WriteString("\nendstream\nendobj\n")

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xrefOffset := b.Len()
	b.WriteString("xref\n0 6\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		b.WriteString(fmt.Sprintf("%010d 00000 n \n", offsets[i]))
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")

	return []byte(b.String())
}
