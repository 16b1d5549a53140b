package truncate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"caseforge/internal/core"
)

// Markers embedded in truncated text sent to the generative backend. Any
// truncated payload contains at least one of these literal substrings.
const (
	Marker           = "[...content truncated...]"
	MarkerMost       = "[...most content truncated...]"
	MarkerAggressive = "[...content significantly truncated...]"
	MarkerTokenLimit = "[...most content removed due to token limits...]"
)

// Governor enforces the text size thresholds and applies the
// content-preserving truncation strategies used before and between
// generative attempts.
type Governor struct {
	LargeTextThreshold int // Above this, text is truncated before any attempt
	HardTextCap        int // Above this, the backend is never called at all
}

// NewGovernor creates a governor with the given thresholds.
func NewGovernor(largeThreshold, hardCap int) *Governor {
	return &Governor{
		LargeTextThreshold: largeThreshold,
		HardTextCap:        hardCap,
	}
}

// IsLarge reports whether text exceeds the large-input threshold.
func (g *Governor) IsLarge(text string) bool {
	return len(text) > g.LargeTextThreshold
}

// ExceedsHardCap reports whether text is too large for generative processing.
func (g *Governor) ExceedsHardCap(text string) bool {
	return len(text) > g.HardTextCap
}

// Prepare reduces large text to a backend-sized payload. Structured
// compaction is preferred when the document has at least six sections and
// yields a usable amount of text; otherwise positional truncation applies.
// Text at or below the large threshold is returned unchanged.
func (g *Governor) Prepare(text string, structured core.StructuredContent) string {
	if !g.IsLarge(text) {
		return text
	}

	if len(structured.Sections) > 5 {
		if compact := compactSections(structured.Sections); len(compact) > 1000 {
			return compact + "\n\n" + Marker + "\n"
		}
	}

	return positional(text)
}

// compactSections assembles the first five, up to three middle, and last five
// sections, each body capped at 600 characters, under "## title" headers.
func compactSections(sections []core.Section) string {
	keep := make([]core.Section, 0, 13)
	keep = append(keep, sections[:5]...)
	if len(sections) > 15 {
		mid := len(sections) / 3
		keep = append(keep, sections[mid:mid+3]...)
	}
	keep = append(keep, sections[len(sections)-5:]...)

	var b strings.Builder
	for _, s := range keep {
		if s.Title == "" || s.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n%s\n", s.Title, head(s.Content, 600))
	}
	return b.String()
}

// positional keeps the first 10K characters, a 2K middle slice for texts
// under 100K, and the last 5K, joined by explicit truncation markers.
func positional(text string) string {
	first := head(text, 10000)
	last := tail(text, 5000)

	if len(text) < 100000 {
		midStart := len(text)/2 - 1000
		middle := slice(text, midStart, midStart+2000)
		return first + "\n\n" + Marker + "\n\n" + middle + "\n\n" + Marker + "\n\n" + last
	}
	return first + "\n\n" + MarkerMost + "\n\n" + last
}

// Escalate shrinks text for a retry after a transient backend failure.
// The retained share decreases with each retry (0.6 on the first, 0.5 on the
// second), split 75/25 between head and tail.
func (g *Governor) Escalate(text string, retry int) string {
	factor := 0.7 - 0.1*float64(retry)
	newLen := int(float64(len(text)) * factor)
	firstSize := int(float64(newLen) * 0.75)
	lastSize := newLen - firstSize
	return head(text, firstSize) + "\n\n" + MarkerAggressive + "\n\n" + tail(text, lastSize)
}

// TokenLimitCut retains a quarter of the text after a context-length failure,
// biased 75/25 toward the head.
func (g *Governor) TokenLimitCut(text string) string {
	newLen := len(text) / 4
	start := int(float64(newLen) * 0.75)
	end := newLen - start
	return head(text, start) + "\n\n" + MarkerTokenLimit + "\n\n" + tail(text, end)
}

// head returns at most n bytes from the start of s without splitting a rune.
func head(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// tail returns at most n bytes from the end of s without splitting a rune.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

// slice returns s[start:end] clamped to valid rune boundaries.
func slice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	for end < len(s) && !utf8.RuneStart(s[end]) {
		end++
	}
	return s[start:end]
}
