package truncate

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"caseforge/internal/core"
)

func newTestGovernor() *Governor {
	return NewGovernor(20000, 200000)
}

func TestPrepareSmallTextUnchanged(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("short content. ", 100)

	if got := g.Prepare(text, core.StructuredContent{}); got != text {
		t.Error("Expected text below the large threshold to pass through unchanged")
	}
}

func TestPreparePositional(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("a", 30000)

	got := g.Prepare(text, core.StructuredContent{})

	if !strings.Contains(got, Marker) {
		t.Errorf("Expected truncated text to contain marker %q", Marker)
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 10000)) {
		t.Error("Expected truncated text to start with the first 10K characters")
	}
	if !strings.HasSuffix(got, strings.Repeat("a", 5000)) {
		t.Error("Expected truncated text to end with the last 5K characters")
	}
	if len(got) >= len(text) {
		t.Errorf("Expected truncated text to be shorter, got %d >= %d", len(got), len(text))
	}
}

func TestPrepareVeryLargeSkipsMiddle(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("b", 150000)

	got := g.Prepare(text, core.StructuredContent{})

	if !strings.Contains(got, MarkerMost) {
		t.Errorf("Expected very large text to use marker %q", MarkerMost)
	}
	if strings.Contains(got, Marker) {
		t.Error("Expected no middle slice for very large text")
	}
	if len(got) > 15100 {
		t.Errorf("Expected only head and tail retained, got %d chars", len(got))
	}
}

func TestPrepareStructuredCompaction(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("c", 30000)

	sections := make([]core.Section, 0, 8)
	for i := 0; i < 8; i++ {
		sections = append(sections, core.Section{
			Title:   fmt.Sprintf("Section %d", i+1),
			Content: strings.Repeat("detail ", 60),
		})
	}

	got := g.Prepare(text, core.StructuredContent{Sections: sections})

	if !strings.Contains(got, "## Section 1") {
		t.Error("Expected compacted text to carry section headers")
	}
	if !strings.Contains(got, Marker) {
		t.Errorf("Expected compacted text to contain marker %q", Marker)
	}
	if strings.Contains(got, strings.Repeat("c", 100)) {
		t.Error("Expected compacted text to be built from sections, not raw text")
	}
}

func TestPrepareStructuredMiddleSelection(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("d", 30000)

	sections := make([]core.Section, 0, 18)
	for i := 0; i < 18; i++ {
		sections = append(sections, core.Section{
			Title:   fmt.Sprintf("Section %d", i+1),
			Content: strings.Repeat("body ", 40),
		})
	}

	got := g.Prepare(text, core.StructuredContent{Sections: sections})

	// 18 sections: first 5, three starting at index 6 (18/3), last 5.
	for _, want := range []string{"## Section 1", "## Section 5", "## Section 7", "## Section 9", "## Section 14", "## Section 18"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected compacted text to include %q", want)
		}
	}
	if strings.Contains(got, "## Section 10\n") {
		t.Error("Expected section 10 to be dropped from the compacted text")
	}
}

func TestPrepareTinySectionsFallThrough(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("e", 30000)

	sections := make([]core.Section, 0, 8)
	for i := 0; i < 8; i++ {
		sections = append(sections, core.Section{Title: "T", Content: "x"})
	}

	got := g.Prepare(text, core.StructuredContent{Sections: sections})

	if !strings.HasPrefix(got, strings.Repeat("e", 10000)) {
		t.Error("Expected positional truncation when section compaction is too small")
	}
}

func TestEscalate(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("f", 10000)

	first := g.Escalate(text, 1)
	if !strings.Contains(first, MarkerAggressive) {
		t.Errorf("Expected escalated text to contain marker %q", MarkerAggressive)
	}
	// Retry 1 keeps 60% of the input, split 75/25.
	if !strings.HasPrefix(first, strings.Repeat("f", 4500)) {
		t.Error("Expected escalated text to keep 4500 leading characters on first retry")
	}
	if len(first) >= len(text) {
		t.Errorf("Expected escalated text to be shorter, got %d >= %d", len(first), len(text))
	}

	second := g.Escalate(text, 2)
	if len(second) >= len(first) {
		t.Errorf("Expected second escalation to retain less, got %d >= %d", len(second), len(first))
	}
}

func TestTokenLimitCut(t *testing.T) {
	g := newTestGovernor()
	text := strings.Repeat("g", 20000)

	got := g.TokenLimitCut(text)

	if !strings.Contains(got, MarkerTokenLimit) {
		t.Errorf("Expected token-limit cut to contain marker %q", MarkerTokenLimit)
	}
	// A quarter retained: 3750 head + 1250 tail plus the marker itself.
	retained := len(got) - len("\n\n"+MarkerTokenLimit+"\n\n")
	if retained != 5000 {
		t.Errorf("Expected 5000 retained characters, got %d", retained)
	}
	if !strings.HasPrefix(got, strings.Repeat("g", 3750)) {
		t.Error("Expected head portion of 3750 characters")
	}
}

func TestHardCap(t *testing.T) {
	g := newTestGovernor()

	if g.ExceedsHardCap(strings.Repeat("h", 200000)) {
		t.Error("Expected text at exactly the hard cap to pass")
	}
	if !g.ExceedsHardCap(strings.Repeat("h", 200001)) {
		t.Error("Expected text above the hard cap to be rejected")
	}
}

func TestRuneSafety(t *testing.T) {
	// Multibyte text must never be cut mid-rune.
	text := strings.Repeat("héllo wörld ", 3000)
	g := newTestGovernor()

	for _, out := range []string{
		g.Prepare(text, core.StructuredContent{}),
		g.Escalate(text, 1),
		g.TokenLimitCut(text),
	} {
		if !utf8.ValidString(out) {
			t.Error("Expected truncated output to remain valid UTF-8")
		}
	}
}
