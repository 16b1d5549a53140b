package narrative

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"caseforge/internal/core"
	"caseforge/internal/logger"

	"github.com/google/uuid"
)

// Placeholder content for sections the heuristics cannot fill.
const (
	defaultTitle     = "Document Analysis Report"
	defaultChallenge = "Analysis of the provided document content."
	defaultApproach  = "Document processing and content extraction."
	defaultSolution  = "Automated extraction of key information from the document."
	defaultOutcomes  = "Generated report based on document analysis."
	defaultSummary   = "This report was automatically generated from the document content."
)

var defaultKeyPoints = []string{
	"Document processed successfully",
	"Content extracted and analyzed",
	"Report generated from content",
}

// Footer noise skipped during slide segmentation.
var slideFooterMarkers = []string{"confidential", "page", "copyright", "©", "all rights reserved", "footer"}

// Slide-title keywords routing content into case study sections.
var (
	challengeKeywords = []string{"challenge", "problem", "issue", "background", "overview", "introduction"}
	approachKeywords  = []string{"approach", "methodology", "strategy", "process", "plan"}
	solutionKeywords  = []string{"solution", "implementation", "platform", "technology", "product"}
	outcomesKeywords  = []string{"outcomes", "results", "benefits", "impact", "conclusion", "success"}
)

// Slide titles too generic to work as key points.
var genericTitleWords = []string{"agenda", "content", "overview", "thank"}

// fallback builds a case study from extraction heuristics alone. It is fully
// deterministic: the same document and audience always produce the same
// narrative sections.
func (g *Generator) fallback(doc *core.ExtractedDocument, audience string) *core.CaseStudy {
	logger.Info("Using fallback case study generation", "document_id", doc.ID)

	draft := fallbackDraft(doc)

	cs := &core.CaseStudy{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		Audience:    audience,
		Title:       draft.Title,
		Challenge:   draft.Challenge,
		Approach:    draft.Approach,
		Solution:    draft.Solution,
		Outcomes:    draft.Outcomes,
		Summary:     draft.Summary,
		KeyPoints:   draft.KeyPoints,
		GeneratedBy: core.GeneratedByFallback,
		GeneratedAt: time.Now().UTC(),
	}

	g.attachImages(cs, doc)
	return cs
}

// fallbackDraft derives narrative sections without the backend. Slide decks
// get keyword bucketing over slide titles; everything else maps the first
// document sections onto the case study sections positionally.
func fallbackDraft(doc *core.ExtractedDocument) core.CaseStudyDraft {
	draft := core.CaseStudyDraft{
		Title:     defaultTitle,
		Challenge: defaultChallenge,
		Approach:  defaultApproach,
		Solution:  defaultSolution,
		Outcomes:  defaultOutcomes,
		Summary:   defaultSummary,
	}
	if doc.Structured.Title != "" {
		draft.Title = doc.Structured.Title
	}

	bucketed := false
	if doc.Metadata.SourceType == core.SourcePPTX {
		bucketed = bucketSlides(&draft, doc.Text)
	}
	if !bucketed {
		sectionsToDraft(&draft, doc.Structured.Sections)
	}

	if len(draft.KeyPoints) == 0 {
		draft.KeyPoints = defaultedKeyPoints(doc)
	}
	return draft
}

// defaultedKeyPoints returns the structured key points capped at five, or the
// generic defaults when the document has none.
func defaultedKeyPoints(doc *core.ExtractedDocument) []string {
	points := doc.Structured.KeyPoints
	if len(points) == 0 {
		return append([]string(nil), defaultKeyPoints...)
	}
	if len(points) > 5 {
		points = points[:5]
	}
	return append([]string(nil), points...)
}

// slideBlock is one title-led run of slide content lines.
type slideBlock struct {
	title string
	lines []string
}

// segmentSlides splits slide text into title-led blocks. Footer noise is
// dropped, short non-title lines are discarded, and content before the first
// title is ignored.
func segmentSlides(text string) []slideBlock {
	var blocks []slideBlock

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if containsAnyFold(line, slideFooterMarkers) {
			continue
		}

		if len(line) < 60 && !strings.HasSuffix(line, ".") {
			if looksLikeSlideTitle(line) {
				blocks = append(blocks, slideBlock{title: line})
			}
			continue
		}
		if len(blocks) > 0 {
			blocks[len(blocks)-1].lines = append(blocks[len(blocks)-1].lines, line)
		}
	}

	return blocks
}

// looksLikeSlideTitle reports whether a short line reads as a slide title:
// at most ten words, all caps or at least one capitalized word.
func looksLikeSlideTitle(line string) bool {
	words := strings.Fields(line)
	if len(words) > 10 {
		return false
	}
	if isAllUpper(line) {
		return true
	}
	for _, word := range words {
		if utf8.RuneCountInString(word) > 1 {
			if first, _ := utf8.DecodeRuneInString(word); unicode.IsUpper(first) {
				return true
			}
		}
	}
	return false
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// bucketSlides routes slide content into the four narrative sections by
// keyword match on the slide title, overflowing unmatched slides into the
// first section still under three lines. Reports whether any content landed.
func bucketSlides(draft *core.CaseStudyDraft, text string) bool {
	blocks := segmentSlides(text)
	if len(blocks) == 0 {
		return false
	}

	var challenge, approach, solution, outcomes []string
	for _, block := range blocks {
		lower := strings.ToLower(block.title)
		switch {
		case containsAny(lower, challengeKeywords):
			challenge = append(challenge, block.lines...)
		case containsAny(lower, approachKeywords):
			approach = append(approach, block.lines...)
		case containsAny(lower, solutionKeywords):
			solution = append(solution, block.lines...)
		case containsAny(lower, outcomesKeywords):
			outcomes = append(outcomes, block.lines...)
		case len(challenge) < 3:
			challenge = append(challenge, block.lines...)
		case len(approach) < 3:
			approach = append(approach, block.lines...)
		case len(solution) < 3:
			solution = append(solution, block.lines...)
		default:
			outcomes = append(outcomes, block.lines...)
		}
	}

	if len(challenge) == 0 && len(approach) == 0 && len(solution) == 0 && len(outcomes) == 0 {
		return false
	}

	if len(challenge) > 0 {
		draft.Challenge = capLen(strings.Join(challenge, " "), 800)
	}
	if len(approach) > 0 {
		draft.Approach = capLen(strings.Join(approach, " "), 800)
	}
	if len(solution) > 0 {
		draft.Solution = capLen(strings.Join(solution, " "), 800)
	}
	if len(outcomes) > 0 {
		draft.Outcomes = capLen(strings.Join(outcomes, " "), 800)
	}

	var summaryParts []string
	if len(challenge) > 0 {
		summaryParts = append(summaryParts, strings.Join(firstLines(challenge, 2), " "))
	}
	if len(solution) > 0 {
		summaryParts = append(summaryParts, strings.Join(firstLines(solution, 2), " "))
	}
	if len(summaryParts) > 0 {
		draft.Summary = capLen(strings.Join(summaryParts, " "), 400)
	}

	draft.KeyPoints = slideKeyPoints(blocks, challenge, solution, outcomes)
	return true
}

// slideKeyPoints gathers candidate key points from slide titles (when the
// deck has more than three) and bullet lines, keeping the first five of
// useful length.
func slideKeyPoints(blocks []slideBlock, challenge, solution, outcomes []string) []string {
	var candidates []string

	if len(blocks) > 3 {
		kept := 0
		for _, block := range blocks {
			if containsAnyFold(block.title, genericTitleWords) {
				continue
			}
			candidates = append(candidates, block.title)
			kept++
			if kept >= 5 {
				break
			}
		}
	}

	for _, body := range [][]string{challenge, solution, outcomes} {
		for _, line := range body {
			if strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				candidates = append(candidates, strings.TrimLeft(line, "•-* "))
			}
		}
	}

	var points []string
	for _, candidate := range candidates {
		if len(candidate) > 15 && len(candidate) < 100 {
			points = append(points, candidate)
			if len(points) >= 5 {
				break
			}
		}
	}
	return points
}

// sectionsToDraft maps the first four non-empty document sections onto
// challenge, approach, solution, and outcomes, and builds the summary from
// the openings of the first three.
func sectionsToDraft(draft *core.CaseStudyDraft, sections []core.Section) {
	var contents []string
	for _, section := range sections {
		if strings.TrimSpace(section.Content) != "" {
			contents = append(contents, strings.TrimSpace(section.Content))
		}
	}
	if len(contents) == 0 {
		return
	}

	targets := []*string{&draft.Challenge, &draft.Approach, &draft.Solution, &draft.Outcomes}
	for i, target := range targets {
		if i >= len(contents) {
			break
		}
		*target = capLen(contents[i], 800)
	}

	summaryCount := 3
	if len(contents) < summaryCount {
		summaryCount = len(contents)
	}
	summaryParts := make([]string, 0, summaryCount)
	for _, content := range contents[:summaryCount] {
		summaryParts = append(summaryParts, capLen(content, 150))
	}
	draft.Summary = strings.Join(summaryParts, " ")
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, needles []string) bool {
	return containsAny(strings.ToLower(s), needles)
}

func firstLines(lines []string, n int) []string {
	if len(lines) < n {
		n = len(lines)
	}
	return lines[:n]
}

// capLen truncates s to at most n bytes without splitting a rune.
func capLen(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
