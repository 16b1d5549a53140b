package structure

import (
	"regexp"
	"strings"

	"caseforge/internal/core"
)

// Heading pattern classes, tried in order. The first match wins and the raw
// trimmed line becomes the section title.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^#+\s+.+$`),        // Markdown headings
	regexp.MustCompile(`^\d+\.[\d.]*\s+.+$`), // Numbered headings (1.1, 1.2.3, etc.)
	regexp.MustCompile(`^Chapter \d+:?.*$`),  // Chapter headings
	regexp.MustCompile(`^.*:$`),              // Colon headings
	regexp.MustCompile(`^[A-Z][A-Z\s]+$`),    // UPPERCASE HEADINGS
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),
	regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{2,4}`),
	regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
}

var (
	orgPattern      = regexp.MustCompile(`\b[A-Z][A-Za-z]+ (?:Inc|LLC|Ltd|Corporation|Corp|Company|Co|Group|Partners|Technologies|Solutions|Systems|Associates)\b`)
	personPattern   = regexp.MustCompile(`\b(?:Mr|Ms|Mrs|Dr|Prof)\. ([A-Z][a-z]+ [A-Z][a-z]+)\b`)
	sentenceEnd     = regexp.MustCompile(`[.!?]\s`)
	wordPattern     = regexp.MustCompile(`\w+`)
)

// Extract derives a normalized content model from raw document text. It is a
// pure function: the same text always yields the same model. Text shorter
// than 10 characters after trimming yields an empty model.
func Extract(text string, sourceType string) core.StructuredContent {
	structured := core.StructuredContent{}

	if len(strings.TrimSpace(text)) < 10 {
		return structured
	}

	lines := strings.Split(text, "\n")

	// Title is the first non-empty line.
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			structured.Title = trimmed
			break
		}
	}

	// Partition the text into sections by detected heading lines. Content
	// before the first heading belongs to an implicit Introduction section.
	current := core.Section{Title: "Introduction"}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		isHeading := false
		for _, pattern := range headingPatterns {
			if pattern.MatchString(trimmed) {
				if strings.TrimSpace(current.Content) != "" {
					structured.Sections = append(structured.Sections, current)
				}
				current = core.Section{Title: trimmed}
				isHeading = true
				break
			}
		}
		if !isHeading {
			current.Content += line + "\n"
		}
	}
	if strings.TrimSpace(current.Content) != "" {
		structured.Sections = append(structured.Sections, current)
	}

	structured.Entities = extractEntities(text)
	structured.KeyPoints = extractKeyPoints(structured.Sections)
	structured.WordCount = len(wordPattern.FindAllString(text, -1))

	return structured
}

// extractEntities pulls dates, organizations, and people out of the text with
// coarse regex heuristics, deduped in order of first appearance.
func extractEntities(text string) core.Entities {
	var entities core.Entities

	for _, pattern := range datePatterns {
		entities.Dates = appendUnique(entities.Dates, pattern.FindAllString(text, -1)...)
	}

	entities.Organizations = appendUnique(nil, orgPattern.FindAllString(text, -1)...)

	for _, match := range personPattern.FindAllStringSubmatch(text, -1) {
		entities.People = appendUnique(entities.People, match[1])
	}

	return entities
}

// extractKeyPoints uses short section bodies verbatim and, when fewer than
// three exist, supplements them with the first sentence of longer sections.
func extractKeyPoints(sections []core.Section) []string {
	var points []string

	for _, section := range sections {
		content := strings.TrimSpace(section.Content)
		if len(content) > 10 && len(content) < 200 {
			points = append(points, strings.ReplaceAll(content, "\n", " "))
		}
	}

	if len(points) < 3 {
		for _, section := range sections {
			if len(section.Content) > 200 {
				if sentence := firstSentence(section.Content); len(sentence) > 10 {
					points = append(points, sentence)
				}
				if len(points) >= 5 {
					break
				}
			}
		}
	}

	if len(points) > 7 {
		points = points[:7]
	}
	return points
}

// firstSentence returns the text up to and including the first sentence
// terminator, or the whole text when none is found.
func firstSentence(s string) string {
	if loc := sentenceEnd.FindStringIndex(s); loc != nil {
		return s[:loc[0]+1]
	}
	return s
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}
