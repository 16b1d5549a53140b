package visual

import (
	"sort"
	"strconv"
	"strings"

	"caseforge/internal/core"
)

var (
	valuableCaptionWords   = []string{"diagram", "chart", "graph", "figure", "process", "workflow", "infographic", "results"}
	decorativeCaptionWords = []string{"icon", "bullet", "background", "decoration"}
)

// Corpus joins narrative text fields into a single lowercased string for
// caption relevance matching.
func Corpus(fields ...string) string {
	return strings.ToLower(strings.Join(fields, " "))
}

// Select scores and ranks images for relevance to the narrative and returns
// the top maxImages with their Selected flag set. When there are no more
// images than the cap, all are returned in their original order.
func Select(images []core.ExtractedImage, narrativeText string, maxImages int) []core.ExtractedImage {
	if len(images) == 0 {
		return nil
	}

	if len(images) <= maxImages {
		selected := make([]core.ExtractedImage, len(images))
		copy(selected, images)
		for i := range selected {
			selected[i].Selected = true
		}
		return selected
	}

	corpus := strings.ToLower(narrativeText)

	type scoredImage struct {
		score float64
		img   core.ExtractedImage
	}
	ranked := make([]scoredImage, 0, len(images))
	for i, img := range images {
		ranked = append(ranked, scoredImage{score: scoreImage(img, i, corpus), img: img})
	}

	// Stable sort keeps original order among equal scores.
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	selected := make([]core.ExtractedImage, 0, maxImages)
	for _, r := range ranked[:maxImages] {
		img := r.img
		img.Selected = true
		selected = append(selected, img)
	}
	return selected
}

func scoreImage(img core.ExtractedImage, position int, corpus string) float64 {
	var score float64
	caption := strings.ToLower(img.Caption)

	// Earlier images tend to matter more.
	if position < 100 {
		score += float64(100-position) * 0.5
	}

	// Early slides and pages get a strong boost.
	switch {
	case strings.Contains(caption, "slide 1") || strings.Contains(caption, "page 1") || strings.Contains(caption, "cover"):
		score += 100
	case strings.Contains(caption, "slide 2") || strings.Contains(caption, "page 2"):
		score += 80
	case containsNumberedPosition(caption, 3, 5):
		score += 60
	}

	// Caption words that also appear in the narrative suggest relevance.
	if corpus != "" && caption != "" {
		for _, word := range strings.Fields(caption) {
			if len(word) > 4 && strings.Contains(corpus, word) {
				score += 10
			}
		}
	}

	for _, keyword := range valuableCaptionWords {
		if strings.Contains(caption, keyword) {
			score += 50
			break
		}
	}
	for _, keyword := range decorativeCaptionWords {
		if strings.Contains(caption, keyword) {
			score -= 50
			break
		}
	}

	return score
}

func containsNumberedPosition(caption string, from, to int) bool {
	for n := from; n <= to; n++ {
		num := strconv.Itoa(n)
		if strings.Contains(caption, "slide "+num) || strings.Contains(caption, "page "+num) {
			return true
		}
	}
	return false
}
