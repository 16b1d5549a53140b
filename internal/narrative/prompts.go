package narrative

import (
	"fmt"
	"strings"
)

// Improvement modes accepted by ImproveText. Anything else is treated as
// ModeImprove.
const (
	ModeImprove  = "improve"
	ModeSimplify = "simplify"
	ModeExtend   = "extend"
)

// BuildCaseStudyPrompt creates the generation prompt. Large inputs get a
// shorter instruction block so more of the budget goes to the content itself.
func BuildCaseStudyPrompt(text, audience string, largeInput bool) string {
	var prompt strings.Builder

	if largeInput {
		prompt.WriteString("Extract key information from this content to create a concise professional case study.\n")
		prompt.WriteString("Include these sections:\n")
	} else {
		prompt.WriteString("Based on the following content, generate a professional case study with these sections:\n")
	}
	prompt.WriteString("1. Challenge: Describe the key problems or challenges faced\n")
	prompt.WriteString("2. Approach: How the challenge was addressed\n")
	prompt.WriteString("3. Solution: The implemented solution\n")
	prompt.WriteString("4. Outcomes: Results and benefits achieved\n\n")

	if audience != "" && audience != "general" {
		prompt.WriteString(fmt.Sprintf("Target audience: %s.\n\n", audience))
	}

	if largeInput {
		prompt.WriteString("Keep it concise (300-400 words total).\n\n")
		prompt.WriteString("Here is the content:\n")
	} else {
		prompt.WriteString("Extract the most relevant information to construct a compelling narrative.\n")
		prompt.WriteString("The content should be:\n")
		prompt.WriteString("1. Well-structured and professional\n")
		prompt.WriteString("2. Between 300-500 words total\n")
		prompt.WriteString("3. Based exclusively on the information provided\n\n")
		prompt.WriteString("Here is the extracted text:\n")
	}
	prompt.WriteString(text)

	return prompt.String()
}

// improveSystemInstruction returns the editor persona for an improvement mode.
func improveSystemInstruction(mode string) string {
	switch mode {
	case ModeSimplify:
		return "You are an editor who specializes in simplifying complex language while retaining meaning."
	case ModeExtend:
		return "You are an editor who specializes in expanding content with relevant details."
	default:
		return "You are an expert editor who improves professional writing."
	}
}

// buildImprovePrompt wraps the text in the instruction for an improvement mode.
func buildImprovePrompt(mode, text string) string {
	switch mode {
	case ModeSimplify:
		return "Simplify the following text to make it more accessible while preserving key information:\n\n" + text
	case ModeExtend:
		return "Expand the following text with more details and context while maintaining the professional tone:\n\n" + text
	default:
		return "Improve the following text to make it more professional, impactful, and persuasive:\n\n" + text
	}
}
