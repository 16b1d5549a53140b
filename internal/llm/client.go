package llm

import (
	"caseforge/internal/core"
	"caseforge/internal/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model for case study generation.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTemperature balances narrative creativity against fidelity to
	// the source document.
	DefaultTemperature = 0.7

	// largePromptChars is the prompt length above which the output budget is
	// reduced to leave room for the input tokens.
	largePromptChars = 30000

	caseStudySystemPrompt = "You are a professional case study writer who creates compelling business narratives."
)

// BackendClient is the generative backend abstraction consumed by the
// narrative generator. A nil BackendClient means no backend is available and
// every generation routes to the heuristic fallback.
type BackendClient interface {
	GenerateCaseStudy(ctx context.Context, prompt string, largeInput bool) (*core.CaseStudyDraft, error)
	ImproveText(ctx context.Context, text string, instruction string) (string, error)
	Close() error
}

// Client wraps the Gemini API for structured case study generation.
type Client struct {
	modelName   string
	temperature float32
	gClient     *genai.Client
}

// NewClient creates a Gemini-backed client. An empty API key returns
// ErrNotConfigured so callers can degrade to the fallback generator instead
// of failing.
func NewClient(ctx context.Context, apiKey, modelName string, temperature float64) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName:   modelName,
		temperature: float32(temperature),
		gClient:     gClient,
	}, nil
}

// caseStudySchema returns the response schema that forces the model to emit
// every case study field as JSON.
func caseStudySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "A compelling title for the case study",
			},
			"challenge": {
				Type:        genai.TypeString,
				Description: "The business problem or challenge addressed (2-4 sentences)",
			},
			"approach": {
				Type:        genai.TypeString,
				Description: "The methodology or strategy that was applied (2-4 sentences)",
			},
			"solution": {
				Type:        genai.TypeString,
				Description: "What was built or delivered (2-4 sentences)",
			},
			"outcomes": {
				Type:        genai.TypeString,
				Description: "Measurable results and impact (2-4 sentences)",
			},
			"summary": {
				Type:        genai.TypeString,
				Description: "An executive summary of the whole case study (2-3 sentences)",
			},
			"key_points": {
				Type:        genai.TypeArray,
				Description: "3-5 key takeaways as short bullet points",
				Items: &genai.Schema{
					Type: genai.TypeString,
				},
			},
		},
		Required: []string{"title", "challenge", "approach", "solution", "outcomes", "summary", "key_points"},
	}
}

// GenerateCaseStudy sends the prepared prompt to the model and parses the
// structured JSON response into a draft. Transport and SDK failures come back
// classified onto the backend sentinel errors.
func (c *Client) GenerateCaseStudy(ctx context.Context, prompt string, largeInput bool) (*core.CaseStudyDraft, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	// A long prompt gets a smaller output budget so the request stays
	// within the model's combined window.
	maxTokens := int32(3000)
	if len(prompt) >= largePromptChars {
		maxTokens = 2000
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.temperature),
		MaxOutputTokens:  maxTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   caseStudySchema(),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: caseStudySystemPrompt}},
		},
	}

	logger.Debug("Requesting case study from backend",
		"model", c.modelName, "prompt_chars", len(prompt), "large_input", largeInput)

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return nil, Classify(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrBackendInvalidResponse)
	}

	var draft core.CaseStudyDraft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendInvalidResponse, err)
	}

	return &draft, nil
}

// ImproveText rewrites the given text under the supplied system instruction
// and returns the improved version.
func (c *Client) ImproveText(ctx context.Context, text string, instruction string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: 1000,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", Classify(err)
	}

	improved := strings.TrimSpace(resp.Text())
	if improved == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrBackendInvalidResponse)
	}

	return improved, nil
}

// Close releases client resources. The Gemini SDK client does not require an
// explicit close.
func (c *Client) Close() error {
	return nil
}
