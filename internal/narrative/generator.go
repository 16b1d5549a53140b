// Package narrative turns extracted documents into case studies. Generation
// prefers the generative backend and degrades to a deterministic heuristic
// fallback on any failure, so callers always get a usable case study.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caseforge/internal/core"
	"caseforge/internal/llm"
	"caseforge/internal/logger"
	"caseforge/internal/truncate"
	"caseforge/internal/visual"

	"github.com/google/uuid"
)

// Options configures the generator behavior.
type Options struct {
	// Retry settings
	MaxRetries  int           // Total backend attempts before falling back
	BackoffUnit time.Duration // One backoff second; lowered in tests

	// Size thresholds
	LargeTextThreshold int   // Above this, text is truncated before prompting
	HardTextCap        int   // Above this, the backend is never attempted
	MaxFileBytes       int64 // Documents from larger files go straight to fallback

	// Timeouts per attempt
	GenerationTimeout      time.Duration
	LargeGenerationTimeout time.Duration

	// Image selection
	MaxImages int // Images attached to the finished case study
}

// DefaultOptions returns the production generation settings.
func DefaultOptions() Options {
	return Options{
		MaxRetries:             3,
		BackoffUnit:            time.Second,
		LargeTextThreshold:     20000,
		HardTextCap:            200000,
		MaxFileBytes:           100 * 1024 * 1024,
		GenerationTimeout:      30 * time.Second,
		LargeGenerationTimeout: 60 * time.Second,
		MaxImages:              3,
	}
}

// Generator produces case studies from extracted documents. A nil client
// means no backend is configured and every document takes the fallback path.
type Generator struct {
	client   llm.BackendClient
	opts     Options
	governor *truncate.Governor
}

// NewGenerator creates a generator with the given backend client and options.
// Zero-valued option fields fall back to the defaults.
func NewGenerator(client llm.BackendClient, opts Options) *Generator {
	defaults := DefaultOptions()
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaults.MaxRetries
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = defaults.BackoffUnit
	}
	if opts.LargeTextThreshold <= 0 {
		opts.LargeTextThreshold = defaults.LargeTextThreshold
	}
	if opts.HardTextCap <= 0 {
		opts.HardTextCap = defaults.HardTextCap
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaults.MaxFileBytes
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = defaults.GenerationTimeout
	}
	if opts.LargeGenerationTimeout <= 0 {
		opts.LargeGenerationTimeout = defaults.LargeGenerationTimeout
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = defaults.MaxImages
	}

	return &Generator{
		client:   client,
		opts:     opts,
		governor: truncate.NewGovernor(opts.LargeTextThreshold, opts.HardTextCap),
	}
}

// NewGeneratorWithDefaults creates a generator with default options.
func NewGeneratorWithDefaults(client llm.BackendClient) *Generator {
	return NewGenerator(client, DefaultOptions())
}

// GenerateCaseStudy produces a case study for the document. It never returns
// an error: any backend failure, oversized input, or missing content routes
// through the heuristic fallback instead.
func (g *Generator) GenerateCaseStudy(ctx context.Context, doc *core.ExtractedDocument, audience string) *core.CaseStudy {
	if audience == "" {
		audience = "general"
	}

	if doc == nil {
		logger.Error("No document provided for case study generation", nil)
		return g.fallback(&core.ExtractedDocument{}, audience)
	}
	if doc.Metadata.SkipGenerative {
		logger.Info("Document flagged to skip generative processing, using fallback",
			"document_id", doc.ID)
		return g.fallback(doc, audience)
	}
	if doc.Metadata.SizeBytes > g.opts.MaxFileBytes {
		logger.Info("Document file too large for generative processing, using fallback",
			"document_id", doc.ID, "size_bytes", doc.Metadata.SizeBytes)
		return g.fallback(doc, audience)
	}
	if doc.Text == "" {
		logger.Warn("Document has no extracted text, using fallback", "document_id", doc.ID)
		return g.fallback(doc, audience)
	}
	if g.governor.ExceedsHardCap(doc.Text) {
		logger.Warn("Document text exceeds generative cap, using fallback",
			"document_id", doc.ID, "chars", len(doc.Text))
		return g.fallback(doc, audience)
	}
	if g.client == nil {
		logger.Warn("Generative backend not configured, using fallback")
		return g.fallback(doc, audience)
	}

	largeInput := g.governor.IsLarge(doc.Text)
	text := g.governor.Prepare(doc.Text, doc.Structured)
	if largeInput {
		logger.Debug("Large input truncated for generation",
			"original_chars", len(doc.Text), "prompt_chars", len(text))
	}

	for attempt := 0; attempt < g.opts.MaxRetries; attempt++ {
		draft, err := g.attempt(ctx, text, audience, largeInput)
		if err == nil {
			logger.Info("Case study generated by backend",
				"document_id", doc.ID, "attempts", attempt+1)
			return g.assemble(doc, draft, audience)
		}

		retry := attempt + 1
		switch {
		case errors.Is(err, llm.ErrBackendRateLimited):
			logger.Error("Backend rate limited, using fallback", err)
			return g.fallback(doc, audience)

		case errors.Is(err, llm.ErrBackendTimeout), errors.Is(err, llm.ErrBackendConnectionFailure):
			logger.Error("Backend timeout or connection failure", err, "attempt", retry)
			if retry >= g.opts.MaxRetries {
				break
			}
			if largeInput {
				text = g.governor.Escalate(text, retry)
				logger.Debug("Escalated truncation for retry", "retry", retry, "chars", len(text))
			}
			if !g.pause(ctx, time.Duration(1<<retry)*g.opts.BackoffUnit) {
				return g.fallback(doc, audience)
			}

		case errors.Is(err, llm.ErrBackendTokenLimit):
			logger.Error("Backend token limit exceeded", err, "attempt", retry)
			if retry >= g.opts.MaxRetries {
				break
			}
			text = g.governor.TokenLimitCut(text)
			logger.Debug("Cut input after token limit", "retry", retry, "chars", len(text))
			if !g.pause(ctx, time.Duration(2*retry)*g.opts.BackoffUnit) {
				return g.fallback(doc, audience)
			}

		default:
			logger.Error("Backend generation failed", err, "attempt", retry)
			if retry >= g.opts.MaxRetries {
				break
			}
			if !g.pause(ctx, time.Duration(2*retry)*g.opts.BackoffUnit) {
				return g.fallback(doc, audience)
			}
		}
	}

	logger.Warn("All backend attempts exhausted, using fallback", "document_id", doc.ID)
	return g.fallback(doc, audience)
}

// attempt runs one backend call under the per-attempt timeout. The call runs
// on its own goroutine writing to a buffered channel; canceling the call
// context stops the backend request, so nothing is left running after a
// timeout.
func (g *Generator) attempt(ctx context.Context, text, audience string, largeInput bool) (*core.CaseStudyDraft, error) {
	timeout := g.opts.GenerationTimeout
	if largeInput {
		timeout = g.opts.LargeGenerationTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := BuildCaseStudyPrompt(text, audience, largeInput)

	type result struct {
		draft *core.CaseStudyDraft
		err   error
	}
	results := make(chan result, 1)
	go func() {
		draft, err := g.client.GenerateCaseStudy(callCtx, prompt, largeInput)
		results <- result{draft: draft, err: err}
	}()

	select {
	case res := <-results:
		return res.draft, res.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: generation timed out after %s", llm.ErrBackendTimeout, timeout)
	}
}

// pause sleeps for the backoff duration unless the context ends first.
func (g *Generator) pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		logger.Warn("Generation canceled during backoff")
		return false
	}
}

// assemble finishes a backend draft into a case study: gaps get fallback
// placeholders and the top-ranked images are attached.
func (g *Generator) assemble(doc *core.ExtractedDocument, draft *core.CaseStudyDraft, audience string) *core.CaseStudy {
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
		GeneratedBy: core.GeneratedByBackend,
		GeneratedAt: time.Now().UTC(),
	}

	if cs.Title == "" {
		cs.Title = doc.Structured.Title
		if cs.Title == "" {
			cs.Title = defaultTitle
		}
	}
	if cs.Challenge == "" {
		cs.Challenge = defaultChallenge
	}
	if cs.Approach == "" {
		cs.Approach = defaultApproach
	}
	if cs.Solution == "" {
		cs.Solution = defaultSolution
	}
	if cs.Outcomes == "" {
		cs.Outcomes = defaultOutcomes
	}
	if cs.Summary == "" {
		cs.Summary = defaultSummary
	}
	if len(cs.KeyPoints) == 0 {
		cs.KeyPoints = defaultedKeyPoints(doc)
	}

	g.attachImages(cs, doc)
	return cs
}

// attachImages selects the images most relevant to the finished narrative.
func (g *Generator) attachImages(cs *core.CaseStudy, doc *core.ExtractedDocument) {
	corpus := visual.Corpus(cs.Title, cs.Challenge, cs.Approach, cs.Solution, cs.Outcomes, cs.Summary)
	cs.Images = visual.Select(doc.Images, corpus, g.opts.MaxImages)
}

// ImproveText rewrites text in the requested improvement mode. The input
// comes back unchanged when no backend is configured or the call fails;
// callers never see an error.
func (g *Generator) ImproveText(ctx context.Context, text, mode string) string {
	if g.client == nil {
		logger.Warn("Generative backend not configured, returning original text")
		return text
	}

	improved, err := g.client.ImproveText(ctx, buildImprovePrompt(mode, text), improveSystemInstruction(mode))
	if err != nil {
		logger.Error("Text improvement failed, returning original text", err, "mode", mode)
		return text
	}
	return improved
}
