package handlers

import (
	"context"
	"fmt"
	"os"

	"caseforge/internal/config"
	"caseforge/internal/core"
	"caseforge/internal/llm"
	"caseforge/internal/logger"
	"caseforge/internal/narrative"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command for the full pipeline
func NewGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate <file-or-url>",
		Short: "Generate a case study from a document",
		Long: `Run the full pipeline: extract the document, then generate a case study
narrative with challenge, approach, solution, and outcomes sections.

With a Gemini API key configured (GEMINI_API_KEY or ai.gemini.api_key) the
narrative comes from the generative backend. Without one, or when the
backend fails, a deterministic heuristic builds the case study from the
extracted structure instead. The command never fails on backend errors.

Examples:
  caseforge generate report.pdf
  caseforge generate deck.pptx --audience executives --save
  caseforge generate https://example.com/case --json`,
		Args: cobra.ExactArgs(1),
		Run:  generateRunFunc,
	}

	generateCmd.Flags().StringP("audience", "a", "", "Target audience for the narrative (default from config)")
	generateCmd.Flags().Bool("json", false, "Print the case study as JSON")
	generateCmd.Flags().Bool("save", false, "Persist the document and case study to the store")

	return generateCmd
}

func generateRunFunc(cmd *cobra.Command, args []string) {
	source := args[0]
	audience, _ := cmd.Flags().GetString("audience")
	asJSON, _ := cmd.Flags().GetBool("json")
	save, _ := cmd.Flags().GetBool("save")

	if audience == "" {
		audience = config.GetGeneration().Audience
	}

	logger.Info("Generating case study", "source", source, "audience", audience)
	ctx := context.Background()

	svc := newReaderService()
	doc, err := svc.ProcessDocument(ctx, source)
	if err != nil {
		logger.Error("Failed to process document", err, "source", source)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := newBackendClient(ctx)
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	cs := newGenerator(client).GenerateCaseStudy(ctx, doc, audience)

	if save {
		if err := saveCaseStudy(doc, cs); err != nil {
			logger.Error("Failed to save case study", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("💾 Saved document %s and case study %s\n", doc.ID, cs.ID)
	}

	if asJSON {
		if err := printJSON(cs); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printCaseStudy(cs)
}

func printCaseStudy(cs *core.CaseStudy) {
	fmt.Printf("\n# %s\n\n", cs.Title)
	fmt.Printf("## Challenge\n\n%s\n\n", cs.Challenge)
	fmt.Printf("## Approach\n\n%s\n\n", cs.Approach)
	fmt.Printf("## Solution\n\n%s\n\n", cs.Solution)
	fmt.Printf("## Outcomes\n\n%s\n\n", cs.Outcomes)
	fmt.Printf("## Summary\n\n%s\n\n", cs.Summary)

	if len(cs.KeyPoints) > 0 {
		fmt.Printf("## Key Points\n\n")
		for _, point := range cs.KeyPoints {
			fmt.Printf("- %s\n", point)
		}
		fmt.Printf("\n")
	}

	if len(cs.Images) > 0 {
		fmt.Printf("## Images\n\n")
		for _, img := range cs.Images {
			fmt.Printf("- %s (%s)\n", img.ID, img.Caption)
		}
		fmt.Printf("\n")
	}

	icon := "🤖"
	if cs.GeneratedBy == core.GeneratedByFallback {
		icon = "📋"
	}
	fmt.Printf("%s Generated by %s at %s\n", icon, cs.GeneratedBy,
		cs.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
}

// newBackendClient returns a configured Gemini client, or a nil interface when
// no key is set or the client cannot be created, which routes generation to
// the heuristic fallback.
func newBackendClient(ctx context.Context) llm.BackendClient {
	if !config.HasGenerativeBackend() {
		logger.Warn("No Gemini API key configured, generation will use the fallback")
		return nil
	}

	client, err := llm.NewClient(ctx, config.GetGeminiAPIKey(), config.GetGeminiModel(),
		float64(config.GetAI().Gemini.Temperature))
	if err != nil {
		logger.Error("Failed to initialize backend client", err)
		return nil
	}
	return client
}

// newGenerator builds the narrative generator from the loaded configuration.
func newGenerator(client llm.BackendClient) *narrative.Generator {
	limits := config.GetLimits()
	generation := config.GetGeneration()

	return narrative.NewGenerator(client, narrative.Options{
		MaxRetries:             generation.MaxRetries,
		LargeTextThreshold:     limits.LargeTextThreshold,
		HardTextCap:            limits.HardTextCap,
		MaxFileBytes:           limits.MaxFileBytes,
		GenerationTimeout:      config.GenerationTimeout(),
		LargeGenerationTimeout: config.LargeGenerationTimeout(),
	})
}

func saveCaseStudy(doc *core.ExtractedDocument, cs *core.CaseStudy) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", err)
		}
	}()

	if err := st.SaveDocument(doc); err != nil {
		return err
	}
	return st.SaveCaseStudy(cs)
}
