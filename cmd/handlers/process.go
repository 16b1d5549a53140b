package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"caseforge/internal/config"
	"caseforge/internal/core"
	"caseforge/internal/logger"
	"caseforge/internal/reader"
	"caseforge/internal/store"

	"github.com/spf13/cobra"
)

// NewProcessCmd creates the process command for document extraction
func NewProcessCmd() *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process <file-or-url>",
		Short: "Extract text, structure, and images from a document",
		Long: `Process a document without generating a case study.

Reads a PDF, DOCX, PPTX, or plain text file, or fetches a web page, and
prints what the extractor found: text size, detected sections, key points,
and extracted images.

Examples:
  caseforge process report.pdf
  caseforge process deck.pptx --json
  caseforge process https://example.com/article --save`,
		Args: cobra.ExactArgs(1),
		Run:  processRunFunc,
	}

	processCmd.Flags().Bool("json", false, "Print the full extracted document as JSON")
	processCmd.Flags().Bool("save", false, "Persist the extracted document to the store")

	return processCmd
}

func processRunFunc(cmd *cobra.Command, args []string) {
	source := args[0]
	asJSON, _ := cmd.Flags().GetBool("json")
	save, _ := cmd.Flags().GetBool("save")

	logger.Info("Processing document", "source", source)

	svc := newReaderService()
	doc, err := svc.ProcessDocument(context.Background(), source)
	if err != nil {
		logger.Error("Failed to process document", err, "source", source)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if save {
		if err := saveDocument(doc); err != nil {
			logger.Error("Failed to save document", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("💾 Saved document %s\n", doc.ID)
	}

	if asJSON {
		if err := printJSON(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printDocumentSummary(doc)
}

func printDocumentSummary(doc *core.ExtractedDocument) {
	fmt.Printf("\n📄 %s\n", doc.Metadata.Source)
	fmt.Printf("   Type: %s  Size: %d bytes  Status: %s\n",
		doc.Metadata.SourceType, doc.Metadata.SizeBytes, doc.Metadata.Status)
	if doc.Metadata.Status == core.StatusError {
		fmt.Printf("   Error: %s\n", doc.Metadata.ErrorDetail)
	}
	if doc.Metadata.SkipGenerative {
		fmt.Printf("   ⚠️  Large input: generative processing will be skipped\n")
	}

	fmt.Printf("\n📝 Title: %s\n", doc.Structured.Title)
	fmt.Printf("   Text: %d characters, %d words\n", len(doc.Text), doc.Structured.WordCount)
	fmt.Printf("   Sections: %d", len(doc.Structured.Sections))
	if doc.Structured.PageCount > 0 {
		fmt.Printf("  Pages: %d", doc.Structured.PageCount)
	}
	fmt.Printf("\n")
	fmt.Printf("🖼️  Images: %d\n", len(doc.Images))

	if len(doc.Structured.KeyPoints) > 0 {
		fmt.Printf("\n✨ Key Points:\n")
		for _, point := range doc.Structured.KeyPoints {
			fmt.Printf("  • %s\n", point)
		}
	}
	fmt.Printf("\n")
}

// newReaderService builds the reader from the loaded configuration.
func newReaderService() *reader.Service {
	limits := config.GetLimits()
	images := config.GetImages()
	web := config.GetWeb()

	return reader.NewService(reader.Options{
		MaxFileBytes:       limits.MaxFileBytes,
		LargeFileBytes:     limits.LargeFileBytes,
		VeryLargeFileBytes: limits.VeryLargeFileBytes,
		MaxImagesPerDoc:    images.MaxPerDocument,
		MinImageDim:        images.MinDimension,
		MaxImageDimension:  images.MaxDimension,
		JPEGQuality:        images.JPEGQuality,
		UserAgent:          web.UserAgent,
		WebTimeout:         config.WebTimeout(),
	})
}

// openStore opens the SQLite store under the configured storage directory.
func openStore() (*store.Store, error) {
	st, err := store.NewStore(config.GetStorageDirectory())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func saveDocument(doc *core.ExtractedDocument) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", err)
		}
	}()
	return st.SaveDocument(doc)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Printf("%s\n", data)
	return nil
}
