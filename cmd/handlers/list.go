package handlers

import (
	"fmt"
	"os"

	"caseforge/internal/logger"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command for browsing the store
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents and their case studies",
		Long:  `Show every document saved with --save, the case studies generated from it, and store statistics.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runList(); err != nil {
				logger.Error("Failed to list store contents", err)
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

func runList() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", err)
		}
	}()

	docs, err := st.ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents stored yet. Use process --save or generate --save first.")
		return nil
	}

	for _, doc := range docs {
		title := doc.Structured.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("\n📄 %s\n", title)
		fmt.Printf("   ID: %s\n", doc.ID)
		fmt.Printf("   Source: %s (%s)  Processed: %s\n",
			doc.Metadata.Source, doc.Metadata.SourceType,
			doc.ProcessedAt.Format("2006-01-02 15:04:05"))

		studies, err := st.ListCaseStudies(doc.ID)
		if err != nil {
			return fmt.Errorf("failed to list case studies: %w", err)
		}
		for _, cs := range studies {
			fmt.Printf("   📝 %s\n", cs.Title)
			fmt.Printf("      ID: %s  Audience: %s  By: %s  At: %s\n",
				cs.ID, cs.Audience, cs.GeneratedBy,
				cs.GeneratedAt.Format("2006-01-02 15:04:05"))
		}
	}

	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get store statistics: %w", err)
	}
	fmt.Printf("\n📊 %d documents, %d case studies, %d images, %.2f MB\n",
		stats.DocumentCount, stats.CaseStudyCount, stats.ImageCount,
		float64(stats.SizeBytes)/1024/1024)

	return nil
}
