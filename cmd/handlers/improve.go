package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"caseforge/internal/logger"
	"caseforge/internal/narrative"

	"github.com/spf13/cobra"
)

// NewImproveCmd creates the improve command for text refinement
func NewImproveCmd() *cobra.Command {
	improveCmd := &cobra.Command{
		Use:   "improve",
		Short: "Improve, simplify, or extend a piece of text",
		Long: `Rewrite text with the generative backend.

Text is taken from --text or read from stdin. Without an API key, or when
the backend fails, the input is returned unchanged.

Examples:
  caseforge improve --text "The system was slow and users complained."
  caseforge improve --mode simplify --text "..."
  cat draft.txt | caseforge improve --mode extend`,
		Run: improveRunFunc,
	}

	improveCmd.Flags().StringP("mode", "m", narrative.ModeImprove, "Rewrite mode: improve, simplify, extend")
	improveCmd.Flags().StringP("text", "t", "", "Text to rewrite (reads stdin when omitted)")

	return improveCmd
}

func improveRunFunc(cmd *cobra.Command, args []string) {
	mode, _ := cmd.Flags().GetString("mode")
	text, _ := cmd.Flags().GetString("text")

	validModes := []string{narrative.ModeImprove, narrative.ModeSimplify, narrative.ModeExtend}
	if !contains(validModes, mode) {
		fmt.Fprintf(os.Stderr, "Error: Invalid mode '%s'. Valid modes: %s\n",
			mode, strings.Join(validModes, ", "))
		os.Exit(1)
	}

	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read stdin: %v\n", err)
			os.Exit(1)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		fmt.Fprintf(os.Stderr, "Error: no text provided\n")
		os.Exit(1)
	}

	logger.Info("Improving text", "mode", mode, "length", len(text))
	ctx := context.Background()

	client := newBackendClient(ctx)
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	improved := newGenerator(client).ImproveText(ctx, text, mode)
	fmt.Println(improved)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
