/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"os"

	"caseforge/internal/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "caseforge",
		Short: "Caseforge turns documents into structured case studies.",
		Long: `Caseforge extracts text, structure, and images from PDF, DOCX, PPTX,
plain text, and web sources, then generates a case study narrative
(challenge, approach, solution, outcomes) with a generative backend.

Without a Gemini API key the pipeline still runs end to end: generation
degrades to a deterministic heuristic built from the extracted content.`,
		Version: "0.1.0",
	}

	// Initialize configuration
	cobra.OnInitialize(initConfig)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.caseforge.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewProcessCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewImproveCmd())
	rootCmd.AddCommand(NewListCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set. A bad config file
// is reported but does not abort: every setting has a workable default.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: error loading configuration: %v\n", err)
	}
}
