package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/promptforge/cmd/promptforge/commands"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "promptforge",
		Short: "PromptForge - canonical prompt family classification and templating",
		Long: `PromptForge dedups, clusters, and templates a corpus of prompts.

It deduplicates incoming prompts by exact hash and near-duplicate
SimHash, groups them into semantically similar families via HDBSCAN-style
clustering with incremental cosine-similarity assignment, and extracts a
versioned {{slot}} template per family once enough members accumulate.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&commands.Verbose, "verbose", "v", false, "Enable verbose logging (debug level)")

	rootCmd.AddCommand(
		commands.AddCmd,
		commands.IngestCmd,
		commands.IngestWorkerCmd,
		commands.RunCmd,
		commands.FullClassifyCmd,
		commands.ClassifyWorkerCmd,
		commands.ClearEmbeddingsCmd,
		commands.UpdateTemplatesCmd,
		commands.PromptsCmd,
		commands.FamiliesCmd,
		commands.FamilyCmd,
		commands.TemplateCmd,
		commands.EvolveCmd,
		commands.StatsCmd,
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("promptforge version %s\n", version)
			fmt.Printf("commit: %s\n", commit)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
