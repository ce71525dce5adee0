package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kestrel-labs/promptforge/internal/ingestworker"
	"github.com/kestrel-labs/promptforge/pkg/dedup"
)

var ingestSource string

// IngestCmd implements spec.md §6's `ingest --source={file|portkey} <path>`.
var IngestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Bulk ingest prompts from a local file/directory or the log-export service",
	Long: `Bulk ingest prompts with dedup, reporting saved/exact_duplicates/
near_duplicates counts.

--source=file treats <path> as a directory of *.jsonl files read in
full, ignoring any checkpoint.
--source=portkey treats <path> as the base URL of the external
log-export service and runs its five-step protocol for everything since
24 hours ago.`,
	Example: `  promptforge ingest --source=file ./exports
  promptforge ingest --source=portkey https://logs.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	IngestCmd.Flags().StringVar(&ingestSource, "source", "file", "Ingestion source: file or portkey")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	path := args[0]
	ctx := context.Background()

	var records []ingestworker.Record
	switch ingestSource {
	case "file":
		records, err = ingestworker.ReadDirSince(path, time.Time{})
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	case "portkey":
		client := ingestworker.NewLogExportClient(ingestworker.LogExportConfig{BaseURL: path})
		body, err := client.FetchSince(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			return fmt.Errorf("fetch log export: %w", err)
		}
		records, err = ingestworker.ParseJSONLines(body)
		if err != nil {
			return fmt.Errorf("parse log export: %w", err)
		}
	default:
		return fmt.Errorf("unknown --source %q (want file or portkey)", ingestSource)
	}

	pipeline, err := a.newPipeline()
	if err != nil {
		return err
	}

	saved, exactDup, nearDup, failed := 0, 0, 0, 0
	for _, r := range records {
		result, err := pipeline.Add(ctx, r.Text, r.Metadata)
		if err != nil {
			failed++
			log.Error().Err(err).Msg("ingest: failed to add record, continuing")
			continue
		}
		switch result.Outcome {
		case dedup.Kept:
			saved++
		case dedup.ExactDuplicate:
			exactDup++
		case dedup.NearDuplicate:
			nearDup++
		}
	}

	fmt.Printf("saved=%d exact_duplicates=%d near_duplicates=%d failed=%d\n", saved, exactDup, nearDup, failed)
	return nil
}
