package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/extractors"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Index documents",
	Long: `Extract, chunk, embed and store PDF and plain-text documents.

Directories are walked recursively and contribute their supported files.
Files that cannot be extracted are reported as skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, err := extractors.ExpandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: no supported files found", domain.ErrEmptyBatch)
	}

	docs, err := extractors.LoadDocuments(paths)
	if err != nil {
		return err
	}

	p, err := getPipeline(cmd.Context())
	if err != nil {
		return err
	}

	report, err := p.Ingest.Ingest(cmd.Context(), docs)
	if report != nil {
		if printErr := printIngestReport(cmd, report); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBatch) {
			return errors.New("no documents were indexed")
		}
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

type skippedFileJSON struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ingestReportJSON is the JSON shape of an ingestion report.
type ingestReportJSON struct {
	BatchID          string            `json:"batch_id"`
	DocumentsIndexed int               `json:"documents_indexed"`
	ChunksIndexed    int               `json:"chunks_indexed"`
	Skipped          []skippedFileJSON `json:"skipped"`
}

func printIngestReport(cmd *cobra.Command, r *domain.IngestReport) error {
	if ingestJSON {
		skipped := make([]skippedFileJSON, 0, len(r.Skipped))
		for _, s := range r.Skipped {
			skipped = append(skipped, skippedFileJSON{Filename: s.Filename, Reason: s.Reason})
		}
		data, err := json.MarshalIndent(ingestReportJSON{
			BatchID:          r.BatchID,
			DocumentsIndexed: r.DocumentsIndexed,
			ChunksIndexed:    r.ChunksIndexed,
			Skipped:          skipped,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Indexed %d documents (%d chunks)\n", r.DocumentsIndexed, r.ChunksIndexed)
	if r.BatchID != "" {
		cmd.Printf("Batch: %s\n", r.BatchID)
	}
	for _, s := range r.Skipped {
		cmd.Printf("  skipped %s: %s\n", s.Filename, s.Reason)
	}
	return nil
}
