package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/watcher"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	watchDebounce time.Duration
	watchScan     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Index a directory and keep it indexed",
	Long: `Watch a directory tree and index PDF and text files as they are created
or modified. Hidden files and directories are ignored. Deleted files stay in
the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before indexing changes")
	watchCmd.Flags().BoolVar(&watchScan, "scan", true, "index existing files on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger.SetTimestamps(true)

	p, err := getPipeline(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := watcher.New(args[0], p.Ingest,
		watcher.WithDebounce(watchDebounce),
		watcher.WithInitialScan(watchScan),
		watcher.WithReportHandler(func(r *domain.IngestReport, err error) {
			if r != nil {
				fmt.Fprintf(out, "indexed %d documents (%d chunks)\n", r.DocumentsIndexed, r.ChunksIndexed)
				for _, s := range r.Skipped {
					fmt.Fprintf(out, "  skipped %s: %s\n", s.Filename, s.Reason)
				}
			}
			if err != nil && !errors.Is(err, domain.ErrEmptyBatch) {
				fmt.Fprintf(cmd.ErrOrStderr(), "ingest failed: %v\n", err)
			}
		}),
	)
	defer func() { _ = w.Close() }()

	fmt.Fprintf(out, "Watching %s\n", args[0])
	err = w.Run(cmd.Context())
	if errors.Is(err, watcher.ErrClosed) {
		return nil
	}
	return err
}
