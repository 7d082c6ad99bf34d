// Package cli provides the docqa command-line interface built on cobra.
// It is a driving adapter: commands translate flags and arguments into calls
// on the driving ports and render the results.
package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// ErrNotConfigured is returned when a command runs before its services were provided.
var ErrNotConfigured = errors.New("service not configured")

// Pipeline holds the services that read or write the index.
type Pipeline struct {
	Ingest driving.IngestService
	Query  driving.QueryService

	// Checker lets the HTTP API reject unsupported uploads up front. Optional.
	Checker httpapi.MediaTypeChecker

	// Ping checks the AI backends are reachable. Optional.
	Ping func(ctx context.Context) error

	// Close releases backend connections. Optional.
	Close func()
}

// PipelineFactory builds the pipeline from the effective settings.
type PipelineFactory func(ctx context.Context) (*Pipeline, error)

var (
	version = "dev"
	verbose bool

	settingsService driving.SettingsService
	pipelineFactory PipelineFactory

	pipelineMu sync.Mutex
	pipeline   *Pipeline
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over your documents",
	Long: `docqa indexes PDF and plain-text documents into a vector store and
answers questions about them with a language model, citing the passages
each answer was grounded in.

Configuration is read from ~/.docqa/config.toml and DOCQA_* environment
variables (a .env file in the working directory is loaded first).`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline diagnostics")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetSettingsService sets the service behind the settings commands.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetPipelineFactory sets how commands obtain the ingest and query services.
// The factory runs at most once, on the first command that needs it.
func SetPipelineFactory(f PipelineFactory) {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()
	pipelineFactory = f
	pipeline = nil
}

// getPipeline builds the pipeline on first use.
func getPipeline(ctx context.Context) (*Pipeline, error) {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()

	if pipeline != nil {
		return pipeline, nil
	}
	if pipelineFactory == nil {
		return nil, ErrNotConfigured
	}
	p, err := pipelineFactory(ctx)
	if err != nil {
		return nil, err
	}
	pipeline = p
	return p, nil
}

// closePipeline releases the pipeline if one was built.
func closePipeline() {
	pipelineMu.Lock()
	defer pipelineMu.Unlock()

	if pipeline != nil && pipeline.Close != nil {
		pipeline.Close()
	}
	pipeline = nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closePipeline()
	return rootCmd.ExecuteContext(ctx)
}
