package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/extractors"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default from configuration)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string   `json:"answer"`
	Context  []string `json:"context"`
	Sources  []string `json:"sources"`
	Grounded bool     `json:"grounded"`
}

// IngestFileInput is the input schema for the ingest_file tool.
type IngestFileInput struct {
	Path      string `json:"path" jsonschema:"path of a PDF or plain text file on this machine"`
	MediaType string `json:"media_type,omitempty" jsonschema:"media type override, e.g. text/plain; charset=latin1"`
}

// IngestFileOutput is the output schema for the ingest_file tool.
type IngestFileOutput struct {
	BatchID          string `json:"batch_id"`
	Filename         string `json:"filename"`
	ChunksIndexed    int    `json:"chunks_indexed"`
	DocumentsIndexed int    `json:"documents_indexed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using passages retrieved from the indexed documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Index a local PDF or plain text file so later questions can use it",
	}, s.handleIngestFile)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if input.TopK < 0 {
		return nil, AskOutput{}, fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidInput)
	}

	answer, err := s.ports.Query.Answer(ctx, input.Question, domain.QueryOptions{TopK: input.TopK})
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:   answer.Text,
		Context:  answer.Context,
		Sources:  answer.Sources,
		Grounded: answer.Grounded,
	}
	if output.Context == nil {
		output.Context = []string{}
	}
	if output.Sources == nil {
		output.Sources = []string{}
	}

	return nil, output, nil
}

// handleIngestFile handles the ingest_file tool invocation.
func (s *Server) handleIngestFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestFileInput,
) (*mcp.CallToolResult, IngestFileOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, IngestFileOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	doc, err := extractors.LoadDocument(filepath.Clean(input.Path))
	if err != nil {
		return nil, IngestFileOutput{}, err
	}
	if input.MediaType != "" {
		doc.MediaType = input.MediaType
	}

	report, err := s.ports.Ingest.Ingest(ctx, []domain.Document{doc})
	if err != nil {
		if report != nil && len(report.Skipped) > 0 {
			return nil, IngestFileOutput{}, fmt.Errorf("%w: %s", err, report.Skipped[0].Reason)
		}
		return nil, IngestFileOutput{}, err
	}

	return nil, IngestFileOutput{
		BatchID:          report.BatchID,
		Filename:         doc.Filename,
		ChunksIndexed:    report.ChunksIndexed,
		DocumentsIndexed: report.DocumentsIndexed,
	}, nil
}
